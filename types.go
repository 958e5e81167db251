package filevault

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"path"

	"github.com/sirupsen/logrus"
)

const (
	// SaltSize is the size of the per-entry key derivation salt
	SaltSize = 16

	// IVSize is the size of the CBC initialization vector (one AES block)
	IVSize = 16

	// KeySize is the derived key length (AES-256)
	KeySize = 32

	// DefaultIterations is the default PBKDF2 cost
	DefaultIterations = 200_000

	// FrameExt is appended to an identifier to name its frame file
	FrameExt = ".enc"

	// DefaultMetadataName is the metadata file created inside the storage directory
	DefaultMetadataName = "meta.json"
)

// KDF selects the password-based key derivation function
type KDF uint8

const (
	// KDFPBKDF2 uses PBKDF2 with an HMAC PRF
	KDFPBKDF2 KDF = iota
	// KDFArgon2id uses the memory-hard Argon2id function
	KDFArgon2id
)

// String returns the string representation of the KDF
func (k KDF) String() string {
	switch k {
	case KDFPBKDF2:
		return "pbkdf2"
	case KDFArgon2id:
		return "argon2id"
	default:
		return "unknown"
	}
}

// ParseKDF maps a configuration string to a KDF
func ParseKDF(s string) (KDF, error) {
	switch s {
	case "", "pbkdf2":
		return KDFPBKDF2, nil
	case "argon2id":
		return KDFArgon2id, nil
	default:
		return 0, NewValidationError("kdf", s, "unsupported key derivation function")
	}
}

// HashFunc represents hash function types for PBKDF2
type HashFunc uint8

const (
	// SHA1 hash function. Default, matches vaults written before SHA-2 support.
	SHA1 HashFunc = iota
	// SHA256 hash function
	SHA256
	// SHA512 hash function
	SHA512
)

// String returns the string representation of the hash function
func (h HashFunc) String() string {
	switch h {
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	case SHA512:
		return "sha512"
	default:
		return "unknown"
	}
}

// ParseHashFunc maps a configuration string to a HashFunc
func ParseHashFunc(s string) (HashFunc, error) {
	switch s {
	case "", "sha1":
		return SHA1, nil
	case "sha256":
		return SHA256, nil
	case "sha512":
		return SHA512, nil
	default:
		return 0, NewValidationError("hash", s, "unsupported hash function")
	}
}

// New returns the hash constructor for h, or nil if h is unknown
func (h HashFunc) New() func() hash.Hash {
	switch h {
	case SHA1:
		return sha1.New
	case SHA256:
		return sha256.New
	case SHA512:
		return sha512.New
	default:
		return nil
	}
}

// PBKDF2Params contains parameters for PBKDF2 key derivation
type PBKDF2Params struct {
	Iterations int      // Number of iterations (DefaultIterations if zero)
	HashFunc   HashFunc // PRF hash
	KeySize    int      // Derived key size in bytes (KeySize if zero)
}

// Argon2idParams contains parameters for Argon2id key derivation
type Argon2idParams struct {
	Memory      uint32 // Memory in KiB (e.g., 64*1024 for 64MB)
	Iterations  uint32 // Number of iterations (time parameter)
	Parallelism uint8  // Degree of parallelism
	KeySize     int    // Derived key size in bytes (KeySize if zero)
}

// MetadataBackendKind selects where entry metadata is persisted
type MetadataBackendKind uint8

const (
	// MetadataJSON keeps a single JSON document on the vault filesystem
	MetadataJSON MetadataBackendKind = iota
	// MetadataBadger keeps one key per entry in a badger database on the OS filesystem
	MetadataBadger
)

// Config contains configuration for a vault
type Config struct {
	// Dir is the flat directory holding frame files, relative to the base filesystem
	Dir string

	// MetadataPath is where the JSON metadata document lives.
	// Defaults to Dir/meta.json. For MetadataBadger it is an OS directory.
	MetadataPath string

	// MetadataBackend selects the persistence backend for entry metadata
	MetadataBackend MetadataBackendKind

	// KDF selects the key derivation function used for every entry
	KDF KDF

	// PBKDF2 parameters, used when KDF is KDFPBKDF2
	PBKDF2 PBKDF2Params

	// Argon2id parameters, used when KDF is KDFArgon2id
	Argon2id Argon2idParams

	// Workers bounds StoreBatch concurrency. Zero means runtime.NumCPU().
	Workers int

	// Logger receives structured operation logs. Secrets are never logged.
	Logger *logrus.Logger
}

// DefaultConfig returns a configuration with PBKDF2-HMAC-SHA1, 200,000 iterations and a JSON
// metadata document under dir
func DefaultConfig(dir string) *Config {
	return &Config{
		Dir: dir,
		KDF: KDFPBKDF2,
		PBKDF2: PBKDF2Params{
			Iterations: DefaultIterations,
			HashFunc:   SHA1,
			KeySize:    KeySize,
		},
	}
}

// Validate checks the configuration and fills in zero-value defaults
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if c.Dir == "" {
		c.Dir = "/"
	}
	if c.MetadataPath == "" && c.MetadataBackend == MetadataJSON {
		c.MetadataPath = path.Join(c.Dir, DefaultMetadataName)
	}
	if c.MetadataBackend == MetadataBadger && c.MetadataPath == "" {
		return NewValidationError("metadata_path", "", "badger backend requires a database directory")
	}
	if c.MetadataBackend > MetadataBadger {
		return NewValidationError("metadata_backend", c.MetadataBackend, "unsupported metadata backend")
	}
	if c.Workers < 0 {
		return NewValidationError("workers", c.Workers, "workers cannot be negative")
	}

	switch c.KDF {
	case KDFPBKDF2:
		if c.PBKDF2.Iterations == 0 {
			c.PBKDF2.Iterations = DefaultIterations
		}
		if c.PBKDF2.KeySize == 0 {
			c.PBKDF2.KeySize = KeySize
		}
		if c.PBKDF2.Iterations < 0 {
			return NewValidationError("pbkdf2.iterations", c.PBKDF2.Iterations, "iterations must be positive")
		}
		if c.PBKDF2.KeySize != KeySize {
			return NewValidationError("pbkdf2.key_size", c.PBKDF2.KeySize, "AES-256 requires a 32-byte key")
		}
		if c.PBKDF2.HashFunc.New() == nil {
			return NewValidationError("pbkdf2.hash", c.PBKDF2.HashFunc, "unsupported hash function")
		}
	case KDFArgon2id:
		if c.Argon2id.Memory == 0 {
			c.Argon2id.Memory = 64 * 1024
		}
		if c.Argon2id.Iterations == 0 {
			c.Argon2id.Iterations = 3
		}
		if c.Argon2id.Parallelism == 0 {
			c.Argon2id.Parallelism = 4
		}
		if c.Argon2id.KeySize == 0 {
			c.Argon2id.KeySize = KeySize
		}
		if c.Argon2id.KeySize != KeySize {
			return NewValidationError("argon2id.key_size", c.Argon2id.KeySize, "AES-256 requires a 32-byte key")
		}
	default:
		return NewValidationError("kdf", c.KDF, "unsupported key derivation function")
	}

	return nil
}
