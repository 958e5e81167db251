package filevault

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// KeyDeriver turns a password and a salt into a symmetric key
type KeyDeriver interface {
	// DeriveKey derives a key from password and salt. It is deterministic.
	DeriveKey(password, salt []byte) ([]byte, error)

	// Name identifies the derivation function for logs
	Name() string
}

// DeriveKey runs PBKDF2 with the given PRF hash. It is a pure function of its inputs; an empty
// password is accepted here and rejected by the vault instead.
func DeriveKey(password, salt []byte, iterations, keyLen int, h HashFunc) ([]byte, error) {
	if err := ValidateBuffer(salt, "salt", 1); err != nil {
		return nil, err
	}
	if iterations <= 0 {
		return nil, NewValidationError("iterations", iterations, "iterations must be positive")
	}
	if keyLen <= 0 {
		return nil, NewValidationError("key_size", keyLen, "key length must be positive")
	}
	hashFunc := h.New()
	if hashFunc == nil {
		return nil, NewValidationError("hash", h, "unsupported hash function")
	}

	return pbkdf2.Key(password, salt, iterations, keyLen, hashFunc), nil
}

// PBKDF2Deriver implements KeyDeriver using PBKDF2
type PBKDF2Deriver struct {
	params PBKDF2Params
}

// NewPBKDF2Deriver creates a PBKDF2 key deriver, filling defaults for zero parameters
func NewPBKDF2Deriver(params PBKDF2Params) *PBKDF2Deriver {
	if params.Iterations == 0 {
		params.Iterations = DefaultIterations
	}
	if params.KeySize == 0 {
		params.KeySize = KeySize
	}
	return &PBKDF2Deriver{params: params}
}

// DeriveKey derives a key from the password and salt
func (p *PBKDF2Deriver) DeriveKey(password, salt []byte) ([]byte, error) {
	return DeriveKey(password, salt, p.params.Iterations, p.params.KeySize, p.params.HashFunc)
}

// Name returns "pbkdf2-<hash>"
func (p *PBKDF2Deriver) Name() string {
	return "pbkdf2-" + p.params.HashFunc.String()
}

// Argon2idDeriver implements KeyDeriver using Argon2id
type Argon2idDeriver struct {
	params Argon2idParams
}

// NewArgon2idDeriver creates an Argon2id key deriver, filling defaults for zero parameters
func NewArgon2idDeriver(params Argon2idParams) *Argon2idDeriver {
	if params.Memory == 0 {
		params.Memory = 64 * 1024 // 64 MB
	}
	if params.Iterations == 0 {
		params.Iterations = 3
	}
	if params.Parallelism == 0 {
		params.Parallelism = 4
	}
	if params.KeySize == 0 {
		params.KeySize = KeySize
	}
	return &Argon2idDeriver{params: params}
}

// DeriveKey derives a key from the password and salt
func (a *Argon2idDeriver) DeriveKey(password, salt []byte) ([]byte, error) {
	if err := ValidateBuffer(salt, "salt", 1); err != nil {
		return nil, err
	}

	key := argon2.IDKey(
		password,
		salt,
		a.params.Iterations,
		a.params.Memory,
		a.params.Parallelism,
		uint32(a.params.KeySize),
	)
	return key, nil
}

// Name returns "argon2id"
func (a *Argon2idDeriver) Name() string {
	return KDFArgon2id.String()
}

// NewKeyDeriver creates the key deriver selected by the configuration
func NewKeyDeriver(config *Config) (KeyDeriver, error) {
	switch config.KDF {
	case KDFPBKDF2:
		return NewPBKDF2Deriver(config.PBKDF2), nil
	case KDFArgon2id:
		return NewArgon2idDeriver(config.Argon2id), nil
	default:
		return nil, NewValidationError("kdf", config.KDF, "unsupported key derivation function")
	}
}

// GenerateSalt generates a new random salt
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// Latin1Password encodes password one byte per rune, the encoding existing PBKDF2 frames
// were keyed with. Runes above U+00FF, including the replacement rune produced for invalid
// UTF-8, are rejected as an InvalidRequest.
func Latin1Password(password string) ([]byte, error) {
	out := make([]byte, 0, len(password))
	for _, r := range password {
		if r > 0xFF {
			return nil, NewInvalidRequest("password", nil, "password contains characters outside Latin-1")
		}
		out = append(out, byte(r))
	}
	return out, nil
}
