package filevault

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/absfs/absfs"
	"github.com/sirupsen/logrus"
)

// lockShards bounds the number of identifier locks held by a vault
const lockShards = 64

// Vault stores password-encrypted files on an absfs.FileSystem
type Vault struct {
	base    absfs.FileSystem
	config  *Config
	deriver KeyDeriver
	codec   BlockCodec
	frames  *FrameStore
	meta    *MetadataStore
	logger  *logrus.Logger

	// idLocks serialize frame write + metadata update per identifier
	idLocks [lockShards]sync.Mutex

	// opMu is read-held by every operation and write-held by Close
	opMu   sync.RWMutex
	closed atomic.Bool
}

// Open creates a vault whose base filesystem is the host directory root
func Open(root string, config *Config) (*Vault, error) {
	base, err := NewDirFS(root)
	if err != nil {
		return nil, err
	}
	return New(base, config)
}

// New creates a vault on the base filesystem using the metadata backend selected by config
func New(base absfs.FileSystem, config *Config) (*Vault, error) {
	if base == nil {
		return nil, ErrNilFileSystem
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var backend MetadataBackend
	switch config.MetadataBackend {
	case MetadataBadger:
		b, err := OpenBadgerBackend(config.MetadataPath)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		backend = NewJSONFileBackend(base, config.MetadataPath)
	}

	v, err := NewWithMetadataBackend(base, config, backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return v, nil
}

// NewWithMetadataBackend creates a vault that persists entry metadata through backend
func NewWithMetadataBackend(base absfs.FileSystem, config *Config, backend MetadataBackend) (*Vault, error) {
	if base == nil {
		return nil, ErrNilFileSystem
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
	}

	deriver, err := NewKeyDeriver(config)
	if err != nil {
		return nil, err
	}

	frames, err := NewFrameStore(base, config.Dir)
	if err != nil {
		return nil, err
	}

	meta, err := OpenMetadataStore(backend)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"dir":     config.Dir,
		"kdf":     deriver.Name(),
		"entries": meta.Len(),
	}).Debug("Vault opened")

	return &Vault{
		base:    base,
		config:  config,
		deriver: deriver,
		codec:   NewCBCCodec(),
		frames:  frames,
		meta:    meta,
		logger:  logger,
	}, nil
}

func (v *Vault) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &v.idLocks[h.Sum32()%lockShards]
}

// Store encrypts plaintext under a key derived from password and a fresh salt, writes the
// frame for id and records the salt. An existing entry for id is replaced.
//
// A nil plaintext is rejected as absent; an empty non-nil slice stores an empty file.
// If the metadata flush fails after the frame was written, the frame is left in place and
// the entry is not retrievable until it is stored again.
func (v *Vault) Store(id string, plaintext []byte, password string) error {
	v.opMu.RLock()
	defer v.opMu.RUnlock()
	if v.closed.Load() {
		return ErrClosed
	}
	if err := ValidateIdentifier(id); err != nil {
		return err
	}
	if plaintext == nil {
		return NewInvalidRequest("plaintext", nil, "file content is required")
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	secret, err := v.passwordBytes(password)
	if err != nil {
		return err
	}
	defer wipe(secret)

	frame, err := v.seal(id, plaintext, secret)
	if err != nil {
		return err
	}

	return v.commit(id, frame, len(plaintext))
}

// seal derives a fresh key and encrypts plaintext into a frame. It holds no locks.
func (v *Vault) seal(id string, plaintext, password []byte) (*Frame, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, NewEncryptionError("encrypt", id, err)
	}
	iv, err := GenerateIV()
	if err != nil {
		return nil, NewEncryptionError("encrypt", id, err)
	}

	key, err := v.deriver.DeriveKey(password, salt)
	if err != nil {
		return nil, NewEncryptionError("encrypt", id, err)
	}
	defer wipe(key)

	ciphertext, err := v.codec.Encrypt(plaintext, key, iv)
	if err != nil {
		return nil, NewEncryptionError("encrypt", id, err)
	}
	return NewFrame(salt, iv, ciphertext), nil
}

// commit writes the frame and then the metadata record for id
func (v *Vault) commit(id string, frame *Frame, plainLen int) error {
	mu := v.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	fields := logrus.Fields{
		"identifier":  id,
		"size":        plainLen,
		"frame_bytes": frame.Size(),
	}

	if err := v.frames.Write(id, frame); err != nil {
		v.logger.WithFields(fields).WithError(err).Error("Failed to write frame")
		return err
	}

	if err := v.meta.Put(FrameName(id), NewEntryMetadata(frame.Salt)); err != nil {
		v.logger.WithFields(fields).WithError(err).Error("Frame written but metadata flush failed")
		if !IsIOError(err) {
			err = NewIOError("flush", v.config.MetadataPath, err)
		}
		return err
	}

	v.logger.WithFields(fields).Info("Entry stored")
	return nil
}

// Retrieve decrypts the entry stored under id with password.
//
// The key is derived from the salt at the start of the frame; the salt in the metadata
// record is not consulted. A failed padding check is returned as an AuthenticationError
// matching ErrWrongPasswordOrCorrupted. Because there is no MAC, a wrong password
// occasionally passes the check and yields garbage instead of an error.
func (v *Vault) Retrieve(id, password string) ([]byte, error) {
	v.opMu.RLock()
	defer v.opMu.RUnlock()
	if v.closed.Load() {
		return nil, ErrClosed
	}
	if err := ValidateIdentifier(id); err != nil {
		return nil, err
	}

	ok, err := v.exists(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound(id)
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	secret, err := v.passwordBytes(password)
	if err != nil {
		return nil, err
	}
	defer wipe(secret)

	data, err := v.frames.Read(id)
	if err != nil {
		if isNotExist(err) {
			return nil, notFound(id)
		}
		return nil, err
	}

	frame, err := ParseFrame(data)
	if err != nil {
		v.logger.WithFields(logrus.Fields{
			"identifier":  id,
			"frame_bytes": len(data),
		}).Warn("Truncated frame")
		return nil, NewCorruptionError(id, err)
	}

	key, err := v.deriver.DeriveKey(secret, frame.Salt)
	if err != nil {
		return nil, NewEncryptionError("decrypt", id, err)
	}
	defer wipe(key)

	plaintext, err := v.codec.Decrypt(frame.Ciphertext, key, frame.IV)
	if err != nil {
		if errors.Is(err, ErrInvalidPadding) {
			v.logger.WithField("identifier", id).Warn("Decrypt failed: wrong password or corrupted frame")
			return nil, NewAuthenticationError(id)
		}
		return nil, NewEncryptionError("decrypt", id, err)
	}

	v.logger.WithFields(logrus.Fields{
		"identifier": id,
		"size":       len(plaintext),
	}).Debug("Entry retrieved")
	return plaintext, nil
}

// exists reports whether both the frame file and the metadata record exist for id
func (v *Vault) exists(id string) (bool, error) {
	if _, ok := v.meta.Get(FrameName(id)); !ok {
		return false, nil
	}
	return v.frames.Exists(id)
}

// List returns the identifiers of entries that have both a frame and a metadata record,
// in storage enumeration order
func (v *Vault) List() ([]string, error) {
	v.opMu.RLock()
	defer v.opMu.RUnlock()
	if v.closed.Load() {
		return nil, ErrClosed
	}

	ids, err := v.frames.List()
	if err != nil {
		return nil, err
	}

	out := ids[:0]
	for _, id := range ids {
		if _, ok := v.meta.Get(FrameName(id)); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Close waits for in-flight operations, then releases the metadata backend. Further calls
// return ErrClosed.
func (v *Vault) Close() error {
	v.opMu.Lock()
	defer v.opMu.Unlock()
	if !v.closed.CompareAndSwap(false, true) {
		return nil
	}
	return v.meta.Close()
}

// passwordBytes encodes password for the configured KDF. PBKDF2 keys use Latin-1 so frames
// written by earlier deployments stay readable; Argon2id takes the UTF-8 bytes.
func (v *Vault) passwordBytes(password string) ([]byte, error) {
	if v.config.KDF == KDFPBKDF2 {
		return Latin1Password(password)
	}
	return []byte(password), nil
}

// wipe overwrites key material that is no longer needed
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
