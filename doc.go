// Package filevault stores files encrypted under a password on an AbsFs filesystem.
//
// # Overview
//
// Each stored file becomes one frame file, <identifier>.enc, in a flat directory, plus one
// record in a metadata catalog. Store derives a key from the password and a fresh random
// salt, encrypts the file with AES-256-CBC under a fresh random IV, and writes
//
//	salt (16 bytes) ∥ iv (16 bytes) ∥ ciphertext (16·k bytes)
//
// Retrieve reads the salt back from the frame, derives the same key from the supplied
// password, decrypts and strips the padding.
//
// # Basic Usage
//
//	v, err := filevault.Open("/var/lib/filevault", filevault.DefaultConfig("/"))
//	if err != nil {
//	    panic(err)
//	}
//	defer v.Close()
//
//	err = v.Store("report", []byte("hello world"), "correct-horse")
//	data, err := v.Retrieve("report", "correct-horse")
//
// Any absfs.FileSystem can be used as the base, for example memfs in tests:
//
//	base, _ := memfs.NewFS()
//	v, err := filevault.New(base, filevault.DefaultConfig("/vault"))
//
// # Key Derivation
//
// PBKDF2 (default): 200,000 iterations of HMAC-SHA1, producing a 32-byte key. SHA-256 and
// SHA-512 can be selected. Argon2id is available for new vaults. The frame does not record
// which function was used, so a vault must keep the same KDF settings for its lifetime.
//
// # Metadata
//
// The catalog maps "<identifier>.enc" to {"salt": "<hex>"}. It is loaded once by New,
// and every Store flushes the complete catalog before returning. The default backend is a
// JSON document replaced via temp file and rename; a badger database can be used instead.
// An identifier with a frame but no record, or a record but no frame, does not exist as
// far as Retrieve and List are concerned. Check reports such entries.
//
// # Security Considerations
//
// There is no message authentication code. The only check on decrypt is that the last
// plaintext byte is a pad length in [1,16]; failing it is reported as
// ErrWrongPasswordOrCorrupted without saying which. A wrong password passes that check
// roughly one time in sixteen and yields garbage. Anyone who can submit many modified
// frames and observe the outcome has a padding oracle.
//
// Passwords, derived keys, salts and IVs are never logged.
package filevault
