package filevault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// BlockSize is the AES block size
const BlockSize = aes.BlockSize

// BlockCodec encrypts and decrypts whole buffers under an explicit key and IV
type BlockCodec interface {
	// Encrypt pads and encrypts plaintext
	Encrypt(plaintext, key, iv []byte) ([]byte, error)

	// Decrypt decrypts ciphertext and removes the padding
	Decrypt(ciphertext, key, iv []byte) ([]byte, error)
}

// CBCCodec implements BlockCodec with AES-256 in CBC mode and PKCS#7-style padding.
//
// There is no MAC. The only check on decrypt is the final pad byte, so a wrong key is
// reported as ErrInvalidPadding most of the time but about 16 in 256 wrong keys pass the
// check and produce garbage.
type CBCCodec struct{}

// NewCBCCodec creates a new AES-256-CBC codec
func NewCBCCodec() *CBCCodec {
	return &CBCCodec{}
}

// Encrypt pads plaintext to a whole number of blocks and encrypts it.
// The result is always len(plaintext) + padLen bytes with padLen in [1,16].
func (c *CBCCodec) Encrypt(plaintext, key, iv []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}

	buf := Pad(plaintext)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf, buf)
	return buf, nil
}

// Decrypt decrypts ciphertext and strips the padding.
// Ciphertext that is empty or not block aligned cannot be decrypted and is reported as
// ErrInvalidPadding, the same outcome as a bad pad byte.
func (c *CBCCodec) Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, ErrInvalidPadding
	}

	buf := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(buf, ciphertext)
	return Unpad(buf)
}

func newBlock(key, iv []byte) (cipher.Block, error) {
	if err := ValidateKey(key, KeySize); err != nil {
		return nil, err
	}
	if err := ValidateIV(iv); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	return block, nil
}

// Pad returns a copy of b followed by padLen bytes of value padLen, where
// padLen = 16 - len(b)%16. A block-aligned input gets a full extra block.
func Pad(b []byte) []byte {
	padLen := BlockSize - len(b)%BlockSize
	out := make([]byte, len(b), len(b)+padLen)
	copy(out, b)
	return append(out, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

// Unpad strips the number of trailing bytes given by the final byte.
// Only that byte is checked; it must be in [1,16].
func Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrInvalidPadding
	}
	padLen := int(b[len(b)-1])
	if padLen < 1 || padLen > BlockSize || padLen > len(b) {
		return nil, ErrInvalidPadding
	}
	return b[:len(b)-padLen], nil
}

// GenerateIV generates a random initialization vector
func GenerateIV() ([]byte, error) {
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}
	return iv, nil
}
