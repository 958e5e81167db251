package filevault

import (
	"fmt"
	"strings"
)

// Input validation helpers

// maxIdentifierLen keeps <identifier>.enc within common 255-byte filename limits
const maxIdentifierLen = 255 - len(FrameExt)

// ValidateBuffer checks if a buffer is valid (non-nil and has at least minSize bytes)
func ValidateBuffer(buf []byte, name string, minSize int) error {
	if buf == nil {
		return &ValidationError{
			Field:   name,
			Message: "buffer cannot be nil",
		}
	}
	if minSize > 0 && len(buf) < minSize {
		return &ValidationError{
			Field:   name,
			Value:   len(buf),
			Message: fmt.Sprintf("buffer too small: got %d bytes, need at least %d bytes", len(buf), minSize),
		}
	}
	return nil
}

// ValidateLength checks that a buffer has exactly size bytes
func ValidateLength(buf []byte, name string, size int) error {
	if buf == nil {
		return &ValidationError{
			Field:   name,
			Message: "buffer cannot be nil",
		}
	}
	if len(buf) != size {
		return &ValidationError{
			Field:   name,
			Value:   len(buf),
			Message: fmt.Sprintf("invalid %s size: got %d bytes, expected %d bytes", name, len(buf), size),
		}
	}
	return nil
}

// ValidateKey checks if a key has the correct size
func ValidateKey(key []byte, expectedSize int) error {
	if err := ValidateLength(key, "key", expectedSize); err != nil {
		err.(*ValidationError).Err = ErrInvalidKey
		return err
	}
	return nil
}

// ValidateIV checks that an IV is exactly one AES block
func ValidateIV(iv []byte) error {
	if err := ValidateLength(iv, "iv", IVSize); err != nil {
		err.(*ValidationError).Err = ErrInvalidIV
		return err
	}
	return nil
}

// ValidateIdentifier checks that an identifier names a single entry in a flat directory.
// Turning arbitrary upload names into identifiers is the caller's job.
func ValidateIdentifier(id string) error {
	switch {
	case id == "":
		return NewInvalidRequest("identifier", id, "identifier cannot be empty")
	case id == "." || id == "..":
		return NewInvalidRequest("identifier", id, "identifier cannot be a directory reference")
	case len(id) > maxIdentifierLen:
		return NewInvalidRequest("identifier", len(id), fmt.Sprintf("identifier longer than %d bytes", maxIdentifierLen))
	case strings.ContainsAny(id, "/\\\x00"):
		return NewInvalidRequest("identifier", id, "identifier must not contain path separators or NUL")
	}
	return nil
}

// ValidatePassword rejects an empty password. The value itself is never echoed.
func ValidatePassword(password string) error {
	if password == "" {
		return NewInvalidRequest("password", nil, "password is required")
	}
	return nil
}
