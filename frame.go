package filevault

import (
	"fmt"
	"io"
	"strings"
)

// FrameHeaderSize is the salt plus the IV at the start of every frame
const FrameHeaderSize = SaltSize + IVSize

// Frame is the on-disk form of one entry: salt ∥ iv ∥ ciphertext.
// There is no magic, version or length field.
type Frame struct {
	Salt       []byte // Key derivation salt, SaltSize bytes
	IV         []byte // CBC initialization vector, IVSize bytes
	Ciphertext []byte // Padded AES-CBC output
}

// NewFrame creates a frame from its parts
func NewFrame(salt, iv, ciphertext []byte) *Frame {
	return &Frame{
		Salt:       salt,
		IV:         iv,
		Ciphertext: ciphertext,
	}
}

// Size returns the encoded length of the frame
func (f *Frame) Size() int {
	return len(f.Salt) + len(f.IV) + len(f.Ciphertext)
}

// Bytes concatenates salt, iv and ciphertext in that order
func (f *Frame) Bytes() []byte {
	out := make([]byte, 0, f.Size())
	out = append(out, f.Salt...)
	out = append(out, f.IV...)
	return append(out, f.Ciphertext...)
}

// Validate checks the fixed-size fields
func (f *Frame) Validate() error {
	if err := ValidateLength(f.Salt, "salt", SaltSize); err != nil {
		return err
	}
	return ValidateIV(f.IV)
}

// WriteTo writes the encoded frame to w
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	n, err := w.Write(f.Bytes())
	if err != nil {
		return int64(n), fmt.Errorf("failed to write frame: %w", err)
	}
	return int64(n), nil
}

// ReadFrom reads a whole frame from r. Fewer than FrameHeaderSize bytes is ErrTruncatedFrame.
func (f *Frame) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), fmt.Errorf("failed to read frame: %w", err)
	}

	parsed, err := ParseFrame(data)
	if err != nil {
		return int64(len(data)), err
	}
	*f = *parsed
	return int64(len(data)), nil
}

// ParseFrame splits an encoded frame into salt (first 16 bytes), iv (next 16) and ciphertext
// (the remainder). The returned slices do not alias data. Short input returns the bare
// ErrTruncatedFrame; callers that know the identifier wrap it in a CorruptionError.
func ParseFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, ErrTruncatedFrame
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	return &Frame{
		Salt:       buf[:SaltSize:SaltSize],
		IV:         buf[SaltSize:FrameHeaderSize:FrameHeaderSize],
		Ciphertext: buf[FrameHeaderSize:],
	}, nil
}

// FrameName returns the file name of the frame for identifier id
func FrameName(id string) string {
	return id + FrameExt
}

// IdentifierFromFrameName reverses FrameName. It reports false for names that are not frames.
func IdentifierFromFrameName(name string) (string, bool) {
	if !strings.HasSuffix(name, FrameExt) || len(name) == len(FrameExt) {
		return "", false
	}
	return strings.TrimSuffix(name, FrameExt), true
}
