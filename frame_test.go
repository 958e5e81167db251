package filevault

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseFrame(t *testing.T) {
	// 48-byte frame: 16 salt, 16 iv, one block of ciphertext
	data := make([]byte, 48)
	for i := range data {
		data[i] = byte(i)
	}

	frame, err := ParseFrame(data)
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if !bytes.Equal(frame.Salt, data[:16]) {
		t.Errorf("Salt = %x, want %x", frame.Salt, data[:16])
	}
	if !bytes.Equal(frame.IV, data[16:32]) {
		t.Errorf("IV = %x, want %x", frame.IV, data[16:32])
	}
	if !bytes.Equal(frame.Ciphertext, data[32:]) {
		t.Errorf("Ciphertext = %x, want %x", frame.Ciphertext, data[32:])
	}
	if frame.Size() != 48 {
		t.Errorf("Size() = %d, want 48", frame.Size())
	}
	if !bytes.Equal(frame.Bytes(), data) {
		t.Error("Bytes() should reproduce the input")
	}

	// parsed frame must not alias the input
	data[0] = 0xFF
	if frame.Salt[0] == 0xFF {
		t.Error("ParseFrame result aliases input")
	}
}

func TestParseFrame_Truncated(t *testing.T) {
	for _, n := range []int{0, 1, 16, 31} {
		_, err := ParseFrame(make([]byte, n))
		if !errors.Is(err, ErrTruncatedFrame) {
			t.Errorf("ParseFrame(%d bytes) error = %v, want ErrTruncatedFrame", n, err)
		}
		if err != ErrTruncatedFrame {
			t.Errorf("ParseFrame(%d bytes) error = %v, want the bare sentinel", n, err)
		}
		if IsCorruptionError(err) {
			t.Errorf("ParseFrame(%d bytes) should not wrap in CorruptionError", n)
		}
	}
}

func TestParseFrame_HeaderOnly(t *testing.T) {
	// exactly 32 bytes parses; the empty ciphertext fails later at decrypt
	frame, err := ParseFrame(make([]byte, FrameHeaderSize))
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if len(frame.Ciphertext) != 0 {
		t.Errorf("Ciphertext length = %d, want 0", len(frame.Ciphertext))
	}
}

func TestFrame_WriteToReadFrom(t *testing.T) {
	salt := bytes.Repeat([]byte{1}, SaltSize)
	iv := bytes.Repeat([]byte{2}, IVSize)
	ct := bytes.Repeat([]byte{3}, 32)

	var buf bytes.Buffer
	n, err := NewFrame(salt, iv, ct).WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if n != 64 {
		t.Errorf("WriteTo() wrote %d bytes, want 64", n)
	}

	var got Frame
	if _, err := got.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	if !bytes.Equal(got.Salt, salt) || !bytes.Equal(got.IV, iv) || !bytes.Equal(got.Ciphertext, ct) {
		t.Error("ReadFrom() did not reproduce the frame")
	}

	var short Frame
	if _, err := short.ReadFrom(bytes.NewReader(make([]byte, 10))); !errors.Is(err, ErrTruncatedFrame) {
		t.Errorf("ReadFrom(short) error = %v, want ErrTruncatedFrame", err)
	}
}

func TestFrame_Validate(t *testing.T) {
	good := NewFrame(make([]byte, SaltSize), make([]byte, IVSize), nil)
	if err := good.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	if err := NewFrame(make([]byte, 8), make([]byte, IVSize), nil).Validate(); err == nil {
		t.Error("expected error for short salt")
	}
	if err := NewFrame(make([]byte, SaltSize), make([]byte, 8), nil).Validate(); !errors.Is(err, ErrInvalidIV) {
		t.Errorf("short iv error = %v, want ErrInvalidIV", err)
	}
}

func TestFrameName(t *testing.T) {
	if got := FrameName("report"); got != "report.enc" {
		t.Errorf("FrameName() = %q, want report.enc", got)
	}

	tests := []struct {
		name   string
		wantID string
		wantOK bool
	}{
		{"report.enc", "report", true},
		{"a.b.enc", "a.b", true},
		{".enc", "", false},
		{"meta.json", "", false},
		{"report.enc.tmp", "", false},
	}

	for _, tt := range tests {
		id, ok := IdentifierFromFrameName(tt.name)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("IdentifierFromFrameName(%q) = %q, %v; want %q, %v", tt.name, id, ok, tt.wantID, tt.wantOK)
		}
	}
}
