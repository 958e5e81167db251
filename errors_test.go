package filevault

import (
	"errors"
	"testing"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ValidationError
		wantMsg string
	}{
		{
			name: "with field",
			err: &ValidationError{
				Field:   "identifier",
				Value:   "",
				Message: "identifier cannot be empty",
			},
			wantMsg: "validation error: identifier: identifier cannot be empty",
		},
		{
			name: "without field",
			err: &ValidationError{
				Message: "invalid configuration",
			},
			wantMsg: "validation error: invalid configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}

	err := NewInvalidRequest("password", nil, "password is required")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Error("NewInvalidRequest should match ErrInvalidRequest")
	}
	if !IsValidationError(err) || !IsInvalidRequest(err) {
		t.Error("NewInvalidRequest should be a ValidationError")
	}
	if IsInvalidRequest(NewValidationError("kdf", 9, "bad")) {
		t.Error("a config validation error is not an invalid request")
	}
}

func TestEncryptionError(t *testing.T) {
	baseErr := errors.New("crypto/aes: invalid key size 7")

	tests := []struct {
		name    string
		err     *EncryptionError
		wantMsg string
	}{
		{
			name: "with identifier",
			err: &EncryptionError{
				Operation:  "encrypt",
				Identifier: "report",
				Message:    "key derivation failed",
				Err:        baseErr,
			},
			wantMsg: "encrypt error: report: key derivation failed",
		},
		{
			name: "minimal",
			err: &EncryptionError{
				Operation: "decrypt",
				Message:   "invalid ciphertext",
			},
			wantMsg: "decrypt error: invalid ciphertext",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("EncryptionError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}

	if err := NewEncryptionError("encrypt", "x", baseErr); !errors.Is(err, baseErr) {
		t.Error("EncryptionError should unwrap to its cause")
	}
}

func TestIOError(t *testing.T) {
	baseErr := errors.New("disk full")

	tests := []struct {
		name    string
		err     *IOError
		wantMsg string
	}{
		{
			name: "with path",
			err: &IOError{
				Operation: "write",
				Path:      "/vault/report.enc",
				Message:   "disk full",
			},
			wantMsg: "io error: write /vault/report.enc: disk full",
		},
		{
			name: "operation only",
			err: &IOError{
				Operation: "flush",
				Message:   "failed to flush",
			},
			wantMsg: "io error: flush: failed to flush",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("IOError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}

	err := NewIOError("rename", "/vault/meta.json", baseErr)
	if !errors.Is(err, ErrPersistence) {
		t.Error("NewIOError should match ErrPersistence")
	}
	if !errors.Is(err, baseErr) {
		t.Error("NewIOError should match its cause")
	}
	if !IsIOError(err) {
		t.Error("IsIOError should be true")
	}
}

func TestCorruptionError(t *testing.T) {
	tests := []struct {
		name    string
		err     *CorruptionError
		wantMsg string
	}{
		{
			name: "with identifier",
			err: &CorruptionError{
				Identifier: "report",
				Message:    "frame shorter than salt and iv",
			},
			wantMsg: "corruption error: report: frame shorter than salt and iv",
		},
		{
			name: "generic",
			err: &CorruptionError{
				Message: "bad metadata",
			},
			wantMsg: "corruption error: bad metadata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("CorruptionError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}

	if err := NewCorruptionError("report", ErrTruncatedFrame); !errors.Is(err, ErrTruncatedFrame) {
		t.Error("CorruptionError should unwrap to ErrTruncatedFrame")
	}
}

func TestAuthenticationError(t *testing.T) {
	err := NewAuthenticationError("report")

	if got := err.Error(); got != "authentication error: report: wrong password or file corrupted" {
		t.Errorf("AuthenticationError.Error() = %q", got)
	}
	if !errors.Is(err, ErrWrongPasswordOrCorrupted) {
		t.Error("AuthenticationError should match ErrWrongPasswordOrCorrupted")
	}
	if !IsAuthenticationError(err) {
		t.Error("IsAuthenticationError should be true")
	}

	anon := &AuthenticationError{Err: ErrWrongPasswordOrCorrupted}
	if got := anon.Error(); got != "authentication error: wrong password or file corrupted" {
		t.Errorf("AuthenticationError.Error() = %q", got)
	}
}

func TestNotFound(t *testing.T) {
	err := notFound("missing")
	if !IsNotFound(err) {
		t.Error("notFound should match ErrNotFound")
	}
	if got := err.Error(); got != "missing: entry not found" {
		t.Errorf("notFound().Error() = %q", got)
	}
}

func TestErrorHelpers_Negative(t *testing.T) {
	plain := errors.New("plain")

	checks := map[string]func(error) bool{
		"IsValidationError":     IsValidationError,
		"IsInvalidRequest":      IsInvalidRequest,
		"IsNotFound":            IsNotFound,
		"IsEncryptionError":     IsEncryptionError,
		"IsIOError":             IsIOError,
		"IsCorruptionError":     IsCorruptionError,
		"IsAuthenticationError": IsAuthenticationError,
	}
	for name, check := range checks {
		if check(plain) {
			t.Errorf("%s(plain error) = true", name)
		}
		if check(nil) {
			t.Errorf("%s(nil) = true", name)
		}
	}
}
