package filevault

import (
	"errors"
	"strings"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "nil config",
			config:  nil,
			wantErr: true,
			errMsg:  "config cannot be nil",
		},
		{
			name:    "zero config",
			config:  &Config{},
			wantErr: false,
		},
		{
			name:    "default config",
			config:  DefaultConfig("/vault"),
			wantErr: false,
		},
		{
			name:    "unsupported kdf",
			config:  &Config{KDF: KDF(9)},
			wantErr: true,
			errMsg:  "unsupported key derivation function",
		},
		{
			name:    "negative iterations",
			config:  &Config{PBKDF2: PBKDF2Params{Iterations: -1}},
			wantErr: true,
			errMsg:  "iterations must be positive",
		},
		{
			name:    "aes-128 key size",
			config:  &Config{PBKDF2: PBKDF2Params{KeySize: 16}},
			wantErr: true,
			errMsg:  "32-byte key",
		},
		{
			name:    "unknown hash",
			config:  &Config{PBKDF2: PBKDF2Params{HashFunc: HashFunc(7)}},
			wantErr: true,
			errMsg:  "unsupported hash function",
		},
		{
			name:    "argon2id key size",
			config:  &Config{KDF: KDFArgon2id, Argon2id: Argon2idParams{KeySize: 24}},
			wantErr: true,
			errMsg:  "32-byte key",
		},
		{
			name:    "badger without path",
			config:  &Config{MetadataBackend: MetadataBadger},
			wantErr: true,
			errMsg:  "requires a database directory",
		},
		{
			name:    "unknown metadata backend",
			config:  &Config{MetadataBackend: MetadataBackendKind(5), MetadataPath: "/x"},
			wantErr: true,
			errMsg:  "unsupported metadata backend",
		},
		{
			name:    "negative workers",
			config:  &Config{Workers: -2},
			wantErr: true,
			errMsg:  "workers cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %q, want containing %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestConfig_ValidateDefaults(t *testing.T) {
	config := &Config{Dir: "/vault"}
	if err := config.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if config.MetadataPath != "/vault/meta.json" {
		t.Errorf("MetadataPath = %q, want /vault/meta.json", config.MetadataPath)
	}
	if config.PBKDF2.Iterations != DefaultIterations {
		t.Errorf("Iterations = %d, want %d", config.PBKDF2.Iterations, DefaultIterations)
	}
	if config.PBKDF2.HashFunc != SHA1 {
		t.Errorf("HashFunc = %v, want sha1", config.PBKDF2.HashFunc)
	}
	if config.PBKDF2.KeySize != KeySize {
		t.Errorf("KeySize = %d, want %d", config.PBKDF2.KeySize, KeySize)
	}

	empty := &Config{}
	empty.Validate()
	if empty.Dir != "/" || empty.MetadataPath != "/meta.json" {
		t.Errorf("empty config defaults: Dir=%q MetadataPath=%q", empty.Dir, empty.MetadataPath)
	}
}

func TestParseKDF(t *testing.T) {
	for in, want := range map[string]KDF{"": KDFPBKDF2, "pbkdf2": KDFPBKDF2, "argon2id": KDFArgon2id} {
		got, err := ParseKDF(in)
		if err != nil || got != want {
			t.Errorf("ParseKDF(%q) = %v, %v; want %v", in, got, err, want)
		}
		if in != "" && got.String() != in {
			t.Errorf("%v.String() = %q, want %q", got, got.String(), in)
		}
	}
	if _, err := ParseKDF("scrypt"); err == nil {
		t.Error("ParseKDF(scrypt) should fail")
	}
}

func TestParseHashFunc(t *testing.T) {
	for in, want := range map[string]HashFunc{"": SHA1, "sha1": SHA1, "sha256": SHA256, "sha512": SHA512} {
		got, err := ParseHashFunc(in)
		if err != nil || got != want {
			t.Errorf("ParseHashFunc(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseHashFunc("md5"); err == nil {
		t.Error("ParseHashFunc(md5) should fail")
	}
	if HashFunc(9).String() != "unknown" || HashFunc(9).New() != nil {
		t.Error("unknown hash should have no constructor")
	}
}

func TestValidateBuffer(t *testing.T) {
	if err := ValidateBuffer(nil, "buf", 0); err == nil {
		t.Error("nil buffer should fail")
	}
	if err := ValidateBuffer([]byte{1}, "buf", 2); err == nil {
		t.Error("short buffer should fail")
	}
	if err := ValidateBuffer([]byte{}, "buf", 0); err != nil {
		t.Errorf("empty buffer with no minimum: %v", err)
	}
	if err := ValidateBuffer([]byte{1, 2}, "buf", 2); err != nil {
		t.Errorf("exact size: %v", err)
	}
}

func TestValidateKeyAndIV(t *testing.T) {
	if err := ValidateKey(make([]byte, KeySize), KeySize); err != nil {
		t.Errorf("ValidateKey() error = %v", err)
	}
	if err := ValidateKey(make([]byte, 16), KeySize); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("ValidateKey(16 bytes) error = %v, want ErrInvalidKey", err)
	}
	if err := ValidateIV(make([]byte, IVSize)); err != nil {
		t.Errorf("ValidateIV() error = %v", err)
	}
	if err := ValidateIV(nil); !errors.Is(err, ErrInvalidIV) {
		t.Errorf("ValidateIV(nil) error = %v, want ErrInvalidIV", err)
	}
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"report", false},
		{"report.pdf", false},
		{"my file (1)", false},
		{strings.Repeat("a", maxIdentifierLen), false},
		{"", true},
		{".", true},
		{"..", true},
		{"a/b", true},
		{"/abs", true},
		{`a\b`, true},
		{"a\x00", true},
		{strings.Repeat("a", maxIdentifierLen+1), true},
	}

	for _, tt := range tests {
		err := ValidateIdentifier(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateIdentifier(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("ValidateIdentifier(%q) error should match ErrInvalidRequest", tt.id)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("x"); err != nil {
		t.Errorf("ValidatePassword() error = %v", err)
	}
	err := ValidatePassword("")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("ValidatePassword(\"\") error = %v, want ErrInvalidRequest", err)
	}
}
