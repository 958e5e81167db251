package filevault

import (
	"errors"
	"fmt"
)

// Error types represent different categories of errors

// ValidationError represents a configuration or request validation error
type ValidationError struct {
	Field   string // The field or parameter that failed validation
	Value   any    // The invalid value (never a password)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// EncryptionError represents a failure inside the cipher itself
type EncryptionError struct {
	Operation  string // "encrypt" or "decrypt"
	Identifier string // Entry identifier, if applicable
	Message    string // Human-readable error message
	Err        error  // Underlying error
}

func (e *EncryptionError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("%s error: %s: %s", e.Operation, e.Identifier, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Operation, e.Message)
}

func (e *EncryptionError) Unwrap() error {
	return e.Err
}

// IOError represents a storage failure while writing or reading frames or metadata
type IOError struct {
	Operation string // "write", "read", "flush", "rename", etc.
	Path      string // File path
	Message   string // Human-readable error message
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("io error: %s %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("io error: %s: %s", e.Operation, e.Message)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// CorruptionError represents stored data that cannot be parsed
type CorruptionError struct {
	Identifier string // Entry identifier
	Message    string // Human-readable error message
	Err        error  // Underlying error
}

func (e *CorruptionError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("corruption error: %s: %s", e.Identifier, e.Message)
	}
	return fmt.Sprintf("corruption error: %s", e.Message)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// AuthenticationError is returned when a stored entry cannot be decrypted with the supplied
// password. It deliberately does not say whether the password was wrong or the data corrupted.
type AuthenticationError struct {
	Identifier string // Entry identifier
	Err        error  // Always ErrWrongPasswordOrCorrupted
}

func (e *AuthenticationError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("authentication error: %s: %s", e.Identifier, e.Err)
	}
	return fmt.Sprintf("authentication error: %s", e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Sentinel errors
var (
	ErrInvalidRequest           = errors.New("invalid request")
	ErrNotFound                 = errors.New("entry not found")
	ErrTruncatedFrame           = errors.New("frame shorter than salt and iv")
	ErrInvalidPadding           = errors.New("invalid padding")
	ErrWrongPasswordOrCorrupted = errors.New("wrong password or file corrupted")
	ErrPersistence              = errors.New("persistence failure")
	ErrInvalidKey               = errors.New("invalid encryption key")
	ErrInvalidIV                = errors.New("invalid initialization vector")
	ErrNilConfig                = errors.New("config cannot be nil")
	ErrNilFileSystem            = errors.New("base filesystem cannot be nil")
	ErrClosed                   = errors.New("vault is closed")
)

// Helper functions for creating structured errors

// NewValidationError creates a new validation error
func NewValidationError(field string, value any, message string) error {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewInvalidRequest creates a validation error for a caller mistake on Store or Retrieve
func NewInvalidRequest(field string, value any, message string) error {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Err:     ErrInvalidRequest,
	}
}

// NewEncryptionError creates a new encryption error
func NewEncryptionError(operation, identifier string, err error) error {
	return &EncryptionError{
		Operation:  operation,
		Identifier: identifier,
		Message:    err.Error(),
		Err:        err,
	}
}

// NewIOError creates a new I/O error. The result always matches ErrPersistence.
func NewIOError(operation, path string, err error) error {
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   err.Error(),
		Err:       errors.Join(ErrPersistence, err),
	}
}

// NewCorruptionError creates a new corruption error
func NewCorruptionError(identifier string, err error) error {
	return &CorruptionError{
		Identifier: identifier,
		Message:    err.Error(),
		Err:        err,
	}
}

// NewAuthenticationError creates the error returned for a failed decrypt
func NewAuthenticationError(identifier string) error {
	return &AuthenticationError{
		Identifier: identifier,
		Err:        ErrWrongPasswordOrCorrupted,
	}
}

func notFound(identifier string) error {
	return fmt.Errorf("%s: %w", identifier, ErrNotFound)
}

// Error checking helpers

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvalidRequest checks if an error was caused by a malformed Store or Retrieve call
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsNotFound checks if an error reports a missing entry
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsEncryptionError checks if an error is an encryption error
func IsEncryptionError(err error) bool {
	var ee *EncryptionError
	return errors.As(err, &ee)
}

// IsIOError checks if an error is an I/O error
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}

// IsCorruptionError checks if an error is a corruption error
func IsCorruptionError(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}

// IsAuthenticationError checks if an error is an authentication error
func IsAuthenticationError(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}
