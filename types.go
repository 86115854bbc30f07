package auth

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	// GetTokenExpiration returns the token lifetime in milliseconds
	GetTokenExpiration() int64
	GetTokenHeader() string
	GetAuthScheme() string
	GetInvalidTokenPolicy() string
	GetPasswordCost() int
	GetDefaultRoles() []string
	GetRuleTable() (RuleTable, error)
}

// IdentityRecord is the stored identity the login exchange verifies against
type IdentityRecord struct {
	SubjectID    int64
	Username     string
	PasswordHash string
	Roles        []string
}

// IdentityStore ensure we have a store to retrieve identity records.
// FindByUsername must return ErrIdentityNotFound when the user does not exist.
type IdentityStore interface {
	FindByUsername(ctx context.Context, username string) (*IdentityRecord, error)
}

// IdentityWriter persists new identity records. Implementations return
// ErrUsernameTaken for duplicated usernames.
type IdentityWriter interface {
	CreateIdentity(ctx context.Context, record *IdentityRecord) (*IdentityRecord, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

// DefaultLogger returns the printf logger used when none is configured
func DefaultLogger() Logger {
	return defLogger{}
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
