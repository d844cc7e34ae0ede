package auth

import (
	"context"
	"fmt"
)

// Principal represents an authenticated user. The zero Principal is the
// anonymous caller.
type Principal struct {
	ID       string
	Username string
}

// Anonymous returns the principal of a request without credentials.
func Anonymous() *Principal {
	return &Principal{}
}

// IsAnonymous reports whether p carries no identity.
func (p *Principal) IsAnonymous() bool {
	return p == nil || p.ID == ""
}

// Credentials represents Basic authentication credentials
type Credentials struct {
	Username string
	Password string
}

// ErrorType represents the type of authentication error
type ErrorType string

const (
	ErrInvalidCredentials ErrorType = "invalid_credentials"
	ErrUnauthorized       ErrorType = "unauthorized"
	ErrInvalidToken       ErrorType = "invalid_token"
	ErrUserExists         ErrorType = "user_exists"
)

// Error represents an authentication-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Authenticator resolves request credentials to a Principal.
type Authenticator interface {
	// Authenticate validates Basic credentials. The password may be either
	// the account password or a token issued to that account.
	Authenticate(ctx context.Context, creds Credentials) (*Principal, error)
	// AuthenticateToken validates a bearer token.
	AuthenticateToken(ctx context.Context, token string) (*Principal, error)
}
