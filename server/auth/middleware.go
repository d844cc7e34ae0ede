package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
)

type contextKey string

const (
	// PrincipalContextKey is the context key for the authenticated principal
	PrincipalContextKey contextKey = "principal"
)

// GetPrincipalFromContext retrieves the authenticated principal from the context
func GetPrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(PrincipalContextKey).(*Principal); ok {
		return p
	}
	return nil
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// Scheme selects the Authorization schemes a middleware accepts.
type Scheme int

const (
	SchemeBasic Scheme = 1 << iota
	SchemeBearer
)

// FromRequest authenticates the Authorization header of r using the allowed
// schemes.
func FromRequest(r *http.Request, authenticator Authenticator, schemes Scheme) (*Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, &Error{Type: ErrUnauthorized, Message: "authentication required"}
	}

	switch {
	case schemes&SchemeBearer != 0 && hasScheme(header, "Bearer"):
		token := strings.TrimSpace(header[len("Bearer "):])
		return authenticator.AuthenticateToken(r.Context(), token)
	case schemes&SchemeBasic != 0 && hasScheme(header, "Basic"):
		creds, err := parseBasicAuth(header)
		if err != nil {
			return nil, err
		}
		return authenticator.Authenticate(r.Context(), creds)
	}
	return nil, &Error{Type: ErrInvalidCredentials, Message: "unsupported authorization scheme"}
}

// Middleware creates HTTP middleware that enforces authentication. Failures
// are handed to unauthorized, which writes the response.
func Middleware(authenticator Authenticator, schemes Scheme, unauthorized func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := FromRequest(r, authenticator, schemes)
			if err != nil {
				unauthorized(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// Challenge sets the WWW-Authenticate header advertising Basic and Bearer.
func Challenge(w http.ResponseWriter, realm string) {
	if realm == "" {
		realm = "caldora"
	}
	w.Header().Add("WWW-Authenticate", `Basic realm="`+realm+`"`)
	w.Header().Add("WWW-Authenticate", `Bearer realm="`+realm+`"`)
}

func hasScheme(header, scheme string) bool {
	return len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) && header[len(scheme)] == ' '
}

// parseBasicAuth parses an HTTP Basic Authentication string
func parseBasicAuth(auth string) (Credentials, error) {
	const prefix = "Basic "
	if !hasScheme(auth, "Basic") {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid authorization header format",
		}
	}

	encoded := strings.TrimSpace(auth[len(prefix):])
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid base64 encoding",
			Err:     err,
		}
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid credentials format",
		}
	}

	return Credentials{
		Username: parts[0],
		Password: parts[1],
	}, nil
}
