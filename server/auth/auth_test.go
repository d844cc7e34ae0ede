package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cyp0633/caldora/server/storage"
	"github.com/cyp0633/caldora/server/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newAccounts(t *testing.T) (*Accounts, *storage.User) {
	t.Helper()
	a := NewAccounts(memory.New(), NewTokens(testSecret, time.Hour))
	user, err := a.Register(context.Background(), "alice", "alice@example.com", "correct horse")
	require.NoError(t, err)
	return a, user
}

func basic(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	token, expiresAt, err := tokens.Issue("user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	subject, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)

	other := NewTokens("a-different-secret-of-enough-length", time.Hour)
	_, err = other.Verify(token)
	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, ErrInvalidToken, authErr.Type)
}

func TestTokensExpire(t *testing.T) {
	tokens := NewTokens(testSecret, time.Minute)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }
	token, _, err := tokens.Issue("user-1")
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tokens.Verify(token)
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	a, user := newAccounts(t)
	assert.NotEqual(t, "correct horse", user.PasswordHash)
	assert.True(t, CheckPassword(user.PasswordHash, "correct horse"))

	_, err := a.Register(context.Background(), "alice", "other@example.com", "another password")
	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, ErrUserExists, authErr.Type)

	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"empty username", " ", "bob@example.com", "long enough"},
		{"colon in username", "bo:b", "bob@example.com", "long enough"},
		{"bad email", "bob", "not-an-email", "long enough"},
		{"short password", "bob", "bob@example.com", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Register(context.Background(), tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, storage.ErrInvalidInput)
		})
	}
}

func TestLoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	a, user := newAccounts(t)

	_, err := a.Login(ctx, "alice", "wrong")
	assert.Error(t, err)

	session, err := a.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)

	p, err := a.AuthenticateToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.ID)

	// Basic with the token as password.
	p, err = a.Authenticate(ctx, Credentials{Username: "alice", Password: session.Token})
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)

	// Basic with the account password.
	_, err = a.Authenticate(ctx, Credentials{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)

	// A token issued to alice does not authenticate bob.
	_, err = a.Register(ctx, "bob", "bob@example.com", "bobs password")
	require.NoError(t, err)
	_, err = a.Authenticate(ctx, Credentials{Username: "bob", Password: session.Token})
	assert.Error(t, err)

	_, err = a.Authenticate(ctx, Credentials{Username: "nobody", Password: "x"})
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	a, user := newAccounts(t)
	session, err := a.Login(context.Background(), "alice", "correct horse")
	require.NoError(t, err)

	var failures []error
	handler := Middleware(a, SchemeBasic|SchemeBearer, func(w http.ResponseWriter, r *http.Request, err error) {
		failures = append(failures, err)
		Challenge(w, "test")
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := GetPrincipalFromContext(r.Context())
		require.NotNil(t, p)
		w.Write([]byte(p.ID))
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"bearer", "Bearer " + session.Token, http.StatusOK},
		{"basic token", basic("alice", session.Token), http.StatusOK},
		{"basic password", basic("alice", "correct horse"), http.StatusOK},
		{"basic wrong password", basic("alice", "nope"), http.StatusUnauthorized},
		{"bad base64", "Basic !!!", http.StatusUnauthorized},
		{"unknown scheme", "Digest abc", http.StatusUnauthorized},
		{"garbage bearer", "Bearer abc", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, user.ID, rec.Body.String())
			} else {
				assert.Len(t, rec.Header().Values("WWW-Authenticate"), 2)
			}
		})
	}
	assert.NotEmpty(t, failures)
}

func TestBearerOnlyRejectsBasic(t *testing.T) {
	a, _ := newAccounts(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", basic("alice", "correct horse"))

	_, err := FromRequest(req, a, SchemeBearer)
	var authErr *Error
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, ErrInvalidCredentials, authErr.Type)
}
