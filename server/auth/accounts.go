package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/cyp0633/caldora/server/storage"
	"github.com/google/uuid"
)

// Accounts registers users, logs them in and authenticates requests against
// the user table of the store.
type Accounts struct {
	store  storage.Storage
	tokens *Tokens
	logger *slog.Logger
}

var _ Authenticator = (*Accounts)(nil)

// Option represents a configuration option for Accounts
type Option func(*Accounts)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *Accounts) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAccounts creates an Accounts backed by store.
func NewAccounts(store storage.Storage, tokens *Tokens, opts ...Option) *Accounts {
	a := &Accounts{
		store:  store,
		tokens: tokens,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *storage.User
}

// Register creates a user with a bcrypt password hash.
func (a *Accounts) Register(ctx context.Context, username, email, password string) (*storage.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.ContainsAny(username, ":/") {
		return nil, storage.ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errors.Join(storage.ErrInvalidInput, err)
	}
	if len(password) < 8 {
		return nil, errors.Join(storage.ErrInvalidInput, errors.New("password must be at least 8 characters"))
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &storage.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, &Error{Type: ErrUserExists, Message: "username already taken", Err: err}
		}
		return nil, err
	}
	a.logger.Info("user registered", "user_id", user.ID, "username", username)
	return user, nil
}

// Login checks a password and issues a token.
func (a *Accounts) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := a.checkPassword(ctx, username, password)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := a.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate accepts either a token issued to the named user or the
// user's password.
func (a *Accounts) Authenticate(ctx context.Context, creds Credentials) (*Principal, error) {
	if subject, err := a.tokens.Verify(creds.Password); err == nil {
		user, err := a.lookup(ctx, creds.Username)
		if err != nil {
			return nil, err
		}
		if user.ID != subject {
			a.logger.Warn("token subject does not match username", "username", creds.Username)
			return nil, &Error{Type: ErrInvalidCredentials, Message: "token was not issued to this user"}
		}
		return &Principal{ID: user.ID, Username: user.Username}, nil
	}

	user, err := a.checkPassword(ctx, creds.Username, creds.Password)
	if err != nil {
		return nil, err
	}
	return &Principal{ID: user.ID, Username: user.Username}, nil
}

// AuthenticateToken validates a bearer token and loads its user.
func (a *Accounts) AuthenticateToken(ctx context.Context, token string) (*Principal, error) {
	subject, err := a.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := a.store.GetUser(ctx, subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &Error{Type: ErrInvalidToken, Message: "token subject no longer exists", Err: err}
		}
		return nil, err
	}
	return &Principal{ID: user.ID, Username: user.Username}, nil
}

// User returns the account with the given id. A missing account is reported
// as storage.ErrNotFound.
func (a *Accounts) User(ctx context.Context, id string) (*storage.User, error) {
	return a.store.GetUser(ctx, id)
}

func (a *Accounts) checkPassword(ctx context.Context, username, password string) (*storage.User, error) {
	user, err := a.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		a.logger.Warn("authentication failed", "username", username)
		return nil, &Error{Type: ErrInvalidCredentials, Message: "invalid username or password"}
	}
	return user, nil
}

func (a *Accounts) lookup(ctx context.Context, username string) (*storage.User, error) {
	user, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &Error{Type: ErrInvalidCredentials, Message: "invalid username or password", Err: err}
		}
		return nil, err
	}
	return user, nil
}
