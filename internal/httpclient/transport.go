package httpclient

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// BasicAuthTransport implements http.RoundTripper and adds Basic Auth
// authentication to outgoing requests. The password may be an access token
// issued by the server.
type BasicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewBasicAuthTransport creates a new BasicAuthTransport with the given
// credentials and optional underlying transport. If transport is nil,
// http.DefaultTransport will be used.
func NewBasicAuthTransport(username, password string, transport http.RoundTripper, logger *slog.Logger) *BasicAuthTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BasicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: transport,
		Logger:    logger,
	}
}

// RoundTrip implements the http.RoundTripper interface. It adds Basic Auth
// credentials to a clone of the request and delegates to the underlying
// transport.
func (t *BasicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Username == "" {
		return nil, errors.New("basic auth username cannot be empty")
	}
	if t.Password == "" {
		return nil, errors.New("basic auth password cannot be empty")
	}
	if t.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	out := req.Clone(req.Context())
	out.SetBasicAuth(t.Username, t.Password)
	t.Logger.Debug("outgoing request",
		"method", req.Method,
		"url", req.URL.String(),
		"user", t.Username,
		"depth", req.Header.Get("Depth"),
		"if_match", req.Header.Get("If-Match"),
		"if_none_match", req.Header.Get("If-None-Match"))
	return t.Transport.RoundTrip(out)
}

// BearerTransport adds a bearer token to outgoing requests.
type BearerTransport struct {
	Token     string
	Transport http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Token == "" {
		return nil, errors.New("bearer token cannot be empty")
	}
	transport := t.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+t.Token)
	return transport.RoundTrip(out)
}
