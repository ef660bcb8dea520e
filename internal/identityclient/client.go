package identityclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrIdentityNotFound is returned when the identity service knows
	// nothing about the requested identity, or refuses to show it.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrCredentialsRejected is returned when the identity service
	// received the credential pair fine and turned it down.
	ErrCredentialsRejected = errors.New("identity not found or incorrect credentials")
)

// TransportError wraps failures to reach the identity service at all:
// connection errors, timeouts and 5xx responses. Callers that retry
// must retry these and only these.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("identity service unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// PublicIdentity is the projection the identity service exposes to
// other services. It never carries credential material.
type PublicIdentity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Client consumes the identity service HTTP contract. Every request is
// bounded by the configured timeout; the upstream applies none of its
// own, so an unbounded lookup would hang the calling request.
type Client struct {
	logger     zerolog.Logger
	baseURL    string
	httpClient *http.Client
}

func NewClient(logger zerolog.Logger, baseURL string, requestTimeout time.Duration) *Client {
	return &Client{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// ValidateCredentials asks the identity service to check a credential
// pair and returns the minimal identity projection on success.
//
// The consumed contract carries the password as a plain query
// parameter. That is the identity service's contract, not a choice this
// client can fix; the link must run over TLS or an internal network.
func (c *Client) ValidateCredentials(ctx context.Context, email, password string) (*PublicIdentity, error) {
	query := url.Values{}
	query.Set("email", email)
	query.Set("password", password)
	endpoint := c.baseURL + "/identities/by-email?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Msg("credential validation request failed")
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return decodeIdentity(resp)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		c.logger.Debug().
			Int("status", resp.StatusCode).
			Str("email", email).
			Msg("credentials rejected")
		return nil, ErrCredentialsRejected
	default:
		return nil, &TransportError{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
}

// FetchByID fetches the public projection of one identity. The caller's
// own bearer token is propagated so the identity service enforces its
// authorization against the original caller, not against this service.
func (c *Client) FetchByID(ctx context.Context, identityID, token string) (*PublicIdentity, error) {
	endpoint := c.baseURL + "/identities/" + url.PathEscape(identityID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("identity_id", identityID).
			Msg("identity lookup request failed")
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return decodeIdentity(resp)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		c.logger.Debug().
			Int("status", resp.StatusCode).
			Str("identity_id", identityID).
			Msg("identity not resolvable")
		return nil, ErrIdentityNotFound
	default:
		return nil, &TransportError{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
}

func decodeIdentity(resp *http.Response) (*PublicIdentity, error) {
	identity := new(PublicIdentity)
	err := json.NewDecoder(resp.Body).Decode(identity)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return identity, nil
}
