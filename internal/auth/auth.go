package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMalformedCredentials is returned when the Authorization header
	// is missing or not of the form "Bearer <token>".
	ErrMalformedCredentials = errors.New("malformed credentials")
	// ErrInvalidToken is returned when the token fails signature or
	// expiry verification.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims is the claim set shared by the minter and the guard. The
// subject is the identity id.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Context is the authorized caller, threaded explicitly through every
// downstream call that needs it. Token keeps the raw compact token so
// outbound calls to the identity service can re-present the caller's
// own credentials instead of minting new ones.
type Context struct {
	Subject string
	Email   string
	Role    string
	Token   string
}

// Guard verifies bearer tokens against the shared signing key. It is a
// pure verification gate: no I/O, no state.
type Guard struct {
	issuer     string
	signingKey []byte
}

func NewGuard(issuer string, signingKey []byte) Guard {
	return Guard{
		issuer:     issuer,
		signingKey: signingKey,
	}
}

// Authorize validates the raw Authorization header and extracts the
// caller's identity from the token claims.
//
// It returns ErrMalformedCredentials if the header doesn't carry a
// bearer token at all, or ErrInvalidToken if the token doesn't verify.
func (g Guard) Authorize(rawHeader string) (*Context, error) {
	if rawHeader == "" {
		return nil, ErrMalformedCredentials
	}

	const bearerPrefix = "Bearer"
	parts := strings.SplitN(rawHeader, " ", 2)
	if len(parts) != 2 || parts[0] != bearerPrefix || parts[1] == "" {
		return nil, ErrMalformedCredentials
	}

	token := parts[1]
	claims, err := g.parseToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Context{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
		Token:   token,
	}, nil
}

func (g Guard) parseToken(token string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(
		token,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return g.signingKey, nil
		},
		jwt.WithIssuer(g.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token is expired: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := t.Claims.(*Claims)
	if !ok {
		return nil, errors.New("unexpected token claims")
	}
	return claims, nil
}

// Minter signs access tokens for authenticated identities.
type Minter struct {
	issuer     string
	signingKey []byte
	tokenTTL   time.Duration
}

func NewMinter(issuer string, signingKey []byte, tokenTTL time.Duration) Minter {
	return Minter{
		issuer:     issuer,
		signingKey: signingKey,
		tokenTTL:   tokenTTL,
	}
}

func (m Minter) Mint(identityID, email, role string) (string, time.Time, error) {
	tokenUUID, err := uuid.NewRandom()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token id: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(m.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenUUID.String(),
			Issuer:    m.issuer,
			Subject:   identityID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})

	signed, err := token.SignedString(m.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}
