package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token-layer rejection reasons. Callers outside the codec should treat all three
// identically (the request proceeds unauthenticated); they exist for logging and tests.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("token signature mismatch")
	ErrTokenExpired   = errors.New("token expired")
)

// signingMethod is the only algorithm the codec issues or accepts.
var signingMethod = jwt.SigningMethodHS256

// TokenConfig is the immutable signing configuration handed to NewTokenCodec.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// Claim is the verified content of an access token.
type Claim struct {
	Subject   string // account email
	UserID    int64
	IssuedAt  time.Time
	ExpiresAt time.Time
	TokenID   string
}

// tokenClaims is the JWT payload: sub, uid, iat, exp, jti, iss.
type tokenClaims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 access tokens. It holds no mutable state
// and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewTokenCodec copies cfg so later changes to the caller's slice cannot alter
// the signing key.
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token signing secret is required")
	}
	if cfg.TTL < time.Second {
		return nil, fmt.Errorf("token ttl must be at least 1s, got %s", cfg.TTL)
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &TokenCodec{
		secret: secret,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
	}, nil
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Encode signs a token for the given account. Timestamps carry second precision,
// so IssuedAt is now truncated to the second and ExpiresAt is IssuedAt+TTL.
func (c *TokenCodec) Encode(email string, userID int64, now time.Time) (string, error) {
	if email == "" {
		return "", fmt.Errorf("encode token: subject email is required")
	}
	if userID <= 0 {
		return "", fmt.Errorf("encode token: invalid user id %d", userID)
	}

	issuedAt := now.UTC().Truncate(time.Second)
	jti, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("encode token: generate jti: %w", err)
	}

	claims := tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.ttl)),
			ID:        jti.String(),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return signed, nil
}

// Decode verifies the token signature and validity window relative to now.
// A token is valid strictly before its expiry. HMAC comparison is done with
// hmac.Equal inside jwt, so it does not short-circuit on the first differing byte.
func (c *TokenCodec) Decode(token string, now time.Time) (*Claim, error) {
	if token == "" {
		return nil, ErrMalformedToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	var claims tokenClaims
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}

	if claims.Subject == "" || claims.UserID <= 0 || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing identity claims", ErrMalformedToken)
	}

	return &Claim{
		Subject:   claims.Subject,
		UserID:    claims.UserID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		TokenID:   claims.ID,
	}, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}
