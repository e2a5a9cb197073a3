package iam

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/telemetry"
)

var (
	// ErrIdentityNotFound means the token subject no longer maps to an account.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrIdentityInactive means the account was disabled after the token was issued.
	ErrIdentityInactive = errors.New("identity inactive")
	// ErrSubjectMismatch means the account behind the email is not the one the token was issued to.
	ErrSubjectMismatch = errors.New("token subject does not match identity")
)

// BearerAuthenticator authenticates requests using HS256 bearer tokens.
//
//  1. Extract "Authorization: Bearer <token>", return (nil, nil) if absent
//  2. Decode and verify the token (signature, expiry, issuer)
//  3. Resolve the identity by the token subject
//  4. Reject absent or inactive identities
//  5. Build the Principal from the freshly resolved roles
//
// It holds no mutable state and performs exactly one resolver lookup per
// authenticated request.
type BearerAuthenticator struct {
	codec    *auth.TokenCodec
	resolver IdentityResolver
	metrics  *telemetry.AuthMetrics
	now      func() time.Time
}

// BearerOption customizes a BearerAuthenticator.
type BearerOption func(*BearerAuthenticator)

// WithBearerMetrics records token checks on the given instruments.
func WithBearerMetrics(m *telemetry.AuthMetrics) BearerOption {
	return func(a *BearerAuthenticator) { a.metrics = m }
}

// WithBearerClock overrides the clock used for expiry checks.
func WithBearerClock(now func() time.Time) BearerOption {
	return func(a *BearerAuthenticator) { a.now = now }
}

// NewBearerAuthenticator creates an authenticator verifying tokens with codec.
func NewBearerAuthenticator(codec *auth.TokenCodec, resolver IdentityResolver, opts ...BearerOption) *BearerAuthenticator {
	a := &BearerAuthenticator{
		codec:    codec,
		resolver: resolver,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate extracts and validates the bearer token.
func (a *BearerAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*auth.Principal, error) {
	token, ok := auth.BearerToken(req.Headers)
	if !ok {
		return nil, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "pmsapi/services/iam", "iam.AuthenticateBearer")
	defer span.End()

	started := time.Now()
	principal, err := a.authenticate(ctx, token)
	if a.metrics != nil {
		a.metrics.RecordAuth(ctx, "bearer", err == nil, started)
	}
	if err != nil {
		telemetry.AddEvent(span, "authentication.failed",
			attribute.String(telemetry.AttrAuthOutcome, err.Error()),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64(telemetry.AttrUserID, principal.UserID),
		attribute.String(telemetry.AttrUserRoles, strings.Join(principal.Roles, ",")),
	)
	telemetry.AddEvent(span, "authentication.succeeded")
	return principal, nil
}

func (a *BearerAuthenticator) authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	claim, err := a.codec.Decode(token, a.now())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	identity, err := a.resolver.FindByEmail(ctx, claim.Subject)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	if identity == nil {
		return nil, ErrIdentityNotFound
	}
	if identity.ID != claim.UserID {
		return nil, ErrSubjectMismatch
	}
	if !identity.Active {
		return nil, ErrIdentityInactive
	}

	return &auth.Principal{
		UserID:   identity.ID,
		Email:    claim.Subject,
		Username: identity.Username,
		Name:     identity.Name,
		Roles:    slices.Clone(identity.RoleNames),
		TokenID:  claim.TokenID,
	}, nil
}
