package iam

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/telemetry"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountInactive is returned when the password matched a disabled account.
	ErrAccountInactive = errors.New("user account is deactivated")
)

// LoginResult is a freshly issued token plus the summary returned to the client.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    int64
	Email     string
	Name      string
	Username  string
	Roles     []string
}

// CredentialVerifier checks an email and password against the stored bcrypt
// hash and issues an access token on success. It is safe for concurrent use.
type CredentialVerifier struct {
	source   CredentialSource
	codec    *auth.TokenCodec
	recorder LoginRecorder
	metrics  *telemetry.AuthMetrics
	now      func() time.Time
}

// VerifierOption customizes a CredentialVerifier.
type VerifierOption func(*CredentialVerifier)

// WithLoginRecorder records last-login timestamps after successful logins.
func WithLoginRecorder(r LoginRecorder) VerifierOption {
	return func(v *CredentialVerifier) { v.recorder = r }
}

// WithVerifierMetrics records login attempts on the given instruments.
func WithVerifierMetrics(m *telemetry.AuthMetrics) VerifierOption {
	return func(v *CredentialVerifier) { v.metrics = m }
}

// WithVerifierClock overrides the token issue time source.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *CredentialVerifier) { v.now = now }
}

// NewCredentialVerifier creates a verifier issuing tokens with codec.
func NewCredentialVerifier(source CredentialSource, codec *auth.TokenCodec, opts ...VerifierOption) *CredentialVerifier {
	v := &CredentialVerifier{
		source: source,
		codec:  codec,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Login verifies the credential and returns a signed token.
//
// Returns ErrInvalidCredentials for an unknown email or wrong password and
// ErrAccountInactive for a disabled account. Any other error comes from the
// credential store. The password is never logged or returned.
func (v *CredentialVerifier) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "pmsapi/services/iam", "iam.Login")
	defer span.End()

	started := time.Now()
	result, err := v.login(ctx, NormalizeEmail(email), password)
	if v.metrics != nil {
		v.metrics.RecordAuth(ctx, "password", err == nil, started)
	}

	switch {
	case err == nil:
		span.SetAttributes(attribute.Int64(telemetry.AttrUserID, result.UserID))
		telemetry.AddEvent(span, "login.succeeded")
	case errors.Is(err, ErrInvalidCredentials):
		telemetry.AddEvent(span, "login.failed", attribute.String(telemetry.AttrAuthOutcome, "invalid_credentials"))
	case errors.Is(err, ErrAccountInactive):
		telemetry.AddEvent(span, "login.failed", attribute.String(telemetry.AttrAuthOutcome, "account_inactive"))
	default:
		telemetry.RecordError(span, err)
	}
	return result, err
}

func (v *CredentialVerifier) login(ctx context.Context, email, password string) (*LoginResult, error) {
	identity, hash, err := v.source.CredentialFor(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup credential: %w", err)
	}

	if identity == nil {
		compareDummy(password)
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !identity.Active {
		return nil, ErrAccountInactive
	}

	now := v.now()
	token, err := v.codec.Encode(identity.Email, identity.ID, now)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if v.recorder != nil {
		if err := v.recorder.TouchLastLogin(ctx, identity.ID, now); err != nil {
			log.Printf("iam: failed to record last login for user %d: %v", identity.ID, err)
		}
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: now.UTC().Truncate(time.Second).Add(v.codec.TTL()),
		UserID:    identity.ID,
		Email:     identity.Email,
		Name:      identity.Name,
		Username:  identity.Username,
		Roles:     slices.Clone(identity.RoleNames),
	}, nil
}
