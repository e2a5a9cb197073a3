package iam

import (
	"context"
	"net/http"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
)

// Authenticator validates credentials and returns a Principal with resolved roles.
//
// Return values:
//   - (principal, nil): Authentication successful
//   - (nil, nil): Credentials not present (anonymous request)
//   - (nil, error): Credentials present but rejected
//
// Callers never surface the error to the client; a rejected credential is
// equivalent to no credential and route policy decides the response.
type Authenticator interface {
	Authenticate(ctx context.Context, req AuthRequest) (*auth.Principal, error)
}

// AuthRequest wraps the HTTP request data authenticators inspect.
type AuthRequest struct {
	// Headers contains HTTP headers (including Authorization)
	Headers http.Header
}
