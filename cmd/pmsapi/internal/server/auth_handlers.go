package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/iam"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/validation"
)

const (
	maxRequestBodyBytes = 64 << 10

	loginSucceededMessage = "Login successful"
	loginFailedMessage    = "Invalid email or password"
	logoutMessage         = "Logged out successfully"
)

// LoginRequest represents credentials for POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the response from POST /api/auth/login.
// Token and the identity fields are omitted on failure.
type LoginResponse struct {
	Token    string   `json:"token,omitempty"`
	Email    string   `json:"email,omitempty"`
	Name     string   `json:"name,omitempty"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Message  string   `json:"message"`
}

// MessageResponse is a bare status message
type MessageResponse struct {
	Message string `json:"message"`
}

// UserResponse represents user data in API responses
type UserResponse struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Active   bool     `json:"active"`
	Roles    []string `json:"roles"`
}

// PermissionsResponse represents the response from GET /api/auth/permissions
type PermissionsResponse struct {
	Roles  []string          `json:"roles"`
	Routes []auth.RouteGrant `json:"routes"`
}

func toUserResponse(identity *iam.Identity) UserResponse {
	roles := identity.RoleNames
	if roles == nil {
		roles = []string{}
	}
	return UserResponse{
		ID:       identity.ID,
		Name:     identity.Name,
		Username: identity.Username,
		Email:    identity.Email,
		Active:   identity.Active,
		Roles:    roles,
	}
}

// readValidated reads the request body, checks it against the named schema and
// decodes it into dst.
func readValidated(r *http.Request, validator *validation.RequestValidator, schema string, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		return &validation.RequestError{Path: "$", Message: "unreadable request body"}
	}
	if err := validator.Validate(schema, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &validation.RequestError{Path: "$", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

// HandleLogin exchanges email and password for a bearer token.
//
// Every failure answers 400 with the same generic message so callers cannot
// tell an unknown email from a wrong password or a disabled account.
func HandleLogin(verifier loginService, validator *validation.RequestValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := readValidated(r, validator, validation.SchemaLogin, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, LoginResponse{Message: loginFailedMessage})
			return
		}

		result, err := verifier.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if !errors.Is(err, iam.ErrInvalidCredentials) && !errors.Is(err, iam.ErrAccountInactive) {
				log.Printf("login failed: %v", err)
			}
			writeJSON(w, http.StatusBadRequest, LoginResponse{Message: loginFailedMessage})
			return
		}

		roles := result.Roles
		if roles == nil {
			roles = []string{}
		}
		writeJSON(w, http.StatusOK, LoginResponse{
			Token:    result.Token,
			Email:    result.Email,
			Name:     result.Name,
			Username: result.Username,
			Roles:    roles,
			Message:  loginSucceededMessage,
		})
	}
}

// HandleLogout acknowledges a logout. Tokens are stateless and stay valid
// until expiry; the client discards its copy.
func HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, MessageResponse{Message: logoutMessage})
	}
}

// HandleValidate reports whether the presented bearer token has a valid
// signature and has not expired. It does not consult the identity store.
func HandleValidate(codec *auth.TokenCodec, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header)
		if !ok {
			writeJSON(w, http.StatusOK, false)
			return
		}
		_, err := codec.Decode(token, now())
		writeJSON(w, http.StatusOK, err == nil)
	}
}

// HandleMe returns the authenticated user re-read by id, so a name or role
// change since the request started is reflected.
func HandleMe(resolver iam.IdentityResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.GetUserFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		identity, err := resolver.FindByID(r.Context(), principal.UserID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if identity == nil {
			writeJSONError(w, http.StatusNotFound, iam.ErrUserNotFound.Error())
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(identity))
	}
}

// HandlePermissions lists the caller's roles and every route they may call.
func HandlePermissions(policies *auth.PolicyRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.GetUserFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		grants, err := policies.GrantsFor(append([]string{auth.AnonymousSubject}, principal.Roles...))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if grants == nil {
			grants = []auth.RouteGrant{}
		}
		roles := principal.Roles
		if roles == nil {
			roles = []string{}
		}
		writeJSON(w, http.StatusOK, PermissionsResponse{Roles: roles, Routes: grants})
	}
}
