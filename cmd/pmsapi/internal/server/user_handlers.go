package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/iam"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/validation"
)

// CreateUserRequest is the body of POST /api/users
type CreateUserRequest struct {
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

// UpdateUserRequest is the body of PUT /api/users/{id}. Absent fields are unchanged.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Active   *bool   `json:"active"`
}

func toUserResponses(identities []iam.Identity) []UserResponse {
	out := make([]UserResponse, 0, len(identities))
	for i := range identities {
		out = append(out, toUserResponse(&identities[i]))
	}
	return out
}

// HandleListUsers handles GET /api/users with an optional go-bexpr ?filter=
func HandleListUsers(svc iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.ListUsers(r.Context(), r.URL.Query().Get("filter"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponses(users))
	}
}

// HandleGetUser handles GET /api/users/{id}
func HandleGetUser(svc iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		user, err := svc.GetUser(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

// HandleListUsersByRole handles GET /api/users/by-role/{roleName}
func HandleListUsersByRole(svc iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.ListUsersByRole(r.Context(), chi.URLParam(r, "roleName"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponses(users))
	}
}

// HandleCreateUser handles POST /api/users
func HandleCreateUser(svc iamAdminService, validator *validation.RequestValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		if err := readValidated(r, validator, validation.SchemaCreateUser, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}

		user, err := svc.CreateUser(r.Context(), iam.CreateUserInput{
			Name:     req.Name,
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
			Roles:    req.Roles,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toUserResponse(user))
	}
}

// HandleUpdateUser handles PUT /api/users/{id}
func HandleUpdateUser(svc iamAdminService, validator *validation.RequestValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		var req UpdateUserRequest
		if err := readValidated(r, validator, validation.SchemaUpdateUser, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}

		user, err := svc.UpdateUser(r.Context(), id, iam.UpdateUserInput{
			Name:     req.Name,
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
			Active:   req.Active,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

// HandleDeactivateUser handles DELETE /api/users/{id}. Accounts are disabled,
// never removed, so history referencing them stays intact.
func HandleDeactivateUser(svc iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if err := svc.DeactivateUser(r.Context(), id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleAssignRole handles POST /api/users/{userId}/roles/{roleId}
func HandleAssignRole(svc iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, roleID, err := userRoleIDs(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		user, err := svc.AssignRole(r.Context(), userID, roleID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

// HandleRemoveRole handles DELETE /api/users/{userId}/roles/{roleId}
func HandleRemoveRole(svc iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, roleID, err := userRoleIDs(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		user, err := svc.RemoveRole(r.Context(), userID, roleID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

func userRoleIDs(r *http.Request) (int64, int64, error) {
	userID, err := pathID(r, "userId")
	if err != nil {
		return 0, 0, err
	}
	roleID, err := pathID(r, "roleId")
	if err != nil {
		return 0, 0, err
	}
	return userID, roleID, nil
}
