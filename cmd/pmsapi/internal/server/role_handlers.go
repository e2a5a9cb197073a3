package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/db/models"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/iam"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/validation"
)

// CreateRoleRequest is the body of POST /api/roles
type CreateRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateRoleRequest is the body of PUT /api/roles/{id}. Absent fields are unchanged.
type UpdateRoleRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// RoleResponse represents role data in API responses
type RoleResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func toRoleResponse(role *models.Role) RoleResponse {
	return RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		CreatedAt:   role.CreatedAt,
	}
}

// HandleListRoles handles GET /api/roles and GET /api/users/roles
func HandleListRoles(svc iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roles, err := svc.ListRoles(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		out := make([]RoleResponse, 0, len(roles))
		for i := range roles {
			out = append(out, toRoleResponse(&roles[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// HandleGetRole handles GET /api/roles/{id}
func HandleGetRole(svc iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		role, err := svc.GetRole(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toRoleResponse(role))
	}
}

// HandleGetRoleByName handles GET /api/roles/name/{name}
func HandleGetRoleByName(svc iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, err := svc.GetRoleByName(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toRoleResponse(role))
	}
}

// HandleCreateRole handles POST /api/roles
func HandleCreateRole(svc iamAdminService, validator *validation.RequestValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRoleRequest
		if err := readValidated(r, validator, validation.SchemaCreateRole, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}
		role, err := svc.CreateRole(r.Context(), req.Name, req.Description)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toRoleResponse(role))
	}
}

// HandleUpdateRole handles PUT /api/roles/{id}
func HandleUpdateRole(svc iamAdminService, validator *validation.RequestValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		var req UpdateRoleRequest
		if err := readValidated(r, validator, validation.SchemaUpdateRole, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}
		role, err := svc.UpdateRole(r.Context(), id, iam.UpdateRoleInput{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toRoleResponse(role))
	}
}

// HandleDeleteRole handles DELETE /api/roles/{id}
func HandleDeleteRole(svc iamAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if err := svc.DeleteRole(r.Context(), id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
