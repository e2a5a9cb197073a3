package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/iam"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/validation"
)

// ErrInvalidID is returned when a path parameter is not a positive integer id
var ErrInvalidID = errors.New("id must be a positive integer")

// errorResponse is the body of every non-login error response
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps IAM sentinel errors to HTTP status codes. Anything
// unrecognised is logged and reported as a 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *validation.RequestError
	switch {
	case errors.As(err, &reqErr):
		writeJSONError(w, http.StatusBadRequest, reqErr.Error())
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, iam.ErrInvalidFilter),
		errors.Is(err, iam.ErrPasswordTooLong):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, iam.ErrUserNotFound), errors.Is(err, iam.ErrRoleNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, iam.ErrEmailTaken),
		errors.Is(err, iam.ErrUsernameTaken),
		errors.Is(err, iam.ErrRoleExists),
		errors.Is(err, iam.ErrProtectedRole):
		writeJSONError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("%s %s failed: %v", r.Method, r.URL.Path, err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathID parses a positive int64 chi URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
