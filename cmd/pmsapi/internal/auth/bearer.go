package auth

import (
	"net/http"
	"strings"
)

const bearerScheme = "bearer"

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively. Other schemes, a missing header, or an
// empty token all report false, meaning no credential was presented.
func BearerToken(h http.Header) (string, bool) {
	value := strings.TrimSpace(h.Get("Authorization"))
	if value == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(value, " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
