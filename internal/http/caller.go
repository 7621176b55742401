package http

import (
	"errors"
	"net/http"
	"strings"

	"tesoreria/internal/authz"
	"tesoreria/internal/core"
)

// Identity headers set by the fronting identity layer. The application never
// authenticates; a missing user id means the proxy is misconfigured.
const (
	headerUserID    = "X-User-Id"
	headerUserRole  = "X-User-Role"
	headerUserEmail = "X-User-Email"
	headerUserName  = "X-User-Name"
)

var errMissingIdentity = errors.New("missing identity headers")

// callerFrom builds the caller identity from the trusted request headers.
// An unknown or absent role degrades to lector, the most restricted role.
func callerFrom(r *http.Request) (authz.Caller, error) {
	userID := strings.TrimSpace(r.Header.Get(headerUserID))
	if userID == "" {
		return authz.Caller{}, errMissingIdentity
	}

	role := core.Role(strings.TrimSpace(r.Header.Get(headerUserRole)))
	switch role {
	case core.RoleAdmin, core.RoleEditor, core.RoleLector:
	default:
		role = core.RoleLector
	}

	return authz.Caller{UserID: userID, Role: role}, nil
}

// profileLabelFrom returns the display label for report headers: the email
// when present, the user id otherwise.
func profileLabelFrom(r *http.Request) string {
	if email := strings.TrimSpace(r.Header.Get(headerUserEmail)); email != "" {
		return email
	}
	return strings.TrimSpace(r.Header.Get(headerUserID))
}
