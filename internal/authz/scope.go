// Package authz derives the mandatory row-visibility restriction from a
// caller's role. Every store query takes a Scope as a required parameter, so
// a non-admin caller cannot broaden result scope through filter manipulation.
package authz

import "tesoreria/internal/core"

// Caller is the identity the external identity layer supplies with every
// call into the core. This core never authenticates, only scopes.
type Caller struct {
	UserID string
	Role   core.Role
}

// Scope is the visibility restriction conjoined with every query. The zero
// value is invalid; use Unrestricted or OwnedBy.
type Scope struct {
	all    bool
	userID string
}

// Unrestricted admits every row regardless of owner.
func Unrestricted() Scope {
	return Scope{all: true}
}

// OwnedBy restricts rows to those owned by the given user id.
func OwnedBy(userID string) Scope {
	return Scope{userID: userID}
}

// For derives the scope for a caller: admins see everything, every other
// role only its own rows.
func For(caller Caller) Scope {
	if caller.Role.IsAdmin() {
		return Unrestricted()
	}
	return OwnedBy(caller.UserID)
}

// Admits reports whether a row owned by ownerID is visible under the scope.
func (s Scope) Admits(ownerID string) bool {
	return s.all || s.userID == ownerID
}

// Owner returns the owning user id the scope is restricted to, and false
// when the scope is unrestricted.
func (s Scope) Owner() (string, bool) {
	if s.all {
		return "", false
	}
	return s.userID, true
}
