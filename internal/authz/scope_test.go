package authz

import (
	"testing"

	"tesoreria/internal/core"
)

func TestScopeFor(t *testing.T) {
	tests := []struct {
		name     string
		caller   Caller
		ownerID  string
		admitted bool
	}{
		{
			name:     "admin sees own rows",
			caller:   Caller{UserID: "a1", Role: core.RoleAdmin},
			ownerID:  "a1",
			admitted: true,
		},
		{
			name:     "admin sees other owners",
			caller:   Caller{UserID: "a1", Role: core.RoleAdmin},
			ownerID:  "u2",
			admitted: true,
		},
		{
			name:     "editor sees own rows",
			caller:   Caller{UserID: "u1", Role: core.RoleEditor},
			ownerID:  "u1",
			admitted: true,
		},
		{
			name:     "editor does not see other owners",
			caller:   Caller{UserID: "u1", Role: core.RoleEditor},
			ownerID:  "u2",
			admitted: false,
		},
		{
			name:     "lector does not see other owners",
			caller:   Caller{UserID: "u1", Role: core.RoleLector},
			ownerID:  "u2",
			admitted: false,
		},
		{
			name:     "unknown role falls back to owned-by",
			caller:   Caller{UserID: "u1", Role: "superuser"},
			ownerID:  "u2",
			admitted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope := For(tt.caller)
			if got := scope.Admits(tt.ownerID); got != tt.admitted {
				t.Errorf("Admits(%q) = %v, want %v", tt.ownerID, got, tt.admitted)
			}
		})
	}
}

func TestScopeOwner(t *testing.T) {
	if _, restricted := Unrestricted().Owner(); restricted {
		t.Error("Unrestricted().Owner() should report no restriction")
	}
	owner, restricted := OwnedBy("u7").Owner()
	if !restricted || owner != "u7" {
		t.Errorf("OwnedBy(u7).Owner() = %q, %v; want u7, true", owner, restricted)
	}
}
