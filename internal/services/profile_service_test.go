package services

import (
	"context"
	"testing"

	"tesoreria/internal/authz"
	"tesoreria/internal/core"
	"tesoreria/internal/ledger"
)

type fakeProfileStore struct {
	profiles map[string]core.Profile
}

var _ ledger.ProfileStore = (*fakeProfileStore)(nil)

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]core.Profile)}
}

func (f *fakeProfileStore) GetProfile(_ context.Context, userID string) (core.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return core.Profile{}, core.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfileStore) UpsertProfile(_ context.Context, p core.Profile) error {
	f.profiles[p.UserID] = p
	return nil
}

func TestProfileSync(t *testing.T) {
	store := newFakeProfileStore()
	svc := NewProfileService(store)
	caller := authz.Caller{UserID: "u1", Role: core.RoleEditor}

	p, err := svc.Sync(context.Background(), caller, "ana@iglesia.local", "Ana")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if p.ID == "" {
		t.Error("sync did not assign an id")
	}
	if p.Email != "ana@iglesia.local" || p.Username != "Ana" || p.Role != core.RoleEditor {
		t.Fatalf("unexpected profile: %+v", p)
	}

	// A later sync with blank fields keeps the mirrored values and the id.
	p2, err := svc.Sync(context.Background(), caller, "", "")
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if p2.ID != p.ID {
		t.Errorf("id changed across syncs: %q vs %q", p2.ID, p.ID)
	}
	if p2.Email != "ana@iglesia.local" || p2.Username != "Ana" {
		t.Fatalf("blank headers erased fields: %+v", p2)
	}

	// A role change in the identity layer propagates.
	p3, err := svc.Sync(context.Background(), authz.Caller{UserID: "u1", Role: core.RoleAdmin}, "", "")
	if err != nil {
		t.Fatalf("third sync: %v", err)
	}
	if p3.Role != core.RoleAdmin {
		t.Errorf("role not updated: %q", p3.Role)
	}
}

func TestProfileDisplayLabel(t *testing.T) {
	store := newFakeProfileStore()
	svc := NewProfileService(store)
	caller := authz.Caller{UserID: "u1", Role: core.RoleEditor}

	if got := svc.DisplayLabel(context.Background(), caller, "fallback"); got != "fallback" {
		t.Errorf("unknown user label = %q, want fallback", got)
	}

	store.profiles["u1"] = core.Profile{UserID: "u1", Email: "ana@iglesia.local"}
	if got := svc.DisplayLabel(context.Background(), caller, "fallback"); got != "ana@iglesia.local" {
		t.Errorf("email label = %q", got)
	}

	store.profiles["u1"] = core.Profile{UserID: "u1", Email: "ana@iglesia.local", Username: "Ana"}
	if got := svc.DisplayLabel(context.Background(), caller, "fallback"); got != "Ana" {
		t.Errorf("username label = %q", got)
	}
}
