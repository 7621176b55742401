package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tesoreria/internal/authz"
	"tesoreria/internal/core"
	"tesoreria/internal/ledger"
)

// ProfileService mirrors the identity observed on requests into the local
// profiles table. The identity layer stays authoritative; the mirror only
// feeds display names on dashboards and generated reports.
type ProfileService struct {
	store ledger.ProfileStore
}

func NewProfileService(store ledger.ProfileStore) *ProfileService {
	return &ProfileService{store: store}
}

// Sync records the identity seen on the current request and returns the
// stored profile. Blank header values never erase fields already mirrored.
func (s *ProfileService) Sync(ctx context.Context, caller authz.Caller, email, username string) (core.Profile, error) {
	p, err := s.store.GetProfile(ctx, caller.UserID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		p = core.Profile{ID: uuid.NewString(), UserID: caller.UserID}
	case err != nil:
		return core.Profile{}, fmt.Errorf("sync profile: %w", err)
	}

	p.Role = caller.Role
	if email != "" {
		p.Email = email
	}
	if username != "" {
		p.Username = username
	}

	if err := s.store.UpsertProfile(ctx, p); err != nil {
		return core.Profile{}, fmt.Errorf("sync profile: %w", err)
	}
	return p, nil
}

// DisplayLabel resolves the label printed on report headers for the caller:
// the mirrored username, then the mirrored email, then the fallback.
func (s *ProfileService) DisplayLabel(ctx context.Context, caller authz.Caller, fallback string) string {
	p, err := s.store.GetProfile(ctx, caller.UserID)
	if err != nil {
		return fallback
	}
	if p.Username != "" {
		return p.Username
	}
	if p.Email != "" {
		return p.Email
	}
	return fallback
}
