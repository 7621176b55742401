package ledger

import (
	"context"

	"tesoreria/internal/authz"
	"tesoreria/internal/core"
)

// Store is the queryable transaction store. Every read takes the caller's
// authorization scope as a mandatory parameter; implementations must conjoin
// it before any filter predicate. Mutations are unconditional within scope:
// last write wins, no optimistic-concurrency token.
type Store interface {
	// SelectTransactions returns the rows admitted by scope and predicates,
	// ordered by date in the given direction.
	SelectTransactions(ctx context.Context, scope authz.Scope, preds []Predicate, dir Direction) ([]core.Transaction, error)

	// GetTransaction returns a single row by id, or core.ErrNotFound when it
	// does not exist or falls outside the scope.
	GetTransaction(ctx context.Context, scope authz.Scope, id string) (core.Transaction, error)

	InsertTransaction(ctx context.Context, tx core.Transaction) error

	// UpdateTransaction replaces the whole record.
	UpdateTransaction(ctx context.Context, scope authz.Scope, tx core.Transaction) error

	DeleteTransaction(ctx context.Context, scope authz.Scope, id string) error

	// SelectAccounts returns the account set admitted by scope, ordered by
	// type then name.
	SelectAccounts(ctx context.Context, scope authz.Scope) ([]core.Account, error)

	InsertAccount(ctx context.Context, account core.Account) error

	// LatestNombres returns the nombres recorded on the most recent Ingreso
	// with the given cedula within scope, or "" when none exists.
	LatestNombres(ctx context.Context, scope authz.Scope, cedula string) (string, error)
}

// ProfileStore holds the local mirror of identity records. The fronting
// identity layer owns the data; the mirror exists so reports can show a
// display name without a network hop.
type ProfileStore interface {
	// GetProfile returns the mirrored record for a user id, or
	// core.ErrNotFound when the user has never been seen.
	GetProfile(ctx context.Context, userID string) (core.Profile, error)

	UpsertProfile(ctx context.Context, p core.Profile) error
}
