// Package services orchestrates the ledger use cases: scoped reads,
// validated writes, aggregation and report generation. Handlers stay thin;
// every rule lives here or in core.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tesoreria/internal/amqp"
	"tesoreria/internal/authz"
	"tesoreria/internal/core"
	"tesoreria/internal/ledger"
)

// ErrForbidden is returned when the caller's role does not permit the
// attempted operation.
var ErrForbidden = errors.New("operation not permitted for this role")

// LedgerService orchestrates transaction and account operations across the
// store and the sync queue.
type LedgerService struct {
	store      ledger.Store
	amqpClient *amqp.Client
}

func NewLedgerService(store ledger.Store, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{store: store, amqpClient: amqpClient}
}

// ListTransactions returns the caller's visible rows, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, caller authz.Caller, filter ledger.FilterSpec) ([]core.Transaction, error) {
	preds, err := filter.Predicates()
	if err != nil {
		return nil, fmt.Errorf("build filter: %w", err)
	}
	return s.store.SelectTransactions(ctx, authz.For(caller), preds, ledger.Descending)
}

// GetTransaction returns one row by id within the caller's scope.
func (s *LedgerService) GetTransaction(ctx context.Context, caller authz.Caller, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, authz.For(caller), id)
}

// CreateTransaction validates and stores a new ledger entry. An admin may
// record the entry on behalf of another user by setting tx.UserID; everyone
// else writes to their own ledger.
func (s *LedgerService) CreateTransaction(ctx context.Context, caller authz.Caller, tx core.Transaction) (core.Transaction, error) {
	if caller.Role == core.RoleLector {
		return core.Transaction{}, ErrForbidden
	}
	if tx.UserID == "" {
		tx.UserID = caller.UserID
	}
	if tx.UserID != caller.UserID && !caller.Role.IsAdmin() {
		return core.Transaction{}, ErrForbidden
	}

	tx.ID = uuid.NewString()
	tx.CreatedAt = time.Now().UTC()
	tx.Normalize()
	if err := tx.Validate(core.Today()); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkAccount(ctx, tx); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.InsertTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publishReportSync(ctx, tx.UserID, yearOf(tx.Date))
	return tx, nil
}

// UpdateTransaction replaces an existing row. The row's owner and creation
// time are preserved from the stored record.
func (s *LedgerService) UpdateTransaction(ctx context.Context, caller authz.Caller, tx core.Transaction) (core.Transaction, error) {
	if caller.Role == core.RoleLector {
		return core.Transaction{}, ErrForbidden
	}
	scope := authz.For(caller)

	existing, err := s.store.GetTransaction(ctx, scope, tx.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.UserID = existing.UserID
	tx.CreatedAt = existing.CreatedAt

	tx.Normalize()
	if err := tx.Validate(core.Today()); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkAccount(ctx, tx); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.UpdateTransaction(ctx, scope, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.publishReportSync(ctx, tx.UserID, yearOf(tx.Date))
	return tx, nil
}

// DeleteTransaction removes a row within the caller's scope.
func (s *LedgerService) DeleteTransaction(ctx context.Context, caller authz.Caller, id string) error {
	if caller.Role == core.RoleLector {
		return ErrForbidden
	}
	scope := authz.For(caller)

	existing, err := s.store.GetTransaction(ctx, scope, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, scope, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.publishReportSync(ctx, existing.UserID, yearOf(existing.Date))
	return nil
}

// Dashboard aggregates the caller's visible rows under the given filter.
func (s *LedgerService) Dashboard(ctx context.Context, caller authz.Caller, filter ledger.FilterSpec) (core.Aggregates, error) {
	preds, err := filter.Predicates()
	if err != nil {
		return core.Aggregates{}, fmt.Errorf("build filter: %w", err)
	}
	rows, err := s.store.SelectTransactions(ctx, authz.For(caller), preds, ledger.Descending)
	if err != nil {
		return core.Aggregates{}, err
	}
	return core.Aggregate(rows)
}

// ListAccounts returns the accounts visible to the caller.
func (s *LedgerService) ListAccounts(ctx context.Context, caller authz.Caller) ([]core.Account, error) {
	return s.store.SelectAccounts(ctx, authz.For(caller))
}

// CreateAccount registers a new account bucket for the caller, or for
// another owner when the caller is an admin.
func (s *LedgerService) CreateAccount(ctx context.Context, caller authz.Caller, account core.Account) (core.Account, error) {
	if caller.Role == core.RoleLector {
		return core.Account{}, ErrForbidden
	}
	if account.OwnerUserID == "" {
		account.OwnerUserID = caller.UserID
	}
	if account.OwnerUserID != caller.UserID && !caller.Role.IsAdmin() {
		return core.Account{}, ErrForbidden
	}

	account.Name = strings.TrimSpace(account.Name)
	if account.Name == "" {
		return core.Account{}, core.ErrMissingAccount
	}
	if !account.Type.Valid() {
		return core.Account{}, core.ErrUnknownType
	}

	account.ID = uuid.NewString()
	account.CreatedAt = time.Now().UTC()
	if err := s.store.InsertAccount(ctx, account); err != nil {
		return core.Account{}, fmt.Errorf("save account: %w", err)
	}
	return account, nil
}

// LookupPayer returns the nombres last recorded for the given cedula in the
// caller's visible Ingreso rows, or "" when the cedula is unknown.
func (s *LedgerService) LookupPayer(ctx context.Context, caller authz.Caller, cedula string) (string, error) {
	cedula = strings.TrimSpace(cedula)
	if cedula == "" {
		return "", nil
	}
	return s.store.LatestNombres(ctx, authz.For(caller), cedula)
}

// checkAccount rejects writes against accounts that do not exist in the
// owner's ledger or whose type does not match the transaction type.
func (s *LedgerService) checkAccount(ctx context.Context, tx core.Transaction) error {
	accounts, err := s.store.SelectAccounts(ctx, authz.OwnedBy(tx.UserID))
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	for _, a := range accounts {
		if a.Name != tx.Account {
			continue
		}
		if a.Type != tx.Type {
			return core.ErrAccountTypeMismatch
		}
		return nil
	}
	return core.ErrUnknownAccount
}

// publishReportSync is best-effort: a queue outage must not fail the write.
func (s *LedgerService) publishReportSync(ctx context.Context, userID, year string) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishReportSync(ctx, userID, year); err != nil {
		slog.ErrorContext(ctx, "Failed to publish report sync message",
			"user_id", userID, "year", year, "error", err)
	}
}

func yearOf(d core.Date) string {
	return d.ISO()[:4]
}
