// Package storage implements the ledger store on SQLite. Dates are stored
// as YYYY-MM-DD text so the inclusive range predicates of the query contract
// compare lexicographically, exactly like the filter layer assumes.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tesoreria/internal/authz"
	"tesoreria/internal/core"
	"tesoreria/internal/ledger"

	_ "modernc.org/sqlite"
)

// timeLayout is the storage rendering of creation timestamps.
const timeLayout = time.RFC3339

// columns whitelists the predicate fields of the query contract against
// their transaction columns.
var columns = map[string]string{
	ledger.FieldDate:        "date",
	ledger.FieldAccount:     "account",
	ledger.FieldDescription: "description",
	ledger.FieldCedula:      "cedula",
	ledger.FieldNombres:     "nombres",
}

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ledger.Store        = (*SQLiteRepository)(nil)
	_ ledger.ProfileStore = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const txColumns = "id, user_id, type, date, account, amount_cents, description, cedula, nombres, created_at"

// SelectTransactions implements ledger.Store. The authorization scope is
// conjoined ahead of every filter predicate.
func (r *SQLiteRepository) SelectTransactions(ctx context.Context, scope authz.Scope, preds []ledger.Predicate, dir ledger.Direction) ([]core.Transaction, error) {
	where, args, err := buildWhere(scope, "user_id", preds)
	if err != nil {
		return nil, err
	}

	order := "ASC"
	if dir == ledger.Descending {
		order = "DESC"
	}
	query := "SELECT " + txColumns + " FROM transactions" + where +
		" ORDER BY date " + order + ", created_at " + order

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, scope authz.Scope, id string) (core.Transaction, error) {
	query := "SELECT " + txColumns + " FROM transactions WHERE id = ?"
	args := []any{id}
	if owner, restricted := scope.Owner(); restricted {
		query += " AND user_id = ?"
		args = append(args, owner)
	}

	row := r.db.QueryRowContext(ctx, query, args...)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, type, date, account, amount_cents, description, cedula, nombres, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, string(tx.Type), tx.Date.ISO(), tx.Account,
		tx.Amount.Cents, tx.Description, tx.Cedula, tx.Nombres,
		tx.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// UpdateTransaction replaces the whole record; last write wins, there is no
// concurrency token.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, scope authz.Scope, tx core.Transaction) error {
	query := `UPDATE transactions
		 SET type = ?, date = ?, account = ?, amount_cents = ?, description = ?, cedula = ?, nombres = ?
		 WHERE id = ?`
	args := []any{
		string(tx.Type), tx.Date.ISO(), tx.Account, tx.Amount.Cents,
		tx.Description, tx.Cedula, tx.Nombres, tx.ID,
	}
	if owner, restricted := scope.Owner(); restricted {
		query += " AND user_id = ?"
		args = append(args, owner)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, scope authz.Scope, id string) error {
	query := "DELETE FROM transactions WHERE id = ?"
	args := []any{id}
	if owner, restricted := scope.Owner(); restricted {
		query += " AND user_id = ?"
		args = append(args, owner)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) SelectAccounts(ctx context.Context, scope authz.Scope) ([]core.Account, error) {
	query := "SELECT id, owner_user_id, type, name, created_at FROM accounts"
	var args []any
	if owner, restricted := scope.Owner(); restricted {
		query += " WHERE owner_user_id = ?"
		args = append(args, owner)
	}
	query += " ORDER BY type, name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var (
			account   core.Account
			txType    string
			createdAt string
		)
		if err := rows.Scan(&account.ID, &account.OwnerUserID, &txType, &account.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		account.Type = core.TxType(txType)
		account.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	return accounts, nil
}

func (r *SQLiteRepository) InsertAccount(ctx context.Context, account core.Account) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO accounts (id, owner_user_id, type, name, created_at) VALUES (?, ?, ?, ?, ?)",
		account.ID, account.OwnerUserID, string(account.Type), account.Name,
		account.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// LatestNombres returns the nombres on the most recent Ingreso carrying the
// cedula, scoped like every other read.
func (r *SQLiteRepository) LatestNombres(ctx context.Context, scope authz.Scope, cedula string) (string, error) {
	query := "SELECT nombres FROM transactions WHERE type = 'Ingreso' AND cedula = ?"
	args := []any{cedula}
	if owner, restricted := scope.Owner(); restricted {
		query += " AND user_id = ?"
		args = append(args, owner)
	}
	query += " ORDER BY date DESC, created_at DESC LIMIT 1"

	var nombres string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&nombres)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest nombres: %w", err)
	}
	return nombres, nil
}

// GetProfile looks up the profile for a user id.
func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	var p core.Profile
	var role string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, email, username, role FROM profiles WHERE user_id = ?",
		userID).Scan(&p.ID, &p.UserID, &p.Email, &p.Username, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, core.ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.Role = core.Role(role)
	return p, nil
}

// UpsertProfile mirrors an identity record from the external identity layer.
func (r *SQLiteRepository) UpsertProfile(ctx context.Context, p core.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, user_id, email, username, role, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET email = excluded.email, username = excluded.username, role = excluded.role`,
		p.ID, p.UserID, p.Email, p.Username, string(p.Role),
		time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx        core.Transaction
		txType    string
		date      string
		createdAt string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &txType, &date, &tx.Account,
		&tx.Amount.Cents, &tx.Description, &tx.Cedula, &tx.Nombres, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Type = core.TxType(txType)
	tx.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	tx.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return tx, nil
}

// buildWhere renders scope plus predicates as a WHERE clause. The scope
// restriction always comes first; predicate fields must be whitelisted.
func buildWhere(scope authz.Scope, ownerColumn string, preds []ledger.Predicate) (string, []any, error) {
	var clauses []string
	var args []any

	if owner, restricted := scope.Owner(); restricted {
		clauses = append(clauses, ownerColumn+" = ?")
		args = append(args, owner)
	}

	for _, pred := range preds {
		switch pred.Op {
		case ledger.OpEq, ledger.OpGte, ledger.OpLte:
			column, ok := columns[pred.Field]
			if !ok {
				return "", nil, fmt.Errorf("unknown predicate field %q", pred.Field)
			}
			op := "="
			switch pred.Op {
			case ledger.OpGte:
				op = ">="
			case ledger.OpLte:
				op = "<="
			}
			clauses = append(clauses, column+" "+op+" ?")
			args = append(args, pred.Value)
		case ledger.OpContainsAny:
			var ors []string
			pattern := "%" + strings.ToLower(pred.Value) + "%"
			for _, field := range pred.Fields {
				column, ok := columns[field]
				if !ok {
					return "", nil, fmt.Errorf("unknown predicate field %q", field)
				}
				ors = append(ors, "LOWER("+column+") LIKE ?")
				args = append(args, pattern)
			}
			clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
		default:
			return "", nil, fmt.Errorf("unknown predicate op %q", pred.Op)
		}
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
