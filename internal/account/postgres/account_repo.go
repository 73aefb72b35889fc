// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

// Package postgres implements the account repository over PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/zhisi-edu/zhisi/internal/account"
)

// DB is the subset of pgxpool.Pool the repository needs. Satisfied by
// *pgxpool.Pool and by pgxmock pools in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AccountRepository implements account.Repository using PostgreSQL.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, phone, secret_digest, role, name, school, region, grade, is_setup, created_at`

// Create stores a new account and returns the store-assigned id.
func (r *AccountRepository) Create(ctx context.Context, acct *account.Account) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO accounts (phone, secret_digest, role, name, school, region, grade, is_setup, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		acct.Phone,
		acct.SecretDigest,
		string(acct.Role),
		acct.Name,
		acct.School,
		acct.Region,
		acct.Grade,
		acct.SetupComplete,
		acct.CreatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, oops.Code("ACCOUNT_DUPLICATE_PHONE").
				With("phone", acct.Phone).
				Wrap(account.ErrDuplicatePhone)
		}
		return 0, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("phone", acct.Phone).
			Wrap(err)
	}
	return id, nil
}

// GetByID retrieves an account by id.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id)

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id).
			Wrap(err)
	}
	return acct, nil
}

// GetByPhone retrieves an account by its login phone.
func (r *AccountRepository) GetByPhone(ctx context.Context, phone string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE phone = $1
	`, phone)

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("phone", phone).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_PHONE_FAILED").
			With("operation", "get account by phone").
			With("phone", phone).
			Wrap(err)
	}
	return acct, nil
}

// GetByCredentials retrieves the account matching both phone and digest
// exactly. A mismatch on either field looks identical to the caller.
func (r *AccountRepository) GetByCredentials(ctx context.Context, phone, digest string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE phone = $1 AND secret_digest = $2
	`, phone, digest)

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// No phone in the error context: the repository does not record
		// whether the phone or the digest failed to match.
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_CREDENTIALS_FAILED").
			With("operation", "get account by credentials").
			Wrap(err)
	}
	return acct, nil
}

// UpdateProfile saves the self-service profile fields. Setup completion
// is part of the same write: saving a profile is what completes setup.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id int64, upd account.ProfileUpdate) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET name = $2, school = $3, region = $4, grade = $5, is_setup = TRUE
		WHERE id = $1
	`, id, upd.Name, upd.School, upd.Region, upd.Grade)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_PROFILE_FAILED").
			With("operation", "update profile").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// UpdateAdminFields saves the administrator-editable fields, including
// the login phone.
func (r *AccountRepository) UpdateAdminFields(ctx context.Context, id int64, upd account.AdminUpdate) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET name = $2, school = $3, region = $4, grade = $5, phone = $6
		WHERE id = $1
	`, id, upd.Name, upd.School, upd.Region, upd.Grade, upd.Phone)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ACCOUNT_DUPLICATE_PHONE").
				With("phone", upd.Phone).
				Wrap(account.ErrDuplicatePhone)
		}
		return oops.Code("ACCOUNT_UPDATE_ADMIN_FIELDS_FAILED").
			With("operation", "update admin fields").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// SetPassword replaces the stored credential digest.
func (r *AccountRepository) SetPassword(ctx context.Context, id int64, digest string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET secret_digest = $2
		WHERE id = $1
	`, id, digest)
	if err != nil {
		return oops.Code("ACCOUNT_SET_PASSWORD_FAILED").
			With("operation", "set password").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// Delete removes an account. The role check and the removal run in one
// transaction with the row locked, so no concurrent read can observe a
// half-deleted administrator.
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "begin transaction").
			With("id", id).
			Wrap(err)
	}
	defer func() {
		_ = tx.Rollback(ctx) //nolint:errcheck // no-op after commit
	}()

	var role string
	err = tx.QueryRow(ctx, `
		SELECT role FROM accounts WHERE id = $1 FOR UPDATE
	`, id).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "lock account row").
			With("id", id).
			Wrap(err)
	}

	if account.Role(role) == account.RoleAdmin {
		return oops.Code("ACCOUNT_DELETE_FORBIDDEN").
			With("id", id).
			Wrapf(account.ErrForbidden, "cannot delete administrator")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "delete account").
			With("id", id).
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "commit").
			With("id", id).
			Wrap(err)
	}
	return nil
}

// ListAll returns every account with the digest column never selected.
func (r *AccountRepository) ListAll(ctx context.Context) ([]account.Sanitized, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, phone, role, name, school, region, grade, is_setup, created_at
		FROM accounts
		ORDER BY id
	`)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "list accounts").
			Wrap(err)
	}
	defer rows.Close()

	accts := []account.Sanitized{}
	for rows.Next() {
		var (
			a    account.Sanitized
			role string
		)
		if err := rows.Scan(&a.ID, &a.Phone, &role, &a.Name, &a.School, &a.Region, &a.Grade, &a.SetupComplete, &a.CreatedAt); err != nil {
			return nil, oops.Code("ACCOUNT_LIST_FAILED").
				With("operation", "scan account row").
				Wrap(err)
		}
		a.Role = account.Role(role)
		accts = append(accts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "iterate account rows").
			Wrap(err)
	}
	return accts, nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		a    account.Account
		role string
	)
	err := row.Scan(
		&a.ID,
		&a.Phone,
		&a.SecretDigest,
		&role,
		&a.Name,
		&a.School,
		&a.Region,
		&a.Grade,
		&a.SetupComplete,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}
	a.Role = account.Role(role)
	return &a, nil
}

// isUniqueViolation reports whether err is a unique constraint
// violation from PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Compile-time interface check.
var _ account.Repository = (*AccountRepository)(nil)
