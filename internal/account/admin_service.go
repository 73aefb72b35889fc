// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

package account

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// DefaultResetSecret is the plaintext every administrative password
// reset sets. It is a known constant, not randomly generated; the reset
// response tells the administrator what it is.
const DefaultResetSecret = "12345678"

// AdminService provides the administrative account-lifecycle
// operations. It does not verify that the caller holds the
// administrator role; that gate belongs to the transport layer. It does
// guarantee the target of a delete is never the administrator.
type AdminService struct {
	accounts Repository
	hasher   Hasher
}

// NewAdminService creates a new AdminService.
func NewAdminService(accounts Repository, hasher Hasher) (*AdminService, error) {
	if accounts == nil {
		return nil, oops.Code("ADMIN_SERVICE_INVALID").Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("ADMIN_SERVICE_INVALID").Errorf("hasher is required")
	}
	return &AdminService{accounts: accounts, hasher: hasher}, nil
}

// ListAccounts returns every account, digests excluded.
func (s *AdminService) ListAccounts(ctx context.Context) ([]Sanitized, error) {
	accts, err := s.accounts.ListAll(ctx)
	if err != nil {
		return nil, oops.Code("ADMIN_LIST_FAILED").
			With("operation", "list accounts").
			Wrap(err)
	}
	return accts, nil
}

// EditAccount saves the administrator-editable fields of an account.
func (s *AdminService) EditAccount(ctx context.Context, id int64, upd AdminUpdate) error {
	if err := s.accounts.UpdateAdminFields(ctx, id, upd); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicatePhone) {
			return err
		}
		return oops.Code("ADMIN_EDIT_FAILED").
			With("operation", "update admin fields").
			With("id", id).
			Wrap(err)
	}
	return nil
}

// ResetPassword sets the account's digest to the hash of
// DefaultResetSecret and returns the plaintext default so the caller
// can relay it.
func (s *AdminService) ResetPassword(ctx context.Context, id int64) (string, error) {
	digest, err := s.hasher.Hash(DefaultResetSecret)
	if err != nil {
		return "", oops.Code("ADMIN_RESET_FAILED").
			With("operation", "hash default secret").
			Wrap(err)
	}

	if err := s.accounts.SetPassword(ctx, id, digest); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		return "", oops.Code("ADMIN_RESET_FAILED").
			With("operation", "set password").
			With("id", id).
			Wrap(err)
	}
	return DefaultResetSecret, nil
}

// DeleteAccount removes an account. Deleting the administrator fails
// with ErrForbidden and performs no mutation.
func (s *AdminService) DeleteAccount(ctx context.Context, id int64) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
			return err
		}
		return oops.Code("ADMIN_DELETE_FAILED").
			With("operation", "delete account").
			With("id", id).
			Wrap(err)
	}
	return nil
}
