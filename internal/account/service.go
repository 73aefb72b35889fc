// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

package account

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

// LookupHasher is implemented by hashers whose digests are usable as
// lookup keys. The seeded hasher qualifies; salted schemes do not.
type LookupHasher interface {
	Hasher

	// LookupDigest returns the digest the store holds for this secret.
	LookupDigest(secret string) (string, error)
}

// LookupDigest returns the deterministic digest for a secret.
func (h *SeededHasher) LookupDigest(secret string) (string, error) {
	return h.Hash(secret)
}

// Service provides registration, login, and self-service profile
// operations.
type Service struct {
	accounts Repository
	hasher   Hasher
}

// NewService creates a new Service.
func NewService(accounts Repository, hasher Hasher) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("hasher is required")
	}
	return &Service{accounts: accounts, hasher: hasher}, nil
}

// Register creates a new account and returns its id.
// Fails with ErrInvalidInput on bad input and ErrDuplicatePhone when the
// phone is already registered.
func (s *Service) Register(ctx context.Context, phone, secret string, role Role) (int64, error) {
	if err := ValidateRegistration(phone, secret, role); err != nil {
		return 0, err
	}

	digest, err := s.hasher.Hash(secret)
	if err != nil {
		return 0, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "hash secret").
			Wrap(err)
	}

	acct := &Account{
		Phone:        phone,
		SecretDigest: digest,
		Role:         role,
		Name:         role.DefaultName(),
		CreatedAt:    time.Now().UTC(),
	}

	id, err := s.accounts.Create(ctx, acct)
	if err != nil {
		if errors.Is(err, ErrDuplicatePhone) {
			return 0, err
		}
		return 0, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "create account").
			With("phone", phone).
			Wrap(err)
	}
	return id, nil
}

// Login verifies a phone/secret pair and returns the sanitized account.
// Unknown phone and wrong secret both fail with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, phone, secret string) (Sanitized, error) {
	if lh, ok := s.hasher.(LookupHasher); ok {
		return s.loginByDigest(ctx, lh, phone, secret)
	}
	return s.loginByVerify(ctx, phone, secret)
}

// loginByDigest performs the single combined phone+digest lookup used
// with the deterministic hasher. The store never signals which of the
// two fields mismatched.
func (s *Service) loginByDigest(ctx context.Context, lh LookupHasher, phone, secret string) (Sanitized, error) {
	digest, err := lh.LookupDigest(secret)
	if err != nil {
		return Sanitized{}, oops.Code("ACCOUNT_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	acct, err := s.accounts.GetByCredentials(ctx, phone, digest)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Sanitized{}, oops.Code("ACCOUNT_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
		}
		return Sanitized{}, oops.Code("ACCOUNT_LOGIN_FAILED").
			With("operation", "get account by credentials").
			Wrap(err)
	}
	return acct.Sanitize(), nil
}

// loginByVerify looks up by phone and verifies against the stored
// digest, for salted hashers.
func (s *Service) loginByVerify(ctx context.Context, phone, secret string) (Sanitized, error) {
	acct, err := s.accounts.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Sanitized{}, oops.Code("ACCOUNT_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
		}
		return Sanitized{}, oops.Code("ACCOUNT_LOGIN_FAILED").
			With("operation", "get account by phone").
			Wrap(err)
	}

	ok, err := s.hasher.Verify(secret, acct.SecretDigest)
	if err != nil || !ok {
		return Sanitized{}, oops.Code("ACCOUNT_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}
	return acct.Sanitize(), nil
}

// UpdateProfile saves the self-service profile fields and marks the
// account's one-time setup as complete.
func (s *Service) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) error {
	if err := s.accounts.UpdateProfile(ctx, id, upd); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return oops.Code("ACCOUNT_UPDATE_PROFILE_FAILED").
			With("operation", "update profile").
			With("id", id).
			Wrap(err)
	}
	return nil
}

// GetAccount returns the sanitized account for an id. Used by the HTTP
// layer's admin gate to resolve a caller's role.
func (s *Service) GetAccount(ctx context.Context, id int64) (Sanitized, error) {
	acct, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Sanitized{}, err
		}
		return Sanitized{}, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by id").
			With("id", id).
			Wrap(err)
	}
	return acct.Sanitize(), nil
}
