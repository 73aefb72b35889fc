// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// defaultAdminSecret is the initial password of the seeded
// administrator account. Deployments are expected to change it through
// the reset flow after first login.
const defaultAdminSecret = "zhisi040718"

// EnsureAdmin seeds the built-in administrator account if it does not
// exist. Idempotent: a concurrent or repeated run observes the existing
// account and returns nil. Runs at startup before the listener accepts
// traffic.
func EnsureAdmin(ctx context.Context, accounts Repository, hasher Hasher) error {
	_, err := accounts.GetByPhone(ctx, AdminPhone)
	if err == nil {
		slog.Debug("administrator account already seeded", "phone", AdminPhone)
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "get admin account").
			Wrap(err)
	}

	digest, err := hasher.Hash(defaultAdminSecret)
	if err != nil {
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "hash admin secret").
			Wrap(err)
	}

	acct := &Account{
		Phone:        AdminPhone,
		SecretDigest: digest,
		Role:         RoleAdmin,
		Name:         AdminName,
		// The administrator has no profile-setup step.
		SetupComplete: true,
		CreatedAt:     time.Now().UTC(),
	}

	id, err := accounts.Create(ctx, acct)
	if err != nil {
		// Lost a seeding race against another process; the account exists.
		if errors.Is(err, ErrDuplicatePhone) {
			slog.Info("administrator account seeded concurrently", "phone", AdminPhone)
			return nil
		}
		return oops.Code("BOOTSTRAP_FAILED").
			With("operation", "create admin account").
			Wrap(err)
	}

	slog.Info("administrator account seeded", "phone", AdminPhone, "id", id)
	return nil
}
