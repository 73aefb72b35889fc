// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhisi-edu/zhisi/internal/account"
)

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	hasher := account.NewSeededHasher("")

	t.Run("seeds on empty store", func(t *testing.T) {
		repo := newMemRepo()

		require.NoError(t, account.EnsureAdmin(ctx, repo, hasher))

		admin, err := repo.GetByPhone(ctx, account.AdminPhone)
		require.NoError(t, err)
		assert.Equal(t, account.RoleAdmin, admin.Role)
		assert.Equal(t, account.AdminName, admin.Name)
		assert.True(t, admin.SetupComplete)
		assert.NotEmpty(t, admin.SecretDigest)
	})

	t.Run("idempotent", func(t *testing.T) {
		repo := newMemRepo()

		require.NoError(t, account.EnsureAdmin(ctx, repo, hasher))
		first, err := repo.GetByPhone(ctx, account.AdminPhone)
		require.NoError(t, err)

		require.NoError(t, account.EnsureAdmin(ctx, repo, hasher))
		second, err := repo.GetByPhone(ctx, account.AdminPhone)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)

		accts, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, accts, 1)
	})

	t.Run("losing a seeding race is success", func(t *testing.T) {
		repo := &racingRepo{memRepo: newMemRepo()}

		require.NoError(t, account.EnsureAdmin(ctx, repo, hasher))
		assert.True(t, repo.raced)
	})

	t.Run("storage failure surfaces", func(t *testing.T) {
		repo := newMemRepo()
		repo.forcedErr = errors.New("connection reset")

		require.Error(t, account.EnsureAdmin(ctx, repo, hasher))
	})
}

// racingRepo reports the admin as absent, then fails the create with a
// duplicate, simulating another process seeding in between.
type racingRepo struct {
	*memRepo
	raced bool
}

func (r *racingRepo) GetByPhone(_ context.Context, _ string) (*account.Account, error) {
	return nil, account.ErrNotFound
}

func (r *racingRepo) Create(_ context.Context, _ *account.Account) (int64, error) {
	r.raced = true
	return 0, account.ErrDuplicatePhone
}
