// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

package account_test

import (
	"context"
	"sync"

	"github.com/zhisi-edu/zhisi/internal/account"
)

// memRepo is an in-memory account.Repository for service tests. It
// mirrors the store contract: sequential never-reused ids, phone
// uniqueness, setup completion folded into profile saves, and the
// admin-protected delete.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	accts  map[int64]*account.Account

	// forcedErr, when set, is returned by every operation. Lets tests
	// simulate storage failures.
	forcedErr error
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, accts: make(map[int64]*account.Account)}
}

func (r *memRepo) Create(_ context.Context, acct *account.Account) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forcedErr != nil {
		return 0, r.forcedErr
	}
	for _, a := range r.accts {
		if a.Phone == acct.Phone {
			return 0, account.ErrDuplicatePhone
		}
	}
	stored := *acct
	stored.ID = r.nextID
	r.nextID++
	r.accts[stored.ID] = &stored
	return stored.ID, nil
}

func (r *memRepo) GetByID(_ context.Context, id int64) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forcedErr != nil {
		return nil, r.forcedErr
	}
	a, ok := r.accts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) GetByPhone(_ context.Context, phone string) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forcedErr != nil {
		return nil, r.forcedErr
	}
	for _, a := range r.accts {
		if a.Phone == phone {
			cp := *a
			return &cp, nil
		}
	}
	return nil, account.ErrNotFound
}

func (r *memRepo) GetByCredentials(_ context.Context, phone, digest string) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forcedErr != nil {
		return nil, r.forcedErr
	}
	for _, a := range r.accts {
		if a.Phone == phone && a.SecretDigest == digest {
			cp := *a
			return &cp, nil
		}
	}
	return nil, account.ErrNotFound
}

func (r *memRepo) UpdateProfile(_ context.Context, id int64, upd account.ProfileUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forcedErr != nil {
		return r.forcedErr
	}
	a, ok := r.accts[id]
	if !ok {
		return account.ErrNotFound
	}
	a.Name = upd.Name
	a.School = upd.School
	a.Region = upd.Region
	a.Grade = upd.Grade
	a.SetupComplete = true
	return nil
}

func (r *memRepo) UpdateAdminFields(_ context.Context, id int64, upd account.AdminUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forcedErr != nil {
		return r.forcedErr
	}
	a, ok := r.accts[id]
	if !ok {
		return account.ErrNotFound
	}
	for otherID, other := range r.accts {
		if otherID != id && other.Phone == upd.Phone {
			return account.ErrDuplicatePhone
		}
	}
	a.Name = upd.Name
	a.School = upd.School
	a.Region = upd.Region
	a.Grade = upd.Grade
	a.Phone = upd.Phone
	return nil
}

func (r *memRepo) SetPassword(_ context.Context, id int64, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forcedErr != nil {
		return r.forcedErr
	}
	a, ok := r.accts[id]
	if !ok {
		return account.ErrNotFound
	}
	a.SecretDigest = digest
	return nil
}

func (r *memRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forcedErr != nil {
		return r.forcedErr
	}
	a, ok := r.accts[id]
	if !ok {
		return account.ErrNotFound
	}
	if a.Role == account.RoleAdmin {
		return account.ErrForbidden
	}
	delete(r.accts, id)
	return nil
}

func (r *memRepo) ListAll(_ context.Context) ([]account.Sanitized, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.forcedErr != nil {
		return nil, r.forcedErr
	}
	out := []account.Sanitized{}
	for i := int64(1); i < r.nextID; i++ {
		if a, ok := r.accts[i]; ok {
			out = append(out, a.Sanitize())
		}
	}
	return out, nil
}

var _ account.Repository = (*memRepo)(nil)
