// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

// Package account provides the account domain for the Zhisi platform:
// the persisted account entity, credential hashing, authentication, and
// the administrative account-lifecycle operations.
package account

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// Role identifies the access tier of an account.
type Role string

// Roles supported by the platform. The set is fixed; no operation
// changes an account's role after creation.
const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// Default display names assigned at registration when no name is given.
const (
	DefaultStudentName = "未命名学生"
	DefaultTeacherName = "未命名教师"
	AdminName          = "系统管理员"
)

// DefaultName returns the placeholder display name for a role.
func (r Role) DefaultName() string {
	switch r {
	case RoleTeacher:
		return DefaultTeacherName
	case RoleAdmin:
		return AdminName
	default:
		return DefaultStudentName
	}
}

// AdminPhone is the login identifier of the built-in administrator
// account. The account is seeded at startup and can never be deleted.
const AdminPhone = "admin"

// MinSecretLength is the minimum accepted plaintext password length.
const MinSecretLength = 8

// Account is the persisted identity record. SecretDigest never leaves
// the store or the authentication service; every caller-facing shape is
// a Sanitized copy.
type Account struct {
	ID            int64
	Phone         string
	SecretDigest  string
	Role          Role
	Name          string
	School        string
	Region        string
	Grade         string
	SetupComplete bool
	CreatedAt     time.Time
}

// Sanitized is an Account with the credential digest removed. It is the
// only account shape ever returned to callers.
type Sanitized struct {
	ID            int64     `json:"id"`
	Phone         string    `json:"phone"`
	Role          Role      `json:"role"`
	Name          string    `json:"name"`
	School        string    `json:"school"`
	Region        string    `json:"region"`
	Grade         string    `json:"grade"`
	SetupComplete bool      `json:"is_setup"`
	CreatedAt     time.Time `json:"created_at"`
}

// Sanitize strips the credential digest from an account.
func (a *Account) Sanitize() Sanitized {
	return Sanitized{
		ID:            a.ID,
		Phone:         a.Phone,
		Role:          a.Role,
		Name:          a.Name,
		School:        a.School,
		Region:        a.Region,
		Grade:         a.Grade,
		SetupComplete: a.SetupComplete,
		CreatedAt:     a.CreatedAt,
	}
}

// ValidateRegistration checks registration input before any storage work.
func ValidateRegistration(phone, secret string, role Role) error {
	if phone == "" {
		return oops.Code("ACCOUNT_INVALID_INPUT").Wrapf(ErrInvalidInput, "phone cannot be empty")
	}
	if len(secret) < MinSecretLength {
		return oops.Code("ACCOUNT_INVALID_INPUT").
			With("min", MinSecretLength).
			Wrapf(ErrInvalidInput, "secret must be at least %d characters", MinSecretLength)
	}
	if !role.Valid() {
		return oops.Code("ACCOUNT_INVALID_INPUT").
			With("role", string(role)).
			Wrapf(ErrInvalidInput, "unknown role")
	}
	return nil
}

// ProfileUpdate carries the self-service profile fields. Saving a
// profile marks the account's one-time setup as complete.
type ProfileUpdate struct {
	Name   string
	School string
	Region string
	Grade  string
}

// AdminUpdate carries the administrator-editable fields, which include
// the login phone in addition to the profile fields.
type AdminUpdate struct {
	Name   string
	School string
	Region string
	Grade  string
	Phone  string
}

// Repository manages account persistence.
type Repository interface {
	// Create stores a new account and returns the assigned id.
	// Returns ErrDuplicatePhone if the phone is already registered.
	Create(ctx context.Context, acct *Account) (int64, error)

	// GetByID retrieves an account by id. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id int64) (*Account, error)

	// GetByPhone retrieves an account by its login phone.
	// Returns ErrNotFound if absent.
	GetByPhone(ctx context.Context, phone string) (*Account, error)

	// GetByCredentials retrieves the account matching both phone and
	// digest exactly. Returns ErrNotFound on any mismatch; callers must
	// not distinguish unknown phone from wrong secret.
	GetByCredentials(ctx context.Context, phone, digest string) (*Account, error)

	// UpdateProfile saves the self-service profile fields and marks
	// setup complete in the same write. Returns ErrNotFound if absent.
	UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) error

	// UpdateAdminFields saves the administrator-editable fields.
	// Returns ErrNotFound or ErrDuplicatePhone.
	UpdateAdminFields(ctx context.Context, id int64, upd AdminUpdate) error

	// SetPassword replaces the stored credential digest.
	// Returns ErrNotFound if absent.
	SetPassword(ctx context.Context, id int64, digest string) error

	// Delete removes an account. The role check and the removal run as
	// one transaction; deleting an administrator fails with ErrForbidden
	// and leaves the record untouched.
	Delete(ctx context.Context, id int64) error

	// ListAll returns every account with the digest excluded.
	ListAll(ctx context.Context) ([]Sanitized, error)
}
