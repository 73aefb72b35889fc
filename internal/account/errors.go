// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

package account

import "errors"

// Sentinel errors for the account error taxonomy. Services wrap these
// with oops codes; callers match with errors.Is.
var (
	// ErrNotFound is returned when a referenced account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrDuplicatePhone is returned when an insert or edit would violate
	// phone uniqueness.
	ErrDuplicatePhone = errors.New("phone already registered")

	// ErrInvalidCredentials is returned on login mismatch. Unknown phone
	// and wrong secret are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid phone or password")

	// ErrInvalidInput is returned for malformed or missing fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden is returned when a mutation would violate the
	// administrator-protection rule.
	ErrForbidden = errors.New("operation forbidden")
)
