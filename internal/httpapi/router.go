// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

// Package httpapi exposes the account service over JSON HTTP.
package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/zhisi-edu/zhisi/internal/account"
	"github.com/zhisi-edu/zhisi/internal/observability"
	"github.com/zhisi-edu/zhisi/internal/policy"
)

// Authenticator is the authentication surface the API consumes.
type Authenticator interface {
	Register(ctx context.Context, phone, secret string, role account.Role) (int64, error)
	Login(ctx context.Context, phone, secret string) (account.Sanitized, error)
	UpdateProfile(ctx context.Context, id int64, upd account.ProfileUpdate) error
	GetAccount(ctx context.Context, id int64) (account.Sanitized, error)
}

// Administrator is the administrative surface the API consumes.
type Administrator interface {
	ListAccounts(ctx context.Context) ([]account.Sanitized, error)
	EditAccount(ctx context.Context, id int64, upd account.AdminUpdate) error
	ResetPassword(ctx context.Context, id int64) (string, error)
	DeleteAccount(ctx context.Context, id int64) error
}

// API wires the account services into a gin router.
type API struct {
	auth    Authenticator
	admin   Administrator
	policy  *policy.Policy
	metrics *observability.Metrics
}

// New creates the API. metrics may be nil when the observability
// server is disabled.
func New(auth Authenticator, admin Administrator, pol *policy.Policy, metrics *observability.Metrics) *API {
	return &API{
		auth:    auth,
		admin:   admin,
		policy:  pol,
		metrics: metrics,
	}
}

// Router builds the gin engine with all routes registered.
//
// Administrative routes sit behind an admin gate: the original platform
// trusted the browser for this check, the server now re-checks it per
// privileged operation.
func (a *API) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), a.requestID(), a.requestLog())

	api := r.Group("/api")
	{
		api.POST("/register", a.handleRegister)
		api.POST("/login", a.handleLogin)
		api.POST("/update-profile", a.handleUpdateProfile)
		api.GET("/authorize", a.handleAuthorize)

		admin := api.Group("")
		admin.Use(a.adminGate())
		{
			admin.GET("/users", a.handleListUsers)
			admin.POST("/delete-user", a.handleDeleteUser)
			admin.POST("/admin/edit-user", a.handleAdminEditUser)
			admin.POST("/admin/reset-pass", a.handleAdminResetPass)
		}
	}

	return r
}
