// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/zhisi-edu/zhisi/internal/account"
)

// callerHeader carries the authenticated caller's account id. The
// client-held account cache supplies it; the admin gate resolves it to
// a role server-side instead of trusting the cache.
const callerHeader = "X-Account-ID"

// requestIDKey is the gin context key holding the request id.
const requestIDKey = "request_id"

// requestID assigns a ULID to each request and echoes it in the
// response headers.
func (a *API) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ulid.Make().String()
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// requestLog logs each request and records the route/status counter.
func (a *API) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		if a.metrics != nil {
			a.metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		}
		slog.Debug("api request",
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"route", route,
			"status", status,
		)
	}
}

// adminGate requires the caller to be an administrator. 401 when the
// caller header is absent or resolves to no account, 403 when the
// account is not an administrator.
func (a *API) adminGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(callerHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "请先登录！"})
			return
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "请先登录！"})
			return
		}

		caller, err := a.auth.GetAccount(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "请先登录！"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"msg": msgServerError})
			return
		}

		if caller.Role != account.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"msg": "权限不足"})
			return
		}

		c.Next()
	}
}
