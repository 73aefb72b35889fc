// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zhisi-edu/zhisi/internal/account"
	"github.com/zhisi-edu/zhisi/pkg/errutil"
)

// User-visible API messages. These match the deployed platform's
// responses; clients key on them.
const (
	msgRegisterOK      = "注册成功"
	msgLoginOK         = "登录成功"
	msgUpdateOK        = "更新成功"
	msgEditOK          = "修改成功"
	msgDeleteOK        = "删除成功"
	msgResetPrefix     = "密码已重置为 "
	msgInvalidInput    = "参数错误"
	msgMissingID       = "ID缺失"
	msgDuplicatePhone  = "手机号已存在"
	msgBadCredentials  = "账号或密码错误"
	msgUserNotFound    = "用户不存在"
	msgDeleteForbidden = "安全警告：无法删除管理员账号！"
	msgServerError     = "服务器错误"
)

type registerRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (a *API) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": msgInvalidInput})
		return
	}

	id, err := a.auth.Register(c.Request.Context(), req.Phone, req.Password, account.Role(req.Role))
	if err != nil {
		a.countRegistration(req.Role, "error")
		switch {
		case errors.Is(err, account.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"msg": msgInvalidInput})
		case errors.Is(err, account.ErrDuplicatePhone):
			c.JSON(http.StatusConflict, gin.H{"msg": msgDuplicatePhone})
		default:
			errutil.LogError(slog.Default(), "register failed", err)
			c.JSON(http.StatusInternalServerError, gin.H{"msg": msgServerError})
		}
		return
	}

	a.countRegistration(req.Role, "success")
	c.JSON(http.StatusOK, gin.H{"msg": msgRegisterOK, "id": id})
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (a *API) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": msgInvalidInput})
		return
	}

	user, err := a.auth.Login(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			a.countLogin("invalid_credentials")
			c.JSON(http.StatusUnauthorized, gin.H{"msg": msgBadCredentials})
			return
		}
		a.countLogin("error")
		errutil.LogError(slog.Default(), "login failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": msgServerError})
		return
	}

	a.countLogin("success")
	c.JSON(http.StatusOK, gin.H{"msg": msgLoginOK, "user": user})
}

type updateProfileRequest struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	School string `json:"school"`
	Region string `json:"region"`
	Grade  string `json:"grade"`
}

func (a *API) handleUpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": msgInvalidInput})
		return
	}

	upd := account.ProfileUpdate{
		Name:   req.Name,
		School: req.School,
		Region: req.Region,
		Grade:  req.Grade,
	}
	if err := a.auth.UpdateProfile(c.Request.Context(), req.ID, upd); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"msg": msgUserNotFound})
			return
		}
		errutil.LogError(slog.Default(), "update profile failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": msgServerError})
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": msgUpdateOK})
}

// handleAuthorize exposes the authorization policy so every
// presentation layer consumes the same table. Stateless: the role comes
// from the request, the decision is recomputed every call.
func (a *API) handleAuthorize(c *gin.Context) {
	role := account.Role(c.Query("role"))
	resource := c.Query("resource")
	c.JSON(http.StatusOK, a.policy.Decide(role, resource))
}

func (a *API) handleListUsers(c *gin.Context) {
	users, err := a.admin.ListAccounts(c.Request.Context())
	if err != nil {
		errutil.LogError(slog.Default(), "list users failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": msgServerError})
		return
	}
	c.JSON(http.StatusOK, users)
}

type idRequest struct {
	ID int64 `json:"id"`
}

func (a *API) handleDeleteUser(c *gin.Context) {
	var req idRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": msgInvalidInput})
		return
	}

	err := a.admin.DeleteAccount(c.Request.Context(), req.ID)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrNotFound):
			a.countAdminMutation("delete", "not_found")
			c.JSON(http.StatusNotFound, gin.H{"msg": msgUserNotFound})
		case errors.Is(err, account.ErrForbidden):
			a.countAdminMutation("delete", "forbidden")
			c.JSON(http.StatusForbidden, gin.H{"msg": msgDeleteForbidden})
		default:
			a.countAdminMutation("delete", "error")
			errutil.LogError(slog.Default(), "delete user failed", err)
			c.JSON(http.StatusInternalServerError, gin.H{"msg": msgServerError})
		}
		return
	}

	a.countAdminMutation("delete", "success")
	c.JSON(http.StatusOK, gin.H{"msg": msgDeleteOK})
}

type adminEditRequest struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	School string `json:"school"`
	Region string `json:"region"`
	Grade  string `json:"grade"`
	Phone  string `json:"phone"`
}

func (a *API) handleAdminEditUser(c *gin.Context) {
	var req adminEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": msgInvalidInput})
		return
	}
	if req.ID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": msgMissingID})
		return
	}

	upd := account.AdminUpdate{
		Name:   req.Name,
		School: req.School,
		Region: req.Region,
		Grade:  req.Grade,
		Phone:  req.Phone,
	}
	if err := a.admin.EditAccount(c.Request.Context(), req.ID, upd); err != nil {
		switch {
		case errors.Is(err, account.ErrNotFound):
			a.countAdminMutation("edit", "not_found")
			c.JSON(http.StatusNotFound, gin.H{"msg": msgUserNotFound})
		case errors.Is(err, account.ErrDuplicatePhone):
			a.countAdminMutation("edit", "duplicate_phone")
			c.JSON(http.StatusConflict, gin.H{"msg": msgDuplicatePhone})
		default:
			a.countAdminMutation("edit", "error")
			errutil.LogError(slog.Default(), "admin edit failed", err)
			c.JSON(http.StatusInternalServerError, gin.H{"msg": msgServerError})
		}
		return
	}

	a.countAdminMutation("edit", "success")
	c.JSON(http.StatusOK, gin.H{"msg": msgEditOK})
}

func (a *API) handleAdminResetPass(c *gin.Context) {
	var req idRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": msgInvalidInput})
		return
	}

	plaintext, err := a.admin.ResetPassword(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			a.countAdminMutation("reset_password", "not_found")
			c.JSON(http.StatusNotFound, gin.H{"msg": msgUserNotFound})
			return
		}
		a.countAdminMutation("reset_password", "error")
		errutil.LogError(slog.Default(), "admin reset password failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": msgServerError})
		return
	}

	a.countAdminMutation("reset_password", "success")
	c.JSON(http.StatusOK, gin.H{"msg": msgResetPrefix + plaintext})
}

func (a *API) countLogin(outcome string) {
	if a.metrics != nil {
		a.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (a *API) countRegistration(role, outcome string) {
	if a.metrics != nil {
		a.metrics.RegistrationsTotal.WithLabelValues(role, outcome).Inc()
	}
}

func (a *API) countAdminMutation(operation, outcome string) {
	if a.metrics != nil {
		a.metrics.AdminMutationsTotal.WithLabelValues(operation, outcome).Inc()
	}
}
