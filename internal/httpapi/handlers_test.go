// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhisi-edu/zhisi/internal/account"
	"github.com/zhisi-edu/zhisi/internal/httpapi"
	"github.com/zhisi-edu/zhisi/internal/policy"
)

// fakeAuth implements httpapi.Authenticator with function fields.
type fakeAuth struct {
	register      func(ctx context.Context, phone, secret string, role account.Role) (int64, error)
	login         func(ctx context.Context, phone, secret string) (account.Sanitized, error)
	updateProfile func(ctx context.Context, id int64, upd account.ProfileUpdate) error
	getAccount    func(ctx context.Context, id int64) (account.Sanitized, error)
}

func (f *fakeAuth) Register(ctx context.Context, phone, secret string, role account.Role) (int64, error) {
	return f.register(ctx, phone, secret, role)
}

func (f *fakeAuth) Login(ctx context.Context, phone, secret string) (account.Sanitized, error) {
	return f.login(ctx, phone, secret)
}

func (f *fakeAuth) UpdateProfile(ctx context.Context, id int64, upd account.ProfileUpdate) error {
	return f.updateProfile(ctx, id, upd)
}

func (f *fakeAuth) GetAccount(ctx context.Context, id int64) (account.Sanitized, error) {
	return f.getAccount(ctx, id)
}

// fakeAdmin implements httpapi.Administrator with function fields.
type fakeAdmin struct {
	list   func(ctx context.Context) ([]account.Sanitized, error)
	edit   func(ctx context.Context, id int64, upd account.AdminUpdate) error
	reset  func(ctx context.Context, id int64) (string, error)
	delete func(ctx context.Context, id int64) error
}

func (f *fakeAdmin) ListAccounts(ctx context.Context) ([]account.Sanitized, error) {
	return f.list(ctx)
}

func (f *fakeAdmin) EditAccount(ctx context.Context, id int64, upd account.AdminUpdate) error {
	return f.edit(ctx, id, upd)
}

func (f *fakeAdmin) ResetPassword(ctx context.Context, id int64) (string, error) {
	return f.reset(ctx, id)
}

func (f *fakeAdmin) DeleteAccount(ctx context.Context, id int64) error {
	return f.delete(ctx, id)
}

// adminCaller is a GetAccount that resolves id 1 to an administrator.
func adminCaller(_ context.Context, id int64) (account.Sanitized, error) {
	switch id {
	case 1:
		return account.Sanitized{ID: 1, Phone: account.AdminPhone, Role: account.RoleAdmin}, nil
	case 2:
		return account.Sanitized{ID: 2, Phone: "13800000001", Role: account.RoleStudent}, nil
	}
	return account.Sanitized{}, account.ErrNotFound
}

func newRouter(auth *fakeAuth, admin *fakeAdmin) http.Handler {
	return httpapi.New(auth, admin, policy.Default(), nil).Router()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestHandleRegister(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		auth := &fakeAuth{
			register: func(_ context.Context, phone, secret string, role account.Role) (int64, error) {
				assert.Equal(t, "13800000001", phone)
				assert.Equal(t, "password1", secret)
				assert.Equal(t, account.RoleStudent, role)
				return 42, nil
			},
		}
		w := doJSON(t, newRouter(auth, &fakeAdmin{}), http.MethodPost, "/api/register",
			map[string]any{"phone": "13800000001", "password": "password1", "role": "student"}, nil)

		require.Equal(t, http.StatusOK, w.Code)
		got := decodeBody(t, w)
		assert.Equal(t, "注册成功", got["msg"])
		assert.Equal(t, float64(42), got["id"])
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("invalid input", func(t *testing.T) {
		auth := &fakeAuth{
			register: func(_ context.Context, _, _ string, _ account.Role) (int64, error) {
				return 0, account.ErrInvalidInput
			},
		}
		w := doJSON(t, newRouter(auth, &fakeAdmin{}), http.MethodPost, "/api/register",
			map[string]any{"phone": "", "password": "short", "role": "student"}, nil)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "参数错误", decodeBody(t, w)["msg"])
	})

	t.Run("duplicate phone", func(t *testing.T) {
		auth := &fakeAuth{
			register: func(_ context.Context, _, _ string, _ account.Role) (int64, error) {
				return 0, account.ErrDuplicatePhone
			},
		}
		w := doJSON(t, newRouter(auth, &fakeAdmin{}), http.MethodPost, "/api/register",
			map[string]any{"phone": "13800000001", "password": "password1", "role": "student"}, nil)

		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "手机号已存在", decodeBody(t, w)["msg"])
	})

	t.Run("storage failure", func(t *testing.T) {
		auth := &fakeAuth{
			register: func(_ context.Context, _, _ string, _ account.Role) (int64, error) {
				return 0, errors.New("connection refused")
			},
		}
		w := doJSON(t, newRouter(auth, &fakeAdmin{}), http.MethodPost, "/api/register",
			map[string]any{"phone": "13800000001", "password": "password1", "role": "student"}, nil)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "服务器错误", decodeBody(t, w)["msg"])
	})

	t.Run("malformed body", func(t *testing.T) {
		r := newRouter(&fakeAuth{}, &fakeAdmin{})
		req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewBufferString("{not json"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleLogin(t *testing.T) {
	t.Run("success returns sanitized user", func(t *testing.T) {
		auth := &fakeAuth{
			login: func(_ context.Context, phone, secret string) (account.Sanitized, error) {
				assert.Equal(t, "13800000001", phone)
				assert.Equal(t, "password1", secret)
				return account.Sanitized{ID: 7, Phone: phone, Role: account.RoleStudent, Name: "小明"}, nil
			},
		}
		w := doJSON(t, newRouter(auth, &fakeAdmin{}), http.MethodPost, "/api/login",
			map[string]any{"phone": "13800000001", "password": "password1"}, nil)

		require.Equal(t, http.StatusOK, w.Code)
		got := decodeBody(t, w)
		assert.Equal(t, "登录成功", got["msg"])
		user, ok := got["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(7), user["id"])
		assert.Equal(t, "小明", user["name"])
		assert.NotContains(t, w.Body.String(), "digest")
	})

	t.Run("bad credentials", func(t *testing.T) {
		auth := &fakeAuth{
			login: func(_ context.Context, _, _ string) (account.Sanitized, error) {
				return account.Sanitized{}, account.ErrInvalidCredentials
			},
		}
		w := doJSON(t, newRouter(auth, &fakeAdmin{}), http.MethodPost, "/api/login",
			map[string]any{"phone": "13800000001", "password": "wrong"}, nil)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "账号或密码错误", decodeBody(t, w)["msg"])
	})
}

func TestHandleUpdateProfile(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		auth := &fakeAuth{
			updateProfile: func(_ context.Context, id int64, upd account.ProfileUpdate) error {
				assert.Equal(t, int64(7), id)
				assert.Equal(t, "小明", upd.Name)
				return nil
			},
		}
		w := doJSON(t, newRouter(auth, &fakeAdmin{}), http.MethodPost, "/api/update-profile",
			map[string]any{"id": 7, "name": "小明", "school": "实验小学", "region": "北京", "grade": "六年级"}, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "更新成功", decodeBody(t, w)["msg"])
	})

	t.Run("unknown account", func(t *testing.T) {
		auth := &fakeAuth{
			updateProfile: func(_ context.Context, _ int64, _ account.ProfileUpdate) error {
				return account.ErrNotFound
			},
		}
		w := doJSON(t, newRouter(auth, &fakeAdmin{}), http.MethodPost, "/api/update-profile",
			map[string]any{"id": 9999, "name": "nobody"}, nil)

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "用户不存在", decodeBody(t, w)["msg"])
	})
}

func TestHandleAuthorize(t *testing.T) {
	r := newRouter(&fakeAuth{}, &fakeAdmin{})

	t.Run("allowed", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/authorize?role=teacher&resource=teaching.html", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		got := decodeBody(t, w)
		assert.Equal(t, true, got["allowed"])
	})

	t.Run("student denied with redirect", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/authorize?role=student&resource=teaching.html", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		got := decodeBody(t, w)
		assert.Equal(t, false, got["allowed"])
		assert.Equal(t, policy.ResourceHome, got["redirect"])
		assert.Equal(t, policy.NoticeInsufficientPermission, got["notice"])
	})

	t.Run("anonymous redirected to login", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/authorize?resource=my.html", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		got := decodeBody(t, w)
		assert.Equal(t, false, got["allowed"])
		assert.Equal(t, policy.ResourceLogin, got["redirect"])
	})
}

func TestAdminGate(t *testing.T) {
	admin := &fakeAdmin{
		list: func(_ context.Context) ([]account.Sanitized, error) {
			return []account.Sanitized{{ID: 1, Phone: account.AdminPhone, Role: account.RoleAdmin}}, nil
		},
	}
	r := newRouter(&fakeAuth{getAccount: adminCaller}, admin)

	t.Run("missing caller header", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/users", nil, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "请先登录！", decodeBody(t, w)["msg"])
	})

	t.Run("unparsable caller header", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/users", nil, map[string]string{"X-Account-ID": "abc"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown caller", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/users", nil, map[string]string{"X-Account-ID": "9999"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("non-admin caller", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/users", nil, map[string]string{"X-Account-ID": "2"})
		require.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "权限不足", decodeBody(t, w)["msg"])
	})

	t.Run("admin caller passes", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/users", nil, map[string]string{"X-Account-ID": "1"})
		require.Equal(t, http.StatusOK, w.Code)

		var users []account.Sanitized
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
		require.Len(t, users, 1)
		assert.Equal(t, account.AdminPhone, users[0].Phone)
	})
}

func adminHeaders() map[string]string {
	return map[string]string{"X-Account-ID": "1"}
}

func TestHandleDeleteUser(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		admin := &fakeAdmin{
			delete: func(_ context.Context, id int64) error {
				assert.Equal(t, int64(5), id)
				return nil
			},
		}
		r := newRouter(&fakeAuth{getAccount: adminCaller}, admin)
		w := doJSON(t, r, http.MethodPost, "/api/delete-user", map[string]any{"id": 5}, adminHeaders())

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "删除成功", decodeBody(t, w)["msg"])
	})

	t.Run("administrator target is refused", func(t *testing.T) {
		admin := &fakeAdmin{
			delete: func(_ context.Context, _ int64) error { return account.ErrForbidden },
		}
		r := newRouter(&fakeAuth{getAccount: adminCaller}, admin)
		w := doJSON(t, r, http.MethodPost, "/api/delete-user", map[string]any{"id": 1}, adminHeaders())

		require.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "安全警告：无法删除管理员账号！", decodeBody(t, w)["msg"])
	})

	t.Run("unknown target", func(t *testing.T) {
		admin := &fakeAdmin{
			delete: func(_ context.Context, _ int64) error { return account.ErrNotFound },
		}
		r := newRouter(&fakeAuth{getAccount: adminCaller}, admin)
		w := doJSON(t, r, http.MethodPost, "/api/delete-user", map[string]any{"id": 9999}, adminHeaders())

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "用户不存在", decodeBody(t, w)["msg"])
	})
}

func TestHandleAdminEditUser(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		admin := &fakeAdmin{
			edit: func(_ context.Context, id int64, upd account.AdminUpdate) error {
				assert.Equal(t, int64(5), id)
				assert.Equal(t, "13811111111", upd.Phone)
				return nil
			},
		}
		r := newRouter(&fakeAuth{getAccount: adminCaller}, admin)
		w := doJSON(t, r, http.MethodPost, "/api/admin/edit-user",
			map[string]any{"id": 5, "name": "李雷", "phone": "13811111111"}, adminHeaders())

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "修改成功", decodeBody(t, w)["msg"])
	})

	t.Run("missing id", func(t *testing.T) {
		r := newRouter(&fakeAuth{getAccount: adminCaller}, &fakeAdmin{})
		w := doJSON(t, r, http.MethodPost, "/api/admin/edit-user",
			map[string]any{"name": "李雷"}, adminHeaders())

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "ID缺失", decodeBody(t, w)["msg"])
	})

	t.Run("phone collision", func(t *testing.T) {
		admin := &fakeAdmin{
			edit: func(_ context.Context, _ int64, _ account.AdminUpdate) error {
				return account.ErrDuplicatePhone
			},
		}
		r := newRouter(&fakeAuth{getAccount: adminCaller}, admin)
		w := doJSON(t, r, http.MethodPost, "/api/admin/edit-user",
			map[string]any{"id": 5, "phone": "13800000002"}, adminHeaders())

		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "手机号已存在", decodeBody(t, w)["msg"])
	})
}

func TestHandleAdminResetPass(t *testing.T) {
	t.Run("success relays the default password", func(t *testing.T) {
		admin := &fakeAdmin{
			reset: func(_ context.Context, id int64) (string, error) {
				assert.Equal(t, int64(5), id)
				return account.DefaultResetSecret, nil
			},
		}
		r := newRouter(&fakeAuth{getAccount: adminCaller}, admin)
		w := doJSON(t, r, http.MethodPost, "/api/admin/reset-pass", map[string]any{"id": 5}, adminHeaders())

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "密码已重置为 "+account.DefaultResetSecret, decodeBody(t, w)["msg"])
	})

	t.Run("unknown target", func(t *testing.T) {
		admin := &fakeAdmin{
			reset: func(_ context.Context, _ int64) (string, error) {
				return "", account.ErrNotFound
			},
		}
		r := newRouter(&fakeAuth{getAccount: adminCaller}, admin)
		w := doJSON(t, r, http.MethodPost, "/api/admin/reset-pass", map[string]any{"id": 9999}, adminHeaders())

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "用户不存在", decodeBody(t, w)["msg"])
	})
}
