// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

// Package policy provides the authorization decision table for the
// Zhisi platform. It maps (role, requested resource) to allow/deny and
// is the single source of truth consumed by every presentation layer.
package policy

import (
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/zhisi-edu/zhisi/internal/account"
)

// Well-known resources referenced by the deny paths.
const (
	ResourceHome  = "index.html"
	ResourceLogin = "login.html"
)

// NoticeInsufficientPermission is the user-visible message attached to
// a role-based denial.
const NoticeInsufficientPermission = "权限不足：学生身份无法访问教研板块。"

// NoticeLoginRequired is the user-visible message attached to an
// unauthenticated denial.
const NoticeLoginRequired = "请先登录！"

// Anonymous is the role value for a request with no authenticated
// account.
const Anonymous account.Role = ""

// Decision is the outcome of a policy check. When Allowed is false,
// RedirectTo names the resource the client should navigate to and
// Notice carries the user-visible explanation.
type Decision struct {
	Allowed    bool   `json:"allowed"`
	RedirectTo string `json:"redirect,omitempty"`
	Notice     string `json:"notice,omitempty"`
}

// allow is the permitted decision.
var allow = Decision{Allowed: true}

// DefaultRules returns the platform's role → resource-pattern table:
// anonymous visitors reach only the landing and login resources,
// students additionally reach their profile and the learning resources,
// and teachers and administrators are unrestricted here. Administrative
// operations have their own gate at the transport boundary.
func DefaultRules() map[account.Role][]string {
	return map[account.Role][]string{
		Anonymous:           {ResourceHome, ResourceLogin, ""},
		account.RoleStudent: {ResourceHome, ResourceLogin, "my.html", "resources.html", "question.html", ""},
		account.RoleTeacher: {"*"},
		account.RoleAdmin:   {"*"},
	}
}

// Policy is a pure, stateless decision function over a fixed rule
// table. It holds no session state; callers re-evaluate it on every
// resource request.
type Policy struct {
	rules map[account.Role][]glob.Glob
}

// New compiles a rule table into a Policy. Returns an error if any
// pattern fails to compile.
func New(rules map[account.Role][]string) (*Policy, error) {
	compiled := make(map[account.Role][]glob.Glob, len(rules))
	for role, patterns := range rules {
		globs := make([]glob.Glob, 0, len(patterns))
		for _, p := range patterns {
			g, err := glob.Compile(p)
			if err != nil {
				return nil, oops.In("policy").
					Code("INVALID_RESOURCE_PATTERN").
					With("role", string(role)).
					With("pattern", p).
					Wrap(err)
			}
			globs = append(globs, g)
		}
		compiled[role] = globs
	}
	return &Policy{rules: compiled}, nil
}

// Default creates a Policy from DefaultRules.
// Panics if the built-in patterns fail to compile (a code bug).
func Default() *Policy {
	p, err := New(DefaultRules())
	if err != nil {
		panic("invalid pattern in default policy rules: " + err.Error())
	}
	return p
}

// Decide evaluates the table for a role and requested resource.
// An unauthenticated request (Anonymous role) outside the public
// allow-list redirects to the login resource; a role-based denial
// redirects home with a permission notice.
func (p *Policy) Decide(role account.Role, resource string) Decision {
	if p.matches(role, resource) {
		return allow
	}
	if role == Anonymous {
		return Decision{RedirectTo: ResourceLogin, Notice: NoticeLoginRequired}
	}
	return Decision{RedirectTo: ResourceHome, Notice: NoticeInsufficientPermission}
}

// matches reports whether any of the role's patterns match the
// resource. Unknown roles have no patterns and are denied.
func (p *Policy) matches(role account.Role, resource string) bool {
	for _, g := range p.rules[role] {
		if g.Match(resource) {
			return true
		}
	}
	return false
}
