package guard

import (
	"console/internal/model"
)

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

type Decision int

const (
	Render Decision = iota
	RedirectLogin
	RedirectUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case RedirectLogin:
		return "redirect-login"
	case RedirectUnauthorized:
		return "redirect-unauthorized"
	}
	return "unknown"
}

// Target is where a redirect decision sends the user. Render has no target.
func (d Decision) Target() string {
	switch d {
	case RedirectLogin:
		return LoginPath
	case RedirectUnauthorized:
		return UnauthorizedPath
	}
	return ""
}

type RoleSet map[model.Role]struct{}

func Roles(roles ...model.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Has(r model.Role) bool {
	_, ok := s[r]
	return ok
}

type Rule struct {
	Allowed RoleSet
}

// Authorize decides whether a view guarded by rule may be shown to sess.
// A nil or incomplete session counts as no session.
func Authorize(sess *model.Session, rule Rule) Decision {
	if !sess.Complete() {
		return RedirectLogin
	}
	if !rule.Allowed.Has(sess.Role) {
		return RedirectUnauthorized
	}
	return Render
}

var (
	managers = Rule{Allowed: Roles(model.RoleManager)}
	panel    = Rule{Allowed: Roles(model.RoleStudent, model.RoleTeacher)}
)

// Routes lists every protected view and who may see it.
var Routes = map[string]Rule{
	"/admin-dashboard":    managers,
	"/admin/teachers":     managers,
	"/admin/teachers/new": managers,
	"/admin/terms":        managers,
	"/admin/courses":      managers,
	"/admin/classes":      managers,
	"/admin/students":     managers,
	"/main-panel":         panel,
}

// Lookup returns the rule for a protected path. Unknown paths are public.
func Lookup(path string) (Rule, bool) {
	r, ok := Routes[path]
	return r, ok
}
