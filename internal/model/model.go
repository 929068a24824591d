package model

type Role string

const (
	RoleManager Role = "manager"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// Session is the authenticated identity kept between page loads.
// The access token is stored next to it, not inside it.
type Session struct {
	UserID    string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
}

// Complete reports whether every field is populated. Anything less is treated as no session.
func (s *Session) Complete() bool {
	if s == nil {
		return false
	}
	return s.UserID != "" && s.Email != "" && s.FirstName != "" && s.LastName != "" && s.Role.Valid()
}

func (s *Session) FullName() string {
	return s.FirstName + " " + s.LastName
}
