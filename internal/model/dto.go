package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID accepts both numeric and string identifiers from the backend.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	// only canonical integers go out bare; "007" or "+5" stay strings
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterData struct {
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type RoleRef struct {
	Name string `json:"name"`
}

type AuthUser struct {
	ID        ID        `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Roles     []RoleRef `json:"roles"`
}

type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	User        *AuthUser `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// Envelope is the {status, message} part backend responses carry.
// An absent status (e.g. an empty 204 body) counts as success.
type Envelope struct {
	Status  *bool  `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e Envelope) OK() bool { return e.Status == nil || *e.Status }

func (e Envelope) Text() string { return e.Message }

type TeacherUser struct {
	ID         ID     `json:"id"`
	NationalID string `json:"national_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type Teacher struct {
	ID        ID          `json:"id"`
	UserID    ID          `json:"user_id"`
	Salary    float64     `json:"salary"`
	Resume    string      `json:"resume"`
	Bio       string      `json:"bio"`
	Degree    string      `json:"degree"`
	DeletedAt *string     `json:"deleted_at"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
	User      TeacherUser `json:"user"`
}

type TeacherRegistration struct {
	NationalID           string `json:"national_id"`
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Phone                string `json:"phone"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type TeacherUpdate struct {
	Salary float64 `json:"salary"`
}

type TeachersResponse struct {
	Envelope
	Data []Teacher `json:"data"`
}

type TeacherResponse struct {
	Envelope
	Data Teacher `json:"data"`
}

type Term struct {
	ID        ID     `json:"id"`
	Year      int    `json:"year"`
	Season    string `json:"season"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type TermForm struct {
	Year      int    `json:"year"`
	Season    string `json:"season"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	IsActive  bool   `json:"is_active"`
}

type TermsResponse struct {
	Envelope
	Terms []Term `json:"terms"`
}

type TermResponse struct {
	Envelope
	Term Term `json:"term"`
}

type Course struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Level       string `json:"level"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type CourseForm struct {
	Title       string `json:"title"`
	Level       string `json:"level"`
	Description string `json:"description"`
}

type CoursesResponse struct {
	Envelope
	Data []Course `json:"data"`
}

type CourseResponse struct {
	Envelope
	Data Course `json:"data"`
}

type Class struct {
	ID                    ID      `json:"id"`
	Name                  string  `json:"name"`
	CourseID              ID      `json:"course_id"`
	TermID                ID      `json:"term_id"`
	TeacherID             ID      `json:"teacher_id"`
	StartDate             string  `json:"start_date"`
	EndDate               string  `json:"end_date"`
	TuitionFee            float64 `json:"tuition_fee"`
	Capacity              int     `json:"capacity"`
	StartRegistrationDate string  `json:"startRegistration_date"`
	EndRegistrationDate   string  `json:"endRegistration_date"`
	CreatedAt             string  `json:"created_at"`
	UpdatedAt             string  `json:"updated_at"`

	Course  *Course  `json:"course,omitempty"`
	Term    *Term    `json:"term,omitempty"`
	Teacher *Teacher `json:"teacher,omitempty"`
}

type ClassForm struct {
	Name                  string  `json:"name"`
	CourseID              ID      `json:"course_id"`
	TermID                ID      `json:"term_id"`
	TeacherID             ID      `json:"teacher_id"`
	StartDate             string  `json:"start_date"`
	EndDate               string  `json:"end_date"`
	TuitionFee            float64 `json:"tuition_fee"`
	Capacity              int     `json:"capacity"`
	StartRegistrationDate string  `json:"startRegistration_date"`
	EndRegistrationDate   string  `json:"endRegistration_date"`
}

type ClassesResponse struct {
	Envelope
	Classes []Class `json:"classes"`
}

type ClassResponse struct {
	Envelope
	Class Class `json:"class"`
}

type StudentUser struct {
	ID         ID     `json:"id"`
	NationalID string `json:"national_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type Student struct {
	ID          ID          `json:"id"`
	UserID      ID          `json:"user_id"`
	FatherName  string      `json:"father_name"`
	FatherPhone string      `json:"father_phone"`
	MotherName  string      `json:"mother_name"`
	MotherPhone string      `json:"mother_phone"`
	DeletedAt   *string     `json:"deleted_at"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
	User        StudentUser `json:"user"`
}

// StudentList decodes a `data` value that the backend sends either as an
// array or, for a class with one student, as a bare object.
type StudentList []Student

func (l *StudentList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*l = StudentList{}
		return nil
	case b[0] == '[':
		var out []Student
		if err := json.Unmarshal(b, &out); err != nil {
			return err
		}
		*l = out
		return nil
	default:
		var one Student
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*l = StudentList{one}
		return nil
	}
}

type StudentsResponse struct {
	Envelope
	Data StudentList `json:"data"`
}

// DeleteResponse covers every DELETE endpoint.
type DeleteResponse struct {
	Envelope
	Error *string `json:"error,omitempty"`
}

func (r DeleteResponse) Text() string {
	if r.Error != nil && *r.Error != "" {
		return *r.Error
	}
	return r.Message
}
