package school

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"console/internal/model"
	"console/internal/provider"
	"console/internal/provider/client"
)

type Provider interface {
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error)
	Register(ctx context.Context, data model.RegisterData) (*model.AuthResponse, error)

	ListTeachers(ctx context.Context) ([]model.Teacher, error)
	RegisterTeacher(ctx context.Context, data model.TeacherRegistration) (*model.Teacher, error)
	UpdateTeacherSalary(ctx context.Context, id model.ID, data model.TeacherUpdate) (*model.Teacher, error)
	DeleteTeacher(ctx context.Context, id model.ID) error

	ListTerms(ctx context.Context) ([]model.Term, error)
	CreateTerm(ctx context.Context, data model.TermForm) (*model.Term, error)
	UpdateTerm(ctx context.Context, id model.ID, data model.TermForm) (*model.Term, error)
	DeleteTerm(ctx context.Context, id model.ID) error

	ListCourses(ctx context.Context) ([]model.Course, error)
	GetCourse(ctx context.Context, id model.ID) (*model.Course, error)
	CreateCourse(ctx context.Context, data model.CourseForm) (*model.Course, error)
	UpdateCourse(ctx context.Context, id model.ID, data model.CourseForm) (*model.Course, error)
	DeleteCourse(ctx context.Context, id model.ID) error

	ListClassesByTerm(ctx context.Context, termID model.ID) ([]model.Class, error)
	CreateClass(ctx context.Context, data model.ClassForm) (*model.Class, error)
	UpdateClass(ctx context.Context, id model.ID, data model.ClassForm) (*model.Class, error)
	DeleteClass(ctx context.Context, termID, id model.ID) error

	ListStudentsByClass(ctx context.Context, classID model.ID) ([]model.Student, error)
	DeleteStudent(ctx context.Context, id model.ID) error
}

// Sender is satisfied by *client.Client.
type Sender interface {
	Send(ctx context.Context, req client.Request, out any) error
}

type schoolProvider struct {
	api Sender
}

func NewSchoolProvider(api Sender) Provider {
	return &schoolProvider{api: api}
}

type enveloped interface {
	OK() bool
	Text() string
}

// call sends req and treats a 2xx with status=false as a rejection.
func (p *schoolProvider) call(ctx context.Context, method, path string, body any, out enveloped) error {
	if err := p.api.Send(ctx, client.Request{Method: method, Path: path, Body: body}, out); err != nil {
		return err
	}
	if !out.OK() {
		return &provider.RejectedError{Message: out.Text()}
	}
	return nil
}

func (p *schoolProvider) Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error) {
	var out model.AuthResponse
	if err := p.api.Send(ctx, client.Request{Method: http.MethodPost, Path: "/auth/login", Body: creds}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *schoolProvider) Register(ctx context.Context, data model.RegisterData) (*model.AuthResponse, error) {
	var out model.AuthResponse
	if err := p.api.Send(ctx, client.Request{Method: http.MethodPost, Path: "/auth/register", Body: data}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *schoolProvider) ListTeachers(ctx context.Context) ([]model.Teacher, error) {
	var out model.TeachersResponse
	if err := p.call(ctx, http.MethodGet, "/teachers", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Data), nil
}

func (p *schoolProvider) RegisterTeacher(ctx context.Context, data model.TeacherRegistration) (*model.Teacher, error) {
	var out model.TeacherResponse
	if err := p.call(ctx, http.MethodPost, "/users", data, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (p *schoolProvider) UpdateTeacherSalary(ctx context.Context, id model.ID, data model.TeacherUpdate) (*model.Teacher, error) {
	var out model.TeacherResponse
	if err := p.call(ctx, http.MethodPut, fmt.Sprintf("/teachers/%s/admin-info", seg(id)), data, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (p *schoolProvider) DeleteTeacher(ctx context.Context, id model.ID) error {
	var out model.DeleteResponse
	return p.call(ctx, http.MethodDelete, fmt.Sprintf("/teachers/%s", seg(id)), nil, &out)
}

func (p *schoolProvider) ListTerms(ctx context.Context) ([]model.Term, error) {
	var out model.TermsResponse
	if err := p.call(ctx, http.MethodGet, "/terms", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Terms), nil
}

func (p *schoolProvider) CreateTerm(ctx context.Context, data model.TermForm) (*model.Term, error) {
	var out model.TermResponse
	if err := p.call(ctx, http.MethodPost, "/terms", data, &out); err != nil {
		return nil, err
	}
	return &out.Term, nil
}

func (p *schoolProvider) UpdateTerm(ctx context.Context, id model.ID, data model.TermForm) (*model.Term, error) {
	var out model.TermResponse
	if err := p.call(ctx, http.MethodPut, fmt.Sprintf("/terms/%s", seg(id)), data, &out); err != nil {
		return nil, err
	}
	return &out.Term, nil
}

func (p *schoolProvider) DeleteTerm(ctx context.Context, id model.ID) error {
	var out model.DeleteResponse
	return p.call(ctx, http.MethodDelete, fmt.Sprintf("/terms/%s", seg(id)), nil, &out)
}

func (p *schoolProvider) ListCourses(ctx context.Context) ([]model.Course, error) {
	var out model.CoursesResponse
	if err := p.call(ctx, http.MethodGet, "/courses", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Data), nil
}

func (p *schoolProvider) GetCourse(ctx context.Context, id model.ID) (*model.Course, error) {
	var out model.CourseResponse
	if err := p.call(ctx, http.MethodGet, fmt.Sprintf("/courses/%s", seg(id)), nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (p *schoolProvider) CreateCourse(ctx context.Context, data model.CourseForm) (*model.Course, error) {
	var out model.CourseResponse
	if err := p.call(ctx, http.MethodPost, "/courses", data, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (p *schoolProvider) UpdateCourse(ctx context.Context, id model.ID, data model.CourseForm) (*model.Course, error) {
	var out model.CourseResponse
	if err := p.call(ctx, http.MethodPut, fmt.Sprintf("/courses/%s", seg(id)), data, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (p *schoolProvider) DeleteCourse(ctx context.Context, id model.ID) error {
	var out model.DeleteResponse
	return p.call(ctx, http.MethodDelete, fmt.Sprintf("/courses/%s", seg(id)), nil, &out)
}

func (p *schoolProvider) ListClassesByTerm(ctx context.Context, termID model.ID) ([]model.Class, error) {
	var out model.ClassesResponse
	if err := p.call(ctx, http.MethodGet, fmt.Sprintf("/terms/%s/classes", seg(termID)), nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Classes), nil
}

func (p *schoolProvider) CreateClass(ctx context.Context, data model.ClassForm) (*model.Class, error) {
	var out model.ClassResponse
	if err := p.call(ctx, http.MethodPost, fmt.Sprintf("/terms/%s/classes", seg(data.TermID)), data, &out); err != nil {
		return nil, err
	}
	return &out.Class, nil
}

func (p *schoolProvider) UpdateClass(ctx context.Context, id model.ID, data model.ClassForm) (*model.Class, error) {
	var out model.ClassResponse
	if err := p.call(ctx, http.MethodPut, fmt.Sprintf("/terms/%s/classes/%s", seg(data.TermID), seg(id)), data, &out); err != nil {
		return nil, err
	}
	return &out.Class, nil
}

func (p *schoolProvider) DeleteClass(ctx context.Context, termID, id model.ID) error {
	var out model.DeleteResponse
	return p.call(ctx, http.MethodDelete, fmt.Sprintf("/terms/%s/classes/%s", seg(termID), seg(id)), nil, &out)
}

func (p *schoolProvider) ListStudentsByClass(ctx context.Context, classID model.ID) ([]model.Student, error) {
	var out model.StudentsResponse
	if err := p.call(ctx, http.MethodGet, fmt.Sprintf("/classes/%s/students", seg(classID)), nil, &out); err != nil {
		return nil, err
	}
	return nonNil([]model.Student(out.Data)), nil
}

func (p *schoolProvider) DeleteStudent(ctx context.Context, id model.ID) error {
	var out model.DeleteResponse
	return p.call(ctx, http.MethodDelete, fmt.Sprintf("/students/%s", seg(id)), nil, &out)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// seg escapes an id for use as one path segment, so it can never step into
// another resource.
func seg(id model.ID) string {
	s := url.PathEscape(string(id))
	if s == "." || s == ".." {
		return strings.ReplaceAll(s, ".", "%2E")
	}
	return s
}
