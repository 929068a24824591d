package http

import (
	"net/http"
	"net/url"

	"console/internal/model"
	"console/internal/services/auth"
)

var errUnknownAction = &formError{field: "action", msg: "is not supported"}

// loadFailed renders a list page without its data after a failed fetch.
func (s *Server) loadFailed(w http.ResponseWriter, r *http.Request, name, title string, err error, empty any) {
	v := visitFrom(r.Context())
	if s.navigated(w, r, v) {
		return
	}
	s.render(w, r, name, http.StatusOK, page{Title: title, Error: message(err), Data: empty})
}

func (s *Server) handleTeachers(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	teachers, err := s.backend(v).ListTeachers(r.Context())
	if err != nil {
		s.loadFailed(w, r, "teachers", "Teachers", err, []model.Teacher{})
		return
	}
	s.render(w, r, "teachers", http.StatusOK, page{Title: "Teachers", Data: teachers})
}

func (s *Server) handleTeacherAction(w http.ResponseWriter, r *http.Request) {
	const back = "/admin/teachers"
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	v := visitFrom(r.Context())
	api := s.backend(v)

	id, err := formID(r, "id")
	if err != nil {
		s.done(w, r, err, back, "")
		return
	}

	switch r.PostFormValue("action") {
	case "update":
		salary, err := formFloat(r, "salary")
		if err == nil {
			_, err = api.UpdateTeacherSalary(r.Context(), id, model.TeacherUpdate{Salary: salary})
		}
		s.done(w, r, err, back, "Teacher salary updated successfully")
	case "delete":
		err := api.DeleteTeacher(r.Context(), id)
		s.done(w, r, err, back, "Teacher deleted successfully")
	default:
		s.done(w, r, errUnknownAction, back, "")
	}
}

type teacherFormData struct {
	Form model.TeacherRegistration
}

func (s *Server) handleTeacherForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "teacher_new", http.StatusOK, page{Title: "Register teacher", Data: teacherFormData{}})
}

func (s *Server) handleTeacherCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	v := visitFrom(r.Context())
	data := teacherRegistration(r)

	err := auth.ValidateTeacher(data)
	if err == nil {
		_, err = s.backend(v).RegisterTeacher(r.Context(), data)
	}
	if err != nil {
		if s.navigated(w, r, v) {
			return
		}
		data.Password, data.PasswordConfirmation = "", ""
		s.render(w, r, "teacher_new", http.StatusUnprocessableEntity, page{
			Title: "Register teacher",
			Error: message(err),
			Data:  teacherFormData{Form: data},
		})
		return
	}

	v.setFlash(r.Context(), flashSuccess, "Teacher registered successfully")
	http.Redirect(w, r, "/admin/teachers", http.StatusSeeOther)
}

func (s *Server) handleTerms(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	terms, err := s.backend(v).ListTerms(r.Context())
	if err != nil {
		s.loadFailed(w, r, "terms", "Terms", err, []model.Term{})
		return
	}
	s.render(w, r, "terms", http.StatusOK, page{Title: "Terms", Data: terms})
}

func (s *Server) handleTermAction(w http.ResponseWriter, r *http.Request) {
	const back = "/admin/terms"
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	v := visitFrom(r.Context())
	api := s.backend(v)

	switch r.PostFormValue("action") {
	case "create":
		form, err := termForm(r)
		if err == nil {
			_, err = api.CreateTerm(r.Context(), form)
		}
		s.done(w, r, err, back, "Term created successfully")
	case "update":
		id, err := formID(r, "id")
		if err == nil {
			var form model.TermForm
			if form, err = termForm(r); err == nil {
				_, err = api.UpdateTerm(r.Context(), id, form)
			}
		}
		s.done(w, r, err, back, "Term updated successfully")
	case "delete":
		id, err := formID(r, "id")
		if err == nil {
			err = api.DeleteTerm(r.Context(), id)
		}
		s.done(w, r, err, back, "Term deleted successfully")
	default:
		s.done(w, r, errUnknownAction, back, "")
	}
}

type coursesData struct {
	Courses []model.Course
	Editing *model.Course
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	api := s.backend(v)

	courses, err := api.ListCourses(r.Context())
	if err != nil {
		s.loadFailed(w, r, "courses", "Courses", err, coursesData{Courses: []model.Course{}})
		return
	}

	data := coursesData{Courses: courses}
	p := page{Title: "Courses", Data: &data}
	if id := r.URL.Query().Get("edit"); id != "" {
		course, err := api.GetCourse(r.Context(), model.ID(id))
		if err != nil {
			if s.navigated(w, r, v) {
				return
			}
			p.Error = "Failed to fetch course details: " + message(err)
		}
		data.Editing = course
	}
	s.render(w, r, "courses", http.StatusOK, p)
}

func (s *Server) handleCourseAction(w http.ResponseWriter, r *http.Request) {
	const back = "/admin/courses"
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	v := visitFrom(r.Context())
	api := s.backend(v)

	switch r.PostFormValue("action") {
	case "create":
		form, err := courseForm(r)
		if err == nil {
			_, err = api.CreateCourse(r.Context(), form)
		}
		s.done(w, r, err, back, "Course added successfully")
	case "update":
		id, err := formID(r, "id")
		if err == nil {
			var form model.CourseForm
			if form, err = courseForm(r); err == nil {
				_, err = api.UpdateCourse(r.Context(), id, form)
			}
		}
		s.done(w, r, err, back, "Course updated successfully")
	case "delete":
		id, err := formID(r, "id")
		if err == nil {
			err = api.DeleteCourse(r.Context(), id)
		}
		s.done(w, r, err, back, "Course deleted successfully")
	default:
		s.done(w, r, errUnknownAction, back, "")
	}
}

type classesData struct {
	Terms    []model.Term
	Courses  []model.Course
	Teachers []model.Teacher
	TermID   model.ID
	Classes  []model.Class
}

func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	api := s.backend(v)
	ctx := r.Context()

	data := classesData{TermID: model.ID(r.URL.Query().Get("term"))}
	var err error
	if data.Terms, err = api.ListTerms(ctx); err == nil {
		if data.Courses, err = api.ListCourses(ctx); err == nil {
			data.Teachers, err = api.ListTeachers(ctx)
		}
	}
	if err == nil && data.TermID != "" {
		data.Classes, err = api.ListClassesByTerm(ctx, data.TermID)
	}
	if err != nil {
		s.loadFailed(w, r, "classes", "Classes", err, classesData{TermID: data.TermID})
		return
	}
	s.render(w, r, "classes", http.StatusOK, page{Title: "Classes", Data: data})
}

func (s *Server) handleClassAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	v := visitFrom(r.Context())
	api := s.backend(v)
	back := "/admin/classes"
	if term := formString(r, "term_id"); term != "" {
		back += "?" + url.Values{"term": {term}}.Encode()
	}

	switch r.PostFormValue("action") {
	case "create":
		form, err := classForm(r)
		if err == nil {
			_, err = api.CreateClass(r.Context(), form)
		}
		s.done(w, r, err, back, "Class created successfully")
	case "update":
		id, err := formID(r, "id")
		if err == nil {
			var form model.ClassForm
			if form, err = classForm(r); err == nil {
				_, err = api.UpdateClass(r.Context(), id, form)
			}
		}
		s.done(w, r, err, back, "Class updated successfully")
	case "delete":
		err := deleteScoped(r, func(termID, id model.ID) error {
			return api.DeleteClass(r.Context(), termID, id)
		})
		s.done(w, r, err, back, "Class deleted successfully")
	default:
		s.done(w, r, errUnknownAction, back, "")
	}
}

func deleteScoped(r *http.Request, del func(termID, id model.ID) error) error {
	termID, err := formID(r, "term_id")
	if err != nil {
		return err
	}
	id, err := formID(r, "id")
	if err != nil {
		return err
	}
	return del(termID, id)
}

type studentsData struct {
	Terms    []model.Term
	Classes  []model.Class
	Students []model.Student
	TermID   model.ID
	ClassID  model.ID
}

func (s *Server) handleStudents(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	api := s.backend(v)
	ctx := r.Context()
	q := r.URL.Query()

	data := studentsData{TermID: model.ID(q.Get("term")), ClassID: model.ID(q.Get("class"))}
	var err error
	data.Terms, err = api.ListTerms(ctx)
	if err == nil && data.TermID != "" {
		data.Classes, err = api.ListClassesByTerm(ctx, data.TermID)
	}
	if err == nil && data.ClassID != "" {
		data.Students, err = api.ListStudentsByClass(ctx, data.ClassID)
	}
	if err != nil {
		s.loadFailed(w, r, "students", "Students", err, studentsData{TermID: data.TermID, ClassID: data.ClassID})
		return
	}
	s.render(w, r, "students", http.StatusOK, page{Title: "Students", Data: data})
}

func (s *Server) handleStudentAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	v := visitFrom(r.Context())
	q := url.Values{}
	if term := formString(r, "term_id"); term != "" {
		q.Set("term", term)
	}
	if class := formString(r, "class_id"); class != "" {
		q.Set("class", class)
	}
	back := "/admin/students"
	if len(q) > 0 {
		back += "?" + q.Encode()
	}

	if r.PostFormValue("action") != "delete" {
		s.done(w, r, errUnknownAction, back, "")
		return
	}
	id, err := formID(r, "id")
	if err == nil {
		err = s.backend(v).DeleteStudent(r.Context(), id)
	}
	s.done(w, r, err, back, "Student deleted successfully")
}
