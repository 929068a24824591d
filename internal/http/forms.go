package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"console/internal/model"
	"console/internal/services/auth"
)

type formError struct {
	field string
	msg   string
}

func (e *formError) Error() string { return e.field + ": " + e.msg }

// message is the text shown to the user for err.
func message(err error) string {
	var fe *formError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	return auth.Message(err)
}

func formString(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

func formID(r *http.Request, key string) (model.ID, error) {
	v := formString(r, key)
	if v == "" {
		return "", &formError{field: key, msg: "is required"}
	}
	return model.ID(v), nil
}

func formInt(r *http.Request, key string) (int, error) {
	v := formString(r, key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &formError{field: key, msg: "must be a whole number"}
	}
	return n, nil
}

func formFloat(r *http.Request, key string) (float64, error) {
	v := formString(r, key)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, &formError{field: key, msg: "must be a non-negative number"}
	}
	return f, nil
}

func formBool(r *http.Request, key string) bool {
	switch formString(r, key) {
	case "on", "true", "1":
		return true
	}
	return false
}

func termForm(r *http.Request) (model.TermForm, error) {
	year, err := formInt(r, "year")
	if err != nil {
		return model.TermForm{}, err
	}
	f := model.TermForm{
		Year:      year,
		Season:    formString(r, "season"),
		StartDate: formString(r, "start_date"),
		EndDate:   formString(r, "end_date"),
		IsActive:  formBool(r, "is_active"),
	}
	if f.Season == "" {
		return f, &formError{field: "season", msg: "is required"}
	}
	return f, nil
}

func courseForm(r *http.Request) (model.CourseForm, error) {
	f := model.CourseForm{
		Title:       formString(r, "title"),
		Level:       formString(r, "level"),
		Description: formString(r, "description"),
	}
	if f.Title == "" {
		return f, &formError{field: "title", msg: "is required"}
	}
	return f, nil
}

func classForm(r *http.Request) (model.ClassForm, error) {
	termID, err := formID(r, "term_id")
	if err != nil {
		return model.ClassForm{}, err
	}
	fee, err := formFloat(r, "tuition_fee")
	if err != nil {
		return model.ClassForm{}, err
	}
	capacity, err := formInt(r, "capacity")
	if err != nil {
		return model.ClassForm{}, err
	}
	f := model.ClassForm{
		Name:                  formString(r, "name"),
		CourseID:              model.ID(formString(r, "course_id")),
		TermID:                termID,
		TeacherID:             model.ID(formString(r, "teacher_id")),
		StartDate:             formString(r, "start_date"),
		EndDate:               formString(r, "end_date"),
		TuitionFee:            fee,
		Capacity:              capacity,
		StartRegistrationDate: formString(r, "start_registration_date"),
		EndRegistrationDate:   formString(r, "end_registration_date"),
	}
	if f.Name == "" {
		return f, &formError{field: "name", msg: "is required"}
	}
	return f, nil
}

func teacherRegistration(r *http.Request) model.TeacherRegistration {
	return model.TeacherRegistration{
		NationalID:           formString(r, "national_id"),
		FirstName:            formString(r, "first_name"),
		LastName:             formString(r, "last_name"),
		Phone:                formString(r, "phone"),
		Email:                formString(r, "email"),
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: r.PostFormValue("password_confirmation"),
	}
}

func formatMoney(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
