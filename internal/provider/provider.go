package provider

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
)

var (
	ErrNetwork        = errors.New("backend unreachable")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidSession = errors.New("invalid session")
	ErrRefreshFailed  = errors.New("token refresh failed")
	ErrForbidden      = errors.New("permission denied")
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrServer         = errors.New("server error")
	ErrRejected       = errors.New("request rejected")
	ErrNoRole         = errors.New("user role could not be determined")
)

type Kind int

const (
	KindOther Kind = iota
	KindNetwork
	KindUnauthorized
	KindForbidden
	KindValidation
	KindNotFound
	KindServer
)

func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= 500:
		return KindServer
	}
	return KindOther
}

// APIError is a failed backend call. Status, Message and Errors are what the backend sent.
type APIError struct {
	Status  int
	Kind    Kind
	Message string
	Errors  map[string][]string
	// Retried is set when the failure came from the single retry after a refresh.
	Retried bool
	Err     error
}

func (e *APIError) Error() string {
	switch {
	case e.Kind == KindNetwork:
		return fmt.Sprintf("backend unreachable: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrInvalidSession:
		return e.Kind == KindUnauthorized && e.Retried
	case ErrForbidden:
		return e.Kind == KindForbidden
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrServer:
		return e.Kind == KindServer
	}
	return false
}

// FieldMessages flattens validation errors into "field: message" lines, ordered by field.
func (e *APIError) FieldMessages() []string {
	var out []string
	fields := maps.Keys(e.Errors)
	slices.Sort(fields)
	for _, field := range fields {
		for _, msg := range e.Errors[field] {
			out = append(out, field+": "+msg)
		}
	}
	return out
}

// RefreshError is returned by a call whose 401 could not be recovered because /auth/refresh failed.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s: %v", ErrRefreshFailed, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

func (e *RefreshError) Is(target error) bool { return target == ErrRefreshFailed }

// RejectedError is a 2xx response whose envelope carried status=false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return ErrRejected.Error()
	}
	return e.Message
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

// UserMessage turns any error from the backend into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Error()
	}

	if errors.Is(err, ErrRefreshFailed) || errors.Is(err, ErrInvalidSession) {
		return "Your session is no longer valid. Please sign in again."
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		if errors.Is(err, ErrNoRole) {
			return "User role could not be determined from API response."
		}
		return "Unexpected error. Please try again."
	}

	switch apiErr.Kind {
	case KindNetwork:
		return "Network Error: Please check your internet connection."
	case KindUnauthorized:
		return "Your session is no longer valid. Please sign in again."
	case KindForbidden:
		return "You do not have permission to perform this action."
	case KindValidation:
		if lines := apiErr.FieldMessages(); len(lines) > 0 {
			return strings.Join(lines, "\n")
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "Validation error"
	case KindNotFound:
		return "The requested item was not found."
	case KindServer:
		return "Server error. Please try again later."
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return "Request failed"
}
