package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"console/internal/model"
	"console/internal/provider"
)

const (
	ManagerLanding = "/admin-dashboard"
	PanelLanding   = "/main-panel"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoAccessToken      = errors.New("backend returned no access token")
)

type Backend interface {
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error)
	Register(ctx context.Context, data model.RegisterData) (*model.AuthResponse, error)
}

type SessionStore interface {
	Set(ctx context.Context, sess *model.Session, token string) error
	Clear(ctx context.Context) error
}

type Auth struct {
	backend  Backend
	sessions SessionStore
	log      *slog.Logger
}

func NewService(backend Backend, sessions SessionStore, log *slog.Logger) *Auth {
	return &Auth{
		backend:  backend,
		sessions: sessions,
		log:      log,
	}
}

// Login authenticates against the backend and stores the resulting session.
// It returns the page the user should land on.
func (a *Auth) Login(ctx context.Context, creds model.Credentials) (string, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := validateEmail(creds.Email); err != nil {
		return "", err
	}
	if creds.Password == "" {
		return "", ErrPasswordRequired
	}

	resp, err := a.backend.Login(ctx, creds)
	if err != nil {
		a.log.Warn("login failed", slog.String("email", creds.Email), slog.String("error", err.Error()))
		// a 401 on login means bad credentials; the refresh attempt it triggers
		// fails with a 401 too, which errors.Is finds through the RefreshError
		if errors.Is(err, provider.ErrUnauthorized) {
			return "", ErrInvalidCredentials
		}
		// nobody is signed in yet, so report why the refresh failed
		var rerr *provider.RefreshError
		if errors.As(err, &rerr) {
			return "", rerr.Err
		}
		return "", err
	}

	return a.establish(ctx, resp)
}

// Register creates the account and signs the user in with the returned identity.
func (a *Auth) Register(ctx context.Context, data model.RegisterData) (string, error) {
	data.Email = strings.TrimSpace(data.Email)
	if err := validateRegistration(data); err != nil {
		return "", err
	}

	resp, err := a.backend.Register(ctx, data)
	if err != nil {
		a.log.Warn("registration failed", slog.String("email", data.Email), slog.String("error", err.Error()))
		return "", err
	}

	return a.establish(ctx, resp)
}

func (a *Auth) Logout(ctx context.Context) error {
	if err := a.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (a *Auth) establish(ctx context.Context, resp *model.AuthResponse) (string, error) {
	sess, err := SessionFrom(resp)
	if err != nil {
		a.log.Warn("cannot derive session", slog.String("error", err.Error()))
		return "", err
	}

	if err := a.sessions.Set(ctx, sess, resp.AccessToken); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	a.log.Info("user signed in",
		slog.String("user_id", sess.UserID),
		slog.String("role", string(sess.Role)))

	return Landing(sess.Role), nil
}

// SessionFrom derives the identity from a login or register response.
// The first role in the list is the user's role.
func SessionFrom(resp *model.AuthResponse) (*model.Session, error) {
	if resp == nil || resp.User == nil || len(resp.User.Roles) == 0 {
		return nil, provider.ErrNoRole
	}
	if resp.AccessToken == "" {
		return nil, ErrNoAccessToken
	}

	role := model.Role(resp.User.Roles[0].Name)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", provider.ErrNoRole, role)
	}

	return &model.Session{
		UserID:    string(resp.User.ID),
		Email:     resp.User.Email,
		FirstName: resp.User.FirstName,
		LastName:  resp.User.LastName,
		Role:      role,
	}, nil
}

func Landing(role model.Role) string {
	if role == model.RoleManager {
		return ManagerLanding
	}
	return PanelLanding
}

// Message is the text shown for err on the login and register forms.
func Message(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Msg
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrNoAccessToken):
		return "Login failed"
	}
	return provider.UserMessage(err)
}

var (
	ErrEmailRequired    = &ValidationError{Field: "email", Msg: "email is required"}
	ErrEmailMissingAt   = &ValidationError{Field: "email", Msg: "email doesn't contain the '@' symbol"}
	ErrEmailInvalidFmt  = &ValidationError{Field: "email", Msg: "email contains not valid characters"}
	ErrPasswordRequired = &ValidationError{Field: "password", Msg: "password is required"}
	ErrPasswordLow      = &ValidationError{Field: "password", Msg: "password must contain 8 characters or more"}
	ErrPasswordMismatch = &ValidationError{Field: "password_confirmation", Msg: "passwords do not match"}
	ErrNameRequired     = &ValidationError{Field: "name", Msg: "first and last name are required"}
)

// ValidationError is a form problem caught before the backend is called.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if !strings.Contains(email, "@") {
		return ErrEmailMissingAt
	}
	if !emailRe.MatchString(email) {
		return ErrEmailInvalidFmt
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < 8 {
		return ErrPasswordLow
	}
	return nil
}

func validateRegistration(data model.RegisterData) error {
	if strings.TrimSpace(data.FirstName) == "" || strings.TrimSpace(data.LastName) == "" {
		return ErrNameRequired
	}
	if err := validateEmail(data.Email); err != nil {
		return err
	}
	if err := validatePassword(data.Password); err != nil {
		return err
	}
	if data.Password != data.PasswordConfirmation {
		return ErrPasswordMismatch
	}
	return nil
}

// ValidateTeacher checks the teacher registration form the same way as self-registration.
func ValidateTeacher(data model.TeacherRegistration) error {
	return validateRegistration(model.RegisterData{
		FirstName:            data.FirstName,
		LastName:             data.LastName,
		Email:                strings.TrimSpace(data.Email),
		Password:             data.Password,
		PasswordConfirmation: data.PasswordConfirmation,
	})
}
