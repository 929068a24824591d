package http

import (
	"log/slog"
	"net/http"
	"strings"

	"console/internal/guard"
	"console/internal/model"
	"console/internal/services/auth"
)

type loginForm struct {
	Email string
}

func (s *Server) authService(v *visit) *auth.Auth {
	return auth.NewService(s.backend(v), v.store, s.log)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login", http.StatusOK, page{Title: "Sign in", Data: loginForm{}})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	creds := model.Credentials{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}

	v := visitFrom(r.Context())
	landing, err := s.authService(v).Login(r.Context(), creds)
	if err != nil {
		s.render(w, r, "login", http.StatusUnprocessableEntity, page{
			Title: "Sign in",
			Error: auth.Message(err),
			Data:  loginForm{Email: creds.Email},
		})
		return
	}

	http.Redirect(w, r, landing, http.StatusSeeOther)
}

type registerForm struct {
	FirstName string
	LastName  string
	Email     string
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register", http.StatusOK, page{Title: "Create account", Data: registerForm{}})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	data := model.RegisterData{
		FirstName:            strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:             strings.TrimSpace(r.PostFormValue("last_name")),
		Email:                strings.TrimSpace(r.PostFormValue("email")),
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: r.PostFormValue("password_confirmation"),
	}

	v := visitFrom(r.Context())
	landing, err := s.authService(v).Register(r.Context(), data)
	if err != nil {
		if s.navigated(w, r, v) {
			return
		}
		s.render(w, r, "register", http.StatusUnprocessableEntity, page{
			Title: "Create account",
			Error: auth.Message(err),
			Data:  registerForm{FirstName: data.FirstName, LastName: data.LastName, Email: data.Email},
		})
		return
	}

	http.Redirect(w, r, landing, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	if err := s.authService(v).Logout(r.Context()); err != nil {
		s.log.Error("logout failed", slog.String("error", err.Error()))
	}
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}

func (s *Server) handleUnauthorized(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r.Context())
	sess, _ := v.store.Session(r.Context())
	back := guard.LoginPath
	if sess != nil {
		back = auth.Landing(sess.Role)
	}
	s.render(w, r, "unauthorized", http.StatusForbidden, page{Title: "Unauthorized", User: sess, Data: back})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "dashboard", http.StatusOK, page{Title: "Admin dashboard"})
}

func (s *Server) handleMainPanel(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "main_panel", http.StatusOK, page{Title: "Main panel"})
}
