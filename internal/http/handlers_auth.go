package http

import (
	"log/slog"
	"net/http"

	"homebudget/internal/auth"
	"homebudget/internal/files"
)

// signupForm and loginForm are validated with struct tags; ledger fields
// elsewhere go through the domain Validate methods instead.
type signupForm struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=8,max=128"`
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "signup.html", map[string]any{"Flash": s.takeFlash(w, r)})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	form := signupForm{
		Name:     sanitizeInput(r.Form.Get("name")),
		Email:    normalizeEmail(r.Form.Get("email")),
		Password: r.Form.Get("password"),
	}
	if err := s.validate.Struct(form); err != nil {
		s.setFlash(w, "All fields are required; passwords need at least 8 characters.")
		http.Redirect(w, r, "/auth/signup", http.StatusSeeOther)
		return
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		s.fail(w, r, err, "/auth/signup")
		return
	}

	if _, err := s.repo.CreateUser(r.Context(), form.Name, form.Email, hash); err != nil {
		if isEmailTaken(err) {
			s.setFlash(w, "Email already exists.")
			http.Redirect(w, r, "/auth/signup", http.StatusSeeOther)
			return
		}
		s.fail(w, r, err, "/auth/signup")
		return
	}

	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", map[string]any{"Flash": s.takeFlash(w, r)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	form := loginForm{
		Email:    normalizeEmail(r.Form.Get("email")),
		Password: r.Form.Get("password"),
	}
	if err := s.validate.Struct(form); err != nil {
		s.rejectLogin(w, r)
		return
	}

	user, err := s.repo.GetUserByEmail(r.Context(), form.Email)
	if err != nil {
		// Unknown email and wrong password answer identically.
		s.rejectLogin(w, r)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, form.Password) {
		s.rejectLogin(w, r)
		return
	}

	token, err := s.tokens.Generate(user.ID, user.Name)
	if err != nil {
		s.fail(w, r, err, "/auth/login")
		return
	}
	s.setSessionCookie(w, token, s.tokens.TTL())

	slog.InfoContext(r.Context(), "User logged in", "user_id", user.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) rejectLogin(w http.ResponseWriter, r *http.Request) {
	s.setFlash(w, "Invalid credentials. Want to sign up?")
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/auth/login", http.StatusFound)
}

func (s *Server) handleProfileForm(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	user, err := s.repo.GetUser(r.Context(), session.UserID)
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	s.render(w, r, "profile.html", map[string]any{
		"Flash": s.takeFlash(w, r),
		"User":  user,
	})
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if name := sanitizeInput(r.FormValue("name")); name != "" {
		if err := s.repo.UpdateUserName(r.Context(), session.UserID, name); err != nil {
			s.fail(w, r, err, "/auth/profile")
			return
		}
		// Refresh the session so the new name shows up immediately.
		if token, err := s.tokens.Generate(session.UserID, name); err == nil {
			s.setSessionCookie(w, token, s.tokens.TTL())
		}
	}

	file, header, err := r.FormFile("avatar")
	if err == nil {
		defer file.Close()
		if files.AllowedAvatar(header.Filename) {
			stored, err := s.uploads.Save(session.UserID, header.Filename, file)
			if err != nil {
				s.fail(w, r, err, "/auth/profile")
				return
			}
			if err := s.repo.UpdateUserAvatar(r.Context(), session.UserID, stored); err != nil {
				s.fail(w, r, err, "/auth/profile")
				return
			}
		}
	}

	http.Redirect(w, r, "/auth/profile", http.StatusSeeOther)
}
