package http

import (
	"net/http"

	"homebudget/internal/core"
)

func (s *Server) handleCategoryIndex(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	categories, err := s.repo.ListCategories(r.Context(), session.UserID)
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	s.render(w, r, "categories.html", map[string]any{
		"Flash":      s.takeFlash(w, r),
		"UserName":   session.UserName,
		"Categories": categories,
	})
}

func (s *Server) handleCategoryAdd(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	if name == "" || len(name) > core.MaxNameLen {
		s.setFlash(w, "Category name is required (max 100 chars).")
		http.Redirect(w, r, "/categories/", http.StatusSeeOther)
		return
	}

	// Duplicate names are a silent no-op.
	if err := s.repo.UpsertCategory(r.Context(), session.UserID, name); err != nil {
		s.fail(w, r, err, "/categories/")
		return
	}
	http.Redirect(w, r, "/categories/", http.StatusSeeOther)
}

func (s *Server) handleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, "/categories/")
		return
	}
	if err := s.repo.DeleteCategory(r.Context(), session.UserID, id); err != nil {
		s.fail(w, r, err, "/categories/")
		return
	}
	http.Redirect(w, r, "/categories/", http.StatusSeeOther)
}
