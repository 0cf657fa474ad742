package http

import (
	"net/http"

	"homebudget/internal/core"
)

func (s *Server) handleIncomeIndex(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	overview, err := s.reports.Income(r.Context(), session.UserID)
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	s.render(w, r, "income.html", map[string]any{
		"Flash":    s.takeFlash(w, r),
		"UserName": session.UserName,
		"Overview": overview,
	})
}

func (s *Server) handleIncomeAddForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "income_form.html", map[string]any{
		"Flash":  s.takeFlash(w, r),
		"Action": "/income/add",
	})
}

func (s *Server) handleIncomeAdd(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	income, err := s.parseIncomeForm(r)
	if err != nil {
		s.fail(w, r, err, "/income/add")
		return
	}
	income.UserID = session.UserID

	if _, err := s.repo.CreateIncome(r.Context(), income); err != nil {
		s.fail(w, r, err, "/income/add")
		return
	}
	http.Redirect(w, r, "/income/", http.StatusSeeOther)
}

func (s *Server) handleIncomeEditForm(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, "/income/")
		return
	}
	income, err := s.repo.GetIncome(r.Context(), session.UserID, id)
	if err != nil {
		s.fail(w, r, err, "/income/")
		return
	}
	s.render(w, r, "income_form.html", map[string]any{
		"Flash":  s.takeFlash(w, r),
		"Action": r.URL.Path,
		"Income": income,
	})
}

func (s *Server) handleIncomeEdit(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, "/income/")
		return
	}

	income, err := s.parseIncomeForm(r)
	if err != nil {
		s.fail(w, r, err, r.URL.Path)
		return
	}
	income.ID = id
	income.UserID = session.UserID

	if err := s.repo.UpdateIncome(r.Context(), income); err != nil {
		s.fail(w, r, err, "/income/")
		return
	}
	http.Redirect(w, r, "/income/", http.StatusSeeOther)
}

func (s *Server) handleIncomeDelete(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, "/income/")
		return
	}
	if err := s.repo.DeleteIncome(r.Context(), session.UserID, id); err != nil {
		s.fail(w, r, err, "/income/")
		return
	}
	http.Redirect(w, r, "/income/", http.StatusSeeOther)
}

func (s *Server) parseIncomeForm(r *http.Request) (core.Income, error) {
	if err := r.ParseForm(); err != nil {
		return core.Income{}, &core.ValidationError{Field: "form", Reason: "malformed request"}
	}

	cents, err := core.ParseAmountCents(r.Form.Get("amount"))
	if err != nil {
		return core.Income{}, err
	}
	income := core.Income{
		Source: sanitizeInput(r.Form.Get("source")),
		Amount: core.Money{Cents: cents},
	}
	if err := income.Validate(); err != nil {
		return core.Income{}, err
	}
	return income, nil
}
