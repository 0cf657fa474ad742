package http

import (
	"log/slog"
	"net/http"

	"homebudget/internal/core"
)

func (s *Server) handleSettingsIndex(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	ctx := r.Context()

	setting, _, err := s.repo.GetSetting(ctx, session.UserID)
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}

	// Open-period snapshot shown as the end-month preview.
	overview, err := s.reports.Income(ctx, session.UserID)
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	expenses, err := s.repo.SumExpenses(ctx, session.UserID)
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	months, err := s.reports.Months(ctx, session.UserID)
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}

	s.render(w, r, "settings.html", map[string]any{
		"Flash":          s.takeFlash(w, r),
		"UserName":       session.UserName,
		"Setting":        setting,
		"ExpectedIncome": overview.ExpectedIncome,
		"ActualIncome":   overview.ActualIncome,
		"Variance":       overview.Variance,
		"Expenses":       core.Money{Cents: expenses},
		"Net":            core.Money{Cents: overview.ExpectedIncome.Cents - expenses},
		"IncomeCount":    len(overview.Incomes),
		"ArchivedMonths": len(months),
	})
}

func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	limitCents, err := core.ParseAmountCents(r.Form.Get("limit"))
	if err != nil {
		s.setFlash(w, "Please enter valid numeric values.")
		http.Redirect(w, r, "/settings/", http.StatusSeeOther)
		return
	}
	// Savings may be negative; this path replaces the stored balance
	// rather than adding to it.
	savingsCents, err := core.ParseSignedCents(r.Form.Get("savings"))
	if err != nil {
		s.setFlash(w, "Please enter valid numeric values.")
		http.Redirect(w, r, "/settings/", http.StatusSeeOther)
		return
	}

	setting := core.Setting{
		UserID:        session.UserID,
		MonthlyLimit:  core.Money{Cents: limitCents},
		TotalSavings:  core.Money{Cents: savingsCents},
		DefaultDoneBy: sanitizeInput(r.Form.Get("default_done_by")),
	}
	if err := setting.Validate(); err != nil {
		s.fail(w, r, err, "/settings/")
		return
	}

	if err := s.repo.UpsertSetting(r.Context(), setting); err != nil {
		s.fail(w, r, err, "/settings/")
		return
	}
	http.Redirect(w, r, "/settings/", http.StatusSeeOther)
}

func (s *Server) handleEndMonth(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	result, err := s.closeout.EndMonth(r.Context(), session.UserID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Close-out failed", "error", err, "user_id", session.UserID)
		s.setFlash(w, "Closing the month failed; nothing was changed.")
		http.Redirect(w, r, "/settings/", http.StatusSeeOther)
		return
	}

	s.setFlash(w, "Month "+result.Month+" closed.")
	http.Redirect(w, r, "/settings/", http.StatusSeeOther)
}

func (s *Server) handleFreshStart(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	if err := s.closeout.FreshStart(r.Context(), session.UserID); err != nil {
		slog.ErrorContext(r.Context(), "Fresh start failed", "error", err, "user_id", session.UserID)
		s.setFlash(w, "Fresh start failed; nothing was changed.")
		http.Redirect(w, r, "/settings/", http.StatusSeeOther)
		return
	}

	s.setFlash(w, "All financial history deleted.")
	http.Redirect(w, r, "/settings/", http.StatusSeeOther)
}
