package http

import (
	"net/http"
	"strings"

	"homebudget/internal/services"
)

func (s *Server) handleHistoryIndex(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	ctx := r.Context()

	months, err := s.reports.Months(ctx, session.UserID)
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}

	selected := strings.TrimSpace(r.URL.Query().Get("month"))
	if selected == "" && len(months) > 0 {
		selected = months[0]
	}

	var report services.MonthReport
	if selected != "" {
		report, err = s.reports.Month(ctx, session.UserID, selected)
		if err != nil {
			s.fail(w, r, err, "/")
			return
		}
	}

	s.render(w, r, "history.html", map[string]any{
		"Flash":    s.takeFlash(w, r),
		"UserName": session.UserName,
		"Months":   months,
		"Selected": selected,
		"Report":   report,
	})
}

func (s *Server) handleHistoryCompare(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	ctx := r.Context()

	months, err := s.reports.Months(ctx, session.UserID)
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}

	m1 := strings.TrimSpace(r.URL.Query().Get("m1"))
	m2 := strings.TrimSpace(r.URL.Query().Get("m2"))
	if m1 == "" && len(months) > 0 {
		m1 = months[0]
	}
	if m2 == "" && len(months) > 1 {
		m2 = months[1]
	}

	var comparison services.Comparison
	if m1 != "" && m2 != "" {
		// A month with no archived rows compares as all zeros.
		comparison, err = s.reports.Compare(ctx, session.UserID, m1, m2)
		if err != nil {
			s.fail(w, r, err, "/history/")
			return
		}
	}

	trend, err := s.reports.Trend(ctx, session.UserID)
	if err != nil {
		s.fail(w, r, err, "/history/")
		return
	}

	s.render(w, r, "compare.html", map[string]any{
		"Flash":      s.takeFlash(w, r),
		"UserName":   session.UserName,
		"Months":     months,
		"M1":         m1,
		"M2":         m2,
		"Comparison": comparison,
		"Trend":      trend,
	})
}
