package http

import (
	"net/http"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	data, err := s.reports.Dashboard(r.Context(), session.UserID)
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	s.render(w, r, "dashboard.html", map[string]any{
		"Flash":    s.takeFlash(w, r),
		"UserName": session.UserName,
		"Data":     data,
	})
}
