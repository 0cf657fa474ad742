package http

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"homebudget/internal/core"
	"homebudget/internal/files"
)

const maxUploadBytes = 8 << 20

func (s *Server) handleExpenseIndex(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	expenses, err := s.repo.ListExpenses(r.Context(), session.UserID)
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	categories, err := s.repo.ListCategories(r.Context(), session.UserID)
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	setting, _, err := s.repo.GetSetting(r.Context(), session.UserID)
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	s.render(w, r, "expenses.html", map[string]any{
		"Flash":         s.takeFlash(w, r),
		"UserName":      session.UserName,
		"Expenses":      expenses,
		"Categories":    categories,
		"DefaultDoneBy": setting.DefaultDoneBy,
		"Today":         time.Now().Format("2006-01-02"),
	})
}

func (s *Server) handleExpenseAdd(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	expense, upload, err := s.parseExpenseForm(r)
	if err != nil {
		s.fail(w, r, err, "/expenses/")
		return
	}
	expense.UserID = session.UserID

	if upload != nil {
		defer upload.file.Close()
		// Disallowed extensions drop the attachment but keep the record.
		if files.AllowedAttachment(upload.name) {
			stored, err := s.uploads.Save(session.UserID, upload.name, upload.file)
			if err != nil {
				s.fail(w, r, err, "/expenses/")
				return
			}
			expense.Attachment = stored
		} else {
			slog.InfoContext(r.Context(), "Attachment dropped, extension not allowed",
				"user_id", session.UserID, "filename", upload.name)
		}
	}

	if _, err := s.repo.CreateExpense(r.Context(), expense); err != nil {
		s.fail(w, r, err, "/expenses/")
		return
	}
	http.Redirect(w, r, "/expenses/", http.StatusSeeOther)
}

func (s *Server) handleExpenseEditForm(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, "/expenses/")
		return
	}
	expense, err := s.repo.GetExpense(r.Context(), session.UserID, id)
	if err != nil {
		s.fail(w, r, err, "/expenses/")
		return
	}
	categories, err := s.repo.ListCategories(r.Context(), session.UserID)
	if err != nil {
		s.fail(w, r, err, "/expenses/")
		return
	}
	s.render(w, r, "expense_form.html", map[string]any{
		"Flash":      s.takeFlash(w, r),
		"Action":     r.URL.Path,
		"Expense":    expense,
		"Categories": categories,
	})
}

func (s *Server) handleExpenseEdit(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, "/expenses/")
		return
	}

	current, err := s.repo.GetExpense(r.Context(), session.UserID, id)
	if err != nil {
		s.fail(w, r, err, "/expenses/")
		return
	}

	expense, upload, err := s.parseExpenseForm(r)
	if err != nil {
		s.fail(w, r, err, r.URL.Path)
		return
	}
	expense.ID = id
	expense.UserID = session.UserID
	expense.Attachment = current.Attachment

	if upload != nil {
		defer upload.file.Close()
		if files.AllowedAttachment(upload.name) {
			// The replaced file stays on disk; there is no garbage
			// collection of orphaned attachments.
			stored, err := s.uploads.Save(session.UserID, upload.name, upload.file)
			if err != nil {
				s.fail(w, r, err, "/expenses/")
				return
			}
			expense.Attachment = stored
		}
	}

	if err := s.repo.UpdateExpense(r.Context(), expense); err != nil {
		s.fail(w, r, err, "/expenses/")
		return
	}
	http.Redirect(w, r, "/expenses/", http.StatusSeeOther)
}

func (s *Server) handleExpenseDelete(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, "/expenses/")
		return
	}
	if err := s.repo.DeleteExpense(r.Context(), session.UserID, id); err != nil {
		s.fail(w, r, err, "/expenses/")
		return
	}
	http.Redirect(w, r, "/expenses/", http.StatusSeeOther)
}

// handleAttachment serves a stored receipt to its owner only. Foreign and
// missing files answer identically with 404.
func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	name := r.PathValue("name")
	if !files.OwnedBy(name, session.UserID) {
		http.NotFound(w, r)
		return
	}
	f, err := s.uploads.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", "inline; filename=\""+name+"\"")
	if _, err := io.Copy(w, f); err != nil {
		slog.WarnContext(r.Context(), "Attachment streaming interrupted", "error", err, "file", name)
	}
}

type expenseUpload struct {
	name string
	file io.ReadCloser
}

func (s *Server) parseExpenseForm(r *http.Request) (core.Expense, *expenseUpload, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		// Plain form posts without a file are fine too.
		if err := r.ParseForm(); err != nil {
			return core.Expense{}, nil, &core.ValidationError{Field: "form", Reason: "malformed request"}
		}
	}

	cents, err := core.ParseAmountCents(r.Form.Get("amount"))
	if err != nil {
		return core.Expense{}, nil, err
	}
	date, err := core.ParseDate(r.Form.Get("date"))
	if err != nil {
		return core.Expense{}, nil, err
	}

	expense := core.Expense{
		Amount:   core.Money{Cents: cents},
		Category: sanitizeInput(r.Form.Get("category")),
		Note:     sanitizeInput(r.Form.Get("note")),
		Date:     date,
		DoneBy:   sanitizeInput(r.Form.Get("done_by")),
	}
	if err := expense.Validate(); err != nil {
		return core.Expense{}, nil, err
	}

	var upload *expenseUpload
	if file, header, err := r.FormFile("attachment"); err == nil {
		upload = &expenseUpload{name: header.Filename, file: file}
	}
	return expense, upload, nil
}
