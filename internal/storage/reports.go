package storage

import (
	"context"
	"database/sql"
	"fmt"

	"homebudget/internal/core"
)

// Read-side aggregations for the reporting layer. Every query treats "no
// rows" as zero totals, never as an error.

func (r *SQLiteRepository) SumIncome(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM income WHERE user_id = ?", userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum income: %w", err)
	}
	return total, nil
}

func (r *SQLiteRepository) SumExpenses(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM expense WHERE user_id = ?", userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

// ExpensesByPerson sums live expenses grouped by done_by, the proxy for
// actual income per household member.
func (r *SQLiteRepository) ExpensesByPerson(ctx context.Context, userID int64) ([]core.PersonTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT done_by, COALESCE(SUM(amount_cents), 0)
		 FROM expense WHERE user_id = ? GROUP BY done_by ORDER BY done_by`, userID)
	if err != nil {
		return nil, fmt.Errorf("expenses by person: %w", err)
	}
	defer rows.Close()
	return scanPersonTotals(rows)
}

func (r *SQLiteRepository) CategoryBreakdown(ctx context.Context, userID int64) ([]core.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, COALESCE(SUM(amount_cents), 0), COUNT(*)
		 FROM expense WHERE user_id = ? GROUP BY category ORDER BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	defer rows.Close()
	return scanCategoryTotals(rows)
}

// DailyBreakdown sums live expenses per calendar day, chronologically.
func (r *SQLiteRepository) DailyBreakdown(ctx context.Context, userID int64) ([]core.DayTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT expense_date, COALESCE(SUM(amount_cents), 0)
		 FROM expense WHERE user_id = ? GROUP BY expense_date ORDER BY expense_date`, userID)
	if err != nil {
		return nil, fmt.Errorf("daily breakdown: %w", err)
	}
	defer rows.Close()

	var days []core.DayTotal
	for rows.Next() {
		var dateStr string
		var dt core.DayTotal
		if err := rows.Scan(&dateStr, &dt.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan day total: %w", err)
		}
		d, err := core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("stored date %q: %w", dateStr, err)
		}
		dt.Date = d
		days = append(days, dt)
	}
	return days, rows.Err()
}

// === Archive queries ===

// ArchivedMonths enumerates the distinct month keys present in either
// archive table, newest first.
func (r *SQLiteRepository) ArchivedMonths(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT month FROM (
		   SELECT month FROM archived_income WHERE user_id = ?
		   UNION
		   SELECT month FROM archived_expense WHERE user_id = ?
		 ) ORDER BY month DESC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("archived months: %w", err)
	}
	defer rows.Close()

	var months []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

func (r *SQLiteRepository) ListArchivedIncomes(ctx context.Context, userID int64, month string) ([]core.ArchivedIncome, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, source, amount_cents, month
		 FROM archived_income WHERE user_id = ? AND month = ? ORDER BY amount_cents DESC`, userID, month)
	if err != nil {
		return nil, fmt.Errorf("list archived incomes: %w", err)
	}
	defer rows.Close()

	var incomes []core.ArchivedIncome
	for rows.Next() {
		var in core.ArchivedIncome
		if err := rows.Scan(&in.ID, &in.UserID, &in.Source, &in.Amount.Cents, &in.Month); err != nil {
			return nil, fmt.Errorf("scan archived income: %w", err)
		}
		incomes = append(incomes, in)
	}
	return incomes, rows.Err()
}

func (r *SQLiteRepository) ListArchivedExpenses(ctx context.Context, userID int64, month string) ([]core.ArchivedExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, category, note, expense_date, done_by, month
		 FROM archived_expense WHERE user_id = ? AND month = ? ORDER BY expense_date, id`, userID, month)
	if err != nil {
		return nil, fmt.Errorf("list archived expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.ArchivedExpense
	for rows.Next() {
		var e core.ArchivedExpense
		var note sql.NullString
		var dateStr string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Category, &note, &dateStr, &e.DoneBy, &e.Month); err != nil {
			return nil, fmt.Errorf("scan archived expense: %w", err)
		}
		e.Note = note.String
		d, err := core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("stored date %q: %w", dateStr, err)
		}
		e.Date = d
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *SQLiteRepository) SumArchivedIncome(ctx context.Context, userID int64, month string) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM archived_income WHERE user_id = ? AND month = ?",
		userID, month).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum archived income: %w", err)
	}
	return total, nil
}

func (r *SQLiteRepository) SumArchivedExpenses(ctx context.Context, userID int64, month string) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM archived_expense WHERE user_id = ? AND month = ?",
		userID, month).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum archived expenses: %w", err)
	}
	return total, nil
}

func (r *SQLiteRepository) ArchivedExpensesByPerson(ctx context.Context, userID int64, month string) ([]core.PersonTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT done_by, COALESCE(SUM(amount_cents), 0)
		 FROM archived_expense WHERE user_id = ? AND month = ? GROUP BY done_by ORDER BY done_by`,
		userID, month)
	if err != nil {
		return nil, fmt.Errorf("archived expenses by person: %w", err)
	}
	defer rows.Close()
	return scanPersonTotals(rows)
}

func (r *SQLiteRepository) ArchivedCategoryBreakdown(ctx context.Context, userID int64, month string) ([]core.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, COALESCE(SUM(amount_cents), 0), COUNT(*)
		 FROM archived_expense WHERE user_id = ? AND month = ? GROUP BY category ORDER BY category`,
		userID, month)
	if err != nil {
		return nil, fmt.Errorf("archived category breakdown: %w", err)
	}
	defer rows.Close()
	return scanCategoryTotals(rows)
}

func (r *SQLiteRepository) ArchivedSourceBreakdown(ctx context.Context, userID int64, month string) ([]core.SourceTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT source, COALESCE(SUM(amount_cents), 0)
		 FROM archived_income WHERE user_id = ? AND month = ? GROUP BY source ORDER BY source`,
		userID, month)
	if err != nil {
		return nil, fmt.Errorf("archived source breakdown: %w", err)
	}
	defer rows.Close()

	var sources []core.SourceTotal
	for rows.Next() {
		var st core.SourceTotal
		if err := rows.Scan(&st.Source, &st.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan source total: %w", err)
		}
		sources = append(sources, st)
	}
	return sources, rows.Err()
}

// MonthlyArchiveTotals returns income and expense totals for every
// distinct archived month, oldest first, for trend lines.
func (r *SQLiteRepository) MonthlyArchiveTotals(ctx context.Context, userID int64) ([]core.MonthSummary, error) {
	months, err := r.ArchivedMonths(ctx, userID)
	if err != nil {
		return nil, err
	}

	// ArchivedMonths is newest-first; trends read oldest-first.
	summaries := make([]core.MonthSummary, 0, len(months))
	for i := len(months) - 1; i >= 0; i-- {
		month := months[i]
		income, err := r.SumArchivedIncome(ctx, userID, month)
		if err != nil {
			return nil, err
		}
		expenses, err := r.SumArchivedExpenses(ctx, userID, month)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, core.Summarize(month, income, expenses))
	}
	return summaries, nil
}

func scanPersonTotals(rows *sql.Rows) ([]core.PersonTotal, error) {
	var persons []core.PersonTotal
	for rows.Next() {
		var pt core.PersonTotal
		if err := rows.Scan(&pt.DoneBy, &pt.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan person total: %w", err)
		}
		persons = append(persons, pt)
	}
	return persons, rows.Err()
}

func scanCategoryTotals(rows *sql.Rows) ([]core.CategoryTotal, error) {
	var cats []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Name, &ct.Total.Cents, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		cats = append(cats, ct)
	}
	return cats, rows.Err()
}
