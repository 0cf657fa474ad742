package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// CloseOutResult reports what a committed close-out did.
type CloseOutResult struct {
	Month            string
	IncomeCents      int64
	ExpenseCents     int64
	NetCents         int64
	ArchivedIncomes  int64
	ArchivedExpenses int64
	SavingsUpdated   bool
}

// CloseOutMonth archives and clears the user's live ledger in a single
// transaction: sum the live tables, fold the net into total_savings when a
// setting row exists, copy every live row into the archive tables tagged
// with month, then delete the live rows. Either all of it commits or none
// of it does.
//
// Closing an empty ledger is legal: nothing is archived and savings stay
// untouched. Repeated calls within one calendar month stack additional
// archive batches under the same month key.
func (r *SQLiteRepository) CloseOutMonth(ctx context.Context, userID int64, month string) (CloseOutResult, error) {
	result := CloseOutResult{Month: month}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin close-out tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM income WHERE user_id = ?", userID).
		Scan(&result.IncomeCents)
	if err != nil {
		return result, fmt.Errorf("sum income: %w", err)
	}
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM expense WHERE user_id = ?", userID).
		Scan(&result.ExpenseCents)
	if err != nil {
		return result, fmt.Errorf("sum expenses: %w", err)
	}
	result.NetCents = result.IncomeCents - result.ExpenseCents

	// The net is folded into savings only when a setting row pre-exists;
	// without one the period's net is not recorded anywhere.
	res, err := tx.ExecContext(ctx,
		"UPDATE setting SET total_savings_cents = total_savings_cents + ? WHERE user_id = ?",
		result.NetCents, userID)
	if err != nil {
		return result, fmt.Errorf("update savings: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		result.SavingsUpdated = true
	}

	res, err = tx.ExecContext(ctx,
		`INSERT INTO archived_income (user_id, source, amount_cents, month)
		 SELECT user_id, source, amount_cents, ? FROM income WHERE user_id = ?`,
		month, userID)
	if err != nil {
		return result, fmt.Errorf("archive income: %w", err)
	}
	result.ArchivedIncomes, _ = res.RowsAffected()

	// The attachment reference is deliberately not copied; archived
	// expenses never point at receipt files.
	res, err = tx.ExecContext(ctx,
		`INSERT INTO archived_expense (user_id, amount_cents, category, note, expense_date, done_by, month)
		 SELECT user_id, amount_cents, category, note, expense_date, done_by, ? FROM expense WHERE user_id = ?`,
		month, userID)
	if err != nil {
		return result, fmt.Errorf("archive expenses: %w", err)
	}
	result.ArchivedExpenses, _ = res.RowsAffected()

	if _, err := tx.ExecContext(ctx, "DELETE FROM income WHERE user_id = ?", userID); err != nil {
		return result, fmt.Errorf("clear income: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM expense WHERE user_id = ?", userID); err != nil {
		return result, fmt.Errorf("clear expenses: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit close-out: %w", err)
	}

	slog.InfoContext(ctx, "Month closed out",
		"user_id", userID,
		"month", month,
		"net_cents", result.NetCents,
		"archived_incomes", result.ArchivedIncomes,
		"archived_expenses", result.ArchivedExpenses,
		"savings_updated", result.SavingsUpdated)

	return result, nil
}

// FreshStart wipes the user's entire financial history, live and archived,
// including the setting row, in one transaction. There is no confirmation
// and no undo at this layer.
func (r *SQLiteRepository) FreshStart(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fresh-start tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"archived_income", "archived_expense", "income", "expense", "setting"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE user_id = ?", userID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fresh-start: %w", err)
	}

	slog.InfoContext(ctx, "Fresh start completed", "user_id", userID)
	return nil
}
