// Package storage persists the ledger in SQLite. Every query and mutation
// is scoped by user id; a row that exists but belongs to another user is
// indistinguishable from a missing row (ErrNotFound).
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"homebudget/internal/core"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound covers both a missing row and a row owned by a
	// different user, so handlers cannot leak record existence.
	ErrNotFound = errors.New("record not found")

	// ErrEmailExists is returned when signing up with a taken email.
	ErrEmailExists = errors.New("email already exists")
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Concurrent close-out transactions contend for the write lock; wait
	// instead of failing with SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// === Users ===

func (r *SQLiteRepository) CreateUser(ctx context.Context, name, email, passwordHash string) (int64, error) {
	var existing int64
	err := r.db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?", email).Scan(&existing)
	if err == nil {
		return 0, ErrEmailExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("check existing email: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?)",
		name, email, passwordHash)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	var avatar sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, avatar_filename FROM users WHERE email = ?",
		email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	u.AvatarFilename = avatar.String
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	var avatar sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, avatar_filename FROM users WHERE id = ?",
		id).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.AvatarFilename = avatar.String
	return u, nil
}

func (r *SQLiteRepository) UpdateUserName(ctx context.Context, id int64, name string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("update user name: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateUserAvatar(ctx context.Context, id int64, filename string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET avatar_filename = ? WHERE id = ?", filename, id)
	if err != nil {
		return fmt.Errorf("update user avatar: %w", err)
	}
	return nil
}

// === Income ===

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO income (user_id, source, amount_cents) VALUES (?, ?, ?)",
		in.UserID, in.Source, in.Amount.Cents)
	if err != nil {
		return 0, fmt.Errorf("insert income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("income insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListIncomes(ctx context.Context, userID int64) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, source, amount_cents FROM income WHERE user_id = ? ORDER BY amount_cents DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var incomes []core.Income
	for rows.Next() {
		var in core.Income
		if err := rows.Scan(&in.ID, &in.UserID, &in.Source, &in.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		incomes = append(incomes, in)
	}
	return incomes, rows.Err()
}

func (r *SQLiteRepository) GetIncome(ctx context.Context, userID, id int64) (core.Income, error) {
	var in core.Income
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, source, amount_cents FROM income WHERE id = ? AND user_id = ?",
		id, userID).Scan(&in.ID, &in.UserID, &in.Source, &in.Amount.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, ErrNotFound
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("get income: %w", err)
	}
	return in, nil
}

func (r *SQLiteRepository) UpdateIncome(ctx context.Context, in core.Income) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE income SET source = ?, amount_cents = ? WHERE id = ? AND user_id = ?",
		in.Source, in.Amount.Cents, in.ID, in.UserID)
	if err != nil {
		return fmt.Errorf("update income: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM income WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	return requireAffected(res)
}

// === Expenses ===

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expense (user_id, amount_cents, category, note, expense_date, attachment, done_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Amount.Cents, e.Category, nullable(e.Note), e.Date.ISO(), nullable(e.Attachment), e.DoneBy)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, category, note, expense_date, attachment, done_by
		 FROM expense WHERE user_id = ? ORDER BY expense_date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount_cents, category, note, expense_date, attachment, done_by
		 FROM expense WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expense SET amount_cents = ?, category = ?, note = ?, expense_date = ?, attachment = ?, done_by = ?
		 WHERE id = ? AND user_id = ?`,
		e.Amount.Cents, e.Category, nullable(e.Note), e.Date.ISO(), nullable(e.Attachment), e.DoneBy, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM expense WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireAffected(res)
}

// === Categories ===

// UpsertCategory inserts a category for the user. Duplicates are a no-op,
// not an error.
func (r *SQLiteRepository) UpsertCategory(ctx context.Context, userID int64, name string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO categories (user_id, name) VALUES (?, ?)", userID, name)
	if err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, name FROM categories WHERE user_id = ? ORDER BY name", userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM categories WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res)
}

// === Settings ===

// GetSetting returns the user's setting row. The second return value is
// false when no row exists; callers treat that as zero-valued defaults.
func (r *SQLiteRepository) GetSetting(ctx context.Context, userID int64) (core.Setting, bool, error) {
	var s core.Setting
	var doneBy sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT user_id, monthly_limit_cents, total_savings_cents, default_done_by FROM setting WHERE user_id = ?",
		userID).Scan(&s.UserID, &s.MonthlyLimit.Cents, &s.TotalSavings.Cents, &doneBy)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Setting{UserID: userID}, false, nil
	}
	if err != nil {
		return core.Setting{}, false, fmt.Errorf("get setting: %w", err)
	}
	s.DefaultDoneBy = doneBy.String
	return s, true, nil
}

// UpsertSetting replaces the user's setting row. This is the only path
// besides the close-out that touches total_savings, and it replaces the
// value rather than adding to it.
func (r *SQLiteRepository) UpsertSetting(ctx context.Context, s core.Setting) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO setting (user_id, monthly_limit_cents, total_savings_cents, default_done_by)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   monthly_limit_cents = excluded.monthly_limit_cents,
		   total_savings_cents = excluded.total_savings_cents,
		   default_done_by = excluded.default_done_by`,
		s.UserID, s.MonthlyLimit.Cents, s.TotalSavings.Cents, nullable(s.DefaultDoneBy))
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

// === helpers ===

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var note, attachment sql.NullString
	var dateStr string
	err := row.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Category, &note, &dateStr, &attachment, &e.DoneBy)
	if err != nil {
		return core.Expense{}, err
	}
	e.Note = note.String
	e.Attachment = attachment.String
	d, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Expense{}, fmt.Errorf("stored expense date %q: %w", dateStr, err)
	}
	e.Date = d
	return e, nil
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}
