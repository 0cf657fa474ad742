package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"homebudget/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository, email string) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), "Test User", email, "hash")
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return id
}

func addExpense(t *testing.T, repo *SQLiteRepository, userID int64, cents int64, category, doneBy string) int64 {
	t.Helper()
	id, err := repo.CreateExpense(context.Background(), core.Expense{
		UserID:   userID,
		Amount:   core.Money{Cents: cents},
		Category: category,
		Date:     core.NewDate(2024, 1, 15),
		DoneBy:   doneBy,
	})
	if err != nil {
		t.Fatalf("create test expense: %v", err)
	}
	return id
}

func addIncome(t *testing.T, repo *SQLiteRepository, userID int64, cents int64, source string) int64 {
	t.Helper()
	id, err := repo.CreateIncome(context.Background(), core.Income{
		UserID: userID,
		Source: source,
		Amount: core.Money{Cents: cents},
	})
	if err != nil {
		t.Fatalf("create test income: %v", err)
	}
	return id
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := newTestRepo(t)
	newTestUser(t, repo, "a@example.com")

	_, err := repo.CreateUser(context.Background(), "Other", "a@example.com", "hash2")
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("duplicate email error = %v, want ErrEmailExists", err)
	}
}

func TestIncomeCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo, "a@example.com")

	id := addIncome(t, repo, user, 250000, "Salary")
	addIncome(t, repo, user, 500000, "Bonus")

	incomes, err := repo.ListIncomes(ctx, user)
	if err != nil {
		t.Fatalf("list incomes: %v", err)
	}
	if len(incomes) != 2 {
		t.Fatalf("got %d incomes, want 2", len(incomes))
	}
	// Largest amount first.
	if incomes[0].Source != "Bonus" {
		t.Errorf("first income = %q, want Bonus", incomes[0].Source)
	}

	updated := core.Income{ID: id, UserID: user, Source: "Salary (net)", Amount: core.Money{Cents: 240000}}
	if err := repo.UpdateIncome(ctx, updated); err != nil {
		t.Fatalf("update income: %v", err)
	}
	got, err := repo.GetIncome(ctx, user, id)
	if err != nil {
		t.Fatalf("get income: %v", err)
	}
	if got.Source != "Salary (net)" || got.Amount.Cents != 240000 {
		t.Errorf("after update got %+v", got)
	}

	if err := repo.DeleteIncome(ctx, user, id); err != nil {
		t.Fatalf("delete income: %v", err)
	}
	if _, err := repo.GetIncome(ctx, user, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted income lookup error = %v, want ErrNotFound", err)
	}
}

func TestExpenseRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo, "a@example.com")

	id, err := repo.CreateExpense(ctx, core.Expense{
		UserID:     user,
		Amount:     core.Money{Cents: 1599},
		Category:   "Groceries",
		Note:       "weekly shop",
		Date:       core.NewDate(2024, 1, 15),
		Attachment: "user1_receipt.pdf",
		DoneBy:     "Alice",
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}

	got, err := repo.GetExpense(ctx, user, id)
	if err != nil {
		t.Fatalf("get expense: %v", err)
	}
	if got.Amount.Cents != 1599 || got.Category != "Groceries" || got.Note != "weekly shop" ||
		got.Date.ISO() != "2024-01-15" || got.Attachment != "user1_receipt.pdf" || got.DoneBy != "Alice" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestExpenseEmptyOptionalFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo, "a@example.com")

	id := addExpense(t, repo, user, 500, "Misc", "Bob")
	got, err := repo.GetExpense(ctx, user, id)
	if err != nil {
		t.Fatalf("get expense: %v", err)
	}
	if got.Note != "" || got.Attachment != "" {
		t.Errorf("optional fields should scan as empty strings, got %+v", got)
	}
}

func TestUserScoping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := newTestUser(t, repo, "alice@example.com")
	bob := newTestUser(t, repo, "bob@example.com")

	incomeID := addIncome(t, repo, alice, 100000, "Salary")
	expenseID := addExpense(t, repo, alice, 5000, "Groceries", "Alice")

	// Bob sees nothing of Alice's, and a foreign row looks exactly like a
	// missing one.
	if _, err := repo.GetIncome(ctx, bob, incomeID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign income get error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetExpense(ctx, bob, expenseID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign expense get error = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteExpense(ctx, bob, expenseID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign expense delete error = %v, want ErrNotFound", err)
	}
	if err := repo.UpdateIncome(ctx, core.Income{ID: incomeID, UserID: bob, Source: "X", Amount: core.Money{Cents: 1}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign income update error = %v, want ErrNotFound", err)
	}

	// The failed foreign delete must not have removed Alice's row.
	if _, err := repo.GetExpense(ctx, alice, expenseID); err != nil {
		t.Errorf("alice's expense should survive bob's delete attempt: %v", err)
	}

	bobIncomes, err := repo.ListIncomes(ctx, bob)
	if err != nil {
		t.Fatalf("list bob incomes: %v", err)
	}
	if len(bobIncomes) != 0 {
		t.Errorf("bob should have no incomes, got %d", len(bobIncomes))
	}
}

func TestUpsertCategoryDuplicateIsNoOp(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo, "a@example.com")

	if err := repo.UpsertCategory(ctx, user, "Groceries"); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := repo.UpsertCategory(ctx, user, "Groceries"); err != nil {
		t.Fatalf("duplicate upsert should not error: %v", err)
	}

	cats, err := repo.ListCategories(ctx, user)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) != 1 {
		t.Fatalf("got %d categories, want 1", len(cats))
	}

	// Same name for another user is a separate row.
	other := newTestUser(t, repo, "b@example.com")
	if err := repo.UpsertCategory(ctx, other, "Groceries"); err != nil {
		t.Fatalf("other user upsert: %v", err)
	}
	otherCats, err := repo.ListCategories(ctx, other)
	if err != nil {
		t.Fatalf("list other categories: %v", err)
	}
	if len(otherCats) != 1 {
		t.Errorf("other user should have their own category row")
	}
}

func TestGetSettingAbsent(t *testing.T) {
	repo := newTestRepo(t)
	user := newTestUser(t, repo, "a@example.com")

	s, exists, err := repo.GetSetting(context.Background(), user)
	if err != nil {
		t.Fatalf("get setting: %v", err)
	}
	if exists {
		t.Error("setting should not exist for a fresh user")
	}
	if s.MonthlyLimit.Cents != 0 || s.TotalSavings.Cents != 0 || s.DefaultDoneBy != "" {
		t.Errorf("absent setting should be zero-valued, got %+v", s)
	}
}

func TestUpsertSettingReplaces(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo, "a@example.com")

	first := core.Setting{UserID: user, MonthlyLimit: core.Money{Cents: 100000}, TotalSavings: core.Money{Cents: 5000}, DefaultDoneBy: "Alice"}
	if err := repo.UpsertSetting(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second := core.Setting{UserID: user, MonthlyLimit: core.Money{Cents: 200000}, TotalSavings: core.Money{Cents: -1000}}
	if err := repo.UpsertSetting(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, exists, err := repo.GetSetting(ctx, user)
	if err != nil || !exists {
		t.Fatalf("get setting: exists=%v err=%v", exists, err)
	}
	if got.MonthlyLimit.Cents != 200000 || got.TotalSavings.Cents != -1000 || got.DefaultDoneBy != "" {
		t.Errorf("setting should be fully replaced, got %+v", got)
	}
}
