package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"homebudget/internal/auth"
	"homebudget/internal/core"
	"homebudget/internal/files"
	"homebudget/internal/services"
	"homebudget/internal/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	srv    *Server
	repo   *storage.SQLiteRepository
	tokens *auth.TokenService
}

func newTestServer(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	uploads, err := files.NewStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("open upload store: %v", err)
	}

	tokens := auth.NewTokenService(testSecret, time.Hour)
	closeout := services.NewCloseOutService(repo, nil)
	reports := services.NewReportService(repo)

	srv := NewServer(":0", repo, closeout, reports, tokens, uploads)
	return &fixture{srv: srv, repo: repo, tokens: tokens}
}

func (f *fixture) newUser(t *testing.T, email string) (int64, *http.Cookie) {
	t.Helper()
	id, err := f.repo.CreateUser(context.Background(), "Test User", email, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := f.tokens.Generate(id, "Test User")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return id, &http.Cookie{Name: sessionCookie, Value: token}
}

func (f *fixture) do(t *testing.T, method, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	f := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := f.do(t, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	f := newTestServer(t)
	for _, path := range []string{"/", "/income/", "/expenses/", "/settings/", "/history/"} {
		rec := f.do(t, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusFound {
			t.Errorf("GET %s = %d, want 302", path, rec.Code)
			continue
		}
		if loc := rec.Header().Get("Location"); loc != "/auth/login" {
			t.Errorf("GET %s redirects to %q, want /auth/login", path, loc)
		}
	}
}

func TestDestructiveGetRejected(t *testing.T) {
	f := newTestServer(t)
	_, cookie := f.newUser(t, "a@example.com")

	paths := []string{
		"/income/delete/1",
		"/expenses/delete/1",
		"/categories/delete/1",
		"/settings/end-month",
		"/settings/fresh-start",
	}
	for _, path := range paths {
		rec := f.do(t, http.MethodGet, path, nil, cookie)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s = %d, want 405", path, rec.Code)
		}
	}
}

func TestSignupAndLoginFlow(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/auth/signup", url.Values{
		"name":     {"Alice"},
		"email":    {"alice@example.com"},
		"password": {"supersecret"},
	}, nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/auth/login" {
		t.Fatalf("signup = %d -> %q", rec.Code, rec.Header().Get("Location"))
	}

	// Password verification goes through bcrypt, so sign up stored a real
	// hash; log in with the same credentials.
	rec = f.do(t, http.MethodPost, "/auth/login", url.Values{
		"email":    {"alice@example.com"},
		"password": {"supersecret"},
	}, nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("login = %d -> %q", rec.Code, rec.Header().Get("Location"))
	}

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatal("login should set a session cookie")
	}

	rec = f.do(t, http.MethodGet, "/", nil, session)
	if rec.Code != http.StatusOK {
		t.Errorf("dashboard with session = %d, want 200", rec.Code)
	}
}

func TestLoginRejectionsAreIdentical(t *testing.T) {
	f := newTestServer(t)

	f.do(t, http.MethodPost, "/auth/signup", url.Values{
		"name": {"Alice"}, "email": {"alice@example.com"}, "password": {"supersecret"},
	}, nil)

	unknown := f.do(t, http.MethodPost, "/auth/login", url.Values{
		"email": {"nobody@example.com"}, "password": {"whatever123"},
	}, nil)
	wrongPass := f.do(t, http.MethodPost, "/auth/login", url.Values{
		"email": {"alice@example.com"}, "password": {"wrongpassword"},
	}, nil)

	if unknown.Code != wrongPass.Code {
		t.Errorf("status differs: unknown=%d wrong=%d", unknown.Code, wrongPass.Code)
	}
	if unknown.Header().Get("Location") != wrongPass.Header().Get("Location") {
		t.Error("redirect target differs between unknown email and wrong password")
	}
}

func TestCrossUserAccessIs404(t *testing.T) {
	f := newTestServer(t)
	ctx := context.Background()

	alice, _ := f.newUser(t, "alice@example.com")
	_, bobCookie := f.newUser(t, "bob@example.com")

	incomeID, err := f.repo.CreateIncome(ctx, core.Income{UserID: alice, Source: "Salary", Amount: core.Money{Cents: 1000}})
	if err != nil {
		t.Fatalf("seed income: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/income/edit/"+itoa(incomeID), nil, bobCookie)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign income edit form = %d, want 404", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/income/delete/"+itoa(incomeID), url.Values{}, bobCookie)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign income delete = %d, want 404", rec.Code)
	}

	// Alice's row survives.
	if _, err := f.repo.GetIncome(ctx, alice, incomeID); err != nil {
		t.Errorf("alice's income should survive: %v", err)
	}
}

func TestMalformedIDIs404(t *testing.T) {
	f := newTestServer(t)
	_, cookie := f.newUser(t, "a@example.com")

	rec := f.do(t, http.MethodGet, "/income/edit/abc", nil, cookie)
	if rec.Code != http.StatusNotFound {
		t.Errorf("malformed id = %d, want 404", rec.Code)
	}
}

func TestInvalidAmountRedirectsWithFlash(t *testing.T) {
	f := newTestServer(t)
	user, cookie := f.newUser(t, "a@example.com")

	rec := f.do(t, http.MethodPost, "/expenses/add", url.Values{
		"amount":   {"-0.01"},
		"category": {"Groceries"},
		"date":     {"2024-01-15"},
		"done_by":  {"Alice"},
	}, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("invalid amount = %d, want 303", rec.Code)
	}

	var flash bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookie && c.Value != "" {
			flash = true
		}
	}
	if !flash {
		t.Error("rejected form should set a flash cookie")
	}

	// The request must be a complete no-op.
	expenses, _ := f.repo.ListExpenses(context.Background(), user)
	if len(expenses) != 0 {
		t.Errorf("rejected expense was persisted: %d rows", len(expenses))
	}
}

func TestInvalidDateRejected(t *testing.T) {
	f := newTestServer(t)
	user, cookie := f.newUser(t, "a@example.com")

	rec := f.do(t, http.MethodPost, "/expenses/add", url.Values{
		"amount":   {"10.00"},
		"category": {"Groceries"},
		"date":     {"2024-13-40"},
		"done_by":  {"Alice"},
	}, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("invalid date = %d, want 303", rec.Code)
	}
	expenses, _ := f.repo.ListExpenses(context.Background(), user)
	if len(expenses) != 0 {
		t.Errorf("rejected expense was persisted")
	}
}

func TestEndMonthEndpoint(t *testing.T) {
	f := newTestServer(t)
	user, cookie := f.newUser(t, "a@example.com")
	ctx := context.Background()

	if err := f.repo.UpsertSetting(ctx, core.Setting{UserID: user}); err != nil {
		t.Fatalf("seed setting: %v", err)
	}
	if _, err := f.repo.CreateIncome(ctx, core.Income{UserID: user, Source: "Salary", Amount: core.Money{Cents: 12300}}); err != nil {
		t.Fatalf("seed income: %v", err)
	}

	rec := f.do(t, http.MethodPost, "/settings/end-month", url.Values{}, cookie)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/settings/" {
		t.Fatalf("end-month = %d -> %q", rec.Code, rec.Header().Get("Location"))
	}

	setting, _, _ := f.repo.GetSetting(ctx, user)
	if setting.TotalSavings.Cents != 12300 {
		t.Errorf("savings = %d, want 12300", setting.TotalSavings.Cents)
	}
	incomes, _ := f.repo.ListIncomes(ctx, user)
	if len(incomes) != 0 {
		t.Errorf("live income should be cleared")
	}
}

func TestFreshStartEndpoint(t *testing.T) {
	f := newTestServer(t)
	user, cookie := f.newUser(t, "a@example.com")
	ctx := context.Background()

	if _, err := f.repo.CreateIncome(ctx, core.Income{UserID: user, Source: "Salary", Amount: core.Money{Cents: 100}}); err != nil {
		t.Fatalf("seed income: %v", err)
	}

	rec := f.do(t, http.MethodPost, "/settings/fresh-start", url.Values{}, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("fresh-start = %d, want 303", rec.Code)
	}
	incomes, _ := f.repo.ListIncomes(ctx, user)
	if len(incomes) != 0 {
		t.Errorf("fresh start left income rows behind")
	}
}

func TestSecurityHeaders(t *testing.T) {
	f := newTestServer(t)
	rec := f.do(t, http.MethodGet, "/auth/login", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login page = %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options header")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
