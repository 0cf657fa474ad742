package services

import (
	"context"
	"fmt"
	"math"

	"homebudget/internal/core"
	"homebudget/internal/storage"
)

// ReportService derives dashboard and history figures. Read-only: it never
// mutates the ledger.
type ReportService struct {
	repo *storage.SQLiteRepository
}

func NewReportService(repo *storage.SQLiteRepository) *ReportService {
	return &ReportService{repo: repo}
}

// DashboardData is the flat bundle of figures the dashboard template
// renders: scalar totals plus chart-ready breakdowns.
type DashboardData struct {
	TotalIncome   core.Money
	TotalExpenses core.Money
	Net           core.Money
	MonthlyLimit  core.Money
	TotalSavings  core.Money
	BudgetUsedPct float64
	ByCategory    []core.CategoryTotal
	TopCategory   core.CategoryTotal
	HasTop        bool
	ByDay         []core.DayTotal
}

// IncomeOverview carries the expected-vs-actual income view.
type IncomeOverview struct {
	Incomes        []core.Income
	ExpectedIncome core.Money
	ByPerson       []core.PersonTotal
	ActualIncome   core.Money
	Variance       core.Money
}

// MonthReport is the history view for one archived month.
type MonthReport struct {
	Summary      core.MonthSummary
	Incomes      []core.ArchivedIncome
	Expenses     []core.ArchivedExpense
	ByPerson     []core.PersonTotal
	ActualIncome core.Money
	Variance     core.Money
	ByCategory   []core.CategoryTotal
}

// Comparison is the side-by-side view of two archived months. Buckets
// absent for one month default to zero, never an error.
type Comparison struct {
	First      core.MonthSummary
	Second     core.MonthSummary
	Categories []ComparisonRow
	Sources    []ComparisonRow
}

// ComparisonRow holds one bucket's totals for both compared months.
type ComparisonRow struct {
	Name   string
	First  core.Money
	Second core.Money
}

func (s *ReportService) Dashboard(ctx context.Context, userID int64) (DashboardData, error) {
	var data DashboardData

	income, err := s.repo.SumIncome(ctx, userID)
	if err != nil {
		return data, fmt.Errorf("dashboard income: %w", err)
	}
	expenses, err := s.repo.SumExpenses(ctx, userID)
	if err != nil {
		return data, fmt.Errorf("dashboard expenses: %w", err)
	}
	data.TotalIncome = core.Money{Cents: income}
	data.TotalExpenses = core.Money{Cents: expenses}
	data.Net = core.Money{Cents: income - expenses}

	setting, _, err := s.repo.GetSetting(ctx, userID)
	if err != nil {
		return data, fmt.Errorf("dashboard setting: %w", err)
	}
	data.MonthlyLimit = setting.MonthlyLimit
	data.TotalSavings = setting.TotalSavings
	if setting.MonthlyLimit.Cents > 0 {
		data.BudgetUsedPct = math.Round(float64(expenses)/float64(setting.MonthlyLimit.Cents)*1000) / 10
	}

	data.ByCategory, err = s.repo.CategoryBreakdown(ctx, userID)
	if err != nil {
		return data, fmt.Errorf("dashboard categories: %w", err)
	}
	data.TopCategory, data.HasTop = core.TopCategory(data.ByCategory)

	data.ByDay, err = s.repo.DailyBreakdown(ctx, userID)
	if err != nil {
		return data, fmt.Errorf("dashboard daily: %w", err)
	}
	return data, nil
}

func (s *ReportService) Income(ctx context.Context, userID int64) (IncomeOverview, error) {
	var ov IncomeOverview

	incomes, err := s.repo.ListIncomes(ctx, userID)
	if err != nil {
		return ov, fmt.Errorf("income list: %w", err)
	}
	ov.Incomes = incomes
	var expected int64
	for _, in := range incomes {
		expected += in.Amount.Cents
	}
	ov.ExpectedIncome = core.Money{Cents: expected}

	ov.ByPerson, err = s.repo.ExpensesByPerson(ctx, userID)
	if err != nil {
		return ov, fmt.Errorf("income by person: %w", err)
	}
	ov.ActualIncome = core.SumPersons(ov.ByPerson)
	ov.Variance = core.Variance(expected, ov.ActualIncome.Cents)
	return ov, nil
}

func (s *ReportService) Month(ctx context.Context, userID int64, month string) (MonthReport, error) {
	var report MonthReport

	income, err := s.repo.SumArchivedIncome(ctx, userID, month)
	if err != nil {
		return report, fmt.Errorf("month report income: %w", err)
	}
	expenses, err := s.repo.SumArchivedExpenses(ctx, userID, month)
	if err != nil {
		return report, fmt.Errorf("month report expenses: %w", err)
	}
	report.Summary = core.Summarize(month, income, expenses)

	report.Incomes, err = s.repo.ListArchivedIncomes(ctx, userID, month)
	if err != nil {
		return report, fmt.Errorf("month report income rows: %w", err)
	}
	report.Expenses, err = s.repo.ListArchivedExpenses(ctx, userID, month)
	if err != nil {
		return report, fmt.Errorf("month report expense rows: %w", err)
	}
	report.ByPerson, err = s.repo.ArchivedExpensesByPerson(ctx, userID, month)
	if err != nil {
		return report, fmt.Errorf("month report by person: %w", err)
	}
	report.ActualIncome = core.SumPersons(report.ByPerson)
	report.Variance = core.Variance(income, report.ActualIncome.Cents)

	report.ByCategory, err = s.repo.ArchivedCategoryBreakdown(ctx, userID, month)
	if err != nil {
		return report, fmt.Errorf("month report categories: %w", err)
	}
	return report, nil
}

// Compare builds the side-by-side view of two archived months.
func (s *ReportService) Compare(ctx context.Context, userID int64, m1, m2 string) (Comparison, error) {
	var cmp Comparison

	first, err := s.monthSummary(ctx, userID, m1)
	if err != nil {
		return cmp, err
	}
	second, err := s.monthSummary(ctx, userID, m2)
	if err != nil {
		return cmp, err
	}
	cmp.First = first
	cmp.Second = second

	cats1, err := s.repo.ArchivedCategoryBreakdown(ctx, userID, m1)
	if err != nil {
		return cmp, fmt.Errorf("compare categories %s: %w", m1, err)
	}
	cats2, err := s.repo.ArchivedCategoryBreakdown(ctx, userID, m2)
	if err != nil {
		return cmp, fmt.Errorf("compare categories %s: %w", m2, err)
	}
	cmp.Categories = mergeRows(
		func() []ComparisonRow {
			rows := make([]ComparisonRow, 0, len(cats1))
			for _, c := range cats1 {
				rows = append(rows, ComparisonRow{Name: c.Name, First: c.Total})
			}
			return rows
		}(),
		func() []ComparisonRow {
			rows := make([]ComparisonRow, 0, len(cats2))
			for _, c := range cats2 {
				rows = append(rows, ComparisonRow{Name: c.Name, Second: c.Total})
			}
			return rows
		}(),
	)

	src1, err := s.repo.ArchivedSourceBreakdown(ctx, userID, m1)
	if err != nil {
		return cmp, fmt.Errorf("compare sources %s: %w", m1, err)
	}
	src2, err := s.repo.ArchivedSourceBreakdown(ctx, userID, m2)
	if err != nil {
		return cmp, fmt.Errorf("compare sources %s: %w", m2, err)
	}
	cmp.Sources = mergeRows(
		func() []ComparisonRow {
			rows := make([]ComparisonRow, 0, len(src1))
			for _, st := range src1 {
				rows = append(rows, ComparisonRow{Name: st.Source, First: st.Total})
			}
			return rows
		}(),
		func() []ComparisonRow {
			rows := make([]ComparisonRow, 0, len(src2))
			for _, st := range src2 {
				rows = append(rows, ComparisonRow{Name: st.Source, Second: st.Total})
			}
			return rows
		}(),
	)

	return cmp, nil
}

// Trend computes the per-month summaries for every archived month the user
// has, oldest first.
func (s *ReportService) Trend(ctx context.Context, userID int64) ([]core.MonthSummary, error) {
	summaries, err := s.repo.MonthlyArchiveTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("trend: %w", err)
	}
	return summaries, nil
}

// Months lists the archive month keys available for history filters.
func (s *ReportService) Months(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.ArchivedMonths(ctx, userID)
}

func (s *ReportService) monthSummary(ctx context.Context, userID int64, month string) (core.MonthSummary, error) {
	income, err := s.repo.SumArchivedIncome(ctx, userID, month)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("summary income %s: %w", month, err)
	}
	expenses, err := s.repo.SumArchivedExpenses(ctx, userID, month)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("summary expenses %s: %w", month, err)
	}
	return core.Summarize(month, income, expenses), nil
}

// mergeRows unions two row sets by bucket name, keeping first-month order
// and appending second-month-only buckets at the end.
func mergeRows(first, second []ComparisonRow) []ComparisonRow {
	merged := make([]ComparisonRow, len(first))
	copy(merged, first)
	index := make(map[string]int, len(merged))
	for i, row := range merged {
		index[row.Name] = i
	}
	for _, row := range second {
		if i, ok := index[row.Name]; ok {
			merged[i].Second = row.Second
			continue
		}
		index[row.Name] = len(merged)
		merged = append(merged, row)
	}
	return merged
}
