package core

import "math"

// CategoryTotal is a per-category aggregate with a row count, used for
// pie-chart style breakdowns.
type CategoryTotal struct {
	Name  string
	Total Money
	Count int
}

// PersonTotal is the expense sum attributed to one household member.
// Money spent by a person approximates income earned by that person, so
// these totals double as "actual income" figures.
type PersonTotal struct {
	DoneBy string
	Total  Money
}

// SourceTotal is a per-income-source aggregate.
type SourceTotal struct {
	Source string
	Total  Money
}

// DayTotal is the expense sum for one calendar day of the open period.
type DayTotal struct {
	Date  Date
	Total Money
}

// MonthSummary carries the derived figures for one archived month.
type MonthSummary struct {
	Month       string
	Income      Money
	Expenses    Money
	Net         Money
	SavingsRate float64
}

// SavingsRate computes net over income as a percentage rounded to one
// decimal. Zero income yields 0, never a division error.
func SavingsRate(incomeCents, expenseCents int64) float64 {
	if incomeCents == 0 {
		return 0
	}
	rate := float64(incomeCents-expenseCents) / float64(incomeCents) * 100
	return math.Round(rate*10) / 10
}

// Summarize derives the full per-month figures from raw totals.
func Summarize(month string, incomeCents, expenseCents int64) MonthSummary {
	return MonthSummary{
		Month:       month,
		Income:      Money{Cents: incomeCents},
		Expenses:    Money{Cents: expenseCents},
		Net:         Money{Cents: incomeCents - expenseCents},
		SavingsRate: SavingsRate(incomeCents, expenseCents),
	}
}

// Variance is expected income minus actual income.
func Variance(expectedCents, actualCents int64) Money {
	return Money{Cents: expectedCents - actualCents}
}

// TopCategory returns the category with the highest total, if any.
func TopCategory(totals []CategoryTotal) (CategoryTotal, bool) {
	if len(totals) == 0 {
		return CategoryTotal{}, false
	}
	top := totals[0]
	for _, ct := range totals[1:] {
		if ct.Total.Cents > top.Total.Cents {
			top = ct
		}
	}
	return top, true
}

// SumPersons totals the per-person aggregates into a single actual-income
// figure.
func SumPersons(persons []PersonTotal) Money {
	var total int64
	for _, p := range persons {
		total += p.Total.Cents
	}
	return Money{Cents: total}
}
