package analytics

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/rental-analytics/ledger"
)

// =============================================================================
// FINANCIAL SUMMARY
// =============================================================================

// FinancialInput carries the period partitions the summary compares.
// Payments and Expenses cover the reporting month, PriorPeriodPayments the
// month before it, YearToDatePayments January through the reporting month.
type FinancialInput struct {
	Payments            []ledger.Payment
	Expenses            []ledger.Expense
	PriorPeriodPayments []ledger.Payment
	YearToDatePayments  []ledger.Payment
}

type ExpenseCategory struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount" report:"currency"`
	Percentage decimal.Decimal `json:"percentage" report:"percent"`
}

type FinancialSummary struct {
	MonthlyIncome     decimal.Decimal   `json:"monthly_income" report:"currency"`
	MonthlyExpenses   decimal.Decimal   `json:"monthly_expenses" report:"currency"`
	NetIncome         decimal.Decimal   `json:"net_income" report:"currency"`
	YTDIncome         decimal.Decimal   `json:"ytd_income" report:"currency"`
	PriorIncome       decimal.Decimal   `json:"prior_income" report:"currency"`
	IncomeGrowth      decimal.Decimal   `json:"income_growth" report:"percent"`
	ProfitMargin      decimal.Decimal   `json:"profit_margin" report:"percent"`
	ExpenseCategories []ExpenseCategory `json:"expense_categories"`
}

// AggregateFinancialSummary computes income, expenses and growth. Income is
// the sum of completed payments. Growth against a zero prior period is 0.
// Any payment failing ValidatePayment fails the summary.
func AggregateFinancialSummary(in FinancialInput) (FinancialSummary, error) {
	if err := checkPayments(in.Payments, in.PriorPeriodPayments, in.YearToDatePayments); err != nil {
		return FinancialSummary{}, err
	}

	income := collectedSum(in.Payments)
	prior := collectedSum(in.PriorPeriodPayments)

	expenses := decimal.Zero
	byCategory := make(map[string]decimal.Decimal)
	for _, e := range in.Expenses {
		expenses = expenses.Add(e.Amount)
		byCategory[e.Category] = byCategory[e.Category].Add(e.Amount)
	}

	s := FinancialSummary{
		MonthlyIncome:     income,
		MonthlyExpenses:   expenses,
		NetIncome:         income.Sub(expenses),
		YTDIncome:         collectedSum(in.YearToDatePayments),
		PriorIncome:       prior,
		IncomeGrowth:      percentOf(income.Sub(prior), prior),
		ExpenseCategories: expenseCategories(byCategory, expenses),
	}
	s.ProfitMargin = ProfitMargin(s)
	return s, nil
}

// ProfitMargin is net income as a percentage of income, 0 without income.
func ProfitMargin(s FinancialSummary) decimal.Decimal {
	return percentOf(s.NetIncome, s.MonthlyIncome)
}

// expenseCategories sorts by amount descending, then category ascending.
func expenseCategories(byCategory map[string]decimal.Decimal, total decimal.Decimal) []ExpenseCategory {
	out := make([]ExpenseCategory, 0, len(byCategory))
	for name, amount := range byCategory {
		out = append(out, ExpenseCategory{
			Category:   name,
			Amount:     amount,
			Percentage: percentOf(amount, total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}
