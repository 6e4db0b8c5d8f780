package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/plugin"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/store"
)

// financialCategories constrain the extraction schema so the model picks
// from a known set.
var financialCategories = []string{
	"food", "transportation", "entertainment", "shopping",
	"utilities", "rent", "healthcare", "income", "other",
}

// Financial tracks expenses, income, and budgets. Expenses are stored as
// negative amounts, income positive. Budgets live in plugin KV storage as
// a category → monthly limit map.
type Financial struct {
	plugin.Base
}

// NewFinancial constructs the financial plugin.
func NewFinancial(host plugin.Host, settings map[string]any, logger *slog.Logger) (plugin.Plugin, error) {
	f := &Financial{}
	f.Base = plugin.NewBase(plugin.Info{
		Name:        "financial",
		Description: "Track expenses, income, and budgets",
		Version:     "1.0.0",
		Enabled:     true,
		Priority:    40,
		Keywords: []string{
			"spent", "spend", "cost", "price", "bought",
			"paid", "expense", "income", "earned", "budget",
			"money", "dollars", "$", "financial", "transaction",
		},
	}, host, settings, logger)
	return f, nil
}

func (f *Financial) Handle(ctx context.Context, message string, pctx *plugin.Context) (string, error) {
	lower := strings.ToLower(message)

	if containsAny(lower, "how much", "report", "summary", "total") {
		return f.report(ctx, pctx, lower), nil
	}
	if strings.Contains(lower, "budget") {
		if containsAny(lower, "set", "create", "update") {
			return f.setBudget(ctx, message), nil
		}
		return f.budgetStatus(pctx), nil
	}
	if containsAny(lower, "spent", "paid", "bought", "cost") {
		return f.logTransaction(ctx, pctx, message, true), nil
	}
	if containsAny(lower, "earned", "received", "income") {
		return f.logTransaction(ctx, pctx, message, false), nil
	}
	return "", nil
}

// logTransaction records one expense or income row. Extraction failure
// degrades to a regex amount scan and category "other".
func (f *Financial) logTransaction(ctx context.Context, pctx *plugin.Context, message string, expense bool) string {
	details, err := f.Brain().ExtractStructured(ctx, message, map[string]string{
		"amount":      "number - dollar amount",
		"category":    "string - one of " + strings.Join(financialCategories, ", "),
		"description": "string - what was purchased/earned",
		"date":        "ISO datetime string or null",
	})
	if err != nil {
		f.Logger().Warn("transaction extraction failed, using fallback", "error", err)
		details = map[string]any{}
	}

	amount, ok := asFloat(details, "amount")
	if !ok {
		amount, ok = amountFromText(message)
	}
	if !ok {
		return "I couldn't determine the amount. Try: 'I spent $25 on groceries'"
	}
	if amount < 0 {
		amount = -amount
	}

	category := asString(details, "category")
	if category == "" {
		category = "other"
	}
	description := asString(details, "description")
	if description == "" {
		description = message
	}

	tx := &store.Transaction{
		UserID:      pctx.User.ID,
		Amount:      amount,
		Category:    category,
		Description: description,
		Source:      "manual",
	}
	if expense {
		tx.Amount = -amount
	}
	if when := asTime(details, "date"); when != nil {
		tx.OccurredAt = *when
	}

	if err := f.Store().SaveTransaction(tx); err != nil {
		f.Logger().Error("failed to save transaction", "error", err)
		return "I had trouble logging that transaction. Please try again."
	}

	var response string
	if expense {
		response = fmt.Sprintf("✅ Logged: $%.2f spent on %s", amount, category)
		if warning := f.budgetWarning(pctx.User.ID, category); warning != "" {
			response += "\n" + warning
		}
	} else {
		response = fmt.Sprintf("✅ Logged: $%.2f earned", amount)
	}
	return response
}

// report summarizes transactions for the period named in the query
// (today/week/month/year, defaulting to the current month).
func (f *Financial) report(ctx context.Context, pctx *plugin.Context, lower string) string {
	start, end, period := queryPeriod(lower)

	txs, err := f.Store().TransactionsBetween(pctx.User.ID, start, end)
	if err != nil {
		f.Logger().Error("failed to query transactions", "error", err)
		return "I had trouble generating that report."
	}
	if len(txs) == 0 {
		return fmt.Sprintf("No transactions found for %s", period)
	}

	var income, expenses float64
	byCategory := map[string]float64{}
	for _, t := range txs {
		if t.Amount < 0 {
			expenses += -t.Amount
			byCategory[t.Category] += -t.Amount
		} else {
			income += t.Amount
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💰 Financial summary for %s:\n\n", period)
	fmt.Fprintf(&sb, "Income: $%.2f\n", income)
	fmt.Fprintf(&sb, "Expenses: $%.2f\n", expenses)
	fmt.Fprintf(&sb, "Net: $%.2f\n", income-expenses)

	if len(byCategory) > 0 {
		categories := make([]string, 0, len(byCategory))
		for c := range byCategory {
			categories = append(categories, c)
		}
		sort.Slice(categories, func(i, j int) bool {
			return byCategory[categories[i]] > byCategory[categories[j]]
		})
		sb.WriteString("\nSpending by category:\n")
		for _, c := range categories {
			fmt.Fprintf(&sb, "- %s: $%.2f\n", titleCase(c), byCategory[c])
		}
	}
	return sb.String()
}

func (f *Financial) setBudget(ctx context.Context, message string) string {
	details, err := f.Brain().ExtractStructured(ctx, message, map[string]string{
		"amount":   "number - monthly budget limit in dollars",
		"category": "string - one of " + strings.Join(financialCategories, ", "),
	})
	if err != nil {
		f.Logger().Warn("budget extraction failed", "error", err)
		details = map[string]any{}
	}

	amount, ok := asFloat(details, "amount")
	category := asString(details, "category")
	if !ok || category == "" {
		return "Please specify amount and category. Try: 'Set food budget to $300'"
	}

	budgets := map[string]float64{}
	if _, err := f.LoadData("budgets", &budgets); err != nil {
		f.Logger().Error("failed to load budgets", "error", err)
		return "I had trouble updating your budgets. Please try again."
	}
	budgets[category] = amount
	if err := f.StoreData("budgets", budgets); err != nil {
		f.Logger().Error("failed to store budgets", "error", err)
		return "I had trouble updating your budgets. Please try again."
	}
	return fmt.Sprintf("✅ Set %s budget to $%.2f", category, amount)
}

func (f *Financial) budgetStatus(pctx *plugin.Context) string {
	budgets := map[string]float64{}
	found, err := f.LoadData("budgets", &budgets)
	if err != nil {
		f.Logger().Error("failed to load budgets", "error", err)
		return "I had trouble checking your budgets."
	}
	if !found || len(budgets) == 0 {
		return "You haven't set any budgets yet. Try: 'Set food budget to $300'"
	}

	monthStart := startOfMonth(time.Now())
	categories := make([]string, 0, len(budgets))
	for c := range budgets {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var sb strings.Builder
	sb.WriteString("📊 Budget status (this month):\n\n")
	for _, category := range categories {
		limit := budgets[category]
		spent, err := f.Store().SpentInCategory(pctx.User.ID, category, monthStart)
		if err != nil {
			f.Logger().Error("failed to sum category", "category", category, "error", err)
			continue
		}
		percent := 0.0
		if limit > 0 {
			percent = spent / limit * 100
		}
		marker := "✅"
		if percent >= 100 {
			marker = "🚨"
		} else if percent >= 80 {
			marker = "⚠️"
		}
		fmt.Fprintf(&sb, "%s %s: $%.2f / $%.2f (%.0f%%), $%.2f remaining\n",
			marker, titleCase(category), spent, limit, percent, limit-spent)
	}
	return sb.String()
}

// budgetWarning returns a heads-up string when month-to-date spending in
// the category crosses 80% or 100% of its budget, or "" otherwise.
func (f *Financial) budgetWarning(userID int64, category string) string {
	budgets := map[string]float64{}
	found, err := f.LoadData("budgets", &budgets)
	if err != nil || !found {
		return ""
	}
	limit, ok := budgets[category]
	if !ok || limit <= 0 {
		return ""
	}

	spent, err := f.Store().SpentInCategory(userID, category, startOfMonth(time.Now()))
	if err != nil {
		return ""
	}
	percent := spent / limit * 100
	switch {
	case percent >= 100:
		return fmt.Sprintf("⚠️ You've exceeded your %s budget!", category)
	case percent >= 80:
		return fmt.Sprintf("💡 Heads up: only $%.2f left in your %s budget", limit-spent, category)
	}
	return ""
}

func (f *Financial) Commands() []plugin.Command {
	return []plugin.Command{
		{Example: "I spent $X on [category]", Description: "Log an expense"},
		{Example: "I earned $X", Description: "Log income"},
		{Example: "How much did I spend this month", Description: "View spending report"},
		{Example: "Set [category] budget to $X", Description: "Set budget limit"},
		{Example: "Check budget", Description: "View budget status"},
	}
}

// queryPeriod maps period words in the query to a [start, end] range and
// a display label. Defaults to the current month.
func queryPeriod(lower string) (time.Time, time.Time, string) {
	now := time.Now()
	switch {
	case strings.Contains(lower, "today"):
		return startOfDay(now), now, "today"
	case strings.Contains(lower, "week"):
		return now.AddDate(0, 0, -7), now, "the last 7 days"
	case strings.Contains(lower, "year"):
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return start, now, fmt.Sprintf("%d", now.Year())
	default:
		return startOfMonth(now), now, now.Format("January 2006")
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
