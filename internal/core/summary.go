package core

// KeyTotal is an amount aggregated under a grouping key (a date, a month
// prefix, or a category name).
type KeyTotal struct {
	Key   string
	Total float64
}

// DashboardSummary is the per-user aggregate view rendered on the dashboard.
// Remaining is only meaningful when HasBudget is true.
type DashboardSummary struct {
	MonthlySpent float64
	Budget       *float64
	Remaining    float64
	HasBudget    bool
	HighestDay   KeyTotal
	HighestCat   KeyTotal
}
