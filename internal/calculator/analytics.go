package calculator

import (
	"fmt"
	"sort"
	"time"
)

// TopSpendersLimit caps the top-spenders list in group analytics.
const TopSpendersLimit = 10

// ExpenseRecord is the expense information needed for analytics.
type ExpenseRecord struct {
	PaidByUserID string
	Amount       float64
	CreatedAt    int64 // unix seconds
}

// DailySpend is the group's total spending on one UTC calendar day.
type DailySpend struct {
	Date   string // YYYY-MM-DD
	Amount float64
}

// SpenderTotal is one payer's total amount paid across the group's expenses.
type SpenderTotal struct {
	UserID      string
	DisplayName string
	Amount      float64
}

// GroupAnalytics summarizes a group's spending history.
type GroupAnalytics struct {
	TotalSpent     float64
	SpendingTrends []DailySpend
	TopSpenders    []SpenderTotal
}

// ComputeGroupAnalytics aggregates a group's expenses into the total spent,
// a per-day spending trend (sorted by date ascending), and the top payers
// (sorted by amount descending, capped at TopSpendersLimit). Payers missing
// from the member list appear with an empty display name, same as in
// ComputeGroupBalances.
//
// Returns ErrInvalidInput if any amount is non-finite.
func ComputeGroupAnalytics(members []Member, expenses []ExpenseRecord) (GroupAnalytics, error) {
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.UserID] = m.DisplayName
	}

	var totalSpent float64
	byDate := make(map[string]float64)
	byPayer := make(map[string]float64)
	payerOrder := make([]string, 0, len(members))

	for _, e := range expenses {
		if !isFinite(e.Amount) {
			return GroupAnalytics{}, fmt.Errorf("%w: expense paid by %q has amount %v", ErrInvalidInput, e.PaidByUserID, e.Amount)
		}
		totalSpent += e.Amount

		date := time.Unix(e.CreatedAt, 0).UTC().Format("2006-01-02")
		byDate[date] += e.Amount

		if _, seen := byPayer[e.PaidByUserID]; !seen {
			payerOrder = append(payerOrder, e.PaidByUserID)
		}
		byPayer[e.PaidByUserID] += e.Amount
	}

	trends := make([]DailySpend, 0, len(byDate))
	for date, amount := range byDate {
		trends = append(trends, DailySpend{Date: date, Amount: amount})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Date < trends[j].Date })

	spenders := make([]SpenderTotal, 0, len(payerOrder))
	for _, userID := range payerOrder {
		spenders = append(spenders, SpenderTotal{
			UserID:      userID,
			DisplayName: names[userID],
			Amount:      byPayer[userID],
		})
	}
	// Biggest payer first; first appearance breaks ties.
	sort.SliceStable(spenders, func(i, j int) bool {
		return spenders[i].Amount > spenders[j].Amount
	})
	if len(spenders) > TopSpendersLimit {
		spenders = spenders[:TopSpendersLimit]
	}

	return GroupAnalytics{
		TotalSpent:     totalSpent,
		SpendingTrends: trends,
		TopSpenders:    spenders,
	}, nil
}
