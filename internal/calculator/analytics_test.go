package calculator

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func day(s string) int64 {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.Unix()
}

func TestComputeGroupAnalytics_Empty(t *testing.T) {
	analytics, err := ComputeGroupAnalytics(
		[]Member{{UserID: "a", DisplayName: "Alice"}},
		nil,
	)
	if err != nil {
		t.Fatalf("ComputeGroupAnalytics failed: %v", err)
	}
	if analytics.TotalSpent != 0 {
		t.Errorf("expected total 0, got %f", analytics.TotalSpent)
	}
	if len(analytics.SpendingTrends) != 0 {
		t.Errorf("expected no trends, got %d", len(analytics.SpendingTrends))
	}
	if len(analytics.TopSpenders) != 0 {
		t.Errorf("expected no spenders, got %d", len(analytics.TopSpenders))
	}
}

func TestComputeGroupAnalytics_TrendsAndSpenders(t *testing.T) {
	members := []Member{
		{UserID: "a", DisplayName: "Alice"},
		{UserID: "b", DisplayName: "Bob"},
	}
	expenses := []ExpenseRecord{
		{PaidByUserID: "a", Amount: 30, CreatedAt: day("2026-03-02")},
		{PaidByUserID: "b", Amount: 50, CreatedAt: day("2026-03-01")},
		{PaidByUserID: "a", Amount: 10, CreatedAt: day("2026-03-02")},
	}

	analytics, err := ComputeGroupAnalytics(members, expenses)
	if err != nil {
		t.Fatalf("ComputeGroupAnalytics failed: %v", err)
	}

	if analytics.TotalSpent != 90 {
		t.Errorf("expected total 90, got %f", analytics.TotalSpent)
	}

	// Trends grouped by day, sorted ascending.
	if len(analytics.SpendingTrends) != 2 {
		t.Fatalf("expected 2 trend entries, got %d", len(analytics.SpendingTrends))
	}
	if analytics.SpendingTrends[0].Date != "2026-03-01" || analytics.SpendingTrends[0].Amount != 50 {
		t.Errorf("expected 50 on 2026-03-01, got %v", analytics.SpendingTrends[0])
	}
	if analytics.SpendingTrends[1].Date != "2026-03-02" || analytics.SpendingTrends[1].Amount != 40 {
		t.Errorf("expected 40 on 2026-03-02, got %v", analytics.SpendingTrends[1])
	}

	// Top spenders sorted by amount descending with display names attached.
	if len(analytics.TopSpenders) != 2 {
		t.Fatalf("expected 2 spenders, got %d", len(analytics.TopSpenders))
	}
	if analytics.TopSpenders[0].UserID != "b" || analytics.TopSpenders[0].Amount != 50 {
		t.Errorf("expected Bob first with 50, got %v", analytics.TopSpenders[0])
	}
	if analytics.TopSpenders[0].DisplayName != "Bob" {
		t.Errorf("expected display name Bob, got %q", analytics.TopSpenders[0].DisplayName)
	}
	if analytics.TopSpenders[1].UserID != "a" || analytics.TopSpenders[1].Amount != 40 {
		t.Errorf("expected Alice second with 40, got %v", analytics.TopSpenders[1])
	}
}

func TestComputeGroupAnalytics_UnknownPayer(t *testing.T) {
	analytics, err := ComputeGroupAnalytics(nil, []ExpenseRecord{
		{PaidByUserID: "ghost", Amount: 25, CreatedAt: day("2026-01-01")},
	})
	if err != nil {
		t.Fatalf("ComputeGroupAnalytics failed: %v", err)
	}
	if len(analytics.TopSpenders) != 1 {
		t.Fatalf("expected 1 spender, got %d", len(analytics.TopSpenders))
	}
	if analytics.TopSpenders[0].DisplayName != "" {
		t.Errorf("expected empty display name for unknown payer, got %q", analytics.TopSpenders[0].DisplayName)
	}
}

func TestComputeGroupAnalytics_SpenderCap(t *testing.T) {
	var expenses []ExpenseRecord
	for i := 0; i < TopSpendersLimit+5; i++ {
		expenses = append(expenses, ExpenseRecord{
			PaidByUserID: fmt.Sprintf("user-%02d", i),
			Amount:       float64(i + 1),
			CreatedAt:    day("2026-01-01"),
		})
	}

	analytics, err := ComputeGroupAnalytics(nil, expenses)
	if err != nil {
		t.Fatalf("ComputeGroupAnalytics failed: %v", err)
	}
	if len(analytics.TopSpenders) != TopSpendersLimit {
		t.Fatalf("expected %d spenders, got %d", TopSpendersLimit, len(analytics.TopSpenders))
	}
	// The smallest payers fall off the end, not the biggest.
	if analytics.TopSpenders[0].Amount != float64(TopSpendersLimit+5) {
		t.Errorf("expected biggest payer first, got %f", analytics.TopSpenders[0].Amount)
	}
}

func TestComputeGroupAnalytics_NonFinite(t *testing.T) {
	_, err := ComputeGroupAnalytics(nil, []ExpenseRecord{
		{PaidByUserID: "a", Amount: math.NaN(), CreatedAt: day("2026-01-01")},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
