// Package calculator implements the pure balance and split computations.
// It performs no I/O; callers supply the expenses, shares, and members read
// from storage.
package calculator

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Tolerance is the slack allowed when comparing currency sums. It absorbs
// float64 rounding both at write time (shares must sum to the expense
// amount within Tolerance) and at read time (a balance within Tolerance of
// zero counts as settled).
const Tolerance = 0.01

// ErrInvalidInput indicates a non-finite amount (NaN or ±Inf) reached the
// calculator. This is a contract violation by the caller, not a user error:
// storage and validation reject such values before they are persisted.
var ErrInvalidInput = errors.New("non-finite amount")

// Member identifies a group member for balance display.
type Member struct {
	UserID      string
	DisplayName string
}

// ExpenseAmount is the minimal expense information needed for balances.
type ExpenseAmount struct {
	PaidByUserID string
	Amount       float64
}

// ShareAmount is the minimal share information needed for balances.
type ShareAmount struct {
	UserID      string
	ShareAmount float64
}

// MemberBalance is one member's net position within a group.
// Positive = is owed money, negative = owes money, near-zero = settled.
type MemberBalance struct {
	UserID      string
	DisplayName string
	Balance     float64
}

// ComputeGroupBalances computes net balance per member across all expenses
// in a group: amount paid minus sum of shares held.
//
// The result covers the union of the declared members, the payers, and the
// share holders, so a user who paid or owes but is missing from the member
// list still appears (with an empty display name). Results are sorted by
// balance descending, stable on first appearance for ties.
//
// Returns ErrInvalidInput if any amount is non-finite; balances are never
// silently NaN.
func ComputeGroupBalances(members []Member, expenses []ExpenseAmount, shares []ShareAmount) ([]MemberBalance, error) {
	balances := make(map[string]float64, len(members))
	names := make(map[string]string, len(members))
	order := make([]string, 0, len(members))

	track := func(userID string) {
		if _, seen := balances[userID]; !seen {
			balances[userID] = 0
			order = append(order, userID)
		}
	}

	for _, m := range members {
		track(m.UserID)
		names[m.UserID] = m.DisplayName
	}

	for _, e := range expenses {
		if !isFinite(e.Amount) {
			return nil, fmt.Errorf("%w: expense paid by %q has amount %v", ErrInvalidInput, e.PaidByUserID, e.Amount)
		}
		track(e.PaidByUserID)
		balances[e.PaidByUserID] += e.Amount
	}

	for _, s := range shares {
		if !isFinite(s.ShareAmount) {
			return nil, fmt.Errorf("%w: share held by %q has amount %v", ErrInvalidInput, s.UserID, s.ShareAmount)
		}
		track(s.UserID)
		balances[s.UserID] -= s.ShareAmount
	}

	result := make([]MemberBalance, 0, len(order))
	for _, userID := range order {
		result = append(result, MemberBalance{
			UserID:      userID,
			DisplayName: names[userID],
			Balance:     balances[userID],
		})
	}

	// Most-owed first; input order breaks ties.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Balance > result[j].Balance
	})

	return result, nil
}

// Settled reports whether a balance is within Tolerance of zero. Using the
// same tolerance as the write-time share-sum check keeps members from
// flapping between "settled" and "owes $0.00" on rounding residue.
func Settled(balance float64) bool {
	return math.Abs(balance) <= Tolerance
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
