package calculator

import (
	"fmt"
)

// SplitEqually divides a total equally among the given participants.
// Each share is total / n, with no cent-level remainder distribution:
// $10.00 across three people yields three shares of $3.3333..., which sum
// back to the total within float64 precision. This matches the behavior of
// the expense form's "split equally" button.
func SplitEqually(total float64, participantIDs []string) (map[string]float64, error) {
	if !isFinite(total) {
		return nil, fmt.Errorf("%w: total %v", ErrInvalidInput, total)
	}
	if total <= 0 {
		return nil, fmt.Errorf("amount must be greater than 0")
	}
	if len(participantIDs) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}

	perPerson := total / float64(len(participantIDs))
	shares := make(map[string]float64, len(participantIDs))
	for _, id := range participantIDs {
		shares[id] = perPerson
	}
	return shares, nil
}

// ValidateShares checks the invariant the balance computation depends on:
// the sum of positive shares must equal the expense total within Tolerance.
//
// Entries with a zero share are dropped (the member sat this expense out);
// negative shares are rejected. On success the returned slice contains only
// the active participants, with duplicate user entries merged, and is what
// the caller should persist.
func ValidateShares(total float64, shares []ShareAmount) ([]ShareAmount, error) {
	if !isFinite(total) {
		return nil, fmt.Errorf("%w: total %v", ErrInvalidInput, total)
	}
	if total <= 0 {
		return nil, fmt.Errorf("amount must be greater than 0")
	}

	merged := make(map[string]float64, len(shares))
	order := make([]string, 0, len(shares))
	for _, s := range shares {
		if !isFinite(s.ShareAmount) {
			return nil, fmt.Errorf("%w: share for %q is %v", ErrInvalidInput, s.UserID, s.ShareAmount)
		}
		if s.ShareAmount < 0 {
			return nil, fmt.Errorf("share for %q must not be negative", s.UserID)
		}
		if s.ShareAmount == 0 {
			continue
		}
		if _, seen := merged[s.UserID]; !seen {
			order = append(order, s.UserID)
		}
		merged[s.UserID] += s.ShareAmount
	}

	if len(order) == 0 {
		return nil, fmt.Errorf("at least one participant must have a positive share")
	}

	sum := 0.0
	active := make([]ShareAmount, 0, len(order))
	for _, userID := range order {
		sum += merged[userID]
		active = append(active, ShareAmount{UserID: userID, ShareAmount: merged[userID]})
	}

	if diff := sum - total; diff > Tolerance || diff < -Tolerance {
		return nil, fmt.Errorf("shares sum to %.2f but the expense amount is %.2f", sum, total)
	}

	return active, nil
}
