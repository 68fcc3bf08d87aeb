package models

// DefaultCategory is used when an expense is created without a category.
const DefaultCategory = "other"

// MaxDescriptionLength is the longest allowed expense description.
const MaxDescriptionLength = 500

// Expense represents a single payment made by one group member on behalf
// of some subset of the group.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// PaidByUserID is the member who paid the full amount.
	PaidByUserID string

	// Amount is the total paid, strictly positive.
	Amount float64

	// Description is a short human-readable label (1-500 chars).
	Description string

	// Category is a free-form tag (e.g., "food", "rent"). Defaults to
	// DefaultCategory when empty.
	Category string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64

	// Shares are the per-participant allocations of Amount. Populated on
	// reads that join the shares table; their sum equals Amount within
	// the write-time tolerance.
	Shares []Share
}

// Share is the portion of an expense's amount attributed to one participant.
// Only participants with a positive share are persisted.
type Share struct {
	// ExpenseID is the expense this share belongs to.
	ExpenseID string

	// UserID is the participant holding this share.
	UserID string

	// ShareAmount is this participant's portion of the expense amount.
	ShareAmount float64
}
