package models

// Member roles within a group. The creator is always the admin.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// MaxGroupNameLength is the longest allowed group name.
const MaxGroupNameLength = 100

// Group represents a named collection of users sharing expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	// CreatedBy is the user ID of the group's creator.
	// Only the creator may delete the group.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// Member represents one user's membership in a group, joined with the
// profile fields needed for display.
type Member struct {
	// UserID references the member's user account.
	UserID string

	// DisplayName is the member's profile display name.
	DisplayName string

	// AvatarURL is the member's profile picture URL, if any.
	AvatarURL string

	// Role is either RoleAdmin or RoleMember.
	Role string

	// JoinedAt is the Unix timestamp when the user joined the group.
	JoinedAt int64
}
