// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/spliteasy/spliteasy/internal/models"
)

// ErrNotFound is returned when a looked-up row does not exist. Callers match
// it with errors.Is to distinguish a missing record from a storage failure.
var ErrNotFound = errors.New("not found")

// Store defines the typed query surface the services depend on. The
// abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer, and lets tests inject failures for
// the partial-write paths.
//
// CreateExpense and CreateShares are deliberately separate operations: the
// expense write is a two-step insert with a compensating DeleteExpense on
// failure, not a single transaction. See ExpenseService.CreateExpense.
type Store interface {
	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email. Returns (nil, nil) if no
	// such user exists.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID. Returns (nil, nil) if no such
	// user exists.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// CreateGroup persists a new group and inserts its creator as an
	// admin member in the same transaction. The group's ID and CreatedAt
	// fields are populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by ID. Returns ErrNotFound if no such
	// group exists.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsByUser retrieves all groups the user is a member of,
	// newest first.
	ListGroupsByUser(ctx context.Context, userID string) ([]*models.Group, error)

	// DeleteGroup removes a group. Memberships and expenses cascade.
	// Returns ErrNotFound if no such group exists.
	DeleteGroup(ctx context.Context, groupID string) error

	// ListMembers retrieves all members of a group with their profile
	// display fields.
	ListMembers(ctx context.Context, groupID string) ([]*models.Member, error)

	// IsMember reports whether the user belongs to the group.
	IsMember(ctx context.Context, groupID, userID string) (bool, error)

	// AddMember inserts a user into a group with the given role.
	AddMember(ctx context.Context, groupID, userID, role string) error

	// CreateExpense persists a new expense row (without shares). The
	// expense's ID and CreatedAt fields are populated by the store.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// CreateShares persists the participant shares for an expense.
	CreateShares(ctx context.Context, expenseID string, shares []models.Share) error

	// GetExpense retrieves an expense by ID, including its shares. Returns
	// ErrNotFound if no such expense exists.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpenses retrieves all expenses in a group, newest first,
	// including their shares.
	ListExpenses(ctx context.Context, groupID string) ([]*models.Expense, error)

	// ListShares retrieves every share belonging to any expense in the
	// group.
	ListShares(ctx context.Context, groupID string) ([]models.Share, error)

	// DeleteExpense removes an expense and its shares. Used both for the
	// compensating delete after a failed share insert and for cascade
	// cleanup.
	DeleteExpense(ctx context.Context, expenseID string) error

	// Close releases any resources held by the store.
	Close() error
}
