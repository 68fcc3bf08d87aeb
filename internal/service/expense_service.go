package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/spliteasy/spliteasy/internal/calculator"
	"github.com/spliteasy/spliteasy/internal/middleware"
	"github.com/spliteasy/spliteasy/internal/models"
	"github.com/spliteasy/spliteasy/internal/rpc"
	"github.com/spliteasy/spliteasy/internal/storage"
)

// Ensure ExpenseService implements the RPC interface.
var _ rpc.ExpenseServiceHandler = (*ExpenseService)(nil)

// ExpenseService implements the ExpenseService RPC interface.
type ExpenseService struct {
	store storage.Store
}

// NewExpenseService creates a new ExpenseService with the given storage backend.
func NewExpenseService(store storage.Store) *ExpenseService {
	return &ExpenseService{store: store}
}

func toRPCExpense(expense *models.Expense) *rpc.Expense {
	shares := make([]*rpc.Share, len(expense.Shares))
	for i, s := range expense.Shares {
		shares[i] = &rpc.Share{UserID: s.UserID, ShareAmount: s.ShareAmount}
	}
	return &rpc.Expense{
		ID:           expense.ID,
		GroupID:      expense.GroupID,
		PaidByUserID: expense.PaidByUserID,
		Amount:       expense.Amount,
		Description:  expense.Description,
		Category:     expense.Category,
		CreatedAt:    expense.CreatedAt,
		Shares:       shares,
	}
}

// CreateExpense validates and persists a new expense paid by the caller.
//
// Validation mirrors the creation form: positive amount, 1-500 character
// description, and shares that sum to the amount within the calculator
// tolerance; zero-share members are dropped. The expense row and its share
// rows are written in two steps. If the share write fails, the expense row
// is deleted as a compensating action; if that delete also fails, the
// orphaned row is logged and an error is still returned.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[rpc.CreateExpenseRequest]) (*connect.Response[rpc.CreateExpenseResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	if req.Msg.GroupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("groupId required"))
	}
	if err := requireMember(ctx, s.store, req.Msg.GroupID, userID); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(req.Msg.Description)
	if description == "" {
		expenseValidationFailures.WithLabelValues("description").Inc()
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("description is required"))
	}
	if len(description) > models.MaxDescriptionLength {
		expenseValidationFailures.WithLabelValues("description").Inc()
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("description must be %d characters or less", models.MaxDescriptionLength))
	}

	proposed := make([]calculator.ShareAmount, len(req.Msg.Participants))
	for i, p := range req.Msg.Participants {
		proposed[i] = calculator.ShareAmount{UserID: p.UserID, ShareAmount: p.ShareAmount}
	}

	active, err := calculator.ValidateShares(req.Msg.Amount, proposed)
	if err != nil {
		if errors.Is(err, calculator.ErrInvalidInput) {
			expenseValidationFailures.WithLabelValues("amount").Inc()
		} else {
			expenseValidationFailures.WithLabelValues("shares").Inc()
		}
		slog.Warn("CreateExpense validation failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	// Every share holder must belong to the group.
	for _, share := range active {
		ok, err := s.store.IsMember(ctx, req.Msg.GroupID, share.UserID)
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		if !ok {
			expenseValidationFailures.WithLabelValues("shares").Inc()
			return nil, connect.NewError(connect.CodeInvalidArgument,
				fmt.Errorf("participant %s is not a member of this group", share.UserID))
		}
	}

	expense := &models.Expense{
		GroupID:      req.Msg.GroupID,
		PaidByUserID: userID,
		Amount:       req.Msg.Amount,
		Description:  description,
		Category:     strings.TrimSpace(req.Msg.Category),
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("CreateExpense failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	shares := make([]models.Share, len(active))
	for i, share := range active {
		shares[i] = models.Share{
			ExpenseID:   expense.ID,
			UserID:      share.UserID,
			ShareAmount: share.ShareAmount,
		}
	}

	if err := s.store.CreateShares(ctx, expense.ID, shares); err != nil {
		slog.Error("CreateExpense: share insert failed, deleting expense",
			"expense_id", expense.ID, "error", err)

		// Compensating delete. If it fails the row is a known-inconsistent
		// orphan; it is logged and the caller still gets an error.
		if delErr := s.store.DeleteExpense(ctx, expense.ID); delErr != nil {
			expenseCompensations.WithLabelValues("orphaned").Inc()
			slog.Error("CreateExpense: compensating delete failed, orphaned expense remains",
				"expense_id", expense.ID, "error", delErr)
		} else {
			expenseCompensations.WithLabelValues("deleted").Inc()
		}
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to save expense shares: %w", err))
	}

	expense.Shares = shares
	expensesCreated.Inc()
	slog.Info("Expense created",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"amount", expense.Amount,
		"participants", len(shares),
	)

	return connect.NewResponse(&rpc.CreateExpenseResponse{
		Expense: toRPCExpense(expense),
	}), nil
}

// GetExpense retrieves an expense with its shares. Group members only.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[rpc.GetExpenseRequest]) (*connect.Response[rpc.GetExpenseResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	expense, err := s.store.GetExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		slog.Error("GetExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	if err := requireMember(ctx, s.store, expense.GroupID, userID); err != nil {
		return nil, err
	}

	return connect.NewResponse(&rpc.GetExpenseResponse{
		Expense: toRPCExpense(expense),
	}), nil
}

// ListExpenses retrieves all expenses in a group, newest first. Group
// members only.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[rpc.ListExpensesRequest]) (*connect.Response[rpc.ListExpensesResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	if err := requireMember(ctx, s.store, req.Msg.GroupID, userID); err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpenses(ctx, req.Msg.GroupID)
	if err != nil {
		slog.Error("ListExpenses failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	rpcExpenses := make([]*rpc.Expense, len(expenses))
	for i, expense := range expenses {
		rpcExpenses[i] = toRPCExpense(expense)
	}

	return connect.NewResponse(&rpc.ListExpensesResponse{
		Expenses: rpcExpenses,
	}), nil
}

// PreviewSplit computes an equal split of an amount among participants, for
// the creation form's "split equally" button. Nothing is persisted.
func (s *ExpenseService) PreviewSplit(ctx context.Context, req *connect.Request[rpc.PreviewSplitRequest]) (*connect.Response[rpc.PreviewSplitResponse], error) {
	split, err := calculator.SplitEqually(req.Msg.Amount, req.Msg.ParticipantIDs)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	// Preserve the request's participant order.
	shares := make([]*rpc.Share, len(req.Msg.ParticipantIDs))
	for i, id := range req.Msg.ParticipantIDs {
		shares[i] = &rpc.Share{UserID: id, ShareAmount: split[id]}
	}

	return connect.NewResponse(&rpc.PreviewSplitResponse{
		Shares: shares,
	}), nil
}
