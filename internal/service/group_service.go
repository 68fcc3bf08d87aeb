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

// Ensure GroupService implements the RPC interface.
var _ rpc.GroupServiceHandler = (*GroupService)(nil)

// GroupService implements the GroupService RPC interface.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

func toRPCGroup(group *models.Group) *rpc.Group {
	return &rpc.Group{
		ID:        group.ID,
		Name:      group.Name,
		CreatedBy: group.CreatedBy,
		CreatedAt: group.CreatedAt,
	}
}

// requireMember returns a PermissionDenied error unless the user belongs to
// the group. The membership gate runs before any aggregation or listing.
func requireMember(ctx context.Context, store storage.Store, groupID, userID string) error {
	ok, err := store.IsMember(ctx, groupID, userID)
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	if !ok {
		return connect.NewError(connect.CodePermissionDenied, fmt.Errorf("you are not a member of this group"))
	}
	return nil
}

// requireAdmin returns a PermissionDenied error unless the user holds the
// admin role in the group.
func requireAdmin(ctx context.Context, store storage.Store, groupID, userID string) error {
	members, err := store.ListMembers(ctx, groupID)
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	for _, m := range members {
		if m.UserID == userID {
			if m.Role != models.RoleAdmin {
				return connect.NewError(connect.CodePermissionDenied, fmt.Errorf("only a group admin can do this"))
			}
			return nil
		}
	}
	return connect.NewError(connect.CodePermissionDenied, fmt.Errorf("you are not a member of this group"))
}

// CreateGroup creates a new group owned by the caller. The creator becomes
// the group's admin member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[rpc.CreateGroupRequest]) (*connect.Response[rpc.CreateGroupResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("group name is required"))
	}
	if len(name) > models.MaxGroupNameLength {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("group name must be %d characters or less", models.MaxGroupNameLength))
	}

	group := &models.Group{
		Name:      name,
		CreatedBy: userID,
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	groupsCreated.Inc()
	slog.Info("Group created", "group_id", group.ID, "created_by", userID)

	return connect.NewResponse(&rpc.CreateGroupResponse{
		Group: toRPCGroup(group),
	}), nil
}

// GetGroup retrieves a group with its member list. Members only.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[rpc.GetGroupRequest]) (*connect.Response[rpc.GetGroupResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	if err := requireMember(ctx, s.store, req.Msg.GroupID, userID); err != nil {
		return nil, err
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		slog.Error("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	members, err := s.store.ListMembers(ctx, group.ID)
	if err != nil {
		slog.Error("GetGroup: failed to list members", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	rpcMembers := make([]*rpc.Member, len(members))
	for i, m := range members {
		rpcMembers[i] = &rpc.Member{
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			AvatarURL:   m.AvatarURL,
			Role:        m.Role,
			JoinedAt:    m.JoinedAt,
		}
	}

	return connect.NewResponse(&rpc.GetGroupResponse{
		Group:   toRPCGroup(group),
		Members: rpcMembers,
	}), nil
}

// ListGroups retrieves all groups the caller belongs to, newest first.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[rpc.ListGroupsRequest]) (*connect.Response[rpc.ListGroupsResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	groups, err := s.store.ListGroupsByUser(ctx, userID)
	if err != nil {
		slog.Error("ListGroups failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	rpcGroups := make([]*rpc.Group, len(groups))
	for i, group := range groups {
		rpcGroups[i] = toRPCGroup(group)
	}

	return connect.NewResponse(&rpc.ListGroupsResponse{
		Groups: rpcGroups,
	}), nil
}

// AddMember adds an existing user to a group by email. Only group admins may
// add members; the invitee must already have an account.
func (s *GroupService) AddMember(ctx context.Context, req *connect.Request[rpc.AddMemberRequest]) (*connect.Response[rpc.AddMemberResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	if req.Msg.GroupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("groupId required"))
	}
	email := strings.ToLower(strings.TrimSpace(req.Msg.Email))
	if email == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("email is required"))
	}

	if err := requireAdmin(ctx, s.store, req.Msg.GroupID, userID); err != nil {
		return nil, err
	}

	invitee, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		slog.Error("AddMember: user lookup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if invitee == nil {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("no account for %s", email))
	}

	ok, err := s.store.IsMember(ctx, req.Msg.GroupID, invitee.ID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if ok {
		return nil, connect.NewError(connect.CodeAlreadyExists, fmt.Errorf("%s is already a member of this group", email))
	}

	if err := s.store.AddMember(ctx, req.Msg.GroupID, invitee.ID, models.RoleMember); err != nil {
		slog.Error("AddMember failed", "group_id", req.Msg.GroupID, "user_id", invitee.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	membersAdded.Inc()
	slog.Info("Member added", "group_id", req.Msg.GroupID, "user_id", invitee.ID, "added_by", userID)

	// Re-read the membership row for the stored joined_at.
	members, err := s.store.ListMembers(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	for _, m := range members {
		if m.UserID == invitee.ID {
			return connect.NewResponse(&rpc.AddMemberResponse{
				Member: &rpc.Member{
					UserID:      m.UserID,
					DisplayName: m.DisplayName,
					AvatarURL:   m.AvatarURL,
					Role:        m.Role,
					JoinedAt:    m.JoinedAt,
				},
			}), nil
		}
	}
	return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("member row missing after insert"))
}

// DeleteGroup removes a group. Only the creator may delete it; expenses and
// memberships cascade.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[rpc.DeleteGroupRequest]) (*connect.Response[rpc.DeleteGroupResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		slog.Error("DeleteGroup: failed to get group", "group_id", req.Msg.GroupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	if group.CreatedBy != userID {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("only the group creator can delete it"))
	}

	if err := s.store.DeleteGroup(ctx, group.ID); err != nil {
		slog.Error("DeleteGroup failed", "group_id", group.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Group deleted", "group_id", group.ID, "deleted_by", userID)
	return connect.NewResponse(&rpc.DeleteGroupResponse{}), nil
}

// GetGroupBalances computes net balances across all expenses in a group.
// Balances are derived fresh from the expense and share rows on every call.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[rpc.GetGroupBalancesRequest]) (*connect.Response[rpc.GetGroupBalancesResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	groupID := req.Msg.GroupID
	if groupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("groupId required"))
	}

	if err := requireMember(ctx, s.store, groupID, userID); err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		slog.Error("GetGroupBalances: failed to list members", "group_id", groupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	expenses, err := s.store.ListExpenses(ctx, groupID)
	if err != nil {
		slog.Error("GetGroupBalances: failed to list expenses", "group_id", groupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	shares, err := s.store.ListShares(ctx, groupID)
	if err != nil {
		slog.Error("GetGroupBalances: failed to list shares", "group_id", groupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	calcMembers := make([]calculator.Member, len(members))
	for i, m := range members {
		calcMembers[i] = calculator.Member{UserID: m.UserID, DisplayName: m.DisplayName}
	}
	calcExpenses := make([]calculator.ExpenseAmount, len(expenses))
	for i, e := range expenses {
		calcExpenses[i] = calculator.ExpenseAmount{PaidByUserID: e.PaidByUserID, Amount: e.Amount}
	}
	calcShares := make([]calculator.ShareAmount, len(shares))
	for i, sh := range shares {
		calcShares[i] = calculator.ShareAmount{UserID: sh.UserID, ShareAmount: sh.ShareAmount}
	}

	balances, err := calculator.ComputeGroupBalances(calcMembers, calcExpenses, calcShares)
	if err != nil {
		// Non-finite amounts in storage are a contract violation; fail
		// loudly rather than render NaN balances.
		if errors.Is(err, calculator.ErrInvalidInput) {
			slog.Error("GetGroupBalances: invalid amounts in storage", "group_id", groupID, "error", err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	balanceComputations.Inc()

	rpcBalances := make([]*rpc.MemberBalance, len(balances))
	for i, b := range balances {
		status := rpc.BalanceStatusSettled
		if !calculator.Settled(b.Balance) {
			if b.Balance > 0 {
				status = rpc.BalanceStatusOwed
			} else {
				status = rpc.BalanceStatusOwes
			}
		}
		rpcBalances[i] = &rpc.MemberBalance{
			UserID:      b.UserID,
			DisplayName: b.DisplayName,
			Balance:     b.Balance,
			Status:      status,
		}
	}

	slog.Info("Group balances computed",
		"group_id", groupID,
		"expenses_count", len(expenses),
		"members_count", len(rpcBalances),
	)

	return connect.NewResponse(&rpc.GetGroupBalancesResponse{
		Balances: rpcBalances,
	}), nil
}

// GetGroupAnalytics summarizes a group's spending: total spent, per-day
// trend, and top payers. Members only; derived fresh like balances.
func (s *GroupService) GetGroupAnalytics(ctx context.Context, req *connect.Request[rpc.GetGroupAnalyticsRequest]) (*connect.Response[rpc.GetGroupAnalyticsResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}

	groupID := req.Msg.GroupID
	if groupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("groupId required"))
	}

	if err := requireMember(ctx, s.store, groupID, userID); err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		slog.Error("GetGroupAnalytics: failed to list members", "group_id", groupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	expenses, err := s.store.ListExpenses(ctx, groupID)
	if err != nil {
		slog.Error("GetGroupAnalytics: failed to list expenses", "group_id", groupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	calcMembers := make([]calculator.Member, len(members))
	for i, m := range members {
		calcMembers[i] = calculator.Member{UserID: m.UserID, DisplayName: m.DisplayName}
	}
	records := make([]calculator.ExpenseRecord, len(expenses))
	for i, e := range expenses {
		records[i] = calculator.ExpenseRecord{
			PaidByUserID: e.PaidByUserID,
			Amount:       e.Amount,
			CreatedAt:    e.CreatedAt,
		}
	}

	analytics, err := calculator.ComputeGroupAnalytics(calcMembers, records)
	if err != nil {
		if errors.Is(err, calculator.ErrInvalidInput) {
			slog.Error("GetGroupAnalytics: invalid amounts in storage", "group_id", groupID, "error", err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	trends := make([]*rpc.DailySpend, len(analytics.SpendingTrends))
	for i, d := range analytics.SpendingTrends {
		trends[i] = &rpc.DailySpend{Date: d.Date, Amount: d.Amount}
	}
	spenders := make([]*rpc.SpenderTotal, len(analytics.TopSpenders))
	for i, sp := range analytics.TopSpenders {
		spenders[i] = &rpc.SpenderTotal{
			UserID:      sp.UserID,
			DisplayName: sp.DisplayName,
			Amount:      sp.Amount,
		}
	}

	return connect.NewResponse(&rpc.GetGroupAnalyticsResponse{
		TotalSpent:     analytics.TotalSpent,
		SpendingTrends: trends,
		TopSpenders:    spenders,
	}), nil
}
