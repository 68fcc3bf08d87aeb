package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// GroupService procedure paths.
const (
	GroupServicePrefix                     = "/spliteasy.v1.GroupService/"
	GroupServiceCreateGroupProcedure       = GroupServicePrefix + "CreateGroup"
	GroupServiceGetGroupProcedure          = GroupServicePrefix + "GetGroup"
	GroupServiceListGroupsProcedure        = GroupServicePrefix + "ListGroups"
	GroupServiceAddMemberProcedure         = GroupServicePrefix + "AddMember"
	GroupServiceDeleteGroupProcedure       = GroupServicePrefix + "DeleteGroup"
	GroupServiceGetGroupBalancesProcedure  = GroupServicePrefix + "GetGroupBalances"
	GroupServiceGetGroupAnalyticsProcedure = GroupServicePrefix + "GetGroupAnalytics"
)

type Group struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedBy string `json:"createdBy"`
	CreatedAt int64  `json:"createdAt"`
}

type Member struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Role        string `json:"role"`
	JoinedAt    int64  `json:"joinedAt"`
}

// Balance statuses rendered by the balance view.
const (
	BalanceStatusOwed    = "is_owed"
	BalanceStatusOwes    = "owes"
	BalanceStatusSettled = "settled"
)

// MemberBalance is one member's net position: positive balance means they
// are owed money, negative means they owe.
type MemberBalance struct {
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	Balance     float64 `json:"balance"`
	Status      string  `json:"status"`
}

type CreateGroupRequest struct {
	Name string `json:"name"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupResponse struct {
	Group   *Group    `json:"group"`
	Members []*Member `json:"members"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type AddMemberRequest struct {
	GroupID string `json:"groupId"`
	// Email identifies the user to add; they must already have an account.
	Email string `json:"email"`
}

type AddMemberResponse struct {
	Member *Member `json:"member"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"groupId"`
}

type DeleteGroupResponse struct{}

type GetGroupBalancesRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupBalancesResponse struct {
	// Balances are sorted by balance descending (most-owed first).
	Balances []*MemberBalance `json:"balances"`
}

// DailySpend is the group's total spending on one calendar day (UTC).
type DailySpend struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// SpenderTotal is one member's total amount paid across the group's expenses.
type SpenderTotal struct {
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	Amount      float64 `json:"amount"`
}

type GetGroupAnalyticsRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupAnalyticsResponse struct {
	TotalSpent float64 `json:"totalSpent"`
	// SpendingTrends are sorted by date ascending.
	SpendingTrends []*DailySpend `json:"spendingTrends"`
	// TopSpenders are sorted by amount descending, at most ten entries.
	TopSpenders []*SpenderTotal `json:"topSpenders"`
}

// GroupServiceHandler is the server-side API of the group service.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error)
	DeleteGroup(context.Context, *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error)
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error)
	GetGroupAnalytics(context.Context, *connect.Request[GetGroupAnalyticsRequest]) (*connect.Response[GetGroupAnalyticsResponse], error)
}

// NewGroupServiceHandler builds an HTTP handler for the group service. It
// returns the path prefix to mount the handler on.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withHandlerCodec(opts)
	mux := http.NewServeMux()
	mux.Handle(GroupServiceCreateGroupProcedure, connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(GroupServiceGetGroupProcedure, connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...))
	mux.Handle(GroupServiceListGroupsProcedure, connect.NewUnaryHandler(GroupServiceListGroupsProcedure, svc.ListGroups, opts...))
	mux.Handle(GroupServiceAddMemberProcedure, connect.NewUnaryHandler(GroupServiceAddMemberProcedure, svc.AddMember, opts...))
	mux.Handle(GroupServiceDeleteGroupProcedure, connect.NewUnaryHandler(GroupServiceDeleteGroupProcedure, svc.DeleteGroup, opts...))
	mux.Handle(GroupServiceGetGroupBalancesProcedure, connect.NewUnaryHandler(GroupServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts...))
	mux.Handle(GroupServiceGetGroupAnalyticsProcedure, connect.NewUnaryHandler(GroupServiceGetGroupAnalyticsProcedure, svc.GetGroupAnalytics, opts...))
	return GroupServicePrefix, mux
}

// GroupServiceClient calls the group service over the Connect protocol.
type GroupServiceClient struct {
	createGroup       *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroup          *connect.Client[GetGroupRequest, GetGroupResponse]
	listGroups        *connect.Client[ListGroupsRequest, ListGroupsResponse]
	addMember         *connect.Client[AddMemberRequest, AddMemberResponse]
	deleteGroup       *connect.Client[DeleteGroupRequest, DeleteGroupResponse]
	getGroupBalances  *connect.Client[GetGroupBalancesRequest, GetGroupBalancesResponse]
	getGroupAnalytics *connect.Client[GetGroupAnalyticsRequest, GetGroupAnalyticsResponse]
}

// NewGroupServiceClient builds a client for the group service hosted at baseURL.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	opts = withClientCodec(opts)
	return &GroupServiceClient{
		createGroup:       connect.NewClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:          connect.NewClient[GetGroupRequest, GetGroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listGroups:        connect.NewClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL+GroupServiceListGroupsProcedure, opts...),
		addMember:         connect.NewClient[AddMemberRequest, AddMemberResponse](httpClient, baseURL+GroupServiceAddMemberProcedure, opts...),
		deleteGroup:       connect.NewClient[DeleteGroupRequest, DeleteGroupResponse](httpClient, baseURL+GroupServiceDeleteGroupProcedure, opts...),
		getGroupBalances:  connect.NewClient[GetGroupBalancesRequest, GetGroupBalancesResponse](httpClient, baseURL+GroupServiceGetGroupBalancesProcedure, opts...),
		getGroupAnalytics: connect.NewClient[GetGroupAnalyticsRequest, GetGroupAnalyticsResponse](httpClient, baseURL+GroupServiceGetGroupAnalyticsProcedure, opts...),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error) {
	return c.addMember.CallUnary(ctx, req)
}

func (c *GroupServiceClient) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error) {
	return c.deleteGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupAnalytics(ctx context.Context, req *connect.Request[GetGroupAnalyticsRequest]) (*connect.Response[GetGroupAnalyticsResponse], error) {
	return c.getGroupAnalytics.CallUnary(ctx, req)
}
