package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"connectrpc.com/connect"

	"github.com/spliteasy/spliteasy/internal/middleware"
	"github.com/spliteasy/spliteasy/internal/models"
	"github.com/spliteasy/spliteasy/internal/rpc"
	"github.com/spliteasy/spliteasy/internal/storage"
	"github.com/spliteasy/spliteasy/internal/storage/sqlite"
)

// testAuthInterceptor reads the caller's user ID from a test header so each
// request can act as a different user without real tokens.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if id := req.Header().Get("Test-User-Id"); id != "" {
				ctx = context.WithValue(ctx, middleware.UserIDKey, id)
			}
			return next(ctx, req)
		}
	}
}

// authed builds a request that acts as the given user.
func authed[T any](userID string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Test-User-Id", userID)
	return req
}

type testEnv struct {
	store    storage.Store
	groups   *rpc.GroupServiceClient
	expenses *rpc.ExpenseServiceClient
}

// setupTestServer starts an HTTP test server backed by a temp SQLite database
// with the group and expense services mounted behind the test auth interceptor.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	authInterceptor := connect.WithInterceptors(testAuthInterceptor())

	mux := http.NewServeMux()
	groupPath, groupHandler := rpc.NewGroupServiceHandler(NewGroupService(store), authInterceptor)
	mux.Handle(groupPath, groupHandler)
	expensePath, expenseHandler := rpc.NewExpenseServiceHandler(NewExpenseService(store), authInterceptor)
	mux.Handle(expensePath, expenseHandler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		store:    store,
		groups:   rpc.NewGroupServiceClient(http.DefaultClient, server.URL),
		expenses: rpc.NewExpenseServiceClient(http.DefaultClient, server.URL),
	}
}

// mustUser creates a user row and returns its generated ID.
func mustUser(t *testing.T, store storage.Store, email, name string) string {
	t.Helper()
	user := models.NewUser(email, name, "hash")
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return user.ID
}

// mustGroup creates a group owned by userID over the RPC surface and returns
// its ID.
func mustGroup(t *testing.T, env *testEnv, userID, name string) string {
	t.Helper()
	resp, err := env.groups.CreateGroup(context.Background(), authed(userID, &rpc.CreateGroupRequest{Name: name}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Group.ID
}

// mustAddMember inserts an existing user into a group.
func mustAddMember(t *testing.T, store storage.Store, groupID, userID string) {
	t.Helper()
	if err := store.AddMember(context.Background(), groupID, userID, models.RoleMember); err != nil {
		t.Fatalf("failed to add member: %v", err)
	}
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %v, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("expected code %v, got %v (%v)", want, got, err)
	}
}

func TestCreateGroup(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")

	resp, err := env.groups.CreateGroup(context.Background(), authed(alice, &rpc.CreateGroupRequest{Name: "  Ski Trip  "}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	group := resp.Msg.Group
	if group.ID == "" {
		t.Error("expected a group ID")
	}
	if group.Name != "Ski Trip" {
		t.Errorf("expected trimmed name 'Ski Trip', got %q", group.Name)
	}
	if group.CreatedBy != alice {
		t.Errorf("expected createdBy %s, got %s", alice, group.CreatedBy)
	}

	// Creator is automatically an admin member.
	getResp, err := env.groups.GetGroup(context.Background(), authed(alice, &rpc.GetGroupRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if len(getResp.Msg.Members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(getResp.Msg.Members))
	}
	member := getResp.Msg.Members[0]
	if member.UserID != alice || member.Role != models.RoleAdmin {
		t.Errorf("expected admin member %s, got %s with role %s", alice, member.UserID, member.Role)
	}
}

func TestCreateGroup_InvalidName(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")

	_, err := env.groups.CreateGroup(context.Background(), authed(alice, &rpc.CreateGroupRequest{Name: "   "}))
	assertCode(t, err, connect.CodeInvalidArgument)

	long := strings.Repeat("x", models.MaxGroupNameLength+1)
	_, err = env.groups.CreateGroup(context.Background(), authed(alice, &rpc.CreateGroupRequest{Name: long}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestCreateGroup_Unauthenticated(t *testing.T) {
	env := setupTestServer(t)

	_, err := env.groups.CreateGroup(context.Background(), connect.NewRequest(&rpc.CreateGroupRequest{Name: "Trip"}))
	assertCode(t, err, connect.CodeUnauthenticated)
}

func TestGetGroup_NonMember(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")
	mallory := mustUser(t, env.store, "mallory@example.com", "Mallory")
	groupID := mustGroup(t, env, alice, "Roommates")

	_, err := env.groups.GetGroup(context.Background(), authed(mallory, &rpc.GetGroupRequest{GroupID: groupID}))
	assertCode(t, err, connect.CodePermissionDenied)
}

func TestListGroups(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")
	bob := mustUser(t, env.store, "bob@example.com", "Bob")

	mustGroup(t, env, alice, "Trip")
	shared := mustGroup(t, env, alice, "Roommates")
	mustAddMember(t, env.store, shared, bob)
	mustGroup(t, env, bob, "Bob Only")

	resp, err := env.groups.ListGroups(context.Background(), authed(alice, &rpc.ListGroupsRequest{}))
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(resp.Msg.Groups) != 2 {
		t.Errorf("expected Alice in 2 groups, got %d", len(resp.Msg.Groups))
	}

	resp, err = env.groups.ListGroups(context.Background(), authed(bob, &rpc.ListGroupsRequest{}))
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(resp.Msg.Groups) != 2 {
		t.Errorf("expected Bob in 2 groups, got %d", len(resp.Msg.Groups))
	}
}

func TestDeleteGroup(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")
	bob := mustUser(t, env.store, "bob@example.com", "Bob")
	groupID := mustGroup(t, env, alice, "Trip")
	mustAddMember(t, env.store, groupID, bob)

	// A plain member may not delete the group.
	_, err := env.groups.DeleteGroup(context.Background(), authed(bob, &rpc.DeleteGroupRequest{GroupID: groupID}))
	assertCode(t, err, connect.CodePermissionDenied)

	if _, err := env.groups.DeleteGroup(context.Background(), authed(alice, &rpc.DeleteGroupRequest{GroupID: groupID})); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}

	resp, err := env.groups.ListGroups(context.Background(), authed(alice, &rpc.ListGroupsRequest{}))
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(resp.Msg.Groups) != 0 {
		t.Errorf("expected no groups after delete, got %d", len(resp.Msg.Groups))
	}
}

func TestAddMember(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")
	bob := mustUser(t, env.store, "bob@example.com", "Bob")
	groupID := mustGroup(t, env, alice, "Trip")

	// Email lookup is case-insensitive, same as login.
	resp, err := env.groups.AddMember(context.Background(), authed(alice, &rpc.AddMemberRequest{
		GroupID: groupID,
		Email:   " Bob@Example.com ",
	}))
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if resp.Msg.Member.UserID != bob {
		t.Errorf("expected member %s, got %s", bob, resp.Msg.Member.UserID)
	}
	if resp.Msg.Member.Role != models.RoleMember {
		t.Errorf("expected role %s, got %s", models.RoleMember, resp.Msg.Member.Role)
	}

	getResp, err := env.groups.GetGroup(context.Background(), authed(bob, &rpc.GetGroupRequest{GroupID: groupID}))
	if err != nil {
		t.Fatalf("GetGroup as new member failed: %v", err)
	}
	if len(getResp.Msg.Members) != 2 {
		t.Errorf("expected 2 members, got %d", len(getResp.Msg.Members))
	}
}

func TestAddMember_NonAdmin(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")
	bob := mustUser(t, env.store, "bob@example.com", "Bob")
	mustUser(t, env.store, "carol@example.com", "Carol")
	groupID := mustGroup(t, env, alice, "Trip")
	mustAddMember(t, env.store, groupID, bob)

	// Bob is a plain member, not an admin.
	_, err := env.groups.AddMember(context.Background(), authed(bob, &rpc.AddMemberRequest{
		GroupID: groupID,
		Email:   "carol@example.com",
	}))
	assertCode(t, err, connect.CodePermissionDenied)
}

func TestAddMember_UnknownEmail(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")
	groupID := mustGroup(t, env, alice, "Trip")

	_, err := env.groups.AddMember(context.Background(), authed(alice, &rpc.AddMemberRequest{
		GroupID: groupID,
		Email:   "nobody@example.com",
	}))
	assertCode(t, err, connect.CodeNotFound)
}

func TestAddMember_AlreadyMember(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")
	mustUser(t, env.store, "bob@example.com", "Bob")
	groupID := mustGroup(t, env, alice, "Trip")

	req := &rpc.AddMemberRequest{GroupID: groupID, Email: "bob@example.com"}
	if _, err := env.groups.AddMember(context.Background(), authed(alice, req)); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	_, err := env.groups.AddMember(context.Background(), authed(alice, req))
	assertCode(t, err, connect.CodeAlreadyExists)
}

func TestDeleteGroup_NotFound(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")

	_, err := env.groups.DeleteGroup(context.Background(), authed(alice, &rpc.DeleteGroupRequest{GroupID: "missing"}))
	assertCode(t, err, connect.CodeNotFound)
}

func TestGetGroupBalances_EmptyGroup(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")
	bob := mustUser(t, env.store, "bob@example.com", "Bob")
	groupID := mustGroup(t, env, alice, "Trip")
	mustAddMember(t, env.store, groupID, bob)

	resp, err := env.groups.GetGroupBalances(context.Background(), authed(alice, &rpc.GetGroupBalancesRequest{GroupID: groupID}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}
	if len(resp.Msg.Balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(resp.Msg.Balances))
	}
	for _, b := range resp.Msg.Balances {
		if b.Balance != 0 {
			t.Errorf("expected zero balance for %s, got %f", b.UserID, b.Balance)
		}
		if b.Status != rpc.BalanceStatusSettled {
			t.Errorf("expected settled status for %s, got %s", b.UserID, b.Status)
		}
	}
}

func TestGetGroupBalances_EqualSplit(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")
	bob := mustUser(t, env.store, "bob@example.com", "Bob")
	carol := mustUser(t, env.store, "carol@example.com", "Carol")
	groupID := mustGroup(t, env, alice, "Dinner Club")
	mustAddMember(t, env.store, groupID, bob)
	mustAddMember(t, env.store, groupID, carol)

	// Alice pays $30 split equally three ways.
	_, err := env.expenses.CreateExpense(context.Background(), authed(alice, &rpc.CreateExpenseRequest{
		GroupID:     groupID,
		Amount:      30,
		Description: "Dinner",
		Participants: []*rpc.Share{
			{UserID: alice, ShareAmount: 10},
			{UserID: bob, ShareAmount: 10},
			{UserID: carol, ShareAmount: 10},
		},
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	resp, err := env.groups.GetGroupBalances(context.Background(), authed(bob, &rpc.GetGroupBalancesRequest{GroupID: groupID}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}
	if len(resp.Msg.Balances) != 3 {
		t.Fatalf("expected 3 balances, got %d", len(resp.Msg.Balances))
	}

	// Sorted descending: Alice (+20) first, then Bob and Carol (-10 each).
	first := resp.Msg.Balances[0]
	if first.UserID != alice || first.Balance != 20 {
		t.Errorf("expected Alice owed 20 first, got %s with %f", first.UserID, first.Balance)
	}
	if first.Status != rpc.BalanceStatusOwed {
		t.Errorf("expected status %s, got %s", rpc.BalanceStatusOwed, first.Status)
	}
	for _, b := range resp.Msg.Balances[1:] {
		if b.Balance != -10 {
			t.Errorf("expected %s to owe 10, got %f", b.UserID, b.Balance)
		}
		if b.Status != rpc.BalanceStatusOwes {
			t.Errorf("expected status %s for %s, got %s", rpc.BalanceStatusOwes, b.UserID, b.Status)
		}
	}
}

func TestGetGroupBalances_CustomSplit(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")
	bob := mustUser(t, env.store, "bob@example.com", "Bob")
	groupID := mustGroup(t, env, alice, "Trip")
	mustAddMember(t, env.store, groupID, bob)

	// Alice pays $50; she consumes $20, Bob $30.
	_, err := env.expenses.CreateExpense(context.Background(), authed(alice, &rpc.CreateExpenseRequest{
		GroupID:     groupID,
		Amount:      50,
		Description: "Groceries",
		Participants: []*rpc.Share{
			{UserID: alice, ShareAmount: 20},
			{UserID: bob, ShareAmount: 30},
		},
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	resp, err := env.groups.GetGroupBalances(context.Background(), authed(alice, &rpc.GetGroupBalancesRequest{GroupID: groupID}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}

	got := map[string]float64{}
	for _, b := range resp.Msg.Balances {
		got[b.UserID] = b.Balance
	}
	if got[alice] != 30 {
		t.Errorf("expected Alice balance 30, got %f", got[alice])
	}
	if got[bob] != -30 {
		t.Errorf("expected Bob balance -30, got %f", got[bob])
	}
}

func TestGetGroupBalances_NonMember(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")
	mallory := mustUser(t, env.store, "mallory@example.com", "Mallory")
	groupID := mustGroup(t, env, alice, "Trip")

	_, err := env.groups.GetGroupBalances(context.Background(), authed(mallory, &rpc.GetGroupBalancesRequest{GroupID: groupID}))
	assertCode(t, err, connect.CodePermissionDenied)
}

func TestGetGroupAnalytics(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")
	bob := mustUser(t, env.store, "bob@example.com", "Bob")
	groupID := mustGroup(t, env, alice, "Trip")
	mustAddMember(t, env.store, groupID, bob)

	for payer, amount := range map[string]float64{alice: 60, bob: 40} {
		_, err := env.expenses.CreateExpense(context.Background(), authed(payer, &rpc.CreateExpenseRequest{
			GroupID:     groupID,
			Amount:      amount,
			Description: "Shared",
			Participants: []*rpc.Share{
				{UserID: alice, ShareAmount: amount / 2},
				{UserID: bob, ShareAmount: amount / 2},
			},
		}))
		if err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
	}

	resp, err := env.groups.GetGroupAnalytics(context.Background(), authed(bob, &rpc.GetGroupAnalyticsRequest{GroupID: groupID}))
	if err != nil {
		t.Fatalf("GetGroupAnalytics failed: %v", err)
	}

	if resp.Msg.TotalSpent != 100 {
		t.Errorf("expected total spent 100, got %f", resp.Msg.TotalSpent)
	}
	// Both expenses land on today's date.
	if len(resp.Msg.SpendingTrends) != 1 {
		t.Fatalf("expected 1 trend entry, got %d", len(resp.Msg.SpendingTrends))
	}
	if resp.Msg.SpendingTrends[0].Amount != 100 {
		t.Errorf("expected 100 spent today, got %f", resp.Msg.SpendingTrends[0].Amount)
	}
	if len(resp.Msg.TopSpenders) != 2 {
		t.Fatalf("expected 2 spenders, got %d", len(resp.Msg.TopSpenders))
	}
	if resp.Msg.TopSpenders[0].UserID != alice || resp.Msg.TopSpenders[0].Amount != 60 {
		t.Errorf("expected Alice first with 60, got %s with %f",
			resp.Msg.TopSpenders[0].UserID, resp.Msg.TopSpenders[0].Amount)
	}
}

func TestGetGroupAnalytics_NonMember(t *testing.T) {
	env := setupTestServer(t)
	alice := mustUser(t, env.store, "alice@example.com", "Alice")
	mallory := mustUser(t, env.store, "mallory@example.com", "Mallory")
	groupID := mustGroup(t, env, alice, "Trip")

	_, err := env.groups.GetGroupAnalytics(context.Background(), authed(mallory, &rpc.GetGroupAnalyticsRequest{GroupID: groupID}))
	assertCode(t, err, connect.CodePermissionDenied)
}
