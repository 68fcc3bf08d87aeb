package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// ExpenseService procedure paths.
const (
	ExpenseServicePrefix                 = "/spliteasy.v1.ExpenseService/"
	ExpenseServiceCreateExpenseProcedure = ExpenseServicePrefix + "CreateExpense"
	ExpenseServiceGetExpenseProcedure    = ExpenseServicePrefix + "GetExpense"
	ExpenseServiceListExpensesProcedure  = ExpenseServicePrefix + "ListExpenses"
	ExpenseServicePreviewSplitProcedure  = ExpenseServicePrefix + "PreviewSplit"
)

// Share is one participant's allocation of an expense amount.
type Share struct {
	UserID      string  `json:"userId"`
	ShareAmount float64 `json:"shareAmount"`
}

type Expense struct {
	ID           string   `json:"id"`
	GroupID      string   `json:"groupId"`
	PaidByUserID string   `json:"paidByUserId"`
	Amount       float64  `json:"amount"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	CreatedAt    int64    `json:"createdAt"`
	Shares       []*Share `json:"shares"`
}

type CreateExpenseRequest struct {
	GroupID     string  `json:"groupId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	// Category is optional; empty means "other".
	Category string `json:"category,omitempty"`
	// Participants carry the proposed split. Zero-share entries are
	// dropped server-side; the rest must sum to Amount within 0.01.
	Participants []*Share `json:"participants"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
}

type GetExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListExpensesRequest struct {
	GroupID string `json:"groupId"`
}

type ListExpensesResponse struct {
	// Expenses are sorted newest first.
	Expenses []*Expense `json:"expenses"`
}

type PreviewSplitRequest struct {
	Amount         float64  `json:"amount"`
	ParticipantIDs []string `json:"participantIds"`
}

type PreviewSplitResponse struct {
	Shares []*Share `json:"shares"`
}

// ExpenseServiceHandler is the server-side API of the expense service.
type ExpenseServiceHandler interface {
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error)
	GetExpense(context.Context, *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	PreviewSplit(context.Context, *connect.Request[PreviewSplitRequest]) (*connect.Response[PreviewSplitResponse], error)
}

// NewExpenseServiceHandler builds an HTTP handler for the expense service.
// It returns the path prefix to mount the handler on.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withHandlerCodec(opts)
	mux := http.NewServeMux()
	mux.Handle(ExpenseServiceCreateExpenseProcedure, connect.NewUnaryHandler(ExpenseServiceCreateExpenseProcedure, svc.CreateExpense, opts...))
	mux.Handle(ExpenseServiceGetExpenseProcedure, connect.NewUnaryHandler(ExpenseServiceGetExpenseProcedure, svc.GetExpense, opts...))
	mux.Handle(ExpenseServiceListExpensesProcedure, connect.NewUnaryHandler(ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts...))
	mux.Handle(ExpenseServicePreviewSplitProcedure, connect.NewUnaryHandler(ExpenseServicePreviewSplitProcedure, svc.PreviewSplit, opts...))
	return ExpenseServicePrefix, mux
}

// ExpenseServiceClient calls the expense service over the Connect protocol.
type ExpenseServiceClient struct {
	createExpense *connect.Client[CreateExpenseRequest, CreateExpenseResponse]
	getExpense    *connect.Client[GetExpenseRequest, GetExpenseResponse]
	listExpenses  *connect.Client[ListExpensesRequest, ListExpensesResponse]
	previewSplit  *connect.Client[PreviewSplitRequest, PreviewSplitResponse]
}

// NewExpenseServiceClient builds a client for the expense service hosted at baseURL.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ExpenseServiceClient {
	opts = withClientCodec(opts)
	return &ExpenseServiceClient{
		createExpense: connect.NewClient[CreateExpenseRequest, CreateExpenseResponse](httpClient, baseURL+ExpenseServiceCreateExpenseProcedure, opts...),
		getExpense:    connect.NewClient[GetExpenseRequest, GetExpenseResponse](httpClient, baseURL+ExpenseServiceGetExpenseProcedure, opts...),
		listExpenses:  connect.NewClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL+ExpenseServiceListExpensesProcedure, opts...),
		previewSplit:  connect.NewClient[PreviewSplitRequest, PreviewSplitResponse](httpClient, baseURL+ExpenseServicePreviewSplitProcedure, opts...),
	}
}

func (c *ExpenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) PreviewSplit(ctx context.Context, req *connect.Request[PreviewSplitRequest]) (*connect.Response[PreviewSplitResponse], error) {
	return c.previewSplit.CallUnary(ctx, req)
}
