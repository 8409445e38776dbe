package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// LedgerServiceName is the fully-qualified name of the LedgerService.
const LedgerServiceName = "roommates.v1.LedgerService"

// Procedure paths, in the form connect expects.
const (
	CreateLedgerProcedure          = "/" + LedgerServiceName + "/CreateLedger"
	ListLedgersProcedure           = "/" + LedgerServiceName + "/ListLedgers"
	GetLedgerProcedure             = "/" + LedgerServiceName + "/GetLedger"
	ListTransactionsProcedure      = "/" + LedgerServiceName + "/ListTransactions"
	AddTransactionProcedure        = "/" + LedgerServiceName + "/AddTransaction"
	InvalidateTransactionProcedure = "/" + LedgerServiceName + "/InvalidateTransaction"
	GetBalanceProcedure            = "/" + LedgerServiceName + "/GetBalance"
	SuggestSettlementsProcedure    = "/" + LedgerServiceName + "/SuggestSettlements"
)

// NewLedgerServiceHandler builds an HTTP handler for svc. It returns the
// path to mount the handler on.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(CreateLedgerProcedure, connect.NewUnaryHandler(CreateLedgerProcedure, svc.CreateLedger, opts...))
	mux.Handle(ListLedgersProcedure, connect.NewUnaryHandler(ListLedgersProcedure, svc.ListLedgers, opts...))
	mux.Handle(GetLedgerProcedure, connect.NewUnaryHandler(GetLedgerProcedure, svc.GetLedger, opts...))
	mux.Handle(ListTransactionsProcedure, connect.NewUnaryHandler(ListTransactionsProcedure, svc.ListTransactions, opts...))
	mux.Handle(AddTransactionProcedure, connect.NewUnaryHandler(AddTransactionProcedure, svc.AddTransaction, opts...))
	mux.Handle(InvalidateTransactionProcedure, connect.NewUnaryHandler(InvalidateTransactionProcedure, svc.InvalidateTransaction, opts...))
	mux.Handle(GetBalanceProcedure, connect.NewUnaryHandler(GetBalanceProcedure, svc.GetBalance, opts...))
	mux.Handle(SuggestSettlementsProcedure, connect.NewUnaryHandler(SuggestSettlementsProcedure, svc.SuggestSettlements, opts...))

	return "/" + LedgerServiceName + "/", mux
}

// LedgerServiceClient calls a LedgerService over HTTP.
type LedgerServiceClient struct {
	createLedger          *connect.Client[CreateLedgerRequest, CreateLedgerResponse]
	listLedgers           *connect.Client[ListLedgersRequest, ListLedgersResponse]
	getLedger             *connect.Client[GetLedgerRequest, GetLedgerResponse]
	listTransactions      *connect.Client[ListTransactionsRequest, ListTransactionsResponse]
	addTransaction        *connect.Client[AddTransactionRequest, AddTransactionResponse]
	invalidateTransaction *connect.Client[InvalidateTransactionRequest, InvalidateTransactionResponse]
	getBalance            *connect.Client[GetBalanceRequest, GetBalanceResponse]
	suggestSettlements    *connect.Client[SuggestSettlementsRequest, SuggestSettlementsResponse]
}

// NewLedgerServiceClient constructs a client for the service at baseURL
// (e.g. http://localhost:8080).
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &LedgerServiceClient{
		createLedger:          connect.NewClient[CreateLedgerRequest, CreateLedgerResponse](httpClient, baseURL+CreateLedgerProcedure, opts...),
		listLedgers:           connect.NewClient[ListLedgersRequest, ListLedgersResponse](httpClient, baseURL+ListLedgersProcedure, opts...),
		getLedger:             connect.NewClient[GetLedgerRequest, GetLedgerResponse](httpClient, baseURL+GetLedgerProcedure, opts...),
		listTransactions:      connect.NewClient[ListTransactionsRequest, ListTransactionsResponse](httpClient, baseURL+ListTransactionsProcedure, opts...),
		addTransaction:        connect.NewClient[AddTransactionRequest, AddTransactionResponse](httpClient, baseURL+AddTransactionProcedure, opts...),
		invalidateTransaction: connect.NewClient[InvalidateTransactionRequest, InvalidateTransactionResponse](httpClient, baseURL+InvalidateTransactionProcedure, opts...),
		getBalance:            connect.NewClient[GetBalanceRequest, GetBalanceResponse](httpClient, baseURL+GetBalanceProcedure, opts...),
		suggestSettlements:    connect.NewClient[SuggestSettlementsRequest, SuggestSettlementsResponse](httpClient, baseURL+SuggestSettlementsProcedure, opts...),
	}
}

func (c *LedgerServiceClient) CreateLedger(ctx context.Context, req *connect.Request[CreateLedgerRequest]) (*connect.Response[CreateLedgerResponse], error) {
	return c.createLedger.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListLedgers(ctx context.Context, req *connect.Request[ListLedgersRequest]) (*connect.Response[ListLedgersResponse], error) {
	return c.listLedgers.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetLedger(ctx context.Context, req *connect.Request[GetLedgerRequest]) (*connect.Response[GetLedgerResponse], error) {
	return c.getLedger.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	return c.listTransactions.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) AddTransaction(ctx context.Context, req *connect.Request[AddTransactionRequest]) (*connect.Response[AddTransactionResponse], error) {
	return c.addTransaction.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) InvalidateTransaction(ctx context.Context, req *connect.Request[InvalidateTransactionRequest]) (*connect.Response[InvalidateTransactionResponse], error) {
	return c.invalidateTransaction.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetBalance(ctx context.Context, req *connect.Request[GetBalanceRequest]) (*connect.Response[GetBalanceResponse], error) {
	return c.getBalance.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) SuggestSettlements(ctx context.Context, req *connect.Request[SuggestSettlementsRequest]) (*connect.Response[SuggestSettlementsResponse], error) {
	return c.suggestSettlements.CallUnary(ctx, req)
}
