package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/roommates/internal/calculator"
	"github.com/mmynk/roommates/internal/events"
	"github.com/mmynk/roommates/internal/ledger"
	"github.com/mmynk/roommates/internal/lock"
	"github.com/mmynk/roommates/internal/metrics"
	"github.com/mmynk/roommates/internal/middleware"
	"github.com/mmynk/roommates/internal/models"
	"github.com/mmynk/roommates/internal/money"
	"github.com/mmynk/roommates/internal/storage"
)

// LedgerService implements the Connect LedgerService.
type LedgerService struct {
	store     storage.Store
	locker    lock.Locker
	engine    *ledger.Engine
	publisher events.Publisher
	metrics   *metrics.Metrics
}

// Option configures a LedgerService.
type Option func(*LedgerService)

// WithLocker replaces the default in-process locker.
func WithLocker(l lock.Locker) Option {
	return func(s *LedgerService) { s.locker = l }
}

// WithPublisher sets where committed changes are announced.
func WithPublisher(p events.Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LedgerService) { s.metrics = m }
}

// WithEngine overrides the ledger engine, typically to fix the clock.
func WithEngine(e *ledger.Engine) Option {
	return func(s *LedgerService) { s.engine = e }
}

// NewLedgerService creates a LedgerService with the given storage backend.
func NewLedgerService(store storage.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:     store,
		locker:    lock.NewLocal(),
		engine:    ledger.NewEngine(),
		publisher: events.Noop{},
		metrics:   metrics.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLedger creates an expense group ledger with zero balances.
func (s *LedgerService) CreateLedger(ctx context.Context, req *connect.Request[CreateLedgerRequest]) (*connect.Response[CreateLedgerResponse], error) {
	const op = "CreateLedger"
	slog.Info("CreateLedger request received",
		"group_id", req.Msg.GroupID,
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, s.fail(op, err)
	}

	l, err := ledger.Create(req.Msg.GroupID, req.Msg.Name, req.Msg.Members)
	if err != nil {
		return nil, s.fail(op, err)
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateLedger(ctx, l); err != nil {
		return nil, s.fail(op, err)
	}

	slog.Info("Ledger created", "ledger_id", l.ID, "group_id", l.GroupID)
	s.publish(ctx, events.Event{
		Type:       events.TypeLedgerCreated,
		LedgerID:   l.ID,
		GroupID:    l.GroupID,
		Actor:      userID,
		OccurredAt: l.CreatedAt,
	})

	return connect.NewResponse(&CreateLedgerResponse{Ledger: toLedger(l, true)}), nil
}

// ListLedgers returns a group's ledgers, oldest first, without history.
func (s *LedgerService) ListLedgers(ctx context.Context, req *connect.Request[ListLedgersRequest]) (*connect.Response[ListLedgersResponse], error) {
	const op = "ListLedgers"
	slog.Info("ListLedgers request received", "group_id", req.Msg.GroupID)

	if req.Msg.GroupID == "" {
		return nil, s.fail(op, &ledger.ValidationError{Field: "group_id", Message: "must not be empty"})
	}

	ledgers, err := s.store.ListLedgersByGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	out := make([]*Ledger, len(ledgers))
	for i, l := range ledgers {
		out[i] = toLedger(l, false)
	}

	slog.Info("ListLedgers successful", "group_id", req.Msg.GroupID, "count", len(out))
	return connect.NewResponse(&ListLedgersResponse{Ledgers: out}), nil
}

// GetLedger returns a ledger with balances and full history.
func (s *LedgerService) GetLedger(ctx context.Context, req *connect.Request[GetLedgerRequest]) (*connect.Response[GetLedgerResponse], error) {
	const op = "GetLedger"
	slog.Info("GetLedger request received", "ledger_id", req.Msg.LedgerID)

	l, err := s.store.GetLedger(ctx, req.Msg.LedgerID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	return connect.NewResponse(&GetLedgerResponse{Ledger: toLedger(l, true)}), nil
}

// ListTransactions returns a ledger's transactions in application order.
func (s *LedgerService) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	const op = "ListTransactions"
	slog.Info("ListTransactions request received", "ledger_id", req.Msg.LedgerID, "active_only", req.Msg.ActiveOnly)

	l, err := s.store.GetLedger(ctx, req.Msg.LedgerID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	return connect.NewResponse(&ListTransactionsResponse{
		Transactions: toTransactions(l.Transactions, req.Msg.ActiveOnly),
	}), nil
}

// AddTransaction applies a new expense paid by Payer and owed by Owers.
func (s *LedgerService) AddTransaction(ctx context.Context, req *connect.Request[AddTransactionRequest]) (*connect.Response[AddTransactionResponse], error) {
	const op = "AddTransaction"
	slog.Info("AddTransaction request received",
		"ledger_id", req.Msg.LedgerID,
		"payer", req.Msg.Payer,
		"owers_count", len(req.Msg.Owers),
		"amount", req.Msg.Amount,
	)

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, s.fail(op, err)
	}

	amount, err := money.Parse(req.Msg.Amount)
	if err != nil {
		return nil, s.fail(op, &ledger.ValidationError{Field: "amount", Message: err.Error()})
	}

	var txn *models.Transaction
	l, err := s.mutate(ctx, req.Msg.LedgerID, func(current *models.Ledger) (*models.Ledger, error) {
		if !current.HasMember(userID) {
			return nil, errNotMember
		}
		next, applied, err := s.engine.Apply(current, ledger.ApplyInput{
			Payer:       req.Msg.Payer,
			Owers:       req.Msg.Owers,
			Amount:      amount,
			Description: req.Msg.Description,
		})
		if err != nil {
			return nil, err
		}
		txn = applied
		return next, nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.metrics.TransactionApplied()
	slog.Info("Transaction applied", "ledger_id", l.ID, "transaction_id", txn.ID, "amount", txn.Amount)
	s.publish(ctx, events.Event{
		Type:          events.TypeTransactionApplied,
		LedgerID:      l.ID,
		GroupID:       l.GroupID,
		TransactionID: txn.ID,
		Payer:         txn.Payer,
		Owers:         txn.Owers,
		Amount:        txn.Amount.Decimal(),
		Actor:         userID,
		OccurredAt:    txn.CreatedAt,
	})

	return connect.NewResponse(&AddTransactionResponse{
		Transaction: toTransaction(txn),
		Balances:    toBalances(l),
	}), nil
}

// InvalidateTransaction reverses a transaction on behalf of the caller.
func (s *LedgerService) InvalidateTransaction(ctx context.Context, req *connect.Request[InvalidateTransactionRequest]) (*connect.Response[InvalidateTransactionResponse], error) {
	const op = "InvalidateTransaction"
	slog.Info("InvalidateTransaction request received",
		"ledger_id", req.Msg.LedgerID,
		"transaction_id", req.Msg.TransactionID,
	)

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, s.fail(op, err)
	}

	l, err := s.mutate(ctx, req.Msg.LedgerID, func(current *models.Ledger) (*models.Ledger, error) {
		if !current.HasMember(userID) {
			return nil, errNotMember
		}
		return s.engine.Reverse(current, req.Msg.TransactionID, req.Msg.Reason, userID)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	txn := &l.Transactions[ledger.FindTransaction(l, req.Msg.TransactionID)]
	s.metrics.TransactionInvalidated()
	slog.Info("Transaction invalidated", "ledger_id", l.ID, "transaction_id", txn.ID, "by", userID)
	s.publish(ctx, events.Event{
		Type:          events.TypeTransactionInvalidated,
		LedgerID:      l.ID,
		GroupID:       l.GroupID,
		TransactionID: txn.ID,
		Payer:         txn.Payer,
		Owers:         txn.Owers,
		Amount:        txn.Amount.Decimal(),
		Actor:         userID,
		Reason:        txn.InvalidatedReason,
		OccurredAt:    txn.InvalidatedAt,
	})

	return connect.NewResponse(&InvalidateTransactionResponse{
		Transaction: toTransaction(txn),
		Balances:    toBalances(l),
	}), nil
}

// GetBalance returns one member's balance.
func (s *LedgerService) GetBalance(ctx context.Context, req *connect.Request[GetBalanceRequest]) (*connect.Response[GetBalanceResponse], error) {
	const op = "GetBalance"
	slog.Info("GetBalance request received", "ledger_id", req.Msg.LedgerID, "member", req.Msg.Member)

	l, err := s.store.GetLedger(ctx, req.Msg.LedgerID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	bal, err := ledger.BalanceOf(l, req.Msg.Member)
	if err != nil {
		return nil, s.fail(op, err)
	}

	return connect.NewResponse(&GetBalanceResponse{Member: req.Msg.Member, Balance: bal}), nil
}

// SuggestSettlements proposes payments that would zero every balance.
func (s *LedgerService) SuggestSettlements(ctx context.Context, req *connect.Request[SuggestSettlementsRequest]) (*connect.Response[SuggestSettlementsResponse], error) {
	const op = "SuggestSettlements"
	slog.Info("SuggestSettlements request received", "ledger_id", req.Msg.LedgerID)

	l, err := s.store.GetLedger(ctx, req.Msg.LedgerID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	debts := toDebts(calculator.SimplifyDebts(l.Balances))
	slog.Info("SuggestSettlements successful", "ledger_id", l.ID, "debts", len(debts))
	return connect.NewResponse(&SuggestSettlementsResponse{Debts: debts}), nil
}

// mutate runs one load-modify-save cycle under the ledger's lock. fn gets a
// freshly loaded ledger and returns its replacement; nothing is saved if
// fn fails or the result no longer sums to zero.
func (s *LedgerService) mutate(ctx context.Context, ledgerID string, fn func(*models.Ledger) (*models.Ledger, error)) (*models.Ledger, error) {
	if ledgerID == "" {
		return nil, &ledger.ValidationError{Field: "ledger_id", Message: "must not be empty"}
	}

	var saved *models.Ledger
	err := s.locker.WithLock(ctx, lock.LedgerKey(ledgerID), func(ctx context.Context) error {
		current, err := s.store.GetLedger(ctx, ledgerID)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if err := ledger.CheckZeroSum(next); err != nil {
			return err
		}
		if err := s.store.SaveLedger(ctx, next); err != nil {
			return err
		}
		saved = next
		return nil
	})
	return saved, err
}

// publish announces a committed change. The ledger is already saved, so a
// failure is only logged.
func (s *LedgerService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		slog.Error("Failed to publish event",
			"type", e.Type,
			"ledger_id", e.LedgerID,
			"transaction_id", e.TransactionID,
			"error", err,
		)
	}
}

// fail logs err, counts it and converts it to a connect error.
func (s *LedgerService) fail(op string, err error) error {
	code, kind := classify(err)
	s.metrics.LedgerError(op, kind)
	if errors.Is(err, storage.ErrVersionConflict) {
		s.metrics.Conflict()
	}

	if code == connect.CodeInternal {
		slog.Error(op+" failed", "error", err)
	} else {
		slog.Warn(op+" rejected", "code", code, "error", err)
	}
	return connect.NewError(code, err)
}

// currentUser returns the authenticated caller's ID.
func currentUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", errUnauthenticated
	}
	return userID, nil
}
