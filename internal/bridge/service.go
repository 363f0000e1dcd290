package bridge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"apyhub/internal/domain"
	"apyhub/internal/observability"
	"apyhub/internal/storage"
)

// Validation errors returned to callers before anything is persisted.
var (
	ErrUnsupportedChain = errors.New("unsupported chain")
	ErrSameChain        = errors.New("source and destination chain are the same")
	ErrInvalidAmount    = errors.New("amount must be a positive number")
	ErrInvalidAddress   = errors.New("invalid recipient address")
)

var addressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

const defaultHistoryLimit = 50

// Request carries the parameters of a quote or an execution.
type Request struct {
	FromChain string `json:"fromChain"`
	ToChain   string `json:"toChain"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
	IntentID  string `json:"intentId,omitempty"`
}

// Service quotes and executes bridge transfers and keeps their audit trail.
type Service struct {
	provider RouteProvider
	store    storage.BridgeTransactionStore
	logger   *log.Logger
	now      func() time.Time
}

// Options configures the bridge service.
type Options struct {
	Provider RouteProvider
	Store    storage.BridgeTransactionStore
	Logger   *log.Logger
	Now      func() time.Time
}

// NewService creates a bridge service.
func NewService(opts Options) (*Service, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("bridge: provider is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("bridge: store is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		provider: opts.Provider,
		store:    opts.Store,
		logger:   opts.Logger,
		now:      opts.Now,
	}, nil
}

// Quote validates the request and prices the route. Nothing is persisted.
func (s *Service) Quote(ctx context.Context, req Request) (*Quote, error) {
	amount, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	quote, err := s.provider.Quote(ctx, req.FromChain, req.ToChain, req.Token, amount)
	if err != nil {
		return nil, fmt.Errorf("quote route: %w", err)
	}
	quote.IntentID = "intent-" + uuid.NewString()

	observability.DefaultMetrics.BridgeQuotesTotal.Inc()
	return quote, nil
}

// Execute prices the route, records the transaction and settles it.
// Settlement here is simulated: the record moves PENDING -> COMPLETED with
// a deterministic transaction hash.
func (s *Service) Execute(ctx context.Context, req Request) (*domain.BridgeTransaction, error) {
	amount, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	quote, err := s.provider.Quote(ctx, req.FromChain, req.ToChain, req.Token, amount)
	if err != nil {
		observability.RecordBridgeExecution("error")
		return nil, fmt.Errorf("quote route: %w", err)
	}

	intentID := req.IntentID
	if intentID == "" {
		intentID = "intent-" + uuid.NewString()
	}

	nowMs := s.now().UnixMilli()
	tx := &domain.BridgeTransaction{
		ID:        uuid.NewString(),
		IntentID:  intentID,
		Address:   req.Recipient,
		FromChain: req.FromChain,
		ToChain:   req.ToChain,
		Token:     quote.Token,
		Amount:    req.Amount,
		FeeUSD:    quote.FeeUSD,
		Status:    domain.BridgePending,
		CreatedAt: nowMs,
		UpdatedAt: nowMs,
	}

	if err := s.store.Insert(ctx, tx); err != nil {
		observability.RecordBridgeExecution("error")
		return nil, fmt.Errorf("persist bridge transaction: %w", err)
	}

	txHash := transactionHash(tx.ID)
	if err := s.store.UpdateStatus(ctx, tx.ID, domain.BridgeCompleted, txHash, s.now().UnixMilli()); err != nil {
		observability.RecordBridgeExecution("error")
		return nil, fmt.Errorf("settle bridge transaction: %w", err)
	}

	s.logger.Printf("[bridge] executed %s %s %s -> %s (fee $%.4f)",
		tx.Amount, tx.Token, tx.FromChain, tx.ToChain, tx.FeeUSD)
	observability.RecordBridgeExecution("completed")

	return s.store.GetByID(ctx, tx.ID)
}

// Status returns the current state of a transaction.
func (s *Service) Status(ctx context.Context, id string) (*domain.BridgeTransaction, error) {
	return s.store.GetByID(ctx, id)
}

// History returns a wallet's transactions, newest first. A non-positive
// limit falls back to the default of 50.
func (s *Service) History(ctx context.Context, address string, limit int) ([]*domain.BridgeTransaction, error) {
	if !addressRe.MatchString(address) {
		return nil, ErrInvalidAddress
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.GetByAddress(ctx, address, limit)
}

// SupportedChains lists the chains the service bridges between.
func (s *Service) SupportedChains() map[string]int64 {
	chains := make(map[string]int64, len(domain.BridgeChainIDs))
	for name, id := range domain.BridgeChainIDs {
		chains[name] = id
	}
	return chains
}

// validate checks the request and returns the parsed amount.
func (s *Service) validate(req Request) (float64, error) {
	if _, ok := domain.BridgeChainIDs[req.FromChain]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedChain, req.FromChain)
	}
	if _, ok := domain.BridgeChainIDs[req.ToChain]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedChain, req.ToChain)
	}
	if req.FromChain == req.ToChain {
		return 0, ErrSameChain
	}
	amount, err := strconv.ParseFloat(req.Amount, 64)
	if err != nil || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if !addressRe.MatchString(req.Recipient) {
		return 0, ErrInvalidAddress
	}
	return amount, nil
}

// transactionHash derives a stable pseudo transaction hash from the record id.
func transactionHash(id string) string {
	sum := sha256.Sum256([]byte(id))
	return "0x" + hex.EncodeToString(sum[:])
}
