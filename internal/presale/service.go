package presale

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Service is the sale controller. Every mutating operation runs under one lock
// and either completes or leaves no trace.
type Service struct {
	mu sync.Mutex

	params    Params
	ledger    TokenLedger
	funds     FundsForwarder
	storage   Storage
	logger    *zap.Logger
	whitelist *Whitelist
	gate      PauseGate
	converter RateConverter
	tracker   *CapTracker
	seq       uint64
}

// PurchaseMetadata summarizes a purchase search.
type PurchaseMetadata struct {
	Quantity    int          `json:"quantity"`
	TotalPaid   *uint256.Int `json:"total_paid"`
	TotalTokens *uint256.Int `json:"total_tokens"`
}

// NewService creates a new Service. The sale starts open, unpaused, with no tokens issued.
func NewService(params Params, ledger TokenLedger, funds FundsForwarder, storage Storage, logger *zap.Logger) (*Service, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if ledger == nil || funds == nil {
		return nil, fmt.Errorf("%w: token ledger and funds forwarder are required", ErrInvalidConfig)
	}
	if storage == nil {
		storage = NewLocalStorage()
	}
	if logger == nil {
		logger, _ = zap.NewProduction()
		defer logger.Sync() // flushes buffer, if any
	}

	return &Service{
		params:    params,
		ledger:    ledger,
		funds:     funds,
		storage:   storage,
		logger:    logger,
		whitelist: NewWhitelist(),
		converter: NewRateConverter(params.Rate),
		tracker:   NewCapTracker(params.MaxTokensForSale),
	}, nil
}

func (s *Service) requireOwner(caller common.Address) error {
	if caller != s.params.Owner {
		s.logger.Warn("owner-only operation rejected", zap.String("caller", caller.Hex()))
		return ErrAccessDenied
	}
	return nil
}

// AcceptPayment buys tokens for investor with a payment of paid wei. The tokens
// go from the token wallet's allowance to the lock wallet and the payment goes
// to the funds wallet.
func (s *Service) AcceptPayment(ctx context.Context, investor common.Address, paid *uint256.Int) (*Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate.Check(); err != nil {
		return nil, err
	}
	if !s.whitelist.Contains(investor) {
		return nil, ErrNotWhitelisted
	}
	if paid == nil || paid.IsZero() {
		return nil, ErrInvalidAmount
	}

	tokens, err := s.converter.Convert(paid)
	if err != nil {
		return nil, err
	}
	if tokens.Lt(s.params.MinInvestmentTokens) {
		return nil, fmt.Errorf("%w: %s tokens, minimum is %s", ErrBelowMinimum, tokens.Dec(), s.params.MinInvestmentTokens.Dec())
	}
	if err := s.tracker.Check(tokens); err != nil {
		return nil, fmt.Errorf("%w: %s tokens requested, %s remaining", err, tokens.Dec(), s.tracker.Remaining().Dec())
	}

	p := s.params
	if err := s.ledger.TransferFrom(ctx, p.SaleAddress, p.TokenWallet, p.LockWallet, tokens); err != nil {
		s.logger.Error("token transfer failed",
			zap.String("investor", investor.Hex()),
			zap.String("tokens", tokens.Dec()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrExternalTransferFailed, err)
	}

	if err := s.funds.Forward(ctx, investor, p.FundsWallet, paid); err != nil {
		s.logger.Error("forwarding funds failed", zap.String("investor", investor.Hex()), zap.Error(err))
		if rerr := s.revertTokens(ctx, tokens); rerr != nil {
			// Tokens sit in the lock wallet with no purchase behind them.
			s.logger.Error("reverting token transfer failed, manual reconciliation required",
				zap.String("investor", investor.Hex()),
				zap.String("paid", paid.Dec()),
				zap.String("tokens", tokens.Dec()),
				zap.String("sale_address", p.SaleAddress.Hex()),
				zap.String("token_wallet", p.TokenWallet.Hex()),
				zap.String("lock_wallet", p.LockWallet.Hex()),
				zap.String("funds_wallet", p.FundsWallet.Hex()),
				zap.NamedError("forward_error", err),
				zap.NamedError("revert_error", rerr),
			)
			return nil, fmt.Errorf("%w: %v", ErrExternalTransferFailed, errors.Join(err, rerr))
		}
		return nil, fmt.Errorf("%w: %v", ErrExternalTransferFailed, err)
	}

	s.tracker.Record(tokens)
	s.seq++

	purchase := &Purchase{
		ID:        uuid.NewString(),
		Seq:       s.seq,
		Investor:  investor,
		Paid:      paid.Clone(),
		Tokens:    tokens,
		CreatedAt: time.Now(),
	}
	if err := s.storage.Set(purchase); err != nil {
		// El registro es derivado; la compra ya quedó aplicada.
		s.logger.Error("failed to save purchase record", zap.String("purchase_id", purchase.ID), zap.Error(err))
	}

	s.logger.Info("tokens purchased",
		zap.String("purchase_id", purchase.ID),
		zap.String("investor", investor.Hex()),
		zap.String("paid", paid.Dec()),
		zap.String("tokens", tokens.Dec()),
		zap.String("tokens_issued", s.tracker.Issued().Dec()),
	)
	return purchase, nil
}

func (s *Service) revertTokens(ctx context.Context, tokens *uint256.Int) error {
	r, ok := s.ledger.(Reverter)
	if !ok {
		return errors.New("token ledger cannot revert transfers")
	}
	p := s.params
	return r.RevertTransfer(ctx, p.SaleAddress, p.TokenWallet, p.LockWallet, tokens)
}

// AddToWhitelist adds investor to the whitelist. Owner only.
func (s *Service) AddToWhitelist(caller, investor common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if err := s.whitelist.Add(investor); err != nil {
		return err
	}
	s.logger.Info("investor whitelisted", zap.String("investor", investor.Hex()))
	return nil
}

// AddManyToWhitelist adds every investor or none. Owner only.
func (s *Service) AddManyToWhitelist(caller common.Address, investors []common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if err := s.whitelist.AddMany(investors); err != nil {
		return err
	}
	s.logger.Info("investors whitelisted", zap.Int("count", len(investors)))
	return nil
}

// RemoveFromWhitelist removes investor from the whitelist. Owner only.
func (s *Service) RemoveFromWhitelist(caller, investor common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(caller); err != nil {
		return err
	}
	s.whitelist.Remove(investor)
	s.logger.Info("investor removed from whitelist", zap.String("investor", investor.Hex()))
	return nil
}

func (s *Service) IsWhitelisted(investor common.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.whitelist.Contains(investor)
}

// Pause blocks purchases until Unpause. Owner only; fails once the sale is closed.
func (s *Service) Pause(caller common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if err := s.gate.Pause(); err != nil {
		return err
	}
	s.logger.Info("sale paused")
	return nil
}

// Unpause resumes purchases. Owner only; fails once the sale is closed.
func (s *Service) Unpause(caller common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if err := s.gate.Unpause(); err != nil {
		return err
	}
	s.logger.Info("sale unpaused")
	return nil
}

// CloseSale ends the sale permanently. Owner only; calling it again is a no-op.
func (s *Service) CloseSale(caller common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(caller); err != nil {
		return err
	}
	s.gate.Close()
	s.logger.Info("sale closed", zap.String("tokens_issued", s.tracker.Issued().Dec()))
	return nil
}

func (s *Service) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Paused()
}

func (s *Service) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Closed()
}

func (s *Service) TokensIssued() *uint256.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Issued()
}

func (s *Service) TokensRemaining() *uint256.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Remaining()
}

// CapReached reports whether tokens issued reached max tokens for sale.
func (s *Service) CapReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Reached()
}

// Allowance returns what the sale may still move out of the token wallet.
func (s *Service) Allowance(ctx context.Context) (*uint256.Int, error) {
	return s.ledger.Allowance(ctx, s.params.TokenWallet, s.params.SaleAddress)
}

// Status returns the sale parameters and current counters.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.params
	return Status{
		Owner:               p.Owner,
		FundsWallet:         p.FundsWallet,
		TokenWallet:         p.TokenWallet,
		LockWallet:          p.LockWallet,
		Rate:                p.Rate.Clone(),
		MaxTokensForSale:    p.MaxTokensForSale.Clone(),
		MinInvestmentTokens: p.MinInvestmentTokens.Clone(),
		TokensIssued:        s.tracker.Issued(),
		TokensRemaining:     s.tracker.Remaining(),
		CapReached:          s.tracker.Reached(),
		Paused:              s.gate.Paused(),
		Closed:              s.gate.Closed(),
	}
}

// GetPurchase returns a purchase record by ID.
func (s *Service) GetPurchase(id string) (*Purchase, error) {
	return s.storage.Read(id)
}

// SearchPurchases lists purchase records, optionally only those of investor.
func (s *Service) SearchPurchases(investor *common.Address) ([]*Purchase, PurchaseMetadata, error) {
	all, err := s.storage.GetAll()
	if err != nil {
		s.logger.Error("failed to get purchases from storage", zap.Error(err))
		return nil, PurchaseMetadata{}, fmt.Errorf("failed to retrieve purchases: %w", err)
	}

	results := make([]*Purchase, 0)
	metadata := PurchaseMetadata{
		TotalPaid:   new(uint256.Int),
		TotalTokens: new(uint256.Int),
	}
	for _, p := range all {
		if investor != nil && p.Investor != *investor {
			continue
		}
		results = append(results, p)

		metadata.Quantity++
		metadata.TotalPaid.Add(metadata.TotalPaid, p.Paid)
		metadata.TotalTokens.Add(metadata.TotalTokens, p.Tokens)
	}
	return results, metadata, nil
}
