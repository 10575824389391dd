/*

This file contains the contract-signing flow: the participant picks a cash-out position among
the unclaimed ones, reads the commitment statement, signs, and the contract is sent to the
remote API with the amount computed by the pricing calculator.

*/

package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/moneycircle/circle/internal/logger"
	"github.com/moneycircle/circle/internal/metrics"
	"github.com/moneycircle/circle/internal/pricing"
	"github.com/moneycircle/circle/internal/ranks"
	"github.com/moneycircle/circle/internal/types"
	"github.com/moneycircle/circle/internal/utils"
)

var (
	ErrUnsigned  = errors.New("contract is not signed")
	ErrRankTaken = errors.New("rank is already taken")
	ErrPoolFull  = errors.New("credit pool is full")
)

// Backend is the part of the remote API the signing flow depends on.
type Backend interface {
	TakenRanks(ctx context.Context, pool types.PoolID) ([]types.Rank, error)
	CreateContract(ctx context.Context, sub types.ContractSubmission, document []byte) (json.RawMessage, error)
}

// Offer is what a participant sees before signing.
type Offer struct {
	Pool    types.CreditPool   `json:"pool"`
	Options []types.RankOption `json:"options"`
	Quote   types.Quote        `json:"quote"`
}

// SubmitRequest is a signed contract ready to be sent.
type SubmitRequest struct {
	Pool     types.CreditPool
	Rank     types.Rank
	Document []byte // signed contract document, rendered by the caller
}

// Receipt describes an accepted submission.
type Receipt struct {
	Submission types.ContractSubmission `json:"-"`
	Quote      types.Quote              `json:"quote"`
	Response   json.RawMessage          `json:"response"`
}

// Signer runs the signing flow against a Backend.
type Signer struct {
	calc    *pricing.Calculator
	backend Backend
	metrics *metrics.Collector
	now     func() time.Time
	log     zerolog.Logger
}

// Option customizes a Signer.
type Option func(*Signer)

// WithMetrics records submission outcomes on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Signer) { s.metrics = m }
}

// WithClock replaces the clock used for the contract date.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// NewSigner returns a Signer pricing contracts with calc.
func NewSigner(calc *pricing.Calculator, backend Backend, opts ...Option) *Signer {
	s := &Signer{
		calc:    calc,
		backend: backend,
		now:     time.Now,
		log:     logger.GetForComponent("contract_signer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Offer returns the selectable positions of pool and the quote for rank. Terms that do not
// yet yield a step produce a non-priceable quote with only the Random option.
func (s *Signer) Offer(ctx context.Context, pool types.CreditPool, rank types.Rank) (Offer, error) {
	if err := pricing.ValidateTerms(pool.Terms); err != nil {
		return Offer{}, err
	}

	steps := pricing.ComputeSteps(pool.Terms.Period, pool.Terms.Frequency)
	if steps == 0 {
		quote, err := s.calc.Quote(pool.Terms, rank)
		if err != nil {
			return Offer{}, err
		}
		return Offer{Pool: pool, Options: ranks.Available(0, nil), Quote: quote}, nil
	}
	if err := pricing.ValidateRank(rank, steps); err != nil {
		return Offer{}, err
	}

	taken, err := s.backend.TakenRanks(ctx, pool.ID)
	if err != nil {
		return Offer{}, fmt.Errorf("failed to fetch taken ranks of pool %d: %w", pool.ID, err)
	}

	options := ranks.Available(steps, taken)
	if !ranks.Selectable(rank, options) {
		return Offer{}, fmt.Errorf("%w: %s of pool %d", ErrRankTaken, ranks.PositionLabel(rank), pool.ID)
	}

	quote, err := s.calc.Quote(pool.Terms, rank)
	if err != nil {
		return Offer{}, err
	}

	return Offer{Pool: pool, Options: options, Quote: quote}, nil
}

// Submit validates a signed contract, computes its total amount and sends it to the remote
// API. Every failure blocks the submission; nothing is retried.
func (s *Signer) Submit(ctx context.Context, req SubmitRequest) (Receipt, error) {
	receipt, err := s.submit(ctx, req)
	switch {
	case err == nil:
		s.metrics.RecordSubmission(metrics.OutcomeOK)
	case errors.Is(err, pricing.ErrNotPriceable):
		s.metrics.RecordSubmission(metrics.OutcomeNotPriceable)
	case isValidationError(err):
		s.metrics.RecordSubmission(metrics.OutcomeInvalid)
	default:
		s.metrics.RecordSubmission(metrics.OutcomeError)
	}
	if err != nil {
		s.log.Warn().Err(err).
			Uint64("creditPoolId", uint64(req.Pool.ID)).
			Int64("rank", int64(req.Rank)).
			Msg("Contract submission rejected")
	}
	return receipt, err
}

func (s *Signer) submit(ctx context.Context, req SubmitRequest) (Receipt, error) {
	if len(req.Document) == 0 {
		return Receipt{}, ErrUnsigned
	}
	if req.Pool.IsFull {
		return Receipt{}, fmt.Errorf("%w: pool %d", ErrPoolFull, req.Pool.ID)
	}

	offer, err := s.Offer(ctx, req.Pool, req.Rank)
	if err != nil {
		return Receipt{}, err
	}
	if err := pricing.RequirePriceable(offer.Quote); err != nil {
		return Receipt{}, err
	}

	sub := types.ContractSubmission{
		ContractDate: s.now(),
		Amount:       offer.Quote.TotalAmount,
		CreditPoolID: req.Pool.ID,
		Period:       req.Pool.Terms.Period,
		Frequency:    req.Pool.Terms.Frequency,
		Rank:         req.Rank,
	}

	resp, err := s.backend.CreateContract(ctx, sub, req.Document)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to submit contract for pool %d: %w", req.Pool.ID, err)
	}

	s.log.Info().
		Uint64("creditPoolId", uint64(sub.CreditPoolID)).
		Int64("rank", int64(sub.Rank)).
		Str("finalPayment", utils.FormatAmount(offer.Quote.Result.FinalPayment)).
		Str("amount", utils.FormatAmount(sub.Amount)).
		Msg("Contract accepted")

	return Receipt{Submission: sub, Quote: offer.Quote, Response: resp}, nil
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrUnsigned) ||
		errors.Is(err, ErrRankTaken) ||
		errors.Is(err, ErrPoolFull) ||
		errors.Is(err, pricing.ErrInvalidTerms) ||
		errors.Is(err, pricing.ErrRankOutOfRange) ||
		errors.Is(err, pricing.ErrInvalidResult)
}

// IsValidationError reports whether err is an input validation failure of the signing flow.
func IsValidationError(err error) bool {
	return isValidationError(err) || errors.Is(err, pricing.ErrNotPriceable)
}
