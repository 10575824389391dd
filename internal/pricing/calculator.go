/*

This file contains the contribution pricing model of a money circle.

A pool of FinalValue, Period and Frequency has floor(Period/Frequency) contribution steps.
Every member pays FinalValue/steps per step, corrected by a fairness adjustment that
depends on the cash-out rank they picked. The adjustment budget is FinalValue * FairnessRate.

*/

package pricing

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/moneycircle/circle/internal/logger"
	"github.com/moneycircle/circle/internal/types"
)

// DefaultFairnessRate is the share of the final value redistributed between positions (0.5%).
var DefaultFairnessRate = sdkmath.LegacyNewDecWithPrec(5, 3)

var ErrInvalidParameters = errors.New("invalid pricing parameters")

// ComputeSteps returns the number of contribution events, floor(period/frequency).
// A non-positive frequency yields 0.
func ComputeSteps(period, frequency int64) int64 {
	if frequency <= 0 || period <= 0 {
		return 0
	}
	return period / frequency
}

// ComputeBasePayment returns finalValue/steps. ok is false when steps is 0.
func ComputeBasePayment(finalValue sdkmath.LegacyDec, steps int64) (sdkmath.LegacyDec, bool) {
	if steps <= 0 || finalValue.IsNil() {
		return sdkmath.LegacyZeroDec(), false
	}
	return finalValue.QuoInt64(steps), true
}

// ComputeTotalProfit returns the fairness pool, finalValue * rate.
func ComputeTotalProfit(finalValue, rate sdkmath.LegacyDec) sdkmath.LegacyDec {
	if finalValue.IsNil() || rate.IsNil() {
		return sdkmath.LegacyZeroDec()
	}
	return finalValue.Mul(rate)
}

// ComputeRankAdjustment returns the fairness adjustment for rank using DefaultFairnessRate.
func ComputeRankAdjustment(rank types.Rank, steps int64, finalValue sdkmath.LegacyDec) sdkmath.LegacyDec {
	return rankAdjustment(rank, steps, ComputeTotalProfit(finalValue, DefaultFairnessRate))
}

// rankAdjustment computes ((mid - rank) / (steps - 1)) * totalProfit with mid = ceil(steps/2).
// Random and single-step pools carry no adjustment.
func rankAdjustment(rank types.Rank, steps int64, totalProfit sdkmath.LegacyDec) sdkmath.LegacyDec {
	if rank == types.RankRandom || steps <= 1 {
		return sdkmath.LegacyZeroDec()
	}
	mid := (steps + 1) / 2
	// multiply before dividing so the 18-digit rounding happens once
	return sdkmath.LegacyNewDec(mid - int64(rank)).Mul(totalProfit).QuoInt64(steps - 1)
}

// ComputeFinalPayment returns basePayment + adjustment. A result that is not strictly
// positive means the terms are malformed and is reported as ErrInvalidResult.
func ComputeFinalPayment(basePayment, adjustment sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	final := basePayment.Add(adjustment)
	if !final.IsPositive() {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: %s + %s = %s", ErrInvalidResult, basePayment, adjustment, final)
	}
	return final, nil
}

// ComputeTotalContractAmount returns finalPayment * (period / frequency), the sum the signer
// commits to. The ratio is exact, not the floored step count.
func ComputeTotalContractAmount(finalPayment sdkmath.LegacyDec, period, frequency int64) sdkmath.LegacyDec {
	if frequency <= 0 || finalPayment.IsNil() {
		return sdkmath.LegacyZeroDec()
	}
	return finalPayment.MulInt64(period).QuoInt64(frequency)
}

// Calculator evaluates pool terms with a fixed set of pricing parameters.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	params types.PricingParameters
}

// NewCalculator validates params and returns a Calculator using them.
func NewCalculator(params types.PricingParameters) (*Calculator, error) {
	if params.FairnessRate.IsNil() {
		return nil, fmt.Errorf("%w: fairness rate is missing", ErrInvalidParameters)
	}
	if params.FairnessRate.IsNegative() || params.FairnessRate.GTE(sdkmath.LegacyOneDec()) {
		return nil, fmt.Errorf("%w: fairness rate must be in [0, 1), got %s", ErrInvalidParameters, params.FairnessRate)
	}
	if params.Currency == "" {
		return nil, fmt.Errorf("%w: currency is empty", ErrInvalidParameters)
	}
	if params.TimeUnit == "" {
		return nil, fmt.Errorf("%w: time unit is empty", ErrInvalidParameters)
	}
	return &Calculator{params: params}, nil
}

// Parameters returns the pricing parameters of the calculator.
func (c *Calculator) Parameters() types.PricingParameters {
	return c.params
}

// Price computes the pricing result of terms for rank.
// It returns ErrNotPriceable when the terms have no contribution step.
func (c *Calculator) Price(terms types.PoolTerms, rank types.Rank) (types.PricingResult, error) {
	if err := ValidateTerms(terms); err != nil {
		return types.PricingResult{}, err
	}

	steps := ComputeSteps(terms.Period, terms.Frequency)
	basePayment, ok := ComputeBasePayment(terms.FinalValue, steps)
	if !ok {
		return types.PricingResult{}, fmt.Errorf("%w: period %d with frequency %d", ErrNotPriceable, terms.Period, terms.Frequency)
	}

	if err := ValidateRank(rank, steps); err != nil {
		return types.PricingResult{}, err
	}

	totalProfit := ComputeTotalProfit(terms.FinalValue, c.params.FairnessRate)
	adjustment := rankAdjustment(rank, steps, totalProfit)
	finalPayment, err := ComputeFinalPayment(basePayment, adjustment)
	if err != nil {
		return types.PricingResult{}, err
	}

	return types.PricingResult{
		Steps:        steps,
		BasePayment:  basePayment,
		TotalProfit:  totalProfit,
		Adjustment:   adjustment,
		FinalPayment: finalPayment,
	}, nil
}

// Quote prices terms for rank and attaches the total contract amount and the contract
// disclosure. Terms with zero steps produce a quote with Priceable=false and no error.
func (c *Calculator) Quote(terms types.PoolTerms, rank types.Rank) (types.Quote, error) {
	quote, err := c.evaluate(terms, rank)
	if err != nil || !quote.Priceable {
		return quote, err
	}
	quote.Disclosure = BuildDisclosureText(c.params, quote.Result.FinalPayment, terms, rank, quote.Result.Adjustment)
	return quote, nil
}

// Preview prices terms without a rank and attaches the pool-creation preview message.
func (c *Calculator) Preview(terms types.PoolTerms) (types.Quote, error) {
	quote, err := c.evaluate(terms, types.RankRandom)
	if err != nil || !quote.Priceable {
		return quote, err
	}
	quote.Disclosure = BuildPreviewText(c.params, quote.Result.BasePayment, terms)
	return quote, nil
}

func (c *Calculator) evaluate(terms types.PoolTerms, rank types.Rank) (types.Quote, error) {
	quote := types.Quote{
		Terms:       terms,
		Rank:        rank,
		Result:      zeroResult(),
		TotalAmount: sdkmath.LegacyZeroDec(),
	}

	result, err := c.Price(terms, rank)
	if errors.Is(err, ErrNotPriceable) {
		quote.Result.Steps = ComputeSteps(terms.Period, terms.Frequency)
		return quote, nil
	}
	if err != nil {
		log := logger.GetForComponent("pricing")
		log.Debug().Err(err).
			Int64("period", terms.Period).
			Int64("frequency", terms.Frequency).
			Int64("rank", int64(rank)).
			Msg("Pool terms rejected")
		return types.Quote{}, err
	}

	quote.Priceable = true
	quote.Result = result
	quote.TotalAmount = ComputeTotalContractAmount(result.FinalPayment, terms.Period, terms.Frequency)
	return quote, nil
}

func zeroResult() types.PricingResult {
	return types.PricingResult{
		BasePayment:  sdkmath.LegacyZeroDec(),
		TotalProfit:  sdkmath.LegacyZeroDec(),
		Adjustment:   sdkmath.LegacyZeroDec(),
		FinalPayment: sdkmath.LegacyZeroDec(),
	}
}
