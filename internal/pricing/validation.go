package pricing

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/moneycircle/circle/internal/types"
)

const (
	// MaxPeriod bounds Period and Frequency: 100 years of monthly contributions.
	// It also bounds the number of steps, hence the rank options of a pool.
	MaxPeriod int64 = 1200
)

// MaxFinalValue bounds the final value so every intermediate product stays far below the
// 256-bit limit of LegacyDec.
var MaxFinalValue = sdkmath.LegacyNewDec(1_000_000_000_000_000)

// ValidateTerms checks that every pool term is present, strictly positive and within bounds.
// Frequency greater than Period is not rejected here; it yields zero steps.
func ValidateTerms(terms types.PoolTerms) error {
	if terms.FinalValue.IsNil() {
		return fmt.Errorf("%w: final value is missing", ErrInvalidTerms)
	}
	if !terms.FinalValue.IsPositive() {
		return fmt.Errorf("%w: final value must be positive, got %s", ErrInvalidTerms, terms.FinalValue)
	}
	if terms.FinalValue.GT(MaxFinalValue) {
		return fmt.Errorf("%w: final value must not exceed %s, got %s", ErrInvalidTerms, MaxFinalValue, terms.FinalValue)
	}
	return ValidateSchedule(terms.Period, terms.Frequency)
}

// ValidateSchedule checks that period and frequency are in [1, MaxPeriod].
func ValidateSchedule(period, frequency int64) error {
	if period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %d", ErrInvalidTerms, period)
	}
	if period > MaxPeriod {
		return fmt.Errorf("%w: period must not exceed %d, got %d", ErrInvalidTerms, MaxPeriod, period)
	}
	if frequency <= 0 {
		return fmt.Errorf("%w: frequency must be positive, got %d", ErrInvalidTerms, frequency)
	}
	if frequency > MaxPeriod {
		return fmt.Errorf("%w: frequency must not exceed %d, got %d", ErrInvalidTerms, MaxPeriod, frequency)
	}
	return nil
}

// ValidateRank checks that rank is Random or a position in [1, steps].
func ValidateRank(rank types.Rank, steps int64) error {
	if rank == types.RankRandom {
		return nil
	}
	if rank < 0 || int64(rank) > steps {
		return fmt.Errorf("%w: rank %d not in [1, %d]", ErrRankOutOfRange, rank, steps)
	}
	return nil
}

// RequirePriceable returns ErrNotPriceable for a quote that has no contribution step.
// Used where a concrete amount must exist, i.e. at contract submission.
func RequirePriceable(q types.Quote) error {
	if !q.Priceable {
		return fmt.Errorf("%w: period %d with frequency %d", ErrNotPriceable, q.Terms.Period, q.Terms.Frequency)
	}
	return nil
}
