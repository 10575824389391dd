package pricing

import "errors"

// Validation failures of the pricing calculator. None of them is retryable: they block
// contract submission and are reported to the participant.
var (
	// ErrInvalidTerms means the final value, period or frequency is missing, non-numeric, non-positive or
	// beyond MaxFinalValue / MaxPeriod.
	ErrInvalidTerms = errors.New("invalid pool terms")

	// ErrNotPriceable means the terms resolve to zero contribution steps. Previews treat it as a
	// normal transient state; it becomes an error only when a concrete payment is required.
	ErrNotPriceable = errors.New("pool terms do not yield a contribution step")

	// ErrRankOutOfRange means the cash-out rank is neither Random (0) nor within [1, steps].
	ErrRankOutOfRange = errors.New("rank out of range")

	// ErrInvalidResult means the per-step payment came out zero or negative.
	ErrInvalidResult = errors.New("computed payment is not positive")
)
