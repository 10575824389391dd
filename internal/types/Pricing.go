/*

This file contains the result types produced by the contribution pricing calculator.

*/

package types

import (
	"cosmossdk.io/math"
)

// Rank is a requested cash-out position in [1, steps]. RankRandom means no preference.
type Rank int64

const RankRandom Rank = 0

// PricingParameters holds the tunable values of the pricing model and of its disclosure texts.
type PricingParameters struct {
	FairnessRate math.LegacyDec `json:"fairness_rate"` // Share of the final value redistributed between positions (0.005 = 0.5%)
	Currency     string         `json:"currency"`      // Label appended to displayed amounts, e.g. "DT"
	TimeUnit     string         `json:"time_unit"`     // Unit of Period and Frequency, e.g. "month"
}

// PricingResult is the per-step price of a contract for one rank.
type PricingResult struct {
	Steps        int64          `json:"steps"`
	BasePayment  math.LegacyDec `json:"base_payment"`  // FinalValue / Steps
	TotalProfit  math.LegacyDec `json:"total_profit"`  // Fairness pool, FinalValue * FairnessRate
	Adjustment   math.LegacyDec `json:"adjustment"`    // Signed amount added to BasePayment
	FinalPayment math.LegacyDec `json:"final_payment"` // Amount owed per contribution step
}

// Quote is a fully evaluated pricing request. When Priceable is false the terms do not
// yet yield a single contribution step and Result, TotalAmount and Disclosure are empty.
type Quote struct {
	Terms       PoolTerms      `json:"terms"`
	Rank        Rank           `json:"rank"`
	Priceable   bool           `json:"priceable"`
	Result      PricingResult  `json:"result"`
	TotalAmount math.LegacyDec `json:"total_amount"`
	Disclosure  string         `json:"disclosure,omitempty"`
}
