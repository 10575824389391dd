/*

This file contains the credit pool types shared by the pricing calculator, the signing flow and the web service.

*/

package types

import (
	"cosmossdk.io/math"
)

type PoolID uint64

// PoolTerms are the fixed parameters of a money circle. Period and Frequency are
// expressed in the same time unit (months).
type PoolTerms struct {
	FinalValue math.LegacyDec `json:"final_value"` // Amount paid out to a member at their payout turn
	Period     int64          `json:"period"`      // Total duration of the circle
	Frequency  int64          `json:"frequency"`   // Interval between two contributions
}

// CreditPool is a money circle as reported by the remote API.
type CreditPool struct {
	ID        PoolID    `json:"credit_pool_id"`
	Terms     PoolTerms `json:"terms"`
	IsFull    bool      `json:"is_full"`
	MaxPeople int       `json:"max_people"`
}
