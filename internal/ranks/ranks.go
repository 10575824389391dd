/*

This file builds the cash-out positions a participant can still choose when signing a contract.

*/

package ranks

import (
	"fmt"

	"github.com/moneycircle/circle/internal/pricing"
	"github.com/moneycircle/circle/internal/types"
)

const RandomLabel = "Random"

// Available returns Random followed by every position in [1, steps] that is not taken,
// in ascending order. Taken ranks outside [1, steps] are ignored. Callers validate the
// schedule first; steps beyond pricing.MaxPeriod are capped there.
func Available(steps int64, taken []types.Rank) []types.RankOption {
	options := []types.RankOption{{Label: RandomLabel, Value: types.RankRandom}}
	if steps <= 0 {
		return options
	}
	if steps > pricing.MaxPeriod {
		steps = pricing.MaxPeriod
	}

	claimed := make(map[types.Rank]struct{}, len(taken))
	for _, r := range taken {
		claimed[r] = struct{}{}
	}

	for i := int64(1); i <= steps; i++ {
		rank := types.Rank(i)
		if _, ok := claimed[rank]; ok {
			continue
		}
		options = append(options, types.RankOption{Label: PositionLabel(rank), Value: rank})
	}
	return options
}

// PositionLabel returns the picker label of rank.
func PositionLabel(rank types.Rank) string {
	if rank == types.RankRandom {
		return RandomLabel
	}
	return fmt.Sprintf("Position %d", rank)
}

// Selectable reports whether rank is one of options. Random is always selectable.
func Selectable(rank types.Rank, options []types.RankOption) bool {
	if rank == types.RankRandom {
		return true
	}
	for _, opt := range options {
		if opt.Value == rank {
			return true
		}
	}
	return false
}
