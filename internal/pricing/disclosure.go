package pricing

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/moneycircle/circle/internal/types"
	"github.com/moneycircle/circle/internal/utils"
)

// BuildDisclosureText returns the commitment statement printed above the signature of a
// contract. A non-zero adjustment on a concrete rank adds a sentence naming the bonus
// (adjustment > 0) or the extra contribution (adjustment < 0).
func BuildDisclosureText(params types.PricingParameters, payment sdkmath.LegacyDec, terms types.PoolTerms, rank types.Rank, adjustment sdkmath.LegacyDec) string {
	text := fmt.Sprintf("By signing below, you agree to pay %s %s every %d %s(s), over %d %ss, to receive %s %s.",
		utils.FormatAmount(payment), params.Currency,
		terms.Frequency, params.TimeUnit,
		terms.Period, params.TimeUnit,
		utils.FormatPlain(terms.FinalValue), params.Currency)

	if rank == types.RankRandom || adjustment.IsNil() || adjustment.IsZero() {
		return text
	}

	var effect string
	if adjustment.IsPositive() {
		effect = fmt.Sprintf("you benefit from a bonus of +%s %s", utils.FormatAmount(adjustment), params.Currency)
	} else {
		effect = fmt.Sprintf("you contribute an additional %s %s", utils.FormatAmount(adjustment.Abs()), params.Currency)
	}
	return fmt.Sprintf("%s Based on your selected rank (%d), %s to balance the system and ensure fairness.", text, rank, effect)
}

// BuildPreviewText returns the message shown while a pool is being created.
func BuildPreviewText(params types.PricingParameters, basePayment sdkmath.LegacyDec, terms types.PoolTerms) string {
	return fmt.Sprintf("You will pay %s %s every %d %s(s), over a period of %d %ss, to receive %s %s.",
		utils.FormatAmount(basePayment), params.Currency,
		terms.Frequency, params.TimeUnit,
		terms.Period, params.TimeUnit,
		utils.FormatPlain(terms.FinalValue), params.Currency)
}
