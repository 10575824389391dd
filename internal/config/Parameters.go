/*

This file contains the default parameters of the contribution pricing model.

*/

package config

import (
	"errors"

	sdkmath "cosmossdk.io/math"

	"github.com/moneycircle/circle/internal/pricing"
	"github.com/moneycircle/circle/internal/types"
	"github.com/moneycircle/circle/internal/utils"
)

// DefaultPricingParameters are used for every field not overridden through the environment.
var DefaultPricingParameters = types.PricingParameters{
	// Half a percent of the final value is redistributed between early and late positions.
	FairnessRate: pricing.DefaultFairnessRate,

	Currency: "DT",

	// Period and Frequency of every pool are expressed in months.
	TimeUnit: "month",
}

// Pricing holds the active pricing parameters. It starts as the defaults so packages
// remain usable without LoadConfig.
var Pricing = DefaultPricingParameters

// LoadPricingConfig applies PRICING_FAIRNESS_RATE and PRICING_CURRENCY on top of the defaults.
func LoadPricingConfig() error {
	params := DefaultPricingParameters

	if rateStr, err := getEnv("PRICING_FAIRNESS_RATE"); err == nil {
		rate, err := utils.ParseAmount(rateStr)
		if err != nil {
			return errors.New("environment variable PRICING_FAIRNESS_RATE must be a decimal, got: " + rateStr)
		}
		if rate.IsNegative() || rate.GTE(sdkmath.LegacyOneDec()) {
			return errors.New("environment variable PRICING_FAIRNESS_RATE must be in [0, 1), got: " + rateStr)
		}
		params.FairnessRate = rate
	}

	params.Currency = getEnvOrDefault("PRICING_CURRENCY", params.Currency)

	Pricing = params
	return nil
}
