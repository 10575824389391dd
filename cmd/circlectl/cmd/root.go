package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moneycircle/circle/internal/config"
	"github.com/moneycircle/circle/internal/logger"
	"github.com/moneycircle/circle/internal/pricing"
	"github.com/moneycircle/circle/internal/types"
	"github.com/moneycircle/circle/internal/utils"
)

const (
	flagFinalValue   = "final-value"
	flagPeriod       = "period"
	flagFrequency    = "frequency"
	flagRank         = "rank"
	flagTaken        = "taken"
	flagPool         = "pool"
	flagAPIURL       = "api-url"
	flagFairnessRate = "fairness-rate"
	flagCurrency     = "currency"
	flagOutput       = "output"
	flagLogLevel     = "log-level"
)

// NewRootCmd creates the circlectl command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "circlectl",
		Short:         "Price money circle contributions from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString(flagLogLevel)
			logger.InitializeWithWriter(level, os.Stderr)
			return nil
		},
	}

	rootCmd.PersistentFlags().String(flagFairnessRate, "", "Share of the final value redistributed between positions (default from PRICING_FAIRNESS_RATE or 0.005)")
	rootCmd.PersistentFlags().String(flagCurrency, "", "Currency label of displayed amounts (default from PRICING_CURRENCY or DT)")
	rootCmd.PersistentFlags().StringP(flagOutput, "o", "text", "Output format: text or json")
	rootCmd.PersistentFlags().String(flagLogLevel, "warn", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		CmdPreview(),
		CmdQuote(),
		CmdRanks(),
	)

	return rootCmd
}

func addTermsFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagFinalValue, "", "Amount received at the payout turn")
	cmd.Flags().Int64(flagPeriod, 0, "Total duration of the circle, in months")
	cmd.Flags().Int64(flagFrequency, 0, "Months between two contributions")
	_ = cmd.MarkFlagRequired(flagFinalValue)
	_ = cmd.MarkFlagRequired(flagPeriod)
	_ = cmd.MarkFlagRequired(flagFrequency)
}

func readTerms(cmd *cobra.Command) (types.PoolTerms, error) {
	raw, _ := cmd.Flags().GetString(flagFinalValue)
	finalValue, err := utils.ParseAmount(raw)
	if err != nil {
		return types.PoolTerms{}, fmt.Errorf("%w: --%s: %v", pricing.ErrInvalidTerms, flagFinalValue, err)
	}
	period, _ := cmd.Flags().GetInt64(flagPeriod)
	frequency, _ := cmd.Flags().GetInt64(flagFrequency)
	return types.PoolTerms{FinalValue: finalValue, Period: period, Frequency: frequency}, nil
}

// newCalculator builds a calculator from the environment, then applies the flag overrides.
func newCalculator(cmd *cobra.Command) (*pricing.Calculator, error) {
	if err := config.LoadPricingConfig(); err != nil {
		return nil, err
	}
	params := config.Pricing

	if raw, _ := cmd.Flags().GetString(flagFairnessRate); raw != "" {
		rate, err := utils.ParseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", flagFairnessRate, err)
		}
		params.FairnessRate = rate
	}
	if currency, _ := cmd.Flags().GetString(flagCurrency); currency != "" {
		params.Currency = currency
	}

	return pricing.NewCalculator(params)
}

func parseTaken(raw string) ([]types.Rank, error) {
	var taken []types.Rank
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("--%s: invalid rank %q", flagTaken, field)
		}
		taken = append(taken, types.Rank(v))
	}
	return taken, nil
}

func printOutput(cmd *cobra.Command, data interface{}, text func(w io.Writer)) error {
	format, _ := cmd.Flags().GetString(flagOutput)
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		output, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(output))
	case "text":
		text(out)
	default:
		return fmt.Errorf("--%s must be text or json, got %q", flagOutput, format)
	}
	return nil
}
