package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/moneycircle/circle/internal/backend"
	"github.com/moneycircle/circle/internal/pricing"
	"github.com/moneycircle/circle/internal/ranks"
	"github.com/moneycircle/circle/internal/types"
	"github.com/moneycircle/circle/internal/utils"
)

type quoteOutput struct {
	Priceable    bool       `json:"priceable"`
	Rank         types.Rank `json:"rank"`
	Steps        int64      `json:"steps"`
	BasePayment  string     `json:"base_payment"`
	Adjustment   string     `json:"adjustment"`
	FinalPayment string     `json:"final_payment"`
	TotalAmount  string     `json:"total_amount"`
	Currency     string     `json:"currency"`
	Message      string     `json:"message,omitempty"`
}

func newQuoteOutput(q types.Quote, currency string) quoteOutput {
	return quoteOutput{
		Priceable:    q.Priceable,
		Rank:         q.Rank,
		Steps:        q.Result.Steps,
		BasePayment:  utils.FormatAmount(q.Result.BasePayment),
		Adjustment:   utils.FormatAmount(q.Result.Adjustment),
		FinalPayment: utils.FormatAmount(q.Result.FinalPayment),
		TotalAmount:  utils.FormatAmount(q.TotalAmount),
		Currency:     currency,
		Message:      q.Disclosure,
	}
}

func printQuote(cmd *cobra.Command, q types.Quote, currency string) error {
	out := newQuoteOutput(q, currency)
	return printOutput(cmd, out, func(w io.Writer) {
		if !out.Priceable {
			fmt.Fprintf(w, "Not priceable: a period of %d is shorter than one contribution every %d.\n", q.Terms.Period, q.Terms.Frequency)
			return
		}
		fmt.Fprintf(w, "Steps:         %d\n", out.Steps)
		fmt.Fprintf(w, "Base payment:  %s %s\n", out.BasePayment, currency)
		fmt.Fprintf(w, "Adjustment:    %s %s\n", out.Adjustment, currency)
		fmt.Fprintf(w, "Final payment: %s %s\n", out.FinalPayment, currency)
		fmt.Fprintf(w, "Total amount:  %s %s\n", out.TotalAmount, currency)
		fmt.Fprintln(w)
		fmt.Fprintln(w, out.Message)
	})
}

// CmdPreview returns the command printing the pool-creation preview
func CmdPreview() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview the contribution of a pool before it is created",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			calc, err := newCalculator(cmd)
			if err != nil {
				return err
			}
			terms, err := readTerms(cmd)
			if err != nil {
				return err
			}

			quote, err := calc.Preview(terms)
			if err != nil {
				return err
			}
			return printQuote(cmd, quote, calc.Parameters().Currency)
		},
	}

	addTermsFlags(cmd)
	return cmd
}

// CmdQuote returns the command pricing a contract for one rank
func CmdQuote() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a contract for a cash-out position (0 for Random)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			calc, err := newCalculator(cmd)
			if err != nil {
				return err
			}
			terms, err := readTerms(cmd)
			if err != nil {
				return err
			}
			rank, _ := cmd.Flags().GetInt64(flagRank)

			quote, err := calc.Quote(terms, types.Rank(rank))
			if err != nil {
				return err
			}
			return printQuote(cmd, quote, calc.Parameters().Currency)
		},
	}

	addTermsFlags(cmd)
	cmd.Flags().Int64(flagRank, 0, "Cash-out position in [1, steps], 0 for Random")
	return cmd
}

// CmdRanks returns the command listing the positions still free in a pool
func CmdRanks() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ranks",
		Short: "List the cash-out positions that can still be chosen",
		Long: "List the cash-out positions that can still be chosen. Taken ranks come from --taken, " +
			"or from the remote API when --pool is set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			period, _ := cmd.Flags().GetInt64(flagPeriod)
			frequency, _ := cmd.Flags().GetInt64(flagFrequency)
			rawTaken, _ := cmd.Flags().GetString(flagTaken)

			taken, err := parseTaken(rawTaken)
			if err != nil {
				return err
			}

			if err := pricing.ValidateSchedule(period, frequency); err != nil {
				return err
			}

			steps := pricing.ComputeSteps(period, frequency)
			if cmd.Flags().Changed(flagPool) && steps > 0 {
				pool, _ := cmd.Flags().GetUint64(flagPool)
				apiURL, _ := cmd.Flags().GetString(flagAPIURL)

				client, err := backend.NewClient(apiURL, backend.DEFAULT_TIMEOUT)
				if err != nil {
					return err
				}
				remote, err := client.TakenRanks(cmd.Context(), types.PoolID(pool))
				if err != nil {
					return err
				}
				taken = append(taken, remote...)
			}

			options := ranks.Available(steps, taken)
			return printOutput(cmd, options, func(w io.Writer) {
				for _, opt := range options {
					fmt.Fprintf(w, "%d\t%s\n", opt.Value, opt.Label)
				}
			})
		},
	}

	cmd.Flags().Int64(flagPeriod, 0, "Total duration of the circle, in months")
	cmd.Flags().Int64(flagFrequency, 0, "Months between two contributions")
	cmd.Flags().String(flagTaken, "", "Comma separated ranks already claimed, e.g. 1,3")
	cmd.Flags().Uint64(flagPool, 0, "Credit pool id whose taken ranks are fetched from the remote API")
	cmd.Flags().String(flagAPIURL, os.Getenv("CIRCLE_API_URL"), "Base URL of the remote API")
	_ = cmd.MarkFlagRequired(flagPeriod)
	_ = cmd.MarkFlagRequired(flagFrequency)
	return cmd
}
