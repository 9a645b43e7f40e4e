package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bregovic/shanon-sub001/internal/app"
	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/models"
)

// opener builds the application for one command invocation.
type opener func(configPath string) (*app.App, error)

type cli struct {
	configPath string
	open       opener
}

// newRootCmd builds the command tree. Every subcommand opens the app,
// runs one engine operation and prints the result as JSON.
func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:   "shanon",
		Short: "Market quote resolution and normalization engine",
		Long: `Resolve ticker aliases, fetch quotes through the provider chain,
compute price analytics and resolve FX rates against the reporting currency.

Configuration is read from --config, SHANON_CONFIG or config/shanon.toml.`,
		Version:       common.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to shanon.toml")

	root.AddCommand(c.quoteCmd(), c.refreshCmd(), c.analyticsCmd(), c.fxCmd(), c.aliasCmd())
	return root
}

// run opens the app, invokes fn and prints its result.
func (c *cli) run(cmd *cobra.Command, fn func(a *app.App) (interface{}, error)) error {
	a, err := c.open(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer a.Close()

	out, err := fn(a)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) quoteCmd() *cobra.Command {
	var (
		fresh    bool
		currency string
	)
	cmd := &cobra.Command{
		Use:   "quote TICKER",
		Short: "Get a quote for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(a *app.App) (interface{}, error) {
				return a.Quotes.GetQuote(cmd.Context(), args[0], fresh, currency)
			})
		},
	}
	cmd.Flags().BoolVar(&fresh, "fresh", false, "bypass the freshness window")
	cmd.Flags().StringVar(&currency, "currency", "", "currency hint for a newly seen ticker")
	return cmd
}

func (c *cli) refreshCmd() *cobra.Command {
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Force-refresh every watched or traded ticker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(a *app.App) (interface{}, error) {
				d := delay
				if !cmd.Flags().Changed("delay") {
					d = a.Config.Quotes.GetPerCallDelay()
				}
				return a.Quotes.RefreshAll(cmd.Context(), d)
			})
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", 0, "spacing between ticker refreshes (default from config)")
	return cmd
}

func (c *cli) analyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics [TICKER]",
		Short: "Compute analytics for one ticker, or for every active quote",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(a *app.App) (interface{}, error) {
				if len(args) == 1 {
					return a.Analytics.ComputeAnalytics(cmd.Context(), args[0])
				}
				return a.Analytics.ComputeAll(cmd.Context())
			})
		},
	}
}

func (c *cli) fxCmd() *cobra.Command {
	fx := &cobra.Command{
		Use:   "fx",
		Short: "Resolve and import FX rates",
	}

	var nearest bool
	rate := &cobra.Command{
		Use:   "rate CURRENCY DATE",
		Short: "Resolve the rate of CURRENCY on DATE (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := models.ParseDate(args[1]); err != nil {
				return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", args[1])
			}
			return c.run(cmd, func(a *app.App) (interface{}, error) {
				return a.Fx.ResolveRate(cmd.Context(), args[0], args[1], nearest)
			})
		},
	}
	rate.Flags().BoolVar(&nearest, "nearest", false, "fall back to the latest earlier rate")

	var date string
	imp := &cobra.Command{
		Use:   "import",
		Short: "Import the daily fixing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now().UTC()
			if date != "" {
				d, err := models.ParseDate(date)
				if err != nil {
					return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
				}
				day = d
			}
			return c.run(cmd, func(a *app.App) (interface{}, error) {
				return a.Fx.ImportRates(cmd.Context(), day)
			})
		},
	}
	imp.Flags().StringVar(&date, "date", "", "fixing date YYYY-MM-DD (default today)")

	fx.AddCommand(rate, imp)
	return fx
}

type aliasView struct {
	Symbol    string              `json:"symbol"`
	Canonical string              `json:"canonical"`
	Mapping   *models.TickerAlias `json:"mapping,omitempty"`
}

func (c *cli) aliasCmd() *cobra.Command {
	alias := &cobra.Command{
		Use:   "alias",
		Short: "Manage ticker aliases",
	}

	set := &cobra.Command{
		Use:   "set OLD CANONICAL",
		Short: "Map OLD onto CANONICAL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(a *app.App) (interface{}, error) {
				if err := a.Aliases.SetAlias(cmd.Context(), args[0], args[1]); err != nil {
					return nil, err
				}
				return a.Aliases.GetAlias(cmd.Context(), args[0])
			})
		},
	}

	get := &cobra.Command{
		Use:   "get SYMBOL",
		Short: "Resolve SYMBOL to its canonical ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(a *app.App) (interface{}, error) {
				symbol := strings.ToUpper(strings.TrimSpace(args[0]))
				canonical, err := a.Aliases.Resolve(cmd.Context(), symbol)
				if err != nil {
					return nil, err
				}
				view := &aliasView{Symbol: symbol, Canonical: canonical}
				mapping, err := a.Aliases.GetAlias(cmd.Context(), symbol)
				switch {
				case err == nil:
					view.Mapping = mapping
				case !errors.Is(err, models.ErrNotFound):
					return nil, err
				}
				return view, nil
			})
		},
	}

	alias.AddCommand(set, get)
	return alias
}
