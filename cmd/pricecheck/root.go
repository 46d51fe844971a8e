package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/use-agent/priceprobe/blockdetect"
	"github.com/use-agent/priceprobe/checker"
	"github.com/use-agent/priceprobe/config"
	"github.com/use-agent/priceprobe/engine"
	"github.com/use-agent/priceprobe/pricescan"
	"github.com/use-agent/priceprobe/pricing"
)

var (
	errNoPrices = errors.New("no prices found on page")
	errNoMatch  = errors.New("target price not among page prices")
)

// driverFactory builds the session driver once configuration is loaded.
type driverFactory func(cfg *config.Config) engine.Driver

func newRootCmd(newDriver driverFactory) *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:          "pricecheck",
		Short:        "Check a product page for a displayed price.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			config.InitLogger(cfg.Log, cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	root.PersistentFlags().StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "json or text")
	root.PersistentFlags().StringVar(&cfg.Probe.CurrencySymbol, "symbol", cfg.Probe.CurrencySymbol, "currency symbol recognised in prices")

	root.AddCommand(newCheckCmd(cfg, newDriver), newScanCmd(cfg))
	return root
}

func newCheckCmd(cfg *config.Config, newDriver driverFactory) *cobra.Command {
	var (
		targetURL string
		price     string
		lenient   bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load a page in a browser and look for the target price.",
		Long: `Loads the page headless, falling back to a headed browser when the
page looks blocked. Without --lenient the command fails unless prices were
found and the target price is among them.

--url and --price default to TARGET_URL and MATCH_PRICE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if targetURL == "" {
				targetURL = os.Getenv("TARGET_URL")
			}
			if price == "" {
				price = os.Getenv("MATCH_PRICE")
			}
			if targetURL == "" {
				return errors.New("a url is required (--url or TARGET_URL)")
			}

			policy := checker.Lenient
			if !lenient {
				policy = checker.Strict
				if price == "" {
					return errors.New("a target price is required (--price or MATCH_PRICE)")
				}
			}

			ck := checker.New(newDriver(cfg), cfg.Probe.CurrencySymbol, 1)
			out, err := ck.Check(cmd.Context(), checker.Request{URL: targetURL, Price: price}, policy)
			if out != nil {
				if encErr := writeJSON(cmd.OutOrStdout(), out.Report()); encErr != nil {
					return encErr
				}
			}
			if err != nil || lenient {
				return err
			}

			if len(out.Prices) == 0 {
				return errNoPrices
			}
			if !out.Found {
				return fmt.Errorf("%w: %s", errNoMatch, price)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&targetURL, "url", "", "product page URL")
	cmd.Flags().StringVar(&price, "price", "", "target price, e.g. £199.99")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "report an empty result instead of failing")
	return cmd
}

// scanReport is the output of the offline scan command.
type scanReport struct {
	File             string    `json:"file"`
	RawPrices        []string  `json:"rawPrices"`
	NormalizedPrices []float64 `json:"normalizedPrices"`
	Blocked          bool      `json:"blocked"`
	Signals          []string  `json:"signals"`
	MatchPrice       *float64  `json:"matchPrice"`
	Found            bool      `json:"found"`
}

func newScanCmd(cfg *config.Config) *cobra.Command {
	var price string

	cmd := &cobra.Command{
		Use:   "scan <file>",
		Short: "Scan a saved HTML file for prices and block markers.",
		Long: `Parses the file without a browser. Only inline styles, the hidden
attribute and default hidden elements are considered for visibility.
Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			report, err := scanFile(cfg.Probe.CurrencySymbol, args[0], raw, price)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&price, "price", "", "target price to look for")
	return cmd
}

func scanFile(symbol, name, rawHTML, price string) (*scanReport, error) {
	target, err := pricing.ParseTarget(price, symbol)
	if err != nil {
		return nil, err
	}

	seq, err := pricescan.NewPattern(symbol).ScanHTML(rawHTML)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	raws := slices.Collect(seq)
	if raws == nil {
		raws = []string{}
	}

	verdict := blockdetect.Detect(rawHTML, len(raws))
	prices := pricing.Normalize(slices.Values(raws), symbol)

	signals := blockdetect.Strings(verdict.Signals)
	if signals == nil {
		signals = []string{}
	}
	return &scanReport{
		File:             name,
		RawPrices:        raws,
		NormalizedPrices: prices,
		Blocked:          verdict.Blocked,
		Signals:          signals,
		MatchPrice:       target,
		Found:            pricing.Found(target, prices),
	}, nil
}

func readInput(stdin io.Reader, name string) (string, error) {
	var (
		b   []byte
		err error
	)
	if name == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("scan: read %s: %w", name, err)
	}
	return string(b), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
