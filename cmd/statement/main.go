// Command statement prints billing statements for the invoices in a JSON file.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/noah-isme/theater-billing/internal/config"
	"github.com/noah-isme/theater-billing/internal/obs"
	"github.com/noah-isme/theater-billing/internal/playbill"
	"github.com/noah-isme/theater-billing/internal/theater"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := obs.NewLoggerTo(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if err := run(os.Args[1:], cfg, os.Stdout, logger); err != nil {
		logger.Error().Err(err).Msg("statement failed")
		os.Exit(1)
	}
}

func run(args []string, cfg *config.Config, out io.Writer, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("statement", flag.ContinueOnError)
	playsPath := fs.String("plays", cfg.StatementPlaysFile, "path to the plays catalog JSON")
	invoicesPath := fs.String("invoices", cfg.StatementInvoicesFile, "path to the invoices JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	catalog, err := playbill.LoadPlaysFile(*playsPath)
	if err != nil {
		return err
	}
	invoices, err := playbill.LoadInvoicesFile(*invoicesPath)
	if err != nil {
		return err
	}
	calc, err := theater.NewCalculator(cfg.Rates)
	if err != nil {
		return err
	}

	for _, invoice := range invoices {
		text, err := calc.Statement(invoice, catalog)
		if err != nil {
			return fmt.Errorf("statement for %s: %w", invoice.Customer, err)
		}
		if _, err := io.WriteString(out, text); err != nil {
			return err
		}
		logger.Debug().Str("customer", invoice.Customer).Int("performances", len(invoice.Performances)).Msg("statement printed")
	}
	return nil
}
