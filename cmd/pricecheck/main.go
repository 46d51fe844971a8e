// Command pricecheck runs a single price check from the command line, or scans
// a saved HTML file without a browser.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/use-agent/priceprobe/config"
	"github.com/use-agent/priceprobe/engine"
	"github.com/use-agent/priceprobe/scraper"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "reading .env: %v\n", err)
	}

	cmd := newRootCmd(func(cfg *config.Config) engine.Driver {
		return scraper.NewScraper(cfg.Browser, cfg.Probe)
	})
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
