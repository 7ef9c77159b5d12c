// Package main performs a one-shot listing scan and prints the result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"forseti-scan/internal/listing"
	"forseti-scan/internal/normalize"
	"forseti-scan/internal/odin"
	"forseti-scan/internal/pricing"
)

func main() {
	// Parse flags
	odinBaseURL := flag.String("odin-base-url", odin.DefaultBaseURL, "ODIN.FUN API base URL")
	priceBaseURL := flag.String("price-base-url", pricing.DefaultBaseURL, "BTC price API base URL")
	limit := flag.Int("limit", 200, "Maximum records fetched from the upstream listing")
	top := flag.Int("top", 25, "Number of tokens to print")
	asJSON := flag.Bool("json", false, "Print the page as JSON instead of a table")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall scan timeout")
	flag.Parse()

	logger := log.New(os.Stderr, "[scan] ", log.LstdFlags)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := odin.NewClient(
		odin.WithBaseURL(*odinBaseURL),
		odin.WithListLimit(*limit),
	)
	price := pricing.NewSource(pricing.WithBaseURL(*priceBaseURL))
	normalizer := normalize.New(client, price)

	svc := listing.NewService(listing.Options{
		Upstream:   client,
		Normalizer: normalizer,
		Logger:     logger,
	})

	page, err := svc.GetTokens(ctx, 1, *top)
	if err != nil {
		logger.Fatalf("scan failed: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(page); err != nil {
			logger.Fatalf("encode page: %v", err)
		}
		return
	}

	fmt.Printf("%d tokens (showing %d)\n\n", page.Total, len(page.Tokens))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tNAME\tAGE\tMCAP\tVOL(BTC)\tTXNS\tRISK")
	for _, t := range page.Tokens {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.4f\t%s\t%s\n",
			t.Ticker, t.Name, t.Age, t.MarketCap, t.Volume.BTC, t.Txns, t.Risk)
	}
	w.Flush()
}
