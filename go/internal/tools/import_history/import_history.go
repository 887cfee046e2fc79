package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/mcdev12/reactionduel/go/internal/config"
	"github.com/mcdev12/reactionduel/go/internal/history"
	"github.com/mcdev12/reactionduel/go/internal/metrics"
	"github.com/mcdev12/reactionduel/go/internal/models"
)

// importSummary counts the outcome of an import run.
type importSummary struct {
	total    int
	inserted int
	skipped  int
	dropped  int
	errs     int
}

func main() {
	file := flag.String("file", "reactionDuelHistory.json", "exported history JSON array")
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	// 1) Load the JSON export
	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	records, dropped, err := history.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode JSON: %v\n", err)
		os.Exit(1)
	}

	// 2) Open the configured history backend
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	kv, release, err := history.Open(ctx, cfg.History.BackendConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer release()
	store := history.NewStore(kv, cfg.History.Key, metrics.NoOp{})

	// 3) Append and count
	summary := importRecords(ctx, store, records)
	summary.dropped = dropped

	// 4) Print summary
	fmt.Printf(
		"History import complete: %d total, %d inserted, %d skipped, %d unreadable, %d errors\n",
		summary.total, summary.inserted, summary.skipped, summary.dropped, summary.errs,
	)
}

// importRecords appends every record whose id is not already stored.
func importRecords(ctx context.Context, store *history.Store, records []models.MatchRecord) importSummary {
	seen := make(map[string]bool)
	for _, r := range store.Get(ctx) {
		seen[r.ID] = true
	}

	s := importSummary{total: len(records)}
	for _, r := range records {
		if r.ID != "" && seen[r.ID] {
			s.skipped++
			continue
		}
		if err := store.Append(ctx, r); err != nil {
			fmt.Fprintf(os.Stderr, "error importing record %s: %v\n", r.ID, err)
			s.errs++
			continue
		}
		seen[r.ID] = true
		s.inserted++
	}
	return s
}
