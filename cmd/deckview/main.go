// deckview is a terminal swipe deck over the local trade store. Decisions
// made in the viewer are written back to the same database the API uses.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"trockle-api/internal/catalog"
	"trockle-api/internal/config"
	"trockle-api/internal/database"
	"trockle-api/internal/swipe"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configFile, dbPath, viewerID, category string
	var limit int

	flagSet := pflag.NewFlagSet("deckview", pflag.ContinueOnError)
	flagSet.StringVar(&configFile, "config", "", "path to a JSON or YAML config file")
	flagSet.StringVar(&dbPath, "db", "", "database file path (overrides config)")
	flagSet.StringVar(&viewerID, "viewer", "", "user id to swipe as (required)")
	flagSet.StringVar(&category, "category", "", "only show trades in this category")
	flagSet.IntVar(&limit, "limit", 20, "maximum number of cards")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if viewerID == "" {
		return fmt.Errorf("--viewer is required")
	}
	if category != "" && !catalog.HasCategory(category) {
		return fmt.Errorf("unknown category %q", category)
	}
	if limit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	candidates, err := db.ListCandidates(context.Background(), database.CandidateFilter{
		ViewerID: viewerID,
		Category: category,
		Limit:    limit,
	})
	if err != nil {
		return err
	}

	swipeCfg := swipe.DefaultConfig()
	swipeCfg.Threshold = cfg.Swipe.Threshold
	swipeCfg.ScreenWidth = cfg.Swipe.ScreenWidth
	swipeCfg.ExitDuration = cfg.ExitDuration()

	m := newModel(candidates, viewerID, swipeCfg, db.InsertDecision, time.Now)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
