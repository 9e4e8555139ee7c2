// Command seed embeds a JSON list of projects into the local SQLite index
// used when VECTOR_STORE=sqlite.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/app"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/config"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/vectorstore/sqlite"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
)

var (
	file   string
	dbPath string
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load portfolio projects into the local SQLite vector index",
	Long: `Reads a JSON array of projects ({id, name, summary, details, github, demo}),
embeds each one with the configured EMBEDDING_PROVIDER and upserts it into
the SQLite index at SQLITE_PATH (or --db).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromEnv()
		if dbPath == "" {
			dbPath = cfg.SQLitePath
		}

		log, err := logger.New(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open projects file: %w", err)
		}
		defer f.Close()

		projects, err := readProjects(f)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		embedder, err := app.NewEmbedder(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}

		store, err := sqlite.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := seed(ctx, embedder, store, projects, log)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d projects into %s\n", n, dbPath)
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&file, "file", "f", "projects.json", "JSON file with the projects to load")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (defaults to SQLITE_PATH)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
