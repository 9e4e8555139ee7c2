// Command integration drives the live turn orchestrator through scripted
// conversations and prints a pass/fail summary.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/app"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/config"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
)

var (
	debugLLM bool
	plain    bool
	only     []string
)

var errScenariosFailed = errors.New("some scenarios failed")

var rootCmd = &cobra.Command{
	Use:   "integration",
	Short: "Run the persona agent against the live model and vector index",
	Long: `Runs scripted conversations through the same orchestrator the server uses:
  • begin message and transcript handling
  • plain chat
  • navigation and project tool calls
  • multi-turn search and display flows
  • empty and long transcripts

Requires OPENAI_API_KEY and access to the configured vector index.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromEnv()
		if debugLLM {
			cfg.LLMDebug = true
		}
		if cfg.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY", config.ErrMissingRequired)
		}

		level := "warn"
		if cfg.LLMDebug {
			level = "debug"
		}
		log, err := logger.New(level)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx := cmd.Context()
		responder, err := app.NewResponder(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize orchestrator: %w", err)
		}
		defer responder.Close()

		r := newRunner(responder, cmd.OutOrStdout(), newStyles(!plain))
		results := r.run(ctx, selectScenarios(only))
		if !r.summarize(results) {
			return errScenariosFailed
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().BoolVar(&debugLLM, "debug-llm", false, "Show verbose LLM streaming debug logs")
	rootCmd.Flags().BoolVar(&plain, "plain", false, "Disable colored output")
	rootCmd.Flags().BoolVar(&plain, "no-color", false, "Disable colored output")
	rootCmd.Flags().StringSliceVar(&only, "only", nil, "Run only the named scenarios")
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
