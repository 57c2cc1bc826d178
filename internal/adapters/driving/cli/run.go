package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ras-cli/internal/adapters/driving/tui"
	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/services"
)

var runPlain bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Answer every question of one or more datasets",
	Long: `Loads each dataset from the data directory, answers its questions
concurrently and writes <output>/<dataset>_results.json.

Every question yields a result row. Questions whose loop ran out of
steps or time are answered from the evidence gathered so far and are
reported as forced. The command fails only on invalid configuration, an
unloadable planner checkpoint, an unreadable dataset or interruption.

Examples:
  ras run --dataset hotpotqa --dataset 2wikimultihop --knowledge_source wiki
  ras run --dataset arc_c --planner_frozen=false --planner_checkpoint planner.json`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "log progress instead of showing the progress view")
	addSettingsFlags(runCmd, knowledgeFlags|modelFlags|batchFlags)
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := settings.ValidateBatch(); err != nil {
		return err
	}

	p, err := openPipeline(ctx, settings)
	if err != nil {
		return err
	}
	defer p.Close()

	var summaries []domain.RunSummary
	job := func(ctx context.Context, observer services.ProgressObserver) error {
		if observer != nil {
			p.Batch.SetObserver(observer)
		}
		var err error
		summaries, err = p.Batch.Run(ctx, settings.Datasets)
		return err
	}

	if useProgressView(cmd) {
		err = tui.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), job)
	} else {
		err = job(ctx, nil)
	}

	printSummaries(cmd, summaries)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

func useProgressView(cmd *cobra.Command) bool {
	if runPlain {
		return false
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printSummaries(cmd *cobra.Command, summaries []domain.RunSummary) {
	for _, s := range summaries {
		forced := 0
		for _, n := range s.Forced {
			forced += n
		}
		cmd.Printf("%s: %d questions, %d answered, %d forced, %d fallbacks, %d errors (%s)\n",
			s.Dataset, s.Questions, s.Answered, forced, s.Fallbacks, s.Errors,
			s.CompletedAt.Sub(s.StartedAt).Round(time.Millisecond))
		reasons := make([]string, 0, len(s.Forced))
		for r := range s.Forced {
			reasons = append(reasons, string(r))
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			cmd.Printf("  %s: %d\n", r, s.Forced[domain.TerminationReason(r)])
		}
		if s.OutputPath != "" {
			cmd.Printf("  results: %s\n", s.OutputPath)
		}
		cmd.Printf("  run: %s\n", s.RunID)
	}
}
