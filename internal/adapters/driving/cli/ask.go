package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// askDataset tags questions asked on the command line.
const askDataset = "adhoc"

var (
	askChoices []string
	askJSON    bool
	askSteps   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question",
	Long: `Runs one question through the reasoning loop and prints the answer.

Use --choice once per option for a multiple-choice question, and --steps
to list the decisions the planner took.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringArrayVar(&askChoices, "choice", nil, "answer option (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the result row as JSON")
	askCmd.Flags().BoolVar(&askSteps, "steps", false, "list the decisions taken")
	addSettingsFlags(askCmd, knowledgeFlags|modelFlags)
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	q := domain.Question{
		ID:              uuid.NewString(),
		Text:            args[0],
		Dataset:         askDataset,
		MaxAnswerLength: settings.MaxAnswerLength,
		Choices:         askChoices,
	}
	if err := q.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	p, err := openPipeline(ctx, settings)
	if err != nil {
		return err
	}
	defer p.Close()

	start := time.Now()
	answer, err := p.Questions.RunQuestion(ctx, q)
	if err != nil {
		return fmt.Errorf("answer question: %w", err)
	}
	row := domain.NewQuestionResult(q, answer, time.Since(start))

	if askJSON {
		data, err := json.MarshalIndent(row, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(row.Prediction)
	cmd.Println()
	cmd.Printf("Termination: %s", row.Termination)
	if row.Fallback {
		cmd.Print(" (fallback answer)")
	}
	cmd.Printf("\nSteps: %d, triples: %d, latency: %s\n", len(row.Steps), len(row.Triples), row.Latency.Round(time.Millisecond))
	if askSteps {
		printSteps(cmd, row.Steps)
	}
	return nil
}

func printSteps(cmd *cobra.Command, steps []domain.StepRecord) {
	for i, s := range steps {
		cmd.Printf("  %2d. %-8s %s", i+1, s.Decision, s.Latency.Round(time.Millisecond))
		switch {
		case s.Query != "":
			cmd.Printf("  %q", s.Query)
		case s.PassageID != "":
			cmd.Printf("  passage %s", s.PassageID)
		}
		if s.Forced {
			cmd.Print("  (forced)")
		}
		if s.Error != "" {
			cmd.Printf("  error: %s", s.Error)
		}
		cmd.Println()
	}
}
