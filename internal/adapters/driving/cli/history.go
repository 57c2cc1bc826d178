package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past dataset runs",
	Long: `Without arguments, lists the most recent dataset runs. With a run ID,
prints the result rows of that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	history, closeHistory, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer closeHistory()

	if len(args) == 1 {
		rows, err := history.Results(ctx, args[0])
		if err != nil {
			return fmt.Errorf("run %s: %w", args[0], err)
		}
		if historyJSON {
			return printJSON(cmd, rows)
		}
		for _, r := range rows {
			status := string(r.Termination)
			if r.Error != "" {
				status = "error: " + r.Error
			}
			cmd.Printf("%s\t%s\t%s\n", r.ID, status, snippet(r.Prediction, snippetLength))
		}
		return nil
	}

	runs, err := history.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if historyJSON {
		return printJSON(cmd, runs)
	}
	if len(runs) == 0 {
		cmd.Println("No runs yet.")
		return nil
	}
	for _, r := range runs {
		cmd.Printf("%s  %s  %-16s %d questions, %d answered, %d errors\n",
			r.RunID, r.StartedAt.Local().Format(time.DateTime), r.Dataset, r.Questions, r.Answered, r.Errors)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
