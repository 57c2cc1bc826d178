package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/services"
)

var (
	checkpointModel string
	checkpointForce bool
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Manage trainable planner checkpoints",
	Long: `A checkpoint holds the parameters of the trainable planner policy: a
linear scorer per decision over named evidence features. It is loaded
once at startup with --planner_frozen=false --planner_checkpoint <path>.`,
}

var checkpointInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a template checkpoint",
	Long: `Writes a checkpoint whose weights reproduce a retrieve, extract,
answer rhythm. Use it as the starting point for training.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckpointInit,
}

var checkpointValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check a checkpoint loads",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointValidate,
}

func init() {
	checkpointCmd.PersistentFlags().StringVar(&checkpointModel, "planner_model", "", "planner model the checkpoint is for")
	checkpointInitCmd.Flags().BoolVarP(&checkpointForce, "force", "f", false, "overwrite an existing file")
	checkpointCmd.AddCommand(checkpointInitCmd)
	checkpointCmd.AddCommand(checkpointValidateCmd)
	rootCmd.AddCommand(checkpointCmd)
}

func runCheckpointInit(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !checkpointForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
	}
	if err := services.WriteCheckpoint(path, domain.TemplateCheckpoint(checkpointModel)); err != nil {
		return err
	}
	cmd.Printf("Template checkpoint written to %s\n", path)
	return nil
}

func runCheckpointValidate(cmd *cobra.Command, args []string) error {
	cp, err := services.LoadCheckpoint(args[0], checkpointModel)
	if err != nil {
		return err
	}

	cmd.Printf("Checkpoint OK: %s v%d\n", cp.Format, cp.Version)
	model := cp.Model
	if model == "" {
		model = "(any)"
	}
	cmd.Printf("  Model: %s\n", model)
	cmd.Printf("  Features: %d\n", len(cp.Features))
	kinds := make([]string, 0, len(cp.Actions))
	for k := range cp.Actions {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		cmd.Printf("  %s: bias %.3f\n", k, cp.Actions[domain.DecisionKind(k)].Bias)
	}
	return nil
}
