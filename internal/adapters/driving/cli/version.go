package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the supported checkpoint format",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("ras version %s\n", version)
		cmd.Printf("checkpoint format %s v%d\n", domain.CheckpointFormat, domain.CheckpointVersion)
		cmd.Printf("built with %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
