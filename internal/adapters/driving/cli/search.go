package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// snippetLength is the number of characters shown per passage.
const snippetLength = 160

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge source",
	Long: `Retrieves passages from the knowledge source with the configured
retrieval mode, exactly as a Retrieve step of the reasoning loop would.

Dense retrieval ranks passages by embedding similarity, keyword retrieval
uses full-text search and hybrid fuses both rankings.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	addSettingsFlags(searchCmd, knowledgeFlags)
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	search, closeSearch, err := openSearch(ctx, settings)
	if err != nil {
		return err
	}
	defer closeSearch()

	opts := domain.SearchOptions{
		Source: settings.Knowledge.Source,
		Mode:   settings.RetrievalMode,
		Limit:  searchLimit,
	}
	results, err := search.Search(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.Passage) error {
	if results == nil {
		results = []domain.Passage{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.Passage) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, p := range results {
		title := p.Title
		if title == "" {
			title = p.ID
		}
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, title, p.Score)
		if snippet := snippet(p.Text, snippetLength); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
	return nil
}

// snippet collapses whitespace and cuts text to at most n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
