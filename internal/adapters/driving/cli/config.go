package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage run settings",
	Long: `View and change the settings stored in config.toml.

Command line flags override stored settings for a single invocation.
API keys may also come from OPENAI_API_KEY and ANTHROPIC_API_KEY,
read from the environment or a .env file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Long: `Stores a single setting. List values such as run.datasets take a
comma separated list; durations use Go syntax such as 90s or 2m.

Run "ras config keys" for the list of keys.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

var configSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive model setup",
	Long: `Configure the triple extractor, the answer generator and the
embedding model step by step. Each model is contacted to validate the
configuration before it is saved.`,
	Args: cobra.NoArgs,
	RunE: runConfigSetup,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configSetupCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Run]")
	cmd.Printf("  Datasets: %s\n", orNone(strings.Join(s.Datasets, ", ")))
	cmd.Printf("  Data dir: %s\n", s.DataDir)
	cmd.Printf("  Output dir: %s\n", s.OutputDir)
	cmd.Println()

	cmd.Println("[Knowledge]")
	cmd.Printf("  Source: %s\n", orNone(s.Knowledge.Source))
	cmd.Printf("  Path: %s\n", s.Knowledge.Path)
	cmd.Printf("  Top K: %d\n", s.Knowledge.TopK)
	cmd.Printf("  Retrieval: %s\n", s.RetrievalMode.Description())
	cmd.Println()

	cmd.Println("[Planner]")
	if s.Planner.Frozen {
		cmd.Printf("  Policy: frozen (%d hops, %d extractions per hop)\n", s.Planner.MaxHops, s.Planner.ExtractPerHop)
	} else {
		cmd.Printf("  Policy: trainable (%s)\n", orNone(s.Planner.Checkpoint))
	}
	cmd.Printf("  Model: %s\n", orNone(s.Planner.Model))
	if s.Planner.StopRule != "" {
		cmd.Printf("  Stop rule: %s\n", s.Planner.StopRule)
	} else {
		cmd.Printf("  Stop rule: stall after %d passages\n", s.Planner.StallPassageThreshold)
	}
	cmd.Println()

	showLLM(cmd, "Extractor", s.Extractor, s.Extractor.IsConfigured())
	showLLM(cmd, "Answerer", s.Answerer, s.Answerer.IsConfigured())
	showLLM(cmd, "Embedding", domain.LLMSettings(s.Embedding), s.Embedding.IsConfigured())

	cmd.Println("[Limits]")
	cmd.Printf("  Max answer length: %d %s\n", s.MaxAnswerLength, s.LengthUnit)
	cmd.Printf("  Step budget: %d\n", s.Limits.StepBudget)
	cmd.Printf("  Question timeout: %s\n", s.Limits.QuestionTimeout)
	cmd.Printf("  Finalize timeout: %s\n", s.Limits.FinalizeTimeout)
	cmd.Printf("  Concurrency: %d\n", s.Limits.Concurrency)
	if s.Limits.RequestsPerSecond > 0 {
		cmd.Printf("  Requests per second: %g\n", s.Limits.RequestsPerSecond)
	}
	cmd.Println()

	if s.Tracing.Endpoint != "" {
		cmd.Println("[Tracing]")
		cmd.Printf("  Endpoint: %s\n", s.Tracing.Endpoint)
		cmd.Println()
	}
	return nil
}

func showLLM(cmd *cobra.Command, name string, l domain.LLMSettings, configured bool) {
	cmd.Printf("[%s]\n", name)
	cmd.Printf("  Provider: %s\n", l.Provider.Description())
	cmd.Printf("  Model: %s\n", orNone(l.Model))
	if l.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", l.BaseURL)
	}
	if l.Provider.RequiresAPIKey() {
		if l.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(l.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return err
	}
	if strings.HasSuffix(key, ".api_key") {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, value)
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runConfigSetup(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Triple extractor")
	extractor, err := configureLLM(cmd, reader, s.Extractor)
	if err != nil {
		return err
	}
	s.Extractor = extractor

	cmd.Print("Use the same model for answers? [Y/n]: ")
	if strings.HasPrefix(strings.ToLower(readLine(reader)), "n") {
		cmd.Println("Answer generator")
		answerer, err := configureLLM(cmd, reader, s.Answerer)
		if err != nil {
			return err
		}
		s.Answerer = answerer
	} else {
		s.Answerer = extractor
	}

	cmd.Print("Configure an embedding model for dense retrieval? [Y/n]: ")
	if !strings.HasPrefix(strings.ToLower(readLine(reader)), "n") {
		embedding, err := configureEmbedding(cmd, reader, s.Embedding)
		if err != nil {
			return err
		}
		s.Embedding = embedding
	} else if s.RetrievalMode.RequiresEmbedding() {
		s.RetrievalMode = domain.RetrievalKeywordOnly
		cmd.Println("Retrieval mode set to keyword_only")
	}

	if err := settingsService.Save(s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if s.Embedding.IsConfigured() {
		cmd.Print("Validating embedding configuration... ")
		if err := settingsService.ValidateEmbeddingConfig(); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("embedding configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}
	cmd.Println("Settings saved.")
	return nil
}

func configureLLM(cmd *cobra.Command, reader *bufio.Reader, current domain.LLMSettings) (domain.LLMSettings, error) {
	providers := domain.AllLLMProviders()
	provider, err := chooseProvider(cmd, reader, providers)
	if err != nil {
		return current, err
	}
	model := promptDefault(cmd, reader, "Enter model name", domain.DefaultLLMModels()[provider])
	l := domain.LLMSettings{Provider: provider, Model: model}
	l.BaseURL = promptDefault(cmd, reader, "Enter base URL (empty for provider default)", "")
	if provider.RequiresAPIKey() && l.BaseURL == "" {
		cmd.Print("Enter API key: ")
		l.APIKey = readPassword(reader)
		cmd.Println()
		if l.APIKey == "" {
			return current, errors.New("API key is required for this provider")
		}
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(&l); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return current, fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	cmd.Printf("Configured: %s (%s)\n\n", provider.Description(), model)
	return l, nil
}

func configureEmbedding(cmd *cobra.Command, reader *bufio.Reader, current domain.EmbeddingSettings) (domain.EmbeddingSettings, error) {
	provider, err := chooseProvider(cmd, reader, domain.AllEmbeddingProviders())
	if err != nil {
		return current, err
	}
	e := domain.EmbeddingSettings{
		Provider: provider,
		Model:    promptDefault(cmd, reader, "Enter model name", domain.DefaultEmbeddingModels()[provider]),
		BaseURL:  promptDefault(cmd, reader, "Enter base URL (empty for provider default)", ""),
	}
	if provider.RequiresAPIKey() && e.BaseURL == "" {
		cmd.Print("Enter API key: ")
		e.APIKey = readPassword(reader)
		cmd.Println()
		if e.APIKey == "" {
			return current, errors.New("API key is required for this provider")
		}
	}
	cmd.Printf("Configured: %s (%s)\n\n", provider.Description(), e.Model)
	return e, nil
}

func chooseProvider(cmd *cobra.Command, reader *bufio.Reader, providers []domain.AIProvider) (domain.AIProvider, error) {
	if len(providers) == 0 {
		return "", errors.New("no providers available")
	}
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	return providers[idx-1], nil
}

func promptDefault(cmd *cobra.Command, reader *bufio.Reader, label, def string) string {
	if def != "" {
		cmd.Printf("%s [%s]: ", label, def)
	} else {
		cmd.Printf("%s: ", label)
	}
	if v := readLine(reader); v != "" {
		return v
	}
	return def
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo from a terminal and falls back to a
// plain line from reader.
func readPassword(reader *bufio.Reader) string {
	if reader.Buffered() == 0 && term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
