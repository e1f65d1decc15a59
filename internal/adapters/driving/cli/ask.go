package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okloa-labs/mailrag/internal/core/domain"
)

var (
	askTopK       int
	askJSON       bool
	askDuplicates bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed emails",
	Long: `Retrieves the most relevant messages for the question and generates
a grounded answer over them. When the generation provider is missing or
fails, the sources are still printed with a degraded-answer notice.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of sources to retrieve")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVar(&askDuplicates, "include-duplicates", false,
		"allow multiple chunks from the same message")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	answer, err := askService.Ask(cmd.Context(), args[0], domain.AskOptions{
		TopK:              askTopK,
		IncludeDuplicates: askDuplicates,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)
	if answer.Degraded {
		cmd.Println()
		cmd.Printf("(answer degraded: %s)\n", answer.FailureReason)
	}

	if len(answer.Sources.Chunks) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		printSources(cmd, answer.Sources.Chunks)
	}
	return nil
}

// printSources renders retrieved chunks with attribution and excerpt.
func printSources(cmd *cobra.Command, chunks []domain.RetrievedChunk) {
	for i := range chunks {
		c := &chunks[i]
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, c.Meta.Subject, c.Score)
		if c.Meta.Sender != "" {
			line := "      From: " + c.Meta.Sender
			if !c.Meta.Timestamp.IsZero() {
				line += " on " + c.Meta.Timestamp.Format("2006-01-02")
			}
			cmd.Println(line)
		}
		cmd.Printf("      %s\n", c.Excerpt(domain.DefaultExcerptLength))
		cmd.Println()
	}
}
