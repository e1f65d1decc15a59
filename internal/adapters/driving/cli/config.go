package cli

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	fileConfig := configStore.Config()

	cmd.Printf("Config file:      %s\n", configStore.Path())
	cmd.Printf("Index directory:  %s\n", indexDir())
	if fileConfig.CorpusPath != "" {
		cmd.Printf("Corpus path:      %s\n", fileConfig.CorpusPath)
	}
	cmd.Println()
	cmd.Printf("Encoder variant:  %s\n", indexConfig.Variant)
	cmd.Printf("Vector backend:   %s\n", indexConfig.VectorBackend)
	cmd.Printf("Chunking:         %d runes, %d overlap\n", indexConfig.ChunkSize, indexConfig.ChunkOverlap)
	cmd.Printf("Top-k:            %d (overfetch x%d)\n", indexConfig.TopK, indexConfig.OverfetchFactor)
	cmd.Printf("Context budget:   %d runes\n", indexConfig.MaxContextLength)
	cmd.Printf("Query timeout:    %s\n", indexConfig.QueryTimeout)
	cmd.Println()

	if fileConfig.Embedding.IsConfigured() {
		cmd.Printf("Embedding:        %s (%s)\n", fileConfig.Embedding.Provider, fileConfig.Embedding.Model)
	} else {
		cmd.Println("Embedding:        not configured")
	}
	if fileConfig.Generation.IsConfigured() {
		cmd.Printf("Generation:       %s (%s)\n", fileConfig.Generation.Provider, fileConfig.Generation.Model)
	} else {
		cmd.Println("Generation:       not configured (answers will list sources only)")
	}
	return nil
}
