package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okloa-labs/mailrag/internal/adapters/driven/corpus"
)

var buildForce bool

var buildCmd = &cobra.Command{
	Use:   "build [corpus-file]",
	Short: "Build or refresh the index from a corpus file",
	Long: `Chunks, embeds and indexes the given corpus. The corpus file holds
structured email documents as a JSON array or JSON Lines.

The index is only rebuilt when the corpus content or the indexing
configuration changed since the last build; --force always rebuilds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "rebuild even if the index is fresh")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	corpusPath := configStore.Config().CorpusPath
	if len(args) == 1 {
		corpusPath = args[0]
	}
	if corpusPath == "" {
		return errors.New("no corpus file given and corpus_path is not configured")
	}

	docs, err := corpus.Load(corpusPath)
	if err != nil {
		return err
	}

	manifest, err := indexManager.EnsureIndex(cmd.Context(), docs, buildForce)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	cmd.Printf("Index ready: %d documents, %d chunks (%s, %s)\n",
		manifest.DocumentCount, manifest.ChunkCount, manifest.Variant, manifest.EmbeddingModel)
	return nil
}
