package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/okloa-labs/mailrag/internal/core/domain"
	"github.com/okloa-labs/mailrag/internal/core/services"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted index manifest",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	// Status only reads the manifest, no providers needed.
	manifest, err := services.ReadManifest(indexDir())
	if errors.Is(err, domain.ErrIndexUnavailable) {
		cmd.Println("No index found. Run 'mailrag build <corpus-file>' to create one.")
		return nil
	}
	if err != nil {
		return err
	}

	cmd.Printf("Index directory:  %s\n", indexDir())
	cmd.Printf("Documents:        %d\n", manifest.DocumentCount)
	cmd.Printf("Chunks:           %d\n", manifest.ChunkCount)
	cmd.Printf("Encoder variant:  %s\n", manifest.Variant)
	cmd.Printf("Embedding model:  %s (%d dimensions)\n", manifest.EmbeddingModel, manifest.EmbeddingDimensions)
	cmd.Printf("Chunking:         %d runes, %d overlap\n", manifest.ChunkSize, manifest.ChunkOverlap)
	cmd.Printf("Vector backend:   %s\n", manifest.VectorBackend)
	cmd.Printf("Built at:         %s\n", manifest.BuiltAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}
