// Package cli implements the mailrag command-line interface.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okloa-labs/mailrag/internal/adapters/driven/ai"
	configfile "github.com/okloa-labs/mailrag/internal/adapters/driven/config/file"
	"github.com/okloa-labs/mailrag/internal/adapters/driven/encoder"
	"github.com/okloa-labs/mailrag/internal/core/domain"
	"github.com/okloa-labs/mailrag/internal/core/ports/driven"
	"github.com/okloa-labs/mailrag/internal/core/services"
	"github.com/okloa-labs/mailrag/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Persistent flags.
var (
	flagVerbose   bool
	flagConfigDir string
	flagIndexDir  string
)

// Shared services, wired lazily by commands that need them.
var (
	configStore  *configfile.ConfigStore
	promptStore  driven.PromptStore
	indexConfig  domain.IndexConfig
	indexManager *services.IndexManager
	askService   *services.AskService
)

var rootCmd = &cobra.Command{
	Use:   "mailrag",
	Short: "Question answering over an email archive",
	Long: `Mailrag indexes a corpus of emails and answers natural-language
questions about it, grounding every answer in retrieved messages.

Configure an embedding provider in ~/.mailrag/config.toml (or via
'mailrag config'), build the index with 'mailrag build', then query it
with 'mailrag ask'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default ~/.mailrag)")
	rootCmd.PersistentFlags().StringVar(&flagIndexDir, "index-dir", "", "index directory (default <config-dir>/index)")
}

// Execute runs the CLI. v is the release version stamped at build time.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}

// loadConfig initialises the config store and the derived index
// configuration. Idempotent.
func loadConfig() error {
	if configStore != nil {
		return nil
	}

	store, err := configfile.NewConfigStore(flagConfigDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	cfg, err := store.Config().IndexConfig()
	if err != nil {
		return err
	}

	prompts, err := configfile.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("open prompt store: %w", err)
	}

	configStore = store
	indexConfig = cfg
	promptStore = prompts
	return nil
}

// indexDir resolves the index directory from flag or config.
func indexDir() string {
	if flagIndexDir != "" {
		return flagIndexDir
	}
	return configStore.IndexDir()
}

// initServices wires the index manager and ask service. Commands that
// touch the index call this once; it validates embedding connectivity.
func initServices() error {
	if err := loadConfig(); err != nil {
		return err
	}
	if indexManager != nil {
		return nil
	}

	fileConfig := configStore.Config()
	embedSvc, err := ai.CreateAndValidateEmbeddingService(&fileConfig.Embedding)
	if err != nil {
		return err
	}
	if embedSvc == nil {
		return errors.New("no embedding provider configured; set [embedding] in " + configStore.Path())
	}

	enc, err := encoder.New(indexConfig.Variant, embedSvc, indexConfig.MaxEncodeLength)
	if err != nil {
		return err
	}

	manager, err := services.NewIndexManager(indexDir(), indexConfig, enc)
	if err != nil {
		return err
	}

	// Generation is optional: without it answers degrade to sources.
	genSvc, err := ai.CreateAndValidateGenerationService(&fileConfig.Generation)
	if err != nil {
		logger.Warn("Generation provider unavailable, answers will be degraded: %v", err)
		genSvc = nil
	}

	indexManager = manager
	askService = services.NewAskService(manager, enc, genSvc, promptStore, indexConfig)
	return nil
}
