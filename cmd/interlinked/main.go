package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"interlinked/internal/config"
	"interlinked/internal/corpus"
	"interlinked/internal/embedding"
	"interlinked/internal/llm"
	"interlinked/internal/logging"
	"interlinked/internal/router"
	"interlinked/internal/search"
)

var (
	// Global flags
	verbose   bool
	apiKey    string
	workspace string
	timeout   time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "interlinked",
	Short: "interlinked - unified code & issue troubleshooting assistant",
	Long: `interlinked answers natural-language engineering questions by searching
two corpora at once: indexed code entities and historical issue reports.

A vague question triggers a short clarification dialogue; a pasted log or
scenario description is mined for commands and keywords; everything else
is classified and routed to code search, issue lookup, or both. The
results are merged, ranked, and synthesized into a single report.

Run 'interlinked chat' for the interactive dialogue loop.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("category logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (overrides config and env)")
	rootCmd.PersistentFlags().StringVar(&workspace, "workspace", ".", "workspace directory")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "per-request timeout")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(statusCmd)
}

// loadConfig loads the layered config and applies command-line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	return cfg, nil
}

// buildEngine wires the store, embedding engine, and generative client
// into the search engine. Missing credentials degrade rather than fail:
// no API key means keyword-only retrieval and fallback-echo reports.
func buildEngine(cfg config.Config) (*search.Engine, *corpus.Store, error) {
	store, err := corpus.Open(cfg.Store.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open corpus: %w", err)
	}

	if eng, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		TaskType:       cfg.Embedding.TaskType,
	}); err != nil {
		logger.Warn("embedding engine unavailable, using keyword search", zap.Error(err))
	} else {
		store.SetEmbeddingEngine(eng)
	}

	var client llm.Client
	if cfg.LLM.APIKey != "" {
		client = llm.NewGeminiClientWithConfig(llm.GeminiConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: timeout,
		})
	} else {
		logger.Warn("no API key configured, reports degrade to fallback echo")
	}

	synonyms := search.SynonymTable(nil)
	if cfg.Search.SynonymsPath != "" {
		if tbl, err := search.LoadSynonyms(cfg.Search.SynonymsPath); err != nil {
			logger.Warn("synonym table load failed, using defaults", zap.Error(err))
		} else {
			synonyms = tbl
		}
	}

	eng := search.NewEngineFromStore(store, client, synonyms, search.Limits{
		CodeLimit:     cfg.Search.CodeLimit,
		IssueTopK:     cfg.Search.IssueTopK,
		SceneCodeLim:  cfg.Search.CodeLimit,
		SceneIssueTop: cfg.Search.IssueTopK,
	})
	return eng, store, nil
}

// buildRouter puts the clarification dialogue in front of the engine.
func buildRouter(cfg config.Config, eng *search.Engine) *router.Router {
	r := router.New(eng, eng.LLM)
	r.VagueMinLength = cfg.Search.VagueMinLength
	r.FollowupCount = cfg.Search.FollowupCount
	return r
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
