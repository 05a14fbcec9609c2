package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	indexCodeRoot   string
	indexIssuesFile string
)

// indexCmd populates the corpora.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index a code tree and/or an issue export into the corpus",
	Long: `Walks a C-family source tree, extracts function-level entities, embeds
them, and stores them in the code corpus. Issue reports are imported from
a JSONL export, one issue object per line:

  {"issue_id":"FW-101","component":"pmu","title":"...","description":"..."}

Examples:
  interlinked index --code ./firmware/src
  interlinked index --issues ./exports/issues.jsonl`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexCodeRoot, "code", "", "root of the source tree to index")
	indexCmd.Flags().StringVar(&indexIssuesFile, "issues", "", "JSONL file of issue reports to import")
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexCodeRoot == "" && indexIssuesFile == "" {
		return fmt.Errorf("nothing to do: pass --code and/or --issues")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, store, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if indexCodeRoot != "" {
		n, err := store.IndexCodeTree(ctx, indexCodeRoot)
		if err != nil {
			return fmt.Errorf("code indexing failed: %w", err)
		}
		logger.Info("indexed code entities", zap.Int("count", n), zap.String("root", indexCodeRoot))
		fmt.Printf("Indexed %d code entities from %s\n", n, indexCodeRoot)
	}
	if indexIssuesFile != "" {
		n, err := store.IndexIssuesJSONL(ctx, indexIssuesFile)
		if err != nil {
			return fmt.Errorf("issue import failed: %w", err)
		}
		logger.Info("imported issues", zap.Int("count", n), zap.String("file", indexIssuesFile))
		fmt.Printf("Imported %d issues from %s\n", n, indexIssuesFile)
	}
	return nil
}
