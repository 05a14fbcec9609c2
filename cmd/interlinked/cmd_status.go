package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statusCmd reports corpus and backend health.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus row counts and backend availability",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, store, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		return fmt.Errorf("failed to read corpus stats: %w", err)
	}

	fmt.Printf("Database:       %s\n", cfg.Store.DatabasePath)
	fmt.Printf("Code entities:  %d\n", stats["code_entities"])
	fmt.Printf("Issues:         %d\n", stats["issues"])
	fmt.Printf("sqlite-vec:     %v\n", store.HasVectorExt())
	if eng.LLM != nil {
		fmt.Printf("LLM:            %s\n", cfg.LLM.Model)
	} else {
		fmt.Println("LLM:            not configured (fallback echo mode)")
	}
	return nil
}
