package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"interlinked/internal/search"
)

var (
	askIntent    string
	askCodeLimit int
	askIssueTopK int
	askScene     bool
)

// askCmd answers a single question without the clarification dialogue.
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question against both corpora",
	Long: `Classifies the question, searches the code and issue corpora as the
intent requires, and prints the synthesized report.

The intent can be forced with --intent when the classifier gets it wrong:

  interlinked ask "any similar battery gauge issues?" --intent issue
  interlinked ask "what does aop_sensor_get_data_from_event do" --intent code
  interlinked ask --scene "ran 'kis enable', 'pmu reset' failed. Logs: ..."`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askIntent, "intent", "auto", "force routing: auto, issue, code, mixed, scenario")
	askCmd.Flags().IntVar(&askCodeLimit, "code-limit", 0, "max code hits (0 = config default)")
	askCmd.Flags().IntVar(&askIssueTopK, "issue-topk", 0, "max issue hits (0 = config default)")
	askCmd.Flags().BoolVar(&askScene, "scene", false, "treat the input as a scenario/log text")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, store, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("empty question")
	}

	var answer string
	switch {
	case askScene || askIntent == "scenario":
		answer = eng.HandleLogOrScene(ctx, query)
	case askIntent == "issue":
		answer = search.MakeUnifiedReport(ctx, eng.LLM, eng.RunIssueOnly(ctx, query, askIssueTopK), "", "", nil)
	case askIntent == "code":
		answer = search.MakeUnifiedReport(ctx, eng.LLM, eng.RunCodeOnly(ctx, query, askCodeLimit), "", "", nil)
	case askIntent == "mixed":
		bundle := eng.RunDualSearch(ctx, query, askCodeLimit, askIssueTopK, search.DualOptions{})
		answer = search.MakeUnifiedReport(ctx, eng.LLM, bundle, "", "", nil)
	default:
		answer = eng.HandleNaturalQuery(ctx, query)
	}

	fmt.Println(answer)
	return nil
}
