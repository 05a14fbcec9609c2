package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatSessionID string

// chatCmd runs the interactive clarification dialogue loop.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive dialogue with clarification follow-ups",
	Long: `Starts a conversational loop. Vague questions trigger a short round of
clarifying follow-ups before the search runs; pasted logs and scenario
descriptions skip clarification and go straight to extraction.

Commands inside the loop:
  /reset   discard the pending clarification state
  /quit    exit`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "session identifier (default: random)")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, store, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	r := buildRouter(cfg, eng)

	sid := chatSessionID
	if sid == "" {
		sid = uuid.NewString()
	}

	fmt.Printf("interlinked chat (session %s), /quit to exit\n", sid)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			r.Reset(sid)
			fmt.Println("session cleared")
			continue
		}

		fmt.Println(r.RouteUserInput(cmd.Context(), sid, line, false))
	}
	return scanner.Err()
}
