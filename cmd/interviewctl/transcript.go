package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-interview/backend/internal/model/chat"
)

func newTranscriptCmd() *cobra.Command {
	var (
		flags  storeFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "transcript <session-id>",
		Short: "Print the merged transcript of a session",
		Long:  "Reads a session from both the primary and the fallback store, merges the two and prints the messages in order.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscript(cmd, flags, args[0], asJSON)
		},
	}

	cmd.Flags().StringVar(&flags.primaryURL, "primary", "", "primary store URL (default from PRIMARY_STORE_URL or MONGODB_URL)")
	cmd.Flags().StringVar(&flags.fallbackPath, "fallback", "", "fallback log path (default from FALLBACK_STORE_PATH)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print messages as JSON")
	return cmd
}

func runTranscript(cmd *cobra.Command, flags storeFlags, sessionID string, asJSON bool) error {
	cfg, err := loadStoreConfig(flags)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	router, err := openRouter(ctx, cfg)
	if err != nil {
		return err
	}
	defer router.Close(ctx)

	messages, err := router.ReadSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("read session %s: %w", sessionID, err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if messages == nil {
			messages = []chat.Message{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(messages)
	}

	if len(messages) == 0 {
		fmt.Fprintf(out, "No messages for session %s\n", sessionID)
		return nil
	}
	for _, msg := range messages {
		fmt.Fprintf(out, "[%s] %s: %s\n", msg.Timestamp.UTC().Format(time.RFC3339Nano), strings.ToUpper(string(msg.Role)), msg.Content)
	}
	return nil
}
