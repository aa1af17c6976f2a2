package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var chatRaw bool

// chatCmd sends one message to a sector lead
var chatCmd = &cobra.Command{
	Use:   "chat [sector] [message]",
	Short: "Send OC's message to a sector lead and print the reply",
	Long: `Sends a message to one sector lead. The lead answers with the recent
thread (sweeps excluded) as conversation context, and both the message and
the reply are appended to the sector thread.

Example:
  kabuten chat memory_semis "How exposed are we to HBM pricing?"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatRaw, "raw", false, "Print the reply without markdown rendering")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	key := args[0]
	message := strings.Join(args[1:], " ")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx = a.context(ctx)

	reply, chatErr := a.orch.Chat(ctx, key, message)

	// The inbound message is kept even when the reply fails.
	if _, known := a.orch.Lead(key); known {
		if err := a.persist(key); err != nil {
			logger.Error("Failed to persist thread", zap.String("sector", key), zap.Error(err))
		}
	}
	if chatErr != nil {
		return chatErr
	}

	if chatRaw {
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), renderMarkdown(reply))
	return nil
}
