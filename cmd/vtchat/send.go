package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	voicetranslate "github.com/voicetranslate/voicetranslate-go"
)

var sendReplyTo string

var sendCmd = &cobra.Command{
	Use:   "send <chat-id> <message>",
	Short: "Send a message to a chat",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chatID, content := args[0], args[1]
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		session := voicetranslate.NewSession(client, nil)
		connected := make(chan struct{})
		session.OnConnected(func() {
			select {
			case connected <- struct{}{}:
			default:
			}
		})

		session.Connect(ctx)
		defer session.Disconnect()

		select {
		case <-connected:
		case <-ctx.Done():
			return fmt.Errorf("could not connect: %w", ctx.Err())
		}

		var opts *voicetranslate.MessageOptions
		if sendReplyTo != "" {
			opts = &voicetranslate.MessageOptions{ReplyToID: sendReplyTo}
		}
		session.OpenChat(chatID)
		session.SendMessage(chatID, content, opts)

		// Fire-and-forget writes: give the frame a moment before closing.
		time.Sleep(500 * time.Millisecond)
		fmt.Println("Sent")
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendReplyTo, "reply-to", "", "message id to reply to")
	rootCmd.AddCommand(sendCmd)
}
