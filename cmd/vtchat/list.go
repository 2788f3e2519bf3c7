package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List your chats with unread counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		chats, err := client.ListChats(ctx)
		if err != nil {
			return err
		}
		if len(chats) == 0 {
			fmt.Println("No chats")
			return nil
		}
		for _, chat := range chats {
			unread := ""
			if chat.UnreadCount > 0 {
				unread = fmt.Sprintf("  [%d unread]", chat.UnreadCount)
			}
			fmt.Printf("%-36s  %s%s\n", chat.ID, chat.Name, unread)
			if chat.LastMessage != nil {
				fmt.Printf("%-36s    last: %s\n", "", truncate(chat.LastMessage.Content, 60))
			}
		}
		return nil
	},
}

var friendsCmd = &cobra.Command{
	Use:   "friends",
	Short: "List your friends and their presence",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		friends, err := client.ListFriends(ctx)
		if err != nil {
			return err
		}
		if len(friends) == 0 {
			fmt.Println("No friends")
			return nil
		}
		for _, f := range friends {
			status := string(f.Status)
			if status == "" {
				status = "offline"
			}
			fmt.Printf("%-24s  %-10s  %s\n", f.Username, status, f.DisplayName)
		}
		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	rootCmd.AddCommand(chatsCmd)
	rootCmd.AddCommand(friendsCmd)
}
