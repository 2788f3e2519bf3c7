package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and verify the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Println("Configuration")
		fmt.Printf("  Base URL:  %s\n", valueOrDefault(cfg.Default.BaseURL, "(default)"))
		fmt.Printf("  Username:  %s\n", valueOrDefault(cfg.Auth.Username, "(not set)"))
		fmt.Printf("  Token:     %s\n", maskToken(cfg.Auth.Token))

		if cfg.Auth.Token == "" {
			fmt.Println("\nNot logged in. Run: vtchat login <username> <password>")
			return nil
		}

		client := getClient()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		me, err := client.Me(ctx)
		if err != nil {
			fmt.Printf("\nToken check failed: %v\n", err)
			return nil
		}
		fmt.Println("\nServer")
		fmt.Printf("  User:      %s (%s)\n", me.DisplayName, me.Username)
		fmt.Printf("  User ID:   %s\n", me.ID)
		if me.PreferredLanguage != "" {
			fmt.Printf("  Language:  %s\n", me.PreferredLanguage)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
