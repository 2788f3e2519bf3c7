package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	voicetranslate "github.com/voicetranslate/voicetranslate-go"
)

var loginCmd = &cobra.Command{
	Use:   "login <username> <password>",
	Short: "Log in and store the session token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var opts []voicetranslate.ClientOption
		if cfg.Default.BaseURL != "" {
			opts = append(opts, voicetranslate.WithBaseURL(cfg.Default.BaseURL))
		}
		client := voicetranslate.NewClient("", opts...)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		auth, err := client.Login(ctx, args[0], args[1])
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		cfg.Auth.Token = auth.Token
		cfg.Auth.Username = args[0]
		if auth.User != nil {
			cfg.Auth.UserID = auth.User.ID
		}
		if err := saveConfig(cfg); err != nil {
			return err
		}

		if auth.User != nil && auth.User.DisplayName != "" {
			fmt.Printf("Logged in as %s (%s)\n", auth.User.DisplayName, args[0])
		} else {
			fmt.Printf("Logged in as %s\n", args[0])
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Auth = ConfigAuth{}
		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
