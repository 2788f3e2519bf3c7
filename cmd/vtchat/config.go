package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and modify CLI configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path, _ := configPath()
		fmt.Printf("Config file: %s\n\n", path)
		fmt.Println("[default]")
		fmt.Printf("  base_url = %s\n", valueOrDefault(cfg.Default.BaseURL, "(not set)"))
		fmt.Println("\n[auth]")
		fmt.Printf("  username = %s\n", valueOrDefault(cfg.Auth.Username, "(not set)"))
		fmt.Printf("  user_id  = %s\n", valueOrDefault(cfg.Auth.UserID, "(not set)"))
		fmt.Printf("  token    = %s\n", maskToken(cfg.Auth.Token))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value (dot notation, e.g. default.base_url)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("Set %s\n", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
