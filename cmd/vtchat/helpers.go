package main

import (
	"fmt"
	"os"

	voicetranslate "github.com/voicetranslate/voicetranslate-go"
)

// getClient builds a REST client from the stored configuration.
// Exits with a hint when the user has not logged in yet.
func getClient() *voicetranslate.Client {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Auth.Token == "" {
		fmt.Fprintln(os.Stderr, "Error: not logged in")
		fmt.Fprintln(os.Stderr, "Run: vtchat login <username> <password>")
		os.Exit(1)
	}

	var opts []voicetranslate.ClientOption
	if cfg.Default.BaseURL != "" {
		opts = append(opts, voicetranslate.WithBaseURL(cfg.Default.BaseURL))
	}
	client := voicetranslate.NewClient(cfg.Auth.Token, opts...)
	if cfg.Auth.UserID != "" {
		client.SetIdentity(cfg.Auth.UserID)
	}
	return client
}

// maskToken hides all but the last few characters of a token.
func maskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) <= 8 {
		return "****"
	}
	return "****" + token[len(token)-6:]
}

// valueOrDefault returns the value, or the fallback when empty.
func valueOrDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
