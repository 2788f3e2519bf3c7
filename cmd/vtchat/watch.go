package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	voicetranslate "github.com/voicetranslate/voicetranslate-go"
)

var watchVerbose bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Connect to the realtime stream and print events as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Auth.Token == "" {
			return fmt.Errorf("not logged in; run: vtchat login <username> <password>")
		}

		opts := []voicetranslate.ClientOption{}
		if cfg.Default.BaseURL != "" {
			opts = append(opts, voicetranslate.WithBaseURL(cfg.Default.BaseURL))
		}
		if watchVerbose {
			log, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer log.Sync()
			opts = append(opts, voicetranslate.WithLogger(log))
		}
		client := voicetranslate.NewClient(cfg.Auth.Token, opts...)
		client.SetIdentity(cfg.Auth.UserID)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		session := voicetranslate.NewSession(client, nil)
		session.OnConnected(func() {
			fmt.Println("-- connected")
		})
		session.OnDisconnected(func(reason string) {
			fmt.Printf("-- disconnected: %s\n", reason)
		})
		session.OnReconnecting(func(attempt int, delay time.Duration) {
			fmt.Printf("-- reconnecting (attempt %d, in %s)\n", attempt, delay)
		})
		session.OnAny(func(ev voicetranslate.Event) {
			fmt.Printf("%s  %-20s %s\n", time.Now().Format("15:04:05"), ev.Type, ev.Data)
		})

		if err := session.Sync(ctx); err != nil {
			return fmt.Errorf("initial sync failed: %w", err)
		}
		session.Connect(ctx)
		defer session.Disconnect()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		fmt.Println("\nShutting down")
		return nil
	},
}

func init() {
	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(watchCmd)
}
