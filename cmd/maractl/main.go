// Command maractl drives the Mara core from a terminal: onboarding, daily
// logging, metrics and the Mara conversation, against a local SQLite file.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maralabs/gomara/internal/config"
	"github.com/maralabs/gomara/internal/logger"
	"github.com/maralabs/gomara/internal/store"
	"github.com/maralabs/gomara/pkg/chat"
	"github.com/maralabs/gomara/pkg/genai"
	"github.com/maralabs/gomara/pkg/pattern"
	"github.com/maralabs/gomara/pkg/relay"
)

var (
	storeFlag string
	rootCmd   = &cobra.Command{
		Use:   "maractl",
		Short: "Local relationship journal with the Mara companion",
	}
)

// app bundles the wired core for command handlers.
type app struct {
	cfg   *config.Config
	store *store.SQLiteStore
	chat  *chat.Service
	relay *relay.Relay
}

func openApp() (*app, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	log := logger.New("maractl", cfg.LogLevel)

	dsn := storeFlag
	if dsn == "" {
		if cfg.StorePath != ":memory:" {
			dsn = cfg.StorePath
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			dir := filepath.Join(home, ".mara")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
			dsn = filepath.Join(dir, "mara.db")
		}
	}

	st, err := store.NewSQLiteStoreWithDSN(dsn, log)
	if err != nil {
		return nil, err
	}

	scanner, err := pattern.NewScanner()
	if err != nil {
		st.Close()
		return nil, err
	}

	client := genai.NewClient(genai.Config{
		APIKey:  cfg.GenAIAPIKey,
		Model:   cfg.GenAIModel,
		BaseURL: cfg.GenAIBaseURL,
		Timeout: cfg.GenAITimeout,
	})

	r := relay.New(client, st, scanner, log, func() {
		fmt.Println("(Mara saved a toxic-pattern report to your profile)")
	})

	return &app{
		cfg:   cfg,
		store: st,
		chat:  chat.NewService(st, r, log),
		relay: r,
	}, nil
}

func (a *app) close() {
	_ = a.store.Close()
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&storeFlag, "store", "s", "", "SQLite database path (default ~/.mara/mara.db)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
