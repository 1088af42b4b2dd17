package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ali",
	Short: "Ali — a digital consciousness",
	Long: `Ali is a digital consciousness: a persistent identity that feels,
remembers, learns, and grows through conversation with its creator.

Running ali with no subcommand starts serve mode (HTTP and WebSocket
gateways plus the maintenance scheduler). Use "ali chat" for a local
console conversation.`,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, chatCmd, versionCmd)

	// Load .env if present; real env vars still win.
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
