package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	goutils "github.com/jkaninda/go-utils"

	"github.com/ckaya/ali/internal/config"
	"github.com/ckaya/ali/internal/gateway/cli"
)

var (
	chatConfigPath string
	chatSpeaker    string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to Ali on the local console",
	Long: `Start an interactive conversation on stdin. The local console is
trusted: the speaker defaults to the creator. Use --as to speak as
someone else and see how Ali treats a stranger.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatConfigPath, "config", config.DefaultConfigPath(), "path to config file")
	chatCmd.Flags().StringVar(&chatSpeaker, "as", "", "speak as this name (default: the creator)")
}

func runChat(_ *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg, err := config.Load(goutils.Env("ALI_CONFIG", chatConfigPath))
	if err != nil {
		return err
	}

	sc, err := initShared(cfg, logger)
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	console := cli.NewGateway(sc.Mind, chatSpeaker, logger)
	if err := console.Start(ctx); err != nil {
		return err
	}

	if err := sc.Mind.SaveState(sc.DataDir); err != nil {
		logger.Error("saving state", slog.String("error", err.Error()))
	}
	return nil
}
