package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"titletrack/pkg/config"
	"titletrack/pkg/logger"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "titlectl",
	Short:         "Resolve, discover and maintain tracked titles",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		level := cfg.Log.Level
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			level = "debug"
		}
		logger.Init(logger.Options{Out: os.Stderr, Level: level, File: cfg.Log.File})
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	rootCmd.AddCommand(resolveCmd, topCmd, searchCmd, refreshCmd, sweepCmd, tokenCmd, exportCmd, importCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("titlectl")
		stop()
		os.Exit(1)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
