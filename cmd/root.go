package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func Start() {
	cfg := newCfg("env")
	slog.SetLogLoggerLevel(slog.Level(cfg.GetInt("log.level")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := &cobra.Command{}
	cmd := []*cobra.Command{
		{
			Use:   "serve-http",
			Short: "Run HTTP server",
			Run: func(cmd *cobra.Command, args []string) {
				runHttpServerCmd(ctx)
			},
		},
		{
			Use:   "serve-queue:purchase",
			Short: "Run queue purchase server",
			Run: func(cmd *cobra.Command, args []string) {
				runQueuePurchaseCmd(ctx)
			},
		},
		{
			Use:   "serve-queue:notify",
			Short: "Run queue notify server",
			Run: func(cmd *cobra.Command, args []string) {
				runQueueNotifyCmd(ctx)
			},
		},
		{
			Use:   "expire",
			Short: "Run purchase expiration client",
			Run: func(cmd *cobra.Command, args []string) {
				runExpireCmd(ctx)
			},
		},
		{
			Use:   "dev",
			Short: "Run dev server, for testing purpose",
			Run: func(cmd *cobra.Command, args []string) {
				runHttpServerCmd(ctx)
			},
			PreRun: func(cmd *cobra.Command, args []string) {
				go func() {
					runQueuePurchaseCmd(ctx)
				}()
				go func() {
					runQueueNotifyCmd(ctx)
				}()
				go func() {
					runExpireCmd(ctx)
				}()
			},
		},
	}

	rootCmd.AddCommand(cmd...)
	if err := rootCmd.Execute(); err != nil {
		log.Fatalln(err)
	}
}
