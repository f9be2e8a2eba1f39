package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/wyfcoding/beats/app"
	"github.com/wyfcoding/beats/bootstrap"
	"github.com/wyfcoding/beats/config"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API serving named trees",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bootstrap.New("beats", version)
	if err := b.Initialize(configPath, "serve"); err != nil {
		return err
	}
	if configPath != "" {
		config.Watch(b.Config)
	}

	shutdownTracing := b.SetupTracing(ctx)
	a := app.NewBuilder(b.Config, b.Logger.Logger).
		WithCleanup(shutdownTracing).
		Build()
	return a.Run(ctx)
}
