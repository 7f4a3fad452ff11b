package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"devfeed/internal/app"
	"devfeed/internal/infra/config"
	applog "devfeed/internal/infra/log"
)

var version = "dev"

var rootFlags struct {
	verbose bool
}

var rootCmd = &cobra.Command{
	Use:           "devfeedctl",
	Short:         "Операторский CLI ядра загрузки контента",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootFlags.verbose, "verbose", "v", false, "писать журнал в stdout")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.Version = version
}

// openApp собирает зависимости из окружения. Без --verbose журнал не пишется,
// чтобы вывод команды оставался читаемым.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, fmt.Errorf("конфигурация: %w", err)
	}
	logger := zerolog.Nop()
	if rootFlags.verbose {
		logger = applog.NewLogger(cfg.AppEnv)
	}
	return app.New(ctx, cfg, logger)
}
