package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/uwb-sniffer/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/uwb-sniffer/internal/config"
	"github.com/taoyao-code/uwb-sniffer/internal/logging"
)

var (
	cmdServe = &cobra.Command{
		Use:   "serve",
		Short: "Listen continuously and expose captures, health and metrics over HTTP",
		Long:  ``,
		RunE:  runServe,
	}
)

func init() {
	rootCmd.AddCommand(cmdServe)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := cfgpkg.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signalContext()
	defer stop()
	return bootstrap.Run(ctx, cfg, logger, simulate)
}
