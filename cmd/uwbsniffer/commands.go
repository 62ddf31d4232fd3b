package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/uwb-sniffer/internal/app"
	cfgpkg "github.com/taoyao-code/uwb-sniffer/internal/config"
	"github.com/taoyao-code/uwb-sniffer/internal/logging"
	"github.com/taoyao-code/uwb-sniffer/internal/metrics"
	"github.com/taoyao-code/uwb-sniffer/internal/protocol/sniffer"
)

var (
	rootCmd = &cobra.Command{
		Use:           "uwbsniffer",
		Short:         "UWB sniffer control over UCI.",
		Long:          ``,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

var configPath string
var simulate bool

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default configs/sniffer.yaml or $UWB_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Use the built-in simulated device instead of the serial port")
}

func Execute() error {
	return rootCmd.Execute()
}

// env 每个子命令共用的运行环境
type env struct {
	cfg     *cfgpkg.Config
	log     *zap.Logger
	metrics *metrics.AppMetrics
	params  *sniffer.Parameters
	dev     *sniffer.Device
	close   func()
}

// setup 加载配置与日志，打开设备并硬复位
func setup(ctx context.Context) (*env, error) {
	cfg, err := cfgpkg.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)

	params, err := app.NewParameters(cfg.Sniffer)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	_, appm := app.NewMetrics()
	dev, closeDev, err := app.OpenDevice(cfg, simulate, logger, appm)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	e := &env{
		cfg:     cfg,
		log:     logger,
		metrics: appm,
		params:  params,
		dev:     dev,
		close: func() {
			_ = closeDev()
			_ = logger.Sync()
		},
	}
	if err := app.ResetDevice(ctx, dev, logger); err != nil {
		e.close()
		return nil, err
	}
	logger.Info("radio parameters", zap.Stringer("params", params))
	return e, nil
}

// signalContext SIGINT/SIGTERM 时取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
