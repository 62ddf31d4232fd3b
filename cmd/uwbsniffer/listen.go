package main

import (
	"context"
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/uwb-sniffer/internal/app"
	"github.com/taoyao-code/uwb-sniffer/internal/capture"
	"github.com/taoyao-code/uwb-sniffer/internal/protocol/sniffer"
)

var (
	cmdListen = &cobra.Command{
		Use:   "listen",
		Short: "Receive frames in RX mode until interrupted",
		Long:  ``,
		RunE:  runListen,
	}
)

var listenCount int64
var listenPersist bool

func init() {
	rootCmd.AddCommand(cmdListen)
	cmdListen.Flags().Int64VarP(&listenCount, "count", "n", 0, "Stop after this many received frames (0 = until interrupted)")
	cmdListen.Flags().BoolVar(&listenPersist, "persist", false, "Also write captures to the configured database and redis stream")
}

func runListen(_ *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	sinks, cleanup, err := buildSinks(ctx, e)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := app.PrepareListen(ctx, e.dev, e.params); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var got atomic.Int64

	run := capture.NewRun(e.params)
	run.Sniffer = app.GenerateSnifferID()
	l := app.NewListener(e.cfg.Sniffer, e.dev, run, sinks.Fanout, e.log, e.metrics)
	l.OnResult = func(res *sniffer.RxResult) {
		e.log.Info("rx result\n" + res.String())
		if res.OK() && listenCount > 0 && got.Add(1) >= listenCount {
			cancel()
		}
	}

	e.log.Info("sniffer listener started", zap.String("run_id", run.ID.String()))
	err = l.Run(ctx)

	// 正在进行的接收由复位结束
	if rerr := app.ResetDevice(context.Background(), e.dev, e.log); rerr != nil {
		e.log.Warn("reset after listen failed", zap.Error(rerr))
	}
	st := l.Stats()
	e.log.Info("sniffer listener stopped",
		zap.Int64("rearms", st.Rearms), zap.Int64("received", st.Received), zap.Int64("misses", st.Misses))
	return err
}

// buildSinks --persist 时接入数据库与 Redis，否则只用内存缓冲
func buildSinks(ctx context.Context, e *env) (*app.Sinks, func(), error) {
	if !listenPersist {
		return app.BuildSinks(e.cfg.Capture, nil, nil, e.log, e.metrics), func() {}, nil
	}
	pool, repo, err := app.ConnectDB(ctx, e.cfg.Database, e.log)
	if err != nil {
		return nil, nil, err
	}
	rdb, err := app.NewRedisClient(ctx, e.cfg.Redis, e.log)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, nil, err
	}
	cleanup := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		if pool != nil {
			pool.Close()
		}
	}
	if rdb != nil {
		return app.BuildSinks(e.cfg.Capture, repo, app.NewCaptureStream(rdb, e.cfg.Redis), e.log, e.metrics), cleanup, nil
	}
	return app.BuildSinks(e.cfg.Capture, repo, nil, e.log, e.metrics), cleanup, nil
}
