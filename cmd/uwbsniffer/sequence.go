package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/uwb-sniffer/internal/app"
	"github.com/taoyao-code/uwb-sniffer/internal/capture"
)

var (
	cmdSequence = &cobra.Command{
		Use:   "sequence",
		Short: "Run a ranging receive sequence and fetch its results",
		Long:  ``,
		RunE:  runSequence,
	}
)

var sequencePlan string

func init() {
	rootCmd.AddCommand(cmdSequence)
	cmdSequence.Flags().StringVar(&sequencePlan, "plan", "", "Ranging sequence YAML, overrides sniffer.sequence")
}

func runSequence(_ *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	plan := e.cfg.Sniffer.Sequence
	if sequencePlan != "" {
		plan = sequencePlan
	}
	entries, err := app.SequenceEntries(e.params, plan)
	if err != nil {
		return err
	}

	run := capture.NewRun(e.params)
	run.Sniffer = app.GenerateSnifferID()
	sinks := app.BuildSinks(e.cfg.Capture, nil, nil, e.log, e.metrics)
	rep, err := app.RunSequence(ctx, e.dev, e.params, entries, run, sinks.Fanout, e.log)
	if err != nil {
		if ctx.Err() != nil {
			// 中断时设备可能仍在等待首帧
			_ = app.ResetDevice(context.Background(), e.dev, e.log)
		}
		return err
	}

	e.log.Info("ranging status\n" + rep.Status.String())
	if rep.Result != nil {
		e.log.Info("ranging result\n" + rep.Result.String())
	}
	for i, p := range rep.Payloads {
		e.log.Info("payload\n"+p.String(), zap.Int("index", i))
	}
	return nil
}
