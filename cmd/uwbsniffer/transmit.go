package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/uwb-sniffer/internal/app"
)

var (
	cmdTransmit = &cobra.Command{
		Use:   "transmit",
		Short: "Send a TX burst (burst count 0 repeats until interrupted)",
		Long:  ``,
		RunE:  runTransmit,
	}
)

var transmitPayload string
var transmitBurst int
var transmitInterval int

func init() {
	rootCmd.AddCommand(cmdTransmit)
	cmdTransmit.Flags().StringVarP(&transmitPayload, "payload", "p", "11223344", "Payload as hex, 2~127 bytes")
	cmdTransmit.Flags().IntVarP(&transmitBurst, "burst", "b", -1, "Burst count, overrides config (0 = continuous)")
	cmdTransmit.Flags().IntVarP(&transmitInterval, "interval", "i", -1, "Interval between frames in us, overrides config")
}

func runTransmit(_ *cobra.Command, _ []string) error {
	payload, err := hex.DecodeString(transmitPayload)
	if err != nil {
		return fmt.Errorf("payload: %w", err)
	}

	ctx, stop := signalContext()
	defer stop()

	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if transmitBurst >= 0 {
		if err := e.params.SetBurstCount(transmitBurst); err != nil {
			return err
		}
	}
	if transmitInterval >= 0 {
		if err := e.params.SetInterval(transmitInterval); err != nil {
			return err
		}
	}

	res, err := app.Transmit(ctx, e.dev, e.params, payload)
	if err != nil {
		return err
	}
	if res != nil {
		e.log.Info("tx result\n" + res.String())
		return nil
	}

	e.log.Info("burst count is 0, transmitting until interrupted")
	<-ctx.Done()
	return app.ResetDevice(context.Background(), e.dev, e.log.With(zap.String("reason", "stop continuous tx")))
}
