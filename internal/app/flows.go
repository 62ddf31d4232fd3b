package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/taoyao-code/uwb-sniffer/internal/capture"
	"github.com/taoyao-code/uwb-sniffer/internal/protocol/sniffer"
	"github.com/taoyao-code/uwb-sniffer/internal/protocol/uci"
)

// ErrNotAccepted 设备对命令回复了非 OK 状态
var ErrNotAccepted = errors.New("sniffer command not accepted")

func expectOK(op string, out *uci.Outcome, err error) error {
	if err != nil {
		return err
	}
	if out.Status != uci.StatusOK {
		return fmt.Errorf("%w: %s status %s", ErrNotAccepted, op, out.Status)
	}
	return nil
}

// PrepareListen 配置测距应用与 RX 模式，之后可反复 StartRxMode
func PrepareListen(ctx context.Context, dev *sniffer.Device, p *sniffer.Parameters) error {
	out, err := dev.ConfigureRangingApp(ctx, int(p.Channel()), int(p.TxPowerDbm()))
	if err := expectOK("cfg ranging app", out, err); err != nil {
		return err
	}
	out, err = dev.ConfigureRxMode(ctx, int(p.PreambleID()), int(p.SFDID()))
	return expectOK("cfg rx mode", out, err)
}

// Transmit 配置并启动一次 TX 突发。
// burst count 为 0 时设备无限循环发射且不回包，返回 nil 结果，停止需要硬复位。
func Transmit(ctx context.Context, dev *sniffer.Device, p *sniffer.Parameters, payload []byte) (*sniffer.TxResult, error) {
	out, err := dev.ConfigureRangingApp(ctx, int(p.Channel()), int(p.TxPowerDbm()))
	if err := expectOK("cfg ranging app", out, err); err != nil {
		return nil, err
	}
	out, err = dev.ConfigureTxMode(ctx, int(p.PreambleID()), int(p.SFDID()),
		int(p.BurstCount()), int(p.IntervalUs()))
	if err := expectOK("cfg tx mode", out, err); err != nil {
		return nil, err
	}
	out, err = dev.StartTxMode(ctx, payload)
	if err != nil || out == nil {
		return nil, err
	}
	res, ok := sniffer.ResultAs[*sniffer.TxResult](out)
	if !ok {
		return nil, fmt.Errorf("%w: start tx status %s", ErrNotAccepted, out.Status)
	}
	return res, nil
}

// SequenceReport 一次测距序列的全部结果
type SequenceReport struct {
	Status   *sniffer.RangingStatusResult
	Result   *sniffer.RangingResult
	Payloads []*sniffer.PayloadResult
	Record   *capture.Record
}

// RunSequence 下发测距序列并启动，随后读取窗口状态、时间戳差与各帧载荷，
// 汇总为一条记录写入 sink。sink 可为 nil。
func RunSequence(ctx context.Context, dev *sniffer.Device, p *sniffer.Parameters, entries []sniffer.RangingEntry,
	run *capture.Run, sink capture.Sink, logger *zap.Logger,
) (*SequenceReport, error) {
	out, err := dev.ConfigureRangingApp(ctx, int(p.Channel()), int(p.TxPowerDbm()))
	if err := expectOK("cfg ranging app", out, err); err != nil {
		return nil, err
	}
	out, err = dev.ConfigureRangingSequence(ctx, entries)
	if err := expectOK("cfg ranging seq", out, err); err != nil {
		return nil, err
	}
	out, err = dev.StartRanging(ctx)
	if err := expectOK("start ranging", out, err); err != nil {
		return nil, err
	}
	logger.Info("ranging sequence finished", zap.Int("frames", len(entries)))

	rep := &SequenceReport{}
	out, err = dev.GetRangingStatus(ctx)
	if err != nil {
		return nil, err
	}
	st, ok := sniffer.ResultAs[*sniffer.RangingStatusResult](out)
	if !ok {
		return nil, fmt.Errorf("%w: get ranging status %s", ErrNotAccepted, out.Status)
	}
	rep.Status = st

	out, err = dev.GetRangingResult(ctx)
	if err != nil {
		return nil, err
	}
	if res, ok := sniffer.ResultAs[*sniffer.RangingResult](out); ok {
		rep.Result = res
	} else {
		logger.Warn("ranging result unavailable", zap.Stringer("status", out.Status))
	}

	var payloads [][]byte
	for i := range entries {
		out, err := dev.GetPayload(ctx, i)
		if err != nil {
			return nil, err
		}
		pr, ok := sniffer.ResultAs[*sniffer.PayloadResult](out)
		if !ok {
			logger.Debug("no payload for frame", zap.Int("index", i), zap.Stringer("status", out.Status))
			continue
		}
		rep.Payloads = append(rep.Payloads, pr)
		payloads = append(payloads, pr.Payload)
	}

	if run != nil {
		rep.Record = run.FromRanging(st, rep.Result, payloads)
		if sink != nil && rep.Record != nil {
			// 写入失败只记录，结果仍返回给调用方
			if err := sink.Write(ctx, rep.Record); err != nil {
				logger.Warn("store ranging record failed", zap.Error(err))
			}
		}
	}
	return rep, nil
}

// SequenceEntries 有序列文件时按文件加载，否则按参数生成监听序列
func SequenceEntries(p *sniffer.Parameters, planPath string) ([]sniffer.RangingEntry, error) {
	if planPath == "" {
		return sniffer.ListenerSequence(p, int(p.BurstCount()))
	}
	plan, err := sniffer.LoadSequencePlan(planPath)
	if err != nil {
		return nil, err
	}
	return plan.Entries, nil
}
