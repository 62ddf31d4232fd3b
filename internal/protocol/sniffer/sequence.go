package sniffer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// 首个窗口在启动后 500us 打开，等待上限为射频最大超时
	firstWindowDelayUs = 500
	// 后续窗口比发射间隔提前关闭的余量
	windowGuardUs = 200
)

// ListenerSequence 按发射端参数生成监听序列：每帧一个接收窗口。
// 第 0 帧：delay=500, timeout=0xFFFFFF；第 i 帧：delay=(i-0.5)*interval+500, timeout=interval-200
func ListenerSequence(p *Parameters, frames int) ([]RangingEntry, error) {
	if frames <= 0 || frames > 0xFF {
		return nil, fmt.Errorf("%w: %d frames", ErrInvalidSequence, frames)
	}
	interval := float64(p.IntervalUs())
	if frames > 1 && interval <= windowGuardUs {
		return nil, fmt.Errorf("%w: interval %d us too short for %d frames", ErrInvalidSequence, p.IntervalUs(), frames)
	}
	entries := make([]RangingEntry, frames)
	for i := range entries {
		e := RangingEntry{
			PreambleID: int(p.PreambleID()),
			SFDID:      int(p.SFDID()),
			PSDUIndex:  i,
		}
		if i == 0 {
			e.DelayUs = firstWindowDelayUs
			e.TimeoutUs = maxRadioTimeout
		} else {
			e.DelayUs = (float64(i)-0.5)*interval + firstWindowDelayUs
			e.TimeoutUs = interval - windowGuardUs
		}
		entries[i] = e
	}
	return entries, nil
}

// SequencePlan 从 YAML 加载的测距序列
//
//	name: fira-5
//	preamble_id: 9
//	sfd_id: 0
//	entries:
//	  - {delay_us: 500, timeout_us: 16777215, psdu_index: 0}
//	  - {delay_us: 5500, timeout_us: 9800, psdu_index: 1}
type SequencePlan struct {
	Name       string         `yaml:"name"`
	PreambleID int            `yaml:"preamble_id"`
	SFDID      int            `yaml:"sfd_id"`
	Entries    []RangingEntry `yaml:"entries"`
}

// LoadSequencePlan 读取并校验序列文件；条目未写 preamble_id 时沿用文件级设置
func LoadSequencePlan(path string) (*SequencePlan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sequence plan: %w", err)
	}
	return ParseSequencePlan(b)
}

// ParseSequencePlan 解析 YAML 序列
func ParseSequencePlan(b []byte) (*SequencePlan, error) {
	var plan SequencePlan
	if err := yaml.Unmarshal(b, &plan); err != nil {
		return nil, fmt.Errorf("unmarshal sequence plan: %w", err)
	}
	for i := range plan.Entries {
		if plan.Entries[i].PreambleID == 0 {
			plan.Entries[i].PreambleID = plan.PreambleID
			plan.Entries[i].SFDID = plan.SFDID
		}
	}
	if _, err := EncodeRangingSequence(plan.Entries); err != nil {
		return nil, err
	}
	return &plan, nil
}
