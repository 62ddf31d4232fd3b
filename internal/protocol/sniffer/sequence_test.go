package sniffer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerSequence(t *testing.T) {
	p, err := NewParameters(9)
	require.NoError(t, err)

	entries, err := ListenerSequence(p, 5)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	assert.Equal(t, 500.0, entries[0].DelayUs)
	assert.Equal(t, float64(0xFFFFFF), entries[0].TimeoutUs)
	assert.Equal(t, 5500.0, entries[1].DelayUs)
	assert.Equal(t, 9800.0, entries[1].TimeoutUs)
	assert.Equal(t, 35500.0, entries[4].DelayUs)
	for i, e := range entries {
		assert.Equal(t, i, e.PSDUIndex)
		assert.Equal(t, 9, e.PreambleID)
		assert.Equal(t, 0, e.SFDID)
	}

	b, err := EncodeRangingSequence(entries)
	require.NoError(t, err)
	assert.Len(t, b, 5*RangingEntrySize)
}

func TestListenerSequence_Invalid(t *testing.T) {
	p, err := NewParameters(9)
	require.NoError(t, err)

	tests := []struct {
		name   string
		frames int
	}{
		{name: "零帧", frames: 0},
		{name: "超过255帧", frames: 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ListenerSequence(p, tt.frames)
			assert.ErrorIs(t, err, ErrInvalidSequence)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	require.NoError(t, p.SetInterval(200))
	_, err = ListenerSequence(p, 2)
	assert.ErrorIs(t, err, ErrInvalidSequence)

	// 单帧不受间隔约束
	entries, err := ListenerSequence(p, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

const testPlan = `
name: fira-3
preamble_id: 10
sfd_id: 2
entries:
  - {delay_us: 500, timeout_us: 16777215, psdu_index: 0}
  - {delay_us: 5500, timeout_us: 9800, psdu_index: 1}
  - {preamble_id: 12, sfd_id: 0, delay_us: 15500, timeout_us: 9800, psdu_index: 2}
`

func TestParseSequencePlan(t *testing.T) {
	plan, err := ParseSequencePlan([]byte(testPlan))
	require.NoError(t, err)
	assert.Equal(t, "fira-3", plan.Name)
	require.Len(t, plan.Entries, 3)

	// 未写前导码的条目沿用文件级设置
	assert.Equal(t, 10, plan.Entries[0].PreambleID)
	assert.Equal(t, 2, plan.Entries[0].SFDID)
	assert.Equal(t, 12, plan.Entries[2].PreambleID)
	assert.Equal(t, 0, plan.Entries[2].SFDID)
	assert.Equal(t, 5500.0, plan.Entries[1].DelayUs)
}

func TestParseSequencePlan_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "无条目", doc: "name: empty\npreamble_id: 9\n"},
		{name: "前导码越界", doc: "preamble_id: 30\nentries:\n  - {delay_us: 500}\n"},
		{name: "延时越界", doc: "preamble_id: 9\nentries:\n  - {delay_us: 70000}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSequencePlan([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := ParseSequencePlan([]byte("entries: [1, 2"))
	assert.Error(t, err)
}

func TestLoadSequencePlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testPlan), 0o644))

	plan, err := LoadSequencePlan(path)
	require.NoError(t, err)
	assert.Len(t, plan.Entries, 3)

	_, err = LoadSequencePlan(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
