package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickReportsMeanStageTimings(t *testing.T) {
	p := NewProfiler()
	p.SetInterval(time.Hour)

	p.RecordStage("accumulate", 2*time.Millisecond)
	p.RecordStage("apply", time.Millisecond)
	p.RecordStage("accumulate", 4*time.Millisecond)
	assert.False(t, p.Tick())
	assert.Zero(t, p.Last().FPS)

	p.SetInterval(time.Nanosecond)
	time.Sleep(time.Millisecond)
	require.True(t, p.Tick())

	r := p.Last()
	assert.Greater(t, r.FPS, 0.0)
	assert.Equal(t, 3*time.Millisecond, r.Stages["accumulate"])
	assert.Equal(t, time.Millisecond, r.Stages["apply"])

	// stage sums reset with each report
	time.Sleep(time.Millisecond)
	require.True(t, p.Tick())
	assert.Empty(t, p.Last().Stages)
}
