package engine

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-exposure/common"
	"github.com/Carmen-Shannon/oxy-exposure/engine/auto_exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
	"github.com/Carmen-Shannon/oxy-exposure/engine/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSoftwarePass(t *testing.T) auto_exposure.AutoExposure {
	t.Helper()
	ae, err := auto_exposure.NewAutoExposure(auto_exposure.WithBackend(auto_exposure.BackendTypeSoftware), auto_exposure.WithWorkers(2))
	require.NoError(t, err)
	t.Cleanup(ae.Release)
	return ae
}

func TestHeadlessRunStopsAfterMaxFrames(t *testing.T) {
	src, err := source.NewStaticSource(common.NewUniformColorImage(16, 16, 0.5))
	require.NoError(t, err)
	ae := newSoftwarePass(t)

	var trace []auto_exposure.FrameStats
	e := NewEngine(
		WithSource(src),
		WithAutoExposure(ae),
		WithFixedDeltaTime(1.0/30),
		WithMaxFrames(45),
		WithFrameCallback(func(stats auto_exposure.FrameStats, img *common.ColorImage) {
			trace = append(trace, stats)
			assert.InDelta(t, common.Clamp(0.5*stats.Exposure(), 0, 1), img.At(3, 3)[0], 1e-6)
		}),
	)
	require.NoError(t, e.Run())

	require.Len(t, trace, 45)
	assert.Equal(t, uint64(45), ae.Frames())
	assert.Equal(t, 45, src.Frames())
	for i := 1; i < len(trace); i++ {
		assert.LessOrEqual(t, trace[i].Exposure(), trace[i-1].Exposure())
	}
	assert.Less(t, trace[44].Exposure(), trace[0].Exposure())
}

func TestPausedEngineHoldsExposure(t *testing.T) {
	src, err := source.NewStaticSource(common.NewUniformColorImage(8, 8, 4))
	require.NoError(t, err)

	var last auto_exposure.FrameStats
	e := NewEngine(
		WithSource(src),
		WithAutoExposure(newSoftwarePass(t)),
		WithFixedDeltaTime(0.1),
		WithMaxFrames(5),
		WithFrameCallback(func(stats auto_exposure.FrameStats, _ *common.ColorImage) { last = stats }),
	)
	e.SetPaused(true)
	require.True(t, e.Paused())
	require.NoError(t, e.Run())

	assert.Equal(t, float32(0), last.EV())
	assert.Equal(t, float32(1), last.Exposure())
}

func TestRunSurfacesFirstFrameError(t *testing.T) {
	s := exposure.DefaultSettings()
	s.Metering = exposure.MeteringMask
	ae, err := auto_exposure.NewAutoExposure(auto_exposure.WithBackend(auto_exposure.BackendTypeSoftware), auto_exposure.WithSettings(s))
	require.NoError(t, err)
	defer ae.Release()

	src, err := source.NewStaticSource(common.NewUniformColorImage(8, 8, 1))
	require.NoError(t, err)

	calls := 0
	e := NewEngine(WithSource(src), WithAutoExposure(ae), WithFrameCallback(func(auto_exposure.FrameStats, *common.ColorImage) { calls++ }))
	err = e.Run()
	assert.ErrorIs(t, err, exposure.ErrInvalidFrame)
	assert.Zero(t, calls)
}

func TestRunRecoversFromPanics(t *testing.T) {
	src, err := source.NewStaticSource(common.NewUniformColorImage(4, 4, 1))
	require.NoError(t, err)

	e := NewEngine(WithSource(src), WithAutoExposure(newSoftwarePass(t)), WithFrameCallback(func(auto_exposure.FrameStats, *common.ColorImage) {
		panic("boom")
	}))
	err = e.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRunNeedsSourceAndPass(t *testing.T) {
	err := NewEngine().Run()
	assert.True(t, errors.Is(err, exposure.ErrNotInitialized))
}

func TestQuitStopsUnboundedRun(t *testing.T) {
	src, err := source.NewStaticSource(common.NewUniformColorImage(4, 4, 1))
	require.NoError(t, err)

	var e Engine
	e = NewEngine(WithSource(src), WithAutoExposure(newSoftwarePass(t)), WithFrameCallback(func(auto_exposure.FrameStats, *common.ColorImage) {
		if e.AutoExposure().Frames() == 10 {
			e.Quit()
		}
	}))
	require.NoError(t, e.Run())
	assert.Equal(t, uint64(10), e.AutoExposure().Frames())
	e.Quit()
}

func TestSetSourceSwapsScene(t *testing.T) {
	dark, err := source.NewStaticSource(common.NewUniformColorImage(8, 8, 0.01))
	require.NoError(t, err)
	bright, err := source.NewStaticSource(common.NewUniformColorImage(8, 8, 8))
	require.NoError(t, err)

	var e Engine
	var metered []float32
	e = NewEngine(WithSource(dark), WithAutoExposure(newSoftwarePass(t)), WithFixedDeltaTime(0.1), WithMaxFrames(4),
		WithFrameCallback(func(stats auto_exposure.FrameStats, _ *common.ColorImage) {
			metered = append(metered, stats.AverageLuminance)
			if stats.Frame == 2 {
				e.SetSource(bright)
			}
		}))
	e.SetSource(nil)
	require.NoError(t, e.Run())

	require.Len(t, metered, 4)
	assert.InDelta(t, 0.01, metered[1], 1e-4)
	assert.InDelta(t, 8, metered[2], 1e-3)
	assert.Equal(t, 2, bright.Frames())
}
