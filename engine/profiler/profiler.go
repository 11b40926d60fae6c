package profiler

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-exposure/engine/log"
)

var logger = log.New("profiler")

// Profiler tracks frame rate, per-stage GPU/CPU timings and memory statistics for performance
// monitoring. Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	// stages keeps insertion order so log lines are stable
	stages     []string
	stageTotal map[string]time.Duration
	stageCount map[string]int

	last Report
}

// Report is the summary produced at the end of each interval.
type Report struct {
	FPS float64
	// Stages holds the mean duration of every recorded stage over the interval.
	Stages map[string]time.Duration
	// HeapMB is live heap memory at the time of the report.
	HeapMB float64
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		frameCount:     0,
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
		stageTotal:     make(map[string]time.Duration),
		stageCount:     make(map[string]int),
	}
}

// SetInterval changes how often Tick emits a report.
func (p *Profiler) SetInterval(d time.Duration) {
	if d > 0 {
		p.updateInterval = d
	}
}

// RecordStage adds one sample of a named stage to the current interval.
//
// Parameters:
//   - name: the stage name, e.g. "accumulate"
//   - d: the time spent in the stage this frame
func (p *Profiler) RecordStage(name string, d time.Duration) {
	if _, ok := p.stageTotal[name]; !ok {
		p.stages = append(p.stages, name)
	}
	p.stageTotal[name] += d
	p.stageCount[name]++
}

// Last returns the most recent report, or the zero Report before the first interval elapses.
func (p *Profiler) Last() Report {
	return p.last
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, mean stage timings, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	report := Report{FPS: fps, Stages: make(map[string]time.Duration, len(p.stages)), HeapMB: allocMB}
	var stages strings.Builder
	for _, name := range p.stages {
		if n := p.stageCount[name]; n > 0 {
			mean := p.stageTotal[name] / time.Duration(n)
			report.Stages[name] = mean
			fmt.Fprintf(&stages, " | %s: %s", name, mean.Round(time.Microsecond))
		}
		p.stageTotal[name] = 0
		p.stageCount[name] = 0
	}

	logger.Infof("FPS: %.2f%s | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		fps, stages.String(), allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.last = report
	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
