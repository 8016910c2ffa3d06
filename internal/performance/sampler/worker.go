package sampler

import (
	"context"
	"os"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/brightclass/insight/internal/clock"
	perfdomain "github.com/brightclass/insight/internal/performance/domain"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Service   perfdomain.Service
	Collector *Collector
	Clock     clock.Clock `optional:"true"`
	Config    Config      `optional:"true"`
}

// Worker writes one performance sample per interval.
type Worker struct {
	log       *zap.Logger
	service   perfdomain.Service
	collector *Collector
	clock     clock.Clock
	cfg       Config

	lastCPU    time.Duration
	lastSample time.Time
}

func NewWorker(p Params) *Worker {
	cfg := p.Config.withDefaults()
	if cfg.HostID == "" {
		cfg.HostID, _ = os.Hostname()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	w := &Worker{
		log:       p.Log.Named("performance.sampler"),
		service:   p.Service,
		collector: p.Collector,
		clock:     clk,
		cfg:       cfg,
	}
	// Prime the CPU baseline so the first sample reports a real delta.
	w.lastCPU = processCPUTime()
	w.lastSample = clk.Now()
	return w
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("performance sample failed", zap.Error(err))
		}
	}
}

func (w *Worker) RunOnce(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, w.cfg.RunTimeout)
	defer cancel()

	sample := w.buildSample()
	return w.service.RecordSample(ctx, sample)
}

func (w *Worker) buildSample() *perfdomain.Sample {
	now := w.clock.Now()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	memoryUsage := 0.0
	if ms.Sys > 0 {
		memoryUsage = float64(ms.HeapAlloc) / float64(ms.Sys)
	}

	cpu := processCPUTime()
	cpuUsage := 0.0
	if elapsed := now.Sub(w.lastSample); elapsed > 0 {
		cpuUsage = (cpu - w.lastCPU).Seconds() / elapsed.Seconds() / float64(runtime.NumCPU())
		if cpuUsage < 0 {
			cpuUsage = 0
		}
		if cpuUsage > 1 {
			cpuUsage = 1
		}
	}
	w.lastCPU = cpu
	w.lastSample = now

	requests, errCount, avgLatencyMs := w.collector.drain()

	return &perfdomain.Sample{
		OccurredAt:          now,
		HostID:              w.cfg.HostID,
		CPUUsage:            cpuUsage,
		MemoryUsage:         memoryUsage,
		ActiveConnections:   w.collector.ActiveConnections(),
		RequestCount:        requests,
		AverageResponseTime: avgLatencyMs,
		ErrorCount:          errCount,
		Details: datatypes.JSONMap{
			"goroutines":  runtime.NumGoroutine(),
			"heap_alloc":  ms.HeapAlloc,
			"gc_cycles":   ms.NumGC,
			"gc_pause_ns": ms.PauseTotalNs,
		},
	}
}

// processCPUTime returns user plus system CPU time consumed by this
// process so far.
func processCPUTime() time.Duration {
	var usage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &usage); err != nil {
		return 0
	}
	return time.Duration(usage.Utime.Nano() + usage.Stime.Nano())
}
