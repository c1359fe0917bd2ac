// Command logpump pumps framed messages through a shared log buffer: a
// producer goroutine appends frames while a pinned consumer thread scans
// them, with a timer wheel driving progress reports and an idle timeout on
// the same duty cycle.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	aeron "github.com/l2ex/aeron-go"
	"github.com/l2ex/aeron-go/agent"
	"github.com/l2ex/aeron-go/idle"
	"github.com/l2ex/aeron-go/internal/logging"
	"github.com/l2ex/aeron-go/logbuffer"
	"github.com/l2ex/aeron-go/memmap"
	"github.com/l2ex/aeron-go/timerwheel"
)

func main() {
	var (
		capacity   = flag.Int("capacity", 1<<20, "Log buffer capacity in bytes (multiple of 32)")
		frames     = flag.Int("frames", 10000, "Number of frames to append")
		payload    = flag.Int("payload", 256, "Payload bytes per frame")
		limit      = flag.Int("limit", 64*1024, "Max batch bytes per scan")
		idleName   = flag.String("idle", "backoff", "Idle strategy: busy, yield, sleep, backoff, controllable")
		idleStatus = flag.Int64("idle-status", idle.NotControlled, "Initial status value for the controllable strategy")
		verbose    = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	status := &atomic.Int64{}
	status.Store(*idleStatus)
	idler, err := makeIdler(*idleName, status)
	if err != nil {
		log.Fatalf("invalid idle strategy: %v", err)
	}

	logRegion, err := memmap.MapAnon(*capacity)
	if err != nil {
		logger.Error("failed to map log buffer", "error", err)
		os.Exit(1)
	}
	defer logRegion.Close()

	stateRegion, err := memmap.MapAnon(logbuffer.StateBufferLength)
	if err != nil {
		logger.Error("failed to map state buffer", "error", err)
		os.Exit(1)
	}
	defer stateRegion.Close()

	logBuffer := logbuffer.MakeBuffer(logRegion.Bytes())
	stateBuffer := logbuffer.MakeBuffer(stateRegion.Bytes())

	appender, err := logbuffer.NewAppender(logBuffer, stateBuffer, logbuffer.DefaultHeaderLength)
	if err != nil {
		logger.Error("failed to create appender", "error", err)
		os.Exit(1)
	}
	scanner, err := logbuffer.NewScanner(logBuffer, stateBuffer, logbuffer.DefaultHeaderLength)
	if err != nil {
		logger.Error("failed to create scanner", "error", err)
		os.Exit(1)
	}
	wheel, err := timerwheel.NewWheel(time.Millisecond, 1024)
	if err != nil {
		logger.Error("failed to create timer wheel", "error", err)
		os.Exit(1)
	}

	metrics := aeron.NewMetrics()
	observer := aeron.NewMetricsObserver(metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pump := newPumpAgent(scanner, wheel, metrics, observer, logger, int32(*limit), cancel)

	runner, err := agent.NewRunner(ctx, agent.Config{
		Agent:    pump,
		Idler:    idler,
		Logger:   logger,
		Observer: observer,
	})
	if err != nil {
		logger.Error("failed to create runner", "error", err)
		os.Exit(1)
	}

	logger.Info("pumping", "capacity", *capacity, "frames", *frames, "payload", *payload, "idle", *idleName)

	go produce(appender, *frames, *payload, logger)

	if err := runner.Start(); err != nil {
		logger.Error("failed to start consumer", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("signal received, stopping", "signal", sig)
		cancel()
	case <-ctx.Done():
	}
	runner.Stop()
	metrics.Stop()

	snap := metrics.Snapshot()
	fmt.Printf("frames=%d bytes=%d batches=%d padding=%d maxBatch=%d\n",
		snap.FramesScanned, snap.BytesScanned, snap.BatchesEmitted,
		snap.PaddingBytes, snap.MaxBatchLength)
	fmt.Printf("ticks=%d expired=%d dutyCycles=%d idleRatio=%.2f rate=%.0f frames/s\n",
		snap.TicksProcessed, snap.TimersExpired, snap.DutyCycles,
		snap.IdleRatio, snap.FramesPerSecond)
}

// produce appends frames until the requested count is reached or the log
// fills up. Only a full log gets its remainder padded (by the appender), which
// lets the scanner run to completion; when the count is reached first the
// remainder stays unwritten and the consumer stops on its idle timeout.
func produce(appender *logbuffer.Appender, frames, payload int, logger *logging.Logger) {
	buf := make([]byte, payload)
	for i := range buf {
		buf[i] = byte(i)
	}

	for i := 0; i < frames; i++ {
		if _, err := appender.AppendFrame(buf); err != nil {
			logger.Info("log full", "appended", i)
			return
		}
	}
	logger.Debug("producer done", "appended", frames)
}

// pumpAgent is the consumer duty cycle: scan a batch, expire due timers.
type pumpAgent struct {
	scanner  *logbuffer.Scanner
	wheel    *timerwheel.Wheel
	metrics  *aeron.Metrics
	observer aeron.Observer
	logger   *logging.Logger
	limit    int32
	cancel   context.CancelFunc

	frames    uint64
	bytes     uint64
	idleTimer *timerwheel.Timer
}

func newPumpAgent(scanner *logbuffer.Scanner, wheel *timerwheel.Wheel,
	metrics *aeron.Metrics, observer aeron.Observer, logger *logging.Logger,
	limit int32, cancel context.CancelFunc) *pumpAgent {

	p := &pumpAgent{
		scanner:  scanner,
		wheel:    wheel,
		metrics:  metrics,
		observer: observer,
		logger:   logger,
		limit:    limit,
		cancel:   cancel,
	}
	p.scheduleProgress()
	p.armIdleTimeout()
	return p
}

// scheduleProgress arms a periodic progress report that reschedules itself.
func (p *pumpAgent) scheduleProgress() {
	p.metrics.RecordTimerScheduled()
	p.wheel.NewTimeout(100*time.Millisecond, func() {
		p.logger.Debug("progress", "frames", p.frames, "bytes", p.bytes, "offset", p.scanner.Offset())
		p.scheduleProgress()
	})
}

// armIdleTimeout (re)arms the session-idle timeout. Each productive scan
// cancels and re-arms it; firing shuts the pump down.
func (p *pumpAgent) armIdleTimeout() {
	if p.idleTimer != nil {
		p.idleTimer.Cancel()
		p.metrics.RecordTimerCancelled()
	}
	p.metrics.RecordTimerScheduled()
	p.idleTimer = p.wheel.NewTimeout(time.Second, func() {
		p.logger.Info("idle timeout, shutting down", "frames", p.frames, "bytes", p.bytes)
		p.cancel()
	})
}

func (p *pumpAgent) DoWork() (int, error) {
	workCount := 0

	var batchLength int32
	before := p.scanner.Offset()
	frames := p.scanner.ScanNext(p.limit, func(offset, length int32) {
		batchLength = length
		p.bytes += uint64(length)
	})
	if frames > 0 {
		padding := (p.scanner.Offset() - before) - batchLength
		p.observer.ObserveScan(frames, uint32(batchLength), uint32(padding))
		p.frames += uint64(frames)
		workCount += frames
		p.armIdleTimeout()
	}

	if p.wheel.CalculateDelayInMs() <= 0 {
		expired := p.wheel.ExpireTimers()
		p.observer.ObserveTick(expired)
		workCount += expired
	}

	if p.scanner.IsComplete() {
		p.logger.Info("scan complete", "frames", p.frames, "bytes", p.bytes)
		p.cancel()
	}

	return workCount, nil
}

func (p *pumpAgent) OnClose() {
	if p.idleTimer != nil {
		p.idleTimer.Cancel()
	}
}

func (p *pumpAgent) RoleName() string {
	return "logpump"
}

func makeIdler(name string, status *atomic.Int64) (idle.Strategy, error) {
	switch name {
	case "busy":
		return idle.Busy{}, nil
	case "yield":
		return idle.Yielding{}, nil
	case "sleep":
		return idle.Sleeping{Period: time.Millisecond}, nil
	case "backoff":
		return idle.NewBackoff(100, 10, 10*time.Microsecond, time.Millisecond), nil
	case "controllable":
		fallback := idle.NewBackoff(100, 10, 10*time.Microsecond, time.Millisecond)
		return idle.NewControllable(status, fallback, time.Millisecond), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}
