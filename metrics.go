package aeron

import (
	"sync/atomic"
	"time"
)

// Metrics tracks operational statistics for scanners and timer wheels.
// All counters are safe for concurrent update.
type Metrics struct {
	// Scanner counters
	FramesScanned  atomic.Uint64 // Total frames reported by ScanNext
	BytesScanned   atomic.Uint64 // Total bytes handed to availability handlers
	BatchesEmitted atomic.Uint64 // Total handler invocations
	PaddingBytes   atomic.Uint64 // Total padding bytes skipped
	MaxBatchLength atomic.Uint32 // Largest single batch in bytes

	// Timer wheel counters
	TimersScheduled atomic.Uint64 // Total NewTimeout calls
	TimersCancelled atomic.Uint64 // Total effective cancellations
	TimersExpired   atomic.Uint64 // Total tasks fired
	TicksProcessed  atomic.Uint64 // Total ExpireTimers calls

	// Duty cycle
	DutyCycles atomic.Uint64 // Total agent work loop iterations
	IdleCycles atomic.Uint64 // Iterations that found no work

	// Lifecycle
	StartTime atomic.Int64 // Start timestamp (UnixNano)
	StopTime  atomic.Int64 // Stop timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordScan records one ScanNext outcome
func (m *Metrics) RecordScan(frames int, bytes, padding uint32) {
	if frames == 0 {
		return
	}
	m.FramesScanned.Add(uint64(frames))
	m.BytesScanned.Add(uint64(bytes))
	m.PaddingBytes.Add(uint64(padding))
	m.BatchesEmitted.Add(1)

	for {
		current := m.MaxBatchLength.Load()
		if bytes <= current {
			break
		}
		if m.MaxBatchLength.CompareAndSwap(current, bytes) {
			break
		}
	}
}

// RecordTimerScheduled records one NewTimeout call
func (m *Metrics) RecordTimerScheduled() {
	m.TimersScheduled.Add(1)
}

// RecordTimerCancelled records one effective cancellation
func (m *Metrics) RecordTimerCancelled() {
	m.TimersCancelled.Add(1)
}

// RecordTick records one ExpireTimers pass and the number of tasks it fired
func (m *Metrics) RecordTick(expired int) {
	m.TicksProcessed.Add(1)
	if expired > 0 {
		m.TimersExpired.Add(uint64(expired))
	}
}

// RecordDutyCycle records one agent loop iteration and its work count
func (m *Metrics) RecordDutyCycle(workCount int) {
	m.DutyCycles.Add(1)
	if workCount == 0 {
		m.IdleCycles.Add(1)
	}
}

// Stop marks the owner as stopped
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of the counters with derived rates
type MetricsSnapshot struct {
	FramesScanned  uint64
	BytesScanned   uint64
	BatchesEmitted uint64
	PaddingBytes   uint64
	MaxBatchLength uint32

	TimersScheduled uint64
	TimersCancelled uint64
	TimersExpired   uint64
	TicksProcessed  uint64

	DutyCycles uint64
	IdleCycles uint64

	UptimeNs uint64

	// Derived
	FramesPerSecond float64
	BytesPerSecond  float64
	AvgBatchFrames  float64
	IdleRatio       float64 // Fraction of duty cycles that found no work
}

// Snapshot creates a point-in-time snapshot of metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		FramesScanned:   m.FramesScanned.Load(),
		BytesScanned:    m.BytesScanned.Load(),
		BatchesEmitted:  m.BatchesEmitted.Load(),
		PaddingBytes:    m.PaddingBytes.Load(),
		MaxBatchLength:  m.MaxBatchLength.Load(),
		TimersScheduled: m.TimersScheduled.Load(),
		TimersCancelled: m.TimersCancelled.Load(),
		TimersExpired:   m.TimersExpired.Load(),
		TicksProcessed:  m.TicksProcessed.Load(),
		DutyCycles:      m.DutyCycles.Load(),
		IdleCycles:      m.IdleCycles.Load(),
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.FramesPerSecond = float64(snap.FramesScanned) / uptimeSeconds
		snap.BytesPerSecond = float64(snap.BytesScanned) / uptimeSeconds
	}
	if snap.BatchesEmitted > 0 {
		snap.AvgBatchFrames = float64(snap.FramesScanned) / float64(snap.BatchesEmitted)
	}
	if snap.DutyCycles > 0 {
		snap.IdleRatio = float64(snap.IdleCycles) / float64(snap.DutyCycles)
	}

	return snap
}

// Reset resets all metrics counters (useful for testing)
func (m *Metrics) Reset() {
	m.FramesScanned.Store(0)
	m.BytesScanned.Store(0)
	m.BatchesEmitted.Store(0)
	m.PaddingBytes.Store(0)
	m.MaxBatchLength.Store(0)
	m.TimersScheduled.Store(0)
	m.TimersCancelled.Store(0)
	m.TimersExpired.Store(0)
	m.TicksProcessed.Store(0)
	m.DutyCycles.Store(0)
	m.IdleCycles.Store(0)
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection.
// Implementations must be thread-safe as methods are called from duty-cycle loops.
type Observer interface {
	// ObserveScan is called for each ScanNext that emitted a batch
	ObserveScan(frames int, bytes, padding uint32)

	// ObserveTick is called for each ExpireTimers pass
	ObserveTick(expired int)

	// ObserveDutyCycle is called once per agent loop iteration
	ObserveDutyCycle(workCount int)
}

// NoOpObserver is a no-op implementation of Observer
type NoOpObserver struct{}

func (NoOpObserver) ObserveScan(int, uint32, uint32) {}
func (NoOpObserver) ObserveTick(int)                 {}
func (NoOpObserver) ObserveDutyCycle(int)            {}

// MetricsObserver implements Observer using the built-in Metrics
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveScan(frames int, bytes, padding uint32) {
	o.metrics.RecordScan(frames, bytes, padding)
}

func (o *MetricsObserver) ObserveTick(expired int) {
	o.metrics.RecordTick(expired)
}

func (o *MetricsObserver) ObserveDutyCycle(workCount int) {
	o.metrics.RecordDutyCycle(workCount)
}

// Compile-time interface check
var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
