package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aeron "github.com/l2ex/aeron-go"
	"github.com/l2ex/aeron-go/idle"
)

// countingAgent does fixed work per cycle and records lifecycle calls.
type countingAgent struct {
	work   int
	err    error
	cycles atomic.Int64
	closed atomic.Bool
	failAt int64
}

func (a *countingAgent) DoWork() (int, error) {
	n := a.cycles.Add(1)
	if a.err != nil && n >= a.failAt {
		return 0, a.err
	}
	return a.work, nil
}

func (a *countingAgent) OnClose() {
	a.closed.Store(true)
}

func (a *countingAgent) RoleName() string {
	return "counting"
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestNewRunnerRequiresAgent(t *testing.T) {
	_, err := NewRunner(context.Background(), Config{})
	require.Error(t, err)
	assert.True(t, aeron.IsCode(err, aeron.ErrCodeInvalidArgument))
}

func TestRunnerDrivesAgentUntilStopped(t *testing.T) {
	a := &countingAgent{work: 1}
	runner, err := NewRunner(context.Background(), Config{Agent: a, Idler: idle.Yielding{}})
	require.NoError(t, err)

	require.NoError(t, runner.Start())
	waitFor(t, time.Second, func() bool { return a.cycles.Load() > 10 })

	runner.Stop()
	assert.True(t, a.closed.Load())

	// The loop is down; no further cycles accumulate.
	settled := a.cycles.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, settled, a.cycles.Load())
}

func TestRunnerStopsOnAgentError(t *testing.T) {
	a := &countingAgent{work: 1, err: errors.New("broken"), failAt: 3}
	runner, err := NewRunner(context.Background(), Config{Agent: a})
	require.NoError(t, err)

	require.NoError(t, runner.Start())
	waitFor(t, time.Second, func() bool { return a.closed.Load() })
	assert.Equal(t, int64(3), a.cycles.Load())

	runner.Stop()
}

func TestRunnerHonorsParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &countingAgent{work: 0}
	runner, err := NewRunner(ctx, Config{Agent: a, Idler: idle.Sleeping{Period: time.Millisecond}})
	require.NoError(t, err)

	require.NoError(t, runner.Start())
	cancel()
	waitFor(t, time.Second, func() bool { return a.closed.Load() })

	runner.Stop()
}

func TestRunnerReportsDutyCycles(t *testing.T) {
	metrics := aeron.NewMetrics()
	a := &countingAgent{work: 2}
	runner, err := NewRunner(context.Background(), Config{
		Agent:    a,
		Observer: aeron.NewMetricsObserver(metrics),
	})
	require.NoError(t, err)

	require.NoError(t, runner.Start())
	waitFor(t, time.Second, func() bool { return metrics.DutyCycles.Load() > 5 })
	runner.Stop()

	snap := metrics.Snapshot()
	assert.Greater(t, snap.DutyCycles, uint64(5))
	assert.Zero(t, snap.IdleCycles)
}

func TestCompositeSumsWorkAndPropagatesError(t *testing.T) {
	a := &countingAgent{work: 2}
	b := &countingAgent{work: 3}
	composite := NewComposite("pair", a, b)

	n, err := composite.DoWork()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "pair", composite.RoleName())

	failing := &countingAgent{work: 1, err: errors.New("boom"), failAt: 1}
	composite = NewComposite("pair", a, failing, b)
	before := b.cycles.Load()
	_, err = composite.DoWork()
	require.Error(t, err)
	assert.Equal(t, before, b.cycles.Load(), "agents after the failure must not run")

	composite.OnClose()
	assert.True(t, a.closed.Load())
	assert.True(t, b.closed.Load())
}
