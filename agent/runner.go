// Package agent runs duty-cycle agents on a dedicated, pinned OS thread.
// An agent is anything that does a bounded amount of work per call; the
// runner loops it, applies an idle strategy to the work count, and stops on
// context cancellation.
package agent

import (
	"context"
	"fmt"
	"runtime"

	aeron "github.com/l2ex/aeron-go"
	"github.com/l2ex/aeron-go/idle"
)

// Agent is one unit of a duty cycle.
type Agent interface {
	// DoWork performs a bounded amount of work and returns how much was
	// done. A returned error terminates the runner.
	DoWork() (int, error)

	// OnClose is called once after the run loop exits.
	OnClose()

	// RoleName identifies the agent in logs.
	RoleName() string
}

// Config configures a Runner.
type Config struct {
	Agent    Agent
	Idler    idle.Strategy  // Defaults to idle.Yielding{}
	Logger   aeron.Logger   // May be nil
	Observer aeron.Observer // Duty-cycle observer (may be nil)
}

// Runner drives a single agent on its own goroutine, pinned to an OS thread
// so the duty cycle keeps its cache and scheduling locality.
type Runner struct {
	agent    Agent
	idler    idle.Strategy
	logger   aeron.Logger
	observer aeron.Observer
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewRunner creates a runner for the configured agent.
func NewRunner(ctx context.Context, config Config) (*Runner, error) {
	if config.Agent == nil {
		return nil, aeron.NewInvalidArgument("NewRunner", "agent must not be nil")
	}

	idler := config.Idler
	if idler == nil {
		idler = idle.Yielding{}
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		agent:    config.Agent,
		idler:    idler,
		logger:   config.Logger,
		observer: config.Observer,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// Start launches the run loop and waits for it to come up.
func (r *Runner) Start() error {
	started := make(chan error, 1)
	go r.run(started)

	if err := <-started; err != nil {
		return fmt.Errorf("failed to start agent %s: %w", r.agent.RoleName(), err)
	}
	return nil
}

// Stop requests the run loop to exit and waits for it.
func (r *Runner) Stop() {
	r.cancel()
	<-r.done
}

// run is the duty-cycle loop. It owns the calling goroutine until the
// context is cancelled or the agent errors.
func (r *Runner) run(started chan<- error) {
	defer close(r.done)

	// The agent owns single-threaded state (scanner cursor, timer wheel);
	// pin so the whole duty cycle stays on one OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if r.logger != nil {
		r.logger.Debugf("agent %s: duty cycle starting", r.agent.RoleName())
	}
	started <- nil

	defer r.agent.OnClose()

	for {
		select {
		case <-r.ctx.Done():
			if r.logger != nil {
				r.logger.Debugf("agent %s: duty cycle stopping", r.agent.RoleName())
			}
			return
		default:
			workCount, err := r.agent.DoWork()
			if err != nil {
				if r.logger != nil {
					r.logger.Printf("agent %s: terminating: %v", r.agent.RoleName(), err)
				}
				return
			}
			if r.observer != nil {
				r.observer.ObserveDutyCycle(workCount)
			}
			r.idler.Idle(workCount)
		}
	}
}

// Composite groups agents into one duty cycle. Work counts are summed; the
// first error stops the cycle.
type Composite struct {
	name   string
	agents []Agent
}

// NewComposite creates a composite agent from the given parts.
func NewComposite(name string, agents ...Agent) *Composite {
	return &Composite{name: name, agents: agents}
}

func (c *Composite) DoWork() (int, error) {
	total := 0
	for _, a := range c.agents {
		n, err := a.DoWork()
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (c *Composite) OnClose() {
	for _, a := range c.agents {
		a.OnClose()
	}
}

func (c *Composite) RoleName() string {
	return c.name
}

var _ Agent = (*Composite)(nil)
