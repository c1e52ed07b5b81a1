package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/gantry/internal/cpm"
	"github.com/Iron-Ham/gantry/internal/event"
	"github.com/Iron-Ham/gantry/internal/logging"
)

// Job is a computation run in the background by a Runner.
type Job func(ctx context.Context) (any, error)

// Outcome is the result of one submitted Job.
type Outcome struct {
	Generation uint64
	Value      any
	Err        error
	Elapsed    time.Duration
}

// Runner executes jobs on background goroutines and delivers only the
// outcome of the most recent submission.
//
// Every Submit is stamped with a generation token one greater than the last.
// A job is never interrupted when a newer one is submitted; when it finishes
// its token is compared with the current generation and a stale outcome is
// discarded instead of delivered.
type Runner struct {
	gen     atomic.Uint64
	out     chan Outcome
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	logger  *logging.Logger
	bus     *event.Bus
	discard atomic.Uint64
}

// NewRunner creates a Runner. Outcomes are read from Results.
func NewRunner(logger *logging.Logger, bus *event.Bus) *Runner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if bus == nil {
		bus = event.NewBus()
	}
	return &Runner{
		out:    make(chan Outcome, 1),
		done:   make(chan struct{}),
		logger: logger.WithOperation("runner"),
		bus:    bus,
	}
}

// Submit starts job under a new generation and returns its token.
// Submitting after Close returns 0 and does not run the job.
func (r *Runner) Submit(ctx context.Context, job Job) uint64 {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0
	}
	gen := r.gen.Add(1)
	r.wg.Add(1)
	r.mu.Unlock()

	log := r.logger.WithGeneration(gen)
	log.Debug("job submitted")

	go func() {
		defer r.wg.Done()
		start := time.Now()
		v, err := job(ctx)
		o := Outcome{Generation: gen, Value: v, Err: err, Elapsed: time.Since(start)}

		if current := r.gen.Load(); current != gen {
			r.discard.Add(1)
			log.Debug("stale result discarded", "current", current, "elapsed_ms", o.Elapsed.Milliseconds())
			r.bus.Publish(event.NewResultDiscardedEvent(gen, current))
			return
		}
		r.publish(o)
		r.deliver(o)
	}()
	return gen
}

// publish announces a current outcome of an analysis job on the bus.
func (r *Runner) publish(o Outcome) {
	if o.Err != nil {
		r.bus.Publish(event.NewAnalysisFailedEvent(o.Generation, o.Err))
		return
	}
	var res *cpm.Result
	switch v := o.Value.(type) {
	case *cpm.Result:
		res = v
	case *Chart:
		res = v.Result
	}
	if res != nil {
		r.bus.Publish(event.NewAnalysisCompletedEvent(o.Generation, res.ProjectDuration, res.CriticalPath, o.Elapsed))
	}
}

// deliver replaces any undelivered outcome so the channel always holds the
// newest one.
func (r *Runner) deliver(o Outcome) {
	for {
		select {
		case <-r.done:
			return
		case r.out <- o:
			return
		default:
		}
		select {
		case old := <-r.out:
			if old.Generation > o.Generation {
				o = old
			}
		default:
		}
	}
}

// Results returns the channel outcomes are delivered on. It is closed by Close.
func (r *Runner) Results() <-chan Outcome {
	return r.out
}

// Current returns the latest generation token issued.
func (r *Runner) Current() uint64 {
	return r.gen.Load()
}

// IsCurrent reports whether gen is the latest generation. Consumers use it
// to drop an outcome that was superseded after delivery.
func (r *Runner) IsCurrent(gen uint64) bool {
	return gen == r.gen.Load()
}

// Discarded returns how many stale outcomes have been dropped.
func (r *Runner) Discarded() uint64 {
	return r.discard.Load()
}

// Wait blocks until every submitted job has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close stops delivery, waits for running jobs and closes Results.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	close(r.out)
}
