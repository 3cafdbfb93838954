package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	hl7v2 "github.com/gofhir/hl7v2"
)

// Processor decodes and validates one payload.
type Processor interface {
	Check(ctx context.Context, payload []byte) (*hl7v2.Result, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, payload []byte) (*hl7v2.Result, error)

// Check calls f.
func (f ProcessorFunc) Check(ctx context.Context, payload []byte) (*hl7v2.Result, error) {
	return f(ctx, payload)
}

var (
	// ErrNoProcessor is returned for jobs of a pool without a processor.
	ErrNoProcessor = errors.New("no processor configured")

	// ErrProcessorPanic wraps a panic raised while checking a payload.
	ErrProcessorPanic = errors.New("processor panicked")
)

// Pool runs a fixed number of workers over submitted jobs. Results arrive
// on Results in completion order.
type Pool struct {
	proc    Processor
	workers int
	jobs    chan Job
	results chan *JobResult

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	closed atomic.Bool
	stats  poolCounters
}

type poolCounters struct {
	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	busy      atomic.Int64 // summed job durations
}

// NewPool starts a pool with the given number of workers.
// If workers <= 0, it defaults to runtime.NumCPU().
func NewPool(proc Processor, workers int) *Pool {
	return NewPoolContext(context.Background(), proc, workers)
}

// NewPoolContext is like NewPool; cancelling ctx stops the workers.
func NewPoolContext(ctx context.Context, proc Processor, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		proc:    proc,
		workers: workers,
		jobs:    make(chan Job, 2*workers),
		results: make(chan *JobResult, 2*workers),
	}
	p.ctx, p.stop = context.WithCancel(ctx)

	p.wg.Add(workers)
	for range workers {
		go p.work()
	}
	return p
}

// Submit queues a job, blocking while the queue is full. It returns false
// once the pool is closed or cancelled.
func (p *Pool) Submit(job Job) bool {
	return p.enqueue(job, true)
}

// SubmitAsync queues a job without blocking. It returns false when the
// queue is full or the pool is closed.
func (p *Pool) SubmitAsync(job Job) bool {
	return p.enqueue(job, false)
}

func (p *Pool) enqueue(job Job, wait bool) bool {
	if p.closed.Load() || p.ctx.Err() != nil {
		return false
	}
	if !wait {
		select {
		case p.jobs <- job:
			p.stats.submitted.Add(1)
			return true
		default:
			return false
		}
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- job:
		p.stats.submitted.Add(1)
		return true
	}
}

// Results returns the channel of job results.
func (p *Pool) Results() <-chan *JobResult {
	return p.results
}

// Close stops the workers and discards pending results.
func (p *Pool) Close() {
	if p.closed.Swap(true) {
		return
	}
	p.stop()
	close(p.jobs)

	// Unblock workers waiting on a full result channel.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for range p.results {
		}
	}()
	p.wg.Wait()
	close(p.results)
	<-drained
}

// CloseAndWait stops accepting jobs, finishes the queued ones and returns
// every result not yet received from Results.
func (p *Pool) CloseAndWait() *BatchResult {
	if p.closed.Swap(true) {
		return &BatchResult{}
	}
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()

	br := &BatchResult{}
	for jr := range p.results {
		br.Results = append(br.Results, jr)
	}
	p.stop()

	br.TotalJobs = int(p.stats.submitted.Load())     //nolint:gosec // job counts fit in int
	br.CompletedJobs = int(p.stats.completed.Load()) //nolint:gosec // job counts fit in int
	br.FailedJobs = int(p.stats.failed.Load())       //nolint:gosec // job counts fit in int
	br.TotalDuration = time.Duration(p.stats.busy.Load())
	return br
}

// PoolStats contains pool statistics.
type PoolStats struct {
	Workers       int
	JobsSubmitted uint64
	JobsCompleted uint64
	JobsFailed    uint64
	AvgDuration   time.Duration
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	s := PoolStats{
		Workers:       p.workers,
		JobsSubmitted: p.stats.submitted.Load(),
		JobsCompleted: p.stats.completed.Load(),
		JobsFailed:    p.stats.failed.Load(),
	}
	if s.JobsCompleted > 0 {
		s.AvgDuration = time.Duration(uint64(p.stats.busy.Load()) / s.JobsCompleted) //nolint:gosec // durations are non-negative
	}
	return s
}

func (p *Pool) work() {
	defer p.wg.Done()
	for job := range p.jobs {
		if p.ctx.Err() != nil {
			return
		}
		jr := run(p.ctx, p.proc, job)
		p.stats.completed.Add(1)
		p.stats.busy.Add(int64(jr.Duration))
		if jr.Error != nil {
			p.stats.failed.Add(1)
		}

		select {
		case <-p.ctx.Done():
			return
		case p.results <- jr:
		}
	}
}
