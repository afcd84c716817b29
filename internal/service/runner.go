// Runner is a single-slot executor of job tasks. It enforces at most one run
// at a time and exposes the most recent Result.
//
// Usage pattern:
//
//	runner := NewRunner()
//	defer runner.Close()
//	for {
//		select {
//		case <-ctx.Done():
//			return
//		case <-startChan:
//			_ = runner.Start(ctx, name, task)
//		case result := <-runner.ResultsChan():
//			// process results here
//		}
//	}
//
// Behaviors:
//   - Single run: Start returns ErrRunInProgress if the previous task has not
//     finished yet.
//   - Result delivery: exactly one Result is sent per successful Start. The
//     channel has a buffer of one and is never closed, so do not range over it.
//   - Close cancels the running task and waits for it. A result which was not
//     received before Close is dropped, LastResult still returns it.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRunNotStarted = errors.New("run not started")
	ErrRunInProgress = errors.New("run in progress")
	ErrRunnerClosed  = errors.New("runner is closed, cannot start new run")
)

// Task is the work of a single run. The returned bytes are the JSON
// encoded output.
type Task func(ctx context.Context) ([]byte, error)

type Result struct {
	JobName string
	Kind    string
	Target  string
	UUID    string
	Started time.Time
	Stopped time.Time
	Output  []byte
	Err     error
}

type Runner struct {
	mx         sync.Mutex
	running    bool
	closing    bool
	cancelFunc context.CancelFunc
	result     Result
	results    chan Result
	done       chan struct{}
	wg         sync.WaitGroup
}

func NewRunner() *Runner {
	return &Runner{
		result: Result{
			Err: ErrRunNotStarted,
		},
		results: make(chan Result, 1),
		done:    make(chan struct{}),
	}
}

// Start runs task in a new goroutine and returns immediately. proto
// provides the descriptive fields of the Result, a new UUID is assigned to
// every run.
func (r *Runner) Start(ctx context.Context, proto Result, task Task) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.closing {
		return ErrRunnerClosed
	}
	if r.running {
		return ErrRunInProgress
	}

	r.result = Result{
		JobName: proto.JobName,
		Kind:    proto.Kind,
		Target:  proto.Target,
		UUID:    uuid.NewString(),
		Started: time.Now().UTC(),
	}
	r.running = true

	ctx, cancel := context.WithCancel(ctx)
	r.cancelFunc = cancel
	result := r.result
	r.wg.Go(func() {
		r.run(ctx, cancel, result, task)
	})
	return nil
}

// ResultsChan delivers the results of finished runs
func (r *Runner) ResultsChan() <-chan Result {
	return r.results
}

// LastResult returns the result of the current or the last run. A result
// of a run in progress has a zero Stopped time.
func (r *Runner) LastResult() Result {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.result
}

// Close cancels a running task, waits for it and prevents further Start
// calls.
func (r *Runner) Close() {
	r.mx.Lock()
	if r.closing {
		r.mx.Unlock()
		return
	}
	r.closing = true
	if r.cancelFunc != nil {
		r.cancelFunc()
	}
	close(r.done)
	r.mx.Unlock()
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, cancel context.CancelFunc, result Result, task Task) {
	out, err := task(ctx)
	cancel()
	result.Stopped = time.Now().UTC()
	result.Output = out
	result.Err = err

	r.mx.Lock()
	r.result = result
	r.running = false
	r.mx.Unlock()

	select {
	case r.results <- result:
	case <-r.done:
	}
}
