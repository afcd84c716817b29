package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/CZERTAINLY/netprobe/internal/log"
	"github.com/CZERTAINLY/netprobe/internal/model"

	"github.com/google/uuid"
)

// BeginFunc is called when a run of a job has started
type BeginFunc func(ctx context.Context, result Result)

// Job is a unit of work executed by supervisor
type Job struct {
	name        string
	oneshot     bool
	config      model.Job
	task        Task
	runner      *Runner
	startMx     sync.Mutex
	start       chan struct{}
	closed      chan struct{}
	begin       BeginFunc
	resultsChan chan<- Result
}

func NewJob(config model.Job, oneshot bool, engine Engine, results chan<- Result) *Job {
	return &Job{
		name:        config.Name,
		oneshot:     oneshot,
		config:      config,
		task:        engine.Task(config),
		runner:      NewRunner(),
		start:       make(chan struct{}, 1),
		closed:      make(chan struct{}),
		resultsChan: results,
	}
}

// WithBegin registers a callback invoked from the job goroutine whenever
// a run starts.
func (j *Job) WithBegin(fn BeginFunc) *Job {
	j.begin = fn
	return j
}

func (j *Job) Close() {
	j.startMx.Lock()
	if j.start != nil {
		close(j.start)
		close(j.closed)
		j.start = nil
	}
	j.startMx.Unlock()
	j.runner.Close()
}

func (j *Job) Name() string {
	return j.name
}

// Config returns the job configuration
func (j *Job) Config() model.Job {
	return j.config
}

// Start asks the job to run. It never blocks: a start requested while
// another one is pending is dropped.
func (j *Job) Start() {
	j.startMx.Lock()
	defer j.startMx.Unlock()
	if j.start == nil {
		slog.Error("Start can't be called after Close: ignoring", "job_name", j.name)
		return
	}
	select {
	case j.start <- struct{}{}:
	default:
		slog.Warn("job start already pending: ignoring", "job_name", j.name)
	}
}

func (j *Job) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("name", j.name),
		slog.String("kind", j.config.Kind),
		slog.String("target", j.config.Target),
		slog.Bool("oneshot", j.oneshot),
	}
	group := slog.GroupAttrs("job", attrs...)
	return []slog.Attr{group}
}

// Activate is the job event loop. It returns when ctx is done, the job is
// closed or, for oneshot jobs, after the first result.
func (j *Job) Activate(ctx context.Context) error {
	j.startMx.Lock()
	start := j.start
	j.startMx.Unlock()
	if start == nil {
		return errors.New("method Activate can't be called after Close")
	}

	ctx = log.ContextAttrs(ctx, j.LogAttrs()[0])

	for {
		select {
		case <-ctx.Done():
			return nil
		case result := <-j.runner.ResultsChan():
			slog.DebugContext(ctx, "finished", "run", result.UUID, "elapsed", result.Stopped.Sub(result.Started).String())
			if !j.send(ctx, result) || j.oneshot {
				return nil
			}
		case _, ok := <-start:
			if !ok {
				return nil
			}
			slog.DebugContext(ctx, "about to start")
			if err := j.callStart(ctx); err != nil {
				if errors.Is(err, ErrRunInProgress) {
					slog.WarnContext(ctx, "previous run still in progress: ignoring start")
					continue
				}
				now := time.Now().UTC()
				j.send(ctx, Result{
					JobName: j.name,
					Kind:    j.config.Kind,
					Target:  j.config.Target,
					UUID:    uuid.NewString(),
					Started: now,
					Stopped: now,
					Err:     err,
				})
				if j.oneshot {
					return err
				}
			}
		}
	}
}

func (j *Job) callStart(ctx context.Context) error {
	proto := Result{
		JobName: j.name,
		Kind:    j.config.Kind,
		Target:  j.config.Target,
	}
	if err := j.runner.Start(ctx, proto, j.task); err != nil {
		return err
	}
	if j.begin != nil {
		j.begin(ctx, j.runner.LastResult())
	}
	return nil
}

func (j *Job) send(ctx context.Context, result Result) bool {
	select {
	case j.resultsChan <- result:
		return true
	case <-ctx.Done():
		return false
	case <-j.closed:
		return false
	}
}
