package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	gocron "github.com/go-co-op/gocron/v2"

	"github.com/CZERTAINLY/netprobe/internal/model"
)

// ErrJobNotFound is returned for names which are not registered
var ErrJobNotFound = errors.New("job not found")

type Supervisor struct {
	sinks     []Sink
	cfg       model.Service
	engine    Engine
	oneshot   bool
	scheduler gocron.Scheduler
	duration  time.Duration
	results   chan Result
	jobsChan  chan isJob
	done      chan struct{}
	jobsMx    sync.Mutex
	jobs      map[string]*Job
	wg        sync.WaitGroup
}

// NewSupervisor prepares the supervisor of configured jobs. In manual mode
// jobs run once, in timer mode they are started by the schedule. Results
// are written to stdout unless WithSinks says otherwise.
func NewSupervisor(ctx context.Context, cfg model.Config, engine Engine) (*Supervisor, error) {
	var supervisor = &Supervisor{
		cfg:     cfg.Service,
		engine:  engine,
		oneshot: cfg.Service.Mode == model.ServiceModeManual,
		sinks:   []Sink{NewWriteSink(nil)},
	}

	if supervisor.cfg.Mode == model.ServiceModeTimer {
		d, scheduler, err := newScheduler(ctx, supervisor.cfg.Schedule, func() { supervisor.Start("**") })
		if err != nil {
			return nil, fmt.Errorf("timer mode failed: %w", err)
		}
		supervisor.duration = d
		supervisor.scheduler = scheduler
	}

	supervisor.results = make(chan Result, 1)
	supervisor.jobsChan = make(chan isJob, 1)
	supervisor.done = make(chan struct{})
	supervisor.jobs = make(map[string]*Job)

	return supervisor, nil
}

// WithSinks replaces the destinations of finished runs.
func (s *Supervisor) WithSinks(sinks ...Sink) *Supervisor {
	s.sinks = sinks
	return s
}

// KeepRunning makes a manual mode supervisor wait for starts requested
// through Start instead of returning after the first pass.
func (s *Supervisor) KeepRunning() *Supervisor {
	s.oneshot = false
	return s
}

// AddJob registers a new job which will be activated in Do routine
func (s *Supervisor) AddJob(ctx context.Context, cfg model.Job) {
	if !s.send(jobAdd{job: cfg}) {
		slog.WarnContext(ctx, "supervisor is not running: ignoring job", "job_name", cfg.Name)
	}
}

// Start tells supervisor to start a job - this hints as a signal, so this
// ends immediately and without any error.
// start "**" will trigger all registered jobs
func (s *Supervisor) Start(name string) {
	if !s.send(jobStart{name: name}) {
		slog.Warn("supervisor is not running: ignoring start", "job_name", name)
	}
}

func (s *Supervisor) send(x isJob) bool {
	select {
	case s.jobsChan <- x:
		return true
	case <-s.done:
		return false
	}
}

// Do runs the supervisor event loop.
// It multiplexes three concerns:
//  1. Job additions and start triggers received on s.jobsChan.
//  2. Job results (from s.results) passed to every sink.
//  3. Context cancellation which terminates the loop.
//
// Modes:
//   - Oneshot (manual): returns once every started job delivered a result.
//     Failed runs and sink errors are joined into the returned error.
//   - Other modes: errors are only logged; the loop runs until ctx is cancelled.
//
// Shutdown (deferred order): done -> scheduler -> closeJobs -> wait on s.wg (job goroutines).
func (s *Supervisor) Do(ctx context.Context) error {
	slog.DebugContext(ctx, "starting a supervisor")

	defer func() {
		s.wg.Wait()
	}()

	defer func() {
		s.closeJobs()
	}()

	if s.scheduler != nil {
		s.scheduler.Start()
		defer func() {
			err := s.scheduler.Shutdown()
			if err != nil {
				slog.ErrorContext(ctx, "shutting down gocron has failed", "error", err)
			}
		}()
	}

	// unblocks senders before the scheduler waits for its tasks
	defer close(s.done)

	var (
		pending int
		errs    []error
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case x := <-s.jobsChan:
			switch j := x.(type) {
			case jobAdd:
				s.handleJobAdd(ctx, j.job)
				if s.cfg.Mode == model.ServiceModeTimer {
					slog.InfoContext(ctx, "adding new timer job", "job_name", j.job.Name, "interval", s.duration.String())
				}
			case jobStart:
				started := s.callStart(ctx, j.name)
				pending += started
				if s.oneshot && pending == 0 {
					return nil
				}
			}
		case result := <-s.results:
			pending--
			if err := s.record(ctx, result); err != nil {
				errs = append(errs, err)
				slog.ErrorContext(ctx, "run failed", "job_name", result.JobName, "error", err)
			}
			if s.oneshot && pending <= 0 {
				return errors.Join(errs...)
			}
		}
	}
}

// Jobs returns the configuration of registered jobs sorted by name
func (s *Supervisor) Jobs(_ context.Context) []model.Job {
	s.jobsMx.Lock()
	defer s.jobsMx.Unlock()
	ret := make([]model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		ret = append(ret, j.Config())
	}
	slices.SortFunc(ret, func(a, b model.Job) int {
		return strings.Compare(a.Name, b.Name)
	})
	return ret
}

// JobConfiguration returns a copy of configuration for job 'name' on success,
// ErrJobNotFound otherwise.
func (s *Supervisor) JobConfiguration(ctx context.Context, name string) (model.Job, error) {
	s.jobsMx.Lock()
	defer s.jobsMx.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		slog.WarnContext(ctx, "Job does not exist.", slog.String("job-name", name))
		return model.Job{}, fmt.Errorf("%w: %q", ErrJobNotFound, name)
	}
	return j.Config(), nil
}

func (s *Supervisor) closeJobs() {
	s.jobsMx.Lock()
	defer s.jobsMx.Unlock()

	for name, job := range s.jobs {
		job.Close()
		delete(s.jobs, name)
	}
}

func (s *Supervisor) handleJobAdd(ctx context.Context, cfg model.Job) {
	s.jobsMx.Lock()
	defer s.jobsMx.Unlock()

	if _, ok := s.jobs[cfg.Name]; ok {
		slog.WarnContext(ctx, "job already added: ignoring", "job_name", cfg.Name)
		return
	}

	job := NewJob(cfg, s.oneshot, s.engine, s.results).WithBegin(s.begin)
	s.wg.Go(func() {
		err := job.Activate(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "job run failed", "job_name", job.Name(), "error", err)
		}
	})
	s.jobs[job.Name()] = job
}

// callStart returns the number of started jobs
func (s *Supervisor) callStart(ctx context.Context, name string) int {
	s.jobsMx.Lock()
	defer s.jobsMx.Unlock()

	if name == "**" {
		slog.DebugContext(ctx, "triggering all jobs")
		for jobName, job := range s.jobs {
			slog.DebugContext(ctx, "starting a job", "job_name", jobName)
			job.Start()
		}
		return len(s.jobs)
	}

	job, ok := s.jobs[name]
	if !ok {
		slog.WarnContext(ctx, "cannot start job: not known", "job_name", name)
		return 0
	}
	slog.DebugContext(ctx, "starting a job", "job_name", name)
	job.Start()
	return 1
}

func (s *Supervisor) begin(ctx context.Context, result Result) {
	for _, sink := range s.sinks {
		if b, ok := sink.(BeginSink); ok {
			if err := b.Begin(ctx, result); err != nil {
				slog.ErrorContext(ctx, "recording run start has failed", "run", result.UUID, "error", err)
			}
		}
	}
}

func (s *Supervisor) record(ctx context.Context, result Result) error {
	errs := []error{result.Err}
	for _, sink := range s.sinks {
		errs = append(errs, sink.Record(ctx, result))
	}
	return errors.Join(errs...)
}

func newScheduler(ctx context.Context, cfgp *model.TimerSchedule, startFunc func()) (time.Duration, gocron.Scheduler, error) {
	if cfgp == nil {
		return 0, nil, fmt.Errorf("service.schedule is nil")
	}
	cfg := *cfgp
	var job gocron.JobDefinition
	var d time.Duration
	var err error
	switch {
	case cfg.Cron != "":
		d, err = model.ParseCron(cfg.Cron)
		if err != nil {
			return 0, nil, fmt.Errorf("parsing service.schedule.cron: %w", err)
		}
		job = gocron.CronJob(cfg.Cron, false)
		slog.DebugContext(ctx, "successfully parsed", "cron", cfg.Cron, "period", d.String())
	case cfg.Duration != "":
		d, err = model.ParseISODuration(cfg.Duration)
		if err != nil {
			return 0, nil, fmt.Errorf("parsing service.schedule.duration: %w", err)
		}
		if d <= 0 {
			return 0, nil, fmt.Errorf("service.schedule.duration must be positive, got %s", cfg.Duration)
		}
		job = gocron.DurationJob(d)
		slog.DebugContext(ctx, "successfully parsed", "duration", d.String())
	default:
		return 0, nil, errors.New("both cron and duration are empty")
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return 0, nil, fmt.Errorf("initializing gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		job,
		gocron.NewTask(startFunc),
	)
	if err != nil {
		_ = s.Shutdown()
		return 0, nil, fmt.Errorf("initializing gocron job: %w", err)
	}
	return d, s, nil
}

// isJob is a sum-like type implementing the protocol for
// async job execution
type isJob interface {
	isJob()
}

type jobAdd struct {
	job model.Job
}

func (jobAdd) isJob() {}

type jobStart struct {
	name string
}

func (jobStart) isJob() {}
