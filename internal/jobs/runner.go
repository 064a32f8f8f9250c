// Package jobs runs the periodic sweeps: reminders, rating requests,
// requirement nudges, collaboration expiry and notification purging.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
)

// Handler performs one run of a job at now.
type Handler func(ctx context.Context, now time.Time) (Report, error)

// Job is a named handler on a cron schedule.
type Job struct {
	Name     string
	Schedule string
	Handler  Handler
}

// Report summarizes one run. Candidates = Succeeded + Skipped + Failed.
type Report struct {
	Job        string        `json:"job"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Candidates int           `json:"candidates"`
	Succeeded  int           `json:"succeeded"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
}

func (r *Report) succeed() {
	r.Candidates++
	r.Succeeded++
}

func (r *Report) skip() {
	r.Candidates++
	r.Skipped++
}

func (r *Report) fail() {
	r.Candidates++
	r.Failed++
}

// JobStatus describes a registered job.
type JobStatus struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	NextRun  time.Time `json:"next_run"`
	PrevRun  time.Time `json:"prev_run"`
}

// RunnerConfig configuration for the runner
type RunnerConfig struct {
	Location *time.Location
	// Timeout bounds a single run.
	Timeout time.Duration
	Now     func() time.Time
}

// DefaultRunnerConfig returns default configuration
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Location: time.UTC,
		Timeout:  30 * time.Minute,
		Now:      time.Now,
	}
}

type entry struct {
	job Job
	id  cron.EntryID
}

// Runner schedules jobs on cron and lets callers run them directly.
type Runner struct {
	cron    *cron.Cron
	jobs    map[string]*entry
	logger  *zap.Logger
	config  RunnerConfig
	mu      sync.RWMutex
	running bool
	baseCtx context.Context
}

// NewRunner creates a new runner
func NewRunner(logger *zap.Logger, config RunnerConfig) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultRunnerConfig()
	if config.Location == nil {
		config.Location = defaults.Location
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}

	cronLogger := cronLog{logger.Sugar()}
	return &Runner{
		cron: cron.New(
			cron.WithLocation(config.Location),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		jobs:    make(map[string]*entry),
		logger:  logger,
		config:  config,
		baseCtx: context.Background(),
	}
}

// Register adds a job. Names are unique.
func (r *Runner) Register(job Job) error {
	if job.Name == "" || job.Handler == nil {
		return apperr.Validation("job needs a name and a handler")
	}
	if err := ValidateCronExpression(job.Schedule); err != nil {
		return apperr.Validation("job %s: invalid schedule %q: %v", job.Name, job.Schedule, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.Name]; ok {
		return fmt.Errorf("job %s: %w", job.Name, apperr.ErrConflict)
	}

	name := job.Name
	id, err := r.cron.AddFunc(job.Schedule, func() {
		r.mu.RLock()
		ctx := r.baseCtx
		r.mu.RUnlock()
		_, _ = r.Run(ctx, name)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	r.jobs[name] = &entry{job: job, id: id}

	r.logger.Info("Registered job",
		zap.String("job", name),
		zap.String("cron", job.Schedule),
		zap.String("description", DescribeCronExpression(job.Schedule)),
		zap.String("timezone", r.config.Location.String()))
	return nil
}

// Start starts the cron scheduler. Scheduled runs derive their context from ctx.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("job runner already running")
	}
	r.running = true
	r.baseCtx = ctx

	r.logger.Info("Starting job runner", zap.Int("jobs", len(r.jobs)))
	r.cron.Start()
	return nil
}

// StopAll stops scheduling and waits for running jobs to finish.
func (r *Runner) StopAll() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	r.logger.Info("Stopping job runner")
	<-r.cron.Stop().Done()
}

// Run executes the named job now and returns its report.
func (r *Runner) Run(ctx context.Context, name string) (*Report, error) {
	r.mu.RLock()
	e, ok := r.jobs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("job %s: %w", name, apperr.ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	begin := time.Now()
	started := r.config.Now().In(r.config.Location)
	r.logger.Info("Executing job", zap.String("job", name))

	report, err := e.job.Handler(ctx, started)
	report.Job = name
	report.StartedAt = started
	report.Duration = time.Since(begin)
	if err != nil {
		r.logger.Error("Job failed",
			zap.String("job", name),
			zap.Int("succeeded", report.Succeeded),
			zap.Int("failed", report.Failed),
			zap.Error(err))
		return &report, err
	}

	r.logger.Info("Job completed",
		zap.String("job", name),
		zap.Int("candidates", report.Candidates),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))
	return &report, nil
}

// Jobs lists the registered jobs by name.
func (r *Runner) Jobs() []JobStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]JobStatus, 0, len(r.jobs))
	for name, e := range r.jobs {
		ce := r.cron.Entry(e.id)
		out = append(out, JobStatus{Name: name, Schedule: e.job.Schedule, NextRun: ce.Next, PrevRun: ce.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ValidateCronExpression validates a five-field cron expression
func ValidateCronExpression(expr string) error {
	_, err := cron.ParseStandard(expr)
	return err
}

// DescribeCronExpression returns a human-readable description of a cron expression
func DescribeCronExpression(expr string) string {
	switch expr {
	case "0 * * * *":
		return "Every hour"
	case "0 0 * * *":
		return "Every day at midnight"
	case "0 9 * * *":
		return "Every day at 9:00 AM"
	case "0 9 * * 1":
		return "Every Monday at 9:00 AM"
	case "0 0 * * 0":
		return "Every Sunday at midnight"
	default:
		return expr
	}
}

// cronLog adapts zap to cron's logger.
type cronLog struct {
	s *zap.SugaredLogger
}

func (l cronLog) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLog) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
