package widget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fenilsonani/folder-cleaner/internal/config"
)

// Scheduler runs widget actions on cron schedules
type Scheduler struct {
	widget    *Widget
	cron      *cron.Cron
	jobs      map[string]cron.EntryID
	schedules map[string]config.WidgetSchedule
	mu        sync.RWMutex
	running   bool
	logger    *zap.Logger
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	Action  string
	NextRun time.Time
	PrevRun time.Time
}

// NewScheduler creates a new scheduler
func NewScheduler(w *Widget, schedules []config.WidgetSchedule, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("scheduler")

	parser := cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger))

	c := cron.New(cron.WithParser(parser), cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))

	s := &Scheduler{
		widget:    w,
		cron:      c,
		jobs:      make(map[string]cron.EntryID),
		schedules: make(map[string]config.WidgetSchedule, len(schedules)),
		logger:    logger,
	}
	for _, sched := range schedules {
		s.schedules[sched.Name] = sched
	}
	return s
}

// Start registers every schedule and starts the cron loop
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	for _, sched := range s.schedules {
		if _, added := s.jobs[sched.Name]; added {
			continue
		}
		if err := s.addJobLocked(sched); err != nil {
			return fmt.Errorf("failed to add schedule %s: %w", sched.Name, err)
		}
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop stops the scheduler, waiting briefly for running jobs
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		s.logger.Warn("scheduler stop timed out")
	}

	s.running = false
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) addJobLocked(sched config.WidgetSchedule) error {
	if _, exists := s.jobs[sched.Name]; exists {
		return fmt.Errorf("job %s already exists", sched.Name)
	}

	id, err := s.cron.AddFunc(sched.Schedule, func() {
		s.logger.Info("running scheduled job", zap.String("job", sched.Name), zap.String("action", sched.Action))
		if err := s.widget.RunAction(context.Background(), sched.Action); err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", sched.Name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.jobs[sched.Name] = id
	s.schedules[sched.Name] = sched
	s.logger.Debug("added job", zap.String("job", sched.Name), zap.Time("next_run", s.cron.Entry(id).Next))
	return nil
}

// AddJob adds a new job to the scheduler
func (s *Scheduler) AddJob(sched config.WidgetSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addJobLocked(sched)
}

// RemoveJob removes a job from the scheduler
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.cron.Remove(id)
	delete(s.jobs, name)
	delete(s.schedules, name)
	return nil
}

// ListJobs returns information about all registered jobs
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]JobInfo, 0, len(s.jobs))
	for name, id := range s.jobs {
		entry := s.cron.Entry(id)
		jobs = append(jobs, JobInfo{
			Name:    name,
			Action:  s.schedules[name].Action,
			NextRun: entry.Next,
			PrevRun: entry.Prev,
		})
	}
	return jobs
}

// TriggerJob runs a job's action immediately
func (s *Scheduler) TriggerJob(ctx context.Context, name string) error {
	s.mu.RLock()
	sched, exists := s.schedules[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.logger.Info("manually triggering job", zap.String("job", name))
	return s.widget.RunAction(ctx, sched.Action)
}
