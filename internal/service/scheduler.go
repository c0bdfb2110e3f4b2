package service

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of scheduled work.
type Job interface {
	Run() error
	Name() string
}

// Scheduler runs background jobs on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler creates a scheduler. Schedules use the standard five-field
// cron format plus descriptors such as "@every 6h" or "@daily".
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger.With(zap.String("component", "scheduler")),
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// AddJob registers job on schedule.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.logger.Debug("running job", zap.String("job", job.Name()))

		if err := job.Run(); err != nil {
			s.logger.Error("job failed", zap.String("job", job.Name()), zap.Error(err))
		} else {
			s.logger.Debug("job completed", zap.String("job", job.Name()))
		}
	})
	if err != nil {
		return err
	}

	s.logger.Info("job registered",
		zap.String("schedule", schedule),
		zap.String("job", job.Name()),
	)
	return nil
}
