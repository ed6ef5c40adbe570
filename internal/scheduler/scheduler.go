package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/safestep-care/safestep-service/internal/config"
	"github.com/safestep-care/safestep-service/internal/services"
	"github.com/safestep-care/safestep-service/internal/utils"
)

// staleAlertMaxAge is how long an alert may stay active before the hourly
// sweep auto-resolves it.
const staleAlertMaxAge = 24 * time.Hour

// jobTimeout bounds each scheduled run so a hung job cannot pile up
// behind the next tick.
const jobTimeout = 15 * time.Minute

// Scheduler drives the recurring background jobs: the nightly batch risk
// analysis and the hourly stale alert sweep.
type Scheduler struct {
	cron     *cron.Cron
	services services.ServiceManager
	config   config.ScheduleConfig
	logger   utils.Logger
}

func New(serviceManager services.ServiceManager, cfg config.ScheduleConfig, logger utils.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		services: serviceManager,
		config:   cfg,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start registers the jobs and launches the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.config.PredictionCron, s.runPredictionAnalysis); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.config.AlertSweepCron, s.sweepStaleAlerts); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		"prediction_cron", s.config.PredictionCron,
		"alert_sweep_cron", s.config.AlertSweepCron)
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runPredictionAnalysis() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	s.logger.Info("Starting scheduled risk analysis")

	result, err := s.services.Prediction().RunAnalysis(ctx, "schedule")
	if err != nil {
		s.logger.Error("Scheduled risk analysis failed", "error", err)
		return
	}

	s.logger.Info("Scheduled risk analysis finished",
		"processed", result.Job.PatientsProcessed,
		"failed", result.Job.PatientsFailed,
		"high_risk", len(result.HighRisk),
		"duration_ms", result.DurationMS)
}

func (s *Scheduler) sweepStaleAlerts() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	count, err := s.services.Care().SweepStaleAlerts(ctx, staleAlertMaxAge)
	if err != nil {
		s.logger.Error("Stale alert sweep failed", "error", err)
		return
	}
	if count > 0 {
		s.logger.Info("Resolved stale alerts", "count", count)
	}
}
