package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockbook/internal/config"
	"github.com/mamadbah2/stockbook/internal/domain/models"
	"github.com/mamadbah2/stockbook/internal/repository/mongodb"
	"github.com/mamadbah2/stockbook/internal/service/whatsapp"
)

// ReportGenerator produces the daily report.
type ReportGenerator interface {
	GenerateDailyReport(ctx context.Context, day time.Time) (models.InventorySnapshot, string, error)
}

// Scheduler manages scheduled tasks. The snapshot store and the messaging
// service are optional; a nil value skips that step.
type Scheduler struct {
	cron         *cron.Cron
	reporting    ReportGenerator
	snapshots    mongodb.Repository
	messagingSvc whatsapp.MessagingService
	cfg          config.Config
	location     *time.Location
	logger       *zap.Logger
}

// NewScheduler creates a new scheduler instance running in the configured
// timezone.
func NewScheduler(cfg config.Config, reporting ReportGenerator, snapshots mongodb.Repository, messagingSvc whatsapp.MessagingService, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := cfg.Reporting.Location()
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(location)),
		reporting:    reporting,
		snapshots:    snapshots,
		messagingSvc: messagingSvc,
		cfg:          cfg,
		location:     location,
		logger:       logger,
	}, nil
}

// Start registers the daily report and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.Reporting.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.Reporting.CronSchedule, s.runDailyReport); err != nil {
		return fmt.Errorf("schedule daily report: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDailyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.DailyReport(ctx, time.Now()); err != nil {
		s.logger.Error("daily report failed", zap.Error(err))
	}
}

// DailyReport generates the report for the day now falls on in the
// configured timezone, stores the snapshot and sends the message.
func (s *Scheduler) DailyReport(ctx context.Context, now time.Time) error {
	now = now.In(s.location)
	s.logger.Info("generating daily report", zap.String("day", now.Format("2006-01-02")))

	snapshot, message, err := s.reporting.GenerateDailyReport(ctx, now)
	if err != nil {
		return fmt.Errorf("generate daily report: %w", err)
	}

	if s.snapshots != nil {
		if err := s.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
			s.logger.Error("failed to save inventory snapshot", zap.Error(err))
		}
	}

	if s.messagingSvc == nil {
		return nil
	}

	req := models.OutboundMessageRequest{
		To:      s.cfg.WhatsApp.ReportRecipient,
		Message: message,
	}
	if err := s.messagingSvc.SendOutbound(ctx, req); err != nil {
		return fmt.Errorf("send daily report: %w", err)
	}

	s.logger.Info("daily report sent successfully")
	return nil
}
