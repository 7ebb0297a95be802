package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/internal/config"
	"github.com/slotheather55/webspark-sub000/internal/session"
)

// auditTimeout bounds one scheduled audit run.
const auditTimeout = 5 * time.Minute

// Scheduler runs recurring catalog audits on a cron expression and writes
// each report next to the macro store so runs can be compared over time.
type Scheduler struct {
	cron      *cron.Cron
	manager   *session.Manager
	cfg       config.SchedulerConfig
	reportDir string
	logger    zerolog.Logger
}

func NewScheduler(manager *session.Manager, cfg config.SchedulerConfig, reportDir string, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		manager:   manager,
		cfg:       cfg,
		reportDir: reportDir,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the configured audit and begins the cron loop. A
// missing cron expression or audit URL disables scheduling.
func (s *Scheduler) Start() error {
	if s.cfg.CronExpr == "" || s.cfg.AuditURL == "" {
		s.logger.Info().Msg("no audit schedule configured")
		return nil
	}
	entryID, err := s.cron.AddFunc(s.cfg.CronExpr, s.runAudit)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().Int("entry", int(entryID)).Str("cron", s.cfg.CronExpr).
		Str("url", s.cfg.AuditURL).Msg("audit schedule registered")
	return nil
}

// Stop halts the cron loop and waits for a running audit to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()

	s.logger.Info().Str("url", s.cfg.AuditURL).Str("page_type", s.cfg.PageType).Msg("scheduled audit starting")
	report, err := s.manager.RunCatalogAudit(ctx, s.cfg.AuditURL, s.cfg.PageType)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled audit failed")
		return
	}

	if err := s.writeReport(report); err != nil {
		s.logger.Error().Err(err).Msg("audit report write failed")
		return
	}
	s.logger.Info().Int("interactions", len(report.Interactions)).Msg("scheduled audit finished")
}

func (s *Scheduler) writeReport(report interface{}) error {
	if err := os.MkdirAll(s.reportDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	name := "audit-" + time.Now().Format("20060102-150405") + ".json"
	return os.WriteFile(filepath.Join(s.reportDir, name), data, 0o644)
}
