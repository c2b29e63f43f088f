package maintenance

import (
	"context"
	"database/sql"
	"time"

	"github.com/robfig/cron/v3"

	"atlas-grc/config"
	"atlas-grc/core/store"
	"atlas-grc/core/utils"
)

// Scheduler runs periodic housekeeping: expired session purge and
// audit log trimming, on the configured cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	sessions store.SessionStore
	audit    store.AuditStore
	cfg      config.MaintenanceConfig
	logger   *utils.Logger
}

func NewScheduler(db *sql.DB, cfg config.MaintenanceConfig, logger *utils.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		sessions: store.NewSessionsStore(db),
		audit:    store.NewAuditStore(db),
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Printf("maintenance scheduler started (schedule=%s)", s.cfg.Schedule)
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	now := time.Now().UTC()
	if n, err := s.sessions.PurgeExpired(ctx, now); err != nil {
		s.logger.Errorf("session purge failed: %v", err)
	} else if n > 0 {
		s.logger.Printf("purged %d expired sessions", n)
	}
	if s.cfg.AuditRetentionDays > 0 {
		cutoff := now.AddDate(0, 0, -s.cfg.AuditRetentionDays)
		if n, err := s.audit.TrimOlderThan(ctx, cutoff); err != nil {
			s.logger.Errorf("audit trim failed: %v", err)
		} else if n > 0 {
			s.logger.Printf("trimmed %d audit entries older than %s", n, cutoff.Format(time.RFC3339))
		}
	}
}

// RunNow executes one maintenance pass synchronously, used at startup.
func (s *Scheduler) RunNow() {
	s.runOnce()
}
