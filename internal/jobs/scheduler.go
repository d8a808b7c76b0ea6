package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"ClubLedger/internal/config"
	"ClubLedger/internal/logger"
	"ClubLedger/internal/report"
	"ClubLedger/internal/serviceiface"

	"github.com/robfig/cron/v3"
)

// ImportScheduler periodically imports the latest report file of each configured club.
type ImportScheduler struct {
	cfg      *config.ImporterConfig
	importer *Importer
	cron     *cron.Cron
}

func NewImportScheduler(cfg map[string]interface{}, importer *Importer) serviceiface.Service {
	return &ImportScheduler{
		cfg:      config.ImporterConfigFrom(cfg),
		importer: importer,
	}
}

func (s *ImportScheduler) Name() string {
	return "importer"
}

func (s *ImportScheduler) Start() error {
	c, err := RunImportScheduler(s.cfg, s.importer)
	if err != nil {
		return err
	}
	s.cron = c
	log.Println("Import scheduler started")
	return nil
}

func (s *ImportScheduler) Stop() error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	log.Println("Import scheduler stopped.")
	return nil
}

// RunImportScheduler validates cfg, schedules ImportClubs and starts the cron.
func RunImportScheduler(cfg *config.ImporterConfig, importer *Importer) (*cron.Cron, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultImportSchedule
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = config.DefaultTimeZone
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if _, err := parseFamilies(cfg.Families); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		lg := logger.L()
		lg.Warn().Err(err).Str("timezone", cfg.TimeZone).Msg("unknown timezone, scheduling in UTC")
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		ImportClubs(ctx, cfg, importer)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to schedule importer: %v", err)
	}

	c.Start()
	logger.LogAudit("import_scheduler_started", map[string]interface{}{
		"schedule": cfg.Schedule,
		"timezone": loc.String(),
		"clubs":    cfg.Clubs,
	})
	return c, nil
}

// ImportClubs imports the latest file of every configured club, one club failing not
// stopping the others. It returns the number of clubs that failed.
func ImportClubs(ctx context.Context, cfg *config.ImporterConfig, importer *Importer) int {
	families, _ := parseFamilies(cfg.Families)
	failed := 0
	for _, club := range cfg.Clubs {
		res, err := importer.ImportLatest(ctx, cfg.ReportsDir, club, ImportOptions{Families: families, Force: cfg.Force})
		if err != nil {
			failed++
			lg := logger.L()
			lg.Error().Err(err).Str("club_id", club).Msg("scheduled import failed")
			logger.LogAudit("import_failed", map[string]interface{}{"club_id": club, "error": err.Error()})
			continue
		}
		if res.Duplicate {
			continue
		}
		lg := logger.L()
		lg.Info().Str("club_id", club).Str("run_id", res.Run.RunID).Msg("scheduled import done")
	}
	return failed
}

func parseFamilies(names []string) ([]report.Family, error) {
	var out []report.Family
	for _, n := range names {
		f, err := report.ParseFamily(n)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
