package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"learnhub/internal/models"
	"learnhub/internal/service"

	"github.com/robfig/cron/v3"
)

// InvoiceScheduler checks once per cron tick whether today is the configured invoice generation
// day and, if auto-generation is on, invoices the previous month. Both switches are read from
// settings on every tick so admin changes apply without a restart.
type InvoiceScheduler struct {
	invoices *service.InvoiceService
	settings *service.SettingsService
	cron     *cron.Cron
	spec     string
	now      service.Clock
	timeout  time.Duration

	mu      sync.Mutex
	lastRun string
	running bool
}

func NewInvoiceScheduler(invoices *service.InvoiceService, settings *service.SettingsService, spec string) *InvoiceScheduler {
	return &InvoiceScheduler{
		invoices: invoices,
		settings: settings,
		spec:     spec,
		now:      service.SystemClock,
		timeout:  10 * time.Minute,
	}
}

func (s *InvoiceScheduler) SetClock(c service.Clock) { s.now = c }

// Start registers the job and starts the cron loop. It stops when ctx is done.
func (s *InvoiceScheduler) Start(ctx context.Context) error {
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := s.cron.AddFunc(s.spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if _, _, err := s.RunOnce(runCtx); err != nil {
			log.Printf("[scheduler] invoice generation: %v", err)
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[scheduler] invoice job started schedule=%q", s.spec)
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		log.Printf("[scheduler] invoice job stopped")
	}()
	return nil
}

// RunOnce generates last month's invoices when today is the generation day. It reports whether
// a run happened. Once a run on a given day invoices anything or finishes cleanly, later calls
// that day are no-ops; a run that failed outright is retried on the next tick.
func (s *InvoiceScheduler) RunOnce(ctx context.Context) ([]models.AffiliateInvoice, bool, error) {
	cfg := s.settings.Affiliate()
	if !cfg.InvoiceAutoGenerate {
		return nil, false, nil
	}
	now := s.now().UTC()
	if now.Day() != generationDay(cfg.InvoiceGenerationDay, now) {
		return nil, false, nil
	}
	today := now.Format("2006-01-02")
	s.mu.Lock()
	if s.lastRun == today || s.running {
		s.mu.Unlock()
		return nil, false, nil
	}
	s.running = true
	s.mu.Unlock()

	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	created, err := s.invoices.GenerateMonthlyInvoices(ctx, int(prev.Month()), prev.Year())

	s.mu.Lock()
	s.running = false
	if err == nil || len(created) > 0 {
		s.lastRun = today
	}
	s.mu.Unlock()
	log.Printf("[scheduler] invoiced %02d/%d: %d invoices", int(prev.Month()), prev.Year(), len(created))
	return created, true, err
}

// generationDay clamps the configured day into the current month, so 31 means the last day.
func generationDay(day int, now time.Time) int {
	if day < 1 {
		return 1
	}
	last := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}
