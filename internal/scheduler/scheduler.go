package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"ValuationSentinel/internal/model"
	"ValuationSentinel/internal/notifier"
	"ValuationSentinel/internal/recorder"
)

// ErrRefreshInProgress is returned when a refresh is requested while another is running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// Runner evaluates a watch-list.
type Runner interface {
	Run(ctx context.Context, tickers []string) *model.Run
}

// Notifier delivers a rendered report.
type Notifier interface {
	SendReport(ctx context.Context, text string) error
}

// Invalidator drops cached market data.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Scheduler owns the periodic refresh and the latest completed run.
type Scheduler struct {
	Cron      *cron.Cron
	Runner    Runner
	Watchlist []string
	Notifier  Notifier // nil disables notifications
	Recorder  recorder.Recorder
	Cache     Invalidator // nil when no cache sits in front of the provider
	Ctx       context.Context

	refreshing sync.Mutex
	mu         sync.RWMutex
	latest     *model.Run
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Runner, watchlist []string, n Notifier, rec recorder.Recorder) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Runner:    runner,
		Watchlist: watchlist,
		Notifier:  n,
		Recorder:  rec,
		Ctx:       ctx,
	}
}

// Register adds the periodic refresh job.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// Latest returns the most recent completed run, or nil before the first one.
func (s *Scheduler) Latest() *model.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// RefreshNow evaluates the watch-list, stores the run as latest and records it.
// Concurrent calls do not queue: the loser gets ErrRefreshInProgress.
// A run interrupted by ctx is discarded and ctx.Err() returned.
func (s *Scheduler) RefreshNow(ctx context.Context) (*model.Run, error) {
	return s.refresh(ctx, false)
}

// ForceRefresh is RefreshNow after dropping cached market data, so every
// ticker is fetched from the provider again.
func (s *Scheduler) ForceRefresh(ctx context.Context) (*model.Run, error) {
	return s.refresh(ctx, true)
}

func (s *Scheduler) refresh(ctx context.Context, invalidate bool) (*model.Run, error) {
	if !s.refreshing.TryLock() {
		return nil, ErrRefreshInProgress
	}
	defer s.refreshing.Unlock()

	if invalidate && s.Cache != nil {
		if err := s.Cache.Invalidate(ctx); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}

	log.Printf("[INFO] refreshing %d tickers", len(s.Watchlist))
	run := s.Runner.Run(ctx, s.Watchlist)
	if err := ctx.Err(); err != nil {
		log.Printf("[WARN] refresh interrupted, run discarded: %v", err)
		return nil, err
	}

	s.mu.Lock()
	s.latest = run
	s.mu.Unlock()

	if id, err := s.Recorder.RecordRun(run); err != nil {
		log.Printf("[ERROR] record run: %v", err)
	} else if id > 0 {
		log.Printf("[INFO] run %d recorded", id)
	}
	return run, nil
}

func (s *Scheduler) refreshTask() {
	run, err := s.RefreshNow(s.Ctx)
	if err != nil {
		log.Printf("[WARN] scheduled refresh: %v", err)
		return
	}
	if opportunities(run) == 0 {
		log.Println("[INFO] no opportunities, notification skipped")
		return
	}
	s.trySend(notifier.FormatReport(run))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	cmd := strings.ToLower(strings.TrimSpace(command))
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/report":
		return notifier.FormatReport(s.Latest())
	case "/refresh":
		run, err := s.ForceRefresh(ctx)
		if err != nil {
			return "⏳ " + err.Error()
		}
		return notifier.FormatReport(run)
	case "/skipped":
		return notifier.FormatSkipped(s.Latest())
	default:
		return "Available commands:\n• /report - latest classification\n• /refresh - refetch data and evaluate the watch-list\n• /skipped - tickers without data"
	}
}

func opportunities(run *model.Run) int {
	n := 0
	for _, r := range run.Results {
		if r.Classification.IsOpportunity() {
			n++
		}
	}
	return n
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendReport(s.Ctx, text); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
