// Package scheduler starts campaigns automatically at their configured
// time/day without operator action. A trigger behaves exactly like a launch
// request, gated by the schedule rule instead of a click.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"DialGovernor/internal/governor"
	"DialGovernor/internal/model"
)

// Launcher is the slice of the governor the scheduler drives.
type Launcher interface {
	Status(ctx context.Context, accountID string) (*model.CampaignRuntime, error)
	Launch(ctx context.Context, accountID string, req governor.LaunchRequest) (*model.Run, error)
	Settings(ctx context.Context, accountID string) (*model.CampaignConfig, error)
}

// Scheduler keeps one cron job per auto-scheduled account.
type Scheduler struct {
	cron *cron.Cron
	gov  Launcher

	mu      sync.Mutex
	entries map[string]entry
}

type entry struct {
	id   cron.EntryID
	spec string
}

// New creates a Scheduler.
func New(gov Launcher) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		gov:     gov,
		entries: make(map[string]entry),
	}
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[INFO] auto-schedule started")
}

// Stop stops the cron loop gracefully.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[INFO] auto-schedule stopped")
}

// Sync reconciles cron jobs with the accounts' current settings. Called at
// startup and whenever a settings poll observes a change (auto-schedule may
// be toggled from another dashboard).
func (s *Scheduler) Sync(ctx context.Context, accountIDs []string) {
	for _, id := range accountIDs {
		cfg, err := s.gov.Settings(ctx, id)
		if err != nil {
			log.Printf("[WARN] sync schedule for %s: %v", id, err)
			continue
		}
		s.Apply(ctx, cfg)
	}
}

// Apply registers, replaces or removes the account's cron job to match cfg.
// ctx bounds the triggered launches for the job's lifetime.
func (s *Scheduler) Apply(ctx context.Context, cfg *model.CampaignConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accountID := cfg.AccountID
	old, exists := s.entries[accountID]

	if !cfg.AutoSchedule || len(cfg.ActiveDays) == 0 {
		if exists {
			s.cron.Remove(old.id)
			delete(s.entries, accountID)
			log.Printf("[INFO] auto-schedule removed for account %s", accountID)
		}
		return
	}

	spec := Spec(cfg)
	if exists && old.spec == spec {
		return
	}
	if exists {
		s.cron.Remove(old.id)
	}

	id, err := s.cron.AddFunc(spec, func() { s.fire(ctx, accountID) })
	if err != nil {
		log.Printf("[ERROR] register auto-schedule for %s (%q): %v", accountID, spec, err)
		delete(s.entries, accountID)
		return
	}
	s.entries[accountID] = entry{id: id, spec: spec}
	log.Printf("[INFO] auto-schedule set for account %s: %s", accountID, spec)
}

// Spec builds the 6-field cron spec for an account's trigger rule, pinned to
// the account timezone.
func Spec(cfg *model.CampaignConfig) string {
	spec := fmt.Sprintf("0 %d %d * * %s",
		cfg.AutoScheduleAt.Minute, cfg.AutoScheduleAt.Hour, cfg.ActiveDays.String())
	if cfg.Timezone != "" {
		spec = "CRON_TZ=" + cfg.Timezone + " " + spec
	}
	return spec
}

// fire runs one trigger: it re-checks ground truth first so a rule firing
// against an already-running or out-of-window campaign never double-starts.
func (s *Scheduler) fire(ctx context.Context, accountID string) {
	rt, err := s.gov.Status(ctx, accountID)
	if err != nil {
		log.Printf("[WARN] auto-schedule status check for %s: %v", accountID, err)
		return
	}
	switch rt.State {
	case model.StateRunning, model.StatePausedBudget:
		log.Printf("[INFO] auto-schedule skip for %s: already %s", accountID, rt.State)
		return
	case model.StateOutsideHours:
		log.Printf("[INFO] auto-schedule skip for %s: outside calling hours", accountID)
		return
	}

	cfg, err := s.gov.Settings(ctx, accountID)
	if err != nil {
		log.Printf("[WARN] auto-schedule settings for %s: %v", accountID, err)
		return
	}

	_, err = s.gov.Launch(ctx, accountID, governor.LaunchRequest{
		Mode:         cfg.Mode,
		BudgetLimit:  cfg.BudgetLimit,
		LeadTarget:   cfg.LeadTarget,
		LiveTransfer: cfg.LiveTransfer,
		Trigger:      model.TriggerSchedule,
	})
	switch {
	case err == nil:
		log.Printf("[INFO] auto-schedule launched campaign for account %s", accountID)
	case model.IsKind(err, model.KindConcurrentLaunch):
		// Someone else launched between the status check and now; fine.
		log.Printf("[INFO] auto-schedule no-op for %s: run already active", accountID)
	default:
		log.Printf("[ERROR] auto-schedule launch for %s: %v", accountID, err)
	}
}
