package scheduler

import (
	"context"
	"testing"
	"time"

	"DialGovernor/internal/governor"
	"DialGovernor/internal/model"
)

type fakeLauncher struct {
	state     model.State
	cfg       *model.CampaignConfig
	launched  []governor.LaunchRequest
	launchErr error
}

func (f *fakeLauncher) Status(_ context.Context, accountID string) (*model.CampaignRuntime, error) {
	return &model.CampaignRuntime{AccountID: accountID, State: f.state}, nil
}

func (f *fakeLauncher) Launch(_ context.Context, _ string, req governor.LaunchRequest) (*model.Run, error) {
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	f.launched = append(f.launched, req)
	return &model.Run{ID: "run-1"}, nil
}

func (f *fakeLauncher) Settings(_ context.Context, _ string) (*model.CampaignConfig, error) {
	return f.cfg, nil
}

func testConfig() *model.CampaignConfig {
	return &model.CampaignConfig{
		AccountID:      "acct-1",
		Mode:           model.ModeBudget,
		BudgetLimit:    1500,
		AutoSchedule:   true,
		AutoScheduleAt: model.TimeOfDay{Hour: 9, Minute: 30},
		ActiveDays:     model.WeekdaySet{time.Monday, time.Wednesday, time.Friday},
		Timezone:       "America/New_York",
	}
}

func TestSpec(t *testing.T) {
	cfg := testConfig()
	want := "CRON_TZ=America/New_York 0 30 9 * * 1,3,5"
	if got := Spec(cfg); got != want {
		t.Errorf("spec = %q, want %q", got, want)
	}

	cfg.Timezone = ""
	if got := Spec(cfg); got != "0 30 9 * * 1,3,5" {
		t.Errorf("spec without tz = %q", got)
	}
}

func TestApply_RegistersReplacesRemoves(t *testing.T) {
	fl := &fakeLauncher{state: model.StateStopped, cfg: testConfig()}
	s := New(fl)
	ctx := context.Background()

	cfg := testConfig()
	s.Apply(ctx, cfg)
	if len(s.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(s.entries))
	}
	first := s.entries[cfg.AccountID]

	// Unchanged settings keep the same job.
	s.Apply(ctx, cfg)
	if s.entries[cfg.AccountID] != first {
		t.Error("unchanged config must not replace the job")
	}

	// A new trigger time replaces the job.
	cfg.AutoScheduleAt = model.TimeOfDay{Hour: 10}
	s.Apply(ctx, cfg)
	if s.entries[cfg.AccountID] == first {
		t.Error("changed config must replace the job")
	}

	// Toggling auto-schedule off removes it.
	cfg.AutoSchedule = false
	s.Apply(ctx, cfg)
	if len(s.entries) != 0 {
		t.Fatalf("entries after disable = %d, want 0", len(s.entries))
	}
}

func TestFire_LaunchesWithStoredSettings(t *testing.T) {
	fl := &fakeLauncher{state: model.StateStopped, cfg: testConfig()}
	s := New(fl)

	s.fire(context.Background(), "acct-1")
	if len(fl.launched) != 1 {
		t.Fatalf("launched = %d, want 1", len(fl.launched))
	}
	req := fl.launched[0]
	if req.Trigger != model.TriggerSchedule {
		t.Errorf("trigger = %s, want schedule", req.Trigger)
	}
	if req.Mode != model.ModeBudget || req.BudgetLimit != 1500 {
		t.Errorf("request = %+v, want stored mode/budget", req)
	}
}

func TestFire_SkipsWhenRunningOrOutsideHours(t *testing.T) {
	for _, state := range []model.State{model.StateRunning, model.StateOutsideHours, model.StatePausedBudget} {
		fl := &fakeLauncher{state: state, cfg: testConfig()}
		s := New(fl)
		s.fire(context.Background(), "acct-1")
		if len(fl.launched) != 0 {
			t.Errorf("state %s: fired a launch, want skip", state)
		}
	}
}
