package governor

import (
	"context"
	"errors"
	"testing"
	"time"

	"DialGovernor/internal/dialer"
	"DialGovernor/internal/leads"
	"DialGovernor/internal/ledger"
	"DialGovernor/internal/model"
	"DialGovernor/internal/override"
	"DialGovernor/internal/store"
)

const account = "acct-1"

// Monday 2026-06-01 18:02 UTC, inside the 09:00-20:00 test window.
var testNow = time.Date(2026, 6, 1, 18, 2, 0, 0, time.UTC)

type fakeDialer struct {
	started  []string
	stopped  []string
	extended []int
	startErr error
	stopErr  error
}

func (f *fakeDialer) Name() string { return "fake" }

func (f *fakeDialer) StartRun(_ context.Context, run *model.Run) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, run.ID)
	return nil
}

func (f *fakeDialer) StopRun(_ context.Context, _, runID string) error {
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stopped = append(f.stopped, runID)
	return nil
}

func (f *fakeDialer) ExtendRun(_ context.Context, _, _ string, extraLeads int) error {
	f.extended = append(f.extended, extraLeads)
	return nil
}

var _ dialer.Dialer = (*fakeDialer)(nil)

type harness struct {
	gov  *Governor
	mem  *store.Memory
	dial *fakeDialer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := store.NewMemory()
	fd := &fakeDialer{}
	g := New(mem, leads.NewChecker(mem, 0), ledger.NewReader(mem), fd, Params{
		Override:      override.Params{DialsPerHour: 60, MinutesPerCall: 3, CostPerMinute: 15},
		MaxLeadTarget: 500,
	})
	g.now = func() time.Time { return testNow }

	ctx := context.Background()
	cfg := &model.CampaignConfig{
		AccountID:   account,
		Mode:        model.ModeBudget,
		BudgetLimit: 1500,
		WindowStart: model.TimeOfDay{Hour: 9},
		WindowEnd:   model.TimeOfDay{Hour: 20},
		ActiveDays: model.WeekdaySet{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		Timezone: "UTC",
	}
	if err := mem.SaveCampaignConfig(ctx, cfg); err != nil {
		t.Fatal(err)
	}
	if err := mem.SetBalance(ctx, account, model.Balance{Available: 5000, MinimumRequired: 1000}); err != nil {
		t.Fatal(err)
	}
	if err := mem.AddLeadSource(ctx, "src-1", account, "spring sheet"); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"lead-1", "lead-2", "lead-3"} {
		if err := mem.AddLead(ctx, &model.Lead{
			ID:          id,
			AccountID:   account,
			Phone:       "+15550000000",
			SourceID:    "src-1",
			Disposition: model.DispositionNew,
			CreatedAt:   testNow.AddDate(0, 0, -10),
		}); err != nil {
			t.Fatal(err)
		}
	}
	return &harness{gov: g, mem: mem, dial: fd}
}

func (h *harness) setNow(t *testing.T, now time.Time) {
	t.Helper()
	h.gov.now = func() time.Time { return now }
}

func (h *harness) launch(t *testing.T, trigger model.RunTrigger) *model.Run {
	t.Helper()
	run, err := h.gov.Launch(context.Background(), account, LaunchRequest{
		Mode:        model.ModeBudget,
		BudgetLimit: 1500,
		Trigger:     trigger,
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	return run
}

func (h *harness) spend(t *testing.T, runID string, cost int64) {
	t.Helper()
	err := h.mem.RecordCall(context.Background(), account, runID, "lead-1",
		testNow.Add(-time.Hour), cost, "contacted", false)
	if err != nil {
		t.Fatal(err)
	}
}

func (h *harness) status(t *testing.T) *model.CampaignRuntime {
	t.Helper()
	rt, err := h.gov.Status(context.Background(), account)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	return rt
}

func TestStatus_StoppedWhenNoRun(t *testing.T) {
	h := newHarness(t)
	rt := h.status(t)
	if rt.State != model.StateStopped {
		t.Fatalf("state = %s, want stopped", rt.State)
	}
}

func TestStatus_BalanceOutranksEverything(t *testing.T) {
	h := newHarness(t)
	h.launch(t, model.TriggerManual)
	h.spend(t, "r", 9999) // budget also exhausted
	if err := h.mem.SetBalance(context.Background(), account, model.Balance{Available: 100, MinimumRequired: 1000}); err != nil {
		t.Fatal(err)
	}
	// Outside hours too; balance still wins.
	h.setNow(t, time.Date(2026, 6, 1, 22, 0, 0, 0, time.UTC))

	rt := h.status(t)
	if rt.State != model.StatePausedBalance {
		t.Fatalf("state = %s, want paused_balance", rt.State)
	}
}

func TestStatus_OutsideHoursOutranksBudgetAndLeads(t *testing.T) {
	h := newHarness(t)
	run := h.launch(t, model.TriggerManual)
	h.spend(t, run.ID, 1500) // budget exhausted
	h.setNow(t, time.Date(2026, 6, 1, 22, 0, 0, 0, time.UTC))

	rt := h.status(t)
	if rt.State != model.StateOutsideHours {
		t.Fatalf("state = %s, want outside_hours", rt.State)
	}

	// Re-evaluation is idempotent.
	if again := h.status(t); again.State != model.StateOutsideHours {
		t.Fatalf("second evaluation: state = %s, want outside_hours", again.State)
	}
}

func TestStatus_PausedBudgetAtExactLimit(t *testing.T) {
	h := newHarness(t)
	run := h.launch(t, model.TriggerManual)

	// $15.00 spent of a $15.00 daily budget.
	h.spend(t, run.ID, 1500)

	rt := h.status(t)
	if rt.State != model.StatePausedBudget {
		t.Fatalf("state = %s, want paused_budget", rt.State)
	}
	if rt.BudgetProgress() != 100 {
		t.Errorf("budget progress = %d, want 100", rt.BudgetProgress())
	}
}

func TestStatus_PausedBudgetCarriesDailyCounters(t *testing.T) {
	h := newHarness(t)
	run := h.launch(t, model.TriggerManual)
	h.spend(t, run.ID, 1500) // one call exhausts the budget

	rt := h.status(t)
	if rt.State != model.StatePausedBudget {
		t.Fatalf("state = %s, want paused_budget", rt.State)
	}
	if rt.CallsToday != 1 {
		t.Errorf("calls today = %d, want 1", rt.CallsToday)
	}
	if rt.LastOutcome != "contacted" {
		t.Errorf("last outcome = %q, want contacted", rt.LastOutcome)
	}
	if rt.SpendToday != 1500 {
		t.Errorf("spend today = %d, want 1500", rt.SpendToday)
	}
	if rt.PotentialLeads != 3 {
		t.Errorf("potential leads = %d, want 3", rt.PotentialLeads)
	}
}

func TestStatus_BudgetProgressClamped(t *testing.T) {
	h := newHarness(t)
	run := h.launch(t, model.TriggerManual)
	h.spend(t, run.ID, 4500) // 300% of limit

	rt := h.status(t)
	if rt.State != model.StatePausedBudget {
		t.Fatalf("state = %s, want paused_budget", rt.State)
	}
	if rt.BudgetProgress() != 100 {
		t.Errorf("budget progress = %d, want clamp to 100", rt.BudgetProgress())
	}
}

func TestStatus_Running(t *testing.T) {
	h := newHarness(t)
	run := h.launch(t, model.TriggerManual)
	h.spend(t, run.ID, 300)

	rt := h.status(t)
	if rt.State != model.StateRunning {
		t.Fatalf("state = %s, want running", rt.State)
	}
	if rt.RunID != run.ID {
		t.Errorf("run id = %q, want %q", rt.RunID, run.ID)
	}
	if rt.CallsToday != 1 {
		t.Errorf("calls today = %d, want 1", rt.CallsToday)
	}
	if rt.SpendToday != 300 {
		t.Errorf("spend today = %d, want 300", rt.SpendToday)
	}
}

func TestStatus_NoLeadsAllDialedToday(t *testing.T) {
	h := newHarness(t)
	h.launch(t, model.TriggerManual)
	h.dialAllLeads(t)

	rt := h.status(t)
	if rt.State != model.StateNoLeads {
		t.Fatalf("state = %s, want no_leads", rt.State)
	}
	if rt.NoLeadsReason != model.NoLeadsAllDialedToday {
		t.Errorf("reason = %q, want all_dialed_today", rt.NoLeadsReason)
	}
	if rt.PotentialLeads != 3 || rt.DialedToday != 3 {
		t.Errorf("counts = %d/%d, want 3/3", rt.PotentialLeads, rt.DialedToday)
	}
}

// dialAllLeads rewrites the account's pool with every lead marked dialed now.
func (h *harness) dialAllLeads(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	pool, err := h.mem.Leads(ctx, account)
	if err != nil {
		t.Fatal(err)
	}
	fresh := store.NewMemory()
	if err := fresh.AddLeadSource(ctx, "src-1", account, "spring sheet"); err != nil {
		t.Fatal(err)
	}
	for i := range pool {
		pool[i].LastDialedAt = testNow.Add(-30 * time.Minute)
		if err := fresh.AddLead(ctx, &pool[i]); err != nil {
			t.Fatal(err)
		}
	}
	h.gov.checker = leads.NewChecker(fresh, 0)
}

func TestStatus_MissingBalanceIsTransient(t *testing.T) {
	h := newHarness(t)
	if err := h.mem.SaveCampaignConfig(context.Background(), &model.CampaignConfig{
		AccountID:   "acct-2",
		Mode:        model.ModeBudget,
		WindowStart: model.TimeOfDay{Hour: 9},
		WindowEnd:   model.TimeOfDay{Hour: 20},
		ActiveDays:  model.WeekdaySet{time.Monday},
		Timezone:    "UTC",
	}); err != nil {
		t.Fatal(err)
	}

	_, err := h.gov.Status(context.Background(), "acct-2")
	if err == nil {
		t.Fatal("expected transient fault for missing balance row")
	}
	if !model.IsKind(err, model.KindTransientFault) {
		t.Errorf("error kind = %v, want transient_fault", err)
	}
}

func TestLaunch_PersistsConfigAndStartsRun(t *testing.T) {
	h := newHarness(t)
	run, err := h.gov.Launch(context.Background(), account, LaunchRequest{
		Mode:         model.ModeBudget,
		BudgetLimit:  2000,
		LiveTransfer: true,
		Trigger:      model.TriggerManual,
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if run.ID == "" {
		t.Error("expected run id")
	}
	if len(h.dial.started) != 1 || h.dial.started[0] != run.ID {
		t.Errorf("dialer started = %v, want [%s]", h.dial.started, run.ID)
	}

	cfg, err := h.gov.Settings(context.Background(), account)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BudgetLimit != 2000 {
		t.Errorf("persisted budget = %d, want 2000", cfg.BudgetLimit)
	}
	if !cfg.LiveTransfer {
		t.Error("expected live transfer persisted")
	}
}

func TestLaunch_NoCallableLeads(t *testing.T) {
	h := newHarness(t)
	h.gov.checker = leads.NewChecker(store.NewMemory(), 0) // empty pool: no sources

	_, err := h.gov.Launch(context.Background(), account, LaunchRequest{
		Mode: model.ModeBudget, BudgetLimit: 1500, Trigger: model.TriggerManual,
	})
	if !model.IsKind(err, model.KindNoCallableLeads) {
		t.Fatalf("error = %v, want no_callable_leads", err)
	}
	var ge *model.Error
	if !errors.As(err, &ge) {
		t.Fatal("expected *model.Error")
	}
	if ge.LeadsReason != model.NoLeadsNoSource {
		t.Errorf("sub-reason = %q, want no_source", ge.LeadsReason)
	}
	if len(h.dial.started) != 0 {
		t.Error("dialer must not be called on failed preconditions")
	}
}

func TestLaunch_Validation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		req  LaunchRequest
	}{
		{"zero budget", LaunchRequest{Mode: model.ModeBudget, Trigger: model.TriggerManual}},
		{"zero lead target", LaunchRequest{Mode: model.ModeLeadCount, Trigger: model.TriggerManual}},
		{"lead target above plan tier", LaunchRequest{Mode: model.ModeLeadCount, LeadTarget: 501, Trigger: model.TriggerManual}},
		{"unknown mode", LaunchRequest{Mode: "turbo", Trigger: model.TriggerManual}},
	}
	for _, tt := range tests {
		_, err := h.gov.Launch(context.Background(), account, tt.req)
		if !model.IsKind(err, model.KindValidation) {
			t.Errorf("%s: error = %v, want validation", tt.name, err)
		}
	}
}

func TestLaunch_InsufficientBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.mem.SetBalance(ctx, account, model.Balance{Available: 100, MinimumRequired: 1000}); err != nil {
		t.Fatal(err)
	}
	_, err := h.gov.Launch(ctx, account, LaunchRequest{
		Mode: model.ModeBudget, BudgetLimit: 1500, Trigger: model.TriggerManual,
	})
	if !model.IsKind(err, model.KindInsufficientBalance) {
		t.Fatalf("error = %v, want insufficient_balance", err)
	}

	// Auto-refill makes the same balance acceptable.
	if err := h.mem.SetBalance(ctx, account, model.Balance{Available: 100, MinimumRequired: 1000, AutoRefill: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.gov.Launch(ctx, account, LaunchRequest{
		Mode: model.ModeBudget, BudgetLimit: 1500, Trigger: model.TriggerManual,
	}); err != nil {
		t.Fatalf("launch with auto-refill: %v", err)
	}
}

func TestLaunch_AutoScheduleDisablesManual(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	enabled := true
	at := model.TimeOfDay{Hour: 9, Minute: 30}
	if _, err := h.gov.SaveSettings(ctx, account, SettingsPatch{
		AutoSchedule: &enabled, AutoScheduleAt: &at,
	}); err != nil {
		t.Fatal(err)
	}

	_, err := h.gov.Launch(ctx, account, LaunchRequest{
		Mode: model.ModeBudget, BudgetLimit: 1500, Trigger: model.TriggerManual,
	})
	if !model.IsKind(err, model.KindValidation) {
		t.Fatalf("manual launch error = %v, want validation", err)
	}

	// The schedule trigger itself is allowed through.
	if _, err := h.gov.Launch(ctx, account, LaunchRequest{
		Mode: model.ModeBudget, BudgetLimit: 1500, Trigger: model.TriggerSchedule,
	}); err != nil {
		t.Fatalf("scheduled launch: %v", err)
	}
}

func TestLaunch_SecondAttemptIsConcurrent(t *testing.T) {
	h := newHarness(t)
	h.launch(t, model.TriggerManual)

	_, err := h.gov.Launch(context.Background(), account, LaunchRequest{
		Mode: model.ModeBudget, BudgetLimit: 1500, Trigger: model.TriggerManual,
	})
	if !model.IsKind(err, model.KindConcurrentLaunch) {
		t.Fatalf("error = %v, want concurrent_launch", err)
	}
	if len(h.dial.started) != 1 {
		t.Errorf("dialer started %d runs, want 1", len(h.dial.started))
	}
}

func TestLaunch_DialerFailureEndsRun(t *testing.T) {
	h := newHarness(t)
	h.dial.startErr = errors.New("executor unreachable")

	_, err := h.gov.Launch(context.Background(), account, LaunchRequest{
		Mode: model.ModeBudget, BudgetLimit: 1500, Trigger: model.TriggerManual,
	})
	if !model.IsKind(err, model.KindTransientFault) {
		t.Fatalf("error = %v, want transient_fault", err)
	}
	run, err := h.mem.ActiveRun(context.Background(), account)
	if err != nil {
		t.Fatal(err)
	}
	if run != nil {
		t.Error("run must not stay active after a failed start request")
	}
}

func TestStop_TransitionsAndStaysDown(t *testing.T) {
	h := newHarness(t)
	h.launch(t, model.TriggerManual)

	if err := h.gov.Stop(context.Background(), account); err != nil {
		t.Fatalf("stop: %v", err)
	}
	rt := h.status(t)
	if rt.State != model.StateStopped {
		t.Fatalf("state = %s, want stopped", rt.State)
	}

	// Repeated evaluations never drift back to running without a new launch.
	for i := 0; i < 3; i++ {
		if rt := h.status(t); rt.State != model.StateStopped {
			t.Fatalf("evaluation %d: state = %s, want stopped", i, rt.State)
		}
	}

	// Stopping again is a no-op.
	if err := h.gov.Stop(context.Background(), account); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if len(h.dial.stopped) != 1 {
		t.Errorf("dialer stop calls = %d, want 1", len(h.dial.stopped))
	}
}

func TestStop_UnconfirmedStillReportsStopped(t *testing.T) {
	h := newHarness(t)
	run := h.launch(t, model.TriggerManual)
	h.dial.stopErr = errors.New("executor unreachable")

	err := h.gov.Stop(context.Background(), account)
	if !model.IsKind(err, model.KindTransientFault) {
		t.Fatalf("stop error = %v, want transient_fault", err)
	}

	// Stop was requested but not confirmed: status reports stopped with the
	// pending flag, never running.
	rt := h.status(t)
	if rt.State != model.StateStopped {
		t.Fatalf("state = %s, want stopped", rt.State)
	}
	if !rt.StopPending {
		t.Error("expected stop_pending while unconfirmed")
	}
	if rt.RunID != run.ID {
		t.Errorf("run id = %q, want %q", rt.RunID, run.ID)
	}
}

func TestRecommendAndOverride_ResumeAfterBudgetPause(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	enabled := true
	at := model.TimeOfDay{Hour: 9, Minute: 30}
	if _, err := h.gov.SaveSettings(ctx, account, SettingsPatch{
		AutoSchedule: &enabled, AutoScheduleAt: &at,
	}); err != nil {
		t.Fatal(err)
	}

	run := h.launch(t, model.TriggerSchedule)
	h.spend(t, run.ID, 1500)
	if rt := h.status(t); rt.State != model.StatePausedBudget {
		t.Fatalf("state = %s, want paused_budget", rt.State)
	}

	// 18:02 against a 20:00 close: 118 minutes remain, 20% of 118 dials
	// rounds to 24 extra leads.
	grant, err := h.gov.Recommend(ctx, account)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if grant.ExtraLeads != 24 {
		t.Errorf("recommended = %d, want 24", grant.ExtraLeads)
	}

	applied, err := h.gov.Override(ctx, account, grant.ExtraLeads)
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if want := int64(24 * 3 * 15); applied.EstimatedCost != want {
		t.Errorf("cost = %d, want %d", applied.EstimatedCost, want)
	}
	if len(h.dial.extended) != 1 || h.dial.extended[0] != 24 {
		t.Errorf("dialer extensions = %v, want [24]", h.dial.extended)
	}

	// The raised cap puts the campaign back to running on the next poll.
	if rt := h.status(t); rt.State != model.StateRunning {
		t.Fatalf("state after override = %s, want running", rt.State)
	}
}

func TestOverride_RejectedOutsideBudgetPause(t *testing.T) {
	h := newHarness(t)
	h.launch(t, model.TriggerManual)

	_, err := h.gov.Override(context.Background(), account, 24)
	if !model.IsKind(err, model.KindValidation) {
		t.Fatalf("error = %v, want validation while running", err)
	}

	_, err = h.gov.Override(context.Background(), account, 9999)
	if !model.IsKind(err, model.KindValidation) {
		t.Fatalf("error = %v, want validation for oversized request", err)
	}
}
