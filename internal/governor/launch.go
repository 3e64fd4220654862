package governor

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"DialGovernor/internal/model"
	"DialGovernor/internal/override"
	"DialGovernor/internal/store"
	"DialGovernor/internal/window"
)

// LaunchRequest describes one launch attempt.
type LaunchRequest struct {
	Mode         model.Mode
	BudgetLimit  int64 // minor units, budget mode only
	LeadTarget   int   // lead-count mode only
	LiveTransfer bool
	Trigger      model.RunTrigger
}

// Launch validates preconditions in a fixed order, persists the chosen
// execution mode, and requests a run start from the dialer. The start is
// asynchronous: callers must poll Status rather than assume running.
//
// Launch is idempotent against concurrent attempts: the second of two
// near-simultaneous launches fails with KindConcurrentLaunch, which callers
// treat as a no-op success.
func (g *Governor) Launch(ctx context.Context, accountID string, req LaunchRequest) (*model.Run, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cfg, err := g.store.CampaignConfig(ctx, accountID)
	if err != nil {
		return nil, model.WrapTransient(err, "load campaign config for %s", accountID)
	}
	now := g.now().In(cfg.Location())

	// Precondition 1: callable leads must exist, with the specific sub-reason
	// on failure so the caller can route to the right remedial screen.
	avail, err := g.checker.Check(ctx, accountID, now)
	if err != nil {
		return nil, model.WrapTransient(err, "check leads for %s", accountID)
	}
	if !avail.HasCallable {
		return nil, &model.Error{
			Kind:        model.KindNoCallableLeads,
			Remedy:      leadRemedy(avail.Reason),
			LeadsReason: avail.Reason,
			Message:     noLeadsMessage(avail.Reason),
		}
	}

	// Preconditions 2 and 3: the mode's cap must be usable.
	switch req.Mode {
	case model.ModeBudget:
		if req.BudgetLimit <= 0 {
			return nil, model.NewError(model.KindValidation, model.RemedySettings,
				"budget limit must be greater than zero")
		}
	case model.ModeLeadCount:
		if req.LeadTarget <= 0 {
			return nil, model.NewError(model.KindValidation, model.RemedySettings,
				"lead target must be greater than zero")
		}
		if req.LeadTarget > g.params.MaxLeadTarget {
			return nil, model.NewError(model.KindValidation, model.RemedySettings,
				"lead target %d exceeds the plan maximum of %d", req.LeadTarget, g.params.MaxLeadTarget)
		}
	default:
		return nil, model.NewError(model.KindValidation, model.RemedySettings,
			"unknown execution mode %q", req.Mode)
	}

	// Precondition 4: balance must be sufficient or auto-refill enabled.
	bal, err := g.ledger.Balance(ctx, accountID)
	if err != nil {
		return nil, model.WrapTransient(err, "read balance for %s", accountID)
	}
	if !bal.Sufficient() {
		return nil, model.NewError(model.KindInsufficientBalance, model.RemedyBilling,
			"prepaid balance %s is below the %s minimum", money(bal.Available), money(bal.MinimumRequired))
	}

	// Precondition 5: auto-schedule owns launches while enabled; manual
	// launches would risk duplicate concurrent runs. The budget-pause
	// override path goes through Override, not Launch.
	if req.Trigger == model.TriggerManual && cfg.AutoSchedule {
		return nil, model.NewError(model.KindValidation, model.RemedySettings,
			"manual launch is disabled while auto-schedule is on")
	}

	active, err := g.store.ActiveRun(ctx, accountID)
	if err != nil {
		return nil, model.WrapTransient(err, "load active run for %s", accountID)
	}
	if active.Active() {
		return nil, model.NewError(model.KindConcurrentLaunch, model.RemedyRetry,
			"run %s is already active", active.ID)
	}

	cfg.Mode = req.Mode
	if req.Mode == model.ModeBudget {
		cfg.BudgetLimit = req.BudgetLimit
	} else {
		cfg.LeadTarget = req.LeadTarget
	}
	cfg.LiveTransfer = req.LiveTransfer
	if err := g.store.SaveCampaignConfig(ctx, cfg); err != nil {
		return nil, model.WrapTransient(err, "save campaign config for %s", accountID)
	}

	run := &model.Run{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		Mode:         req.Mode,
		BudgetLimit:  req.BudgetLimit,
		LeadTarget:   req.LeadTarget,
		LiveTransfer: req.LiveTransfer,
		Trigger:      req.Trigger,
		StartedAt:    now,
	}
	if err := g.store.CreateRun(ctx, run); err != nil {
		if errors.Is(err, store.ErrRunActive) {
			return nil, model.NewError(model.KindConcurrentLaunch, model.RemedyRetry,
				"a run is already active")
		}
		return nil, model.WrapTransient(err, "create run for %s", accountID)
	}

	if err := g.dialer.StartRun(ctx, run); err != nil {
		if endErr := g.store.EndRun(ctx, run.ID, g.now(), "start failed"); endErr != nil {
			log.Printf("[ERROR] end run %s after failed start: %v", run.ID, endErr)
		}
		return nil, model.WrapTransient(err, "request run start for %s", accountID)
	}

	log.Printf("[INFO] run %s launched for account %s (trigger=%s mode=%s)", run.ID, accountID, req.Trigger, req.Mode)
	return run, nil
}

// Stop requests that the active run stop. Stopping is a request, not a
// synchronous guarantee: the run is marked stop-requested first, so the next
// evaluation reports stopped immediately, and the row is finalized once the
// dialer acknowledges. Stopping with no active run is a no-op.
func (g *Governor) Stop(ctx context.Context, accountID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	run, err := g.store.ActiveRun(ctx, accountID)
	if err != nil {
		return model.WrapTransient(err, "load active run for %s", accountID)
	}
	if !run.Active() {
		return nil
	}

	now := g.now()
	if err := g.store.RequestStop(ctx, run.ID, now); err != nil {
		return model.WrapTransient(err, "request stop for run %s", run.ID)
	}
	if err := g.dialer.StopRun(ctx, accountID, run.ID); err != nil {
		// The run stays stop-requested; status already reports stopped and a
		// later Stop retry can re-send the request.
		return model.WrapTransient(err, "confirm stop for run %s", run.ID)
	}
	if err := g.store.EndRun(ctx, run.ID, g.now(), "stopped"); err != nil {
		return model.WrapTransient(err, "finalize stop for run %s", run.ID)
	}
	log.Printf("[INFO] run %s stopped for account %s", run.ID, accountID)
	return nil
}

// Recommend computes the extra-lead override offered after a budget pause.
// Only a campaign currently paused on budget with auto-schedule enabled is
// eligible.
func (g *Governor) Recommend(ctx context.Context, accountID string) (*model.OverrideGrant, error) {
	rt, err := g.Status(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if rt.State != model.StatePausedBudget {
		return nil, model.NewError(model.KindValidation, model.RemedySettings,
			"override is only available after a budget pause (state is %s)", rt.State)
	}
	cfg, err := g.store.CampaignConfig(ctx, accountID)
	if err != nil {
		return nil, model.WrapTransient(err, "load campaign config for %s", accountID)
	}
	if !cfg.AutoSchedule {
		return nil, model.NewError(model.KindValidation, model.RemedySettings,
			"override requires auto-schedule to be enabled")
	}

	now := g.now().In(cfg.Location())
	pos := window.Evaluate(now, window.FromConfig(cfg))
	grant := override.Recommend(accountID, pos.MinutesUntilClose, g.params.Override,
		now.Add(time.Duration(pos.MinutesUntilClose)*time.Minute), now)
	return &grant, nil
}

// Override consumes an extra-lead grant: it raises the active run's budget
// cap by the estimated cost and asks the dialer for one more batch. Valid
// only while the campaign is paused on budget.
func (g *Governor) Override(ctx context.Context, accountID string, extraLeads int) (*model.OverrideGrant, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if extraLeads <= 0 || extraLeads > override.MaxExtraLeads {
		return nil, model.NewError(model.KindValidation, model.RemedySettings,
			"extra leads must be between 1 and %d", override.MaxExtraLeads)
	}

	rt, err := g.Status(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if rt.State != model.StatePausedBudget {
		return nil, model.NewError(model.KindValidation, model.RemedySettings,
			"override is only available after a budget pause (state is %s)", rt.State)
	}

	run, err := g.store.ActiveRun(ctx, accountID)
	if err != nil {
		return nil, model.WrapTransient(err, "load active run for %s", accountID)
	}
	if !run.Active() {
		return nil, model.NewError(model.KindValidation, model.RemedySettings,
			"no active run to override")
	}

	cfg, err := g.store.CampaignConfig(ctx, accountID)
	if err != nil {
		return nil, model.WrapTransient(err, "load campaign config for %s", accountID)
	}
	now := g.now().In(cfg.Location())
	pos := window.Evaluate(now, window.FromConfig(cfg))

	cost := override.EstimateCost(extraLeads, g.params.Override)
	if err := g.store.ExtendRunBudget(ctx, run.ID, cost); err != nil {
		return nil, model.WrapTransient(err, "extend budget for run %s", run.ID)
	}
	if err := g.dialer.ExtendRun(ctx, accountID, run.ID, extraLeads); err != nil {
		return nil, model.WrapTransient(err, "request extension for run %s", run.ID)
	}

	log.Printf("[INFO] run %s extended by %d leads (%s) for account %s", run.ID, extraLeads, money(cost), accountID)
	grant := &model.OverrideGrant{
		AccountID:     accountID,
		ExtraLeads:    extraLeads,
		EstimatedCost: cost,
		CreatedAt:     now,
	}
	if pos.Open {
		// The grant dies with the calling window.
		grant.ExpiresAt = now.Add(time.Duration(pos.MinutesUntilClose) * time.Minute)
	}
	return grant, nil
}

func leadRemedy(reason model.NoLeadsReason) model.Remedy {
	switch reason {
	case model.NoLeadsAllDialedToday:
		return model.RemedyRetry
	default:
		return model.RemedyLeadUpload
	}
}
