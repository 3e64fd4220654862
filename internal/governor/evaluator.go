package governor

import (
	"context"
	"time"

	"DialGovernor/internal/ledger"
	"DialGovernor/internal/model"
	"DialGovernor/internal/window"
)

// Status evaluates the account's authoritative campaign state, fresh on every
// call. The rule order is fixed: balance, calling window, no active run,
// budget, leads, running. Any collaborator fault comes back as a transient
// error for the caller to retry; it is never downgraded to stopped.
func (g *Governor) Status(ctx context.Context, accountID string) (*model.CampaignRuntime, error) {
	cfg, err := g.store.CampaignConfig(ctx, accountID)
	if err != nil {
		return nil, model.WrapTransient(err, "load campaign config for %s", accountID)
	}
	now := g.now().In(cfg.Location())

	rt := &model.CampaignRuntime{
		AccountID:   accountID,
		BudgetLimit: cfg.BudgetLimit,
		EvaluatedAt: now,
	}

	bal, err := g.ledger.Balance(ctx, accountID)
	if err != nil {
		return nil, model.WrapTransient(err, "read balance for %s", accountID)
	}
	spend, err := g.ledger.SpendToday(ctx, accountID, now)
	if err != nil {
		return nil, model.WrapTransient(err, "read spend for %s", accountID)
	}
	rt.SpendToday = spend

	// Display counters ride on every state, not just running: a budget-paused
	// dashboard still shows today's calls.
	stats, err := g.store.CallStats(ctx, accountID, dayStart(now), dayStart(now).AddDate(0, 0, 1))
	if err != nil {
		return nil, model.WrapTransient(err, "read call stats for %s", accountID)
	}
	rt.CallsToday = stats.Calls
	rt.AppointmentsToday = stats.Appointments
	rt.CurrentLeadID = stats.CurrentLeadID
	rt.LastOutcome = stats.LastOutcome

	avail, err := g.checker.Check(ctx, accountID, now)
	if err != nil {
		return nil, model.WrapTransient(err, "check leads for %s", accountID)
	}
	rt.PotentialLeads = avail.PotentialCount
	rt.DialedToday = avail.DialedToday

	// Rule 1: prepaid balance below threshold pauses everything.
	if !bal.Sufficient() {
		rt.State = model.StatePausedBalance
		rt.Reason = "prepaid balance " + money(bal.Available) + " is below the " +
			money(bal.MinimumRequired) + " minimum; add funds or enable auto-refill"
		return rt, nil
	}

	// Rule 2: the calling window is a hard gate regardless of run state.
	pos := window.Evaluate(now, window.FromConfig(cfg))
	if !pos.Open {
		rt.State = model.StateOutsideHours
		if pos.MinutesUntilOpen >= 0 {
			rt.Reason = "outside calling hours; opens in " + fmtMinutes(pos.MinutesUntilOpen)
		} else {
			rt.Reason = "outside calling hours; no calling days configured"
		}
		return rt, nil
	}

	run, err := g.store.ActiveRun(ctx, accountID)
	if err != nil {
		return nil, model.WrapTransient(err, "load active run for %s", accountID)
	}

	// Rule 3: no run active and none requested.
	if !run.Active() {
		rt.State = model.StateStopped
		rt.Reason = "campaign is not running"
		return rt, nil
	}
	rt.RunID = run.ID
	if run.BudgetLimit > 0 {
		rt.BudgetLimit = run.BudgetLimit
	}

	// A requested stop is reflected immediately; the dialer confirms later.
	if run.StopRequestedAt != nil {
		rt.State = model.StateStopped
		rt.StopPending = true
		rt.Reason = "stop requested, awaiting confirmation"
		return rt, nil
	}

	// Rule 4: budget-mode spend cap.
	if run.Mode == model.ModeBudget && ledger.Exhausted(spend, rt.BudgetLimit) {
		rt.State = model.StatePausedBudget
		rt.Reason = "daily budget reached: " + money(spend) + " of " + money(rt.BudgetLimit)
		return rt, nil
	}

	// Rule 5: callable leads must remain.
	if !avail.HasCallable {
		rt.State = model.StateNoLeads
		rt.NoLeadsReason = avail.Reason
		rt.Reason = noLeadsMessage(avail.Reason)
		return rt, nil
	}

	// Rule 6: nothing blocks the run.
	rt.State = model.StateRunning
	rt.Reason = "dialing in progress"
	return rt, nil
}

func noLeadsMessage(reason model.NoLeadsReason) string {
	switch reason {
	case model.NoLeadsNoSource:
		return "no lead source connected; connect a sheet or list to start calling"
	case model.NoLeadsEmpty:
		return "the connected lead source has no leads"
	case model.NoLeadsAllDialedToday:
		return "every available lead was already dialed today; calling resumes tomorrow"
	case model.NoLeadsAllExhausted:
		return "all leads are exhausted; upload new leads to continue"
	}
	return "no callable leads"
}

func dayStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
