// Package governor decides whether a campaign may run, why it is not
// running, and what remedial action is available. It reconciles budget,
// lead availability, calling hours and manual start/stop into one
// authoritative status.
package governor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"DialGovernor/internal/dialer"
	"DialGovernor/internal/leads"
	"DialGovernor/internal/ledger"
	"DialGovernor/internal/model"
	"DialGovernor/internal/override"
)

// Store persists campaign configs and runs. Implemented by store.SQLite and
// store.Memory.
type Store interface {
	CampaignConfig(ctx context.Context, accountID string) (*model.CampaignConfig, error)
	SaveCampaignConfig(ctx context.Context, cfg *model.CampaignConfig) error
	ActiveRun(ctx context.Context, accountID string) (*model.Run, error)
	CreateRun(ctx context.Context, run *model.Run) error
	RequestStop(ctx context.Context, runID string, at time.Time) error
	EndRun(ctx context.Context, runID string, at time.Time, reason string) error
	ExtendRunBudget(ctx context.Context, runID string, extra int64) error
	CallStats(ctx context.Context, accountID string, from, to time.Time) (model.CallStats, error)
}

// Params are the deployment constants the governor needs beyond per-account
// config.
type Params struct {
	Override      override.Params
	MaxLeadTarget int // plan-tier ceiling for lead-count mode
}

// Governor is the campaign execution governor. All status evaluation is a
// pure function of collaborator reads, so concurrent pollers converge on the
// same answer without coordination; only launch/stop/override mutate.
type Governor struct {
	store   Store
	checker *leads.Checker
	ledger  *ledger.Reader
	dialer  dialer.Dialer
	params  Params

	mu  sync.Mutex // serializes launch/stop/override in this process
	now func() time.Time
}

// New creates a Governor.
func New(st Store, checker *leads.Checker, rd *ledger.Reader, d dialer.Dialer, params Params) *Governor {
	return &Governor{
		store:   st,
		checker: checker,
		ledger:  rd,
		dialer:  d,
		params:  params,
		now:     time.Now,
	}
}

// Settings returns the durable campaign config for an account.
func (g *Governor) Settings(ctx context.Context, accountID string) (*model.CampaignConfig, error) {
	cfg, err := g.store.CampaignConfig(ctx, accountID)
	if err != nil {
		return nil, model.WrapTransient(err, "load settings for %s", accountID)
	}
	return cfg, nil
}

// CheckLeads exposes the lead availability checker to callers.
func (g *Governor) CheckLeads(ctx context.Context, accountID string) (*leads.Availability, error) {
	cfg, err := g.store.CampaignConfig(ctx, accountID)
	if err != nil {
		return nil, model.WrapTransient(err, "load settings for %s", accountID)
	}
	avail, err := g.checker.Check(ctx, accountID, g.now().In(cfg.Location()))
	if err != nil {
		return nil, model.WrapTransient(err, "check leads for %s", accountID)
	}
	return avail, nil
}

func money(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s$%d.%02d", sign, minor/100, minor%100)
}

func fmtMinutes(min int) string {
	if min < 0 {
		return "later"
	}
	if min < 60 {
		return fmt.Sprintf("%dm", min)
	}
	return fmt.Sprintf("%dh%02dm", min/60, min%60)
}
