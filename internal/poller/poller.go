// Package poller keeps a displayed campaign status current. Status refreshes
// on a short interval and settings on a longer one; optimistic UI hints are
// strictly latency cover and are overwritten by the next successful poll no
// matter what they predicted.
package poller

import (
	"context"
	"log"
	"reflect"
	"sync"
	"time"

	"DialGovernor/internal/model"
)

// Client reads status and settings. Implemented by governor.Governor.
type Client interface {
	Status(ctx context.Context, accountID string) (*model.CampaignRuntime, error)
	Settings(ctx context.Context, accountID string) (*model.CampaignConfig, error)
}

// Snapshot is one immutable observation of campaign status.
type Snapshot struct {
	Runtime   *model.CampaignRuntime
	Confirmed bool // false for optimistic hints and synthesized error states
	At        time.Time
}

// State returns the snapshot's state, or empty for a zero snapshot.
func (s Snapshot) State() model.State {
	if s.Runtime == nil {
		return ""
	}
	return s.Runtime.State
}

// Change is the pure diff between two snapshots, used to animate transitions
// without mutable shared state.
type Change struct {
	From    model.State
	To      model.State
	Changed bool
}

// Diff compares two immutable snapshots.
func Diff(previous, current Snapshot) Change {
	c := Change{From: previous.State(), To: current.State()}
	c.Changed = c.From != c.To
	return c
}

// Options tune a Poller. Zero values take defaults.
type Options struct {
	StatusInterval   time.Duration // default 5s
	SettingsInterval time.Duration // default 1m
	MaxFailures      int           // consecutive failures before surfacing error, default 3
	OnChange         func(Change)
	OnSettings       func(*model.CampaignConfig)
}

// Poller refreshes one account's status and settings.
type Poller struct {
	client    Client
	accountID string
	opts      Options
	now       func() time.Time

	mu           sync.Mutex
	previous     Snapshot
	current      Snapshot
	optimistic   *model.State
	failures     int
	lastSettings *model.CampaignConfig
}

// New creates a Poller for one account.
func New(client Client, accountID string, opts Options) *Poller {
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = 5 * time.Second
	}
	if opts.SettingsInterval <= 0 {
		opts.SettingsInterval = time.Minute
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 3
	}
	return &Poller{
		client:    client,
		accountID: accountID,
		opts:      opts,
		now:       time.Now,
	}
}

// Run polls until ctx is cancelled. The first status and settings polls
// happen immediately.
func (p *Poller) Run(ctx context.Context) {
	p.PollStatus(ctx)
	p.PollSettings(ctx)

	statusTick := time.NewTicker(p.opts.StatusInterval)
	defer statusTick.Stop()
	settingsTick := time.NewTicker(p.opts.SettingsInterval)
	defer settingsTick.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[INFO] poller stopped for account %s", p.accountID)
			return
		case <-statusTick.C:
			p.PollStatus(ctx)
		case <-settingsTick.C:
			p.PollSettings(ctx)
		}
	}
}

// PollStatus performs one status refresh. A successful poll becomes the new
// confirmed snapshot and clears any optimistic hint. Failures are retried
// silently until MaxFailures consecutive misses, then surfaced as the error
// state; they are never downgraded to stopped.
func (p *Poller) PollStatus(ctx context.Context) {
	rt, err := p.client.Status(ctx, p.accountID)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.failures++
		if p.failures < p.opts.MaxFailures {
			log.Printf("[WARN] status poll %d/%d failed for %s: %v",
				p.failures, p.opts.MaxFailures, p.accountID, err)
			return
		}
		p.previous = p.current
		p.current = Snapshot{
			Runtime: &model.CampaignRuntime{
				AccountID:   p.accountID,
				State:       model.StateError,
				Reason:      "status temporarily unavailable, retrying",
				EvaluatedAt: p.now(),
			},
			At: p.now(),
		}
		log.Printf("[ERROR] status poll failed %d times for %s: %v", p.failures, p.accountID, err)
		p.notifyChange()
		return
	}

	p.failures = 0
	p.optimistic = nil // ground truth always wins
	p.previous = p.current
	p.current = Snapshot{Runtime: rt, Confirmed: true, At: p.now()}
	p.notifyChange()
}

// PollSettings performs one settings refresh and notifies when they changed
// (for example auto-schedule toggled from another dashboard).
func (p *Poller) PollSettings(ctx context.Context) {
	cfg, err := p.client.Settings(ctx, p.accountID)
	if err != nil {
		log.Printf("[WARN] settings poll failed for %s: %v", p.accountID, err)
		return
	}

	p.mu.Lock()
	changed := p.lastSettings == nil || !reflect.DeepEqual(p.lastSettings, cfg)
	p.lastSettings = cfg
	p.mu.Unlock()

	if changed && p.opts.OnSettings != nil {
		p.opts.OnSettings(cfg)
	}
}

func (p *Poller) notifyChange() {
	if p.opts.OnChange == nil {
		return
	}
	if change := Diff(p.previous, p.current); change.Changed {
		p.opts.OnChange(change)
	}
}

// MarkRequested records an optimistic hint (for example stopped right after
// the user clicks stop) shown until the next successful poll replaces it.
func (p *Poller) MarkRequested(state model.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := state
	p.optimistic = &s
}

// Displayed returns what the surface should show: the optimistic hint while
// one is pending, otherwise the last polled snapshot.
func (p *Poller) Displayed() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.optimistic != nil {
		rt := &model.CampaignRuntime{AccountID: p.accountID, State: *p.optimistic}
		if p.current.Runtime != nil {
			copied := *p.current.Runtime
			copied.State = *p.optimistic
			rt = &copied
		}
		return Snapshot{Runtime: rt, Confirmed: false, At: p.now()}
	}
	return p.current
}

// Confirmed returns the last confirmed snapshot state observation.
func (p *Poller) Confirmed() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}
