package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"DialGovernor/internal/model"
)

// Memory is an in-process store used by tests and dry-run mode.
type Memory struct {
	mu       sync.Mutex
	configs  map[string]model.CampaignConfig
	runs     map[string]model.Run // by run ID
	calls    []callRow
	sources  map[string]int // account -> connected source count
	leads    map[string][]model.Lead
	balances map[string]model.Balance
}

type callRow struct {
	accountID   string
	runID       string
	leadID      string
	startedAt   time.Time
	cost        int64
	outcome     string
	appointment bool
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{
		configs:  make(map[string]model.CampaignConfig),
		runs:     make(map[string]model.Run),
		sources:  make(map[string]int),
		leads:    make(map[string][]model.Lead),
		balances: make(map[string]model.Balance),
	}
}

func (m *Memory) AccountIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.configs))
	for id := range m.configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) CampaignConfig(_ context.Context, accountID string) (*model.CampaignConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	return &cfg, nil
}

func (m *Memory) SaveCampaignConfig(_ context.Context, cfg *model.CampaignConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := *cfg
	saved.UpdatedAt = time.Now()
	m.configs[cfg.AccountID] = saved
	return nil
}

func (m *Memory) ActiveRun(_ context.Context, accountID string) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run := m.activeRunLocked(accountID); run != nil {
		out := *run
		return &out, nil
	}
	return nil, nil
}

func (m *Memory) activeRunLocked(accountID string) *model.Run {
	for id, run := range m.runs {
		if run.AccountID == accountID && run.EndedAt == nil {
			r := m.runs[id]
			return &r
		}
	}
	return nil
}

func (m *Memory) CreateRun(_ context.Context, run *model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeRunLocked(run.AccountID) != nil {
		return ErrRunActive
	}
	m.runs[run.ID] = *run
	return nil
}

func (m *Memory) RequestStop(_ context.Context, runID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok || run.EndedAt != nil {
		return nil
	}
	run.StopRequestedAt = &at
	m.runs[runID] = run
	return nil
}

func (m *Memory) EndRun(_ context.Context, runID string, at time.Time, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok || run.EndedAt != nil {
		return nil
	}
	run.EndedAt = &at
	run.EndReason = reason
	m.runs[runID] = run
	return nil
}

func (m *Memory) ExtendRunBudget(_ context.Context, runID string, extra int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok || run.EndedAt != nil {
		return ErrNotFound
	}
	run.BudgetLimit += extra
	m.runs[runID] = run
	return nil
}

func (m *Memory) SpendBetween(_ context.Context, accountID string, from, to time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var spend int64
	for _, c := range m.calls {
		if c.accountID == accountID && !c.startedAt.Before(from) && c.startedAt.Before(to) {
			spend += c.cost
		}
	}
	return spend, nil
}

func (m *Memory) Balance(_ context.Context, accountID string) (model.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[accountID]
	if !ok {
		return model.Balance{}, ErrNotFound
	}
	return bal, nil
}

func (m *Memory) CallStats(_ context.Context, accountID string, from, to time.Time) (model.CallStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats model.CallStats
	var last *callRow
	for i := range m.calls {
		c := &m.calls[i]
		if c.accountID != accountID || c.startedAt.Before(from) || !c.startedAt.Before(to) {
			continue
		}
		stats.Calls++
		if c.appointment {
			stats.Appointments++
		}
		if last == nil || !c.startedAt.Before(last.startedAt) {
			last = c
		}
	}
	if last != nil {
		stats.LastOutcome = last.outcome
		if last.outcome == "" || last.outcome == "in_progress" {
			stats.CurrentLeadID = last.leadID
		}
	}
	return stats, nil
}

func (m *Memory) SourceCount(_ context.Context, accountID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sources[accountID], nil
}

func (m *Memory) Leads(_ context.Context, accountID string) ([]model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pool := m.leads[accountID]
	out := make([]model.Lead, len(pool))
	copy(out, pool)
	return out, nil
}

func (m *Memory) AddLeadSource(_ context.Context, _, accountID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[accountID]++
	return nil
}

func (m *Memory) AddLead(_ context.Context, l *model.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[l.AccountID] = append(m.leads[l.AccountID], *l)
	return nil
}

func (m *Memory) SetBalance(_ context.Context, accountID string, bal model.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[accountID] = bal
	return nil
}

func (m *Memory) RecordCall(_ context.Context, accountID, runID, leadID string, at time.Time, cost int64, outcome string, appointment bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, callRow{
		accountID:   accountID,
		runID:       runID,
		leadID:      leadID,
		startedAt:   at,
		cost:        cost,
		outcome:     outcome,
		appointment: appointment,
	})
	return nil
}

func (m *Memory) Close() error { return nil }
