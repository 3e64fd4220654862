package model

import "time"

// Mode selects how a campaign run is capped.
type Mode string

const (
	ModeBudget    Mode = "budget"
	ModeLeadCount Mode = "lead_count"
)

// Valid reports whether m is a known execution mode.
func (m Mode) Valid() bool {
	return m == ModeBudget || m == ModeLeadCount
}

// State is the authoritative campaign status. Exactly one state holds per
// account at any instant; the evaluator recomputes it fresh on every poll.
type State string

const (
	StateStopped       State = "stopped"
	StateRunning       State = "running"
	StateOutsideHours  State = "outside_hours"
	StatePausedBudget  State = "paused_budget"
	StatePausedBalance State = "paused_balance"
	StateNoLeads       State = "no_leads"
	StateError         State = "error"
)

// NoLeadsReason refines StateNoLeads so the UI can route the operator to the
// right remedial screen. AllDialedToday is informational (resume tomorrow);
// AllExhausted requires new lead input.
type NoLeadsReason string

const (
	NoLeadsNoSource       NoLeadsReason = "no_source"
	NoLeadsEmpty          NoLeadsReason = "no_leads"
	NoLeadsAllDialedToday NoLeadsReason = "all_dialed_today"
	NoLeadsAllExhausted   NoLeadsReason = "all_exhausted"
)

// CampaignConfig is the durable execution policy for one account. It is
// mutated only by the launch sequencer or settings edits, never by the
// evaluator.
type CampaignConfig struct {
	AccountID      string      `json:"account_id"`
	Mode           Mode        `json:"mode"`
	BudgetLimit    int64       `json:"budget_limit"` // minor units per day
	LeadTarget     int         `json:"lead_target"`
	WindowStart    TimeOfDay   `json:"window_start"`
	WindowEnd      TimeOfDay   `json:"window_end"`
	ActiveDays     WeekdaySet  `json:"active_days"`
	AutoSchedule   bool        `json:"auto_schedule"`
	AutoScheduleAt TimeOfDay   `json:"auto_schedule_at"`
	LiveTransfer   bool        `json:"live_transfer"`
	Timezone       string      `json:"timezone"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Location resolves the account timezone, falling back to UTC.
func (c *CampaignConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CampaignRuntime is the ephemeral status produced fresh on each evaluation.
// It is superseded wholesale every poll; nothing mutates it incrementally.
type CampaignRuntime struct {
	AccountID         string        `json:"account_id"`
	State             State         `json:"state"`
	NoLeadsReason     NoLeadsReason `json:"no_leads_reason,omitempty"`
	Reason            string        `json:"reason"`
	RunID             string        `json:"run_id,omitempty"`
	StopPending       bool          `json:"stop_pending,omitempty"`
	SpendToday        int64         `json:"spend_today"`
	BudgetLimit       int64         `json:"budget_limit"`
	CallsToday        int           `json:"calls_today"`
	AppointmentsToday int           `json:"appointments_today"`
	CurrentLeadID     string        `json:"current_lead_id,omitempty"`
	LastOutcome       string        `json:"last_outcome,omitempty"`
	PotentialLeads    int           `json:"potential_leads"`
	DialedToday       int           `json:"dialed_today"`
	EvaluatedAt       time.Time     `json:"evaluated_at"`
}

// BudgetProgress returns spend as a percentage of the budget limit, clamped
// to [0, 100] even when spend exceeds the limit.
func (r *CampaignRuntime) BudgetProgress() int {
	if r.BudgetLimit <= 0 {
		return 0
	}
	pct := int(r.SpendToday * 100 / r.BudgetLimit)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// OverrideGrant is a single-use allowance to dial past the daily budget cap.
// It expires implicitly at the next calling-window close and is never
// persisted beyond one run.
type OverrideGrant struct {
	AccountID     string    `json:"account_id"`
	ExtraLeads    int       `json:"extra_leads"`
	EstimatedCost int64     `json:"estimated_cost"` // minor units
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// RunTrigger records what started a run.
type RunTrigger string

const (
	TriggerManual   RunTrigger = "manual"
	TriggerSchedule RunTrigger = "schedule"
	TriggerOverride RunTrigger = "override"
)

// Run is one active execution instance of a campaign between launch and
// stop or exhaustion. BudgetLimit is the run's effective cap; an override
// raises it without touching the durable config.
type Run struct {
	ID              string     `json:"id"`
	AccountID       string     `json:"account_id"`
	Mode            Mode       `json:"mode"`
	BudgetLimit     int64      `json:"budget_limit"`
	LeadTarget      int        `json:"lead_target"`
	LiveTransfer    bool       `json:"live_transfer"`
	Trigger         RunTrigger `json:"trigger"`
	StartedAt       time.Time  `json:"started_at"`
	StopRequestedAt *time.Time `json:"stop_requested_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	EndReason       string     `json:"end_reason,omitempty"`
}

// Active reports whether the run has not yet ended.
func (r *Run) Active() bool {
	return r != nil && r.EndedAt == nil
}

// CallStats are today's counters read from the call ledger for display.
type CallStats struct {
	Calls         int    `json:"calls"`
	Appointments  int    `json:"appointments"`
	CurrentLeadID string `json:"current_lead_id,omitempty"`
	LastOutcome   string `json:"last_outcome,omitempty"`
}

// Balance is the account's prepaid calling balance in minor units.
type Balance struct {
	Available       int64 `json:"available"`
	MinimumRequired int64 `json:"minimum_required"`
	AutoRefill      bool  `json:"auto_refill"`
}

// Sufficient reports whether the balance allows dialing: either above the
// minimum threshold or backed by auto-refill.
func (b Balance) Sufficient() bool {
	return b.Available >= b.MinimumRequired || b.AutoRefill
}
