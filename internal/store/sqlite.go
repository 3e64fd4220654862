package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"DialGovernor/internal/model"
)

// SQLite persists governor state to a SQLite database.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLite opens (or creates) the database and runs migrations.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboard reads don't block ledger writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS campaign_configs (
			account_id       TEXT PRIMARY KEY,
			mode             TEXT NOT NULL,
			budget_limit     INTEGER NOT NULL DEFAULT 0,
			lead_target      INTEGER NOT NULL DEFAULT 0,
			window_start     TEXT NOT NULL,
			window_end       TEXT NOT NULL,
			active_days      TEXT NOT NULL,
			auto_schedule    INTEGER NOT NULL DEFAULT 0,
			auto_schedule_at TEXT NOT NULL DEFAULT '09:00',
			live_transfer    INTEGER NOT NULL DEFAULT 0,
			timezone         TEXT NOT NULL DEFAULT 'UTC',
			updated_at       INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS runs (
			id                TEXT PRIMARY KEY,
			account_id        TEXT NOT NULL,
			mode              TEXT NOT NULL,
			budget_limit      INTEGER NOT NULL DEFAULT 0,
			lead_target       INTEGER NOT NULL DEFAULT 0,
			live_transfer     INTEGER NOT NULL DEFAULT 0,
			trigger_kind      TEXT NOT NULL,
			started_at        INTEGER NOT NULL,
			stop_requested_at INTEGER,
			ended_at          INTEGER,
			end_reason        TEXT
		)`,
		// One active run per account, enforced at the storage layer.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_active ON runs(account_id) WHERE ended_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_runs_account ON runs(account_id, started_at)`,

		`CREATE TABLE IF NOT EXISTS call_ledger (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id  TEXT NOT NULL,
			run_id      TEXT NOT NULL,
			lead_id     TEXT NOT NULL,
			started_at  INTEGER NOT NULL,
			cost        INTEGER NOT NULL DEFAULT 0,
			outcome     TEXT NOT NULL DEFAULT '',
			appointment INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_account_ts ON call_ledger(account_id, started_at)`,

		`CREATE TABLE IF NOT EXISTS lead_sources (
			id         TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			name       TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_account ON lead_sources(account_id)`,

		`CREATE TABLE IF NOT EXISTS leads (
			id             TEXT PRIMARY KEY,
			account_id     TEXT NOT NULL,
			phone          TEXT NOT NULL,
			source_id      TEXT NOT NULL,
			disposition    TEXT NOT NULL DEFAULT 'new',
			created_at     INTEGER NOT NULL,
			last_dialed_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_account ON leads(account_id)`,

		`CREATE TABLE IF NOT EXISTS accounts (
			account_id  TEXT PRIMARY KEY,
			balance     INTEGER NOT NULL DEFAULT 0,
			min_balance INTEGER NOT NULL DEFAULT 0,
			auto_refill INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// AccountIDs lists every account with a stored campaign config.
func (s *SQLite) AccountIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT account_id FROM campaign_configs ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CampaignConfig loads the durable policy for an account.
func (s *SQLite) CampaignConfig(ctx context.Context, accountID string) (*model.CampaignConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT account_id, mode, budget_limit, lead_target, window_start, window_end,
		       active_days, auto_schedule, auto_schedule_at, live_transfer, timezone, updated_at
		FROM campaign_configs WHERE account_id = ?`, accountID)

	var (
		cfg                       model.CampaignConfig
		start, end, days, schedAt string
		autoSched, liveTransfer   int
		updatedAt                 int64
	)
	err := row.Scan(&cfg.AccountID, &cfg.Mode, &cfg.BudgetLimit, &cfg.LeadTarget,
		&start, &end, &days, &autoSched, &schedAt, &liveTransfer, &cfg.Timezone, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", accountID, err)
	}

	if cfg.WindowStart, err = model.ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("config %s window_start: %w", accountID, err)
	}
	if cfg.WindowEnd, err = model.ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("config %s window_end: %w", accountID, err)
	}
	if cfg.AutoScheduleAt, err = model.ParseTimeOfDay(schedAt); err != nil {
		return nil, fmt.Errorf("config %s auto_schedule_at: %w", accountID, err)
	}
	if cfg.ActiveDays, err = model.ParseWeekdaySet(days); err != nil {
		return nil, fmt.Errorf("config %s active_days: %w", accountID, err)
	}
	cfg.AutoSchedule = autoSched != 0
	cfg.LiveTransfer = liveTransfer != 0
	cfg.UpdatedAt = time.Unix(updatedAt, 0)
	return &cfg, nil
}

// SaveCampaignConfig upserts the durable policy.
func (s *SQLite) SaveCampaignConfig(ctx context.Context, cfg *model.CampaignConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaign_configs
			(account_id, mode, budget_limit, lead_target, window_start, window_end,
			 active_days, auto_schedule, auto_schedule_at, live_transfer, timezone, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			mode = excluded.mode,
			budget_limit = excluded.budget_limit,
			lead_target = excluded.lead_target,
			window_start = excluded.window_start,
			window_end = excluded.window_end,
			active_days = excluded.active_days,
			auto_schedule = excluded.auto_schedule,
			auto_schedule_at = excluded.auto_schedule_at,
			live_transfer = excluded.live_transfer,
			timezone = excluded.timezone,
			updated_at = excluded.updated_at`,
		cfg.AccountID, string(cfg.Mode), cfg.BudgetLimit, cfg.LeadTarget,
		cfg.WindowStart.String(), cfg.WindowEnd.String(), cfg.ActiveDays.String(),
		boolInt(cfg.AutoSchedule), cfg.AutoScheduleAt.String(), boolInt(cfg.LiveTransfer),
		cfg.Timezone, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save config %s: %w", cfg.AccountID, err)
	}
	return nil
}

// ActiveRun returns the account's active run, or nil when none.
func (s *SQLite) ActiveRun(ctx context.Context, accountID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, mode, budget_limit, lead_target, live_transfer,
		       trigger_kind, started_at, stop_requested_at, ended_at, end_reason
		FROM runs WHERE account_id = ? AND ended_at IS NULL`, accountID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active run %s: %w", accountID, err)
	}
	return run, nil
}

// CreateRun inserts a new run. Returns ErrRunActive when the account already
// has one, which makes concurrent launches collapse to a single run.
func (s *SQLite) CreateRun(ctx context.Context, run *model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, account_id, mode, budget_limit, lead_target, live_transfer,
		                  trigger_kind, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.AccountID, string(run.Mode), run.BudgetLimit, run.LeadTarget,
		boolInt(run.LiveTransfer), string(run.Trigger), run.StartedAt.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrRunActive
		}
		return fmt.Errorf("create run %s: %w", run.ID, err)
	}
	return nil
}

// RequestStop marks the run stop-requested without ending it.
func (s *SQLite) RequestStop(ctx context.Context, runID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET stop_requested_at = ? WHERE id = ? AND ended_at IS NULL`,
		at.Unix(), runID)
	if err != nil {
		return fmt.Errorf("request stop %s: %w", runID, err)
	}
	return nil
}

// EndRun finalizes a run with an end reason.
func (s *SQLite) EndRun(ctx context.Context, runID string, at time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, end_reason = ? WHERE id = ? AND ended_at IS NULL`,
		at.Unix(), reason, runID)
	if err != nil {
		return fmt.Errorf("end run %s: %w", runID, err)
	}
	return nil
}

// ExtendRunBudget raises the run's effective budget cap by extra minor units.
func (s *SQLite) ExtendRunBudget(ctx context.Context, runID string, extra int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET budget_limit = budget_limit + ? WHERE id = ? AND ended_at IS NULL`,
		extra, runID)
	if err != nil {
		return fmt.Errorf("extend run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("extend run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// SpendBetween sums call costs in [from, to). Implements ledger.Source.
func (s *SQLite) SpendBetween(ctx context.Context, accountID string, from, to time.Time) (int64, error) {
	var spend int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cost), 0) FROM call_ledger
		WHERE account_id = ? AND started_at >= ? AND started_at < ?`,
		accountID, from.Unix(), to.Unix()).Scan(&spend)
	if err != nil {
		return 0, fmt.Errorf("sum spend %s: %w", accountID, err)
	}
	return spend, nil
}

// Balance implements ledger.Source.
func (s *SQLite) Balance(ctx context.Context, accountID string) (model.Balance, error) {
	var (
		bal        model.Balance
		autoRefill int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT balance, min_balance, auto_refill FROM accounts WHERE account_id = ?`,
		accountID).Scan(&bal.Available, &bal.MinimumRequired, &autoRefill)
	if err == sql.ErrNoRows {
		return model.Balance{}, ErrNotFound
	}
	if err != nil {
		return model.Balance{}, fmt.Errorf("load balance %s: %w", accountID, err)
	}
	bal.AutoRefill = autoRefill != 0
	return bal, nil
}

// CallStats reads today's display counters from the call ledger.
func (s *SQLite) CallStats(ctx context.Context, accountID string, from, to time.Time) (model.CallStats, error) {
	var stats model.CallStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(appointment), 0) FROM call_ledger
		WHERE account_id = ? AND started_at >= ? AND started_at < ?`,
		accountID, from.Unix(), to.Unix()).Scan(&stats.Calls, &stats.Appointments)
	if err != nil {
		return stats, fmt.Errorf("call stats %s: %w", accountID, err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT lead_id, outcome FROM call_ledger
		WHERE account_id = ? AND started_at >= ? AND started_at < ?
		ORDER BY started_at DESC, id DESC LIMIT 1`,
		accountID, from.Unix(), to.Unix())
	var leadID, outcome string
	switch err := row.Scan(&leadID, &outcome); err {
	case nil:
		stats.LastOutcome = outcome
		if outcome == "" || outcome == "in_progress" {
			stats.CurrentLeadID = leadID
		}
	case sql.ErrNoRows:
	default:
		return stats, fmt.Errorf("last call %s: %w", accountID, err)
	}
	return stats, nil
}

// SourceCount implements leads.Pool.
func (s *SQLite) SourceCount(ctx context.Context, accountID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lead_sources WHERE account_id = ?`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sources %s: %w", accountID, err)
	}
	return n, nil
}

// Leads implements leads.Pool.
func (s *SQLite) Leads(ctx context.Context, accountID string) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, phone, source_id, disposition, created_at, last_dialed_at
		FROM leads WHERE account_id = ?`, accountID)
	if err != nil {
		return nil, fmt.Errorf("load leads %s: %w", accountID, err)
	}
	defer rows.Close()

	var pool []model.Lead
	for rows.Next() {
		var (
			l          model.Lead
			createdAt  int64
			lastDialed sql.NullInt64
		)
		if err := rows.Scan(&l.ID, &l.AccountID, &l.Phone, &l.SourceID,
			&l.Disposition, &createdAt, &lastDialed); err != nil {
			return nil, err
		}
		l.CreatedAt = time.Unix(createdAt, 0)
		if lastDialed.Valid {
			l.LastDialedAt = time.Unix(lastDialed.Int64, 0)
		}
		pool = append(pool, l)
	}
	return pool, rows.Err()
}

// AddLeadSource registers a connected lead source.
func (s *SQLite) AddLeadSource(ctx context.Context, id, accountID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lead_sources (id, account_id, name, created_at) VALUES (?, ?, ?, ?)`,
		id, accountID, name, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("add lead source: %w", err)
	}
	return nil
}

// AddLead inserts a lead into the pool.
func (s *SQLite) AddLead(ctx context.Context, l *model.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastDialed any
	if !l.LastDialedAt.IsZero() {
		lastDialed = l.LastDialedAt.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (id, account_id, phone, source_id, disposition, created_at, last_dialed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.AccountID, l.Phone, l.SourceID, string(l.Disposition), l.CreatedAt.Unix(), lastDialed)
	if err != nil {
		return fmt.Errorf("add lead: %w", err)
	}
	return nil
}

// SetBalance upserts an account's prepaid balance row.
func (s *SQLite) SetBalance(ctx context.Context, accountID string, bal model.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (account_id, balance, min_balance, auto_refill)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			balance = excluded.balance,
			min_balance = excluded.min_balance,
			auto_refill = excluded.auto_refill`,
		accountID, bal.Available, bal.MinimumRequired, boolInt(bal.AutoRefill))
	if err != nil {
		return fmt.Errorf("set balance %s: %w", accountID, err)
	}
	return nil
}

// RecordCall appends one call to the ledger. In production the run executor
// writes these rows; the method exists for seeding and tests.
func (s *SQLite) RecordCall(ctx context.Context, accountID, runID, leadID string, at time.Time, cost int64, outcome string, appointment bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO call_ledger (account_id, run_id, lead_id, started_at, cost, outcome, appointment)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		accountID, runID, leadID, at.Unix(), cost, outcome, boolInt(appointment))
	if err != nil {
		return fmt.Errorf("record call: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

type runScanner interface {
	Scan(dest ...any) error
}

func scanRun(row runScanner) (*model.Run, error) {
	var (
		run              model.Run
		liveTransfer     int
		startedAt        int64
		stopReq, endedAt sql.NullInt64
		endReason        sql.NullString
	)
	err := row.Scan(&run.ID, &run.AccountID, &run.Mode, &run.BudgetLimit, &run.LeadTarget,
		&liveTransfer, &run.Trigger, &startedAt, &stopReq, &endedAt, &endReason)
	if err != nil {
		return nil, err
	}
	run.LiveTransfer = liveTransfer != 0
	run.StartedAt = time.Unix(startedAt, 0)
	if stopReq.Valid {
		t := time.Unix(stopReq.Int64, 0)
		run.StopRequestedAt = &t
	}
	if endedAt.Valid {
		t := time.Unix(endedAt.Int64, 0)
		run.EndedAt = &t
	}
	run.EndReason = endReason.String
	return &run, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
