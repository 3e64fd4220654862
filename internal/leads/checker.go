// Package leads decides whether an account has anything left to dial, and
// classifies why not. "All dialed today" and "permanently exhausted" are
// deliberately distinct answers: the first resolves itself tomorrow, the
// second needs new lead input.
package leads

import (
	"context"
	"fmt"
	"time"

	"DialGovernor/internal/model"
)

// Pool supplies an account's lead inventory.
type Pool interface {
	SourceCount(ctx context.Context, accountID string) (int, error)
	Leads(ctx context.Context, accountID string) ([]model.Lead, error)
}

// Availability is the checker's answer, including the counts dashboards show.
type Availability struct {
	HasCallable    bool
	Reason         model.NoLeadsReason // set only when HasCallable is false
	PotentialCount int                 // leads not in a terminal disposition
	DialedToday    int
}

// Checker classifies lead availability for an account.
type Checker struct {
	pool   Pool
	minAge time.Duration // 0 disables the age gate
}

// NewChecker creates a Checker. minAge, when positive, excludes leads younger
// than the gate from the callable set.
func NewChecker(pool Pool, minAge time.Duration) *Checker {
	return &Checker{pool: pool, minAge: minAge}
}

// Check reports whether at least one lead is callable at now. Pool failures
// come back wrapped as transient faults, never as a no-leads answer.
func (c *Checker) Check(ctx context.Context, accountID string, now time.Time) (*Availability, error) {
	sources, err := c.pool.SourceCount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("count lead sources: %w", err)
	}
	if sources == 0 {
		return &Availability{Reason: model.NoLeadsNoSource}, nil
	}

	pool, err := c.pool.Leads(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load lead pool: %w", err)
	}
	if len(pool) == 0 {
		return &Availability{Reason: model.NoLeadsEmpty}, nil
	}

	avail := &Availability{}
	callable := 0
	for i := range pool {
		l := &pool[i]
		if l.Disposition.Terminal() {
			continue
		}
		avail.PotentialCount++
		if l.DialedOn(now) {
			avail.DialedToday++
		}
		if l.Callable(now, c.minAge) {
			callable++
		}
	}

	switch {
	case callable > 0:
		avail.HasCallable = true
	case avail.PotentialCount == 0:
		avail.Reason = model.NoLeadsAllExhausted
	default:
		// Non-terminal leads remain but none is callable right now; they
		// come back tomorrow (dialed today) or once past the age gate.
		avail.Reason = model.NoLeadsAllDialedToday
	}
	return avail, nil
}
