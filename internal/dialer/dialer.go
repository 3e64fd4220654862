// Package dialer is the client for the external run executor. The governor
// only requests transitions here; call placement and ledger writes happen on
// the executor side.
package dialer

import (
	"context"

	"DialGovernor/internal/model"
)

// Dialer requests run transitions from the telephony executor. All calls are
// requests, not synchronous guarantees; callers confirm via the next poll.
type Dialer interface {
	StartRun(ctx context.Context, run *model.Run) error
	StopRun(ctx context.Context, accountID, runID string) error
	ExtendRun(ctx context.Context, accountID, runID string, extraLeads int) error
	Name() string
}
