package dialer

import (
	"context"
	"log"

	"DialGovernor/internal/model"
)

// NoopDialer is used when no executor endpoint is configured (dry-run mode).
// Requests are logged and acknowledged.
type NoopDialer struct{}

func NewNoopDialer() *NoopDialer { return &NoopDialer{} }

func (n *NoopDialer) Name() string { return "noop" }

func (n *NoopDialer) StartRun(_ context.Context, run *model.Run) error {
	log.Printf("[INFO] noop dialer: start run %s for account %s (%s)", run.ID, run.AccountID, run.Mode)
	return nil
}

func (n *NoopDialer) StopRun(_ context.Context, accountID, runID string) error {
	log.Printf("[INFO] noop dialer: stop run %s for account %s", runID, accountID)
	return nil
}

func (n *NoopDialer) ExtendRun(_ context.Context, accountID, runID string, extraLeads int) error {
	log.Printf("[INFO] noop dialer: extend run %s for account %s by %d leads", runID, accountID, extraLeads)
	return nil
}
