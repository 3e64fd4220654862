// Package ledger reads accumulated spend and prepaid balance. The governor
// only ever reads here; the run executor owns ledger writes, so evaluation
// needs no lock to stay consistent across concurrent pollers.
package ledger

import (
	"context"
	"fmt"
	"time"

	"DialGovernor/internal/model"
)

// Source supplies raw ledger rows. SpendBetween sums append-only call costs
// in [from, to).
type Source interface {
	SpendBetween(ctx context.Context, accountID string, from, to time.Time) (int64, error)
	Balance(ctx context.Context, accountID string) (model.Balance, error)
}

// Reader resolves today's spend against a daily limit.
type Reader struct {
	src Source
}

func NewReader(src Source) *Reader {
	return &Reader{src: src}
}

// SpendToday sums the account's spend for now's calendar day, in now's
// location. Minor units.
func (r *Reader) SpendToday(ctx context.Context, accountID string, now time.Time) (int64, error) {
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, 1)
	spend, err := r.src.SpendBetween(ctx, accountID, from, to)
	if err != nil {
		return 0, fmt.Errorf("sum spend for %s: %w", accountID, err)
	}
	return spend, nil
}

// Balance returns the account's prepaid balance and threshold.
func (r *Reader) Balance(ctx context.Context, accountID string) (model.Balance, error) {
	bal, err := r.src.Balance(ctx, accountID)
	if err != nil {
		return model.Balance{}, fmt.Errorf("read balance for %s: %w", accountID, err)
	}
	return bal, nil
}

// Exhausted reports whether spend has reached the daily limit. A zero or
// negative limit never exhausts.
func Exhausted(spend, limit int64) bool {
	return limit > 0 && spend >= limit
}
