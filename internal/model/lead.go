package model

import "time"

// Disposition is the last recorded outcome for a lead.
type Disposition string

const (
	DispositionNew           Disposition = "new"
	DispositionContacted     Disposition = "contacted"
	DispositionCallback      Disposition = "callback"
	DispositionAppointment   Disposition = "appointment"
	DispositionNotInterested Disposition = "not_interested"
	DispositionDead          Disposition = "dead"
	DispositionDisqualified  Disposition = "disqualified"
)

// Terminal reports whether the disposition permanently removes the lead from
// the callable pool.
func (d Disposition) Terminal() bool {
	switch d {
	case DispositionNotInterested, DispositionDead, DispositionDisqualified:
		return true
	}
	return false
}

// Lead is one dialable contact in an account's pool.
type Lead struct {
	ID           string      `json:"id"`
	AccountID    string      `json:"account_id"`
	Phone        string      `json:"phone"`
	SourceID     string      `json:"source_id"`
	Disposition  Disposition `json:"disposition"`
	CreatedAt    time.Time   `json:"created_at"`
	LastDialedAt time.Time   `json:"last_dialed_at"` // zero when never dialed
}

// DialedOn reports whether the lead was last dialed on the same calendar day
// as now, in now's location.
func (l *Lead) DialedOn(now time.Time) bool {
	if l.LastDialedAt.IsZero() {
		return false
	}
	y1, m1, d1 := l.LastDialedAt.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Callable reports whether the lead may be dialed at now: not in a terminal
// disposition, not already attempted today, and at least minAge old when an
// age gate is configured (minAge <= 0 disables the gate).
func (l *Lead) Callable(now time.Time, minAge time.Duration) bool {
	if l.Disposition.Terminal() {
		return false
	}
	if l.DialedOn(now) {
		return false
	}
	if minAge > 0 && now.Sub(l.CreatedAt) < minAge {
		return false
	}
	return true
}
