package override

import (
	"testing"
	"time"
)

var testParams = Params{DialsPerHour: 60, MinutesPerCall: 3, CostPerMinute: 15}

func TestRecommend_ProportionalToRemaining(t *testing.T) {
	// Window 09:00-20:00, now 18:02: 118 minutes remain, 60 dials/hour
	// gives 118 potential dials, 20% rounds to 24.
	grant := Recommend("acct-1", 118, testParams, time.Time{}, time.Time{})
	if grant.ExtraLeads != 24 {
		t.Errorf("extra leads = %d, want 24", grant.ExtraLeads)
	}
	if want := int64(24 * 3 * 15); grant.EstimatedCost != want {
		t.Errorf("estimated cost = %d, want %d", grant.EstimatedCost, want)
	}
}

func TestRecommend_Clamping(t *testing.T) {
	tests := []struct {
		name             string
		remainingMinutes int
		want             int
	}{
		{"window already closed", 0, MinExtraLeads},
		{"negative treated as closed", -30, MinExtraLeads},
		{"tiny remainder clamps to floor", 15, MinExtraLeads},
		{"huge remainder clamps to ceiling", 6000, MaxExtraLeads},
	}
	for _, tt := range tests {
		grant := Recommend("acct-1", tt.remainingMinutes, testParams, time.Time{}, time.Time{})
		if grant.ExtraLeads != tt.want {
			t.Errorf("%s: extra leads = %d, want %d", tt.name, grant.ExtraLeads, tt.want)
		}
	}
}

func TestRecommend_MonotoneInRemainingMinutes(t *testing.T) {
	prev := 0
	for minutes := 0; minutes <= 1440; minutes += 7 {
		grant := Recommend("acct-1", minutes, testParams, time.Time{}, time.Time{})
		if grant.ExtraLeads < prev {
			t.Fatalf("recommendation decreased at %d minutes: %d < %d", minutes, grant.ExtraLeads, prev)
		}
		if grant.ExtraLeads < MinExtraLeads || grant.ExtraLeads > MaxExtraLeads {
			t.Fatalf("recommendation %d outside [%d, %d]", grant.ExtraLeads, MinExtraLeads, MaxExtraLeads)
		}
		prev = grant.ExtraLeads
	}
}

func TestRecommend_CarriesExpiry(t *testing.T) {
	close := time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC)
	now := time.Date(2026, 6, 1, 18, 2, 0, 0, time.UTC)
	grant := Recommend("acct-1", 118, testParams, close, now)
	if !grant.ExpiresAt.Equal(close) {
		t.Errorf("expires at = %v, want %v", grant.ExpiresAt, close)
	}
	if !grant.CreatedAt.Equal(now) {
		t.Errorf("created at = %v, want %v", grant.CreatedAt, now)
	}
	if grant.AccountID != "acct-1" {
		t.Errorf("account = %q, want acct-1", grant.AccountID)
	}
}
