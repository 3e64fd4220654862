// Package override sizes the extra-lead allowance offered after a budget
// pause. The recommendation is proportional to the calling time left today,
// clamped so it can be neither trivial nor runaway.
package override

import (
	"math"
	"time"

	"DialGovernor/internal/model"
)

const (
	// Share of remaining theoretical dial capacity offered as an override.
	capacityShare = 0.20

	MinExtraLeads = 10
	MaxExtraLeads = 200
)

// Params are the account's throughput and cost constants.
type Params struct {
	DialsPerHour   int
	MinutesPerCall float64
	CostPerMinute  int64 // minor units
}

// Recommend computes a bounded extra-lead grant from the minutes remaining
// until the calling window closes. windowClose becomes the grant's implicit
// expiry.
func Recommend(accountID string, remainingMinutes int, p Params, windowClose, now time.Time) model.OverrideGrant {
	if remainingMinutes < 0 {
		remainingMinutes = 0
	}
	potentialDials := math.Round(float64(remainingMinutes) / 60.0 * float64(p.DialsPerHour))
	recommended := int(math.Round(potentialDials * capacityShare))
	if recommended < MinExtraLeads {
		recommended = MinExtraLeads
	}
	if recommended > MaxExtraLeads {
		recommended = MaxExtraLeads
	}
	return model.OverrideGrant{
		AccountID:     accountID,
		ExtraLeads:    recommended,
		EstimatedCost: EstimateCost(recommended, p),
		ExpiresAt:     windowClose,
		CreatedAt:     now,
	}
}

// EstimateCost prices a batch of extra leads in minor units.
func EstimateCost(leads int, p Params) int64 {
	return int64(math.Round(float64(leads) * p.MinutesPerCall * float64(p.CostPerMinute)))
}
