// Package window centralizes calling-hour arithmetic. Both the status
// evaluator and the override recommender share this gate so hour/minute math
// never diverges between call sites.
package window

import (
	"time"

	"DialGovernor/internal/model"
)

// Window is an account's permitted calling range. When End is not after
// Start the window spans midnight and closes on the following day.
type Window struct {
	Start model.TimeOfDay
	End   model.TimeOfDay
	Days  model.WeekdaySet
}

// FromConfig extracts the calling window from a campaign config.
func FromConfig(cfg *model.CampaignConfig) Window {
	return Window{Start: cfg.WindowStart, End: cfg.WindowEnd, Days: cfg.ActiveDays}
}

// Position describes where now falls relative to a window.
type Position struct {
	Open              bool
	MinutesUntilClose int // 0 when closed
	MinutesUntilOpen  int // 0 when open, -1 when the window never opens
}

// Evaluate locates now within the window. now must already be in the
// account's timezone; the gate does plain wall-clock arithmetic.
func Evaluate(now time.Time, w Window) Position {
	if len(w.Days) == 0 {
		return Position{MinutesUntilOpen: -1}
	}

	nowMin := now.Hour()*60 + now.Minute()
	startMin := w.Start.Minutes()
	endMin := w.End.Minutes()

	if endMin > startMin {
		// Same-day window.
		if w.Days.Contains(now.Weekday()) && nowMin >= startMin && nowMin < endMin {
			return Position{Open: true, MinutesUntilClose: endMin - nowMin}
		}
	} else {
		// Overnight window: the active day is the day it opened.
		if w.Days.Contains(now.Weekday()) && nowMin >= startMin {
			return Position{Open: true, MinutesUntilClose: endMin + 24*60 - nowMin}
		}
		prev := (now.Weekday() + 6) % 7
		if w.Days.Contains(prev) && nowMin < endMin {
			return Position{Open: true, MinutesUntilClose: endMin - nowMin}
		}
	}

	return Position{MinutesUntilOpen: minutesUntilOpen(now, w)}
}

// minutesUntilOpen scans forward up to a week for the next opening.
func minutesUntilOpen(now time.Time, w Window) int {
	nowMin := now.Hour()*60 + now.Minute()
	startMin := w.Start.Minutes()

	for day := 0; day <= 7; day++ {
		wd := time.Weekday((int(now.Weekday()) + day) % 7)
		if !w.Days.Contains(wd) {
			continue
		}
		openAt := day*24*60 + startMin
		if openAt > nowMin {
			return openAt - nowMin
		}
	}
	return -1
}
