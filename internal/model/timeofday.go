package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time within a day, timezone-agnostic.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseTimeOfDay parses "HH:MM" (24-hour).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	t := TimeOfDay{Hour: h, Minute: m}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}

// Valid reports whether the time is within 00:00–23:59.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// WeekdaySet is the set of weekdays on which a rule applies.
type WeekdaySet []time.Weekday

// Contains reports whether d is in the set.
func (w WeekdaySet) Contains(d time.Weekday) bool {
	for _, wd := range w {
		if wd == d {
			return true
		}
	}
	return false
}

// String encodes the set as sorted comma-separated weekday numbers (0=Sunday),
// the form both the store and cron specs consume.
func (w WeekdaySet) String() string {
	nums := make([]int, 0, len(w))
	seen := make(map[int]bool, len(w))
	for _, d := range w {
		n := int(d)
		if !seen[n] {
			seen[n] = true
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// ParseWeekdaySet decodes the String form. An empty string yields an empty set.
func ParseWeekdaySet(s string) (WeekdaySet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var set WeekdaySet
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q", part)
		}
		set = append(set, time.Weekday(n))
	}
	return set, nil
}
