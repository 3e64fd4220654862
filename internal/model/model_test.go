package model

import (
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", TimeOfDay{Hour: 9}, false},
		{"20:30", TimeOfDay{Hour: 20, Minute: 30}, false},
		{"00:00", TimeOfDay{}, false},
		{"23:59", TimeOfDay{Hour: 23, Minute: 59}, false},
		{"24:00", TimeOfDay{}, true},
		{"09:60", TimeOfDay{}, true},
		{"-1:00", TimeOfDay{}, true},
		{"0900", TimeOfDay{}, true},
		{"nine:thirty", TimeOfDay{}, true},
		{"", TimeOfDay{}, true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimeOfDay(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTimeOfDayString(t *testing.T) {
	got := TimeOfDay{Hour: 9, Minute: 5}.String()
	if got != "09:05" {
		t.Errorf("String() = %q, want 09:05", got)
	}
}

func TestWeekdaySetRoundtrip(t *testing.T) {
	set := WeekdaySet{time.Friday, time.Monday, time.Monday, time.Wednesday}
	s := set.String()
	if s != "1,3,5" {
		t.Fatalf("String() = %q, want 1,3,5 (sorted, deduplicated)", s)
	}

	parsed, err := ParseWeekdaySet(s)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []time.Weekday{time.Monday, time.Wednesday, time.Friday} {
		if !parsed.Contains(d) {
			t.Errorf("parsed set missing %s", d)
		}
	}
	if parsed.Contains(time.Sunday) {
		t.Error("parsed set should not contain Sunday")
	}

	if _, err := ParseWeekdaySet("1,7"); err == nil {
		t.Error("expected error for weekday 7")
	}
	empty, err := ParseWeekdaySet("")
	if err != nil || len(empty) != 0 {
		t.Errorf("ParseWeekdaySet(\"\") = %v, %v, want empty set", empty, err)
	}
}

func TestBudgetProgressClamps(t *testing.T) {
	tests := []struct {
		name  string
		spend int64
		limit int64
		want  int
	}{
		{"zero limit", 500, 0, 0},
		{"partial", 750, 1500, 50},
		{"exact", 1500, 1500, 100},
		{"over limit", 4500, 1500, 100},
		{"negative spend", -10, 1500, 0},
	}
	for _, tt := range tests {
		rt := CampaignRuntime{SpendToday: tt.spend, BudgetLimit: tt.limit}
		if got := rt.BudgetProgress(); got != tt.want {
			t.Errorf("%s: BudgetProgress() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestRunActive(t *testing.T) {
	var nilRun *Run
	if nilRun.Active() {
		t.Error("nil run should not be active")
	}
	run := &Run{ID: "run-1"}
	if !run.Active() {
		t.Error("run without ended_at should be active")
	}
	ended := time.Now()
	run.EndedAt = &ended
	if run.Active() {
		t.Error("ended run should not be active")
	}
}

func TestLeadCallable(t *testing.T) {
	now := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	fresh := func() Lead {
		return Lead{
			ID:          "lead-1",
			Disposition: DispositionNew,
			CreatedAt:   now.AddDate(0, 0, -10),
		}
	}

	l := fresh()
	if !l.Callable(now, 0) {
		t.Error("new undialed lead should be callable")
	}

	l = fresh()
	l.LastDialedAt = now.Add(-2 * time.Hour)
	if l.Callable(now, 0) {
		t.Error("lead dialed earlier today should not be callable")
	}
	l.LastDialedAt = now.AddDate(0, 0, -1)
	if !l.Callable(now, 0) {
		t.Error("lead dialed yesterday should be callable again")
	}

	for _, d := range []Disposition{DispositionNotInterested, DispositionDead, DispositionDisqualified} {
		l = fresh()
		l.Disposition = d
		if l.Callable(now, 0) {
			t.Errorf("lead with terminal disposition %s should not be callable", d)
		}
	}

	l = fresh()
	l.CreatedAt = now.Add(-30 * time.Minute)
	if l.Callable(now, time.Hour) {
		t.Error("lead younger than the age gate should not be callable")
	}
	if !l.Callable(now, 0) {
		t.Error("age gate disabled should allow the young lead")
	}
}

func TestBalanceSufficient(t *testing.T) {
	tests := []struct {
		name string
		bal  Balance
		want bool
	}{
		{"above minimum", Balance{Available: 5000, MinimumRequired: 1000}, true},
		{"at minimum", Balance{Available: 1000, MinimumRequired: 1000}, true},
		{"below minimum", Balance{Available: 999, MinimumRequired: 1000}, false},
		{"below but auto-refill", Balance{Available: 0, MinimumRequired: 1000, AutoRefill: true}, true},
	}
	for _, tt := range tests {
		if got := tt.bal.Sufficient(); got != tt.want {
			t.Errorf("%s: Sufficient() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
