package domain

import "testing"

func TestDailyProgressPercent(t *testing.T) {
	cases := []struct {
		items []string
		want  int
	}{
		{nil, 0},
		{[]string{ProgressBreakfast}, 17},
		{[]string{ProgressBreakfast, ProgressLunch, ProgressDinner}, 50},
		{[]string{ProgressMorningDrink, ProgressBreakfast, ProgressLunch, ProgressDinner, ProgressNightDrink}, 83},
		{ProgressItems, 100},
	}
	for i, c := range cases {
		var p DailyProgress
		for _, item := range c.items {
			p.Toggle(item)
		}
		if got := p.Percent(); got != c.want {
			t.Fatalf("case %d expected %d%%, got %d%%", i, c.want, got)
		}
	}
}

func TestDailyProgressToggle(t *testing.T) {
	var p DailyProgress
	if !p.Toggle(ProgressWorkout) || !p.Workout {
		t.Fatalf("expected workout toggled on")
	}
	if !p.Toggle(ProgressWorkout) || p.Workout {
		t.Fatalf("expected workout toggled off")
	}
	if p.Toggle("nap") {
		t.Fatalf("expected unknown item rejected")
	}
	if p.Completed() != 0 {
		t.Fatalf("expected no completed items, got %d", p.Completed())
	}
}
