package dispatch

import (
	"testing"

	"telecast/internal/model"
)

func TestAdmitted(t *testing.T) {
	t.Parallel()

	mustTOD := func(s string) model.TimeOfDay {
		t.Helper()
		tod, err := model.ParseTimeOfDay(s)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q): %v", s, err)
		}
		return tod
	}
	start, end := mustTOD("09:00"), mustTOD("18:00")

	tests := []struct {
		name string
		now  string
		want bool
	}{
		{"inside window", "12:30", true},
		{"exactly at start", "09:00", true},
		{"exactly at end", "18:00", true},
		{"one minute before start", "08:59", false},
		{"one minute after end", "18:01", false},
		{"midnight", "00:00", false},
	}
	for _, tc := range tests {
		now := mustTOD(tc.now)
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := admitted(now, start, end); got != tc.want {
				t.Fatalf("admitted(%s, %s, %s) = %v, want %v", now, start, end, got, tc.want)
			}
		})
	}
}
