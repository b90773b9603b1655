package model

import (
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    TimeOfDay
		wantErr bool
	}{
		{raw: "00:00", want: 0},
		{raw: "07:30", want: 450},
		{raw: "23:59", want: 23*60 + 59},
		{raw: "9:05", want: 545},
		{raw: "24:00", wantErr: true},
		{raw: "12:60", wantErr: true},
		{raw: "1230", wantErr: true},
		{raw: "ab:cd", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q) = %v, want error", tt.raw, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q) error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestTimeOfDayRoundTrip(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"00:00", "08:15", "23:59"} {
		tod, err := ParseTimeOfDay(raw)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q) error: %v", raw, err)
		}
		if tod.String() != raw {
			t.Fatalf("String() = %q, want %q", tod.String(), raw)
		}
	}
}

func TestTimeOfDayAt(t *testing.T) {
	t.Parallel()
	at := time.Date(2025, 3, 10, 14, 42, 59, 0, time.Local)
	if got := TimeOfDayAt(at); got != 14*60+42 {
		t.Fatalf("TimeOfDayAt = %d, want %d", got, 14*60+42)
	}
}
