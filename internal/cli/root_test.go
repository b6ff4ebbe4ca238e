package cli

import (
	"testing"
	"time"
)

func TestResolveDate(t *testing.T) {
	today := time.Now().Format("2006-01-02")

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"today", today, false},
		{"", today, false},
		{"2026-03-02", "2026-03-02", false},
		{"03/02/2026", "", true},
		{"2026-3-2", "", true},
	}
	for _, tt := range tests {
		got, err := ResolveDate(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ResolveDate(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ResolveDate(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseClockOnDate(t *testing.T) {
	got, err := ParseClockOnDate("2026-03-02", "09:30", time.UTC)
	if err != nil {
		t.Fatalf("ParseClockOnDate failed: %v", err)
	}
	want := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := ParseClockOnDate("2026-03-02", "9:30am", time.UTC); err == nil {
		t.Error("expected error for non HH:MM clock")
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		min  int
		want string
	}{
		{0, "0m"},
		{45, "45m"},
		{60, "1h"},
		{90, "1h30m"},
		{125, "2h05m"},
	}
	for _, tt := range tests {
		if got := FormatMinutes(tt.min); got != tt.want {
			t.Errorf("FormatMinutes(%d) = %q, want %q", tt.min, got, tt.want)
		}
	}
}
