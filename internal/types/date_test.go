package types

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "regular date",
			input: "15/03/2026",
			want:  time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "first of january",
			input: "01/01/2026",
			want:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "leap day",
			input: "29/02/2024",
			want:  time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "iso format rejected",
			input:   "2026-03-15",
			wantErr: true,
		},
		{
			name:    "month day swapped out of range",
			input:   "03/15/2026",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "nonsense",
			input:   "not a date",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatDateRoundTrip(t *testing.T) {
	want := "07/01/2026"
	parsed, err := ParseDate(want)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := FormatDate(parsed); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNewDayRange(t *testing.T) {
	r := NewDayRange(
		time.Date(2026, 3, 10, 14, 25, 3, 0, time.UTC),
		time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC),
	)

	wantStart := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if !r.Start.Equal(wantStart) {
		t.Errorf("start: got %v, want %v", r.Start, wantStart)
	}

	wantEnd := time.Date(2026, 3, 12, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !r.End.Equal(wantEnd) {
		t.Errorf("end: got %v, want %v", r.End, wantEnd)
	}
}

func TestDateRangeContains(t *testing.T) {
	r := NewDayRange(
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
	)

	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"start boundary", r.Start, true},
		{"end boundary", r.End, true},
		{"inside", time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC), true},
		{"just before", r.Start.Add(-time.Millisecond), false},
		{"just after", r.End.Add(time.Millisecond), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.ts); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.ts, got, tt.want)
			}
		})
	}
}

func TestDateRangeValidate(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	if err := NewDayRange(day, day).Validate(); err != nil {
		t.Errorf("single day range should be valid, got %v", err)
	}

	if err := (DateRange{}).Validate(); err == nil {
		t.Error("zero range should be invalid")
	}
	if err := (DateRange{Start: day}).Validate(); err == nil {
		t.Error("range without end should be invalid")
	}

	inverted := DateRange{Start: day.AddDate(0, 0, 1), End: day}
	if err := inverted.Validate(); err == nil {
		t.Error("inverted range should be invalid")
	}
}

func TestSortableTimestampOrdering(t *testing.T) {
	earlier := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	later := time.Date(2026, 3, 10, 9, 0, 0, int(5*time.Millisecond), time.UTC)

	a := FormatSortableTimestamp(earlier)
	b := FormatSortableTimestamp(later)
	if !(a < b) {
		t.Errorf("lexicographic order broken: %q should sort before %q", a, b)
	}

	parsed, err := ParseSortableTimestamp(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !parsed.Equal(later) {
		t.Errorf("round trip: got %v, want %v", parsed, later)
	}
}
