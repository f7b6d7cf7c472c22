package deadline

import (
	"testing"
	"time"
)

// Friday March 1 2024, 10:00 local.
var fridayMorning = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExtractRelativeTerms(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"today", "please send the report due today", date(2024, 3, 1)},
		{"tomorrow", "need this by tomorrow morning", date(2024, 3, 2)},
		{"this week", "let's close this week", date(2024, 3, 5)},
		{"next week", "we can sync next week", date(2024, 3, 8)},
		{"end of week", "wrap up by end of week", date(2024, 3, 6)},
		{"this month", "target is this month", date(2024, 3, 16)},
		{"next month", "postponed to next month", date(2024, 3, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.text, fridayMorning)
			if !ok {
				t.Fatalf("Extract(%q) found no date", tt.text)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("Extract(%q) = %s, want %s", tt.text, got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestExtractWeekdayTerms(t *testing.T) {
	// 2024-03-01 is a Friday (weekday index 4).
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"bare monday", "review due monday", date(2024, 3, 4)},
		{"this tuesday", "meeting this tuesday", date(2024, 3, 5)},
		{"bare friday on a friday", "submit by friday", date(2024, 3, 1)},
		{"next thursday", "deadline next thursday", date(2024, 3, 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.text, fridayMorning)
			if !ok {
				t.Fatalf("Extract(%q) found no date", tt.text)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("Extract(%q) = %s, want %s", tt.text, got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestExtractNextWeekdayForcedAheadOnSameDay(t *testing.T) {
	// "next friday" evaluated on a Friday: the bare "friday" pattern also
	// matches and resolves to today, and the earliest date wins.
	got, ok := Extract("ship it next friday", fridayMorning)
	if !ok {
		t.Fatal("found no date")
	}
	if !got.Equal(date(2024, 3, 1)) {
		t.Fatalf("got %s, want 2024-03-01", got.Format("2006-01-02"))
	}
}

func TestExtractEndOfDay(t *testing.T) {
	morning := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

	got, ok := Extract("need numbers by EOD", morning)
	if !ok || !got.Equal(date(2024, 3, 1)) {
		t.Fatalf("EOD at 09:00 = %s ok=%v, want 2024-03-01", got.Format("2006-01-02"), ok)
	}

	got, ok = Extract("need numbers by EOD", evening)
	if !ok || !got.Equal(date(2024, 3, 2)) {
		t.Fatalf("EOD at 18:00 = %s ok=%v, want 2024-03-02", got.Format("2006-01-02"), ok)
	}

	got, ok = Extract("please finish by close of business", morning)
	if !ok || !got.Equal(date(2024, 3, 1)) {
		t.Fatalf("COB at 09:00 = %s ok=%v, want 2024-03-01", got.Format("2006-01-02"), ok)
	}
}

func TestExtractMonthDay(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"future month day", "contract signing on March 15", date(2024, 3, 15)},
		{"ordinal suffix", "due April 3rd", date(2024, 4, 3)},
		{"abbreviated month", "review Sep 9", date(2024, 9, 9)},
		{"past date rolls to next year", "anniversary of Jan 15", date(2025, 1, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.text, fridayMorning)
			if !ok {
				t.Fatalf("Extract(%q) found no date", tt.text)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("Extract(%q) = %s, want %s", tt.text, got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestExtractNumericDates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"full year", "kickoff 4/10/2024", date(2024, 4, 10)},
		{"two digit year", "renewal 1/5/25", date(2025, 1, 5)},
		{"month day future", "due 3/15", date(2024, 3, 15)},
		{"month day past rolls forward", "originally 1/15", date(2025, 1, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.text, fridayMorning)
			if !ok {
				t.Fatalf("Extract(%q) found no date", tt.text)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("Extract(%q) = %s, want %s", tt.text, got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestExtractInvalidDatesSkipped(t *testing.T) {
	if _, ok := Extract("pencil in February 30", fridayMorning); ok {
		t.Fatal("February 30 should not produce a date")
	}
	if _, ok := Extract("see note 13/45", fridayMorning); ok {
		t.Fatal("13/45 should not produce a date")
	}
}

func TestExtractEarliestWins(t *testing.T) {
	got, ok := Extract("draft by tomorrow, final next month", fridayMorning)
	if !ok {
		t.Fatal("found no date")
	}
	if !got.Equal(date(2024, 3, 2)) {
		t.Fatalf("got %s, want the earlier 2024-03-02", got.Format("2006-01-02"))
	}
}

func TestExtractNoDate(t *testing.T) {
	for _, text := range []string{"", "quarterly update attached", "thanks for the help"} {
		if _, ok := Extract(text, fridayMorning); ok {
			t.Fatalf("Extract(%q) should find nothing", text)
		}
	}
}

func TestExtractDeterministic(t *testing.T) {
	a, okA := Extract("due today", fridayMorning)
	b, okB := Extract("due today", fridayMorning)
	if okA != okB || !a.Equal(b) {
		t.Fatal("same text and reference time must yield the same date")
	}
}
