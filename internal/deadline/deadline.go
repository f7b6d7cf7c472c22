// Package deadline extracts the earliest calendar date implied by free text.
// It is pure: the reference time is always passed in, never read from the
// system clock.
package deadline

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Relative time expressions, offset in days from the reference date.
var relativeTerms = []struct {
	re   *regexp.Regexp
	days int
}{
	{regexp.MustCompile(`(?i)\btoday\b`), 0},
	{regexp.MustCompile(`(?i)\btonight\b`), 0},
	{regexp.MustCompile(`(?i)\bthis evening\b`), 0},
	{regexp.MustCompile(`(?i)\btomorrow\b`), 1},
	{regexp.MustCompile(`(?i)\bthis week\b`), 4},
	{regexp.MustCompile(`(?i)\bnext week\b`), 7},
	{regexp.MustCompile(`(?i)\bend of week\b`), 5},
	{regexp.MustCompile(`(?i)\bthis month\b`), 15},
	{regexp.MustCompile(`(?i)\bnext month\b`), 30},
}

// Day-of-week terms. Target days are Monday=0..Sunday=6. Bare weekday names
// only cover Monday-Friday; weekend days need an explicit this/next prefix.
var weekdayTerms = []struct {
	re     *regexp.Regexp
	target int
	next   bool // "next X": a zero offset is pushed a full week out
}{
	{regexp.MustCompile(`(?i)\bnext\s+monday\b`), 0, true},
	{regexp.MustCompile(`(?i)\bnext\s+tuesday\b`), 1, true},
	{regexp.MustCompile(`(?i)\bnext\s+wednesday\b`), 2, true},
	{regexp.MustCompile(`(?i)\bnext\s+thursday\b`), 3, true},
	{regexp.MustCompile(`(?i)\bnext\s+friday\b`), 4, true},
	{regexp.MustCompile(`(?i)\bnext\s+saturday\b`), 5, true},
	{regexp.MustCompile(`(?i)\bnext\s+sunday\b`), 6, true},
	{regexp.MustCompile(`(?i)\bthis\s+monday\b`), 0, false},
	{regexp.MustCompile(`(?i)\bthis\s+tuesday\b`), 1, false},
	{regexp.MustCompile(`(?i)\bthis\s+wednesday\b`), 2, false},
	{regexp.MustCompile(`(?i)\bthis\s+thursday\b`), 3, false},
	{regexp.MustCompile(`(?i)\bthis\s+friday\b`), 4, false},
	{regexp.MustCompile(`(?i)\bthis\s+saturday\b`), 5, false},
	{regexp.MustCompile(`(?i)\bthis\s+sunday\b`), 6, false},
	{regexp.MustCompile(`(?i)\bmonday\b`), 0, false},
	{regexp.MustCompile(`(?i)\btuesday\b`), 1, false},
	{regexp.MustCompile(`(?i)\bwednesday\b`), 2, false},
	{regexp.MustCompile(`(?i)\bthursday\b`), 3, false},
	{regexp.MustCompile(`(?i)\bfriday\b`), 4, false},
}

// End-of-day cues resolve to today before 17:00 local, otherwise tomorrow.
var endOfDayTerms = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bEOD\b`),
	regexp.MustCompile(`(?i)\bCOB\b`),
	regexp.MustCompile(`(?i)\bend of (day|business)\b`),
	regexp.MustCompile(`(?i)\bclose of business\b`),
}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var monthDayRe = buildMonthDayRe()

func buildMonthDayRe() *regexp.Regexp {
	names := make([]string, 0, len(monthNames))
	for name := range monthNames {
		names = append(names, name)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(names, "|") + `)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
}

var (
	numericDate4Re = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	numericDate2Re = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2})\b`)
	numericDateRe  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)
)

// Weekday returns the Monday=0..Sunday=6 index of t.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// DateOf truncates t to midnight in its location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Extract returns the earliest calendar date implied by text, resolved
// against now. The boolean is false when no date cue is present.
func Extract(text string, now time.Time) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}

	today := DateOf(now)
	var found []time.Time

	for _, term := range relativeTerms {
		if term.re.MatchString(text) {
			found = append(found, today.AddDate(0, 0, term.days))
		}
	}

	current := Weekday(today)
	for _, term := range weekdayTerms {
		if term.re.MatchString(text) {
			ahead := ((term.target - current) % 7 + 7) % 7
			if ahead == 0 && term.next {
				ahead = 7
			}
			found = append(found, today.AddDate(0, 0, ahead))
		}
	}

	for _, re := range endOfDayTerms {
		if re.MatchString(text) {
			if now.Hour() < 17 {
				found = append(found, today)
			} else {
				found = append(found, today.AddDate(0, 0, 1))
			}
		}
	}

	for _, m := range monthDayRe.FindAllStringSubmatch(text, -1) {
		month := monthNames[strings.ToLower(m[1])]
		day, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if d, ok := makeDate(today.Year(), month, day, now.Location()); ok {
			if d.Before(today) {
				d, ok = makeDate(today.Year()+1, month, day, now.Location())
				if !ok {
					continue
				}
			}
			found = append(found, d)
		}
	}

	found = append(found, numericDates(text, today)...)

	if len(found) == 0 {
		return time.Time{}, false
	}
	earliest := found[0]
	for _, d := range found[1:] {
		if d.Before(earliest) {
			earliest = d
		}
	}
	return earliest, true
}

// numericDates collects MM/DD/YYYY, MM/DD/YY and MM/DD forms. Only the
// year-less form rolls past dates forward to next year.
func numericDates(text string, today time.Time) []time.Time {
	var found []time.Time
	loc := today.Location()

	for _, m := range numericDate4Re.FindAllStringSubmatch(text, -1) {
		if d, ok := parseNumeric(m[1], m[2], m[3], loc); ok {
			found = append(found, d)
		}
	}
	for _, m := range numericDate2Re.FindAllStringSubmatch(text, -1) {
		if d, ok := parseNumeric(m[1], m[2], m[3], loc); ok {
			found = append(found, d)
		}
	}
	for _, m := range numericDateRe.FindAllStringSubmatch(text, -1) {
		d, ok := parseNumeric(m[1], m[2], strconv.Itoa(today.Year()), loc)
		if !ok {
			continue
		}
		if d.Before(today) {
			d, ok = makeDate(today.Year()+1, d.Month(), d.Day(), loc)
			if !ok {
				continue
			}
		}
		found = append(found, d)
	}
	return found
}

func parseNumeric(monthStr, dayStr, yearStr string, loc *time.Location) (time.Time, bool) {
	month, err1 := strconv.Atoi(monthStr)
	day, err2 := strconv.Atoi(dayStr)
	year, err3 := strconv.Atoi(yearStr)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 {
		return time.Time{}, false
	}
	return makeDate(year, time.Month(month), day, loc)
}

// makeDate builds a date and rejects values time.Date would normalize away,
// such as February 30.
func makeDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
