// Package classify implements the two rule engines of the triage pipeline:
// the deterministic first-pass classifier that files emails into Other
// categories, and the override checker that pulls misrouted items back into
// the Work pipeline.
package classify

import (
	"regexp"
	"strings"
)

// User identifies the mailbox owner for recipient and direct-address checks.
type User struct {
	Address   string
	FirstName string
}

// Rules holds the sender registries and VIP configuration consumed by both
// classifiers. Registries are explicit state rather than package globals so
// they can differ per user and per test.
type Rules struct {
	MarketingDomains    map[string]bool
	NotificationDomains map[string]bool
	TravelDomains       map[string]bool
	CalendarSenders     map[string]bool
	VIPSenders          map[string]bool
	VIPDomains          map[string]bool
}

func newSet(values ...string) map[string]bool {
	s := make(map[string]bool, len(values))
	for _, v := range values {
		s[strings.ToLower(v)] = true
	}
	return s
}

// AddVIPs merges additional VIP senders and domains into the rules,
// lowercased. Used to fold per-user config into the default registries.
func (r *Rules) AddVIPs(senders, domains []string) {
	for _, s := range senders {
		if s != "" {
			r.VIPSenders[strings.ToLower(s)] = true
		}
	}
	for _, d := range domains {
		if d != "" {
			r.VIPDomains[strings.ToLower(d)] = true
		}
	}
}

// IsVIP reports whether the address or its domain is in the VIP registry.
func (r *Rules) IsVIP(address string) bool {
	if address == "" {
		return false
	}
	addr := strings.ToLower(address)
	if r.VIPSenders[addr] {
		return true
	}
	if d := domainOf(addr); d != "" && r.VIPDomains[d] {
		return true
	}
	return false
}

// DefaultRules returns the stock sender registries. VIP lists start empty.
func DefaultRules() *Rules {
	return &Rules{
		MarketingDomains: newSet(
			"mailchimp.com",
			"sendgrid.net",
			"constantcontact.com",
			"hubspot.com",
			"marketo.com",
			"campaign-monitor.com",
			"mailgun.org",
			"postmarkapp.com",
			"amazonses.com",
		),
		NotificationDomains: newSet(
			"microsoft.com",
			"google.com",
			"apple.com",
			"github.com",
			"slack.com",
			"atlassian.com",
			"servicenow.com",
			"workday.com",
			"asana.com",
			"trello.com",
			"notion.so",
			"figma.com",
			"dropbox.com",
			"box.com",
			"zoom.us",
		),
		TravelDomains: newSet(
			// Airlines.
			"delta.com", "united.com", "aa.com", "southwest.com",
			"jetblue.com", "alaskaair.com", "spiritairlines.com", "frontier.com",
			// Hotels.
			"marriott.com", "hilton.com", "ihg.com", "hyatt.com",
			"choicehotels.com", "wyndham.com",
			// Rental cars.
			"hertz.com", "enterprise.com", "avis.com", "budget.com", "nationalcar.com",
			// Rideshare.
			"uber.com", "lyft.com",
			// Booking platforms.
			"expedia.com", "booking.com", "hotels.com", "kayak.com",
			"tripadvisor.com", "airbnb.com", "vrbo.com", "priceline.com",
		),
		CalendarSenders: newSet(
			"calendar-notification@google.com",
			"calendar@microsoft.com",
			"noreply@calendar.microsoft.com",
			"teams@microsoft.com",
		),
		VIPSenders: newSet(),
		VIPDomains: newSet(),
	}
}

var marketingSenderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^noreply@`),
	regexp.MustCompile(`(?i)^no-reply@`),
	regexp.MustCompile(`(?i)^marketing@`),
	regexp.MustCompile(`(?i)^newsletter@`),
	regexp.MustCompile(`(?i)^promotions@`),
	regexp.MustCompile(`(?i)^deals@`),
	regexp.MustCompile(`(?i)^offers@`),
}

var notificationSenderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^noreply@`),
	regexp.MustCompile(`(?i)^no-reply@`),
	regexp.MustCompile(`(?i)^notifications@`),
	regexp.MustCompile(`(?i)^alerts@`),
	regexp.MustCompile(`(?i)^donotreply@`),
	regexp.MustCompile(`(?i)^mailer-daemon@`),
	regexp.MustCompile(`(?i)^no_reply@`),
}

var marketingSubjectKeywords = []string{
	"unsubscribe",
	"% off",
	"percent off",
	"limited time",
	"sale",
	"deal",
	"promo code",
	"free shipping",
	"discount",
	"save now",
	"special offer",
}

var notificationSubjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)your order`),
	regexp.MustCompile(`(?i)shipping update`),
	regexp.MustCompile(`(?i)password reset`),
	regexp.MustCompile(`(?i)security alert`),
	regexp.MustCompile(`(?i)verification code`),
	regexp.MustCompile(`(?i)new sign-in`),
	regexp.MustCompile(`(?i)account activity`),
	regexp.MustCompile(`(?i)confirm your email`),
	regexp.MustCompile(`(?i)reset your password`),
}

var calendarSubjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^invitation:`),
	regexp.MustCompile(`(?i)^updated invitation:`),
	regexp.MustCompile(`(?i)^canceled:`),
	regexp.MustCompile(`(?i)^accepted:`),
	regexp.MustCompile(`(?i)^declined:`),
	regexp.MustCompile(`(?i)^tentative:`),
	regexp.MustCompile(`(?i)meeting invitation`),
	regexp.MustCompile(`(?i)event invitation`),
}

var travelSubjectKeywords = []string{
	"booking confirmation",
	"itinerary",
	"flight confirmation",
	"check-in",
	"reservation",
	"trip summary",
	"boarding pass",
	"e-ticket",
	"hotel confirmation",
}

// urgencyKeywords is the broader set used by the deterministic classifier's
// exclusion checks (a directed message should not be filed as a system
// notification or FYI).
var urgencyKeywords = []string{
	"urgent",
	"asap",
	"important",
	"critical",
	"deadline",
	"action required",
	"immediate",
	"time sensitive",
}

// overrideUrgencyKeywords is the fixed trigger set of the override checker.
var overrideUrgencyKeywords = []string{
	"urgent",
	"asap",
	"time-sensitive",
	"time sensitive",
	"immediate attention",
	"action required",
	"critical",
	"deadline today",
	"due today",
	"due immediately",
	"needs your approval",
	"please respond by",
	"respond asap",
	"priority",
	"high priority",
	"blocker",
	"blocking",
}

func domainOf(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

// matchPattern returns the source of the first pattern matching text.
func matchPattern(text string, patterns []*regexp.Regexp) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, re := range patterns {
		if re.MatchString(text) {
			return re.String(), true
		}
	}
	return "", false
}

// matchKeyword returns the first keyword contained in text, case-insensitive.
func matchKeyword(text string, keywords []string) (string, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

func hasUrgencyLanguage(subject, body string) bool {
	_, ok := matchKeyword(subject+" "+body, urgencyKeywords)
	return ok
}
