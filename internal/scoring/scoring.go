// Package scoring converts an email's heterogeneous urgency signals into a
// single comparable 0-100 score. Eight independent extractors feed a fixed
// weighted sum, then stale escalation and the urgency floor adjust the
// result. Everything is deterministic for a given reference time.
package scoring

import (
	"log"
	"math"
	"regexp"
	"strings"
	"time"

	"triagebot/internal/classify"
	"triagebot/internal/deadline"
	"triagebot/internal/domain"
)

// Weights are fixed and sum to 1.0.
var Weights = map[string]float64{
	domain.SignalExplicitDeadline: 0.25,
	domain.SignalSenderSeniority:  0.15,
	domain.SignalImportanceFlag:   0.10,
	domain.SignalUrgencyLanguage:  0.15,
	domain.SignalThreadVelocity:   0.10,
	domain.SignalClientExternal:   0.05,
	domain.SignalAgeOfEmail:       0.10,
	domain.SignalFollowupOverdue:  0.10,
}

const DefaultUrgencyFloor = 90

// Stale escalation tiers: bonus per day within the matched tier. Day 11+
// forces the item to today at score 100.
var staleTiers = []struct {
	minDays, maxDays, perDay int
}{
	{0, 3, 2},
	{4, 5, 5},
	{6, 10, 10},
}

const staleForceDays = 11

var urgencyStrongPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bASAP\b`),
	regexp.MustCompile(`(?i)\burgent\b`),
	regexp.MustCompile(`(?i)\bimmediately\b`),
	regexp.MustCompile(`(?i)\bcritical\b`),
	regexp.MustCompile(`(?i)\bemergency\b`),
	regexp.MustCompile(`(?i)\btime-critical\b`),
	regexp.MustCompile(`(?i)\bright now\b`),
	regexp.MustCompile(`(?i)\bneeds? immediate\b`),
}

var urgencyMediumPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\btime-sensitive\b`),
	regexp.MustCompile(`(?i)\bpriority\b`),
	regexp.MustCompile(`(?i)\baction required\b`),
	regexp.MustCompile(`(?i)\bplease respond\b`),
	regexp.MustCompile(`(?i)\bresponse needed\b`),
	regexp.MustCompile(`(?i)\breview and respond\b`),
	regexp.MustCompile(`(?i)\bneeds? (your )?attention\b`),
	regexp.MustCompile(`(?i)\brequires? (your )?action\b`),
	regexp.MustCompile(`(?i)\bimportant\b`),
}

var urgencyMildPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwhen you (get a|have) chance\b`),
	regexp.MustCompile(`(?i)\bno rush\b`),
	regexp.MustCompile(`(?i)\blow priority\b`),
	regexp.MustCompile(`(?i)\bwhenever you (can|have time)\b`),
	regexp.MustCompile(`(?i)\bno hurry\b`),
	regexp.MustCompile(`(?i)\bat your convenience\b`),
}

// Scorer holds the per-user scoring configuration. Zero thresholds fall back
// to the defaults in NewScorer.
type Scorer struct {
	Rules           *classify.Rules
	Lookup          domain.ThreadLookup // nil degrades thread velocity to 0
	UserDomain      string
	UrgencyFloor    int
	StaleEscalation bool
}

// NewScorer builds a scorer with the default floor and stale escalation on.
func NewScorer(rules *classify.Rules, lookup domain.ThreadLookup, userDomain string) *Scorer {
	if rules == nil {
		rules = classify.DefaultRules()
	}
	return &Scorer{
		Rules:           rules,
		Lookup:          lookup,
		UserDomain:      strings.ToLower(userDomain),
		UrgencyFloor:    DefaultUrgencyFloor,
		StaleEscalation: true,
	}
}

// Score computes the full urgency breakdown for an email. The category is an
// explicit input (not read off the item) because only the Time-Sensitive
// bucket activates the followup_overdue signal.
func (s *Scorer) Score(e domain.Email, category domain.Category, now time.Time) domain.ScoreResult {
	signals := map[string]int{
		domain.SignalExplicitDeadline: s.explicitDeadline(e, now),
		domain.SignalSenderSeniority:  s.senderSeniority(e),
		domain.SignalImportanceFlag:   importanceFlag(e),
		domain.SignalUrgencyLanguage:  urgencyLanguage(e),
		domain.SignalThreadVelocity:   s.threadVelocity(e, now),
		domain.SignalClientExternal:   s.clientExternal(e),
		domain.SignalAgeOfEmail:       ageOfEmail(e, now),
		domain.SignalFollowupOverdue:  followupOverdue(e, category, now),
	}

	breakdown := make(map[string]float64, len(signals))
	var weightedSum float64
	for name, raw := range signals {
		weighted := float64(raw) * Weights[name]
		breakdown[name] = round2(weighted)
		weightedSum += weighted
	}
	rawScore := clamp(weightedSum, 0, 100)

	adjusted, staleDays, staleBonus, forceToday := s.staleEscalation(e, rawScore, now)

	floor := s.UrgencyFloor
	if floor == 0 {
		floor = DefaultUrgencyFloor
	}
	floorOverride := adjusted >= float64(floor)

	weights := make(map[string]float64, len(Weights))
	for name, w := range Weights {
		weights[name] = w
	}

	return domain.ScoreResult{
		UrgencyScore:  int(math.Round(adjusted)),
		RawScore:      round2(rawScore),
		AdjustedScore: round2(adjusted),
		StaleBonus:    staleBonus,
		StaleDays:     staleDays,
		ForceToday:    forceToday,
		FloorOverride: floorOverride,
		Signals:       signals,
		Weights:       weights,
		Breakdown:     breakdown,
	}
}

// explicitDeadline buckets the days remaining until the earliest deadline
// found in subject and body.
func (s *Scorer) explicitDeadline(e domain.Email, now time.Time) int {
	due, ok := deadline.Extract(scoringText(e, 1000), now)
	if !ok {
		return 0
	}
	days := daysBetween(deadline.DateOf(now), due)
	switch {
	case days <= 0:
		return 100
	case days == 1:
		return 85
	case days == 2:
		return 70
	case days == 3:
		return 55
	case days <= 5:
		return 40
	case days <= 7:
		return 25
	default:
		return 10
	}
}

// senderSeniority: VIP 90, external 40, internal peer 20, unknown 10.
func (s *Scorer) senderSeniority(e domain.Email) int {
	sender := strings.ToLower(e.FromAddress)
	if sender == "" {
		return 10
	}
	if s.Rules.IsVIP(sender) {
		return 90
	}
	d := domain.Domain(sender)
	switch {
	case d == "":
		return 10
	case d != s.UserDomain:
		return 40
	default:
		return 20
	}
}

func importanceFlag(e domain.Email) int {
	switch strings.ToLower(e.Importance) {
	case domain.ImportanceHigh:
		return 80
	case domain.ImportanceLow:
		return -20
	default:
		return 0
	}
}

// urgencyLanguage weighs the subject double by repeating it in the scanned
// text, then checks strong, medium and mild pattern sets in that order.
func urgencyLanguage(e domain.Email) int {
	body := e.Body
	if len(body) > 500 {
		body = body[:500]
	}
	text := e.Subject + " " + e.Subject + " " + e.BodyPreview + " " + body
	for _, re := range urgencyStrongPatterns {
		if re.MatchString(text) {
			return 90
		}
	}
	for _, re := range urgencyMediumPatterns {
		if re.MatchString(text) {
			return 60
		}
	}
	for _, re := range urgencyMildPatterns {
		if re.MatchString(text) {
			return -10
		}
	}
	return 0
}

func (s *Scorer) threadVelocity(e domain.Email, now time.Time) int {
	if s.Lookup == nil || e.ConversationID == "" {
		return 0
	}
	count, err := s.Lookup.CountRecent(e.ConversationID, now.Add(-24*time.Hour))
	if err != nil {
		log.Printf("score: thread velocity lookup failed for %s: %v", e.ConversationID, err)
		return 0
	}
	switch {
	case count >= 5:
		return 80
	case count >= 3:
		return 60
	case count == 2:
		return 40
	case count == 1:
		return 20
	default:
		return 0
	}
}

func (s *Scorer) clientExternal(e domain.Email) int {
	d := domain.Domain(e.FromAddress)
	if d == "" {
		return 0
	}
	if d != s.UserDomain {
		return 50
	}
	return 0
}

// ageOfEmail rewards waiting mail, capped at 40 so age alone cannot dominate.
func ageOfEmail(e domain.Email, now time.Time) int {
	if e.ReceivedAt.IsZero() {
		return 0
	}
	hours := now.Sub(e.ReceivedAt).Hours()
	switch {
	case hours < 2:
		return 0
	case hours < 12:
		return 10
	case hours < 24:
		return 20
	case hours < 48:
		return 30
	default:
		return 40
	}
}

// followupOverdue applies only to the Time-Sensitive bucket: a deadline in
// the past earns 15 points per overdue day, capped at 100.
func followupOverdue(e domain.Email, category domain.Category, now time.Time) int {
	if category != domain.CategoryTimeSensitive {
		return 0
	}
	due, ok := deadline.Extract(scoringText(e, 1000), now)
	if !ok {
		return 0
	}
	overdue := daysBetween(due, deadline.DateOf(now))
	if overdue <= 0 {
		return 0
	}
	score := overdue * 15
	if score > 100 {
		score = 100
	}
	return score
}

// staleEscalation returns (adjusted score, stale days, bonus, force today).
func (s *Scorer) staleEscalation(e domain.Email, rawScore float64, now time.Time) (float64, int, int, bool) {
	if !s.StaleEscalation || e.ReceivedAt.IsZero() {
		return rawScore, 0, 0, false
	}

	staleDays := int(now.Sub(e.ReceivedAt).Hours() / 24)
	if staleDays < 0 {
		return rawScore, 0, 0, false
	}

	if staleDays >= staleForceDays {
		return 100, staleDays, int(100 - rawScore), true
	}

	bonus := 0
	for _, tier := range staleTiers {
		if staleDays >= tier.minDays && staleDays <= tier.maxDays {
			bonus = (staleDays - tier.minDays + 1) * tier.perDay
			break
		}
	}
	return clamp(rawScore+float64(bonus), 0, 100), staleDays, bonus, false
}

// scoringText concatenates subject, preview and a bounded body prefix.
func scoringText(e domain.Email, bodyLimit int) string {
	body := e.Body
	if len(body) > bodyLimit {
		body = body[:bodyLimit]
	}
	return e.Subject + " " + e.BodyPreview + " " + body
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
