package classify

import (
	"fmt"
	"strings"

	"triagebot/internal/domain"
)

// Deterministic files an email into an Other category by sender and subject
// heuristics. The checks run in order of specificity and the first match
// wins. A nil result means no rule matched and the item defers to the AI
// classifier.
func Deterministic(e domain.Email, userAddress string, rules *Rules) *domain.Classification {
	if rules == nil {
		rules = DefaultRules()
	}

	if c := checkCalendar(e, rules); c != nil {
		return c
	}
	if c := checkMarketing(e, rules); c != nil {
		return c
	}
	if c := checkTravel(e, rules); c != nil {
		return c
	}
	if userAddress != "" {
		if c := checkNotification(e, userAddress, rules); c != nil {
			return c
		}
		if c := checkFYI(e, userAddress); c != nil {
			return c
		}
	}
	return nil
}

// checkCalendar: calendar MIME marker in the body, invite-style subject, or a
// known calendar-system sender.
func checkCalendar(e domain.Email, rules *Rules) *domain.Classification {
	body := strings.ToLower(e.Body)
	if strings.Contains(body, "text/calendar") || strings.Contains(body, ".ics") {
		return &domain.Classification{
			Category:   domain.CategoryCalendar,
			Rule:       "Calendar MIME type or .ics attachment detected",
			Confidence: 0.95,
		}
	}
	if p, ok := matchPattern(e.Subject, calendarSubjectPatterns); ok {
		return &domain.Classification{
			Category:   domain.CategoryCalendar,
			Rule:       fmt.Sprintf("Calendar subject pattern: %s", p),
			Confidence: 0.90,
		}
	}
	if rules.CalendarSenders[strings.ToLower(e.FromAddress)] {
		return &domain.Classification{
			Category:   domain.CategoryCalendar,
			Rule:       fmt.Sprintf("Calendar system sender: %s", e.FromAddress),
			Confidence: 0.90,
		}
	}
	return nil
}

// checkMarketing: list-unsubscribe header, marketing sender patterns, known
// marketing platforms, or promotional subject keywords. Travel and
// notification domains are skipped here so the later, more specific checks
// can claim them.
func checkMarketing(e domain.Email, rules *Rules) *domain.Classification {
	d := domainOf(e.FromAddress)
	if rules.TravelDomains[d] || rules.NotificationDomains[d] {
		return nil
	}

	for name := range e.Headers {
		if strings.EqualFold(name, "list-unsubscribe") {
			return &domain.Classification{
				Category:   domain.CategoryMarketing,
				Rule:       "List-Unsubscribe header present",
				Confidence: 0.95,
			}
		}
	}

	if p, ok := matchPattern(strings.ToLower(e.FromAddress), marketingSenderPatterns); ok {
		// noreply@ is common to both marketing and notifications; a
		// notification-style subject keeps it out of Marketing.
		if _, isNotif := matchPattern(e.Subject, notificationSubjectPatterns); !isNotif {
			return &domain.Classification{
				Category:   domain.CategoryMarketing,
				Rule:       fmt.Sprintf("Marketing sender pattern: %s", p),
				Confidence: 0.85,
			}
		}
	}

	if rules.MarketingDomains[d] {
		return &domain.Classification{
			Category:   domain.CategoryMarketing,
			Rule:       fmt.Sprintf("Marketing platform domain: %s", d),
			Confidence: 0.90,
		}
	}

	if kw, ok := matchKeyword(e.Subject, marketingSubjectKeywords); ok {
		return &domain.Classification{
			Category:   domain.CategoryMarketing,
			Rule:       fmt.Sprintf("Marketing keyword in subject: %s", kw),
			Confidence: 0.85,
		}
	}
	return nil
}

// checkTravel: known travel-industry domains or booking subject keywords.
func checkTravel(e domain.Email, rules *Rules) *domain.Classification {
	if d := domainOf(e.FromAddress); rules.TravelDomains[d] {
		return &domain.Classification{
			Category:   domain.CategoryTravel,
			Rule:       fmt.Sprintf("Travel domain: %s", d),
			Confidence: 0.90,
		}
	}
	if kw, ok := matchKeyword(e.Subject, travelSubjectKeywords); ok {
		return &domain.Classification{
			Category:   domain.CategoryTravel,
			Rule:       fmt.Sprintf("Travel keyword in subject: %s", kw),
			Confidence: 0.85,
		}
	}
	return nil
}

// checkNotification: system-notification sender or subject heuristics. A
// message sent solely to the user that also carries urgency language is
// treated as directed work, not a notification.
func checkNotification(e domain.Email, userAddress string, rules *Rules) *domain.Classification {
	directed := e.SoleRecipient(userAddress) && hasUrgencyLanguage(e.Subject, e.Body)

	if p, ok := matchPattern(strings.ToLower(e.FromAddress), notificationSenderPatterns); ok {
		if directed {
			return nil
		}
		return &domain.Classification{
			Category:   domain.CategoryNotification,
			Rule:       fmt.Sprintf("Notification sender pattern: %s", p),
			Confidence: 0.85,
		}
	}

	if d := domainOf(e.FromAddress); rules.NotificationDomains[d] {
		if directed {
			return nil
		}
		return &domain.Classification{
			Category:   domain.CategoryNotification,
			Rule:       fmt.Sprintf("Notification domain: %s", d),
			Confidence: 0.88,
		}
	}

	if p, ok := matchPattern(e.Subject, notificationSubjectPatterns); ok {
		return &domain.Classification{
			Category:   domain.CategoryNotification,
			Rule:       fmt.Sprintf("Notification subject pattern: %s", p),
			Confidence: 0.85,
		}
	}
	return nil
}

// checkFYI: user is Cc-only or one of a 3+ recipient group. Urgency language
// disqualifies either form.
func checkFYI(e domain.Email, userAddress string) *domain.Classification {
	if e.CcOnly(userAddress) {
		if hasUrgencyLanguage(e.Subject, e.Body) {
			return nil
		}
		return &domain.Classification{
			Category:   domain.CategoryGroupFYI,
			Rule:       "User in CC field only",
			Confidence: 0.88,
		}
	}
	if len(e.ToRecipients) >= 3 {
		if hasUrgencyLanguage(e.Subject, e.Body) {
			return nil
		}
		return &domain.Classification{
			Category:   domain.CategoryGroupFYI,
			Rule:       fmt.Sprintf("Group email with %d recipients", len(e.ToRecipients)),
			Confidence: 0.85,
		}
	}
	return nil
}
