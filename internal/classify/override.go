package classify

import (
	"fmt"
	"log"
	"regexp"

	"triagebot/internal/domain"
)

var directAddressVerbs = `(can|could|would|will|please)`

// directAddressPatterns builds the imperative-context patterns for a first
// name: "Name, can you", "Hi Name,", "Name - please", "@Name".
func directAddressPatterns(firstName string) []*regexp.Regexp {
	name := regexp.QuoteMeta(firstName)
	return []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b` + name + `,\s+` + directAddressVerbs),
		regexp.MustCompile(`(?i)hi\s+` + name + `,`),
		regexp.MustCompile(`(?i)hello\s+` + name + `,`),
		regexp.MustCompile(`(?i)hey\s+` + name + `,`),
		regexp.MustCompile(`(?i)` + name + `\s*[-:]\s*` + directAddressVerbs),
		regexp.MustCompile(`(?i)@` + name + `\b`),
	}
}

// CheckOverride decides whether an email filed into an Other category should
// be pulled back into the Work pipeline. Triggers run in order and the first
// match wins. Categories outside the Other set never override.
func CheckOverride(e domain.Email, current domain.Category, user User, lookup domain.ThreadLookup, rules *Rules) domain.OverrideResult {
	if !current.IsOther() {
		return domain.OverrideResult{}
	}
	if rules == nil {
		rules = DefaultRules()
	}

	// 1. Urgency language.
	if kw, ok := matchKeyword(e.Subject+" "+e.Body, overrideUrgencyKeywords); ok {
		return domain.OverrideResult{
			Override: true,
			Trigger:  domain.TriggerUrgencyLanguage,
			Reason:   fmt.Sprintf("Contains urgency language: '%s'", kw),
		}
	}

	// 2. VIP sender.
	if rules.IsVIP(e.FromAddress) {
		return domain.OverrideResult{
			Override: true,
			Trigger:  domain.TriggerVIPSender,
			Reason:   fmt.Sprintf("Email from VIP sender: %s", e.FromAddress),
		}
	}

	// 3. Sole recipient classified as FYI.
	if current == domain.CategoryGroupFYI && e.SoleRecipient(user.Address) {
		return domain.OverrideResult{
			Override: true,
			Trigger:  domain.TriggerSoleRecipient,
			Reason:   "Sole To: recipient but classified as FYI - likely needs action",
		}
	}

	// 4. Reply-chain participation.
	if lookup != nil && e.ConversationID != "" && user.Address != "" {
		sent, err := lookup.UserHasSent(e.ConversationID, user.Address)
		if err != nil {
			log.Printf("override: reply chain lookup failed for %s: %v", e.ConversationID, err)
		} else if sent {
			return domain.OverrideResult{
				Override: true,
				Trigger:  domain.TriggerReplyChain,
				Reason:   "User previously participated in this conversation thread",
			}
		}
	}

	// 5. Direct address by first name.
	if e.Body != "" && user.FirstName != "" {
		for _, re := range directAddressPatterns(user.FirstName) {
			if m := re.FindString(e.Body); m != "" {
				return domain.OverrideResult{
					Override: true,
					Trigger:  domain.TriggerDirectAddress,
					Reason:   fmt.Sprintf("Email directly addresses user: '%s'", m),
				}
			}
		}
	}

	return domain.OverrideResult{}
}
