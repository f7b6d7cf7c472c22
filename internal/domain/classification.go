package domain

import "time"

// Classification is the decision of a classifier. A nil *Classification from
// the deterministic classifier means "no decision, defer to AI".
type Classification struct {
	Category   Category
	Rule       string // machine-readable description of the matched rule
	Confidence float64
}

// OverrideResult is the decision of the override classifier. When Override is
// true the caller reverts the item to unclassified for AI re-evaluation.
type OverrideResult struct {
	Override bool
	Trigger  string // "urgency_language", "vip_sender", ...
	Reason   string // human-readable explanation
}

// Override trigger identifiers, in evaluation order.
const (
	TriggerUrgencyLanguage = "urgency_language"
	TriggerVIPSender       = "vip_sender"
	TriggerSoleRecipient   = "sole_recipient_mismatch"
	TriggerReplyChain      = "reply_chain_participation"
	TriggerDirectAddress   = "direct_address"
)

// ClassificationRecord is one append-only audit row, written every time an
// item's category changes.
type ClassificationRecord struct {
	ID             int64
	EmailID        int64
	Category       Category
	Rule           string
	ClassifierType string
	Confidence     float64
	CreatedAt      time.Time
}

// OverrideRecord logs an override trigger reverting an Other classification.
type OverrideRecord struct {
	ID               int64
	EmailID          int64
	OriginalCategory Category
	Trigger          string
	Reason           string
	CreatedAt        time.Time
}
