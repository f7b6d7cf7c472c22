package domain

import (
	"strings"
	"time"
)

// Importance mirrors the provider's importance flag.
const (
	ImportanceLow    = "low"
	ImportanceNormal = "normal"
	ImportanceHigh   = "high"
)

// Recipient is one entry of a To: or Cc: list.
type Recipient struct {
	Address string
	Name    string
}

// Email is the unit being triaged. The provider-supplied fields are treated
// as read-only by the engine; Category, Confidence, ClassifierType,
// UrgencyScore and DueDate are written back by the pipeline.
type Email struct {
	ID             int64
	MessageID      string
	FromAddress    string
	FromName       string
	Subject        string
	Body           string
	BodyPreview    string
	ReceivedAt     time.Time // zero value means unknown
	Importance     string    // "low", "normal", "high"
	ConversationID string
	ToRecipients   []Recipient
	CcRecipients   []Recipient
	HasAttachments bool
	Headers        map[string]string

	// Classification fields.
	Category       Category // CategoryNone until classified
	Confidence     float64
	ClassifierType string // "deterministic", "ai" or "manual"

	// Scoring and scheduling fields, Work items only.
	UrgencyScore int
	DueDate      *time.Time

	Status string // "unprocessed" or "classified"
}

const (
	StatusUnprocessed = "unprocessed"
	StatusClassified  = "classified"
)

const (
	ClassifierDeterministic = "deterministic"
	ClassifierAI            = "ai"
	ClassifierManual        = "manual"
)

// Domain returns the lowercase domain part of an address, or "" if the
// address has no @.
func Domain(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

// SoleRecipient reports whether address is the single To: recipient.
func (e Email) SoleRecipient(address string) bool {
	if len(e.ToRecipients) != 1 {
		return false
	}
	return strings.EqualFold(e.ToRecipients[0].Address, address)
}

// CcOnly reports whether address appears in Cc: but not in To:.
func (e Email) CcOnly(address string) bool {
	for _, r := range e.ToRecipients {
		if strings.EqualFold(r.Address, address) {
			return false
		}
	}
	for _, r := range e.CcRecipients {
		if strings.EqualFold(r.Address, address) {
			return true
		}
	}
	return false
}
