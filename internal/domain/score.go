package domain

import "time"

// Signal names used in score breakdowns. Order matches the weight table.
const (
	SignalExplicitDeadline = "explicit_deadline"
	SignalSenderSeniority  = "sender_seniority"
	SignalImportanceFlag   = "importance_flag"
	SignalUrgencyLanguage  = "urgency_language"
	SignalThreadVelocity   = "thread_velocity"
	SignalClientExternal   = "client_external"
	SignalAgeOfEmail       = "age_of_email"
	SignalFollowupOverdue  = "followup_overdue"
)

// SignalNames lists all eight signals in weight-table order.
var SignalNames = []string{
	SignalExplicitDeadline,
	SignalSenderSeniority,
	SignalImportanceFlag,
	SignalUrgencyLanguage,
	SignalThreadVelocity,
	SignalClientExternal,
	SignalAgeOfEmail,
	SignalFollowupOverdue,
}

// ScoreResult is the persisted output of the urgency scoring engine.
type ScoreResult struct {
	UrgencyScore  int     // final 0-100 score after escalation and floor
	RawScore      float64 // weighted sum before escalation
	AdjustedScore float64 // raw score plus stale bonus
	StaleBonus    int
	StaleDays     int
	ForceToday    bool
	FloorOverride bool

	Signals   map[string]int     // raw per-signal values (can be negative)
	Weights   map[string]float64 // applied weights
	Breakdown map[string]float64 // per-signal weighted contribution
}

// ScoredItem is the slice element consumed by the assignment algorithm.
type ScoredItem struct {
	EmailID       int64
	UrgencyScore  int
	FloorOverride bool
	ForceToday    bool
}

// ThreadLookup is the read-only thread-history query interface supplied by
// the persistence layer. Implementations must be safe for concurrent reads.
// A nil ThreadLookup degrades the dependent signals to zero.
type ThreadLookup interface {
	// CountRecent returns how many items of the conversation were received
	// at or after since.
	CountRecent(conversationID string, since time.Time) (int, error)

	// UserHasSent reports whether the user previously sent a message in the
	// conversation.
	UserHasSent(conversationID, userAddress string) (bool, error)
}
