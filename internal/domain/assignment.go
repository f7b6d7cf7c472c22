package domain

import "time"

// Assignment slot and pool tags.
const (
	SlotToday    = "today"
	SlotTomorrow = "tomorrow"
	SlotThisWeek = "this_week"
	SlotNextWeek = "next_week"
	SlotNoDate   = "no_date"

	PoolFloor    = "floor"
	PoolStandard = "standard"

	ReasonStaleForceToday = "stale_force_today"
	ReasonUrgencyFloor    = "urgency_floor"
	ReasonHighPriority    = "high_priority"
	ReasonNextDay         = "next_day"
	ReasonThisWeek        = "this_week"
	ReasonNextWeek        = "next_week"
	ReasonBelowThreshold  = "below_threshold"
)

// Assignment is the scheduler's decision for one scored item.
type Assignment struct {
	EmailID int64
	DueDate *time.Time // nil for the no_date slot
	Pool    string
	Slot    string
	Reason  string
}

// AssignSettings are the capacity knobs of the assignment algorithm.
type AssignSettings struct {
	TaskLimit             int // max items per day slot
	UrgencyFloor          int // score threshold for the floor pool
	TimePressureThreshold int // min score to receive a date at all
}

// DefaultAssignSettings matches the original defaults.
func DefaultAssignSettings() AssignSettings {
	return AssignSettings{
		TaskLimit:             20,
		UrgencyFloor:          90,
		TimePressureThreshold: 15,
	}
}

// AssignmentSummary reduces a batch of assignments to per-slot and per-pool
// counts for caller visibility.
type AssignmentSummary struct {
	Total         int
	BySlot        map[string]int
	ByPool        map[string]int
	TodayCount    int
	FloorOverflow bool // floor pool alone exceeded the task limit
}
