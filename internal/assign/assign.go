// Package assign distributes a batch of scored items across due-date slots
// under capacity settings. It needs the whole scored batch at once: items are
// ranked against each other, so the batch must not be sharded.
package assign

import (
	"sort"
	"time"

	"triagebot/internal/deadline"
	"triagebot/internal/domain"
)

// DueDates partitions scored items into the floor and standard pools and
// fills the today / tomorrow / this-week / next-week slots in that order.
// Floor items always land today, even past the task limit: they must never
// be deferred, so the limit only constrains the standard pool.
func DueDates(items []domain.ScoredItem, settings domain.AssignSettings, now time.Time) []domain.Assignment {
	taskLimit := settings.TaskLimit
	if taskLimit <= 0 {
		taskLimit = domain.DefaultAssignSettings().TaskLimit
	}
	threshold := settings.TimePressureThreshold

	today := deadline.DateOf(now)
	tomorrow := today.AddDate(0, 0, 1)
	thisFriday := fridayOfWeek(today)
	nextMonday := mondayOfNextWeek(today)

	var floorPool, standardPool []domain.ScoredItem
	for _, it := range items {
		if it.FloorOverride || it.ForceToday {
			floorPool = append(floorPool, it)
		} else {
			standardPool = append(standardPool, it)
		}
	}

	// Highest score first; ties keep input order.
	sort.SliceStable(standardPool, func(i, j int) bool {
		return standardPool[i].UrgencyScore > standardPool[j].UrgencyScore
	})

	availableToday := taskLimit - len(floorPool)
	if availableToday < 0 {
		availableToday = 0
	}

	assignments := make([]domain.Assignment, 0, len(items))

	for _, it := range floorPool {
		reason := domain.ReasonUrgencyFloor
		if it.ForceToday {
			reason = domain.ReasonStaleForceToday
		}
		assignments = append(assignments, domain.Assignment{
			EmailID: it.EmailID,
			DueDate: datePtr(today),
			Pool:    domain.PoolFloor,
			Slot:    domain.SlotToday,
			Reason:  reason,
		})
	}

	idx := 0
	for ; idx < len(standardPool) && idx < availableToday; idx++ {
		assignments = append(assignments, standardAssignment(standardPool[idx], today, domain.SlotToday, domain.ReasonHighPriority))
	}

	tomorrowEnd := idx + taskLimit
	for ; idx < len(standardPool) && idx < tomorrowEnd; idx++ {
		assignments = append(assignments, standardAssignment(standardPool[idx], tomorrow, domain.SlotTomorrow, domain.ReasonNextDay))
	}

	thisWeekEnd := idx + taskLimit*2
	for ; idx < len(standardPool) && idx < thisWeekEnd; idx++ {
		assignments = append(assignments, standardAssignment(standardPool[idx], thisFriday, domain.SlotThisWeek, domain.ReasonThisWeek))
	}

	for ; idx < len(standardPool); idx++ {
		it := standardPool[idx]
		if it.UrgencyScore < threshold {
			assignments = append(assignments, domain.Assignment{
				EmailID: it.EmailID,
				Pool:    domain.PoolStandard,
				Slot:    domain.SlotNoDate,
				Reason:  domain.ReasonBelowThreshold,
			})
			continue
		}
		assignments = append(assignments, standardAssignment(it, nextMonday, domain.SlotNextWeek, domain.ReasonNextWeek))
	}

	return assignments
}

// Summarize reduces assignments to per-slot and per-pool counts. The task
// limit is needed to flag a floor pool that spilled past it.
func Summarize(assignments []domain.Assignment, taskLimit int) domain.AssignmentSummary {
	s := domain.AssignmentSummary{
		Total: len(assignments),
		BySlot: map[string]int{
			domain.SlotToday:    0,
			domain.SlotTomorrow: 0,
			domain.SlotThisWeek: 0,
			domain.SlotNextWeek: 0,
			domain.SlotNoDate:   0,
		},
		ByPool: map[string]int{
			domain.PoolFloor:    0,
			domain.PoolStandard: 0,
		},
	}
	for _, a := range assignments {
		s.BySlot[a.Slot]++
		s.ByPool[a.Pool]++
		if a.Slot == domain.SlotToday {
			s.TodayCount++
		}
	}
	s.FloorOverflow = s.ByPool[domain.PoolFloor] > taskLimit
	return s
}

func standardAssignment(it domain.ScoredItem, due time.Time, slot, reason string) domain.Assignment {
	return domain.Assignment{
		EmailID: it.EmailID,
		DueDate: datePtr(due),
		Pool:    domain.PoolStandard,
		Slot:    slot,
		Reason:  reason,
	}
}

// fridayOfWeek returns the Friday of today's week: a Friday maps to itself,
// a weekend wraps forward to the Friday ahead.
func fridayOfWeek(today time.Time) time.Time {
	days := ((4 - deadline.Weekday(today)) % 7 + 7) % 7
	return today.AddDate(0, 0, days)
}

// mondayOfNextWeek returns the upcoming Monday, pushed a full week out when
// today is a Monday: always strictly after today.
func mondayOfNextWeek(today time.Time) time.Time {
	days := ((7 - deadline.Weekday(today)) % 7 + 7) % 7
	if days == 0 {
		days = 7
	}
	return today.AddDate(0, 0, days)
}

func datePtr(t time.Time) *time.Time {
	return &t
}
