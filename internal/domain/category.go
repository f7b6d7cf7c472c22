package domain

// Category is a priority bucket number. 1-5 are the Work buckets that get
// urgency-scored and scheduled; 6-11 are Other buckets filed without scoring.
// 10 and 12 are reserved.
type Category int

const (
	CategoryNone Category = 0

	// Work buckets.
	CategoryBlocking       Category = 1
	CategoryActionRequired Category = 2
	CategoryWaitingOn      Category = 3
	CategoryTimeSensitive  Category = 4
	CategoryFYI            Category = 5

	// Other buckets.
	CategoryMarketing    Category = 6
	CategoryNotification Category = 7
	CategoryCalendar     Category = 8
	CategoryGroupFYI     Category = 9
	CategoryTravel       Category = 11
)

var categoryLabels = map[Category]string{
	CategoryBlocking:       "Blocking",
	CategoryActionRequired: "Action Required",
	CategoryWaitingOn:      "Waiting On",
	CategoryTimeSensitive:  "Time-Sensitive",
	CategoryFYI:            "FYI",
	CategoryMarketing:      "Marketing",
	CategoryNotification:   "Notification",
	CategoryCalendar:       "Calendar",
	CategoryGroupFYI:       "Group FYI",
	CategoryTravel:         "Travel",
}

func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return "Unclassified"
}

// IsWork reports whether c is one of the five scored Work buckets.
func (c Category) IsWork() bool {
	return c >= CategoryBlocking && c <= CategoryFYI
}

// IsOther reports whether c is one of the non-priority Other buckets.
func (c Category) IsOther() bool {
	switch c {
	case CategoryMarketing, CategoryNotification, CategoryCalendar, CategoryGroupFYI, CategoryTravel:
		return true
	}
	return false
}
