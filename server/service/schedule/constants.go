package schedule

import "time"

const (
	// WorkdayStartHour and WorkdayEndHour bound free-slot suggestions.
	WorkdayStartHour = 8
	WorkdayEndHour   = 22

	// AlternativeDayRange is how many days around a conflicting event are
	// searched when its own day has few free slots.
	AlternativeDayRange = 3

	// MaxAlternatives caps the suggestions returned for one event.
	MaxAlternatives = 10

	// DefaultSlotDuration is used when a caller gives no duration.
	DefaultSlotDuration = time.Hour
)
