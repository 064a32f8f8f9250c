package collaboration

import "time"

const (
	highPriorityWithin   = 7 * 24 * time.Hour
	mediumPriorityWithin = 14 * 24 * time.Hour
)

// ComputePriority derives priority from how close the linked event is.
// Without an event date the priority is medium.
func ComputePriority(eventDate *time.Time, now time.Time) Priority {
	if eventDate == nil {
		return PriorityMedium
	}
	until := eventDate.Sub(now)
	switch {
	case until <= highPriorityWithin:
		return PriorityHigh
	case until <= mediumPriorityWithin:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
