package presence

import "time"

type Status string

const (
	Online  Status = "online"
	Away    Status = "away"
	Offline Status = "offline"
)

const (
	OnlineWindow = time.Minute
	AwayWindow   = 5 * time.Minute
)

// Classify derives a status from the time a user was last seen. Boundaries
// are inclusive: exactly one minute ago is still online.
func Classify(lastSeen *time.Time, now time.Time) Status {
	if lastSeen == nil {
		return Offline
	}

	elapsed := now.Sub(*lastSeen)
	switch {
	case elapsed <= OnlineWindow:
		return Online
	case elapsed <= AwayWindow:
		return Away
	default:
		return Offline
	}
}
