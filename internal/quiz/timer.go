package quiz

import "time"

const DefaultDuration = time.Hour

type TimerState string

const (
	TimerRunning TimerState = "running"
	TimerExpired TimerState = "expired"
)

// Timer is polled, never armed: expiry is only noticed when State is called.
type Timer struct {
	StartedAt time.Time
	Duration  time.Duration
}

func (t Timer) State(now time.Time) TimerState {
	if now.Sub(t.StartedAt) < t.Duration {
		return TimerRunning
	}
	return TimerExpired
}

func (t Timer) Remaining(now time.Time) time.Duration {
	remaining := t.StartedAt.Add(t.Duration).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
