package playcollect

import "time"

// Timer is the minimal surface the machine needs from a scheduled
// timer: a fire channel and a way to cancel it. Spec §4.6: "Single
// logical timer per phase; rescheduling cancels prior."
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// Clock abstracts timer creation so tests can drive the state machine
// deterministically instead of depending on wall-clock delays (spec
// §4.6: "Timer ticks are the only time source; wall-clock drift is
// irrelevant").
type Clock interface {
	NewTimer(d time.Duration) Timer
}

// realTimer wraps time.Timer.
type realTimer struct{ t *time.Timer }

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }

// RealClock schedules timers against the wall clock; used in
// production.
type RealClock struct{}

func (RealClock) NewTimer(d time.Duration) Timer {
	return realTimer{t: time.NewTimer(d)}
}
