package enginelog

import (
	"os"
	"sync"
	"time"
)

// timerDebugEnvVar is read once, on the first span started; spec §6 defines
// TIMER_DEBUG=1 as the sole switch for profiling-span emission.
const timerDebugEnvVar = "TIMER_DEBUG"

var (
	timerMu      sync.Mutex
	timerEnabled bool
	timerInit    bool
)

func timerOn() bool {
	timerMu.Lock()
	defer timerMu.Unlock()
	if !timerInit {
		timerEnabled = os.Getenv(timerDebugEnvVar) == "1"
		timerInit = true
	}
	return timerEnabled
}

// SetTimerDebug overrides the TIMER_DEBUG gate programmatically (used by
// tests; production code relies on the environment variable).
func SetTimerDebug(enabled bool) {
	timerMu.Lock()
	defer timerMu.Unlock()
	timerEnabled = enabled
	timerInit = true
}

// Span is a no-op unless TIMER_DEBUG=1, in which case its End method emits
// an Info log line with the elapsed duration. Usage:
//
//	defer enginelog.StartSpan("query.leaf").End()
type Span struct {
	name  string
	start time.Time
	armed bool
}

// StartSpan begins a profiling span named name. When TIMER_DEBUG is not
// enabled this allocates nothing of consequence and End is a no-op.
func StartSpan(name string) Span {
	if !timerOn() {
		return Span{}
	}
	return Span{name: name, start: time.Now(), armed: true}
}

// End emits the span's elapsed duration if the span was armed.
func (s Span) End() {
	if !s.armed {
		return
	}
	Info("timer %s took %s", s.name, time.Since(s.start))
}
