// Package signal provides the abstract signal lifecycle spec §4.5
// describes: start/cancel semantics, the executing flag, parameter
// vocabulary checks, and exactly-once completion notification.
// Concrete signals (e.g. playcollect.Machine) hold a *Lifecycle
// rather than subclassing a base type, per the design notes.
package signal

import (
	"fmt"
	"sync"

	"github.com/sebas/mgcpgw/internal/mgcp/command"
)

// Type is spec §3 Signal.SignalType.
type Type int

const (
	Brief Type = iota
	TimeOut
	OnOff
)

func (t Type) String() string {
	switch t {
	case Brief:
		return "BRIEF"
	case TimeOut:
		return "TIME_OUT"
	case OnOff:
		return "ON_OFF"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(t))
	}
}

// Outcome is delivered exactly once per signal, via Complete or Fail.
type Outcome struct {
	Symbol string
	Code   int
	Params map[string]string
	Failed bool
}

// Lifecycle is the embeddable executing/cancellation state machine
// every signal shares (spec §4.5, §3 invariant 6: "executing=true from
// successful start through exactly one completion or cancellation").
type Lifecycle struct {
	Package string
	Symbol  string
	Kind    Type

	mu         sync.Mutex
	executing  bool
	terminal   bool
	onComplete func(Outcome)
	releaseFn  func()
}

// NewLifecycle creates a Lifecycle for (pkg, symbol). onComplete is
// invoked exactly once, with the outcome of either a successful
// completion/failure or never at all (cancellation emits nothing).
// release is called once, on every path out of the signal (normal
// completion, failure, or cancellation), to free held media
// resources.
func NewLifecycle(pkg, symbol string, kind Type, onComplete func(Outcome), release func()) *Lifecycle {
	return &Lifecycle{
		Package:    pkg,
		Symbol:     symbol,
		Kind:       kind,
		onComplete: onComplete,
		releaseFn:  release,
	}
}

// Start atomically transitions executing false->true. Calling it
// again while still executing raises CommandError{IllegalState}
// (spec §4.5).
func (l *Lifecycle) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.executing {
		return command.IllegalState(fmt.Sprintf("signal %s/%s already executing", l.Package, l.Symbol))
	}
	l.executing = true
	return nil
}

// Executing reports whether the signal is between a successful Start
// and its terminal transition.
func (l *Lifecycle) Executing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.executing
}

// Complete announces a successful outcome exactly once, then
// transitions to terminal and releases resources.
func (l *Lifecycle) Complete(code int, params map[string]string) {
	l.finish(Outcome{Symbol: l.Symbol, Code: code, Params: params, Failed: false}, true)
}

// Fail announces a failed outcome exactly once, then transitions to
// terminal and releases resources.
func (l *Lifecycle) Fail(code int, params map[string]string) {
	l.finish(Outcome{Symbol: l.Symbol, Code: code, Params: params, Failed: true}, true)
}

// Cancel is safe to call from any goroutine, idempotent, transitions
// to terminal, releases resources, and emits no completion event
// (spec §4.5, §5 "Cancellation").
func (l *Lifecycle) Cancel() {
	l.finish(Outcome{}, false)
}

func (l *Lifecycle) finish(outcome Outcome, notify bool) {
	l.mu.Lock()
	if l.terminal {
		l.mu.Unlock()
		return
	}
	l.terminal = true
	l.executing = false
	release := l.releaseFn
	onComplete := l.onComplete
	l.mu.Unlock()

	if release != nil {
		release()
	}
	if notify && onComplete != nil {
		onComplete(outcome)
	}
}

// IsTerminal reports whether the signal has already reached its
// terminal state (completed, failed, or canceled).
func (l *Lifecycle) IsTerminal() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.terminal
}

// ParameterVocabulary describes the parameters a signal accepts.
// IsSupported returns a deterministic boolean over the declared
// vocabulary (spec §4.5 isParameterSupported).
type ParameterVocabulary map[string]struct{}

// NewVocabulary builds a ParameterVocabulary from a list of parameter
// names.
func NewVocabulary(names ...string) ParameterVocabulary {
	v := make(ParameterVocabulary, len(names))
	for _, n := range names {
		v[n] = struct{}{}
	}
	return v
}

// IsSupported reports whether name is in the declared vocabulary.
func (v ParameterVocabulary) IsSupported(name string) bool {
	_, ok := v[name]
	return ok
}
