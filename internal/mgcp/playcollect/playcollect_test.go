package playcollect

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sebas/mgcpgw/internal/mgcp/signal"
)

// fakeTimer is a manually-fired Timer for deterministic tests.
type fakeTimer struct {
	c       chan time.Time
	stopped atomic.Bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }
func (t *fakeTimer) Stop() bool          { t.stopped.Store(true); return true }
func (t *fakeTimer) fire()               { t.c <- time.Time{} }

// fakeClock hands out fakeTimers and lets the test retrieve them in
// creation order.
type fakeClock struct {
	timers chan *fakeTimer
}

func newFakeClock() *fakeClock { return &fakeClock{timers: make(chan *fakeTimer, 256)} }

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	t := &fakeTimer{c: make(chan time.Time, 1)}
	c.timers <- t
	return t
}

func (c *fakeClock) next(t *testing.T) *fakeTimer {
	t.Helper()
	select {
	case ft := <-c.timers:
		return ft
	case <-time.After(time.Second):
		t.Fatal("no timer armed")
		return nil
	}
}

// fakePlayer records every Play call. Calls are sequential by
// construction: the machine never starts a second playback before the
// first reports completion.
type fakePlayer struct {
	plays   chan string
	lastCh  chan chan error
	stopped atomic.Int32
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{plays: make(chan string, 256), lastCh: make(chan chan error, 256)}
}

func (p *fakePlayer) Play(ctx context.Context, uri string) <-chan error {
	ch := make(chan error, 1)
	p.plays <- uri
	p.lastCh <- ch
	return ch
}

func (p *fakePlayer) Stop() { p.stopped.Add(1) }

func (p *fakePlayer) awaitPlay(t *testing.T) (string, chan error) {
	t.Helper()
	select {
	case uri := <-p.plays:
		ch := <-p.lastCh
		return uri, ch
	case <-time.After(time.Second):
		t.Fatal("expected a Play call")
		return "", nil
	}
}

// fakeDetector lets the test inject tones directly.
type fakeDetector struct {
	tones    chan rune
	cleared  atomic.Int32
	detached atomic.Int32
}

func newFakeDetector() *fakeDetector { return &fakeDetector{tones: make(chan rune, 256)} }

func (d *fakeDetector) Tones() <-chan rune { return d.tones }
func (d *fakeDetector) ClearBuffer()       { d.cleared.Add(1) }
func (d *fakeDetector) Detach()            { d.detached.Add(1) }
func (d *fakeDetector) send(tone rune)     { d.tones <- tone }

func awaitOutcome(t *testing.T, ch <-chan signal.Outcome) signal.Outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(time.Second):
		t.Fatal("machine did not complete")
		return signal.Outcome{}
	}
}

func newHarness(params *Parameters) (*Machine, *fakePlayer, *fakeDetector, *fakeClock, <-chan signal.Outcome) {
	player := newFakePlayer()
	detector := newFakeDetector()
	clock := newFakeClock()
	outcomes := make(chan signal.Outcome, 1)

	m, err := NewMachine(params, player, detector, clock, func(o signal.Outcome) {
		outcomes <- o
	})
	if err != nil {
		panic(err)
	}
	return m, player, detector, clock, outcomes
}

// TestCollectFixedDigitCount covers spec §8 scenario 1: a fixed digit
// count is collected and the signal completes successfully.
func TestCollectFixedDigitCount(t *testing.T) {
	params := &Parameters{
		InitialPrompt:   []string{"welcome.wav"},
		NumAttempts:     1,
		MinDigits:       4,
		MaxDigits:       4,
		FirstDigitTimer: 5 * time.Second,
		InterDigitTimer: 3 * time.Second,
		StartInputKeys:  "0123456789",
		EndInputKey:     "#",
	}
	m, player, detector, clock, outcomes := newHarness(params)

	go m.Run()

	uri, ch := player.awaitPlay(t)
	if uri != "welcome.wav" {
		t.Fatalf("got prompt %q, want welcome.wav", uri)
	}
	ch <- nil

	fdt := clock.next(t)
	_ = fdt

	detector.send('1')
	clock.next(t) // idt rearmed after first digit
	detector.send('2')
	clock.next(t)
	detector.send('3')
	clock.next(t)
	detector.send('4')

	o := awaitOutcome(t, outcomes)
	if o.Failed {
		t.Fatalf("expected success, got failure code %d", o.Code)
	}
	if o.Code != CodeSuccess {
		t.Errorf("code = %d, want %d", o.Code, CodeSuccess)
	}
	if o.Params["dc"] != "1234" {
		t.Errorf("dc = %q, want 1234", o.Params["dc"])
	}
	if o.Params["ni"] != "1" {
		t.Errorf("ni = %q, want 1", o.Params["ni"])
	}
}

// TestEndInputKeyStopsCollectionEarly covers spec §8 scenario 2: the
// end-input key terminates collection before MaxDigits is reached.
func TestEndInputKeyStopsCollectionEarly(t *testing.T) {
	params := &Parameters{
		NumAttempts:     1,
		MinDigits:       1,
		MaxDigits:       10,
		FirstDigitTimer: 5 * time.Second,
		InterDigitTimer: 3 * time.Second,
		StartInputKeys:  "0123456789",
		EndInputKey:     "#",
	}
	m, _, detector, clock, outcomes := newHarness(params)

	go m.Run()
	clock.next(t) // fdt armed

	detector.send('7')
	clock.next(t) // idt armed
	detector.send('7')
	detector.send('#')

	o := awaitOutcome(t, outcomes)
	if o.Failed {
		t.Fatalf("expected success, got failure code %d", o.Code)
	}
	if o.Params["dc"] != "77" {
		t.Errorf("dc = %q, want 77", o.Params["dc"])
	}
}

// TestFirstDigitTimeoutRetriesThenSucceeds covers spec §8 scenario 3:
// a first-digit timeout consumes one attempt, reprompts, then a
// second attempt succeeds.
func TestFirstDigitTimeoutRetriesThenSucceeds(t *testing.T) {
	params := &Parameters{
		InitialPrompt:    []string{"ip.wav"},
		NoDigitsReprompt: []string{"nd.wav"},
		NumAttempts:      2,
		MinDigits:        1,
		MaxDigits:        1,
		FirstDigitTimer:  5 * time.Second,
		InterDigitTimer:  3 * time.Second,
		StartInputKeys:   "0123456789",
	}
	m, player, detector, clock, outcomes := newHarness(params)

	go m.Run()

	_, ch := player.awaitPlay(t) // ip.wav
	ch <- nil

	fdt1 := clock.next(t)
	fdt1.fire()

	_, ch2 := player.awaitPlay(t) // nd.wav reprompt
	ch2 <- nil

	clock.next(t) // fdt armed for second attempt
	detector.send('5')

	o := awaitOutcome(t, outcomes)
	if o.Failed {
		t.Fatalf("expected eventual success, got failure code %d", o.Code)
	}
	if o.Params["ni"] != "2" {
		t.Errorf("ni = %q, want 2", o.Params["ni"])
	}
	if o.Params["dc"] != "5" {
		t.Errorf("dc = %q, want 5", o.Params["dc"])
	}
}

// TestDigitPatternMatch covers spec §8 scenario 4: a digit-map pattern
// determines collection completion instead of a fixed digit count.
func TestDigitPatternMatch(t *testing.T) {
	params := &Parameters{
		NumAttempts:     1,
		MinDigits:       1,
		MaxDigits:       1,
		DigitMap:        "xxx",
		FirstDigitTimer: 5 * time.Second,
		InterDigitTimer: 3 * time.Second,
		StartInputKeys:  "0123456789",
	}
	m, _, detector, clock, outcomes := newHarness(params)

	go m.Run()
	clock.next(t) // fdt

	detector.send('1')
	clock.next(t) // idt
	detector.send('2')
	detector.send('3')

	o := awaitOutcome(t, outcomes)
	if o.Failed {
		t.Fatalf("expected success, got failure code %d", o.Code)
	}
	if o.Params["dc"] != "123" {
		t.Errorf("dc = %q, want 123", o.Params["dc"])
	}
}

// TestDigitPatternMatchIncludesEndKey covers the iek=true half of spec
// §8 scenario 4: the end-input key, once matched, is appended to the
// returned sequence.
func TestDigitPatternMatchIncludesEndKey(t *testing.T) {
	params := &Parameters{
		NumAttempts:     1,
		MinDigits:       1,
		MaxDigits:       1,
		DigitMap:        "xxx#",
		FirstDigitTimer: 5 * time.Second,
		InterDigitTimer: 3 * time.Second,
		StartInputKeys:  "0123456789",
		EndInputKey:     "#",
		IncludeEndInput: true,
	}
	m, _, detector, clock, outcomes := newHarness(params)

	go m.Run()
	clock.next(t) // fdt

	detector.send('1')
	clock.next(t) // idt
	detector.send('2')
	detector.send('3')
	detector.send('#')

	o := awaitOutcome(t, outcomes)
	if o.Failed {
		t.Fatalf("expected success, got failure code %d", o.Code)
	}
	if o.Params["dc"] != "123#" {
		t.Errorf("dc = %q, want 123#", o.Params["dc"])
	}
}

// TestDigitPatternMatchExcludesEndKey covers the iek=false half of
// spec §8 scenario 4: the end-input key still terminates and satisfies
// the digit-map match, but is dropped from the returned sequence.
func TestDigitPatternMatchExcludesEndKey(t *testing.T) {
	params := &Parameters{
		NumAttempts:     1,
		MinDigits:       1,
		MaxDigits:       1,
		DigitMap:        "xxx#",
		FirstDigitTimer: 5 * time.Second,
		InterDigitTimer: 3 * time.Second,
		StartInputKeys:  "0123456789",
		EndInputKey:     "#",
		IncludeEndInput: false,
	}
	m, _, detector, clock, outcomes := newHarness(params)

	go m.Run()
	clock.next(t) // fdt

	detector.send('1')
	clock.next(t) // idt
	detector.send('2')
	detector.send('3')
	detector.send('#')

	o := awaitOutcome(t, outcomes)
	if o.Failed {
		t.Fatalf("expected success, got failure code %d", o.Code)
	}
	if o.Params["dc"] != "123" {
		t.Errorf("dc = %q, want 123", o.Params["dc"])
	}
}

// TestReturnKeyEndsImmediately covers the rtk transition of spec §4.6:
// the return key ends the signal with the sequence collected so far,
// bypassing pattern/min-digit validation entirely.
func TestReturnKeyEndsImmediately(t *testing.T) {
	params := &Parameters{
		NumAttempts:     1,
		MinDigits:       4,
		MaxDigits:       4,
		FirstDigitTimer: 5 * time.Second,
		InterDigitTimer: 3 * time.Second,
		StartInputKeys:  "0123456789",
		ReturnKey:       "*",
	}
	m, _, detector, clock, outcomes := newHarness(params)

	go m.Run()
	clock.next(t) // fdt

	detector.send('7')
	clock.next(t) // idt
	detector.send('*')

	o := awaitOutcome(t, outcomes)
	if o.Failed {
		t.Fatalf("expected success via return key, got failure code %d", o.Code)
	}
	if o.Params["dc"] != "7" {
		t.Errorf("dc = %q, want 7 (return key short-circuits min-digit validation)", o.Params["dc"])
	}
}

// TestAttemptsExhaustedFailsWithNoDigits covers spec §8 scenario 5:
// once NumAttempts is exhausted with no digits ever collected, the
// signal fails with CodeNoDigits.
func TestAttemptsExhaustedFailsWithNoDigits(t *testing.T) {
	params := &Parameters{
		FailureAnnouncement: []string{"fail.wav"},
		NumAttempts:         1,
		MinDigits:           1,
		MaxDigits:           1,
		FirstDigitTimer:     5 * time.Second,
		InterDigitTimer:     3 * time.Second,
		StartInputKeys:      "0123456789",
	}
	m, player, _, clock, outcomes := newHarness(params)

	go m.Run()
	fdt := clock.next(t)
	fdt.fire()

	_, ch := player.awaitPlay(t) // fail.wav
	ch <- nil

	o := awaitOutcome(t, outcomes)
	if !o.Failed {
		t.Fatalf("expected failure, got success")
	}
	if o.Code != CodeNoDigits {
		t.Errorf("code = %d, want %d", o.Code, CodeNoDigits)
	}
	if o.Params["ni"] != "1" {
		t.Errorf("ni = %q, want 1", o.Params["ni"])
	}
}

// TestCancelEmitsNoOutcome covers spec §8 scenario 6: canceling an
// in-progress collection never invokes the completion callback.
func TestCancelEmitsNoOutcome(t *testing.T) {
	params := &Parameters{
		NumAttempts:     1,
		MinDigits:       1,
		MaxDigits:       1,
		FirstDigitTimer: 5 * time.Second,
		InterDigitTimer: 3 * time.Second,
		StartInputKeys:  "0123456789",
	}
	m, _, _, clock, outcomes := newHarness(params)

	go m.Run()
	clock.next(t)

	m.Cancel()

	select {
	case o := <-outcomes:
		t.Fatalf("expected no outcome after cancel, got %+v", o)
	case <-time.After(100 * time.Millisecond):
	}

	if !m.lifecycle.IsTerminal() {
		t.Error("lifecycle should be terminal after Cancel")
	}
}
