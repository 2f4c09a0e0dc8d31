// Package playcollect implements the AU package PlayCollect signal
// state machine: prompt sequencing, digit collection, pattern
// matching, attempt accounting, retry-on-failure, and per-phase
// timers (spec §4.6).
package playcollect

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/sebas/mgcpgw/internal/mgcp/command"
	"github.com/sebas/mgcpgw/internal/mgcp/playlist"
	"github.com/sebas/mgcpgw/internal/mgcp/signal"
)

// repromptReason tracks which prompt slot feeds the next REPROMPTING
// playback: a first-digit timeout plays "nd", a validation failure
// plays "rp" (spec §4.6 parameter table).
type repromptReason int

const (
	reasonNoDigits repromptReason = iota
	reasonValidationFailed
)

// Machine runs one PlayCollect signal to completion. It owns the
// Player/DtmfDetector for the duration of the run (spec §5: "The
// Player and DtmfDetector are exclusively owned by the currently
// active signal on an endpoint").
type Machine struct {
	params *Parameters
	player Player
	detector DtmfDetector
	clock  Clock

	lifecycle *signal.Lifecycle

	ctx      context.Context
	cancelFn context.CancelFunc

	sequence string
	attempts int
	phase    Phase

	ipPlaylist *playlist.Playlist
	rpPlaylist *playlist.Playlist
	ndPlaylist *playlist.Playlist
	saPlaylist *playlist.Playlist
	faPlaylist *playlist.Playlist

	current *playlist.Playlist // playlist currently driving playback, for stk/psk

	repromptFor         repromptReason
	pendingFailureCode  int
	timer               Timer
	timerCh             <-chan time.Time
	playCh              <-chan error

	pattern *regexp.Regexp
}

// NewMachine builds a Machine for one PlayCollect run. onOutcome is
// invoked exactly once, through the embedded signal.Lifecycle, when
// the run reaches Terminal (or never, if canceled).
func NewMachine(params *Parameters, player Player, detector DtmfDetector, clock Clock, onOutcome func(signal.Outcome)) (*Machine, error) {
	var pattern *regexp.Regexp
	if params.DigitMap != "" {
		re, err := compileDigitPattern(params.DigitMap)
		if err != nil {
			return nil, command.ProtocolError("invalid digit pattern: " + err.Error())
		}
		pattern = re
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Machine{
		params:     params,
		player:     player,
		detector:   detector,
		clock:      clock,
		ctx:        ctx,
		cancelFn:   cancel,
		phase:      Idle,
		attempts:   1,
		ipPlaylist: playlist.New(params.InitialPrompt, 1),
		rpPlaylist: playlist.New(params.RepromptPrompt, 1),
		ndPlaylist: playlist.New(params.NoDigitsReprompt, 1),
		saPlaylist: playlist.New(params.SuccessAnnouncement, 1),
		faPlaylist: playlist.New(params.FailureAnnouncement, 1),
		pattern:    pattern,
	}
	m.lifecycle = signal.NewLifecycle("AU", "pc", signal.TimeOut, onOutcome, m.release)
	return m, nil
}

// release stops the timer, player, and detector. Invoked exactly once
// by the Lifecycle on any exit path.
func (m *Machine) release() {
	m.cancelFn()
	m.stopTimer()
	m.player.Stop()
	m.detector.Detach()
}

// Cancel aborts the run with no completion notification (spec §4.5,
// §5 "Cancellation").
func (m *Machine) Cancel() {
	m.lifecycle.Cancel()
}

// Run begins the state machine and drives it to completion. Callers
// run it on its own goroutine; it returns once the signal reaches
// Terminal or is canceled.
func (m *Machine) Run() {
	if err := m.lifecycle.Start(); err != nil {
		slog.Warn("[PlayCollect] start rejected", "error", err)
		return
	}

	if m.params.ClearDigitBuffer {
		m.detector.ClearBuffer()
	}

	if !m.ipPlaylist.Empty() {
		m.enterPrompting()
	} else {
		m.enterCollectingFirst()
	}

	m.loop()
}

func (m *Machine) loop() {
	tones := m.detector.Tones()
	for m.phase != Terminal && !m.lifecycle.IsTerminal() {
		select {
		case <-m.ctx.Done():
			return
		case tone, ok := <-tones:
			if !ok {
				continue
			}
			m.handleTone(tone)
		case err, ok := <-m.playCh:
			if !ok {
				continue
			}
			m.handlePlaybackDone(err)
		case t, ok := <-m.timerCh:
			if !ok {
				continue
			}
			_ = t
			m.handleTimeout()
		}
	}
}

// --- phase entry points ---

func (m *Machine) enterPrompting() {
	m.phase = Prompting
	m.ipPlaylist.Reset()
	m.current = m.ipPlaylist
	m.playNext()
}

func (m *Machine) enterCollectingFirst() {
	m.phase = CollectingFirst
	m.current = nil
	m.stopTimer()
	m.armTimer(m.params.FirstDigitTimer)
}

func (m *Machine) enterCollectingSubsequent() {
	m.phase = CollectingSubsequent
	m.armTimer(m.params.InterDigitTimer)
}

func (m *Machine) enterReprompting() {
	m.phase = Reprompting
	var pl *playlist.Playlist
	switch m.repromptFor {
	case reasonNoDigits:
		pl = m.ndPlaylist
	default:
		pl = m.rpPlaylist
	}
	pl.Reset()
	m.current = pl
	if pl.Empty() {
		m.enterCollectingFirst()
		return
	}
	m.playNext()
}

func (m *Machine) enterAnnouncingSuccess() {
	m.phase = AnnouncingSuccess
	m.saPlaylist.Reset()
	m.current = m.saPlaylist
	if m.saPlaylist.Empty() {
		m.finishSuccess()
		return
	}
	m.playNext()
}

func (m *Machine) enterAnnouncingFailure(code int) {
	m.phase = AnnouncingFailure
	m.pendingFailureCode = code
	m.faPlaylist.Reset()
	m.current = m.faPlaylist
	if m.faPlaylist.Empty() {
		m.finishFailure(code)
		return
	}
	m.playNext()
}

// --- playback driving ---

func (m *Machine) playNext() {
	uri, ok := m.current.Next()
	if !ok {
		m.onPlaylistExhausted()
		return
	}
	m.playCh = m.player.Play(m.ctx, uri)
}

func (m *Machine) onPlaylistExhausted() {
	m.playCh = nil
	switch m.phase {
	case Prompting, Reprompting:
		m.enterCollectingFirst()
	case AnnouncingSuccess:
		m.finishSuccess()
	case AnnouncingFailure:
		m.finishFailure(m.pendingFailureCode)
	}
}

func (m *Machine) handlePlaybackDone(err error) {
	if err != nil {
		slog.Warn("[PlayCollect] playback error, continuing", "error", err)
	}
	m.playNext()
}

// --- tone handling ---

func (m *Machine) handleTone(tone rune) {
	switch m.phase {
	case Prompting:
		m.handleTonePrompting(tone)
	case CollectingFirst:
		m.handleToneCollectingFirst(tone)
	case CollectingSubsequent:
		m.handleToneCollectingSubsequent(tone)
	case Reprompting:
		m.handleToneReprompting(tone)
	default:
		// No digits are accepted while announcing outcome or idle/terminal.
	}
}

func (m *Machine) handleTonePrompting(tone rune) {
	if isKey(m.params.StopKey, tone) {
		m.stopPlayback()
		m.enterCollectingFirst()
		return
	}
	if isKey(m.params.PositionKey, tone) {
		m.current.Reset()
		return
	}
	if !m.params.NonInterruptible && m.params.AcceptsFirstDigit(tone) {
		m.stopPlayback()
		m.acceptFirstDigit(tone)
	}
}

func (m *Machine) handleToneReprompting(tone rune) {
	if isKey(m.params.StopKey, tone) {
		m.stopPlayback()
		m.enterCollectingFirst()
		return
	}
	if isKey(m.params.PositionKey, tone) {
		m.current.Reset()
		return
	}
	if !m.params.NonInterruptible && m.params.AcceptsFirstDigit(tone) {
		m.stopPlayback()
		m.acceptFirstDigit(tone)
	}
}

func (m *Machine) handleToneCollectingFirst(tone rune) {
	switch {
	case isKey(m.params.StopKey, tone):
		m.validate()
	case isKey(m.params.RestartKey, tone):
		m.restartAttempt()
	case m.params.AcceptsFirstDigit(tone):
		m.acceptFirstDigit(tone)
	}
}

func (m *Machine) handleToneCollectingSubsequent(tone rune) {
	switch {
	case isKey(m.params.ReturnKey, tone):
		// spec §4.6: rtk ends the signal immediately with the sequence
		// collected so far, bypassing pattern/min-digit validation.
		m.stopTimer()
		m.phase = Terminal
		m.lifecycle.Complete(CodeSuccess, map[string]string{
			"dc": m.sequence,
			"ni": strconv.Itoa(m.attempts),
		})
	case isKey(m.params.StopKey, tone):
		m.stopTimer()
		m.validate()
	case m.params.IsEndInputKey(tone):
		// spec §4.6: eik only terminates collection once the minimum
		// digit count is satisfied; otherwise it is ignored.
		if m.pattern == nil && len(m.sequence) < m.params.MinDigits {
			return
		}
		// iek controls whether the terminator is *returned* in dc, not
		// whether it counts toward a configured digit pattern: dp="xxx#"
		// must still match the terminator even when iek=false drops it
		// from the reported sequence (spec §8 scenario 4).
		matchSeq := m.sequence
		if m.params.IncludeEndInput {
			m.sequence += string(tone)
			matchSeq = m.sequence
		} else if m.pattern != nil {
			matchSeq = m.sequence + string(tone)
		}
		m.stopTimer()
		m.validateSequence(matchSeq)
	case isKey(m.params.RestartKey, tone):
		m.restartAttempt()
	case isKey(m.params.ReinputKey, tone):
		m.sequence = ""
		m.enterCollectingFirst()
	default:
		m.appendDigit(tone)
	}
}

func (m *Machine) acceptFirstDigit(tone rune) {
	m.sequence = string(tone)
	if m.reachedCollectionLimit() {
		m.stopTimer()
		m.validate()
		return
	}
	m.enterCollectingSubsequent()
}

func (m *Machine) appendDigit(tone rune) {
	m.sequence += string(tone)
	if m.reachedCollectionLimit() {
		m.stopTimer()
		m.validate()
		return
	}
	m.armTimer(m.interDigitTimerFor())
}

// reachedCollectionLimit reports whether the sequence collected so far
// already satisfies the configured termination condition: a full
// digit-map match, or the fixed max-digit count when no digit map is
// configured.
func (m *Machine) reachedCollectionLimit() bool {
	if m.pattern != nil {
		return m.pattern.MatchString(m.sequence)
	}
	return len(m.sequence) >= m.params.MaxDigits
}

// interDigitTimerFor returns the extra-digit timer once the sequence
// already satisfies MinDigits and an extra timer is configured,
// otherwise the ordinary inter-digit timer (spec §4.6 "edt").
func (m *Machine) interDigitTimerFor() time.Duration {
	if m.pattern == nil && m.params.HasExtraTimer && len(m.sequence) >= m.params.MinDigits {
		return m.params.ExtraDigitTimer
	}
	return m.params.InterDigitTimer
}

func (m *Machine) restartAttempt() {
	m.sequence = ""
	m.stopTimer()
	if !m.ipPlaylist.Empty() {
		m.enterPrompting()
		return
	}
	m.enterCollectingFirst()
}

func (m *Machine) stopPlayback() {
	m.player.Stop()
	m.playCh = nil
}

// --- timeout handling ---

func (m *Machine) handleTimeout() {
	switch m.phase {
	case CollectingFirst:
		m.onNoDigitsTimeout()
	case CollectingSubsequent:
		m.validate()
	}
}

func (m *Machine) onNoDigitsTimeout() {
	if m.attempts >= m.params.NumAttempts {
		m.enterAnnouncingFailure(CodeNoDigits)
		return
	}
	m.attempts++
	m.repromptFor = reasonNoDigits
	m.enterReprompting()
}

// --- validation ---

func (m *Machine) validate() {
	m.validateSequence(m.sequence)
}

// validateSequence runs the §4.6 validation rule against matchSeq,
// which is ordinarily m.sequence but may include a consumed-but-not-
// retained terminator (see the eik case in
// handleToneCollectingSubsequent) so pattern matching sees the full
// terminated sequence even when it isn't reflected in the reported
// "dc".
func (m *Machine) validateSequence(matchSeq string) {
	if m.pattern != nil {
		if m.pattern.MatchString(matchSeq) {
			m.enterAnnouncingSuccess()
			return
		}
		m.onValidationFailed(CodePatternNotMatched)
		return
	}

	if len(m.sequence) < m.params.MinDigits {
		m.onValidationFailed(CodeTooFewDigits)
		return
	}
	m.enterAnnouncingSuccess()
}

func (m *Machine) onValidationFailed(code int) {
	if m.attempts >= m.params.NumAttempts {
		m.enterAnnouncingFailure(code)
		return
	}
	m.attempts++
	m.sequence = ""
	m.repromptFor = reasonValidationFailed
	m.enterReprompting()
}

// --- termination ---

func (m *Machine) finishSuccess() {
	m.phase = Terminal
	m.lifecycle.Complete(CodeSuccess, map[string]string{
		"dc": m.sequence,
		"ni": strconv.Itoa(m.attempts),
	})
}

func (m *Machine) finishFailure(code int) {
	m.phase = Terminal
	m.lifecycle.Fail(code, map[string]string{
		"dc": m.sequence,
		"ni": strconv.Itoa(m.attempts),
	})
}

// --- timer plumbing ---

func (m *Machine) armTimer(d time.Duration) {
	m.stopTimer()
	t := m.clock.NewTimer(d)
	m.timer = t
	m.timerCh = t.C()
}

func (m *Machine) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
		m.timerCh = nil
	}
}
