package playcollect

import "context"

// Player plays a single audio URI to completion and reports the
// outcome. It is the concrete shape of the "media player" external
// collaborator spec.md §1 scopes as interface-only; mediaengine
// supplies the reference RTP/G.711 implementation this interface is
// built against.
type Player interface {
	// Play starts playing uri and returns a channel that receives
	// exactly one value — nil on normal completion, non-nil on
	// failure — then is never written to again.
	Play(ctx context.Context, uri string) <-chan error

	// Stop aborts any in-progress playback. Safe to call even if
	// nothing is playing.
	Stop()
}

// DtmfDetector surfaces completed DTMF tones (the RFC 4733 "end of
// event" marker observed) as runes, in the order detected.
type DtmfDetector interface {
	// Tones returns the channel of completed tones. Implementations
	// must preserve detection order (spec §5 "Ordering guarantees").
	Tones() <-chan rune

	// ClearBuffer discards any tones detected but not yet consumed
	// (spec §4.6 "cb" parameter).
	ClearBuffer()

	// Detach releases the detector. Safe to call multiple times.
	Detach()
}
