// Package playlist implements the finite, repeatable audio-segment
// iterator spec §4.7 describes. Not thread-safe; the owning
// playcollect.Machine serializes access on its endpoint's executor
// (spec §5).
package playlist

// Playlist is an ordered, finite sequence of audio segment URIs,
// concatenated RepeatCount times.
type Playlist struct {
	segments    []string
	repeatCount int
	cursor      int // absolute position across segments*repeatCount
}

// New builds a Playlist. A RepeatCount of 0 makes the playlist empty
// regardless of segment count (spec §3: "empty() iff segments.length
// == 0 v repeatCount == 0").
func New(segments []string, repeatCount int) *Playlist {
	return &Playlist{segments: segments, repeatCount: repeatCount}
}

// Empty reports whether the playlist has nothing to play.
func (p *Playlist) Empty() bool {
	return len(p.segments) == 0 || p.repeatCount == 0
}

// Next returns the next URI and true, or ("", false) once the
// playlist is exhausted.
func (p *Playlist) Next() (string, bool) {
	if p.Empty() {
		return "", false
	}
	total := len(p.segments) * p.repeatCount
	if p.cursor >= total {
		return "", false
	}
	uri := p.segments[p.cursor%len(p.segments)]
	p.cursor++
	return uri, true
}

// Reset repositions the playlist to its start, so a retry round
// replays the full sequence from the first segment.
func (p *Playlist) Reset() {
	p.cursor = 0
}

// Segments returns the underlying segment list (read-only use by
// callers that need position-key navigation, e.g. "jump to first").
func (p *Playlist) Segments() []string {
	return p.segments
}
