package mediaengine

import (
	"context"
	"log/slog"

	"github.com/sebas/mgcpgw/internal/mgcp/commands"
	"github.com/sebas/mgcpgw/internal/mgcp/endpoint"
	"github.com/sebas/mgcpgw/internal/mgcp/playcollect"
)

// NewFactory builds a commands.MediaFactory backed by real RTP
// sockets, rooted at audioBasePath for announcement playback.
func NewFactory(audioBasePath string) commands.MediaFactory {
	return func(conn *endpoint.Connection) (playcollect.Player, playcollect.DtmfDetector) {
		sess, err := NewSession(conn, audioBasePath)
		if err != nil {
			slog.Error("[mediaengine] failed to start session", "connection", conn.ID, "error", err)
			b := &broken{err: err}
			return b, b
		}
		return sess, sess
	}
}

// broken satisfies Player/DtmfDetector when a session could not be
// established (e.g. the RTP port is already bound), so RQNT still
// completes the signal lifecycle instead of leaving it half-started.
type broken struct {
	err   error
	tones chan rune
}

func (b *broken) Play(ctx context.Context, uri string) <-chan error {
	ch := make(chan error, 1)
	ch <- b.err
	return ch
}
func (b *broken) Stop() {}

func (b *broken) Tones() <-chan rune {
	if b.tones == nil {
		b.tones = make(chan rune)
	}
	return b.tones
}
func (b *broken) ClearBuffer() {}
func (b *broken) Detach()      {}
