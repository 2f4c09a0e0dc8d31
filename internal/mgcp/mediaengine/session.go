package mediaengine

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pion/rtp"

	"github.com/sebas/mgcpgw/internal/mgcp/endpoint"
	"github.com/sebas/mgcpgw/internal/mgcp/sdpadapter"
)

// Session is one connection's RTP socket, playing announcements out
// and decoding RFC 4733 DTMF events in. It implements both
// playcollect.Player and playcollect.DtmfDetector: PlayCollect owns
// exactly one Session for the lifetime of one signal (spec §4.6
// "one RTP session per connection, no conferencing").
type Session struct {
	conn          *net.UDPConn
	remote        *net.UDPAddr
	codecPT       uint8
	dtmfPT        uint8
	audioBasePath string

	ssrc uint32

	mu        sync.Mutex
	cancelPlay context.CancelFunc

	tones     chan rune
	closeOnce sync.Once
	readDone  chan struct{}
}

// NewSession binds a UDP socket on conn's local RTP port and starts
// the background DTMF reader. The codec and DTMF payload types are
// read back out of conn's own negotiated local SDP (spec §4.1
// "LocalConnectionOptions").
func NewSession(conn *endpoint.Connection, audioBasePath string) (*Session, error) {
	local, err := sdpadapter.ParseOffer([]byte(conn.LocalSDP))
	if err != nil {
		return nil, fmt.Errorf("parse local sdp: %w", err)
	}
	codecPT, err := payloadTypeOf(local.Codec, pcmuPayloadType)
	if err != nil {
		return nil, err
	}
	dtmfPT := telephoneEventPayload
	if local.DtmfPayload != "" {
		if pt, err := payloadTypeOf(local.DtmfPayload, telephoneEventPayload); err == nil {
			dtmfPT = pt
		}
	}

	udp, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: conn.LocalPort})
	if err != nil {
		return nil, fmt.Errorf("bind rtp socket on port %d: %w", conn.LocalPort, err)
	}

	s := &Session{
		conn:          udp,
		remote:        &net.UDPAddr{IP: net.ParseIP(conn.RemoteAddr), Port: conn.RemotePort},
		codecPT:       codecPT,
		dtmfPT:        dtmfPT,
		audioBasePath: audioBasePath,
		ssrc:          randomUint32(),
		tones:         make(chan rune, 32),
		readDone:      make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func payloadTypeOf(s string, fallback uint8) (uint8, error) {
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid payload type %q: %w", s, err)
	}
	return uint8(n), nil
}

func randomUint32() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0x4d474350 // "MGCP", an arbitrary but stable fallback
	}
	return binary.BigEndian.Uint32(b[:])
}

// Play streams one announcement file as paced RTP frames. It
// satisfies playcollect.Player.
func (s *Session) Play(ctx context.Context, uri string) <-chan error {
	ch := make(chan error, 1)
	playCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancelPlay = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()
		ch <- s.stream(playCtx, uri)
	}()
	return ch
}

// Stop aborts any in-progress playback. Safe to call even if nothing
// is playing.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancelPlay
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) stream(ctx context.Context, uri string) error {
	payload, err := loadPrompt(s.audioBasePath, uri, s.codecPT)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	seq := uint16(randomUint32())
	ts := randomUint32()

	for offset := 0; offset < len(payload); offset += samplesPerFrame {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		end := offset + samplesPerFrame
		if end > len(payload) {
			end = len(payload)
		}

		pkt := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         offset == 0,
				PayloadType:    s.codecPT,
				SequenceNumber: seq,
				Timestamp:      ts,
				SSRC:           s.ssrc,
			},
			Payload: payload[offset:end],
		}
		data, err := pkt.Marshal()
		if err != nil {
			return err
		}
		if _, err := s.conn.WriteToUDP(data, s.remote); err != nil {
			return fmt.Errorf("write rtp frame: %w", err)
		}

		seq++
		ts += samplesPerFrame
	}
	return nil
}

// Tones returns the channel of completed DTMF digits. Satisfies
// playcollect.DtmfDetector.
func (s *Session) Tones() <-chan rune { return s.tones }

// ClearBuffer discards any tones detected but not yet consumed (spec
// §4.6 "cb" parameter).
func (s *Session) ClearBuffer() {
	for {
		select {
		case <-s.tones:
		default:
			return
		}
	}
}

// Detach tears down this connection's RTP socket. Safe to call
// multiple times; a fresh Session is created for the next signal.
func (s *Session) Detach() {
	s.closeOnce.Do(func() {
		s.conn.Close()
		<-s.readDone
	})
}

func (s *Session) readLoop() {
	defer close(s.readDone)

	buf := make([]byte, 1500)
	var pending bool
	var pendingEvent uint8

	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		if pkt.PayloadType != s.dtmfPT {
			continue
		}
		evt, err := decodeDTMFEvent(pkt.Payload)
		if err != nil {
			continue
		}

		if evt.EndOfEvent {
			if pending && evt.Event == pendingEvent && evt.Duration >= minDTMFDuration {
				if tone, ok := eventToRune(evt.Event); ok {
					select {
					case s.tones <- tone:
					default:
						slog.Warn("[mediaengine] dtmf buffer full, dropping tone", "tone", tone)
					}
				}
			}
			pending = false
			continue
		}

		if !pending || evt.Event != pendingEvent {
			pending = true
			pendingEvent = evt.Event
		}
	}
}
