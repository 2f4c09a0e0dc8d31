// Package mediaengine provides the concrete RTP/G.711 Player and
// DtmfDetector the PlayCollect state machine drives, adapted from the
// original media package's DTMF/WAV/RTP-writer trio onto one shared
// RTP socket per connection (spec §5 "Media I/O").
package mediaengine

import (
	"encoding/binary"
	"fmt"
)

// dtmfEvent is an RFC 4733 telephone-event payload (4 bytes): event
// code, end-of-event bit, volume, and duration in timestamp units.
type dtmfEvent struct {
	Event      uint8
	EndOfEvent bool
	Duration   uint16
}

// DTMF event codes, RFC 4733 §3.
const (
	dtmfStar  uint8 = 10
	dtmfPound uint8 = 11
	dtmfA     uint8 = 12
	dtmfD     uint8 = 15
)

// minDTMFDuration filters noise/very brief accidental presses (50ms
// at 8kHz).
const minDTMFDuration uint16 = 400

// decodeDTMFEvent decodes an RFC 4733 4-byte payload.
func decodeDTMFEvent(payload []byte) (dtmfEvent, error) {
	if len(payload) < 4 {
		return dtmfEvent{}, fmt.Errorf("dtmf payload too short: %d bytes", len(payload))
	}
	return dtmfEvent{
		Event:      payload[0],
		EndOfEvent: payload[1]&0x80 != 0,
		Duration:   binary.BigEndian.Uint16(payload[2:]),
	}, nil
}

// eventToRune converts an RFC 4733 event code to its digit character.
func eventToRune(event uint8) (rune, bool) {
	switch {
	case event <= 9:
		return rune('0' + event), true
	case event == dtmfStar:
		return '*', true
	case event == dtmfPound:
		return '#', true
	case event >= dtmfA && event <= dtmfD:
		return rune('A' + (event - dtmfA)), true
	}
	return 0, false
}
