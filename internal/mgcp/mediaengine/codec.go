package mediaengine

import "time"

// Payload types this engine plays/detects, matching sdpadapter's
// negotiated values.
const (
	pcmuPayloadType          uint8 = 0
	pcmaPayloadType          uint8 = 8
	telephoneEventPayload    uint8 = 101
	samplesPerFrame                = 160 // 20ms at 8kHz
	frameDuration            = 20 * time.Millisecond
)
