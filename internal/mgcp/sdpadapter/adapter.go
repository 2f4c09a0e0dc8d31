// Package sdpadapter builds and parses the SDP bodies carried in
// CRCX/MDCX request and response parameters, adapted from the
// teacher's response-SDP builder to the two G.711 codecs plus RFC 4733
// telephone-event this gateway offers (spec §4.1 "LocalConnectionOptions
// / SDP").
package sdpadapter

import (
	"fmt"

	"github.com/pion/sdp/v3"
)

// Codec payload types this gateway negotiates.
const (
	PayloadPCMU           = "0"
	PayloadPCMA           = "8"
	PayloadTelephoneEvent = "101"
)

var rtpmap = map[string]string{
	PayloadPCMU:           "PCMU/8000",
	PayloadPCMA:           "PCMA/8000",
	PayloadTelephoneEvent: "telephone-event/8000",
}

// Offer is the negotiated answer this gateway builds in response to a
// connection request.
type Offer struct {
	SessionID   uint64
	ServerAddr  string
	ServerPort  int
	Codec       string // PayloadPCMU or PayloadPCMA
	DtmfPayload string // PayloadTelephoneEvent, or "" to omit
}

// BuildAnswer renders o as an SDP body.
func BuildAnswer(o Offer) ([]byte, error) {
	formats := []string{o.Codec}
	if o.DtmfPayload != "" {
		formats = append(formats, o.DtmfPayload)
	}

	desc := &sdp.SessionDescription{
		Origin: sdp.Origin{
			Username:       "mgcpgw",
			SessionID:      o.SessionID,
			SessionVersion: o.SessionID,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: o.ServerAddr,
		},
		SessionName: "mgcpgw",
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &sdp.Address{Address: o.ServerAddr},
		},
		TimeDescriptions: []sdp.TimeDescription{{Timing: sdp.Timing{StartTime: 0, StopTime: 0}}},
		MediaDescriptions: []*sdp.MediaDescription{
			{
				MediaName: sdp.MediaName{
					Media:   "audio",
					Port:    sdp.RangedPort{Value: o.ServerPort},
					Protos:  []string{"RTP", "AVP"},
					Formats: formats,
				},
				Attributes: attributesFor(formats),
			},
		},
	}

	return desc.Marshal()
}

func attributesFor(formats []string) []sdp.Attribute {
	attrs := make([]sdp.Attribute, 0, len(formats)+2)
	for _, f := range formats {
		if name, ok := rtpmap[f]; ok {
			attrs = append(attrs, sdp.Attribute{Key: "rtpmap", Value: f + " " + name})
		}
		if f == PayloadTelephoneEvent {
			attrs = append(attrs, sdp.Attribute{Key: "fmtp", Value: f + " 0-15"})
		}
	}
	attrs = append(attrs, sdp.Attribute{Key: "ptime", Value: "20"})
	attrs = append(attrs, sdp.Attribute{Key: "sendrecv"})
	return attrs
}

// RemoteMedia is what this gateway needs from a peer's SDP offer: its
// RTP destination and the codec it is willing to receive.
type RemoteMedia struct {
	Addr        string
	Port        int
	Codec       string
	DtmfPayload string
}

// ParseOffer extracts the RTP destination and codec preference from a
// remote SDP body, preferring PCMU over PCMA when both are offered.
func ParseOffer(body []byte) (RemoteMedia, error) {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal(body); err != nil {
		return RemoteMedia{}, fmt.Errorf("parse sdp: %w", err)
	}
	if len(desc.MediaDescriptions) == 0 {
		return RemoteMedia{}, fmt.Errorf("sdp has no media descriptions")
	}
	md := desc.MediaDescriptions[0]

	addr := ""
	if md.ConnectionInformation != nil && md.ConnectionInformation.Address != nil {
		addr = md.ConnectionInformation.Address.Address
	} else if desc.ConnectionInformation != nil && desc.ConnectionInformation.Address != nil {
		addr = desc.ConnectionInformation.Address.Address
	}

	rm := RemoteMedia{Addr: addr, Port: md.MediaName.Port.Value}
	for _, f := range md.MediaName.Formats {
		switch f {
		case PayloadPCMU:
			rm.Codec = PayloadPCMU
		case PayloadPCMA:
			if rm.Codec == "" {
				rm.Codec = PayloadPCMA
			}
		case PayloadTelephoneEvent:
			rm.DtmfPayload = PayloadTelephoneEvent
		}
	}
	if rm.Codec == "" {
		return RemoteMedia{}, fmt.Errorf("no supported codec offered (PCMU/PCMA required)")
	}
	return rm, nil
}
