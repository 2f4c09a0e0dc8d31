// Package message defines the MGCP request/response wire model:
// verbs, endpoint identifiers, parameter types, and the discriminated
// Request/Response union the rest of the gateway mediates.
package message

import (
	"fmt"
	"strings"
)

// Verb is the closed set of MGCP command verbs this controller
// understands. Unknown verb strings never become a Verb value; see
// ParseVerb.
type Verb int

const (
	VerbUnknown Verb = iota
	CRCX             // CreateConnection
	MDCX             // ModifyConnection
	DLCX             // DeleteConnection
	RQNT             // NotificationRequest
	NTFY             // Notify (outbound, generated by signals)
	AUEP             // AuditEndpoint
	AUCX             // AuditConnection
)

func (v Verb) String() string {
	switch v {
	case CRCX:
		return "CRCX"
	case MDCX:
		return "MDCX"
	case DLCX:
		return "DLCX"
	case RQNT:
		return "RQNT"
	case NTFY:
		return "NTFY"
	case AUEP:
		return "AUEP"
	case AUCX:
		return "AUCX"
	default:
		return "UNKNOWN"
	}
}

// ParseVerb resolves a verb string to a closed Verb value. Unknown
// verbs are rejected here, before any Request is constructed, per the
// "dynamic command dispatch" design note: resolution by string is a
// one-time lookup into a fixed enumeration rather than a runtime class
// lookup.
func ParseVerb(s string) (Verb, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRCX":
		return CRCX, true
	case "MDCX":
		return MDCX, true
	case "DLCX":
		return DLCX, true
	case "RQNT":
		return RQNT, true
	case "NTFY":
		return NTFY, true
	case "AUEP":
		return AUEP, true
	case "AUCX":
		return AUCX, true
	default:
		return VerbUnknown, false
	}
}

// Direction tags a Message with where it is travelling relative to
// this controller.
type Direction int

const (
	Incoming Direction = iota
	Outgoing
)

func (d Direction) String() string {
	if d == Outgoing {
		return "OUT"
	}
	return "IN"
}

// ParamType is the closed vocabulary of MGCP parameter keys this
// controller recognizes, spanning both generic MGCP parameters and
// the AU/PlayCollect signal lexicon of spec §4.6.
type ParamType int

const (
	ParamUnknown ParamType = iota

	// Generic MGCP parameters.
	ParamRequestedEvents
	ParamSignalRequests
	ParamNotifiedEntity
	ParamObservedEvents
	ParamLocalConnectionOptions
	ParamSDP
	ParamConnectionID

	// PlayCollect (AU package) signal parameters.
	ParamInitialPrompt       // ip
	ParamRepromptPrompt      // rp
	ParamNoDigitsReprompt    // nd
	ParamFailureAnnouncement // fa
	ParamSuccessAnnouncement // sa
	ParamNonInterruptible    // ni (note: distinct from the "ni" result field, see playcollect)
	ParamClearDigitBuffer    // cb
	ParamNumAttempts         // na
	ParamMinDigits           // mn
	ParamMaxDigits           // mx
	ParamDigitPattern        // dp
	ParamFirstDigitTimer     // fdt
	ParamInterDigitTimer     // idt
	ParamExtraDigitTimer     // edt
	ParamRestartKey          // rsk
	ParamReinputKey          // rik
	ParamReturnKey           // rtk
	ParamPositionKey         // psk
	ParamStopKey             // stk
	ParamStartInputKeys      // sik
	ParamEndInputKey         // eik
	ParamIncludeEndInputKey  // iek
)

// paramKeys maps the declared parameter vocabulary to its MGCP
// on-the-wire key. ParamFromKey/Key are the only place this mapping
// lives so adding a parameter never requires touching call sites.
var paramKeys = map[ParamType]string{
	ParamRequestedEvents:        "R",
	ParamSignalRequests:         "S",
	ParamNotifiedEntity:         "N",
	ParamObservedEvents:         "O",
	ParamLocalConnectionOptions: "L",
	ParamSDP:                    "SDP",
	ParamConnectionID:           "I",

	ParamInitialPrompt:       "ip",
	ParamRepromptPrompt:      "rp",
	ParamNoDigitsReprompt:    "nd",
	ParamFailureAnnouncement: "fa",
	ParamSuccessAnnouncement: "sa",
	ParamNonInterruptible:    "ni",
	ParamClearDigitBuffer:    "cb",
	ParamNumAttempts:         "na",
	ParamMinDigits:           "mn",
	ParamMaxDigits:           "mx",
	ParamDigitPattern:        "dp",
	ParamFirstDigitTimer:     "fdt",
	ParamInterDigitTimer:     "idt",
	ParamExtraDigitTimer:     "edt",
	ParamRestartKey:          "rsk",
	ParamReinputKey:          "rik",
	ParamReturnKey:           "rtk",
	ParamPositionKey:         "psk",
	ParamStopKey:             "stk",
	ParamStartInputKeys:      "sik",
	ParamEndInputKey:         "eik",
	ParamIncludeEndInputKey:  "iek",
}

var keyToParam = func() map[string]ParamType {
	m := make(map[string]ParamType, len(paramKeys))
	for t, k := range paramKeys {
		m[k] = t
	}
	return m
}()

// Key returns the on-the-wire key for a parameter type.
func (p ParamType) Key() string {
	if k, ok := paramKeys[p]; ok {
		return k
	}
	return ""
}

// ParamFromKey resolves a wire key to its ParamType. The second
// return is false for any key outside the declared vocabulary, which
// callers (signal parameter validation, §6 "Unknown parameters") use
// to raise CommandError{538}.
func ParamFromKey(key string) (ParamType, bool) {
	t, ok := keyToParam[key]
	return t, ok
}

// EndpointID identifies an endpoint as "localName@domain". LocalName
// may be the literal wildcards "*" (all matching endpoints) or "$"
// (allocate any free endpoint) per spec §6.
type EndpointID struct {
	LocalName string
	Domain    string
}

// ParseEndpointID splits "localName@domain" into its parts.
func ParseEndpointID(s string) (EndpointID, error) {
	parts := strings.SplitN(s, "@", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return EndpointID{}, fmt.Errorf("malformed endpoint id: %q", s)
	}
	return EndpointID{LocalName: parts[0], Domain: parts[1]}, nil
}

// String renders the endpoint id back to "localName@domain".
func (e EndpointID) String() string {
	return e.LocalName + "@" + e.Domain
}

// IsWildcardAll reports whether the local name requests a broadcast
// to every matching endpoint ("*").
func (e EndpointID) IsWildcardAll() bool { return e.LocalName == "*" }

// IsWildcardAny reports whether the local name requests allocation of
// any free endpoint ("$").
func (e EndpointID) IsWildcardAny() bool { return e.LocalName == "$" }

// Request is an inbound MGCP command.
type Request struct {
	Verb          Verb
	TransactionID int
	EndpointID    EndpointID
	Params        map[ParamType]string
}

// Response is an MGCP reply. The NTFY messages signals generate are
// Requests, not Responses.
type Response struct {
	TransactionID int
	Code          int
	Comment       string
	Params        map[ParamType]string
}

// Message is the discriminated union notified on the bus: exactly one
// of Request/Response is non-nil.
type Message struct {
	Request  *Request
	Response *Response
}

// IsRequest reports whether this Message carries a Request.
func (m Message) IsRequest() bool { return m.Request != nil }

// IsResponse reports whether this Message carries a Response.
func (m Message) IsResponse() bool { return m.Response != nil }

// TransactionID returns the correlating transaction id regardless of
// which half of the union is populated.
func (m Message) TransactionID() int {
	if m.Request != nil {
		return m.Request.TransactionID
	}
	if m.Response != nil {
		return m.Response.TransactionID
	}
	return 0
}

func (m Message) String() string {
	switch {
	case m.IsRequest():
		return fmt.Sprintf("%s %d %s", m.Request.Verb, m.Request.TransactionID, m.Request.EndpointID)
	case m.IsResponse():
		return fmt.Sprintf("%d %d %s", m.Response.Code, m.Response.TransactionID, m.Response.Comment)
	default:
		return "<empty message>"
	}
}
