package playcollect

import (
	"strconv"
	"strings"
	"time"

	"github.com/sebas/mgcpgw/internal/mgcp/command"
)

// Vocabulary is the full set of PlayCollect parameter keys this
// controller recognizes (spec §4.6 table). Any key outside this set
// fails parsing with CommandError{538} (spec §6).
var Vocabulary = map[string]struct{}{
	"ip": {}, "rp": {}, "nd": {}, "fa": {}, "sa": {},
	"ni": {}, "cb": {}, "na": {}, "mn": {}, "mx": {}, "dp": {},
	"fdt": {}, "idt": {}, "edt": {},
	"rsk": {}, "rik": {}, "rtk": {}, "psk": {}, "stk": {},
	"sik": {}, "eik": {}, "iek": {},
}

const tick = 100 * time.Millisecond

// Parameters is the parsed, defaulted, and validated configuration of
// one PlayCollect run (spec §4.6 table).
type Parameters struct {
	InitialPrompt       []string
	RepromptPrompt      []string
	NoDigitsReprompt    []string
	FailureAnnouncement []string
	SuccessAnnouncement []string

	NonInterruptible bool
	ClearDigitBuffer bool

	NumAttempts int
	MinDigits   int
	MaxDigits   int
	DigitMap    string // raw dp, mutually exclusive with MinDigits/MaxDigits being explicit

	FirstDigitTimer time.Duration
	InterDigitTimer time.Duration
	ExtraDigitTimer time.Duration // used only when HasExtraTimer is set
	HasExtraTimer   bool          // false when edt is unset, which disables the extra-digit timer

	RestartKey  string
	ReinputKey  string
	ReturnKey   string
	PositionKey string
	StopKey     string

	StartInputKeys  string
	EndInputKey     string // empty means disabled ("null")
	IncludeEndInput bool
}

// ParseParameters parses the raw wire parameter map into Parameters,
// applying every default of the §4.6 table and rejecting unknown keys
// or invariant violations.
func ParseParameters(raw map[string]string) (*Parameters, error) {
	for k := range raw {
		if _, ok := Vocabulary[k]; !ok {
			return nil, command.UnknownParameter("unsupported PlayCollect parameter: " + k)
		}
	}

	p := &Parameters{
		NumAttempts:     1,
		MinDigits:       1,
		MaxDigits:       1,
		FirstDigitTimer: 50 * tick,
		InterDigitTimer: 30 * tick,
		StartInputKeys:  "0123456789",
		EndInputKey:     "#",
	}

	p.InitialPrompt = splitCSV(raw["ip"])

	if v, ok := raw["rp"]; ok {
		p.RepromptPrompt = splitCSV(v)
	} else {
		p.RepromptPrompt = p.InitialPrompt
	}

	if v, ok := raw["nd"]; ok {
		p.NoDigitsReprompt = splitCSV(v)
	} else {
		p.NoDigitsReprompt = p.RepromptPrompt
	}

	p.FailureAnnouncement = splitCSV(raw["fa"])
	// spec §9 Open Questions: the source reads the "fa" key for the
	// success announcement too, which is a bug; this controller reads
	// "sa" as specified.
	p.SuccessAnnouncement = splitCSV(raw["sa"])

	if v, ok := raw["ni"]; ok {
		p.NonInterruptible = parseBool(v)
	}
	if v, ok := raw["cb"]; ok {
		p.ClearDigitBuffer = parseBool(v)
	}

	if v, ok := raw["na"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, command.ProtocolError("invalid na: " + v)
		}
		p.NumAttempts = n
	}

	_, mnSet := raw["mn"]
	_, mxSet := raw["mx"]
	_, dpSet := raw["dp"]

	if dpSet && (mnSet || mxSet) {
		return nil, command.ProtocolError("dp is mutually exclusive with mn/mx")
	}

	if dpSet {
		p.DigitMap = raw["dp"]
	} else {
		if mnSet {
			n, err := strconv.Atoi(raw["mn"])
			if err != nil {
				return nil, command.ProtocolError("invalid mn: " + raw["mn"])
			}
			p.MinDigits = n
		}
		if mxSet {
			n, err := strconv.Atoi(raw["mx"])
			if err != nil {
				return nil, command.ProtocolError("invalid mx: " + raw["mx"])
			}
			p.MaxDigits = n
		}
		if p.MinDigits > p.MaxDigits {
			return nil, command.ProtocolError("mn must be <= mx")
		}
	}

	if v, ok := raw["fdt"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, command.ProtocolError("invalid fdt: " + v)
		}
		p.FirstDigitTimer = time.Duration(n) * tick
	}
	if v, ok := raw["idt"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, command.ProtocolError("invalid idt: " + v)
		}
		p.InterDigitTimer = time.Duration(n) * tick
	}
	// spec §9 Open Questions: the source defaults edt to "" and then
	// parses it as an integer, which would error. This controller
	// treats an unset edt as disabled instead.
	if v, ok := raw["edt"]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, command.ProtocolError("invalid edt: " + v)
		}
		p.ExtraDigitTimer = time.Duration(n) * tick
		p.HasExtraTimer = true
	}

	p.RestartKey = raw["rsk"]
	p.ReinputKey = raw["rik"]
	p.ReturnKey = raw["rtk"]
	p.PositionKey = raw["psk"]
	p.StopKey = raw["stk"]

	if v, ok := raw["sik"]; ok && v != "" {
		p.StartInputKeys = v
	}

	if v, ok := raw["eik"]; ok {
		if strings.EqualFold(strings.TrimSpace(v), "null") {
			p.EndInputKey = ""
		} else {
			p.EndInputKey = v
		}
	}

	if v, ok := raw["iek"]; ok {
		p.IncludeEndInput = parseBool(v)
	}

	return p, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// AcceptsFirstDigit reports whether tone is a valid first digit per
// the configured start-input-keys set.
func (p *Parameters) AcceptsFirstDigit(tone rune) bool {
	return strings.ContainsRune(p.StartInputKeys, tone)
}

// IsEndInputKey reports whether tone terminates collection. A
// disabled end-input-key ("null") never matches.
func (p *Parameters) IsEndInputKey(tone rune) bool {
	return p.EndInputKey != "" && strings.ContainsRune(p.EndInputKey, tone)
}

func isKey(key string, tone rune) bool {
	return key != "" && strings.ContainsRune(key, tone)
}
