package playcollect

import "fmt"

// Phase is the PlayCollect runtime phase, spec §3/§4.6.
type Phase int

const (
	Idle Phase = iota
	Prompting
	CollectingFirst
	CollectingSubsequent
	Reprompting
	AnnouncingSuccess
	AnnouncingFailure
	Terminal
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "IDLE"
	case Prompting:
		return "PROMPTING"
	case CollectingFirst:
		return "COLLECTING_FIRST"
	case CollectingSubsequent:
		return "COLLECTING_SUBSEQUENT"
	case Reprompting:
		return "REPROMPTING"
	case AnnouncingSuccess:
		return "ANNOUNCING_SUCCESS"
	case AnnouncingFailure:
		return "ANNOUNCING_FAILURE"
	case Terminal:
		return "TERMINAL"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(p))
	}
}

// Result codes, spec §4.6.
const (
	CodeSuccess          = 100
	CodeNoDigits         = 326
	CodePatternNotMatched = 327
	CodeTooFewDigits     = 328
)

// Result summarizes a finished PlayCollect run. Machine does not build
// one: it reports its outcome as a signal.Outcome whose Params carry
// "dc" and "ni".
type Result struct {
	Success  bool
	Code     int
	Sequence string
	Attempts int // "ni" in the response: number of attempts used
}
