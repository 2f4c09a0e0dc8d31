package playcollect

import (
	"regexp"
	"strings"
)

// compileDigitPattern translates a MEGACO digit-map pattern into a
// regular expression and compiles it.
//
// The source this controller is modeled on called pattern.replace(...)
// and discarded the result, making the translation inert (spec §9
// Open Questions). This is a bug, not intended behavior: the
// translation below is applied and used, so a configured dp="xxx#"
// actually matches three digits followed by '#', instead of matching
// the literal MEGACO syntax as a regex (which would accept nothing
// useful).
//
// Translation rules (spec §4.6):
//
//	.  -> +   (one-or-more repetition of the preceding token)
//	x  -> \d  (any single digit)
//	*  -> \*  (literal asterisk DTMF tone)
func compileDigitPattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '.':
			b.WriteString("+")
		case 'x', 'X':
			b.WriteString(`\d`)
		case '*':
			b.WriteString(`\*`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return regexp.Compile("^" + b.String() + "$")
}
