// Package pattern provides local rule-based recognizers for entities with a
// fixed surface form: email addresses, phone numbers, IBANs and credit card
// numbers. They run in-process, need no model sidecar and work for any
// language tag.
package pattern

import (
	"context"
	"regexp"
	"strings"

	"anonymizer-service/internal/anonymize"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`(\+?\d{1,3}[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
	ibanRe  = regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`)
	cardRe  = regexp.MustCompile(`\b\d(?:[ \-]?\d){12,18}\b`)
)

// Detector recognizes pattern-shaped entities. Stateless, no I/O; the error
// return exists only to satisfy the Detector interface.
type Detector struct{}

func New() *Detector {
	return &Detector{}
}

func (d *Detector) Detect(_ context.Context, text, _ string) ([]anonymize.RawCandidate, error) {
	var out []anonymize.RawCandidate
	out = appendMatches(out, text, emailRe, "EMAIL_ADDRESS", nil)
	out = appendMatches(out, text, phoneRe, "PHONE_NUMBER", validPhone)
	out = appendMatches(out, text, ibanRe, "IBAN_CODE", validIBAN)
	out = appendMatches(out, text, cardRe, "CREDIT_CARD", validCard)
	return out, nil
}

func appendMatches(out []anonymize.RawCandidate, text string, re *regexp.Regexp, entityType string, accept func(string) bool) []anonymize.RawCandidate {
	for _, loc := range re.FindAllStringIndex(text, -1) {
		value := text[loc[0]:loc[1]]
		if accept != nil && !accept(value) {
			continue
		}
		out = append(out, anonymize.RawCandidate{
			EntityType: entityType,
			Value:      value,
			Start:      loc[0],
			End:        loc[1],
		})
	}
	return out
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validPhone rejects degenerate matches such as all-zero runs.
func validPhone(match string) bool {
	digits := digitsOf(match)
	if len(digits) < 10 {
		return false
	}
	return strings.Trim(digits, "0") != ""
}

// validCard requires a plausible digit count and a passing Luhn checksum.
func validCard(match string) bool {
	digits := digitsOf(match)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	return luhnValid(digits)
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// validIBAN runs the ISO 13616 mod-97 check: move the first four characters
// to the end, map letters to 10..35, remainder must be 1.
func validIBAN(match string) bool {
	rearranged := match[4:] + match[:4]
	rem := 0
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		switch {
		case c >= '0' && c <= '9':
			rem = (rem*10 + int(c-'0')) % 97
		case c >= 'A' && c <= 'Z':
			v := int(c-'A') + 10
			rem = (rem*100 + v) % 97
		default:
			return false
		}
	}
	return rem == 1
}
