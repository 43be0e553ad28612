package anonymize

import (
	"log"
	"sort"
)

// entityPrecedence is the tie-break order for overlapping candidates of
// equal length and start: more specific types outrank broader ones.
// Types missing from the table rank after all listed ones, alphabetically.
var entityPrecedence = map[string]int{
	"EMAIL_ADDRESS": 0,
	"IBAN_CODE":     1,
	"CREDIT_CARD":   2,
	"PHONE_NUMBER":  3,
	"PERSON":        4,
	"LOCATION":      5,
	"ADDRESS":       6,
}

func precedenceRank(entityType string) int {
	if r, ok := entityPrecedence[entityType]; ok {
		return r
	}
	return len(entityPrecedence)
}

// wins reports whether candidate a beats candidate b in the overlap
// tie-break: longer span first, then smaller start, then type precedence.
// Total order over distinct candidates, so the result never depends on
// detector output order.
func wins(a, b RawCandidate) bool {
	la, lb := a.End-a.Start, b.End-b.Start
	if la != lb {
		return la > lb
	}
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	ra, rb := precedenceRank(a.EntityType), precedenceRank(b.EntityType)
	if ra != rb {
		return ra < rb
	}
	return a.EntityType < b.EntityType
}

// Resolve converts raw detector candidates into the canonical span set for
// text: invalid candidates dropped, overlaps settled by wins(), output
// sorted ascending by start and pairwise non-overlapping. Each kept span's
// Value is re-sliced from text so it always matches its offsets.
func Resolve(text string, candidates []RawCandidate) []Span {
	valid := make([]RawCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Start < 0 || c.Start >= c.End || c.End > len(text) {
			// detector contract violation: bad offsets are a data-quality
			// event, never fatal for the job
			log.Printf("[resolver] drop candidate type=%s start=%d end=%d text_len=%d",
				c.EntityType, c.Start, c.End, len(text))
			continue
		}
		valid = append(valid, c)
	}

	sort.Slice(valid, func(i, j int) bool { return wins(valid[i], valid[j]) })

	// greedy sweep in priority order: keep a candidate iff it overlaps
	// nothing already kept; exact duplicates overlap their twin and drop out
	kept := make([]Span, 0, len(valid))
	for _, c := range valid {
		i := sort.Search(len(kept), func(k int) bool { return kept[k].Start >= c.End })
		if i > 0 && kept[i-1].End > c.Start {
			continue
		}
		sp := Span{
			EntityType: c.EntityType,
			Value:      text[c.Start:c.End],
			Start:      c.Start,
			End:        c.End,
		}
		kept = append(kept, Span{})
		copy(kept[i+1:], kept[i:])
		kept[i] = sp
	}
	return kept
}
