package anonymize

import (
	"fmt"
	"strings"
)

const (
	placeholderOpen  = "{{"
	placeholderClose = "}}"
)

// Placeholder returns the replacement token for an entity type,
// e.g. "{{PERSON}}".
func Placeholder(entityType string) string {
	return placeholderOpen + entityType + placeholderClose
}

// Mask walks text once, copying everything outside the spans verbatim and
// substituting each span with its placeholder. Pure function of its inputs.
// spans must satisfy the Resolve invariants; a malformed sequence returns an
// error wrapping ErrContract instead of a silently truncated text.
func Mask(text string, spans []Span) (string, error) {
	var b strings.Builder
	prev := 0
	for i, sp := range spans {
		if sp.Start < prev || sp.End <= sp.Start || sp.End > len(text) {
			return "", fmt.Errorf("%w: span %d [%d:%d) invalid for text of %d bytes (prev end %d)",
				ErrContract, i, sp.Start, sp.End, len(text), prev)
		}
		b.WriteString(text[prev:sp.Start])
		b.WriteString(Placeholder(sp.EntityType))
		prev = sp.End
	}
	b.WriteString(text[prev:])
	return b.String(), nil
}

// BuildResult masks text and assembles the report for one paragraph.
// Recorded offsets refer to the original text, never the masked one.
func BuildResult(text string, spans []Span) (Result, error) {
	masked, err := Mask(text, spans)
	if err != nil {
		return Result{}, err
	}
	reports := make([]SpanReport, 0, len(spans))
	for _, sp := range spans {
		reports = append(reports, SpanReport{
			EntityType:  sp.EntityType,
			EntityValue: sp.Value,
			Start:       sp.Start,
			End:         sp.End,
		})
	}
	return Result{FullText: text, Masked: masked, Spans: reports}, nil
}
