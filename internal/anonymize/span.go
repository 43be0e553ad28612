package anonymize

// RawCandidate is one entity candidate as reported by a Detector.
// Start/End are byte offsets into the analyzed text, End exclusive.
// Candidates may overlap, duplicate or nest each other.
type RawCandidate struct {
	EntityType string
	Value      string
	Start      int
	End        int
}

// Span is a resolved candidate: the resolver guarantees that spans of one
// text are sorted ascending by Start, pairwise non-overlapping, and that
// Value equals the substring of the original text at [Start:End).
type Span struct {
	EntityType string
	Value      string
	Start      int
	End        int
}

// SpanReport is the wire form of a resolved span. Offsets always refer to
// the full (unmasked) paragraph text.
type SpanReport struct {
	EntityType  string `json:"entity_type"`
	EntityValue string `json:"entity_value"`
	Start       int    `json:"start_position"`
	End         int    `json:"end_position"`
}

// Result is the anonymization output for one paragraph.
type Result struct {
	FullText string       `json:"full_text"`
	Masked   string       `json:"masked"`
	Spans    []SpanReport `json:"spans"`
}
