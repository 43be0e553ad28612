// Package anonymize implements the anonymization core: raw detector
// candidates are resolved into a canonical non-overlapping span set, and the
// text is masked by replacing each span with a {{ENTITY_TYPE}} placeholder.
package anonymize

import (
	"context"
	"fmt"
	"strings"
)

// Detector locates raw entity candidates in a text. May be slow (external
// model inference) and must honor ctx cancellation. Implementations must be
// safe for concurrent use.
type Detector interface {
	Detect(ctx context.Context, text, language string) ([]RawCandidate, error)
}

// Anonymizer runs the pipeline for one text: detect, resolve, mask.
type Anonymizer struct {
	detector Detector
}

func New(detector Detector) *Anonymizer {
	return &Anonymizer{detector: detector}
}

// Anonymize splits text into newline-separated paragraphs and anonymizes
// each non-empty one. Span offsets in every Result are relative to its own
// paragraph. Detector failures come back wrapping ErrDetector, broken
// pipeline invariants wrapping ErrContract.
func (a *Anonymizer) Anonymize(ctx context.Context, text, language string) ([]Result, error) {
	paragraphs := strings.Split(text, "\n")
	results := make([]Result, 0, len(paragraphs))

	for i, paragraph := range paragraphs {
		if strings.TrimSpace(paragraph) == "" {
			continue
		}

		candidates, err := a.detector.Detect(ctx, paragraph, language)
		if err != nil {
			return nil, fmt.Errorf("%w: paragraph %d: %w", ErrDetector, i, err)
		}

		spans := Resolve(paragraph, candidates)

		res, err := BuildResult(paragraph, spans)
		if err != nil {
			return nil, fmt.Errorf("paragraph %d: %w", i, err)
		}
		results = append(results, res)
	}
	return results, nil
}
