// Package detector composes the concrete entity detectors (NER sidecars,
// local pattern recognizers) behind the single Detector capability the
// pipeline consumes.
package detector

import (
	"context"

	"anonymizer-service/internal/anonymize"
)

// Composite fans one Detect call out to all adapters concurrently and merges
// their candidates. Any adapter error fails the whole call: dropping a
// detector layer silently would leak entities in the masked output.
type Composite struct {
	detectors []anonymize.Detector
}

func NewComposite(detectors ...anonymize.Detector) *Composite {
	return &Composite{detectors: detectors}
}

func (c *Composite) Detect(ctx context.Context, text, language string) ([]anonymize.RawCandidate, error) {
	type result struct {
		candidates []anonymize.RawCandidate
		err        error
	}
	ch := make(chan result, len(c.detectors))

	for _, d := range c.detectors {
		go func(d anonymize.Detector) {
			candidates, err := d.Detect(ctx, text, language)
			ch <- result{candidates: candidates, err: err}
		}(d)
	}

	var all []anonymize.RawCandidate
	var firstErr error
	for range c.detectors {
		r := <-ch
		if r.err != nil && firstErr == nil {
			firstErr = r.err
			continue
		}
		all = append(all, r.candidates...)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return all, nil
}
