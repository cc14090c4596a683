package heuristic

import (
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/WhiteDevil-93/hermes-go/internal/pipeline"
)

// ExtractSingle walks selectors once against domHTML, taking the first
// match's text per field. A missing field becomes a nil value at
// confidence 0; a present field gets confidence 1.0, per the spec's
// heuristic-extraction definition.
func ExtractSingle(domHTML, sourceURL, domHash string, selectors map[string]string) pipeline.ExtractionRecord {
	root, err := html.Parse(strings.NewReader(domHTML))
	if err != nil {
		return emptyRecord(sourceURL, domHash)
	}

	fields := make(map[string]pipeline.FieldValue, len(selectors))
	populated := 0
	for field, selector := range selectors {
		sel := selector
		if n := firstMatch(root, selector); n != nil {
			text := textContent(n)
			fields[field] = pipeline.FieldValue{Value: text, Confidence: 1.0, SourceSelector: &sel}
			populated++
		} else {
			fields[field] = pipeline.FieldValue{Value: nil, Confidence: 0, SourceSelector: &sel}
		}
	}

	completeness := 0.0
	if len(selectors) > 0 {
		completeness = float64(populated) / float64(len(selectors))
	}

	return pipeline.ExtractionRecord{
		Fields: fields,
		Metadata: pipeline.RecordMetadata{
			SourceURL:      sourceURL,
			DOMHash:        domHash,
			ExtractedAt:    time.Now().UTC(),
			ExtractionMode: pipeline.ModeHeuristic,
		},
		CompletenessScore: completeness,
		IsPartial:         populated < len(selectors),
	}
}

// ExtractList walks containerSelector first, emitting one record per
// container via fieldSelectors scoped to that container's subtree.
// Containers with zero populated fields are skipped.
func ExtractList(domHTML, sourceURL, domHash, containerSelector string, fieldSelectors map[string]string) []pipeline.ExtractionRecord {
	root, err := html.Parse(strings.NewReader(domHTML))
	if err != nil {
		return nil
	}

	containers := collectAll(root, containerSelector)
	records := make([]pipeline.ExtractionRecord, 0, len(containers))

	for _, container := range containers {
		fields := make(map[string]pipeline.FieldValue, len(fieldSelectors))
		populated := 0
		for field, selector := range fieldSelectors {
			sel := selector
			if n := firstMatch(container, selector); n != nil {
				text := textContent(n)
				fields[field] = pipeline.FieldValue{Value: text, Confidence: 1.0, SourceSelector: &sel}
				populated++
			} else {
				fields[field] = pipeline.FieldValue{Value: nil, Confidence: 0, SourceSelector: &sel}
			}
		}
		if populated == 0 {
			continue
		}

		completeness := 0.0
		if len(fieldSelectors) > 0 {
			completeness = float64(populated) / float64(len(fieldSelectors))
		}
		records = append(records, pipeline.ExtractionRecord{
			Fields: fields,
			Metadata: pipeline.RecordMetadata{
				SourceURL:      sourceURL,
				DOMHash:        domHash,
				ExtractedAt:    time.Now().UTC(),
				ExtractionMode: pipeline.ModeHeuristic,
			},
			CompletenessScore: completeness,
			IsPartial:         populated < len(fieldSelectors),
		})
	}

	return records
}

func emptyRecord(sourceURL, domHash string) pipeline.ExtractionRecord {
	return pipeline.ExtractionRecord{
		Fields: map[string]pipeline.FieldValue{},
		Metadata: pipeline.RecordMetadata{
			SourceURL:      sourceURL,
			DOMHash:        domHash,
			ExtractedAt:    time.Now().UTC(),
			ExtractionMode: pipeline.ModeHeuristic,
		},
		IsPartial: true,
	}
}
