// Package pipeline implements the Pipeline Manager: the four-stage data
// funnel (raw capture -> staging -> processed -> persisted) with atomic
// persist and no silent advancement between stages.
package pipeline

import "time"

// FieldValue is a single extracted field with confidence and provenance.
type FieldValue struct {
	Value          any     `json:"value"`
	Confidence     float64 `json:"confidence"`
	SourceSelector *string `json:"source_selector"`
}

// ExtractionMode names how a record was produced.
type ExtractionMode string

const (
	ModeHeuristic ExtractionMode = "heuristic"
	ModeAI        ExtractionMode = "ai"
	ModeHybrid    ExtractionMode = "hybrid"
)

// RecordMetadata is provenance metadata for an extraction record.
type RecordMetadata struct {
	SourceURL      string         `json:"source_url"`
	DOMHash        string         `json:"dom_hash"`
	ExtractedAt    time.Time      `json:"extracted_at"`
	AIModel        string         `json:"ai_model"`
	ExtractionMode ExtractionMode `json:"extraction_mode"`
}

// ExtractionRecord is one structured extraction record: named fields,
// full provenance, a completeness score, and a partial flag.
type ExtractionRecord struct {
	Fields            map[string]FieldValue `json:"fields"`
	Metadata          RecordMetadata        `json:"metadata"`
	CompletenessScore float64               `json:"completeness_score"`
	IsPartial         bool                  `json:"is_partial"`
	DuplicateOf       *string               `json:"duplicate_of"`
}

// HasFields reports whether the record carries at least one field — the
// processed-stage acceptance gate.
func (r ExtractionRecord) HasFields() bool {
	return len(r.Fields) > 0
}
