package pipeline

import "fmt"

// DetectionError means no non-empty page index list could be parsed out of
// the detection response. Raw carries the model output verbatim.
type DetectionError struct {
	Raw string
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("page detection returned no parsable indices: %s", e.Raw)
}

// ReductionError wraps a failure while building the reduced document.
type ReductionError struct {
	Reason string
}

func (e *ReductionError) Error() string {
	return fmt.Sprintf("pdf reduction failed: %s", e.Reason)
}

// ExtractionError means the table extraction response was empty or not text.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("table extraction failed: %s", e.Reason)
}

// SchemaConversionError means the normalization response could not be parsed
// into the fixed row schema. Raw carries the model output verbatim.
type SchemaConversionError struct {
	Reason string
	Raw    string
}

func (e *SchemaConversionError) Error() string {
	return fmt.Sprintf("schema conversion failed: %s", e.Reason)
}
