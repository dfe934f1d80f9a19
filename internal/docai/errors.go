package docai

import "fmt"

// UploadError is returned when the file store endpoint answers non-2xx.
// Body carries the upstream response text verbatim.
type UploadError struct {
	StatusCode int
	Body       string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// InferenceError is returned when the inference endpoint answers non-2xx
// or when the response carries no text output at all.
type InferenceError struct {
	StatusCode int
	Body       string
}

func (e *InferenceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("inference failed: %s", e.Body)
	}
	return fmt.Sprintf("inference failed: HTTP %d: %s", e.StatusCode, e.Body)
}
