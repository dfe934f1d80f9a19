package pipeline

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/local/soepipeline/internal/docai"
)

const detectPrompt = `You are analyzing a clinical trial protocol PDF.

Scan EVERY page of the attached document. Identify the pages that contain the
Schedule of Events (SOE) table. A page counts as an SOE page only if ALL of
the following are present on it:
- a large grid or table occupying much of the page
- recognizable visit/timepoint column headers (e.g. Screening, Cycle, Day, Visit)
- a first column listing procedure or assessment names
- cells containing marks (such as X) or timing values

Do NOT include pages that merely mention "Schedule of Events" in running text
without showing the table itself.

Return strict JSON in exactly this shape, with 0-based page indices:
{"pdf_indices": [3, 4]}

Return only the JSON object, no commentary.`

// jsonObjectRe grabs the first {...} span out of prose-wrapped output.
var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// detectPages asks the document service which pages hold the SOE grid and
// returns the parsed indices plus the raw model output. The call is never
// retried.
func (p *Pipeline) detectPages(ctx context.Context, fileID string) ([]int, string, error) {
	raw, err := p.deps.Docs.Infer(ctx, docai.InferRequest{Prompt: detectPrompt, FileIDs: []string{fileID}})
	if err != nil {
		return nil, "", err
	}
	indices, err := parseIndices(raw)
	if err != nil {
		return nil, raw, err
	}
	log.Info().Ints("pdf_indices", indices).Msg("soe pages detected")
	return indices, raw, nil
}

// parseIndices recovers {"pdf_indices":[...]} from model output. Direct JSON
// parse first; if that fails, the first brace-delimited span is extracted
// and parsed. Anything short of a non-empty index list is a DetectionError.
func parseIndices(raw string) ([]int, error) {
	var out struct {
		PdfIndices []int `json:"pdf_indices"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err == nil && len(out.PdfIndices) > 0 {
		return out.PdfIndices, nil
	}
	if span := jsonObjectRe.FindString(raw); span != "" {
		out.PdfIndices = nil
		if err := json.Unmarshal([]byte(span), &out); err == nil && len(out.PdfIndices) > 0 {
			return out.PdfIndices, nil
		}
	}
	return nil, &DetectionError{Raw: raw}
}
