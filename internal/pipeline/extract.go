package pipeline

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/soepipeline/internal/docai"
)

const extractPrompt = `The attached PDF contains a clinical trial Schedule of
Events table. Return the main rectangular table as tab-separated text.

Rules:
- one output line per table row, cells separated by single TAB characters
- exactly 9 columns per row; emit an empty cell where the table has none
- when the table spans pages and repeats its header row, output the header
  only once
- no commentary, no markdown fences, only the tab-separated rows`

// extractTable asks for the detected grid as fixed-width delimited text.
// No structural validation happens here; malformed output is caught (or
// not) downstream by schema conversion.
func (p *Pipeline) extractTable(ctx context.Context, fileID string) (string, error) {
	text, err := p.deps.Docs.Infer(ctx, docai.InferRequest{Prompt: extractPrompt, FileIDs: []string{fileID}})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", &ExtractionError{Reason: "empty response"}
	}
	log.Info().Int("chars", len(text)).Msg("table text extracted")
	return text, nil
}
