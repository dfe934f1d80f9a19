package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/soepipeline/internal/docai"
	"github.com/local/soepipeline/internal/soe"
)

// columnMappings is the position-to-key contract for schema conversion.
// Keys are assigned by source column POSITION, never by header wording.
// Columns 3-5 fan out: the source table does not distinguish cycle 1 from
// cycle 2 at these columns, so one cell feeds both cycle variants verbatim.
var columnMappings = []struct {
	Column int
	Keys   []string
}{
	{0, []string{soe.KeyRowLabel}},
	{1, []string{soe.KeyProtocolSection}},
	{2, []string{soe.KeyScreening}},
	{3, []string{soe.KeyCycle1Day1, soe.KeyCycle2Day1}},
	{4, []string{soe.KeyCycle1Day8, soe.KeyCycle2Day8}},
	{5, []string{soe.KeyCycle1Day15, soe.KeyCycle2Day15}},
	{6, []string{soe.KeyC3AndBeyond}},
	{7, []string{soe.KeyEOT}},
	{8, []string{soe.KeyLongTermFollowup}},
}

// jsonArrayRe grabs the first [...] span out of prose-wrapped output.
var jsonArrayRe = regexp.MustCompile(`\[[\s\S]*\]`)

// normalizePrompt renders the conversion instruction from the mapping table
// so the transmitted contract and the parsing contract cannot drift apart.
func normalizePrompt(tsv string) string {
	var b strings.Builder
	b.WriteString("Convert the following tab-separated Schedule of Events table rows into a JSON array of objects.\n\n")
	b.WriteString("Header handling:\n")
	b.WriteString("- a row is a header row (drop it) if it appears before the first row whose 2nd column looks like a protocol section number (e.g. 6.1 or 10.2.3)\n")
	b.WriteString("- a row that repeats an earlier header row byte-for-byte is a pagination artifact; drop it too\n\n")
	b.WriteString("Column mapping is strictly by position, never by header text:\n")
	for _, m := range columnMappings {
		if len(m.Keys) == 1 {
			fmt.Fprintf(&b, "- column %d -> %q\n", m.Column, m.Keys[0])
			continue
		}
		fmt.Fprintf(&b, "- column %d -> %q AND %q (copy the same cell value into both)\n", m.Column, m.Keys[0], m.Keys[1])
	}
	b.WriteString("\nEvery object must contain all ")
	fmt.Fprintf(&b, "%d keys with string values, using \"\" when a cell is empty. ", len(soe.FieldOrder))
	b.WriteString("Never add keys beyond these. Return only the JSON array, no commentary.\n\nTable rows:\n")
	b.WriteString(tsv)
	return b.String()
}

// normalizeRows converts tabular text into rows under the fixed 12-key
// schema. A response that cannot be parsed as a JSON array of string-valued
// objects contributes no rows.
func (p *Pipeline) normalizeRows(ctx context.Context, tsv string) ([]soe.Row, error) {
	raw, err := p.deps.Docs.Infer(ctx, docai.InferRequest{Prompt: normalizePrompt(tsv)})
	if err != nil {
		return nil, err
	}
	rows, err := parseRows(raw)
	if err != nil {
		return nil, err
	}
	log.Info().Int("rows", len(rows)).Msg("rows normalized")
	return rows, nil
}

// parseRows applies the two-attempt parse: the full response as JSON first,
// then the first bracket-delimited span.
func parseRows(raw string) ([]soe.Row, error) {
	records, err := decodeRecords(raw)
	if err != nil {
		span := jsonArrayRe.FindString(raw)
		if span == "" {
			return nil, &SchemaConversionError{Reason: err.Error(), Raw: raw}
		}
		records, err = decodeRecords(span)
		if err != nil {
			return nil, &SchemaConversionError{Reason: err.Error(), Raw: raw}
		}
	}
	rows := make([]soe.Row, len(records))
	for i, rec := range records {
		rows[i] = soe.RowFromMap(rec)
	}
	return rows, nil
}

// decodeRecords insists on string cell values; a number or null anywhere
// fails the whole decode.
func decodeRecords(s string) ([]map[string]string, error) {
	var records []map[string]string
	if err := json.Unmarshal([]byte(s), &records); err != nil {
		return nil, err
	}
	return records, nil
}
