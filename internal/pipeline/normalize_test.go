package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/soepipeline/internal/soe"
)

func TestColumnMappingsCoverSchema(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range columnMappings {
		for _, k := range m.Keys {
			assert.False(t, seen[k], "key %q mapped twice", k)
			seen[k] = true
		}
	}
	for _, k := range soe.FieldOrder {
		assert.True(t, seen[k], "key %q has no source column", k)
	}
	assert.Len(t, seen, len(soe.FieldOrder))
}

func TestColumnMappingsFanOut(t *testing.T) {
	fanOut := map[int][]string{}
	for _, m := range columnMappings {
		if len(m.Keys) > 1 {
			fanOut[m.Column] = m.Keys
		}
	}
	require.Len(t, fanOut, 3)
	assert.Equal(t, []string{soe.KeyCycle1Day1, soe.KeyCycle2Day1}, fanOut[3])
	assert.Equal(t, []string{soe.KeyCycle1Day8, soe.KeyCycle2Day8}, fanOut[4])
	assert.Equal(t, []string{soe.KeyCycle1Day15, soe.KeyCycle2Day15}, fanOut[5])
}

func TestNormalizePromptNamesEveryKey(t *testing.T) {
	prompt := normalizePrompt("a\tb")
	for _, k := range soe.FieldOrder {
		assert.Contains(t, prompt, `"`+k+`"`)
	}
	assert.True(t, strings.HasSuffix(prompt, "a\tb"))
}

func TestParseRowsDirect(t *testing.T) {
	rows, err := parseRows(`[{"row_label":"ECG","screening":"X"}]`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ECG", rows[0].RowLabel)
	assert.Equal(t, "X", rows[0].Screening)
	assert.Empty(t, rows[0].EOT)
}

func TestParseRowsProseWrapped(t *testing.T) {
	raw := "Here is the converted table:\n[{\"row_label\":\"ECG\"},{\"row_label\":\"CT scan\"}]\nDone."
	rows, err := parseRows(raw)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "CT scan", rows[1].RowLabel)
}

func TestParseRowsNonStringCell(t *testing.T) {
	_, err := parseRows(`[{"row_label":"ECG","screening":1}]`)
	var cerr *SchemaConversionError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Raw, "ECG")
}

func TestParseRowsNoArray(t *testing.T) {
	_, err := parseRows("cannot convert this table")
	var cerr *SchemaConversionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "cannot convert this table", cerr.Raw)
}

func TestParseRowsEmptyArray(t *testing.T) {
	rows, err := parseRows(`[]`)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
