package pipeline

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles a minimal uncompressed PDF with one text line per page,
// so page identity survives into the reduced output's content streams.
func buildPDF(pageTexts []string) []byte {
	var buf bytes.Buffer
	offsets := []int{0}
	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets)-1, body)
	}

	buf.WriteString("%PDF-1.4\n")
	n := len(pageTexts)
	fontNum := 2 + 2*n + 1

	kids := make([]string, n)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}
	writeObj("<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	for i := 0; i < n; i++ {
		writeObj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontNum, 3+n+i))
	}
	for _, txt := range pageTexts {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", txt)
		writeObj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}
	writeObj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets))
	for _, off := range offsets[1:] {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets), xref)
	return buf.Bytes()
}

func TestReducePDFKeepsSelectedPagesInOrder(t *testing.T) {
	src := buildPDF([]string{"PAGE 0", "PAGE 1", "PAGE 2", "PAGE 3"})

	n, err := PageCount(src)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	reduced, err := ReducePDF(src, []int{1, 3})
	require.NoError(t, err)

	n, err = PageCount(reduced)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first := bytes.Index(reduced, []byte("PAGE 1"))
	second := bytes.Index(reduced, []byte("PAGE 3"))
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
	assert.NotContains(t, string(reduced), "PAGE 0")
	assert.NotContains(t, string(reduced), "PAGE 2")
}

func TestPageSelectionIsOneBased(t *testing.T) {
	assert.Equal(t, []string{"1", "4", "3"}, pageSelection([]int{0, 3, 2}))
	assert.Empty(t, pageSelection(nil))
}

func TestReducePDFInvalidInput(t *testing.T) {
	_, err := ReducePDF([]byte("not a pdf"), []int{0})
	var rerr *ReductionError
	require.ErrorAs(t, err, &rerr)
	assert.NotEmpty(t, rerr.Reason)
}

func TestPageCountInvalidInput(t *testing.T) {
	_, err := PageCount([]byte("not a pdf"))
	assert.Error(t, err)
}
