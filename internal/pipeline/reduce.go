package pipeline

import (
	"bytes"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
)

// ReducedFileName is the filename the reduced document is stored under.
const ReducedFileName = "soe_only.pdf"

// ReducePDF builds a new PDF holding exactly the pages named by the 0-based
// indices, in the given order. Out-of-range indices surface as a
// ReductionError from the underlying PDF engine; the caller is expected to
// pass a non-empty list.
func ReducePDF(src []byte, indices []int) ([]byte, error) {
	var out bytes.Buffer
	if err := api.Collect(bytes.NewReader(src), &out, pageSelection(indices), nil); err != nil {
		return nil, &ReductionError{Reason: err.Error()}
	}
	log.Debug().Ints("pages", indices).Int("bytes", out.Len()).Msg("reduced pdf assembled")
	return out.Bytes(), nil
}

// PageCount returns the page count of a PDF held in memory.
func PageCount(src []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(src), nil)
	if err != nil {
		return 0, &ReductionError{Reason: err.Error()}
	}
	return n, nil
}

// pageSelection converts 0-based indices to the engine's 1-based selection.
func pageSelection(indices []int) []string {
	sel := make([]string, len(indices))
	for i, idx := range indices {
		sel[i] = strconv.Itoa(idx + 1)
	}
	return sel
}
