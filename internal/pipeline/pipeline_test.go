package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/soepipeline/internal/docai"
	"github.com/local/soepipeline/internal/store"
)

// fakeDocs scripts the document service per stage. Prompts are matched on
// distinctive fragments rather than full equality so prompt wording can
// evolve without breaking the tests.
type fakeDocs struct {
	configured bool

	storeID  string
	storeErr error
	stored   [][]byte

	detectResp  string
	detectErr   error
	extractResp string
	extractErr  error
	convertResp string
	convertErr  error
}

func (f *fakeDocs) Configured() bool { return f.configured }

func (f *fakeDocs) Store(_ context.Context, data []byte, _ string) (string, error) {
	if f.storeErr != nil {
		return "", f.storeErr
	}
	f.stored = append(f.stored, data)
	return f.storeID, nil
}

func (f *fakeDocs) Infer(_ context.Context, req docai.InferRequest) (string, error) {
	switch {
	case strings.Contains(req.Prompt, "pdf_indices"):
		return f.detectResp, f.detectErr
	case strings.Contains(req.Prompt, "JSON array of objects"):
		return f.convertResp, f.convertErr
	case strings.Contains(req.Prompt, "tab-separated"):
		return f.extractResp, f.extractErr
	}
	return "", errors.New("unexpected prompt")
}

type memRuns struct {
	statuses []store.RunStatus
}

func (m *memRuns) Set(_ context.Context, _ string, st store.RunStatus) error {
	m.statuses = append(m.statuses, st)
	return nil
}

func (m *memRuns) Get(context.Context, string) (store.RunStatus, bool, error) {
	if len(m.statuses) == 0 {
		return store.RunStatus{}, false, nil
	}
	return m.statuses[len(m.statuses)-1], true, nil
}

func (m *memRuns) Close() error { return nil }

const convertedRows = `[
 {"row_label":"Informed consent","protocol_section":"6.1","screening":"X",
  "cycle_1_day_1":"","cycle_2_day_1":"","cycle_1_day_8":"","cycle_2_day_8":"",
  "cycle_1_day_15":"","cycle_2_day_15":"","c3_and_beyond":"","eot":"","long_term_followup":""},
 {"row_label":"Vital signs","protocol_section":"6.4","screening":"X",
  "cycle_1_day_1":"X","cycle_2_day_1":"X","cycle_1_day_8":"","cycle_2_day_8":"",
  "cycle_1_day_15":"","cycle_2_day_15":"","c3_and_beyond":"X","eot":"X","long_term_followup":""}
]`

func allFlags() Flags {
	return Flags{Upload: true, Detect: true, Reduce: true, Extract: true, Convert: true}
}

func newTestPipeline(docs *fakeDocs, runs store.Runs) *Pipeline {
	p := New(Dependencies{Docs: docs, Runs: runs})
	p.now = func() time.Time { return time.Date(2025, 1, 1, 15, 30, 0, 0, time.UTC) }
	return p
}

func TestRunMissingCredentialShortCircuits(t *testing.T) {
	docs := &fakeDocs{configured: false}
	runs := &memRuns{}
	p := newTestPipeline(docs, runs)

	res := p.Run(context.Background(), Input{RunID: "r1", Data: []byte("x"), Filename: "a.pdf"}, allFlags())

	assert.Equal(t, "document service API key not configured", res.UploadError)
	assert.Empty(t, res.FileID)
	assert.NotNil(t, res.Visits)
	assert.Empty(t, res.Visits)
	assert.Empty(t, docs.stored)

	require.NotEmpty(t, runs.statuses)
	last := runs.statuses[len(runs.statuses)-1]
	assert.Equal(t, "done", last.Status)
	assert.Equal(t, 100, last.Progress)
}

func TestRunHappyPathWithoutReduction(t *testing.T) {
	// Detection is disabled, so extraction runs against the original upload.
	docs := &fakeDocs{
		configured:  true,
		storeID:     "file-1",
		extractResp: "Informed consent\t6.1\tX\t\t\t\t\t\t\nVital signs\t6.4\tX\tX\t\t\tX\tX\t",
		convertResp: convertedRows,
	}
	p := newTestPipeline(docs, &memRuns{})

	flags := allFlags()
	flags.Detect = false
	res := p.Run(context.Background(), Input{RunID: "r2", Data: []byte("pdf"), Filename: "a.pdf"}, flags)

	assert.Equal(t, "file-1", res.FileID)
	assert.Empty(t, res.ExtractError)
	assert.Empty(t, res.ConvertError)
	require.Len(t, res.TableData, 2)
	assert.Equal(t, "Informed consent", res.TableData[0].RowLabel)
	assert.Equal(t, "X", res.TableData[1].Cycle2Day1)

	// Derived outputs exist once rows exist.
	assert.NotEmpty(t, res.CSV)
	assert.NotEmpty(t, res.CSVDisplay)
	require.NotEmpty(t, res.Visits)
	assert.Equal(t, "2025-01-02", res.Visits[0].Date)
	assert.Equal(t, "Screening", res.Visits[0].Label)
	assert.Contains(t, res.Visits[0].Events, "Informed consent")
}

func TestRunExtractionFailureIsPartial(t *testing.T) {
	docs := &fakeDocs{
		configured:  true,
		storeID:     "file-1",
		detectResp:  `{"pdf_indices":[0]}`,
		extractErr:  &docai.InferenceError{StatusCode: 500, Body: "boom"},
		convertResp: convertedRows,
	}
	p := newTestPipeline(docs, &memRuns{})

	// Reduce is off so the invalid fake PDF bytes never reach the engine.
	flags := allFlags()
	flags.Reduce = false
	res := p.Run(context.Background(), Input{RunID: "r3", Data: []byte("pdf"), Filename: "a.pdf"}, flags)

	assert.Equal(t, []int{0}, res.PDFIndices)
	assert.NotEmpty(t, res.ExtractError)
	assert.Empty(t, res.TSV)

	// Downstream artifacts stay absent, visits stays a present empty array.
	assert.Empty(t, res.TableData)
	assert.Empty(t, res.CSV)
	assert.Empty(t, res.CSVDisplay)
	assert.NotNil(t, res.Visits)
	assert.Empty(t, res.Visits)
	assert.Empty(t, res.ConvertError)
}

func TestRunDetectionFailureKeepsRawOutput(t *testing.T) {
	docs := &fakeDocs{
		configured:  true,
		storeID:     "file-1",
		detectResp:  "no table found anywhere",
		extractResp: "Vital signs\t6.4\tX",
		convertResp: convertedRows,
	}
	p := newTestPipeline(docs, &memRuns{})

	res := p.Run(context.Background(), Input{RunID: "r4", Data: []byte("pdf"), Filename: "a.pdf"}, allFlags())

	assert.NotEmpty(t, res.DetectError)
	assert.Equal(t, "no table found anywhere", res.DetectRaw)
	assert.Empty(t, res.PDFIndices)

	// With no indices the reducer is skipped and extraction falls back to
	// the original upload.
	assert.Empty(t, res.SoeFileID)
	assert.Equal(t, "Vital signs\t6.4\tX", res.TSV)
	require.Len(t, res.TableData, 2)
}

func TestRunUploadFailureSkipsNetworkStages(t *testing.T) {
	docs := &fakeDocs{configured: true, storeErr: &docai.UploadError{StatusCode: 403, Body: "denied"}}
	p := newTestPipeline(docs, &memRuns{})

	res := p.Run(context.Background(), Input{RunID: "r5", Data: []byte("pdf"), Filename: "a.pdf"}, allFlags())

	assert.Contains(t, res.UploadError, "denied")
	assert.Empty(t, res.FileID)
	assert.Empty(t, res.DetectError)
	assert.Empty(t, res.TSV)
	assert.NotNil(t, res.Visits)
	assert.Empty(t, res.Visits)
}

func TestRunFlagsDisableStages(t *testing.T) {
	docs := &fakeDocs{configured: true, storeID: "file-1"}
	p := newTestPipeline(docs, &memRuns{})

	res := p.Run(context.Background(), Input{RunID: "r6", Data: []byte("pdf"), Filename: "a.pdf"}, Flags{Upload: true})

	assert.Equal(t, "file-1", res.FileID)
	assert.Empty(t, res.DetectRaw)
	assert.Empty(t, res.TSV)
	assert.Empty(t, res.TableData)
}
