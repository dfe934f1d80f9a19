package pipeline

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/local/soepipeline/internal/config"
	"github.com/local/soepipeline/internal/docai"
	"github.com/local/soepipeline/internal/filetype"
	"github.com/local/soepipeline/internal/gridscan"
	"github.com/local/soepipeline/internal/metrics"
	"github.com/local/soepipeline/internal/soe"
	"github.com/local/soepipeline/internal/store"
)

// DocumentService is the external store-and-infer boundary the pipeline
// calls into.
type DocumentService interface {
	Configured() bool
	Store(ctx context.Context, data []byte, filename string) (string, error)
	Infer(ctx context.Context, req docai.InferRequest) (string, error)
}

// Scanner is the optional local candidate-page prefilter.
type Scanner interface {
	CandidatePages(data []byte) ([]int, *gridscan.Report, error)
}

// Dependencies wires the pipeline's collaborators.
type Dependencies struct {
	Docs        DocumentService
	Runs        store.Runs
	Files       *filetype.Detector
	Scanner     Scanner
	Defaults    config.StageDefaults
	MaxUploadMB int64
}

// Pipeline sequences the SOE stages for one request at a time. All state is
// request-scoped; nothing carries over between runs.
type Pipeline struct {
	deps Dependencies
	now  func() time.Time // schedule anchor source, swapped in tests
}

func New(deps Dependencies) *Pipeline {
	if deps.Runs == nil {
		deps.Runs = store.NoopRuns{}
	}
	if deps.Files == nil {
		deps.Files = filetype.New()
	}
	if deps.MaxUploadMB <= 0 {
		deps.MaxUploadMB = 64
	}
	return &Pipeline{deps: deps, now: time.Now}
}

// Input is one uploaded document.
type Input struct {
	RunID    string
	Data     []byte
	Filename string
}

// Flags select which stages run. Any stage may be disabled independently;
// a disabled stage simply leaves its artifacts absent.
type Flags struct {
	Upload     bool
	Detect     bool
	Reduce     bool
	Extract    bool
	Convert    bool
	IncludePDF bool
	LocalScan  bool
}

// Result is the aggregate response. Every field beyond Visits is optional:
// absent when its stage was skipped or failed. Stage failures land in the
// *Error fields instead of aborting the run.
type Result struct {
	RunID        string           `json:"runId"`
	Visits       []soe.Visit      `json:"visits"`
	CSV          string           `json:"csv,omitempty"`
	CSVDisplay   string           `json:"csv_display,omitempty"`
	FileID       string           `json:"fileId,omitempty"`
	UploadError  string           `json:"uploadError,omitempty"`
	PDFIndices   []int            `json:"pdfIndices,omitempty"`
	DetectRaw    string           `json:"detectRaw,omitempty"`
	DetectError  string           `json:"detectError,omitempty"`
	LocalScan    *gridscan.Report `json:"localScan,omitempty"`
	SoeFileID    string           `json:"soeFileId,omitempty"`
	SoeFileName  string           `json:"soeFileName,omitempty"`
	SoePDFBase64 string           `json:"soePdfBase64,omitempty"`
	ReduceError  string           `json:"reduceError,omitempty"`
	TSV          string           `json:"tsv,omitempty"`
	ExtractError string           `json:"extractError,omitempty"`
	TableData    []soe.Row        `json:"tableData,omitempty"`
	ConvertError string           `json:"convertError,omitempty"`
}

// Run executes the staged pipeline. The progression is strictly linear:
// each stage runs only when its flag is set and its upstream artifact
// exists; each failure is recorded on the result and the remaining stages
// proceed with whatever artifacts exist.
func (p *Pipeline) Run(ctx context.Context, in Input, flags Flags) *Result {
	res := &Result{RunID: in.RunID, Visits: []soe.Visit{}}
	started := time.Now()
	p.setStatus(ctx, in.RunID, "processing", "start", 5, "pipeline started", &started, nil)

	lg := log.With().Str("run_id", in.RunID).Logger()

	if !p.deps.Docs.Configured() {
		// Credential absence short-circuits every network stage; the run
		// still returns a success-shaped result.
		res.UploadError = "document service API key not configured"
		lg.Error().Msg("no document service credential; skipping all network stages")
		p.finish(ctx, in.RunID, res, started)
		return res
	}

	p.runUpload(ctx, in, flags, res, &lg)
	p.runDetect(ctx, in, flags, res, &lg)
	p.runLocalScan(in, flags, res, &lg)
	p.runReduce(ctx, in, flags, res, &lg)
	p.runExtract(ctx, flags, res, &lg)
	p.runConvert(ctx, flags, res, &lg)

	p.finish(ctx, in.RunID, res, started)
	return res
}

func (p *Pipeline) runUpload(ctx context.Context, in Input, flags Flags, res *Result, lg *zerolog.Logger) {
	if !flags.Upload {
		metrics.StageSkipped("upload")
		return
	}
	p.setStatus(ctx, in.RunID, "processing", "upload", 15, "storing source document", nil, nil)
	t := time.Now()
	id, err := p.deps.Docs.Store(ctx, in.Data, in.Filename)
	if err != nil {
		res.UploadError = err.Error()
		metrics.ObserveStage("upload", "error", time.Since(t))
		lg.Warn().Err(err).Msg("upload stage failed")
		return
	}
	res.FileID = id
	metrics.ObserveStage("upload", "ok", time.Since(t))
	lg.Info().Str("file_id", id).Msg("source document stored")
}

func (p *Pipeline) runDetect(ctx context.Context, in Input, flags Flags, res *Result, lg *zerolog.Logger) {
	if !flags.Detect || res.FileID == "" {
		metrics.StageSkipped("detect")
		return
	}
	p.setStatus(ctx, res.RunID, "processing", "detect", 30, "detecting SOE pages", nil, nil)
	if n, err := PageCount(in.Data); err == nil {
		lg.Info().Int("source_pages", n).Msg("scanning document for SOE pages")
	}
	t := time.Now()
	indices, raw, err := p.detectPages(ctx, res.FileID)
	res.DetectRaw = raw
	if err != nil {
		res.DetectError = err.Error()
		metrics.ObserveStage("detect", "error", time.Since(t))
		lg.Warn().Err(err).Msg("detection stage failed")
		return
	}
	res.PDFIndices = indices
	metrics.ObserveStage("detect", "ok", time.Since(t))
}

func (p *Pipeline) runLocalScan(in Input, flags Flags, res *Result, lg *zerolog.Logger) {
	if !flags.LocalScan || len(res.PDFIndices) > 0 || p.deps.Scanner == nil {
		return
	}
	candidates, report, err := p.deps.Scanner.CandidatePages(in.Data)
	if err != nil {
		lg.Warn().Err(err).Msg("local grid scan failed")
		return
	}
	res.LocalScan = report
	if len(candidates) > 0 {
		res.PDFIndices = candidates
		lg.Info().Ints("pdf_indices", candidates).Msg("using locally scanned candidate pages")
	}
}

func (p *Pipeline) runReduce(ctx context.Context, in Input, flags Flags, res *Result, lg *zerolog.Logger) {
	if !flags.Reduce || len(res.PDFIndices) == 0 {
		metrics.StageSkipped("reduce")
		return
	}
	p.setStatus(ctx, res.RunID, "processing", "reduce", 45, "assembling reduced document", nil, nil)
	t := time.Now()
	reduced, err := ReducePDF(in.Data, res.PDFIndices)
	if err != nil {
		res.ReduceError = err.Error()
		metrics.ObserveStage("reduce", "error", time.Since(t))
		lg.Warn().Err(err).Msg("reduction stage failed")
		return
	}
	res.SoeFileName = ReducedFileName
	if flags.IncludePDF {
		// diagnostic export only; never feeds a later stage
		res.SoePDFBase64 = base64.StdEncoding.EncodeToString(reduced)
	}
	id, err := p.deps.Docs.Store(ctx, reduced, ReducedFileName)
	if err != nil {
		res.ReduceError = err.Error()
		metrics.ObserveStage("reduce", "error", time.Since(t))
		lg.Warn().Err(err).Msg("storing reduced document failed")
		return
	}
	res.SoeFileID = id
	metrics.ObserveStage("reduce", "ok", time.Since(t))
	lg.Info().Str("soe_file_id", id).Int("pages", len(res.PDFIndices)).Msg("reduced document stored")
}

func (p *Pipeline) runExtract(ctx context.Context, flags Flags, res *Result, lg *zerolog.Logger) {
	ref := res.SoeFileID
	if ref == "" {
		ref = res.FileID
	}
	if !flags.Extract || ref == "" {
		metrics.StageSkipped("extract")
		return
	}
	p.setStatus(ctx, res.RunID, "processing", "extract", 60, "extracting table text", nil, nil)
	t := time.Now()
	tsv, err := p.extractTable(ctx, ref)
	if err != nil {
		res.ExtractError = err.Error()
		metrics.ObserveStage("extract", "error", time.Since(t))
		lg.Warn().Err(err).Msg("extraction stage failed")
		return
	}
	res.TSV = tsv
	metrics.ObserveStage("extract", "ok", time.Since(t))
}

func (p *Pipeline) runConvert(ctx context.Context, flags Flags, res *Result, lg *zerolog.Logger) {
	if !flags.Convert || res.TSV == "" {
		metrics.StageSkipped("convert")
		return
	}
	p.setStatus(ctx, res.RunID, "processing", "convert", 80, "normalizing rows", nil, nil)
	t := time.Now()
	rows, err := p.normalizeRows(ctx, res.TSV)
	if err != nil {
		res.ConvertError = err.Error()
		metrics.ObserveStage("convert", "error", time.Since(t))
		lg.Warn().Err(err).Msg("schema conversion stage failed")
		return
	}
	res.TableData = rows
	metrics.ObserveStage("convert", "ok", time.Since(t))
}

// finish computes the derived outputs from whatever rows exist and closes
// out the run status. The schedule anchor is the current call time, so the
// same document produces different dates on different days.
func (p *Pipeline) finish(ctx context.Context, runID string, res *Result, started time.Time) {
	sched := soe.ComputeSchedule(p.now())
	if len(res.TableData) > 0 {
		res.Visits = soe.AggregateVisits(res.TableData, sched)
		res.CSV = soe.RenderCSV(res.TableData)
		res.CSVDisplay = soe.RenderDisplayCSV(res.TableData, sched)
	}
	ended := time.Now()
	p.setStatus(ctx, runID, "done", "done", 100, "pipeline completed", nil, &ended)
	log.Info().
		Str("run_id", runID).
		Int("rows", len(res.TableData)).
		Int("visits", len(res.Visits)).
		Dur("duration", time.Since(started)).
		Msg("pipeline run finished")
}

func (p *Pipeline) setStatus(ctx context.Context, runID, status, stage string, progress int, msg string, start, end *time.Time) {
	err := p.deps.Runs.Set(ctx, runID, store.RunStatus{
		Status:   status,
		Stage:    stage,
		Progress: progress,
		Message:  msg,
		Start:    start,
		End:      end,
	})
	if err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("status store write failed")
	}
}
