package pipeline

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/soepipeline/internal/metrics"
	"github.com/local/soepipeline/internal/storage"
)

func (p *Pipeline) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/process_soe", p.handleProcessUpload)
	mux.HandleFunc("/process_soe_ref", p.handleProcessRef)
	mux.HandleFunc("/progress/", p.handleProgress)
}

// parseFlags reads the stage-selection flags. Form fields win over query
// parameters; configured defaults apply when a flag is named nowhere.
func (p *Pipeline) parseFlags(r *http.Request) Flags {
	d := p.deps.Defaults
	return Flags{
		Upload:     boolParam(r, "upload", d.Upload),
		Detect:     boolParam(r, "detect", d.Detect),
		Reduce:     boolParam(r, "reduce", d.Reduce),
		Extract:    boolParam(r, "extract", d.Extract),
		Convert:    boolParam(r, "convert", d.Convert),
		IncludePDF: boolParam(r, "include_pdf", d.IncludePDF),
		LocalScan:  boolParam(r, "local_scan", d.LocalScan),
	}
}

// boolParam resolves one named flag, form body first and query string as the
// fallback. FormValue cannot be used here: for multipart requests it returns
// the query value, inverting the precedence.
func boolParam(r *http.Request, name string, def bool) bool {
	v := r.PostFormValue(name)
	if v == "" {
		v = r.URL.Query().Get(name)
	}
	if v == "" {
		return def
	}
	v = strings.ToLower(v)
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

// handleProcessUpload runs the pipeline over a multipart file upload.
func (p *Pipeline) handleProcessUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(p.deps.MaxUploadMB << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		http.Error(w, "unreadable or empty file", http.StatusBadRequest)
		return
	}

	name := hdr.Filename
	if name == "" {
		name = "upload.pdf"
	}
	metrics.IncRun("upload")
	p.process(w, r, data, name)
}

type refRequest struct {
	FilePath string `json:"file_path"`
}

// handleProcessRef runs the pipeline over a referenced file, fetched from
// s3://, http(s):// or a local path.
func (p *Pipeline) handleProcessRef(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()
	var req refRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.FilePath == "" {
		http.Error(w, "missing file_path", http.StatusBadRequest)
		return
	}

	data, name, err := storage.FetchRef(r.Context(), req.FilePath)
	if err != nil {
		log.Warn().Err(err).Str("file_path", req.FilePath).Msg("reference fetch failed")
		http.Error(w, "cannot fetch file_path", http.StatusBadGateway)
		return
	}
	metrics.IncRun("reference")
	p.process(w, r, data, name)
}

// process gates the input and writes the run result. Pipeline-internal
// failures never surface as non-2xx; only the preconditions checked here do.
func (p *Pipeline) process(w http.ResponseWriter, r *http.Request, data []byte, filename string) {
	if info := p.deps.Files.Detect(data); !info.IsPDF {
		http.Error(w, info.Description, http.StatusUnsupportedMediaType)
		return
	}

	runID := uuid.NewString()
	log.Info().Str("run_id", runID).Str("file", filename).Int("bytes", len(data)).Msg("run created")

	res := p.Run(r.Context(), Input{RunID: runID, Data: data, Filename: filename}, p.parseFlags(r))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func (p *Pipeline) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/progress/")
	st, ok, err := p.deps.Runs.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"run_id":     id,
		"status":     st.Status,
		"stage":      st.Stage,
		"progress":   st.Progress,
		"message":    st.Message,
		"start_time": st.Start,
		"end_time":   st.End,
	})
}
