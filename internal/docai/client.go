package docai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/soepipeline/internal/metrics"
)

// storePurpose tags every stored file on the document service.
const storePurpose = "user_data"

// InferRequest is one structured extraction request: an instruction plus
// zero or more previously stored file references.
type InferRequest struct {
	Prompt  string
	FileIDs []string
}

// Config for the document service client.
type Config struct {
	APIKey      string
	BaseURL     string // default https://api.openai.com/v1
	Model       string
	Timeout     time.Duration
	MaxInflight int // concurrent outbound requests across all pipeline runs
}

// Client talks to the external document-understanding service: a store
// endpoint for binary files and an inference endpoint for structured
// extraction over stored files.
type Client struct {
	http     *http.Client
	apiKey   string
	baseURL  string
	model    string
	inflight chan struct{}
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxInflight <= 0 {
		cfg.MaxInflight = 4
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		model:    cfg.Model,
		inflight: make(chan struct{}, cfg.MaxInflight),
	}
}

// Configured reports whether the client holds a credential. Callers check
// this before starting any network stage.
func (c *Client) Configured() bool { return c.apiKey != "" }

// acquire reserves an in-flight slot, bounding concurrent outbound calls.
func (c *Client) acquire(ctx context.Context) (func(), error) {
	select {
	case c.inflight <- struct{}{}:
		return func() { <-c.inflight }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Store uploads binary content and returns the service's opaque file id.
func (c *Client) Store(ctx context.Context, data []byte, filename string) (string, error) {
	if c.apiKey == "" {
		return "", &UploadError{Body: "API key not configured"}
	}
	release, err := c.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", storePurpose); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveDocService("store", "error")
		return "", &UploadError{Body: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ObserveDocService("store", "error")
		return "", &UploadError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.ID == "" {
		metrics.ObserveDocService("store", "error")
		return "", &UploadError{StatusCode: resp.StatusCode, Body: "no file id in response: " + string(raw)}
	}

	metrics.ObserveDocService("store", "ok")
	log.Debug().Str("file_id", out.ID).Str("filename", filename).Int("bytes", len(data)).Msg("stored file")
	return out.ID, nil
}

type inferContent struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	FileID string `json:"file_id,omitempty"`
}

type inferInput struct {
	Role    string         `json:"role"`
	Content []inferContent `json:"content"`
}

type inferPayload struct {
	Model string       `json:"model"`
	Input []inferInput `json:"input"`
}

type inferResponse struct {
	Output []struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	OutputText string `json:"output_text"`
}

// Infer submits an instruction plus file references and returns the primary
// text output. The structured output[0].content[0].text location is checked
// first, then the flat output_text field.
func (c *Client) Infer(ctx context.Context, req InferRequest) (string, error) {
	if c.apiKey == "" {
		return "", &InferenceError{Body: "API key not configured"}
	}
	release, err := c.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	content := make([]inferContent, 0, len(req.FileIDs)+1)
	for _, id := range req.FileIDs {
		content = append(content, inferContent{Type: "input_file", FileID: id})
	}
	content = append(content, inferContent{Type: "input_text", Text: req.Prompt})

	payload := inferPayload{
		Model: c.model,
		Input: []inferInput{{Role: "user", Content: content}},
	}
	body, _ := json.Marshal(payload)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveDocService("infer", "error")
		return "", &InferenceError{Body: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ObserveDocService("infer", "error")
		return "", &InferenceError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out inferResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		metrics.ObserveDocService("infer", "error")
		return "", &InferenceError{StatusCode: resp.StatusCode, Body: "undecodable response: " + err.Error()}
	}

	text := ""
	if len(out.Output) > 0 && len(out.Output[0].Content) > 0 {
		text = out.Output[0].Content[0].Text
	}
	if text == "" {
		text = out.OutputText
	}
	if text == "" {
		metrics.ObserveDocService("infer", "error")
		return "", &InferenceError{StatusCode: resp.StatusCode, Body: "response contains no text output"}
	}

	metrics.ObserveDocService("infer", "ok")
	log.Debug().Int("files", len(req.FileIDs)).Int("chars", len(text)).Dur("duration", time.Since(start)).Msg("inference completed")
	return text, nil
}
