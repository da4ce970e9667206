package statement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Extractor turns a statement PDF into a normalized document.
type Extractor interface {
	Extract(ctx context.Context, filename string, pdf []byte) (*Document, error)
}

var ErrExtraction = errors.New("extraction failed")

// LocalExtractor calls the table extraction microservice. Requests are
// throttled so a batch of uploads cannot overwhelm it.
type LocalExtractor struct {
	baseURL string
	method  string
	client  *http.Client
	limiter *rate.Limiter
}

type LocalOption func(*LocalExtractor)

// WithMethod selects the extraction backend of the service (auto, camelot,
// tabula).
func WithMethod(method string) LocalOption {
	return func(e *LocalExtractor) { e.method = method }
}

func WithHTTPClient(c *http.Client) LocalOption {
	return func(e *LocalExtractor) { e.client = c }
}

func NewLocalExtractor(baseURL string, timeout time.Duration, perMinute int, opts ...LocalOption) *LocalExtractor {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}

	e := &LocalExtractor{
		baseURL: strings.TrimRight(baseURL, "/"),
		method:  "auto",
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
	}

	for _, o := range opts {
		o(e)
	}

	return e
}

type localResponse struct {
	Success  bool      `json:"success"`
	Error    string    `json:"error"`
	Document *Document `json:"document"`
}

func (e *LocalExtractor) Extract(ctx context.Context, filename string, pdf []byte) (*Document, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for extraction slot: %w", err)
	}

	var body bytes.Buffer

	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}

	if _, err := part.Write(pdf); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}

	if err := w.WriteField("method", e.method); err != nil {
		return nil, fmt.Errorf("writing method field: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/extract", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		slog.Error("extraction service request failed", "url", req.URL.String(), "error", err)
		return nil, fmt.Errorf("calling extraction service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var out localResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: HTTP %d", ErrExtraction, resp.StatusCode)
		}

		return nil, fmt.Errorf("decode extraction response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !out.Success || out.Document == nil {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}

		return nil, fmt.Errorf("%w: %s", ErrExtraction, msg)
	}

	return out.Document, nil
}

// Healthy reports whether the extraction service answers its health check.
func (e *LocalExtractor) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
