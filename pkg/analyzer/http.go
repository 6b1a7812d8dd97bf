package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/teslashibe/go-focusguard/internal/httpc"
	"github.com/teslashibe/go-focusguard/pkg/affect"
	"github.com/teslashibe/go-focusguard/pkg/presence"
)

// DefaultTimeout bounds one /predict call.
const DefaultTimeout = 5 * time.Second

// maxErrorBody caps how much of an error response is kept in APIError.
const maxErrorBody = 512

// HTTPClient calls a Frame Analyzer's POST /predict endpoint.
type HTTPClient struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		h.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(h *HTTPClient) {
		h.logger = l
	}
}

// NewHTTPClient creates a client for the analyzer at baseURL
// (e.g. "http://localhost:8000").
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	h := &HTTPClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/predict",
		client:   httpc.NewClient(DefaultTimeout),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Endpoint returns the full /predict URL.
func (h *HTTPClient) Endpoint() string {
	return h.endpoint
}

// predictResponse is the analyzer's JSON answer.
type predictResponse struct {
	Status     string           `json:"status"`
	Analysis   *predictAnalysis `json:"analysis"`
	DebugImage *string          `json:"debug_image"`
	Error      string           `json:"error"`
}

type predictAnalysis struct {
	Emotions        affect.Reading `json:"emotions"`
	Valence         string         `json:"valence"`
	EngagementScore *int           `json:"engagement_score"`
	AllScores       affect.Reading `json:"all_scores"`
}

// Analyze uploads the frame as multipart field "file" and decodes the result.
func (h *HTTPClient) Analyze(ctx context.Context, jpeg []byte) (Result, error) {
	if len(jpeg) == 0 {
		return Result{}, ErrEmptyFrame
	}

	body, contentType, err := multipartFrame(jpeg)
	if err != nil {
		return Result{}, fmt.Errorf("analyzer: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, body)
	if err != nil {
		return Result{}, fmt.Errorf("analyzer: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("analyzer: post frame: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Result{}, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
			Endpoint:   h.endpoint,
		}
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return Result{}, fmt.Errorf("analyzer: decode response: %w", err)
	}
	if pr.Error != "" {
		return Result{}, fmt.Errorf("%w: %s", ErrRejected, pr.Error)
	}

	res := pr.result()
	h.logger.Debug("frame analyzed", "status", res.Status, "scored", res.Scores != nil)
	return res, nil
}

func (pr *predictResponse) result() Result {
	res := Result{Status: presence.Status(pr.Status)}
	if pr.DebugImage != nil {
		res.DebugImage = *pr.DebugImage
	}
	if pr.Analysis == nil {
		return res
	}

	res.Scores = pr.Analysis.AllScores
	if len(res.Scores) == 0 {
		res.Scores = pr.Analysis.Emotions
	}
	if res.Scores == nil {
		res.Scores = affect.Reading{}
	}

	summary := affect.Summarize(res.Scores)
	if pr.Analysis.Valence != "" {
		summary.Valence = pr.Analysis.Valence
	}
	if pr.Analysis.EngagementScore != nil {
		summary.EngagementScore = *pr.Analysis.EngagementScore
	}
	res.Analysis = &summary
	return res
}

func multipartFrame(jpeg []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	hdr.Set("Content-Type", "image/jpeg")

	part, err := w.CreatePart(hdr)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(jpeg); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var _ Analyzer = (*HTTPClient)(nil)
