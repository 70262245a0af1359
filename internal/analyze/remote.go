package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/ppiankov/attributa/internal/model"
	"github.com/ppiankov/attributa/internal/worker"
)

// ErrUnexpectedShape is returned when a remote response matches no known layout
var ErrUnexpectedShape = errors.New("unexpected response shape")

// Remote calls a hosted analysis service. Segment content is resolved
// locally and posted with the id.
type Remote struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	limiter    *worker.Limiter
	source     SegmentSource
}

// RemoteOptions configures a Remote analyzer
type RemoteOptions struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	Client    *http.Client
	Limiter   *worker.Limiter
}

// NewRemote creates a remote analyzer
func NewRemote(source SegmentSource, opts RemoteOptions) (*Remote, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("remote analyzer: base URL required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("remote analyzer: %w", err)
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Limiter == nil {
		opts.Limiter = worker.NewLimiter(5, 5)
	}
	return &Remote{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		userAgent:  opts.UserAgent,
		httpClient: opts.Client,
		limiter:    opts.Limiter,
		source:     source,
	}, nil
}

type segmentRequest struct {
	SegmentID string `json:"segmentId"`
	Type      string `json:"type"`
	Content   string `json:"content"`
}

type textResponse struct {
	TailTokenShare   *float64 `json:"tailTokenShare"`
	RankVariance     *float64 `json:"rankVariance"`
	Curvature        *float64 `json:"curvature"`
	NumPerturbations int      `json:"numPerturbations"`
}

// AnalyzeText requests token-predictability and curvature signals
func (r *Remote) AnalyzeText(ctx context.Context, segmentID string) (model.TextSignals, error) {
	body, err := r.post(ctx, segmentID, "text")
	if err != nil {
		return model.TextSignals{}, err
	}

	var resp textResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.TextSignals{}, fmt.Errorf("decode text signals: %w", err)
	}
	if resp.TailTokenShare == nil || resp.RankVariance == nil || resp.Curvature == nil {
		return model.TextSignals{}, fmt.Errorf("text signals: %w", ErrUnexpectedShape)
	}

	return model.TextSignals{
		TokenPredictability: model.TokenPredictability{
			TailTokenShare: *resp.TailTokenShare,
			RankVariance:   *resp.RankVariance,
		},
		CurvatureSignal: model.CurvatureSignal{
			Curvature:        *resp.Curvature,
			NumPerturbations: resp.NumPerturbations,
		},
	}, nil
}

// AnalyzeWatermark requests a watermark p-value
func (r *Remote) AnalyzeWatermark(ctx context.Context, segmentID string) (model.WatermarkSignal, error) {
	body, err := r.post(ctx, segmentID, "watermark")
	if err != nil {
		return model.WatermarkSignal{}, err
	}
	return DecodeWatermark(body)
}

type watermarkFields struct {
	PValue      *float64 `json:"pValue"`
	PValueSnake *float64 `json:"p_value"`
	ZScore      float64  `json:"zScore"`
	GreenFrac   float64  `json:"greenFraction"`
}

func (w watermarkFields) pValue() *float64 {
	if w.PValue != nil {
		return w.PValue
	}
	return w.PValueSnake
}

// DecodeWatermark accepts the flat {"pValue":..} layout and the wrapped
// {"watermark":{..}} and {"data":{"p_value":..}} layouts
func DecodeWatermark(body []byte) (model.WatermarkSignal, error) {
	var envelope struct {
		watermarkFields
		Watermark *watermarkFields `json:"watermark"`
		Data      *watermarkFields `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return model.WatermarkSignal{}, fmt.Errorf("decode watermark: %w", err)
	}

	var fields *watermarkFields
	switch {
	case envelope.pValue() != nil:
		fields = &envelope.watermarkFields
	case envelope.Watermark != nil && envelope.Watermark.pValue() != nil:
		fields = envelope.Watermark
	case envelope.Data != nil && envelope.Data.pValue() != nil:
		fields = envelope.Data
	default:
		return model.WatermarkSignal{}, fmt.Errorf("watermark: %w", ErrUnexpectedShape)
	}

	p := *fields.pValue()
	if math.IsNaN(p) || p < 0 || p > 1 {
		return model.WatermarkSignal{}, fmt.Errorf("watermark: p-value %v out of range", p)
	}
	return model.WatermarkSignal{PValue: p, ZScore: fields.ZScore, GreenFraction: fields.GreenFrac}, nil
}

func (r *Remote) post(ctx context.Context, segmentID, kind string) ([]byte, error) {
	seg, content, err := r.source.Segment(ctx, segmentID)
	if err != nil {
		return nil, fmt.Errorf("resolve segment: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/segments/%s/%s", r.baseURL, url.PathEscape(segmentID), kind)
	if err := r.limiter.Wait(ctx, endpoint); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	payload, err := json.Marshal(segmentRequest{SegmentID: segmentID, Type: string(seg.Type), Content: content})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", kind, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s request: status %d: %s", kind, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
