package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CoherenceScorer rates how coherent a narrative text reads, on [0,100]. The
// production implementation is a remote NLP service; the pipeline only depends
// on this interface so a deterministic stub can stand in during tests.
type CoherenceScorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// HTTPCoherenceScorer calls an external text-quality endpoint.
type HTTPCoherenceScorer struct {
	endpoint string
	client   *http.Client
}

func NewHTTPCoherenceScorer(endpoint string, timeout time.Duration) *HTTPCoherenceScorer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPCoherenceScorer{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an endpoint is set.
func (h *HTTPCoherenceScorer) Configured() bool {
	return h != nil && h.endpoint != ""
}

func (h *HTTPCoherenceScorer) Score(ctx context.Context, text string) (float64, error) {
	if !h.Configured() {
		return 0, fmt.Errorf("coherence endpoint is not configured")
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return 0, fmt.Errorf("marshal coherence request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build coherence request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call coherence endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coherence endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode coherence response: %w", err)
	}

	return clampRaw(body.Score), nil
}

// StaticCoherenceScorer returns a fixed value. Deterministic stand-in for the
// remote service.
type StaticCoherenceScorer struct {
	Value float64
	Err   error
}

func (s StaticCoherenceScorer) Score(_ context.Context, _ string) (float64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return clampRaw(s.Value), nil
}

func clampRaw(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
