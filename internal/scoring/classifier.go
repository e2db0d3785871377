// Package scoring consumes dispatched feature vectors, scores them against
// the anomaly classifier and raises alerts for flagged transfers.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Classifier scores one feature vector and returns the anomaly probability
// in [0, 1].
type Classifier interface {
	Score(ctx context.Context, features []float64) (float64, error)
}

// HTTPClassifier calls a model-serving endpoint over HTTP. The endpoint
// receives {"features": [...]} and answers {"probability": 0.x}.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClassifier creates a classifier client for the given endpoint.
func NewHTTPClassifier(endpoint string, timeout time.Duration) *HTTPClassifier {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type scoreRequest struct {
	Features []float64 `json:"features"`
}

type scoreResponse struct {
	Probability float64 `json:"probability"`
}

// Score posts the feature vector and returns the model's probability.
func (c *HTTPClassifier) Score(ctx context.Context, features []float64) (float64, error) {
	body, err := json.Marshal(scoreRequest{Features: features})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var parsed scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode classifier response: %w", err)
	}
	if parsed.Probability < 0 || parsed.Probability > 1 {
		return 0, fmt.Errorf("classifier returned probability out of range: %f", parsed.Probability)
	}
	return parsed.Probability, nil
}
