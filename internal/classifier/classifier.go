// Package classifier defines the external sentiment/category classifier
// boundary. The model itself is a black box behind an HTTP inference
// endpoint; this package only shapes requests and responses.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aura-global/aura/internal/models"
)

// Result is one classified headline: a sentiment label with its
// confidence and the best-matching topical category.
type Result struct {
	Label      string  `json:"label"` // "POSITIVE" or "NEGATIVE"
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category"`
}

// Score converts the label/confidence pair to a signed sentiment score in
// [-1, 1]: +confidence for a positive label, -confidence otherwise.
func (r Result) Score() float64 {
	if r.Label == "POSITIVE" {
		return r.Confidence
	}
	return -r.Confidence
}

// Classifier maps article text to a sentiment result.
type Classifier interface {
	Classify(ctx context.Context, headline string) (Result, error)
}

// Client calls an HTTP inference endpoint that hosts the sentiment and
// zero-shot category models.
type Client struct {
	endpoint   string
	categories []string
	httpClient *http.Client
}

// NewClient creates a classifier client for the given inference endpoint.
// Categories are the candidate labels for zero-shot classification.
func NewClient(endpoint string, timeout time.Duration, categories []string) *Client {
	return &Client{
		endpoint:   endpoint,
		categories: categories,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type classifyRequest struct {
	Text       string   `json:"text"`
	Categories []string `json:"categories"`
}

// Classify sends the headline to the inference endpoint.
func (c *Client) Classify(ctx context.Context, headline string) (Result, error) {
	body, err := json.Marshal(classifyRequest{Text: headline, Categories: c.categories})
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, &models.ExternalServiceError{Service: "classifier", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, &models.ExternalServiceError{Service: "classifier", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, &models.ExternalServiceError{Service: "classifier", Err: fmt.Errorf("failed to decode classification: %w", err)}
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		return Result{}, fmt.Errorf("classifier returned confidence %v outside [0, 1]", result.Confidence)
	}

	return result, nil
}
