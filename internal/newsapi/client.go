// Package newsapi provides a client for the NewsAPI "everything" endpoint.
// One request is issued per country per scan cycle; transient failures are
// retried with linear backoff.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aura-global/aura/internal/models"
)

// Client provides access to the news API.
type Client struct {
	apiBaseURL string
	apiKey     string
	query      string
	language   string
	pageSize   int
	maxRetries int
	httpClient *http.Client
}

// ClientConfig holds optional client tuning.
type ClientConfig struct {
	Query      string
	Language   string
	PageSize   int
	MaxRetries int
}

// apiArticle represents one article in a NewsAPI response.
type apiArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// apiResponse represents a NewsAPI "everything" response envelope.
type apiResponse struct {
	Status       string       `json:"status"`
	TotalResults int          `json:"totalResults"`
	Articles     []apiArticle `json:"articles"`
	Code         string       `json:"code"`
	Message      string       `json:"message"`
}

// NewClient creates a news API client.
func NewClient(apiBaseURL, apiKey string, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.Query == "" {
		cfg.Query = "technology"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = 15
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}

	return &Client{
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		apiKey:     apiKey,
		query:      cfg.Query,
		language:   cfg.Language,
		pageSize:   cfg.PageSize,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchArticles retrieves the latest articles mentioning a country. The
// query combines the configured topic with the country's display name,
// e.g. "technology AND France". Items with a missing title or URL, or a
// "[Removed]" placeholder headline, are dropped.
func (c *Client) FetchArticles(ctx context.Context, countryName string) ([]models.RawArticle, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("%s AND %s", c.query, countryName))
	params.Set("language", c.language)
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(c.pageSize))

	reqURL := fmt.Sprintf("%s/everything?%s", c.apiBaseURL, params.Encode())

	resp, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, &models.ExternalServiceError{Service: "newsapi", Err: err}
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &models.ExternalServiceError{Service: "newsapi", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if envelope.Status != "ok" {
		return nil, &models.ExternalServiceError{Service: "newsapi", Err: fmt.Errorf("API error %s: %s", envelope.Code, envelope.Message)}
	}

	var items []models.RawArticle
	for _, a := range envelope.Articles {
		if a.Title == "" || a.URL == "" || strings.Contains(a.Title, "[Removed]") {
			continue
		}

		publishedAt, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			publishedAt = time.Now()
		}

		source := a.Source.Name
		if source == "" {
			source = "NewsAPI"
		}

		items = append(items, models.RawArticle{
			Title:       a.Title,
			URL:         a.URL,
			Source:      source,
			PublishedAt: publishedAt,
		})
	}

	return items, nil
}

// doRequest performs an HTTP GET with retry and linear backoff on network
// errors and 5xx responses. 4xx responses are returned to the caller
// without retrying (the response body carries the API error).
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Api-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if waitErr := sleepCtx(ctx, time.Duration(i+1)*time.Second); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			if waitErr := sleepCtx(ctx, time.Duration(i+1)*time.Second); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
