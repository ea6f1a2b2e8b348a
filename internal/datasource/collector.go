package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/satory074/keiba-edge/internal/config"
	"github.com/satory074/keiba-edge/internal/ingest"
	"github.com/satory074/keiba-edge/internal/models"
)

// CollectorClient fetches race data from the upstream collector HTTP API.
// The collector serves the same JSON documents the file loader reads, so
// both paths share one decoder.
type CollectorClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	logger     *logrus.Logger
}

// NewCollectorClient creates a client for the configured collector endpoint.
func NewCollectorClient(cfg *config.CollectorConfig, timeout HTTPClientConfig, logger *logrus.Logger) *CollectorClient {
	return &CollectorClient{
		httpClient: NewRateLimitedHTTPClient(timeout, logger),
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

// NewCollectorClientFromConfig builds the HTTP settings from the collector
// section of the application config.
func NewCollectorClientFromConfig(cfg *config.Config, logger *logrus.Logger) *CollectorClient {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = cfg.CollectorTimeout()
	if cfg.Collector.RetryAttempts > 0 {
		httpCfg.MaxRetries = cfg.Collector.RetryAttempts
	}
	if cfg.Collector.RequestsPerSecond > 0 {
		httpCfg.RateLimit = cfg.Collector.RequestsPerSecond
	}
	return NewCollectorClient(&cfg.Collector, httpCfg, logger)
}

// GetRaceSnapshot fetches the current snapshot for one race.
func (c *CollectorClient) GetRaceSnapshot(ctx context.Context, raceID string) (*models.RaceSnapshot, error) {
	if raceID == "" {
		return nil, models.ErrInvalidRaceID
	}

	body, err := c.fetch(ctx, fmt.Sprintf("%s/races/%s", c.baseURL, raceID))
	if err != nil {
		return nil, err
	}

	race, err := ingest.DecodeRaceSnapshot(body)
	if err != nil {
		return nil, fmt.Errorf("decoding race %s: %w", raceID, err)
	}
	return race, nil
}

// GetFactorAnalysis fetches the factor analysis for one race. A 404 from
// the collector means the analysis has not been produced yet and is not an
// error; an empty analysis is returned instead.
func (c *CollectorClient) GetFactorAnalysis(ctx context.Context, raceID string) (models.FactorAnalysis, error) {
	if raceID == "" {
		return nil, models.ErrInvalidRaceID
	}

	body, err := c.fetch(ctx, fmt.Sprintf("%s/races/%s/factors", c.baseURL, raceID))
	if err != nil {
		if errorStatus(err) == http.StatusNotFound {
			c.logger.WithField("race_id", raceID).Info("No factor analysis available from collector")
			return models.FactorAnalysis{}, nil
		}
		return nil, err
	}

	analysis, err := ingest.DecodeFactorAnalysis(body)
	if err != nil {
		return nil, fmt.Errorf("decoding factor analysis for %s: %w", raceID, err)
	}
	return analysis, nil
}

// ListRaceIDs fetches the IDs of races the collector currently tracks.
func (c *CollectorClient) ListRaceIDs(ctx context.Context) ([]string, error) {
	body, err := c.fetch(ctx, fmt.Sprintf("%s/races", c.baseURL))
	if err != nil {
		return nil, err
	}

	var payload struct {
		RaceIDs []string `json:"race_ids"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding race list: %w", err)
	}
	return payload.RaceIDs, nil
}

// Close releases the underlying HTTP client resources.
func (c *CollectorClient) Close() error {
	return c.httpClient.Close()
}

func (c *CollectorClient) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return body, nil
}

type statusError struct {
	URL        string
	StatusCode int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("collector returned status %d for %s", e.StatusCode, e.URL)
}

func errorStatus(err error) int {
	if se, ok := err.(*statusError); ok {
		return se.StatusCode
	}
	return 0
}

// Source adapts the collector client to the race source interface consumed
// by the analysis pipeline.
type Source struct {
	client *CollectorClient
}

// NewSource wraps a collector client as a race source.
func NewSource(client *CollectorClient) *Source {
	return &Source{client: client}
}

func (s *Source) LoadRace(raceID string) (*models.RaceSnapshot, error) {
	return s.client.GetRaceSnapshot(context.Background(), raceID)
}

func (s *Source) LoadFactorAnalysis(raceID string) (models.FactorAnalysis, error) {
	return s.client.GetFactorAnalysis(context.Background(), raceID)
}
