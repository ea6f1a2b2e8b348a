package datasource

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satory074/keiba-edge/internal/config"
)

const collectorRaceJSON = `{
	"race_id": "202606010811",
	"race_name": "札幌記念",
	"venue_name": "札幌",
	"race_class": "G2",
	"course_type": "芝",
	"distance_meters": "2000",
	"track_condition": "良",
	"weather": "晴",
	"horses": [
		{"umaban": "1", "horse_name": "アオイホマレ"},
		{"umaban": "2", "horse_name": "キタノサクラ"}
	],
	"live_odds_data": {
		"tan_odds": {"1": "2.4", "2": "5.8"}
	}
}`

const collectorFactorsJSON = `{
	"1": {"lap_time_analysis": {"finishing_kick_score": 82.0}}
}`

func testConfig(baseURL string) *config.CollectorConfig {
	return &config.CollectorConfig{
		BaseURL:           baseURL,
		APIKey:            "test-key",
		TimeoutSeconds:    5,
		RetryAttempts:     2,
		RequestsPerSecond: 100,
	}
}

func testHTTPConfig() HTTPClientConfig {
	cfg := DefaultHTTPClientConfig()
	cfg.Timeout = 5 * time.Second
	cfg.MaxRetries = 2
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 10 * time.Millisecond
	cfg.RateLimit = 1000
	return cfg
}

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestGetRaceSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/races/202606010811", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		w.Write([]byte(collectorRaceJSON))
	}))
	defer server.Close()

	client := NewCollectorClient(testConfig(server.URL), testHTTPConfig(), discardLogger())
	defer client.Close()

	race, err := client.GetRaceSnapshot(context.Background(), "202606010811")
	require.NoError(t, err)
	assert.Equal(t, "札幌記念", race.RaceName)
	assert.Equal(t, 2, race.FieldSize())
	assert.Equal(t, 2.4, race.Odds.Tan[1])
}

func TestGetRaceSnapshotEmptyID(t *testing.T) {
	client := NewCollectorClient(testConfig("http://collector"), testHTTPConfig(), discardLogger())
	defer client.Close()

	_, err := client.GetRaceSnapshot(context.Background(), "")
	require.Error(t, err)
}

func TestGetFactorAnalysis(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/races/202606010811/factors", r.URL.Path)
		w.Write([]byte(collectorFactorsJSON))
	}))
	defer server.Close()

	client := NewCollectorClient(testConfig(server.URL), testHTTPConfig(), discardLogger())
	defer client.Close()

	analysis, err := client.GetFactorAnalysis(context.Background(), "202606010811")
	require.NoError(t, err)
	require.Contains(t, analysis, 1)
	require.NotNil(t, analysis[1].LapTime)
	assert.Equal(t, 82.0, *analysis[1].LapTime.FinishingKickScore)
}

func TestGetFactorAnalysisNotFoundIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewCollectorClient(testConfig(server.URL), testHTTPConfig(), discardLogger())
	defer client.Close()

	analysis, err := client.GetFactorAnalysis(context.Background(), "202606010811")
	require.NoError(t, err)
	assert.Empty(t, analysis)
}

func TestListRaceIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/races", r.URL.Path)
		w.Write([]byte(`{"race_ids": ["202606010811", "202606010812"]}`))
	}))
	defer server.Close()

	client := NewCollectorClient(testConfig(server.URL), testHTTPConfig(), discardLogger())
	defer client.Close()

	ids, err := client.ListRaceIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"202606010811", "202606010812"}, ids)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(collectorRaceJSON))
	}))
	defer server.Close()

	client := NewCollectorClient(testConfig(server.URL), testHTTPConfig(), discardLogger())
	defer client.Close()

	race, err := client.GetRaceSnapshot(context.Background(), "202606010811")
	require.NoError(t, err)
	assert.Equal(t, "202606010811", race.RaceID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewCollectorClient(testConfig(server.URL), testHTTPConfig(), discardLogger())
	defer client.Close()

	_, err := client.GetRaceSnapshot(context.Background(), "202606010811")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSourceAdaptsClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(collectorRaceJSON))
	}))
	defer server.Close()

	client := NewCollectorClient(testConfig(server.URL), testHTTPConfig(), discardLogger())
	defer client.Close()

	source := NewSource(client)
	race, err := source.LoadRace("202606010811")
	require.NoError(t, err)
	assert.Equal(t, "202606010811", race.RaceID)
}
