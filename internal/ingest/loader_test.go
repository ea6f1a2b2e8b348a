package ingest

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satory074/keiba-edge/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoaderLoadRace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "race_data_202606010811.json", sampleRaceJSON)

	loader := NewLoader(dir, testLogger())
	snapshot, err := loader.LoadRace("202606010811")
	require.NoError(t, err)
	assert.Equal(t, "202606010811", snapshot.RaceID)
	assert.Len(t, snapshot.Horses, 2)
}

func TestLoaderMissingRace(t *testing.T) {
	loader := NewLoader(t.TempDir(), testLogger())

	_, err := loader.LoadRace("000000000000")
	assert.ErrorIs(t, err, models.ErrNoRaceData)
}

func TestLoaderEmptyHorseList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "race_data_x.json", `{"race_id": "x", "horses": []}`)

	loader := NewLoader(dir, testLogger())
	_, err := loader.LoadRace("x")
	assert.ErrorIs(t, err, models.ErrEmptyField)
}

func TestLoaderFactorAnalysisOptional(t *testing.T) {
	loader := NewLoader(t.TempDir(), testLogger())

	analysis, err := loader.LoadFactorAnalysis("202606010811")
	require.NoError(t, err)
	assert.Empty(t, analysis)
}

func TestLoaderListRaceIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "race_data_202606010811.json", sampleRaceJSON)
	writeFile(t, dir, "race_data_202606010812.json", sampleRaceJSON)
	writeFile(t, dir, "factor_analysis_202606010811.json", `{}`)

	loader := NewLoader(dir, testLogger())
	ids, err := loader.ListRaceIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"202606010811", "202606010812"}, ids)
}
