package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/satory074/keiba-edge/internal/models"
)

// Loader reads collector exports from a data directory. Files follow the
// collector's naming scheme: race_data_<race_id>.json and
// factor_analysis_<race_id>.json.
type Loader struct {
	dataDir  string
	validate *validator.Validate
	logger   *logrus.Logger
}

// NewLoader creates a loader rooted at dataDir.
func NewLoader(dataDir string, logger *logrus.Logger) *Loader {
	return &Loader{
		dataDir:  dataDir,
		validate: validator.New(),
		logger:   logger,
	}
}

// LoadRace reads and validates the race snapshot for one race ID.
func (l *Loader) LoadRace(raceID string) (*models.RaceSnapshot, error) {
	path := filepath.Join(l.dataDir, fmt.Sprintf("race_data_%s.json", raceID))
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("race %s: %w", raceID, models.ErrNoRaceData)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read race data: %w", err)
	}

	snapshot, err := DecodeRaceSnapshot(data)
	if err != nil {
		return nil, err
	}
	if err := l.validate.Struct(snapshot); err != nil {
		return nil, fmt.Errorf("race %s failed validation: %w", raceID, err)
	}
	if len(snapshot.Horses) == 0 {
		return nil, fmt.Errorf("race %s: %w", raceID, models.ErrEmptyField)
	}

	l.logger.WithFields(logrus.Fields{
		"race_id": raceID,
		"horses":  len(snapshot.Horses),
	}).Debug("Loaded race snapshot")
	return snapshot, nil
}

// LoadFactorAnalysis reads the factor analysis for one race ID. A missing
// file is not an error; analysis then proceeds on market priors alone.
func (l *Loader) LoadFactorAnalysis(raceID string) (models.FactorAnalysis, error) {
	path := filepath.Join(l.dataDir, fmt.Sprintf("factor_analysis_%s.json", raceID))
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		l.logger.WithField("race_id", raceID).Info("No factor analysis found, using market priors only")
		return models.FactorAnalysis{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read factor analysis: %w", err)
	}

	return DecodeFactorAnalysis(data)
}

// ListRaceIDs scans the data directory for race data exports.
func (l *Loader) ListRaceIDs() ([]string, error) {
	pattern := filepath.Join(l.dataDir, "race_data_*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan data directory: %w", err)
	}

	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		base := filepath.Base(match)
		id := base[len("race_data_") : len(base)-len(".json")]
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
