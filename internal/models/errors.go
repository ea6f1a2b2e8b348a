package models

import "errors"

// Sentinel errors for the ingestion and persistence boundaries.
var (
	ErrNotFound       = errors.New("record not found")
	ErrNoRaceData     = errors.New("race data not available")
	ErrNoFactorData   = errors.New("factor analysis not available")
	ErrEmptyField     = errors.New("race has no runners")
	ErrInvalidRaceID  = errors.New("invalid race identifier")
)
