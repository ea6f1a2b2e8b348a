package selector

import (
	"io"
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

type fixedEdge struct {
	score float64
	ok    bool
}

func (f fixedEdge) EdgeScore(string, string, int) (float64, bool) {
	return f.score, f.ok
}

func completeRace(fieldSize int) *models.RaceSnapshot {
	horses := make([]*models.HorseEntry, 0, fieldSize)
	tan := make(map[int]float64, fieldSize)
	for i := 1; i <= fieldSize; i++ {
		horses = append(horses, &models.HorseEntry{
			Umaban:      i,
			Name:        "テスト",
			HasPedigree: true,
			HasTraining: true,
			HasJockey:   true,
			HasTrainer:  true,
		})
		tan[i] = 2.0 // overround well above 0.3 for any realistic field
	}
	return &models.RaceSnapshot{
		RaceID:         "202606010811",
		RaceName:       "テストステークス",
		VenueName:      "東京",
		RaceClass:      "G1",
		CourseType:     "芝",
		DistanceMeters: 2000,
		TrackCondition: "良",
		Horses:         horses,
		Odds:           models.LiveOdds{Tan: tan},
		HasSpeedData:   true,
	}
}

func TestScoreCompleteRace(t *testing.T) {
	s := NewSelector(DefaultCriteria(), fixedEdge{score: 60, ok: true}, testLogger())

	race := completeRace(11)

	// Field size 11 sits exactly mid-range, so every component is at its
	// ceiling except inefficiency (90) and historical edge (60).
	// 100*0.10 + 100*0.15 + 100*0.10 + 90*0.25 + 100*0.20 + 60*0.20 = 89.5
	assert.InDelta(t, 89.5, s.Score(race), 1e-9)
}

func TestScoreFieldSizeBands(t *testing.T) {
	s := NewSelector(DefaultCriteria(), nil, testLogger())

	tests := []struct {
		name      string
		fieldSize int
		want      float64
	}{
		{"too small", 4, 30},
		{"too large", 18, 50},
		{"mid range", 11, 100},
		{"edge of range", 16, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.fieldSizeScore(tt.fieldSize), 1e-9)
		})
	}
}

func TestScoreClassSubstringMatch(t *testing.T) {
	s := NewSelector(DefaultCriteria(), nil, testLogger())

	assert.Equal(t, 100.0, s.raceClassScore("G1"))
	assert.Equal(t, 100.0, s.raceClassScore("3勝クラス"))
	assert.Equal(t, 50.0, s.raceClassScore("未勝利"))
}

func TestScoreConditionExactMatch(t *testing.T) {
	s := NewSelector(DefaultCriteria(), nil, testLogger())

	assert.Equal(t, 100.0, s.conditionScore("良"))
	assert.Equal(t, 100.0, s.conditionScore("稍重"))
	assert.Equal(t, 60.0, s.conditionScore("不良"))
	assert.Equal(t, 60.0, s.conditionScore(""))
}

func TestScoreInefficiencyBands(t *testing.T) {
	s := NewSelector(DefaultCriteria(), nil, testLogger())

	tests := []struct {
		name string
		tan  map[int]float64
		want float64
	}{
		{"no odds", nil, 50},
		{"tight market", map[int]float64{1: 2.0, 2: 2.0}, 50},
		{"moderate overround", map[int]float64{1: 2.0, 2: 2.0, 3: 6.0}, 70},
		{"heavy overround", map[int]float64{1: 2.0, 2: 2.0, 3: 2.5}, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			race := &models.RaceSnapshot{Odds: models.LiveOdds{Tan: tt.tan}}
			assert.InDelta(t, tt.want, s.inefficiencyScore(race), 1e-9)
		})
	}
}

func TestScoreDataAvailability(t *testing.T) {
	s := NewSelector(DefaultCriteria(), nil, testLogger())

	full := completeRace(10)
	assert.InDelta(t, 100, s.dataScore(full), 1e-9)

	partial := completeRace(10)
	partial.HasSpeedData = false
	partial.Horses[3].HasTraining = false
	assert.InDelta(t, 4.0/6.0*100, s.dataScore(partial), 1e-9)

	empty := &models.RaceSnapshot{}
	assert.InDelta(t, 0, s.dataScore(empty), 1e-9)
}

func TestScoreRedistributesEdgeWeight(t *testing.T) {
	withEdge := NewSelector(DefaultCriteria(), fixedEdge{score: 60, ok: true}, testLogger())
	without := NewSelector(DefaultCriteria(), nil, testLogger())

	race := completeRace(11)

	// Without history the remaining components are rescaled to the full
	// weight: (100*0.10+100*0.15+100*0.10+90*0.25+100*0.20) / 0.80 = 96.875
	assert.InDelta(t, 96.875, without.Score(race), 1e-9)
	assert.InDelta(t, 89.5, withEdge.Score(race), 1e-9)
}

func TestRecommendedRaces(t *testing.T) {
	s := NewSelector(DefaultCriteria(), nil, testLogger())

	good := completeRace(11)
	good.RaceID = "good"
	poor := completeRace(4)
	poor.RaceID = "poor"
	poor.RaceClass = "未勝利"
	poor.TrackCondition = "不良"
	poor.HasSpeedData = false
	poor.Odds = models.LiveOdds{}

	recs := s.RecommendedRaces([]*models.RaceSnapshot{poor, good}, 70, 5)
	require.Len(t, recs, 1)
	assert.Equal(t, "good", recs[0].RaceID)
	assert.GreaterOrEqual(t, recs[0].Score, 70.0)
}

func TestRecommendedRacesLimit(t *testing.T) {
	s := NewSelector(DefaultCriteria(), nil, testLogger())

	races := make([]*models.RaceSnapshot, 4)
	for i := range races {
		races[i] = completeRace(11)
	}

	recs := s.RecommendedRaces(races, 0, 2)
	assert.Len(t, recs, 2)
}

func TestFilterRaces(t *testing.T) {
	s := NewSelector(DefaultCriteria(), nil, testLogger())

	tokyo := completeRace(11)
	tokyo.RaceID = "tokyo"
	hanshin := completeRace(11)
	hanshin.RaceID = "hanshin"
	hanshin.VenueName = "阪神"
	hanshin.DistanceMeters = 1200

	all := []*models.RaceSnapshot{tokyo, hanshin}

	byVenue := s.FilterRaces(all, Filter{Venue: "東京"})
	require.Len(t, byVenue, 1)
	assert.Equal(t, "tokyo", byVenue[0].RaceID)

	byDistance := s.FilterRaces(all, Filter{MinDistance: 1600})
	require.Len(t, byDistance, 1)
	assert.Equal(t, "tokyo", byDistance[0].RaceID)

	byClass := s.FilterRaces(all, Filter{RaceClasses: []string{"G1", "G2"}})
	assert.Len(t, byClass, 2)

	none := s.FilterRaces(all, Filter{Venue: "中山"})
	assert.Empty(t, none)
}
