// Package selector scores race cards for betting suitability so analysis
// effort concentrates on races where an edge is plausible.
package selector

import (
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/satory074/keiba-edge/internal/models"
	"github.com/satory074/keiba-edge/internal/probability"
)

// EdgeProvider supplies a historical edge score (0-100) for races similar
// to the given one. ok is false when no history covers the race profile.
type EdgeProvider interface {
	EdgeScore(venue string, courseType string, distanceMeters int) (score float64, ok bool)
}

// Criteria holds the selection weights and preference sets.
type Criteria struct {
	MinFieldSize        int
	MaxFieldSize        int
	PreferredClasses    []string
	PreferredConditions []string

	FieldSizeWeight      float64
	RaceClassWeight      float64
	ConditionWeight      float64
	InefficiencyWeight   float64
	DataWeight           float64
	HistoricalEdgeWeight float64
}

// DefaultCriteria returns the production selection criteria.
func DefaultCriteria() Criteria {
	return Criteria{
		MinFieldSize:        6,
		MaxFieldSize:        16,
		PreferredClasses:    []string{"G1", "G2", "G3", "OP", "3勝"},
		PreferredConditions: []string{"良", "稍重"},

		FieldSizeWeight:      0.10,
		RaceClassWeight:      0.15,
		ConditionWeight:      0.10,
		InefficiencyWeight:   0.25,
		DataWeight:           0.20,
		HistoricalEdgeWeight: 0.20,
	}
}

// Selector ranks races by opportunity score.
type Selector struct {
	criteria Criteria
	edges    EdgeProvider
	logger   *logrus.Logger
}

// NewSelector creates a selector. edges may be nil; the historical edge
// component is then dropped and its weight redistributed over the rest.
func NewSelector(criteria Criteria, edges EdgeProvider, logger *logrus.Logger) *Selector {
	return &Selector{criteria: criteria, edges: edges, logger: logger}
}

// ScoredRace pairs a race with its opportunity score.
type ScoredRace struct {
	RaceID   string     `json:"race_id"`
	RaceName string     `json:"race_name"`
	Venue    string     `json:"venue"`
	Date     *time.Time `json:"date,omitempty"`
	Score    float64    `json:"score"`
}

// ScoreRaces computes the opportunity score for every race.
func (s *Selector) ScoreRaces(races []*models.RaceSnapshot) map[string]float64 {
	s.logger.WithField("races", len(races)).Info("Scoring races for betting opportunities")

	scores := make(map[string]float64, len(races))
	for _, race := range races {
		score := s.Score(race)
		scores[race.RaceID] = score
		s.logger.WithFields(logrus.Fields{
			"race_id":   race.RaceID,
			"race_name": race.RaceName,
			"score":     score,
		}).Info("Race scored")
	}
	return scores
}

// Score computes the weighted opportunity score (0-100) for one race.
func (s *Selector) Score(race *models.RaceSnapshot) float64 {
	type component struct {
		score  float64
		weight float64
	}
	components := []component{
		{s.fieldSizeScore(race.FieldSize()), s.criteria.FieldSizeWeight},
		{s.raceClassScore(race.RaceClass), s.criteria.RaceClassWeight},
		{s.conditionScore(race.TrackCondition), s.criteria.ConditionWeight},
		{s.inefficiencyScore(race), s.criteria.InefficiencyWeight},
		{s.dataScore(race), s.criteria.DataWeight},
	}
	if edge, ok := s.edgeScore(race); ok {
		components = append(components, component{edge, s.criteria.HistoricalEdgeWeight})
	}

	weighted := 0.0
	totalWeight := 0.0
	for _, c := range components {
		weighted += c.score * c.weight
		totalWeight += c.weight
	}
	if totalWeight == 0 {
		return 0
	}
	// Normalizing by the participating weights keeps the 0-100 scale when
	// the historical edge component is unavailable.
	fullWeight := s.criteria.FieldSizeWeight + s.criteria.RaceClassWeight +
		s.criteria.ConditionWeight + s.criteria.InefficiencyWeight +
		s.criteria.DataWeight + s.criteria.HistoricalEdgeWeight
	return weighted * fullWeight / totalWeight
}

func (s *Selector) fieldSizeScore(fieldSize int) float64 {
	min, max := s.criteria.MinFieldSize, s.criteria.MaxFieldSize
	switch {
	case fieldSize < min:
		return 30
	case fieldSize > max:
		return 50
	}
	mid := float64(min+max) / 2
	halfRange := float64(max-min) / 2
	deviation := float64(fieldSize) - mid
	if deviation < 0 {
		deviation = -deviation
	}
	return 100 - deviation/halfRange*50
}

func (s *Selector) raceClassScore(raceClass string) float64 {
	for _, preferred := range s.criteria.PreferredClasses {
		if strings.Contains(raceClass, preferred) {
			return 100
		}
	}
	return 50
}

func (s *Selector) conditionScore(condition string) float64 {
	for _, preferred := range s.criteria.PreferredConditions {
		if condition == preferred {
			return 100
		}
	}
	return 60
}

// inefficiencyScore reads the win market's overround as a proxy for how
// badly the odds are priced. A fatter overround leaves more room for
// mispriced individual runners.
func (s *Selector) inefficiencyScore(race *models.RaceSnapshot) float64 {
	overround, ok := probability.Overround(race.Odds.Tan)
	if !ok {
		return 50
	}
	switch {
	case overround > 0.3:
		return 90
	case overround > 0.2:
		return 80
	case overround > 0.15:
		return 70
	default:
		return 50
	}
}

func (s *Selector) dataScore(race *models.RaceSnapshot) float64 {
	const totalChecks = 6
	passed := 0

	if race.RaceName != "" && race.VenueName != "" && race.CourseType != "" && race.DistanceMeters > 0 {
		passed++
	}
	if len(race.Horses) > 0 {
		if allHorses(race, func(h *models.HorseEntry) bool { return h.Name != "" && h.HasPedigree }) {
			passed++
		}
		if allHorses(race, func(h *models.HorseEntry) bool { return h.HasTraining }) {
			passed++
		}
		if allHorses(race, func(h *models.HorseEntry) bool { return h.HasJockey && h.HasTrainer }) {
			passed++
		}
	}
	if len(race.Odds.Tan) > 0 {
		passed++
	}
	if race.HasSpeedData {
		passed++
	}

	return float64(passed) / totalChecks * 100
}

func (s *Selector) edgeScore(race *models.RaceSnapshot) (float64, bool) {
	if s.edges == nil {
		return 0, false
	}
	return s.edges.EdgeScore(race.VenueName, race.CourseType, race.DistanceMeters)
}

func allHorses(race *models.RaceSnapshot, pred func(*models.HorseEntry) bool) bool {
	for _, h := range race.Horses {
		if !pred(h) {
			return false
		}
	}
	return true
}

// RecommendedRaces returns the races scoring at or above minScore, best
// first, capped at limit.
func (s *Selector) RecommendedRaces(races []*models.RaceSnapshot, minScore float64, limit int) []ScoredRace {
	scored := make([]ScoredRace, 0, len(races))
	for _, race := range races {
		score := s.Score(race)
		if score < minScore {
			continue
		}
		scored = append(scored, ScoredRace{
			RaceID:   race.RaceID,
			RaceName: race.RaceName,
			Venue:    race.VenueName,
			Date:     race.Date,
			Score:    score,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Filter holds optional race filtering criteria. Zero values mean "no
// constraint".
type Filter struct {
	Venue        string
	RaceClasses  []string
	CourseType   string
	MinDistance  int
	MaxDistance  int
	MinFieldSize int
	MaxFieldSize int
}

// FilterRaces keeps only the races matching every set criterion.
func (s *Selector) FilterRaces(races []*models.RaceSnapshot, filter Filter) []*models.RaceSnapshot {
	var matched []*models.RaceSnapshot
	for _, race := range races {
		if filter.Matches(race) {
			matched = append(matched, race)
		}
	}
	s.logger.WithFields(logrus.Fields{
		"input":   len(races),
		"matched": len(matched),
	}).Info("Filtered races")
	return matched
}

// Matches reports whether the race satisfies every set criterion.
func (f Filter) Matches(race *models.RaceSnapshot) bool {
	if f.Venue != "" && race.VenueName != f.Venue {
		return false
	}
	if len(f.RaceClasses) > 0 {
		found := false
		for _, cls := range f.RaceClasses {
			if strings.Contains(race.RaceClass, cls) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.CourseType != "" && race.CourseType != f.CourseType {
		return false
	}
	if f.MinDistance > 0 && race.DistanceMeters < f.MinDistance {
		return false
	}
	if f.MaxDistance > 0 && race.DistanceMeters > f.MaxDistance {
		return false
	}
	if f.MinFieldSize > 0 && race.FieldSize() < f.MinFieldSize {
		return false
	}
	if f.MaxFieldSize > 0 && race.FieldSize() > f.MaxFieldSize {
		return false
	}
	return true
}
