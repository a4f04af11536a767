package criteria

import (
	"math"
	"strings"
)

// Effort classifies how far a learner is from unlocking an achievement.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// Estimate is a recommendation-only view of progress toward a criterion.
// It never gates an award.
type Estimate struct {
	Kind        Kind    `json:"kind"`
	Percentage  float64 `json:"percentage"`
	Current     float64 `json:"current"`
	Required    float64 `json:"required"`
	Description string  `json:"description"`
	Effort      Effort  `json:"estimated_effort"`
}

// ClassifyEffort maps a completion percentage to an effort bucket.
func ClassifyEffort(percentage float64) Effort {
	switch {
	case percentage > 80:
		return EffortLow
	case percentage > 50:
		return EffortMedium
	default:
		return EffortHigh
	}
}

// EstimateProgress measures c against s. Criteria that cannot be measured from s
// report zero progress with medium effort.
func EstimateProgress(c Criteria, s State) Estimate {
	if c == nil {
		return Estimate{Effort: EffortMedium}
	}
	est := Estimate{Kind: c.Kind(), Description: c.Describe()}

	current, required, ok := c.measure(s)
	if !ok {
		est.Effort = EffortMedium
		return est
	}
	est.Current, est.Required = current, required

	switch {
	case required <= 0:
		est.Percentage = 100
	default:
		est.Percentage = math.Min(100, current/required*100)
	}
	est.Effort = ClassifyEffort(est.Percentage)
	return est
}

var categoryWeights = map[string]float64{
	"learning": 1.0,
	"progress": 0.9,
	"mastery":  0.8,
	"social":   0.7,
	"streak":   0.6,
}

var effortWeights = map[Effort]float64{
	EffortLow:    1.2,
	EffortMedium: 1.0,
	EffortHigh:   0.8,
}

// Priority ranks an un-earned achievement for recommendation.
func Priority(points int, category string, est Estimate) float64 {
	priority := float64(points) * 0.1
	if est.Percentage > 50 {
		priority += (est.Percentage - 50) * 0.02
	}

	cw, ok := categoryWeights[strings.ToLower(category)]
	if !ok {
		cw = 0.5
	}
	ew, ok := effortWeights[est.Effort]
	if !ok {
		ew = 1.0
	}
	return priority * cw * ew
}
