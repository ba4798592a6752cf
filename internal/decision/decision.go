// Package decision combines per-module scores into one trading action. Decide
// is pure and stateless so both the backtest engine and the live session call
// it directly.
package decision

import "github.com/Wame555/hesoyam/internal/module"

// Weights maps module id to its unitless weight. Weights need not sum to 1.
type Weights map[string]float64

// Scores maps module id to its latest 0..100 score.
type Scores map[string]float64

// Decision is the weighted aggregate of the latest module scores.
type Decision struct {
	CombinedScore float64
	Action        module.Signal
}

// Default thresholds for the long/short decision bands.
const (
	DefaultThresholdUp   = 70.0
	DefaultThresholdDown = 30.0
)

// Decide accumulates weight·(score/100) for every scored module that has a
// weight entry; scored modules without a weight contribute nothing. With no
// weighted modules the combined score is 50 and the action Neutral.
func Decide(scores Scores, weights Weights, thrUp, thrDown float64) Decision {
	var acc, sumWeights float64
	for id, score := range scores {
		w, ok := weights[id]
		if !ok {
			continue
		}
		acc += w * (score / 100.0)
		sumWeights += w
	}
	combined := 50.0
	if sumWeights > 0 {
		combined = (acc / sumWeights) * 100.0
	}
	action := module.Neutral
	switch {
	case combined > thrUp:
		action = module.Long
	case combined < thrDown:
		action = module.Short
	}
	return Decision{CombinedScore: combined, Action: action}
}
