package services

import (
	"math"
	"sort"

	"explaincli/internal/explain"
)

// rankByMagnitude orders features by |value| descending; ties keep column order
func rankByMagnitude(values explain.Vector, names explain.FeatureNames) []explain.FeatureScore {
	scores := make([]explain.FeatureScore, len(values))
	for i, v := range values {
		scores[i] = explain.FeatureScore{Feature: names[i], Index: i, Score: math.Abs(v)}
	}
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].Score > scores[b].Score
	})
	return scores
}
