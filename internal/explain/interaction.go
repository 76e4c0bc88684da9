package explain

import (
	"math"
	"sort"
)

// Interactions ranks unordered feature pairs among the first
// min(cols, maxInteractions) columns by
//
//	strength = |corr(column_i, column_j) * var(predictions)|
//
// and keeps the strongest maxInteractions. Equal strengths keep enumeration
// order (i ascending, then j ascending).
func Interactions(x *FeatureMatrix, predictions Vector, names FeatureNames, maxInteractions int) (*InteractionRanking, error) {
	if err := checkAligned("predictions", x, predictions); err != nil {
		return nil, err
	}
	if err := names.Validate(x.Cols()); err != nil {
		return nil, err
	}
	if maxInteractions <= 0 {
		return nil, invalidArgument("max_interactions", "interaction budget must be positive", maxInteractions)
	}

	n := min(x.Cols(), maxInteractions)
	predVar := variance(predictions)

	columns := make([]Vector, n)
	for i := range columns {
		columns[i] = x.Column(i)
	}

	pairs := make([]Interaction, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, Interaction{
				Pair: FeaturePair{
					A:      names[i],
					B:      names[j],
					IndexA: i,
					IndexB: j,
				},
				Strength: math.Abs(correlation(columns[i], columns[j]) * predVar),
			})
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].Strength > pairs[b].Strength
	})
	if len(pairs) > maxInteractions {
		pairs = pairs[:maxInteractions]
	}

	return &InteractionRanking{Interactions: pairs}, nil
}
