package scoring

import "math"

// ScoreInput is everything the certainty function looks at: the concept's
// explanation, its adjacency (both directions), and its sources.
type ScoreInput struct {
	ExplanationChars  int
	RelationshipCount int
	StrengthSum       float64
	SourceQualitySum  float64
}

const (
	explanationWeight  = 40.0
	relationshipWeight = 40.0
	sourceWeight       = 20.0

	// Explanation length at which the explanation component saturates.
	explanationSaturation = 1500.0
)

// Score maps a concept's connectivity and sourcing onto [0, 100]. It is
// deterministic and monotonic: more or stronger relationships, a longer
// explanation, or better sources never lower the result. Callers never set
// certainty directly; this function is the only producer.
func Score(in ScoreInput) float64 {
	if in.ExplanationChars < 0 {
		in.ExplanationChars = 0
	}
	if in.RelationshipCount < 0 {
		in.RelationshipCount = 0
	}
	if in.StrengthSum < 0 {
		in.StrengthSum = 0
	}
	if in.SourceQualitySum < 0 {
		in.SourceQualitySum = 0
	}

	explanation := explanationWeight * math.Min(1, float64(in.ExplanationChars)/explanationSaturation)

	// Asymptotic so each additional edge helps but never saturates exactly,
	// keeping the function strictly monotonic in adjacency.
	relMass := in.StrengthSum + float64(in.RelationshipCount)
	relationships := relationshipWeight * (1 - 1/(1+relMass/4))

	sources := sourceWeight * (1 - 1/(1+in.SourceQualitySum))

	score := explanation + relationships + sources
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
