package retrieval

import "math"

// confidenceScale maps retrieval-similarity scores in the expected [0, 0.5]
// range onto [0, 1]. Consumers threshold on confidence, so this constant is
// part of the output contract and must not change.
const confidenceScale = 2.0

// Confidence derives a confidence value in [0, 1] from ranked hits: the mean
// score of the top three hits (or fewer), scaled, clamped, and rounded to
// two decimal places. Empty input yields 0.
func Confidence(hits []Hit) float64 {
	if len(hits) == 0 {
		return 0.0
	}

	n := min(len(hits), 3)
	var sum float64
	for _, hit := range hits[:n] {
		sum += hit.Score
	}

	c := math.Min(sum/float64(n)*confidenceScale, 1.0)
	c = math.Max(c, 0.0)
	return math.Round(c*100) / 100
}
