package bot

// weights for the top three ranks; a rank past the table gets easyFallbackWeight
var easyWeights = []float64{0.4, 0.35, 0.25}

const easyFallbackWeight = 0.1

// selectEasy draws one of the three best moves, so weaker moves are played
// more often than on the other levels.
func selectEasy(evals []Evaluation, rnd Random) Evaluation {
	top := evals[:min(3, len(evals))]

	value := rnd.Float64()
	cumulative := 0.0
	for i, eval := range top {
		weight := easyFallbackWeight
		if i < len(easyWeights) {
			weight = easyWeights[i]
		}
		cumulative += weight
		if value <= cumulative {
			return eval
		}
	}

	return top[0]
}
