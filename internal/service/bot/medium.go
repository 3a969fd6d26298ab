package bot

const mediumBestMoveChance = 0.7

// selectMedium plays the best move most of the time and the runner-up otherwise
func selectMedium(evals []Evaluation, rnd Random) Evaluation {
	if rnd.Float64() < mediumBestMoveChance || len(evals) == 1 {
		return evals[0]
	}
	return evals[1]
}
