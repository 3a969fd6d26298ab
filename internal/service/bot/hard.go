package bot

// selectHard always plays the top ranked move
func selectHard(evals []Evaluation) Evaluation {
	return evals[0]
}
