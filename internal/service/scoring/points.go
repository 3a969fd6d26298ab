package scoring

import (
	"fmt"
	"math"

	"github.com/nyambogahezron/connectThree/internal/domain"
)

// BasePoints is what a match is worth before any multiplier
func BasePoints(matchSize int, isKing bool) int {
	var points int
	switch matchSize {
	case 3:
		points = 100
	case 4:
		points = 200
	case 5:
		points = 300
	default:
		points = max(300, matchSize*60)
	}

	// King matches are worth more
	if isKing {
		points *= 2
	}
	return points
}

func CascadeMultiplier(depth int) float64 {
	switch depth {
	case 0:
		return 1
	case 1:
		return 1.5
	case 2:
		return 2
	default:
		return 3
	}
}

func SimultaneousBonus(matches int) float64 {
	if matches <= 1 {
		return 1
	}
	return 1 + float64(matches-1)*0.5
}

// MatchPoints returns the points awarded for one match event along with the
// base points and the combined multiplier that produced them.
func MatchPoints(event domain.MatchEvent) (total, base int, multiplier float64) {
	base = BasePoints(event.Size(), event.IsKing)
	multiplier = CascadeMultiplier(event.CascadeDepth) * SimultaneousBonus(event.Simultaneous)
	total = int(math.Round(float64(base) * multiplier))
	return total, base, multiplier
}

func describeMatch(event domain.MatchEvent) string {
	kind := "Match"
	if event.IsKing {
		kind = "King Match"
	}
	if event.CascadeDepth > 0 {
		return fmt.Sprintf("%d %s (Cascade x%d)", event.Size(), kind, event.CascadeDepth+1)
	}
	return fmt.Sprintf("%d %s", event.Size(), kind)
}
