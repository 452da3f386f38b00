package scoring

import "math"

const maxCommunityWeight = 0.5

// Overall blends technical and community scores. Community influence grows
// with review count and is capped at 50%.
func Overall(technical int, community *float64, reviewCount int) int {
	if community == nil || reviewCount == 0 {
		return technical
	}
	w := math.Min(maxCommunityWeight, float64(reviewCount)/100)
	return int(math.Round(float64(technical)*(1-w) + *community*w))
}
