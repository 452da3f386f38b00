package scoring

import (
	"math"

	"trustlens/internal/domain"
)

const dangerWeight = 1.5

// Classification of a single 1..5 rating.
const (
	Safe       = "safe"
	Suspicious = "suspicious"
	Dangerous  = "dangerous"
)

func Classify(rating int) string {
	switch {
	case rating >= 4:
		return Safe
	case rating == 3:
		return Suspicious
	default:
		return Dangerous
	}
}

// Aggregate partitions ratings into rounded percentages.
func Aggregate(ratings []int) domain.ReviewStats {
	stats := domain.ReviewStats{Total: len(ratings)}
	if stats.Total == 0 {
		return stats
	}
	var safe, suspicious, dangerous int
	for _, r := range ratings {
		switch Classify(r) {
		case Safe:
			safe++
		case Suspicious:
			suspicious++
		default:
			dangerous++
		}
	}
	total := float64(stats.Total)
	stats.SafePercentage = int(math.Round(float64(safe) / total * 100))
	stats.SuspiciousPercentage = int(math.Round(float64(suspicious) / total * 100))
	stats.DangerousPercentage = int(math.Round(float64(dangerous) / total * 100))
	return stats
}

// CommunityTrustScore is safe% - 1.5*dangerous%, clamped to [0,100].
// Suspicious ratings carry no weight.
func CommunityTrustScore(safePct, suspiciousPct, dangerousPct int) float64 {
	score := float64(safePct) - dangerWeight*float64(dangerousPct)
	return math.Min(MaxScore, math.Max(MinScore, score))
}

// Community returns nil when there are no reviews.
func Community(stats domain.ReviewStats) *float64 {
	if stats.Total == 0 {
		return nil
	}
	v := CommunityTrustScore(stats.SafePercentage, stats.SuspiciousPercentage, stats.DangerousPercentage)
	return &v
}
