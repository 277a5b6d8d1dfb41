package insights

import (
	"math"
	"sort"
)

// rankLimit is how many entries each end of a ranking keeps.
const rankLimit = 2

// Percentage returns part/whole × 100, or 0 when whole is 0.
func Percentage(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// TopBottom sorts items by score descending (stable) and returns the first n
// followed by the last n. With fewer than 2n items the two ends overlap and
// the same item appears in both; callers rely on that layout.
func TopBottom[T any](items []T, n int, score func(T) float64) []T {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return score(sorted[i]) > score(sorted[j])
	})

	top := sorted[:min(n, len(sorted))]
	bottom := sorted[max(0, len(sorted)-n):]

	out := make([]T, 0, len(top)+len(bottom))
	out = append(out, top...)
	return append(out, bottom...)
}

// SplitTopBottom separates a TopBottom result back into its two ends, which
// always have the same length.
func SplitTopBottom[T any](ranked []T) (top, bottom []T) {
	cut := len(ranked) / 2
	top = append([]T{}, ranked[:cut]...)
	bottom = append([]T{}, ranked[cut:]...)
	return top, bottom
}
