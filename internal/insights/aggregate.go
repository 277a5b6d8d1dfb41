package insights

import (
	"slices"
	"sort"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"
)

type bucketKey struct {
	segment   domain.Segment
	churnRisk domain.ChurnRisk
	cltv      domain.CLTVSegment
}

// SegmentBuckets groups customers by (segment, churn risk, CLTV segment) and
// reports each bucket's totals and share of the whole dataset. Buckets are
// ordered by segment, churn risk and CLTV segment in display order, with
// values outside the known domains last.
func SegmentBuckets(customers []domain.Customer) []domain.AggregationBucket {
	var totalRevenue, totalCLTV float64
	index := make(map[bucketKey]int)
	buckets := make([]domain.AggregationBucket, 0)

	for i := range customers {
		c := &customers[i]
		totalRevenue += c.OverallRevenue
		totalCLTV += c.CLTV

		key := bucketKey{c.Segment, c.ChurnRisk, c.CLTVSegment}
		pos, ok := index[key]
		if !ok {
			pos = len(buckets)
			index[key] = pos
			buckets = append(buckets, domain.AggregationBucket{
				Segment:     c.Segment,
				ChurnRisk:   c.ChurnRisk,
				CLTVSegment: c.CLTVSegment,
			})
		}
		b := &buckets[pos]
		b.Count++
		b.TotalRevenue += c.OverallRevenue
		b.TotalCLTV += c.CLTV
	}

	for i := range buckets {
		b := &buckets[i]
		b.AvgRevenue = mean(b.TotalRevenue, b.Count)
		b.AvgCLTV = mean(b.TotalCLTV, b.Count)
		b.CustomerPercentage = Percentage(float64(b.Count), float64(len(customers)))
		b.RevenuePercentage = Percentage(b.TotalRevenue, totalRevenue)
		b.CLTVPercentage = Percentage(b.TotalCLTV, totalCLTV)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		a, b := buckets[i], buckets[j]
		if c := compareOrdered(domain.Segments, a.Segment, b.Segment); c != 0 {
			return c < 0
		}
		if c := compareOrdered(domain.ChurnRisks, a.ChurnRisk, b.ChurnRisk); c != 0 {
			return c < 0
		}
		return compareOrdered(domain.CLTVSegments, a.CLTVSegment, b.CLTVSegment) < 0
	})
	return buckets
}

// ChurnRiskBreakdown reports count and averages per churn-risk level present
// in the dataset. Probabilities are percentages; figures are rounded to two
// decimals.
func ChurnRiskBreakdown(customers []domain.Customer) []domain.ChurnRiskStats {
	type acc struct {
		count               int
		prob, cltv, revenue float64
	}
	levels := make(map[domain.ChurnRisk]*acc)
	for i := range customers {
		c := &customers[i]
		a, ok := levels[c.ChurnRisk]
		if !ok {
			a = &acc{}
			levels[c.ChurnRisk] = a
		}
		a.count++
		a.prob += c.ChurnProbability
		a.cltv += c.CLTV
		a.revenue += c.OverallRevenue
	}

	risks := make([]domain.ChurnRisk, 0, len(levels))
	for r := range levels {
		risks = append(risks, r)
	}
	slices.SortFunc(risks, func(a, b domain.ChurnRisk) int {
		return compareOrdered(domain.ChurnRisks, a, b)
	})

	stats := make([]domain.ChurnRiskStats, 0, len(risks))
	for _, r := range risks {
		a := levels[r]
		stats = append(stats, domain.ChurnRiskStats{
			RiskLevel:      r,
			CustomerCount:  a.count,
			AvgProbability: round(mean(a.prob, a.count)*100, 2),
			AvgCLTV:        round(mean(a.cltv, a.count), 2),
			AvgRevenue:     round(mean(a.revenue, a.count), 2),
		})
	}
	return stats
}

// SegmentStats reports count, total revenue and averages per segment present
// in the dataset, ordered by segment name. Figures are rounded to two
// decimals.
func SegmentStats(customers []domain.Customer) []domain.SegmentStats {
	type acc struct {
		count                       int
		revenue, visits, prob, cltv float64
	}
	bySegment := make(map[domain.Segment]*acc)
	for i := range customers {
		c := &customers[i]
		a, ok := bySegment[c.Segment]
		if !ok {
			a = &acc{}
			bySegment[c.Segment] = a
		}
		a.count++
		a.revenue += c.OverallRevenue
		a.visits += c.OverallVisits
		a.prob += c.ChurnProbability
		a.cltv += c.CLTV
	}

	segments := make([]domain.Segment, 0, len(bySegment))
	for s := range bySegment {
		segments = append(segments, s)
	}
	slices.Sort(segments)

	stats := make([]domain.SegmentStats, 0, len(segments))
	for _, s := range segments {
		a := bySegment[s]
		stats = append(stats, domain.SegmentStats{
			Segment:             s,
			Count:               a.count,
			TotalRevenue:        round(a.revenue, 2),
			AvgVisits:           round(mean(a.visits, a.count), 2),
			AvgChurnProbability: round(mean(a.prob, a.count)*100, 2),
			AvgCLTV:             round(mean(a.cltv, a.count), 2),
		})
	}
	return stats
}

// compareOrdered orders a and b by their position in order; values missing
// from order sort after every known value and among themselves by text.
func compareOrdered[T ~string](order []T, a, b T) int {
	ia, ib := slices.Index(order, a), slices.Index(order, b)
	switch {
	case ia >= 0 && ib >= 0:
		return ia - ib
	case ia >= 0:
		return -1
	case ib >= 0:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
