package client

import "sort"

// removeOutlierRTTs removes outler RTTs from the recent RTTs.
// An outlier RTT is defined as an RTT that is greater than 2 times the median RTT
// and is also greater than 20ms.
func removeOutlierRTTs(recentRTTs []int64) []int64 {
	result := make([]int64, 0, len(recentRTTs))
	median := medianRTT(recentRTTs)
	for _, rtt := range recentRTTs {
		if rtt > 2*median && rtt > 20 {
			continue
		}
		result = append(result, rtt)
	}
	return result
}

// medianRTT returns the median RTT from a slice of RTTs.
func medianRTT(recentRTTs []int64) int64 {
	if len(recentRTTs) == 0 {
		return 0
	}
	sorted := make([]int64, len(recentRTTs))
	copy(sorted, recentRTTs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})
	if len(sorted)%2 == 0 {
		return (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}
	return sorted[len(sorted)/2]
}
