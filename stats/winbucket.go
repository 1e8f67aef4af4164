package stats

import "sort"

// TimeBuckets 完成秒數的分桶
//
// 區間: [0,10), [10,30), [30,60), [60,120), [120,300), [300,600), [600,+inf)
type TimeBuckets struct {
	bounds []int
	labels []string
}

var Buckets = &TimeBuckets{
	bounds: []int{10, 30, 60, 120, 300, 600},
	labels: []string{"[0,10)", "[10,30)", "[30,60)", "[60,120)", "[120,300)", "[300,600)", "[600,+inf)"},
}

func (b *TimeBuckets) Labels() []string {
	return append([]string(nil), b.labels...)
}

// Index 回傳秒數所在的分桶；負值歸入第一桶。
func (b *TimeBuckets) Index(sec int) int {
	return sort.SearchInts(b.bounds, sec+1)
}
