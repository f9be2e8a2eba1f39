package algorithm

import "math"

const (
	posInf = math.MaxInt64 // d_i 的 "+∞" 哨兵，仅出现在空区间或不存在次小值时。
	negInf = math.MinInt64 // 最大值聚合的单位元。
)

// diffAgg 维护区间内 d_i = b_i - a_i 的分布信息。
// b_i 为历史最大值，a_i 为当前值，因此 d_i 恒 >= 0。
type diffAgg struct {
	minD        int64 // d_i 的最小值。
	secondMinD  int64 // 严格次小值，不存在时为 posInf。
	minCount    int64 // 取到 minD 的元素个数。
	sumD        int64 // d_i 之和。
	maxAtMin    int64 // d_i == minD 的元素中 a_i + d_i 的最大值。
	maxNotAtMin int64 // d_i != minD 的元素中 a_i + d_i 的最大值。
}

// leafAgg 初始值为 v 的叶子：历史最大值与当前值相等，d = 0。
func leafAgg(v int64) diffAgg {
	return diffAgg{
		minD:        0,
		secondMinD:  posInf,
		minCount:    1,
		maxAtMin:    v,
		maxNotAtMin: negInf,
	}
}

// emptyAgg 填充位置（下标 >= n）使用的空聚合。
func emptyAgg() diffAgg {
	return diffAgg{
		minD:        posInf,
		secondMinD:  posInf,
		maxAtMin:    negInf,
		maxNotAtMin: negInf,
	}
}

// raiseMin 把所有等于 minD 的 d_i 抬升到 x。
// 调用方保证 x <= secondMinD，因此只有最小值桶受影响。
func (g *diffAgg) raiseMin(x int64) {
	if g.minD >= x {
		return
	}
	delta := x - g.minD
	g.sumD += delta * g.minCount
	g.maxAtMin += delta
	g.minD = x
}

// shift 区间内每个 d_i 加上 x，length 为区间长度。
// a_i 与 d_i 反向移动，b_i 不变，所以两个最大值字段保持原样。
func (g *diffAgg) shift(x, length int64) {
	if g.minD != posInf {
		g.minD += x
	}
	if g.secondMinD != posInf {
		g.secondMinD += x
	}
	g.sumD += x * length
}

// historicMax 区间内 b_i 的最大值。
func (g *diffAgg) historicMax() int64 {
	return max(g.maxAtMin, g.maxNotAtMin)
}

// merge 由左右子节点聚合出父节点。
func (g *diffAgg) merge(l, r *diffAgg) {
	g.sumD = l.sumD + r.sumD
	switch {
	case l.minD < r.minD:
		g.minD = l.minD
		g.minCount = l.minCount
		g.secondMinD = min(l.secondMinD, r.minD)
		g.maxAtMin = l.maxAtMin
		g.maxNotAtMin = max(l.maxNotAtMin, r.maxAtMin, r.maxNotAtMin)
	case l.minD > r.minD:
		g.minD = r.minD
		g.minCount = r.minCount
		g.secondMinD = min(r.secondMinD, l.minD)
		g.maxAtMin = r.maxAtMin
		g.maxNotAtMin = max(r.maxNotAtMin, l.maxAtMin, l.maxNotAtMin)
	default:
		g.minD = l.minD
		g.minCount = l.minCount + r.minCount
		g.secondMinD = min(l.secondMinD, r.secondMinD)
		g.maxAtMin = max(l.maxAtMin, r.maxAtMin)
		g.maxNotAtMin = max(l.maxNotAtMin, r.maxNotAtMin)
	}
}
