// Package verify 用暴力数组对 algorithm.HistoricSegmentTree 做随机差分校验。
package verify

import "math"

// Reference 是逐元素维护的朴素实现，每个操作 O(n)。
// 区间约定与 HistoricSegmentTree 相同，均为 [l, r)。
type Reference struct {
	current  []int64
	historic []int64
}

// NewReference 以 values 为初始序列构建，初始历史最大值等于初值。
func NewReference(values []int64) *Reference {
	return &Reference{
		current:  append([]int64(nil), values...),
		historic: append([]int64(nil), values...),
	}
}

// Add 对 [l, r) 中每个元素加 delta 并刷新历史最大值。
func (r *Reference) Add(l, rr int, delta int64) {
	for i := l; i < rr; i++ {
		r.current[i] += delta
		r.historic[i] = max(r.historic[i], r.current[i])
	}
}

// Max 返回 [l, r) 内当前值的最大值，区间为空时返回 (math.MinInt64, false)。
func (r *Reference) Max(l, rr int) (int64, bool) {
	return maxOf(r.current[l:rr])
}

// HistoricSum 返回 [l, r) 内历史最大值之和。
func (r *Reference) HistoricSum(l, rr int) int64 {
	var s int64
	for _, v := range r.historic[l:rr] {
		s += v
	}
	return s
}

// HistoricMax 返回 [l, r) 内历史最大值的最大值。
func (r *Reference) HistoricMax(l, rr int) (int64, bool) {
	return maxOf(r.historic[l:rr])
}

func maxOf(vs []int64) (int64, bool) {
	if len(vs) == 0 {
		return math.MinInt64, false
	}
	m := vs[0]
	for _, v := range vs[1:] {
		m = max(m, v)
	}
	return m, true
}
