// Package algorithm 提供了历史最值线段树（Segment Tree Beats）及其聚合结构。
package algorithm

import (
	"math"
	"math/bits"

	"github.com/wyfcoding/beats/xerrors"
)

// MaxLength 单棵树允许的最大序列长度。
const MaxLength = math.MaxInt32 / 4

// histNode 是隐式完全二叉树中的一个节点，父子关系完全由下标推导：
// 根为 1，节点 k 的左右孩子为 2k 与 2k+1。
type histNode struct {
	length int64   // 区间内真实元素个数，构建后不再变化。填充位置计 0。
	sum    int64   // a_i 的区间和。
	max    int64   // a_i 的区间最大值。
	lazy   int64   // 尚未下推给孩子的加法标记。
	diff   diffAgg // d_i = b_i - a_i 的分布。
}

// TreeStats 描述树的规模与累计工作量。
type TreeStats struct {
	Size         int   `json:"size"`          // 逻辑长度 n。
	PaddedSize   int   `json:"padded_size"`   // 补齐到 2 的幂之后的叶子数。
	Adds         int64 `json:"adds"`          // 生效的区间加次数（空区间与 0 增量不计）。
	Queries      int64 `json:"queries"`       // 查询次数。
	ClampVisits  int64 `json:"clamp_visits"`  // 修复 d_i >= 0 时向下递归的节点数。
	ClampRaises  int64 `json:"clamp_raises"`  // 修复时仅抬升最小值桶即结束的节点数。
	Envelope     int64 `json:"envelope"`      // 历史上 |a_i|、|b_i| 的上界。
	MaxMagnitude int64 `json:"max_magnitude"` // Envelope 允许的最大值。
}

// HistoricSegmentTree (历史最值线段树) 在定长序列 a[0..n) 上支持：
//   - 区间加；
//   - 区间 a_i 最大值；
//   - 区间历史最大值 b_i 的和与最大值，b_i 是 a_i 自构建以来取到过的最大值。
//
// b 不被显式存储，而是通过 d_i = b_i - a_i 的 "最小值/次小值" 聚合间接维护，
// 每次区间加之后用 Segment Tree Beats 的方式把变为负数的 d_i 修复回 0。
// m 次区间加的总代价为均摊 O((n + m) log² n)。
//
// 所有区间均为左闭右开 [l, r)，要求 0 <= l <= r <= n；越界属于调用方编程错误，会直接 panic。
// 需要校验外部输入时先调用 CheckRange。
//
// HistoricSegmentTree 不是并发安全的：查询也会下推懒标记，任何调用都需要独占访问。
type HistoricSegmentTree struct {
	nodes        []histNode
	n            int
	size         int
	maxMagnitude int64
	envelope     int64
	stats        TreeStats
}

type treeOptions struct {
	maxMagnitude int64
}

// Option 定义构建选项。
type Option func(*treeOptions)

// WithMaxMagnitude 限定整个生命周期内 |a_i| 与 |b_i| 的上界。
// 不设置时取当前规模下不会溢出的最大值。
func WithMaxMagnitude(m int64) Option {
	return func(o *treeOptions) {
		o.maxMagnitude = m
	}
}

// MagnitudeLimit 返回长度为 n 的树可接受的最大绝对值上限。
// 保证 sum、sumD (<= 2·上限·长度) 以及 x·length 都落在 int64 内。
func MagnitudeLimit(n int) int64 {
	return math.MaxInt64 / (4 * int64(nextPowerOf2(n)))
}

// NewHistoricSegmentTree 以 values 为初始序列构建树，b_i 初始等于 a_i。
func NewHistoricSegmentTree(values []int64, opts ...Option) (*HistoricSegmentTree, error) {
	var o treeOptions
	for _, opt := range opts {
		opt(&o)
	}

	n := len(values)
	if n > MaxLength {
		return nil, xerrors.ErrTreeTooLarge.Derive().WithContext("length", n)
	}

	limit := MagnitudeLimit(n)
	maxMag := o.maxMagnitude
	if maxMag == 0 {
		maxMag = limit
	}
	if maxMag < 0 || maxMag > limit {
		return nil, xerrors.ErrMagnitudeLimit.Derive().
			WithContext("max_magnitude", maxMag).
			WithContext("limit", limit)
	}

	var envelope int64
	for i, v := range values {
		if v < -maxMag || v > maxMag {
			return nil, xerrors.ErrMagnitudeExceeded.Derive().
				WithContext("index", i).
				WithContext("value", v)
		}
		envelope = max(envelope, abs64(v))
	}

	size := nextPowerOf2(n)
	t := &HistoricSegmentTree{
		nodes:        make([]histNode, 2*size),
		n:            n,
		size:         size,
		maxMagnitude: maxMag,
		envelope:     envelope,
	}
	t.build(values)
	return t, nil
}

// build 自底向上构建：先填叶子，再由孩子合并出内部节点。
func (t *HistoricSegmentTree) build(values []int64) {
	for i := 0; i < t.size; i++ {
		nd := &t.nodes[t.size+i]
		if i < t.n {
			nd.length = 1
			nd.sum = values[i]
			nd.max = values[i]
			nd.diff = leafAgg(values[i])
			continue
		}
		nd.max = negInf
		nd.diff = emptyAgg()
	}
	for k := t.size - 1; k >= 1; k-- {
		t.nodes[k].length = t.nodes[2*k].length + t.nodes[2*k+1].length
		t.pull(k)
	}
}

// nextPowerOf2 返回 >= n 的最小 2 的幂，n <= 1 时为 1。
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Len 返回序列长度 n。
func (t *HistoricSegmentTree) Len() int {
	return t.n
}

// CheckRange 校验 [l, r) 是否合法。
func (t *HistoricSegmentTree) CheckRange(l, r int) error {
	if l < 0 || r > t.n || l > r {
		return xerrors.ErrInvalidRange.Derive().
			WithContext("l", l).
			WithContext("r", r).
			WithContext("n", t.n)
	}
	return nil
}

func (t *HistoricSegmentTree) mustRange(l, r int) {
	if err := t.CheckRange(l, r); err != nil {
		panic(err)
	}
}

// apply 对节点 k 覆盖的整个区间加 x。
// a_i 增加 x 而 b_i 暂时不变，所以 d_i 减少 x。
func (t *HistoricSegmentTree) apply(k int, x int64) {
	nd := &t.nodes[k]
	nd.sum += x * nd.length
	nd.max += x
	if k < t.size {
		nd.lazy += x
	}
	nd.diff.shift(-x, nd.length)
}

// push 下推两类标记，二者必须在同一步完成：
// 先下推加法标记，再把本节点的 minD 作为 "抬升到至少" 标记交给孩子。
// 后者每次都要执行，因为修复过程会在不触碰 lazy 的情况下改变 minD。
func (t *HistoricSegmentTree) push(k int) {
	if k >= t.size {
		return
	}
	nd := &t.nodes[k]
	if nd.lazy != 0 {
		t.apply(2*k, nd.lazy)
		t.apply(2*k+1, nd.lazy)
		nd.lazy = 0
	}
	t.nodes[2*k].diff.raiseMin(nd.diff.minD)
	t.nodes[2*k+1].diff.raiseMin(nd.diff.minD)
}

// pull 由孩子重新计算节点 k。
func (t *HistoricSegmentTree) pull(k int) {
	nd, l, r := &t.nodes[k], &t.nodes[2*k], &t.nodes[2*k+1]
	nd.sum = l.sum + r.sum
	nd.max = max(l.max, r.max)
	nd.diff.merge(&l.diff, &r.diff)
}

// clampToZero 执行 d_i = max(d_i, 0)。
// 三路分支决定了均摊复杂度：已满足时直接返回；只有最小值桶为负时一次 raiseMin 结束；
// 否则才向下递归。每次递归都会让区间内不同 d 值的个数减少。
// 叶子的 secondMinD 恒为 posInf，因此递归不会越过叶子。
func (t *HistoricSegmentTree) clampToZero(k int) {
	g := &t.nodes[k].diff
	if g.minD >= 0 {
		return
	}
	if g.secondMinD > 0 {
		g.raiseMin(0)
		t.stats.ClampRaises++
		return
	}
	t.stats.ClampVisits++
	t.push(k)
	t.clampToZero(2 * k)
	t.clampToZero(2*k + 1)
	t.pull(k)
}

// Add 对 [l, r) 中的每个 a_i 加 delta，并隐式更新 b_i = max(b_i, a_i)。
// 若该操作可能使 |a_i| 或 |b_i| 超出上限，返回 ErrMagnitudeExceeded 且不做任何修改。
func (t *HistoricSegmentTree) Add(l, r int, delta int64) error {
	t.mustRange(l, r)
	if l == r || delta == 0 {
		return nil
	}
	if err := t.reserve(delta); err != nil {
		return err
	}
	t.stats.Adds++
	t.add(1, 0, t.size, l, r, delta)
	return nil
}

// reserve 按 |delta| 扩大绝对值包络，超限时拒绝。
func (t *HistoricSegmentTree) reserve(delta int64) error {
	if delta < -t.maxMagnitude || delta > t.maxMagnitude || t.envelope > t.maxMagnitude-abs64(delta) {
		return xerrors.ErrMagnitudeExceeded.Derive().
			WithContext("delta", delta).
			WithContext("envelope", t.envelope).
			WithContext("max_magnitude", t.maxMagnitude)
	}
	t.envelope += abs64(delta)
	return nil
}

func (t *HistoricSegmentTree) add(k, lo, hi, ql, qr int, x int64) {
	if qr <= lo || hi <= ql {
		return
	}
	if ql <= lo && hi <= qr {
		t.apply(k, x)
		t.clampToZero(k)
		return
	}
	t.push(k)
	mid := (lo + hi) / 2
	t.add(2*k, lo, mid, ql, qr, x)
	t.add(2*k+1, mid, hi, ql, qr, x)
	t.pull(k)
}

// Max 返回 [l, r) 中 a_i 的最大值。空区间返回 (math.MinInt64, false)。
func (t *HistoricSegmentTree) Max(l, r int) (int64, bool) {
	t.mustRange(l, r)
	t.stats.Queries++
	if l == r {
		return negInf, false
	}
	return t.queryMax(1, 0, t.size, l, r), true
}

func (t *HistoricSegmentTree) queryMax(k, lo, hi, ql, qr int) int64 {
	if qr <= lo || hi <= ql {
		return negInf
	}
	if ql <= lo && hi <= qr {
		return t.nodes[k].max
	}
	t.push(k)
	mid := (lo + hi) / 2
	return max(t.queryMax(2*k, lo, mid, ql, qr), t.queryMax(2*k+1, mid, hi, ql, qr))
}

// HistoricSum 返回 [l, r) 中 b_i 之和，空区间为 0。
func (t *HistoricSegmentTree) HistoricSum(l, r int) int64 {
	t.mustRange(l, r)
	t.stats.Queries++
	return t.queryHistoricSum(1, 0, t.size, l, r)
}

func (t *HistoricSegmentTree) queryHistoricSum(k, lo, hi, ql, qr int) int64 {
	if qr <= lo || hi <= ql {
		return 0
	}
	if ql <= lo && hi <= qr {
		return t.nodes[k].sum + t.nodes[k].diff.sumD
	}
	t.push(k)
	mid := (lo + hi) / 2
	return t.queryHistoricSum(2*k, lo, mid, ql, qr) + t.queryHistoricSum(2*k+1, mid, hi, ql, qr)
}

// HistoricMax 返回 [l, r) 中 b_i 的最大值。空区间返回 (math.MinInt64, false)。
func (t *HistoricSegmentTree) HistoricMax(l, r int) (int64, bool) {
	t.mustRange(l, r)
	t.stats.Queries++
	if l == r {
		return negInf, false
	}
	return t.queryHistoricMax(1, 0, t.size, l, r), true
}

func (t *HistoricSegmentTree) queryHistoricMax(k, lo, hi, ql, qr int) int64 {
	if qr <= lo || hi <= ql {
		return negInf
	}
	if ql <= lo && hi <= qr {
		return t.nodes[k].diff.historicMax()
	}
	t.push(k)
	mid := (lo + hi) / 2
	return max(t.queryHistoricMax(2*k, lo, mid, ql, qr), t.queryHistoricMax(2*k+1, mid, hi, ql, qr))
}

// Snapshot 下推全部标记并返回当前值 a 与历史最大值 b 的副本。
func (t *HistoricSegmentTree) Snapshot() (current, historic []int64) {
	current = make([]int64, t.n)
	historic = make([]int64, t.n)
	t.collect(1, 0, t.size, current, historic)
	return current, historic
}

func (t *HistoricSegmentTree) collect(k, lo, hi int, current, historic []int64) {
	if lo >= t.n {
		return
	}
	if k >= t.size {
		current[lo] = t.nodes[k].max
		historic[lo] = t.nodes[k].diff.historicMax()
		return
	}
	t.push(k)
	mid := (lo + hi) / 2
	t.collect(2*k, lo, mid, current, historic)
	t.collect(2*k+1, mid, hi, current, historic)
}

// Headroom 返回在不触发 ErrMagnitudeExceeded 的前提下还可累计的 |delta| 总量。
func (t *HistoricSegmentTree) Headroom() int64 {
	return t.maxMagnitude - t.envelope
}

// Stats 返回统计信息的副本。
func (t *HistoricSegmentTree) Stats() TreeStats {
	s := t.stats
	s.Size = t.n
	s.PaddedSize = t.size
	s.Envelope = t.envelope
	s.MaxMagnitude = t.maxMagnitude
	return s
}
