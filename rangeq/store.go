// Package rangeq 托管多棵具名的历史最值线段树，并通过 HTTP 对外提供区间操作。
package rangeq

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/wyfcoding/beats/algorithm"
	"github.com/wyfcoding/beats/config"
	"github.com/wyfcoding/beats/logging"
	"github.com/wyfcoding/beats/metrics"
	"github.com/wyfcoding/beats/tracing"
	"github.com/wyfcoding/beats/xerrors"
)

// entry 是一棵树及其独占锁。树的查询也会下推懒标记，因此读写都走同一把互斥锁。
type entry struct {
	mu   sync.Mutex
	tree *algorithm.HistoricSegmentTree
	// clampSeen 记录已上报到指标的 ClampVisits。
	clampSeen int64
}

// Store 按名称管理多棵树。名称表由读写锁保护，单棵树的操作相互串行。
type Store struct {
	mu     sync.RWMutex
	trees  map[string]*entry
	limits config.TreeConfig
	logger *slog.Logger
	m      *metrics.Metrics
}

// Option 定义 Store 的可选参数。
type Option func(*Store)

// WithMetrics 开启 prometheus 指标记录。
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.m = m }
}

// WithLogger 指定日志记录器，默认使用 slog.Default()。
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore 创建一个空的 Store。
func NewStore(limits config.TreeConfig, opts ...Option) *Store {
	s := &Store{
		trees:  make(map[string]*entry),
		limits: limits,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLimits 替换容量限制，只影响之后创建的树。配置热更新时调用。
func (s *Store) SetLimits(limits config.TreeConfig) {
	s.mu.Lock()
	s.limits = limits
	s.mu.Unlock()
}

// observe 为一次操作开启 span 并返回结束回调，回调负责记录耗时、状态与错误。
func (s *Store) observe(ctx context.Context, op, name string) (context.Context, func(error)) {
	ctx, span := tracing.StartTreeSpan(ctx, op, name)
	start := time.Now()
	return ctx, func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
			if xe, ok := xerrors.FromError(err); ok {
				status = xe.Type.String()
			}
			tracing.SetError(ctx, err)
		}
		if s.m != nil {
			s.m.TreeOpsTotal.WithLabelValues(op, status).Inc()
			s.m.TreeOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		}
		span.End()
	}
}

func (s *Store) lookup(name string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.trees[name]
	s.mu.RUnlock()
	if !ok {
		return nil, xerrors.ErrTreeNotFound.Derive().WithContext("tree", name)
	}
	return e, nil
}

// Create 以 values 为初始序列创建名为 name 的树。
func (s *Store) Create(ctx context.Context, name string, values []int64) (err error) {
	ctx, done := s.observe(ctx, "create", name)
	defer func() { done(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trees[name]; ok {
		return xerrors.ErrTreeExists.Derive().WithContext("tree", name)
	}
	if len(s.trees) >= s.limits.MaxTrees {
		return xerrors.ErrTooManyTrees.Derive().WithDetail("limit %d", s.limits.MaxTrees)
	}
	if len(values) > s.limits.MaxLength {
		return xerrors.ErrTreeTooLarge.Derive().WithDetail("length %d exceeds %d", len(values), s.limits.MaxLength)
	}

	var opts []algorithm.Option
	if s.limits.MaxMagnitude > 0 {
		opts = append(opts, algorithm.WithMaxMagnitude(s.limits.MaxMagnitude))
	}
	built := logging.LogDuration(ctx, s.logger, "tree build", "tree", name, "length", len(values))
	tree, err := algorithm.NewHistoricSegmentTree(values, opts...)
	built()
	if err != nil {
		return err
	}
	s.trees[name] = &entry{tree: tree}
	if s.m != nil {
		s.m.TreesActive.Set(float64(len(s.trees)))
	}
	s.logger.InfoContext(ctx, "tree created", "tree", name, "length", len(values))
	return nil
}

// Delete 删除名为 name 的树。
func (s *Store) Delete(ctx context.Context, name string) (err error) {
	ctx, done := s.observe(ctx, "delete", name)
	defer func() { done(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trees[name]; !ok {
		return xerrors.ErrTreeNotFound.Derive().WithContext("tree", name)
	}
	delete(s.trees, name)
	if s.m != nil {
		s.m.TreesActive.Set(float64(len(s.trees)))
	}
	s.logger.InfoContext(ctx, "tree deleted", "tree", name)
	return nil
}

// Names 返回按字典序排列的所有树名。
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.trees))
	for name := range s.trees {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// with 在树的独占锁内执行 fn。区间先经 CheckRange 校验，非法输入以错误返回而不是 panic。
func (s *Store) with(ctx context.Context, op, name string, l, r int, fn func(context.Context, *entry) error) (err error) {
	ctx, done := s.observe(ctx, op, name)
	defer func() { done(err) }()
	tracing.AddTag(ctx, "l", l)
	tracing.AddTag(ctx, "r", r)

	e, err := s.lookup(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.tree.CheckRange(l, r); err != nil {
		return err
	}
	return fn(ctx, e)
}

// Add 对树 name 的 [l, r) 区间加 delta。
func (s *Store) Add(ctx context.Context, name string, l, r int, delta int64) error {
	return s.with(ctx, "add", name, l, r, func(ctx context.Context, e *entry) error {
		tracing.AddTag(ctx, "delta", delta)
		if err := e.tree.Add(l, r, delta); err != nil {
			return err
		}
		visits := e.tree.Stats().ClampVisits
		if s.m != nil && visits > e.clampSeen {
			s.m.TreeClampVisits.Add(float64(visits - e.clampSeen))
		}
		e.clampSeen = visits
		s.logger.DebugContext(ctx, "range add applied", "tree", name, "l", l, "r", r, "delta", delta)
		return nil
	})
}

// Max 返回 [l, r) 内当前值的最大值，空区间时 ok 为 false。
func (s *Store) Max(ctx context.Context, name string, l, r int) (v int64, ok bool, err error) {
	err = s.with(ctx, "max", name, l, r, func(_ context.Context, e *entry) error {
		v, ok = e.tree.Max(l, r)
		if !ok {
			v = 0
		}
		return nil
	})
	return v, ok, err
}

// HistoricSum 返回 [l, r) 内历史最大值之和，空区间为 0。
func (s *Store) HistoricSum(ctx context.Context, name string, l, r int) (v int64, err error) {
	err = s.with(ctx, "historic_sum", name, l, r, func(_ context.Context, e *entry) error {
		v = e.tree.HistoricSum(l, r)
		return nil
	})
	return v, err
}

// HistoricMax 返回 [l, r) 内历史最大值的最大值，空区间时 ok 为 false。
func (s *Store) HistoricMax(ctx context.Context, name string, l, r int) (v int64, ok bool, err error) {
	err = s.with(ctx, "historic_max", name, l, r, func(_ context.Context, e *entry) error {
		v, ok = e.tree.HistoricMax(l, r)
		if !ok {
			v = 0
		}
		return nil
	})
	return v, ok, err
}

// Snapshot 返回树的当前值与历史最大值。
func (s *Store) Snapshot(ctx context.Context, name string) (current, historic []int64, err error) {
	_, done := s.observe(ctx, "snapshot", name)
	defer func() { done(err) }()

	e, err := s.lookup(name)
	if err != nil {
		return nil, nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	current, historic = e.tree.Snapshot()
	return current, historic, nil
}

// Stats 返回树的统计信息。
func (s *Store) Stats(ctx context.Context, name string) (stats algorithm.TreeStats, err error) {
	_, done := s.observe(ctx, "stats", name)
	defer func() { done(err) }()

	e, err := s.lookup(name)
	if err != nil {
		return stats, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tree.Stats(), nil
}
