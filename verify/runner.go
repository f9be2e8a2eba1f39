package verify

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/wyfcoding/beats/algorithm"
	"github.com/wyfcoding/beats/logging"
	"github.com/wyfcoding/beats/metrics"
	"github.com/wyfcoding/beats/xerrors"

	"github.com/go-playground/validator/v10"
	"github.com/sourcegraph/conc/pool"
)

// Op 校验中使用的操作种类。
type Op string

const (
	OpAdd         Op = "add"
	OpMax         Op = "max"
	OpHistoricSum Op = "historic-sum"
	OpHistoricMax Op = "historic-max"
)

var allOps = [...]Op{OpAdd, OpMax, OpHistoricSum, OpHistoricMax}

// Options 控制一次差分校验。
type Options struct {
	Seed       uint64           // 第 i 次试验使用 Seed+i 作为随机种子。
	Trials     int              `validate:"min=1"`
	Ops        int              `validate:"min=1"` // 每次试验执行的操作数。
	MinN       int              `validate:"min=1"`
	MaxN       int              `validate:"gtefield=MinN"`
	ValueRange int64            `validate:"min=1"` // 初值与增量取自 [-ValueRange, ValueRange]。
	Parallel   int              `validate:"min=1"`
	Metrics    *metrics.Metrics `validate:"-"`
	Logger     *slog.Logger     `validate:"-"`
}

// DefaultOptions 返回与命令行默认值一致的参数。
func DefaultOptions() Options {
	return Options{
		Seed:       1,
		Trials:     8,
		Ops:        100000,
		MinN:       100,
		MaxN:       1000,
		ValueRange: 10000,
		Parallel:   4,
	}
}

// Mismatch 记录一次树与朴素实现答案不一致的查询。
type Mismatch struct {
	Trial int    `json:"trial"`
	Seed  uint64 `json:"seed"`
	Step  int    `json:"step"`
	Op    Op     `json:"op"`
	L     int    `json:"l"`
	R     int    `json:"r"`
	Got   int64  `json:"got"`
	Want  int64  `json:"want"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("trial %d (seed %d) step %d: %s[%d,%d) got %d want %d",
		m.Trial, m.Seed, m.Step, m.Op, m.L, m.R, m.Got, m.Want)
}

// Report 汇总所有试验的结果。
type Report struct {
	Trials     int           `json:"trials"`
	Ops        int64         `json:"ops"`
	Adds       int64         `json:"adds"`
	Queries    int64         `json:"queries"`
	Mismatches []Mismatch    `json:"mismatches"`
	Duration   time.Duration `json:"duration"`
}

// Err 在存在不一致时返回 xerrors.ErrVerifyMismatch 的派生错误。
func (r Report) Err() error {
	if len(r.Mismatches) == 0 {
		return nil
	}
	return xerrors.ErrVerifyMismatch.Derive().
		WithContext("first", r.Mismatches[0].String()).
		WithDetail("%d of %d trials disagreed with the reference", len(r.Mismatches), r.Trials)
}

// Tree 是被校验的实现需要提供的操作集合。
type Tree interface {
	Add(l, r int, delta int64) error
	Max(l, r int) (int64, bool)
	HistoricSum(l, r int) int64
	HistoricMax(l, r int) (int64, bool)
}

var newTree = func(values []int64) (Tree, error) {
	return algorithm.NewHistoricSegmentTree(values)
}

type trialResult struct {
	ops, adds, queries int64
	mismatch           *Mismatch
}

var validate = validator.New()

func (o Options) validate() error {
	if err := validate.Struct(o); err != nil {
		return xerrors.ErrInvalidInput.Derive().WithDetail("verify options: %v", err)
	}
	// 每次加法都会把包络扩大 |delta|，提前确认最坏情况下也不会触发上限。
	worst := o.ValueRange * int64(o.Ops+1)
	if worst/int64(o.Ops+1) != o.ValueRange || worst > algorithm.MagnitudeLimit(o.MaxN) {
		return xerrors.ErrInvalidInput.Derive().WithDetail("value range %d over %d ops exceeds magnitude limit", o.ValueRange, o.Ops)
	}
	return nil
}

// Run 并发执行 opts.Trials 次独立试验，每次试验在第一次不一致时停止。
// ctx 取消后所有试验在当前步之后退出，返回 ctx 的错误与已完成部分的报告。
func Run(ctx context.Context, opts Options) (Report, error) {
	if err := opts.validate(); err != nil {
		return Report{}, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	var (
		mu     sync.Mutex
		report = Report{Trials: opts.Trials}
	)
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError().WithMaxGoroutines(opts.Parallel)
	for i := range opts.Trials {
		p.Go(func(ctx context.Context) error {
			res, err := runTrial(ctx, opts, i)
			mu.Lock()
			report.Ops += res.ops
			report.Adds += res.adds
			report.Queries += res.queries
			if res.mismatch != nil {
				report.Mismatches = append(report.Mismatches, *res.mismatch)
			}
			mu.Unlock()
			return err
		})
	}
	err := p.Wait()
	report.Duration = time.Since(start)

	if err != nil {
		logger.WarnContext(ctx, "verify interrupted", "error", err, "ops", report.Ops)
		return report, err
	}
	for _, m := range report.Mismatches {
		logger.ErrorContext(ctx, "verify mismatch", "detail", m.String())
	}
	logger.InfoContext(ctx, "verify finished",
		"trials", report.Trials,
		"ops", report.Ops,
		"mismatches", len(report.Mismatches),
		"duration", report.Duration,
	)
	return report, nil
}

func runTrial(ctx context.Context, opts Options, trial int) (trialResult, error) {
	seed := opts.Seed + uint64(trial)
	defer logging.LogDuration(ctx, opts.Logger, "verify trial", "trial", trial, "seed", seed)()
	rng := rand.New(rand.NewPCG(seed, uint64(trial)))
	value := func() int64 { return rng.Int64N(2*opts.ValueRange+1) - opts.ValueRange }

	n := opts.MinN + rng.IntN(opts.MaxN-opts.MinN+1)
	values := make([]int64, n)
	for i := range values {
		values[i] = value()
	}

	var res trialResult
	tree, err := newTree(values)
	if err != nil {
		return res, err
	}
	ref := NewReference(values)
	m := opts.Metrics

	for step := range opts.Ops {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		op := allOps[rng.IntN(len(allOps))]
		l := rng.IntN(n)
		r := l + 1 + rng.IntN(n-l)
		res.ops++
		if m != nil {
			m.VerifyOpsTotal.WithLabelValues(string(op)).Inc()
		}

		var got, want int64
		switch op {
		case OpAdd:
			delta := value()
			if err := tree.Add(l, r, delta); err != nil {
				return res, err
			}
			ref.Add(l, r, delta)
			res.adds++
			continue
		case OpMax:
			got, _ = tree.Max(l, r)
			want, _ = ref.Max(l, r)
		case OpHistoricSum:
			got = tree.HistoricSum(l, r)
			want = ref.HistoricSum(l, r)
		case OpHistoricMax:
			got, _ = tree.HistoricMax(l, r)
			want, _ = ref.HistoricMax(l, r)
		}
		res.queries++

		if got != want {
			if m != nil {
				m.VerifyMismatches.Inc()
			}
			res.mismatch = &Mismatch{
				Trial: trial, Seed: seed, Step: step, Op: op,
				L: l, R: r, Got: got, Want: want,
			}
			return res, nil
		}
	}
	return res, nil
}
