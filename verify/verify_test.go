package verify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/wyfcoding/beats/algorithm"
	"github.com/wyfcoding/beats/metrics"
	"github.com/wyfcoding/beats/xerrors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietOptions() Options {
	o := DefaultOptions()
	o.Trials = 4
	o.Ops = 3000
	o.MinN = 20
	o.MaxN = 120
	o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return o
}

func TestReference(t *testing.T) {
	ref := NewReference([]int64{1, 2, 3, 4, 5})
	ref.Add(1, 4, -3)
	ref.Add(0, 5, 2)

	got, ok := ref.Max(0, 5)
	assert.True(t, ok)
	assert.Equal(t, int64(7), got)
	assert.Equal(t, int64(3+2+3+4+7), ref.HistoricSum(0, 5))
	hm, _ := ref.HistoricMax(1, 3)
	assert.Equal(t, int64(3), hm)

	v, ok := ref.Max(2, 2)
	assert.False(t, ok)
	assert.Equal(t, int64(math.MinInt64), v)
	assert.Zero(t, ref.HistoricSum(2, 2))
}

func TestRunAgreesWithReference(t *testing.T) {
	opts := quietOptions()
	opts.Metrics = metrics.NewMetrics("verify-test")

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.Equal(t, opts.Trials, report.Trials)
	assert.Equal(t, int64(opts.Trials*opts.Ops), report.Ops)
	assert.Equal(t, report.Ops, report.Adds+report.Queries)
	assert.Positive(t, report.Adds)
	assert.Positive(t, report.Queries)
	assert.Empty(t, report.Mismatches)
	assert.InDelta(t, float64(report.Adds), testutil.ToFloat64(opts.Metrics.VerifyOpsTotal.WithLabelValues(string(OpAdd))), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(opts.Metrics.VerifyMismatches), 0)
}

func TestRunIsDeterministic(t *testing.T) {
	opts := quietOptions()
	a, err := Run(context.Background(), opts)
	require.NoError(t, err)
	b, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, a.Adds, b.Adds)
	assert.Equal(t, a.Queries, b.Queries)
}

// brokenTree 在历史和上少算 1，用于确认校验器能发现错误。
type brokenTree struct{ *algorithm.HistoricSegmentTree }

func (b brokenTree) HistoricSum(l, r int) int64 {
	return b.HistoricSegmentTree.HistoricSum(l, r) - 1
}

func TestRunDetectsMismatch(t *testing.T) {
	orig := newTree
	newTree = func(values []int64) (Tree, error) {
		tree, err := algorithm.NewHistoricSegmentTree(values)
		return brokenTree{tree}, err
	}
	t.Cleanup(func() { newTree = orig })

	opts := quietOptions()
	opts.Metrics = metrics.NewMetrics("verify-broken")
	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, report.Mismatches, opts.Trials)

	m := report.Mismatches[0]
	assert.Equal(t, OpHistoricSum, m.Op)
	assert.Equal(t, m.Want-1, m.Got)
	assert.Less(t, m.L, m.R)
	assert.InDelta(t, float64(opts.Trials), testutil.ToFloat64(opts.Metrics.VerifyMismatches), 0)

	verr := report.Err()
	require.Error(t, verr)
	assert.True(t, errors.Is(verr, xerrors.ErrVerifyMismatch))
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, quietOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsBadOptions(t *testing.T) {
	tests := map[string]func(*Options){
		"zero ops":      func(o *Options) { o.Ops = 0 },
		"inverted n":    func(o *Options) { o.MinN, o.MaxN = 50, 10 },
		"no parallel":   func(o *Options) { o.Parallel = 0 },
		"huge values":   func(o *Options) { o.ValueRange = math.MaxInt64 / 2 },
		"zero trials":   func(o *Options) { o.Trials = 0 },
		"zero variance": func(o *Options) { o.ValueRange = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			o := quietOptions()
			mutate(&o)
			_, err := Run(context.Background(), o)
			assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
		})
	}
}
