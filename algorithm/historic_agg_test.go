package algorithm

import "testing"

func TestDiffAggMerge(t *testing.T) {
	tests := []struct {
		name string
		l, r diffAgg
		want diffAgg
	}{
		{
			name: "left minimum",
			l:    diffAgg{minD: 1, secondMinD: 5, minCount: 2, sumD: 7, maxAtMin: 10, maxNotAtMin: 3},
			r:    diffAgg{minD: 4, secondMinD: posInf, minCount: 1, sumD: 4, maxAtMin: 12, maxNotAtMin: negInf},
			want: diffAgg{minD: 1, secondMinD: 4, minCount: 2, sumD: 11, maxAtMin: 10, maxNotAtMin: 12},
		},
		{
			name: "right minimum",
			l:    diffAgg{minD: 3, secondMinD: posInf, minCount: 1, sumD: 3, maxAtMin: 20, maxNotAtMin: negInf},
			r:    diffAgg{minD: 0, secondMinD: 2, minCount: 1, sumD: 2, maxAtMin: 6, maxNotAtMin: 9},
			want: diffAgg{minD: 0, secondMinD: 2, minCount: 1, sumD: 5, maxAtMin: 6, maxNotAtMin: 20},
		},
		{
			name: "shared minimum",
			l:    diffAgg{minD: 2, secondMinD: 8, minCount: 1, sumD: 10, maxAtMin: 4, maxNotAtMin: 15},
			r:    diffAgg{minD: 2, secondMinD: 6, minCount: 3, sumD: 12, maxAtMin: 7, maxNotAtMin: 1},
			want: diffAgg{minD: 2, secondMinD: 6, minCount: 4, sumD: 22, maxAtMin: 7, maxNotAtMin: 15},
		},
		{
			name: "padding on the right",
			l:    leafAgg(-5),
			r:    emptyAgg(),
			want: diffAgg{minD: 0, secondMinD: posInf, minCount: 1, sumD: 0, maxAtMin: -5, maxNotAtMin: negInf},
		},
		{
			name: "both padding",
			l:    emptyAgg(),
			r:    emptyAgg(),
			want: emptyAgg(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got diffAgg
			got.merge(&tt.l, &tt.r)
			if got != tt.want {
				t.Errorf("merge = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDiffAggRaiseMin(t *testing.T) {
	g := diffAgg{minD: -3, secondMinD: 4, minCount: 2, sumD: 2, maxAtMin: 10, maxNotAtMin: 11}
	g.raiseMin(0)
	want := diffAgg{minD: 0, secondMinD: 4, minCount: 2, sumD: 8, maxAtMin: 13, maxNotAtMin: 11}
	if g != want {
		t.Errorf("raiseMin(0) = %+v, want %+v", g, want)
	}

	g.raiseMin(-1)
	if g != want {
		t.Errorf("raiseMin below minD changed the aggregate: %+v", g)
	}

	empty := emptyAgg()
	empty.raiseMin(0)
	if empty != emptyAgg() {
		t.Errorf("raiseMin on padding changed it: %+v", empty)
	}
}

func TestDiffAggShift(t *testing.T) {
	g := diffAgg{minD: 2, secondMinD: posInf, minCount: 3, sumD: 6, maxAtMin: 9, maxNotAtMin: negInf}
	g.shift(-5, 3)
	want := diffAgg{minD: -3, secondMinD: posInf, minCount: 3, sumD: -9, maxAtMin: 9, maxNotAtMin: negInf}
	if g != want {
		t.Errorf("shift(-5) = %+v, want %+v", g, want)
	}
	if g.historicMax() != 9 {
		t.Errorf("historicMax = %d, want 9", g.historicMax())
	}
}
