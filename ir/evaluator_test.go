package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluatorBindShape(t *testing.T) {
	f := NewFusion("eval")
	in := f.NewInputTensor(Float32, 1)
	in.Split(0, 128)

	ev := NewEvaluator(f)
	require.NoError(t, ev.BindShape(in, []int64{1000}))

	outer, err := ev.Evaluate(in.Axis(0).Extent())
	require.NoError(t, err)
	assert.Equal(t, int64(8), outer)

	inner, err := ev.Evaluate(in.Axis(1).Extent())
	require.NoError(t, err)
	assert.Equal(t, int64(128), inner)
}

func TestEvaluatorBindShapeRankMismatch(t *testing.T) {
	f := NewFusion("evalrank")
	in := f.NewInputTensor(Float32, 2)
	ev := NewEvaluator(f)
	require.Error(t, ev.BindShape(in, []int64{4}))
}

func TestEvaluatorUnboundSymbol(t *testing.T) {
	f := NewFusion("evalunbound")
	s := f.Symbol()
	ev := NewEvaluator(f)
	_, err := ev.Evaluate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not bound")

	// A derived expression over the unbound symbol fails the same way.
	_, err = ev.Evaluate(f.MulExtent(s, f.IntConst(2)))
	require.Error(t, err)
}

func TestEvaluatorArithmetic(t *testing.T) {
	f := NewFusion("evalarith")
	a := f.Symbol()
	b := f.Symbol()
	ev := NewEvaluator(f)
	ev.Bind(a, 17)
	ev.Bind(b, 5)

	for _, tc := range []struct {
		op   OpType
		want int64
	}{
		{OpTypeAdd, 22},
		{OpTypeSub, 12},
		{OpTypeMul, 85},
		{OpTypeDiv, 3},
		{OpTypeCeilDiv, 4},
		{OpTypeMod, 2},
		{OpTypeMax, 17},
		{OpTypeMin, 5},
	} {
		got, err := ev.Evaluate(f.scalarBinOp(tc.op, a, b))
		require.NoError(t, err, tc.op)
		assert.Equal(t, tc.want, got, tc.op)
	}
}

func TestEvaluatorDivisionByZero(t *testing.T) {
	f := NewFusion("evalzero")
	a := f.Symbol()
	zero := f.Symbol()
	ev := NewEvaluator(f)
	ev.Bind(a, 10)
	ev.Bind(zero, 0)

	_, err := ev.Evaluate(f.scalarBinOp(OpTypeDiv, a, zero))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}
