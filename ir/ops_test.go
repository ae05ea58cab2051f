package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryOpBroadcastResolution(t *testing.T) {
	f := NewFusion("binary")
	a := f.NewInputTensorWithShape(Float32, []int64{4, 8})
	bSrc := f.NewInputTensorWithShape(Float32, []int64{4})
	b := f.Broadcast(bSrc, []bool{false, true})

	out := f.BinaryOp(OpTypeAdd, a, b)
	require.Equal(t, 2, out.NDims())
	// The concrete side wins over the broadcast axis.
	assert.Equal(t, int64(8), out.Axis(1).ExtentVal().IntValue())
	assert.False(t, out.Axis(1).IsBroadcast())
}

func TestBroadcastValidation(t *testing.T) {
	f := NewFusion("bcast")
	in := f.NewInputTensorWithShape(Float32, []int64{4})
	out := f.Broadcast(in, []bool{true, false})
	require.Equal(t, 2, out.NDims())
	assert.True(t, out.Axis(0).IsBroadcast())
	assert.False(t, out.Axis(1).IsBroadcast())

	require.Panics(t, func() { f.Broadcast(in, []bool{true, false, false}) })
}

func TestReductionOutputDomain(t *testing.T) {
	f := NewFusion("reduce")
	in := f.NewInputTensorWithShape(Float32, []int64{4, 8})
	s := f.Sum(in, 1)

	require.Equal(t, 2, s.NDims())
	assert.False(t, s.Axis(0).IsReduction())
	assert.True(t, s.Axis(1).IsReduction())
	assert.True(t, s.HasReduction())

	def := s.Val().Definition()
	require.NotNil(t, def)
	assert.Equal(t, ExprKindReduction, def.Kind())
	assert.Equal(t, OpTypeAdd, def.Op())
	assert.Equal(t, 0.0, f.Val(def.Init()[0]).FloatValue())
}

func TestReductionInitIdentities(t *testing.T) {
	f := NewFusion("inits")
	in := f.NewInputTensorWithShape(Float32, []int64{16})

	maxOut := f.ReductionOp(OpTypeMax, []int{0}, in, false)
	init := f.Val(maxOut.Val().Definition().Init()[0]).FloatValue()
	assert.True(t, math.IsInf(init, -1))

	minOut := f.ReductionOp(OpTypeMin, []int{0}, in, false)
	init = f.Val(minOut.Val().Definition().Init()[0]).FloatValue()
	assert.True(t, math.IsInf(init, 1))
}

func TestReduceBroadcastAxisRejected(t *testing.T) {
	f := NewFusion("redbcast")
	in := f.NewInputTensorWithShape(Float32, []int64{4})
	b := f.Broadcast(in, []bool{false, true})
	require.Panics(t, func() { f.Sum(b, 1) })
	require.Panics(t, func() { f.ReductionOp(OpTypeAdd, nil, in, false) })
}

func TestWelfordOutputs(t *testing.T) {
	f := NewFusion("welford")
	in := f.NewInputTensorWithShape(Float32, []int64{4, 256})
	avg, variance, n := f.Welford(in, 1)

	assert.Equal(t, Float32, avg.DType())
	assert.Equal(t, Float32, variance.DType())
	assert.Equal(t, Int64, n.DType())
	def := avg.Val().Definition()
	require.NotNil(t, def)
	assert.Equal(t, ExprKindWelford, def.Kind())
	assert.Same(t, def, variance.Val().Definition())
	assert.Same(t, def, n.Val().Definition())
	assert.True(t, avg.Axis(1).IsReduction())
}

func TestViewAsScalarAppendsVectorAxis(t *testing.T) {
	f := NewFusion("vas")
	in := f.NewInputTensorWithShape(Float32, []int64{64})
	out := f.ViewAsScalar(in, 4)

	require.Equal(t, 2, out.NDims())
	assert.Equal(t, int64(4), out.Axis(1).ExtentVal().IntValue())
	def := out.Val().Definition()
	require.NotNil(t, def)
	assert.Same(t, out.Axis(1), def.VectorID())

	require.Panics(t, func() { f.ViewAsScalar(in, 1) })
}

func TestMmaOpDomain(t *testing.T) {
	f := NewFusion("mma")
	a := f.NewInputTensorWithShape(Float16, []int64{64, 16})
	b := f.NewInputTensorWithShape(Float16, []int64{16, 32})
	opts := NewMmaBuilder(MmaMacroVolta_16_16_4, MatMulTileOptions{
		WarpTile:        GemmTile{M: 64, N: 64, K: 4},
		InstructionTile: GemmTile{M: 16, N: 16, K: 4},
	}).Layout(MmaLayoutTN).Build()
	out := f.MmaOp(a, b, opts)

	require.Equal(t, 3, out.NDims())
	assert.Equal(t, int64(64), out.Axis(0).ExtentVal().IntValue())
	assert.Equal(t, int64(32), out.Axis(1).ExtentVal().IntValue())
	assert.True(t, out.Axis(2).IsReduction())

	bad := f.NewInputTensorWithShape(Float16, []int64{8, 32})
	require.Panics(t, func() { f.MmaOp(a, bad, opts) })
}

func TestIsStochastic(t *testing.T) {
	f := NewFusion("rng")
	in := f.NewInputTensorWithShape(Float32, []int64{16})
	assert.False(t, f.IsStochastic())
	f.RandLike(in)
	assert.True(t, f.IsStochastic())
}
