package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zarzen/fuser/ir"
)

// elementwise1D builds in -> neg -> out over one symbolic dimension and binds
// the given size.
func elementwise1D(t *testing.T, n int64) (*ir.Fusion, *ir.Evaluator) {
	t.Helper()
	f := ir.NewFusion("pointwise1d")
	in := f.NewInputTensor(ir.Float32, 1)
	out := f.UnaryOp(ir.OpTypeNeg, in)
	f.AddOutput(out.Val())

	ev := ir.NewEvaluator(f)
	require.NoError(t, ev.BindShape(in, []int64{n}))
	return f, ev
}

// broadcast2D builds the bias-add pattern: o1 = in1 + broadcast(in2), with the
// broadcast also returned as an output so one side of the break point carries
// fewer mapped bytes.
func broadcast2D(t *testing.T, d0, d1 int64) (*ir.Fusion, *ir.Evaluator) {
	t.Helper()
	f := ir.NewFusion("pointwise2d")
	in1 := f.NewInputTensor(ir.Float32, 2)
	in2 := f.NewInputTensor(ir.Float32, 1)
	b := f.Broadcast(in2, []bool{false, true})
	o1 := f.BinaryOp(ir.OpTypeAdd, in1, b)
	f.AddOutput(o1.Val())
	f.AddOutput(b.Val())

	ev := ir.NewEvaluator(f)
	require.NoError(t, ev.BindShape(in1, []int64{d0, d1}))
	require.NoError(t, ev.BindShape(in2, []int64{d0}))
	return f, ev
}

func TestReferenceTensorSelection(t *testing.T) {
	f := ir.NewFusion("ref")
	in2 := f.NewInputTensor(ir.Float32, 2)
	in3 := f.NewInputTensor(ir.Float32, 3)
	o2 := f.UnaryOp(ir.OpTypeNeg, in2)
	o3 := f.UnaryOp(ir.OpTypeNeg, in3)
	f.AddOutput(o2.Val())
	f.AddOutput(o3.Val())

	// The output with the most concrete dimensions wins.
	assert.Same(t, o3, ReferenceTensor(f))

	// Ties resolve to the first output in declaration order, every time.
	g := ir.NewFusion("tie")
	ina := g.NewInputTensor(ir.Float32, 2)
	inb := g.NewInputTensor(ir.Float32, 2)
	oa := g.UnaryOp(ir.OpTypeNeg, ina)
	ob := g.UnaryOp(ir.OpTypeNeg, inb)
	g.AddOutput(oa.Val())
	g.AddOutput(ob.Val())
	for i := 0; i < 10; i++ {
		assert.Same(t, oa, ReferenceTensor(g))
	}
}

func TestHeuristics1DVectorized(t *testing.T) {
	f, ev := elementwise1D(t, 1<<20)
	params, err := ComputeHeuristics(f, ev, Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, params.BreakPoint)
	assert.True(t, params.Vectorize)
	assert.Equal(t, int64(4), params.InnerFactor)
	assert.False(t, params.SplitBlock)
	assert.Equal(t, LaunchParams{BDimX: 128, BDimY: 1, GDimX: 2048, GDimY: 1}, params.Launch)
}

func TestHeuristicsWaveCap(t *testing.T) {
	// 1024 elements fit in a fraction of one wave; unrolling would idle SMs.
	f, ev := elementwise1D(t, 1024)
	params, err := ComputeHeuristics(f, ev, Options{})
	require.NoError(t, err)

	assert.False(t, params.Vectorize)
	assert.Equal(t, int64(1), params.InnerFactor)
	assert.Equal(t, LaunchParams{BDimX: 128, BDimY: 1, GDimX: 8, GDimY: 1}, params.Launch)
}

func TestHeuristicsRNGUnrollClamp(t *testing.T) {
	build := func() (*ir.Fusion, *ir.Evaluator) {
		f := ir.NewFusion("rng")
		in := f.NewInputTensor(ir.Float32, 1)
		out := f.RandLike(in)
		f.AddOutput(out.Val())
		ev := ir.NewEvaluator(f)
		require.NoError(t, ev.BindShape(in, []int64{1 << 20}))
		return f, ev
	}

	f, ev := build()
	params, err := ComputeHeuristics(f, ev, Options{DisableRNGUnroll: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), params.InnerFactor)
	assert.False(t, params.Vectorize)

	f, ev = build()
	params, err = ComputeHeuristics(f, ev, Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), params.InnerFactor)
}

func TestHeuristicsHalfPrecisionWidensUnroll(t *testing.T) {
	f := ir.NewFusion("half")
	in := f.NewInputTensor(ir.Float16, 1)
	out := f.UnaryOp(ir.OpTypeNeg, in)
	f.AddOutput(out.Val())
	ev := ir.NewEvaluator(f)
	require.NoError(t, ev.BindShape(in, []int64{1 << 20}))

	params, err := ComputeHeuristics(f, ev, Options{})
	require.NoError(t, err)
	// 16 bytes per thread over 2-byte elements.
	assert.True(t, params.Vectorize)
	assert.Equal(t, int64(8), params.InnerFactor)
	assert.Equal(t, int64(1024), params.Launch.GDimX)
}

func TestHeuristicsVectorWidthOverride(t *testing.T) {
	f, ev := elementwise1D(t, 1<<20)
	params, err := ComputeHeuristics(f, ev, Options{
		VectorWidth: func(tv *ir.TensorView) int64 { return 2 },
	})
	require.NoError(t, err)
	assert.True(t, params.Vectorize)
	assert.Equal(t, int64(2), params.InnerFactor)
}

func TestHeuristics2DBreakPoint(t *testing.T) {
	f, ev := broadcast2D(t, 512, 1024)
	params, err := ComputeHeuristics(f, ev, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, params.BreakPoint)
	assert.True(t, params.Vectorize)
	assert.Equal(t, int64(4), params.InnerFactor)
	assert.False(t, params.SplitBlock)
	assert.Equal(t, LaunchParams{BDimX: 128, BDimY: 1, GDimX: 512, GDimY: 2}, params.Launch)
}

func TestHeuristics2DSplitBlock(t *testing.T) {
	// A short inner dimension leaves threads over for TIDy.
	f, ev := broadcast2D(t, 4096, 256)
	params, err := ComputeHeuristics(f, ev, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, params.BreakPoint)
	assert.True(t, params.SplitBlock)
	assert.Equal(t, LaunchParams{BDimX: 64, BDimY: 2, GDimX: 2048, GDimY: 1}, params.Launch)
}

// A schedule never binds TIDy and a y grid dimension at the same time.
func TestHeuristicsNeverBindBDimYAndGDimY(t *testing.T) {
	for _, shape := range [][2]int64{
		{512, 1024}, {4096, 256}, {64, 64}, {13, 70000}, {108, 128}, {2, 2},
	} {
		f, ev := broadcast2D(t, shape[0], shape[1])
		params, err := ComputeHeuristics(f, ev, Options{})
		require.NoError(t, err, "shape %v", shape)
		assert.False(t, params.SplitBlock && params.Launch.GDimY > 1, "shape %v: %s", shape, params)
		assert.False(t, params.Launch.BDimY > 1 && params.Launch.GDimY > 1, "shape %v: %s", shape, params)
	}
}

func TestHeuristicsSplitGridY(t *testing.T) {
	// The inner remainder exceeds the hardware y grid limit: fold it back
	// with an extra split instead of binding GDimY directly.
	f, ev := broadcast2D(t, 4, 1<<26)
	params, err := ComputeHeuristics(f, ev, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, params.BreakPoint)
	assert.True(t, params.SplitGridY)
	assert.Equal(t, int64(1), params.Launch.GDimY)
	assert.False(t, params.SplitBlock)
}

func TestHeuristicsNoConcreteOutput(t *testing.T) {
	f := ir.NewFusion("empty")
	params, err := ComputeHeuristics(f, ir.NewEvaluator(f), Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), params.InnerFactor)
	assert.Equal(t, LaunchParams{BDimX: 1, BDimY: 1, GDimX: 1, GDimY: 1}, params.Launch)
}

func TestHeuristicsUnboundShapeErrors(t *testing.T) {
	f := ir.NewFusion("unbound")
	in := f.NewInputTensor(ir.Float32, 1)
	out := f.UnaryOp(ir.OpTypeNeg, in)
	f.AddOutput(out.Val())
	_, err := ComputeHeuristics(f, ir.NewEvaluator(f), Options{})
	require.Error(t, err)
}
