package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupableSums(t *testing.T, f *Fusion, n int) []*TensorView {
	t.Helper()
	outs := make([]*TensorView, n)
	for i := range outs {
		in := f.NewInputTensorWithShape(Float32, []int64{4, 256})
		outs[i] = f.Sum(in, 1)
	}
	return outs
}

func TestGroupReductionsRewires(t *testing.T) {
	f := NewFusion("group")
	outs := groupableSums(t, f, 3)

	before := len(f.ExprsInOrder())
	grouped := f.GroupReductions(outs)

	require.Equal(t, ExprKindGroupedReduction, grouped.Kind())
	assert.Equal(t, []OpType{OpTypeAdd, OpTypeAdd, OpTypeAdd}, grouped.Ops())
	assert.Len(t, grouped.Outputs(), 3)
	assert.Len(t, grouped.Inputs(), 3)

	// The member reductions are gone; their outputs are now defined by the
	// grouped expression.
	assert.Equal(t, before-2, len(f.ExprsInOrder()))
	for _, out := range outs {
		assert.Same(t, grouped, out.Val().Definition())
	}
	// Inputs now list the grouped expression as their only use.
	in0 := grouped.Input(0)
	require.Len(t, in0.Uses(), 1)
	assert.Equal(t, grouped.ID(), in0.Uses()[0])
}

func TestGroupReductionsMemberCount(t *testing.T) {
	f := NewFusion("groupcount")
	one := groupableSums(t, f, 1)
	require.Panics(t, func() { f.GroupReductions(one) })

	many := groupableSums(t, f, MaxGroupedReductions+1)
	require.Panics(t, func() { f.GroupReductions(many) })
}

func TestGroupReductionsShapeMismatchLeavesFusionUntouched(t *testing.T) {
	f := NewFusion("groupshape")
	inA := f.NewInputTensorWithShape(Float32, []int64{4, 256})
	inB := f.NewInputTensorWithShape(Float32, []int64{4, 255})
	sA := f.Sum(inA, 1)
	sB := f.Sum(inB, 1)

	before := len(f.ExprsInOrder())
	require.Panics(t, func() { f.GroupReductions([]*TensorView{sA, sB}) })

	// Validation runs before any rewiring, so nothing changed.
	assert.Equal(t, before, len(f.ExprsInOrder()))
	assert.Equal(t, ExprKindReduction, sA.Val().Definition().Kind())
	assert.Equal(t, ExprKindReduction, sB.Val().Definition().Kind())
	require.Len(t, inA.Val().Uses(), 1)
}

func TestGroupReductionsTransformMismatch(t *testing.T) {
	f := NewFusion("grouptransform")
	outs := groupableSums(t, f, 2)
	outs[0].Split(1, 32)

	before := len(f.ExprsInOrder())
	require.Panics(t, func() { f.GroupReductions(outs) })
	assert.Equal(t, before, len(f.ExprsInOrder()))
}

func TestGroupReductionsParallelMismatch(t *testing.T) {
	f := NewFusion("groupparallel")
	outs := groupableSums(t, f, 2)
	outs[0].Axis(1).Parallelize(ParallelTypeTIDx)

	require.Panics(t, func() { f.GroupReductions(outs) })
}

func TestGroupReductionsNonReductionMember(t *testing.T) {
	f := NewFusion("groupkind")
	outs := groupableSums(t, f, 2)
	in := f.NewInputTensorWithShape(Float32, []int64{4, 256})
	neg := f.UnaryOp(OpTypeNeg, in)

	require.Panics(t, func() { f.GroupReductions([]*TensorView{outs[0], neg}) })
}

func TestGroupReductionsAllreduceMixRejected(t *testing.T) {
	f := NewFusion("groupallreduce")
	inA := f.NewInputTensorWithShape(Float32, []int64{4, 256})
	inB := f.NewInputTensorWithShape(Float32, []int64{4, 256})
	sA := f.ReductionOp(OpTypeAdd, []int{1}, inA, true)
	sB := f.ReductionOp(OpTypeAdd, []int{1}, inB, false)

	require.Panics(t, func() { f.GroupReductions([]*TensorView{sA, sB}) })
}
