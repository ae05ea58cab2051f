package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRFactorSplitsReduction(t *testing.T) {
	f := NewFusion("rfactor")
	in := f.NewInputTensorWithShape(Float32, []int64{1024})
	s := f.Sum(in, 0)
	s.Split(0, 128)

	partial := s.RFactor([]int{1})

	// The partial stage reduces only the listed axis; the unlisted outer
	// axis survives as its rfactor iteration axis.
	require.Equal(t, 2, partial.NDims())
	assert.False(t, partial.Axis(0).IsReduction())
	assert.True(t, partial.Axis(0).IsRFactor())
	assert.True(t, partial.Axis(1).IsReduction())

	// The final stage reduces what is left.
	require.Equal(t, 1, s.NDims())
	assert.True(t, s.Axis(0).IsReduction())

	// The chain is in -> partial -> s, two reduction expressions.
	pDef := partial.Val().Definition()
	require.NotNil(t, pDef)
	assert.Equal(t, ExprKindReduction, pDef.Kind())
	assert.Equal(t, in.ValID(), pDef.Inputs()[0])

	sDef := s.Val().Definition()
	require.NotNil(t, sDef)
	assert.Equal(t, ExprKindReduction, sDef.Kind())
	assert.Equal(t, partial.ValID(), sDef.Inputs()[0])

	// The original single-stage reduction is retired.
	for _, e := range f.ExprsInOrder() {
		assert.NotEqual(t, ExprKindInvalid, e.Kind())
	}
	assert.Len(t, f.ExprsInOrder(), 2)
}

func TestRFactorValidation(t *testing.T) {
	f := NewFusion("rfactorbad")
	in := f.NewInputTensorWithShape(Float32, []int64{1024})

	// Not defined by a reduction.
	neg := f.UnaryOp(OpTypeNeg, in)
	require.Panics(t, func() { neg.RFactor([]int{0}) })

	// All reduction axes listed: nothing left for the final stage.
	s := f.Sum(in, 0)
	require.Panics(t, func() { s.RFactor([]int{0}) })
}

func TestRFactorKeepsAllreduce(t *testing.T) {
	f := NewFusion("rfactorall")
	in := f.NewInputTensorWithShape(Float32, []int64{1024})
	s := f.ReductionOp(OpTypeAdd, []int{0}, in, true)
	s.Split(0, 128)

	partial := s.RFactor([]int{1})
	assert.False(t, partial.Val().Definition().IsAllreduce())
	assert.True(t, s.Val().Definition().IsAllreduce())
}
