package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitExtents(t *testing.T) {
	f := NewFusion("split")
	tv := f.NewInputTensorWithShape(Float32, []int64{10})
	tv.Split(0, 4)

	require.Equal(t, 2, tv.NDims())
	assert.Equal(t, int64(3), tv.Axis(0).ExtentVal().IntValue())
	assert.Equal(t, int64(4), tv.Axis(1).ExtentVal().IntValue())
	// The root domain is untouched.
	require.Len(t, tv.Domain().RootAxes(), 1)
	assert.Equal(t, int64(10), tv.Domain().RootAxes()[0].ExtentVal().IntValue())
}

func TestSplitInheritsFlags(t *testing.T) {
	f := NewFusion("splitred")
	in := f.NewInputTensorWithShape(Float32, []int64{256})
	s := f.Sum(in, 0)
	s.Split(0, 32)
	assert.True(t, s.Axis(0).IsReduction())
	assert.True(t, s.Axis(1).IsReduction())
}

func TestMerge(t *testing.T) {
	f := NewFusion("merge")
	tv := f.NewInputTensorWithShape(Float32, []int64{3, 5, 7})
	tv.Merge(0, 1)
	require.Equal(t, 2, tv.NDims())
	assert.Equal(t, int64(15), tv.Axis(0).ExtentVal().IntValue())
	assert.Equal(t, int64(7), tv.Axis(1).ExtentVal().IntValue())
}

func TestMergeRejectsMixedReduction(t *testing.T) {
	f := NewFusion("mergemix")
	in := f.NewInputTensorWithShape(Float32, []int64{4, 8})
	s := f.Sum(in, 1)
	require.Panics(t, func() { s.Merge(0, 1) })
}

func TestReorder(t *testing.T) {
	f := NewFusion("reorder")
	tv := f.NewInputTensorWithShape(Float32, []int64{2, 3, 4})
	tv.Reorder(map[int]int{2: 0})
	assert.Equal(t, int64(4), tv.Axis(0).ExtentVal().IntValue())
	assert.Equal(t, int64(2), tv.Axis(1).ExtentVal().IntValue())
	assert.Equal(t, int64(3), tv.Axis(2).ExtentVal().IntValue())

	// Negative positions count from the end.
	tv2 := f.NewInputTensorWithShape(Float32, []int64{2, 3, 4})
	tv2.Reorder(map[int]int{0: -1})
	assert.Equal(t, int64(2), tv2.Axis(2).ExtentVal().IntValue())

	tv3 := f.NewInputTensorWithShape(Float32, []int64{2, 3})
	require.Panics(t, func() { tv3.Reorder(map[int]int{0: 0, 1: 0}) })
}

func TestTransformFingerprint(t *testing.T) {
	f := NewFusion("fp")
	a := f.NewInputTensorWithShape(Float32, []int64{8, 8})
	b := f.NewInputTensorWithShape(Float32, []int64{8, 8})
	c := f.NewInputTensorWithShape(Float32, []int64{8, 8})

	assert.Empty(t, a.TransformFingerprint())

	for _, tv := range []*TensorView{a, b} {
		tv.Split(1, 4)
		tv.Reorder(map[int]int{0: 1})
	}
	c.Split(1, 2)

	assert.Equal(t, a.TransformFingerprint(), b.TransformFingerprint())
	assert.NotEqual(t, a.TransformFingerprint(), c.TransformFingerprint())
}

func TestSameRootShape(t *testing.T) {
	f := NewFusion("shape")
	a := f.NewInputTensorWithShape(Float32, []int64{4, 8})
	b := f.NewInputTensorWithShape(Float32, []int64{4, 8})
	c := f.NewInputTensorWithShape(Float32, []int64{4, 9})
	d := f.NewInputTensorWithShape(Float32, []int64{4})

	assert.True(t, SameRootShape(a, b))
	assert.False(t, SameRootShape(a, c))
	assert.False(t, SameRootShape(a, d))

	// Transforms do not change the root shape.
	b.Split(0, 2)
	assert.True(t, SameRootShape(a, b))
}

func TestParallelizeRejectsVectorizedReduction(t *testing.T) {
	f := NewFusion("vecred")
	in := f.NewInputTensorWithShape(Float32, []int64{64})
	s := f.Sum(in, 0)
	require.Panics(t, func() { s.Axis(0).Parallelize(ParallelTypeVectorize) })
	// An iteration axis takes any parallel type.
	in.Axis(0).Parallelize(ParallelTypeVectorize)
	assert.Equal(t, ParallelTypeVectorize, in.Axis(0).ParallelType())
}

func TestParallelTypeBitmap(t *testing.T) {
	var b ParallelTypeBitmap
	assert.True(t, b.IsEmpty())
	b = b.With(ParallelTypeTIDx).With(ParallelTypeBIDy)
	assert.True(t, b.Get(ParallelTypeTIDx))
	assert.False(t, b.Get(ParallelTypeTIDy))
	assert.True(t, b.HasBID())
	assert.True(t, b.HasTID())
	// Software transform types are never representable.
	assert.Equal(t, b, b.With(ParallelTypeVectorize))
}
