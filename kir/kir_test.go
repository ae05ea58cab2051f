package kir

import (
	"strings"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zarzen/fuser/ir"
)

func TestScopeOrdering(t *testing.T) {
	var s Scope
	first := &BlockSync{}
	second := &BlockSync{WarHazard: true}
	s.Push(second)
	require.Equal(t, 1, s.Len())

	s.InsertFront(first)
	require.Equal(t, 2, s.Len())
	assert.Same(t, first, s.Stmts()[0])
	assert.Same(t, second, s.Stmts()[1])
}

func TestForLoopIsTrivial(t *testing.T) {
	f := ir.NewFusion("loops")
	in := f.NewInputTensorWithShape(ir.Float32, []int64{1024, 4})
	out := f.UnaryOp(ir.OpTypeNeg, in)
	f.AddOutput(out.Val())

	out.Split(0, 128)
	out.Axis(0).Parallelize(ir.ParallelTypeBIDx)
	out.Axis(1).Parallelize(ir.ParallelTypeTIDx)
	out.Axis(2).Parallelize(ir.ParallelTypeVectorize)

	for i, want := range []bool{true, true, true} {
		fl := NewForLoop(f, out.Axis(i), f.NewIndexVar())
		assert.Equal(t, want, fl.IsTrivial(), "axis %d (%s)", i, out.Axis(i))
	}

	// A serial axis with a non-unit extent needs a loop header.
	serial := NewForLoop(f, in.Axis(1), f.NewIndexVar())
	assert.False(t, serial.IsTrivial())
}

func TestPredicate(t *testing.T) {
	var unset Predicate
	assert.False(t, unset.IsSet())
	assert.Equal(t, "<unset>", unset.String())

	tru := TruePredicate()
	assert.True(t, tru.IsSet())
	assert.Equal(t, "true", tru.String())

	f := ir.NewFusion("pred")
	p := ValuePredicate(f, f.NamedScalar("mask"))
	assert.True(t, p.IsSet())
	assert.Equal(t, "mask", p.String())

	// The serial reduction path leaves its predicates zero; they must read
	// as unset and print safely.
	in := f.NewInputTensor(ir.Float32, 1)
	out := f.UnaryOp(ir.OpTypeNeg, in)
	f.AddOutput(out.Val())
	r := NewReductionOp(f, ir.OpTypeAdd,
		&TensorIndex{Tensor: out, Index: f.Zero()}, ScalarOperand(f, f.Zero()), f.Zero())
	assert.False(t, r.Predicate.IsSet())
	assert.Equal(t, "<unset>", r.Predicate.String())
	assert.False(t, r.WritePredicate.IsSet())
	assert.Equal(t, "<unset>", r.WritePredicate.String())
}

func TestOperandString(t *testing.T) {
	f := ir.NewFusion("ops")
	in := f.NewInputTensor(ir.Float32, 1)
	out := f.UnaryOp(ir.OpTypeNeg, in)
	f.AddOutput(out.Val())

	ti := &TensorIndex{Tensor: in, Index: f.Zero()}
	assert.Contains(t, TensorOperand(ti).String(), in.Name())
	assert.Contains(t, ScalarOperand(f, f.IntConst(7)).String(), "7")
}

func TestAllocatePrint(t *testing.T) {
	f := ir.NewFusion("alloc")
	a := NewAllocate(f, "fused_work_0", MemoryTypeGlobal, dtypes.Float32, f.IntConst(8))
	a.Zero = true

	var sb strings.Builder
	a.Print(&sb, 0)
	assert.Contains(t, sb.String(), "alloc fused_work_0")
	assert.Contains(t, sb.String(), "zero-init")
	assert.Equal(t, int64(8), a.SizeVal().IntValue())
}

func TestKernelWalkAndTopLevel(t *testing.T) {
	f := ir.NewFusion("walk")
	in := f.NewInputTensorWithShape(ir.Float32, []int64{16})
	out := f.UnaryOp(ir.OpTypeNeg, in)
	f.AddOutput(out.Val())

	inner := &BlockSync{}
	loop := NewForLoop(f, out.Axis(0), f.NewIndexVar())
	loop.Body.Push(inner)

	k := &Kernel{Name: "walk", Fusion: f}
	k.Body.Push(loop)

	var visited []Stmt
	k.Walk(func(s Stmt) { visited = append(visited, s) })
	require.Len(t, visited, 2)
	assert.Same(t, loop, visited[0])
	assert.Same(t, inner, visited[1])

	// TopLevel stops at the kernel body; loop bodies are not flattened in.
	require.Len(t, k.TopLevel(), 1)
	assert.Same(t, loop, k.TopLevel()[0])

	assert.Contains(t, k.String(), "kernel walk:")
	assert.Contains(t, k.String(), "block_sync()")
}
