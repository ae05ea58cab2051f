package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtentFolding(t *testing.T) {
	f := NewFusion("folding")
	six := f.IntConst(6)
	seven := f.IntConst(7)

	assert.Equal(t, six, f.MulExtent(six, f.One()))
	assert.Equal(t, six, f.MulExtent(f.One(), six))
	assert.Equal(t, six, f.AddExtent(f.Zero(), six))
	assert.Equal(t, f.Zero(), f.MulExtent(six, f.Zero()))

	prod := f.MulExtent(six, seven)
	assert.Equal(t, int64(42), f.Val(prod).IntValue())

	q := f.CeilDivExtent(f.IntConst(10), f.IntConst(4))
	assert.Equal(t, int64(3), f.Val(q).IntValue())
	assert.Equal(t, six, f.CeilDivExtent(six, f.One()))
}

func TestIntConstDedup(t *testing.T) {
	f := NewFusion("consts")
	assert.Equal(t, f.IntConst(128), f.IntConst(128))
	assert.NotEqual(t, f.IntConst(128), f.IntConst(129))
}

func TestScalarBinOpDedup(t *testing.T) {
	f := NewFusion("dedup")
	s := f.Symbol()
	three := f.IntConst(3)

	x := f.MulExtent(s, three)
	y := f.MulExtent(s, three)
	assert.Equal(t, x, y, "identical arithmetic over identical operands must share one Val")

	z := f.AddExtent(s, three)
	assert.NotEqual(t, x, z)

	// Splitting two tensors that share a root extent must produce the same
	// outer extent, so loop nests line up after replay.
	in1 := f.NewInputTensor(Float32, 1)
	out := f.UnaryOp(OpTypeNeg, in1)
	in1.Split(0, 128)
	out.Split(0, 128)
	require.Equal(t, in1.Axis(0).Extent(), out.Axis(0).Extent())
	require.Equal(t, in1.Axis(1).Extent(), out.Axis(1).Extent())
}

func TestNamedScalarDedup(t *testing.T) {
	f := NewFusion("named")
	assert.Equal(t, f.NamedScalar("threadIdx.x"), f.NamedScalar("threadIdx.x"))
	assert.NotEqual(t, f.NamedScalar("threadIdx.x"), f.NamedScalar("threadIdx.y"))
}
