package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func voltaTiles() MatMulTileOptions {
	return MatMulTileOptions{
		CtaTile:         GemmTile{M: 128, N: 128, K: 32},
		WarpTile:        GemmTile{M: 64, N: 64, K: 32},
		InstructionTile: GemmTile{M: 16, N: 16, K: 4},
	}
}

func TestMmaBuilderVoltaStride(t *testing.T) {
	opts := NewMmaBuilder(MmaMacroVolta_16_16_4, voltaTiles()).
		Layout(MmaLayoutTN).
		Operand(MmaOperandA).
		Build()

	// 64/16 instruction tiles across the warp tile in N, 4 registers each.
	assert.Equal(t, 16, opts.AccumulatorStride)
	assert.Equal(t, MmaMacroVolta_16_16_4, opts.Macro)
	assert.Equal(t, 8, opts.OutputRegisterSize())
	assert.Equal(t, 4, opts.InputRegisterSize())
}

func TestMmaBuilderUnsupportedMacro(t *testing.T) {
	require.Panics(t, func() { NewMmaBuilder(MmaMacroTuring_16_8_16, voltaTiles()) })
	require.Panics(t, func() { NewMmaBuilder(MmaMacroAmpere_16_8_16, voltaTiles()) })
}

func TestMmaMacroPredicates(t *testing.T) {
	assert.True(t, MmaMacroVolta_16_16_4.IsVolta())
	assert.False(t, MmaMacroVolta_16_16_4.IsTuring())
	assert.True(t, MmaMacroTuring_16_8_16.IsTuring())
	assert.False(t, MmaMacroTuring_16_8_16.IsAmpere())
	assert.True(t, MmaMacroAmpere_16_8_16.IsAmpere())
	assert.False(t, MmaMacroNone.IsVolta())
}

func TestMmaIsOperandTransposed(t *testing.T) {
	for _, tc := range []struct {
		layout  MmaLayout
		operand MmaOperand
		want    bool
	}{
		{MmaLayoutTT, MmaOperandA, true},
		{MmaLayoutTT, MmaOperandB, true},
		{MmaLayoutTN, MmaOperandA, true},
		{MmaLayoutTN, MmaOperandB, false},
		{MmaLayoutNT, MmaOperandA, false},
		{MmaLayoutNT, MmaOperandB, true},
	} {
		opts := NewMmaBuilder(MmaMacroVolta_16_16_4, voltaTiles()).
			Layout(tc.layout).
			Operand(tc.operand).
			Build()
		assert.Equal(t, tc.want, opts.IsOperandTransposed(), "%s operand %d", tc.layout, tc.operand)
	}
}
