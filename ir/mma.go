package ir

import (
	"fmt"

	"github.com/gomlx/exceptions"
)

// MmaMacro identifies a tensor-core instruction shape.
type MmaMacro int

const (
	MmaMacroNone MmaMacro = iota
	MmaMacroVolta_16_16_4
	MmaMacroTuring_16_8_16
	MmaMacroAmpere_16_8_16
)

// String implements fmt.Stringer.
func (m MmaMacro) String() string {
	switch m {
	case MmaMacroNone:
		return "None"
	case MmaMacroVolta_16_16_4:
		return "Volta_16_16_4"
	case MmaMacroTuring_16_8_16:
		return "Turing_16_8_16"
	case MmaMacroAmpere_16_8_16:
		return "Ampere_16_8_16"
	}
	return fmt.Sprintf("MmaMacro(%d)", int(m))
}

// IsVolta reports whether the macro targets Volta tensor cores.
func (m MmaMacro) IsVolta() bool { return m == MmaMacroVolta_16_16_4 }

// IsTuring reports whether the macro targets Turing tensor cores.
func (m MmaMacro) IsTuring() bool { return m == MmaMacroTuring_16_8_16 }

// IsAmpere reports whether the macro targets Ampere tensor cores.
func (m MmaMacro) IsAmpere() bool { return m == MmaMacroAmpere_16_8_16 }

// MmaLayout describes how the A and B operands are laid out in memory, in
// BLAS convention: T means the contracted dimension is innermost.
type MmaLayout int

const (
	MmaLayoutTT MmaLayout = iota
	MmaLayoutTN
	MmaLayoutNT
)

// String implements fmt.Stringer.
func (l MmaLayout) String() string {
	switch l {
	case MmaLayoutTT:
		return "TT"
	case MmaLayoutTN:
		return "TN"
	case MmaLayoutNT:
		return "NT"
	}
	return fmt.Sprintf("MmaLayout(%d)", int(l))
}

// MmaOperand selects which input of the mma an option set refers to.
type MmaOperand int

const (
	MmaOperandA MmaOperand = iota
	MmaOperandB
)

// GemmTile is an (M, N, K) tile shape.
type GemmTile struct {
	M, N, K int
}

// MatMulTileOptions carries the tiling decisions of a matmul schedule.
type MatMulTileOptions struct {
	CtaTile         GemmTile
	WarpTile        GemmTile
	InstructionTile GemmTile
}

// MmaOptions parametrizes an ExprKindMma expression: the instruction macro,
// the operand layout, and the stride between accumulator fragments of one
// warp tile.
type MmaOptions struct {
	Macro             MmaMacro
	Layout            MmaLayout
	Operand           MmaOperand
	AccumulatorStride int
}

// MmaBuilder accumulates the configuration of an mma expression and derives
// the macro-dependent parameters.
type MmaBuilder struct {
	options MmaOptions
}

// NewMmaBuilder starts a builder for the given macro and tiling. The
// accumulator stride is derived from how many instruction tiles span the warp
// tile in N.
func NewMmaBuilder(macro MmaMacro, tiles MatMulTileOptions) *MmaBuilder {
	b := &MmaBuilder{}
	b.options.Macro = macro
	switch macro {
	case MmaMacroVolta_16_16_4:
		b.options.AccumulatorStride = tiles.WarpTile.N / tiles.InstructionTile.N * 4
	default:
		exceptions.Panicf("unsupported mma macro %s", macro)
	}
	return b
}

// Layout sets the operand layout.
func (b *MmaBuilder) Layout(layout MmaLayout) *MmaBuilder {
	b.options.Layout = layout
	return b
}

// Operand selects the operand the options describe.
func (b *MmaBuilder) Operand(operand MmaOperand) *MmaBuilder {
	b.options.Operand = operand
	return b
}

// Build returns the accumulated options.
func (b *MmaBuilder) Build() MmaOptions { return b.options }

// IsOperandTransposed reports whether the selected operand has its contracted
// dimension innermost under the chosen layout.
func (o MmaOptions) IsOperandTransposed() bool {
	switch o.Operand {
	case MmaOperandA:
		return o.Layout == MmaLayoutTT || o.Layout == MmaLayoutTN
	case MmaOperandB:
		return o.Layout == MmaLayoutTT || o.Layout == MmaLayoutNT
	}
	return false
}

// OutputRegisterSize returns the accumulator fragment size in registers per
// thread for the macro.
func (o MmaOptions) OutputRegisterSize() int {
	switch o.Macro {
	case MmaMacroVolta_16_16_4:
		return 8
	}
	exceptions.Panicf("unsupported mma macro %s", o.Macro)
	return 0
}

// InputRegisterSize returns the operand fragment size in registers per thread.
func (o MmaOptions) InputRegisterSize() int {
	switch o.Macro {
	case MmaMacroVolta_16_16_4:
		return 4
	}
	exceptions.Panicf("unsupported mma macro %s", o.Macro)
	return 0
}
