package ir

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/x448/float16"
)

// ValKind discriminates the two families of values in a fusion.
type ValKind int

const (
	ValKindInvalid ValKind = iota
	ValKindScalar
	ValKindTensor
)

// Val is a value node of the fusion graph: either a scalar (symbolic or
// constant) or a tensor view. Scalars double as the symbolic extent
// expressions of iteration domains: a scalar can carry an arithmetic
// definition over other scalars, which the Evaluator resolves once input
// shapes are bound.
type Val struct {
	id     ValID
	fusion *Fusion
	kind   ValKind
	dtype  dtypes.DType

	// Scalar payload.
	name       string
	hasValue   bool
	intValue   int64
	floatValue float64
	isFloat    bool
	op         OpType // scalar arithmetic definition; OpTypeInvalid for leaves
	operands   []ValID

	// Tensor payload.
	tv *TensorView

	definition ExprID
	uses       []ExprID
}

// ID of the value within its fusion.
func (v *Val) ID() ValID { return v.id }

// Fusion owning this value.
func (v *Val) Fusion() *Fusion { return v.fusion }

// Kind of this value.
func (v *Val) Kind() ValKind { return v.kind }

// DType of the value.
func (v *Val) DType() dtypes.DType { return v.dtype }

// IsScalar reports whether the value is a scalar.
func (v *Val) IsScalar() bool { return v.kind == ValKindScalar }

// IsTensor reports whether the value is a tensor view.
func (v *Val) IsTensor() bool { return v.kind == ValKindTensor }

// Tensor returns the tensor view payload. Panics for scalars.
func (v *Val) Tensor() *TensorView {
	if !v.IsTensor() {
		exceptions.Panicf("Val %s is not a TensorView", v)
	}
	return v.tv
}

// Definition returns the expression producing this value, or nil for inputs
// and leaf scalars.
func (v *Val) Definition() *Expr {
	if v.definition == InvalidExprID {
		return nil
	}
	return v.fusion.Expr(v.definition)
}

// Uses returns the expressions consuming this value.
func (v *Val) Uses() []ExprID { return v.uses }

// IsConst reports whether the scalar carries a concrete value.
func (v *Val) IsConst() bool { return v.IsScalar() && v.hasValue }

// IntValue returns the concrete integer value. Panics if not a constant int.
func (v *Val) IntValue() int64 {
	if !v.IsConst() || v.isFloat {
		exceptions.Panicf("Val %s is not an integer constant", v)
	}
	return v.intValue
}

// FloatValue returns the concrete floating-point value of the constant.
func (v *Val) FloatValue() float64 {
	if !v.IsConst() {
		exceptions.Panicf("Val %s is not a constant", v)
	}
	if !v.isFloat {
		return float64(v.intValue)
	}
	return v.floatValue
}

// IsOneInt reports whether the value is the integer constant 1.
func (v *Val) IsOneInt() bool { return v.IsConst() && !v.isFloat && v.intValue == 1 }

// IsZeroInt reports whether the value is the integer constant 0.
func (v *Val) IsZeroInt() bool { return v.IsConst() && !v.isFloat && v.intValue == 0 }

// String implements fmt.Stringer.
func (v *Val) String() string {
	switch {
	case v == nil:
		return "Val(nil)"
	case v.IsTensor():
		return v.tv.String()
	case v.hasValue && v.isFloat:
		return fmt.Sprintf("%g", v.floatValue)
	case v.hasValue:
		return fmt.Sprintf("%d", v.intValue)
	case v.name != "":
		return v.name
	case v.op != OpTypeInvalid:
		return fmt.Sprintf("%s(s%d)", v.op, v.id)
	}
	return fmt.Sprintf("s%d", v.id)
}

// IntConst returns the (deduplicated) integer constant scalar for value.
func (f *Fusion) IntConst(value int64) ValID {
	if id, found := f.intConsts[value]; found {
		return id
	}
	id := f.registerVal(&Val{
		kind: ValKindScalar, dtype: dtypes.Int64,
		hasValue: true, intValue: value,
		definition: InvalidExprID,
	})
	f.intConsts[value] = id
	return id
}

// Zero returns the integer constant 0.
func (f *Fusion) Zero() ValID { return f.IntConst(0) }

// One returns the integer constant 1.
func (f *Fusion) One() ValID { return f.IntConst(1) }

// ConstantOf returns a floating-point constant of the given dtype. Values of
// half-precision dtypes are quantized through their storage format so inits
// like reduction identities match what the device will actually hold.
func (f *Fusion) ConstantOf(dtype dtypes.DType, value float64) ValID {
	if dtype == dtypes.Float16 {
		value = float64(float16.Fromfloat32(float32(value)).Float32())
	}
	return f.registerVal(&Val{
		kind: ValKindScalar, dtype: dtype,
		hasValue: true, floatValue: value, isFloat: true,
		definition: InvalidExprID,
	})
}

// Symbol creates a new symbolic integer scalar with a generated name ("i0",
// "i1", ...). Used for the unknown extents of fusion inputs.
func (f *Fusion) Symbol() ValID {
	name := fmt.Sprintf("i%d", f.nextScalar)
	f.nextScalar++
	return f.registerVal(&Val{
		kind: ValKindScalar, dtype: dtypes.Int64, name: name,
		definition: InvalidExprID,
	})
}

// NamedScalar returns the symbolic scalar with the given name, creating it on
// first use. Kernel-level builtins (threadIdx.x, blockDim.x, ...) are named
// scalars shared across the fusion.
func (f *Fusion) NamedScalar(name string) ValID {
	if id, found := f.namedScalars[name]; found {
		return id
	}
	id := f.registerVal(&Val{
		kind: ValKindScalar, dtype: dtypes.Int64, name: name,
		definition: InvalidExprID,
	})
	f.namedScalars[name] = id
	return id
}

// newIndexVar creates a fresh loop index scalar ("idx0", "idx1", ...).
func (f *Fusion) newIndexVar() ValID {
	name := fmt.Sprintf("idx%d", f.nextIndex)
	f.nextIndex++
	return f.registerVal(&Val{
		kind: ValKindScalar, dtype: dtypes.Int64, name: name,
		definition: InvalidExprID,
	})
}

// NewIndexVar creates a fresh loop index scalar. Exposed for the lowering pass.
func (f *Fusion) NewIndexVar() ValID { return f.newIndexVar() }

// binOpKey dedups scalar arithmetic expressions.
type binOpKey struct {
	op   OpType
	a, b ValID
}

// scalarBinOp builds (or reuses) an anonymous scalar defined as op(a, b).
func (f *Fusion) scalarBinOp(op OpType, a, b ValID) ValID {
	if !BinaryOpTypes.Has(op) {
		exceptions.Panicf("scalar arithmetic requires a binary op, got %s", op)
	}
	key := binOpKey{op: op, a: a, b: b}
	if id, found := f.binOps[key]; found {
		return id
	}
	id := f.registerVal(&Val{
		kind: ValKindScalar, dtype: dtypes.Int64,
		op: op, operands: []ValID{a, b},
		definition: InvalidExprID,
	})
	f.binOps[key] = id
	return id
}

// MulExtent returns a*b, folding multiplications by one and constant operands.
func (f *Fusion) MulExtent(a, b ValID) ValID {
	av, bv := f.Val(a), f.Val(b)
	switch {
	case av.IsOneInt():
		return b
	case bv.IsOneInt():
		return a
	case av.IsZeroInt() || bv.IsZeroInt():
		return f.Zero()
	case av.IsConst() && bv.IsConst() && !av.isFloat && !bv.isFloat:
		return f.IntConst(av.intValue * bv.intValue)
	}
	return f.scalarBinOp(OpTypeMul, a, b)
}

// AddExtent returns a+b, folding additions of zero and constant operands.
func (f *Fusion) AddExtent(a, b ValID) ValID {
	av, bv := f.Val(a), f.Val(b)
	switch {
	case av.IsZeroInt():
		return b
	case bv.IsZeroInt():
		return a
	case av.IsConst() && bv.IsConst() && !av.isFloat && !bv.isFloat:
		return f.IntConst(av.intValue + bv.intValue)
	}
	return f.scalarBinOp(OpTypeAdd, a, b)
}

// CeilDivExtent returns ceilDiv(a, b), folding when both sides are constant
// or the divisor is one.
func (f *Fusion) CeilDivExtent(a, b ValID) ValID {
	av, bv := f.Val(a), f.Val(b)
	switch {
	case bv.IsOneInt():
		return a
	case av.IsConst() && bv.IsConst() && !av.isFloat && !bv.isFloat:
		return f.IntConst((av.intValue + bv.intValue - 1) / bv.intValue)
	}
	return f.scalarBinOp(OpTypeCeilDiv, a, b)
}
