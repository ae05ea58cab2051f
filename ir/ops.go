package ir

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// NewInputTensor declares a fusion input with the given rank and symbolic
// extents.
func (f *Fusion) NewInputTensor(dtype dtypes.DType, ndims int) *TensorView {
	axes := make([]*IterDomain, ndims)
	for i := range axes {
		axes[i] = NewIterDomain(f, f.Symbol())
	}
	tv := f.newTensorView(dtype, axes)
	f.inputs = append(f.inputs, tv.val)
	return tv
}

// NewInputTensorWithShape declares a fusion input with constant extents.
func (f *Fusion) NewInputTensorWithShape(dtype dtypes.DType, shape []int64) *TensorView {
	axes := make([]*IterDomain, len(shape))
	for i, dim := range shape {
		if dim < 1 {
			exceptions.Panicf("input shape dimension %d is %d, must be >= 1", i, dim)
		}
		axes[i] = NewIterDomain(f, f.IntConst(dim))
	}
	tv := f.newTensorView(dtype, axes)
	f.inputs = append(f.inputs, tv.val)
	return tv
}

// newTensorLike creates an unscheduled tensor with the non-reduction axes of
// the given tensor: fresh serial IterDomains sharing the same extents.
func (f *Fusion) newTensorLike(tv *TensorView, dtype dtypes.DType) *TensorView {
	src := NoReductions(tv.domain.domain)
	axes := make([]*IterDomain, len(src))
	for i, a := range src {
		axes[i] = &IterDomain{fusion: f, extent: a.extent, parallel: ParallelTypeSerial, isBroadcast: a.isBroadcast}
	}
	return f.newTensorView(dtype, axes)
}

// UnaryOp applies a unary operator elementwise.
func (f *Fusion) UnaryOp(op OpType, in *TensorView) *TensorView {
	if !UnaryOpTypes.Has(op) {
		exceptions.Panicf("UnaryOp: %s is not a unary operator", op)
	}
	out := f.newTensorLike(in, in.dtype)
	f.registerExpr(&Expr{
		kind: ExprKindUnary, op: op,
		inputs: []ValID{in.val}, outputs: []ValID{out.val},
	})
	return out
}

// Cast converts the tensor elementwise to another dtype.
func (f *Fusion) Cast(in *TensorView, dtype dtypes.DType) *TensorView {
	out := f.newTensorLike(in, dtype)
	f.registerExpr(&Expr{
		kind: ExprKindUnary, op: OpTypeCast,
		inputs: []ValID{in.val}, outputs: []ValID{out.val},
	})
	return out
}

// RandLike produces a tensor of uniform random values with the shape and
// dtype of the input. Its presence makes the fusion stochastic.
func (f *Fusion) RandLike(in *TensorView) *TensorView {
	return f.UnaryOp(OpTypeRandLike, in)
}

// BinaryOp applies a binary operator elementwise. Operands must have equal
// rank; where one operand's axis is a broadcast the other's axis defines the
// output extent.
func (f *Fusion) BinaryOp(op OpType, lhs, rhs *TensorView) *TensorView {
	if !BinaryOpTypes.Has(op) {
		exceptions.Panicf("BinaryOp: %s is not a binary operator", op)
	}
	la, ra := NoReductions(lhs.domain.domain), NoReductions(rhs.domain.domain)
	if len(la) != len(ra) {
		exceptions.Panicf("BinaryOp %s: rank mismatch between %s and %s", op, lhs, rhs)
	}
	axes := make([]*IterDomain, len(la))
	for i := range la {
		pick := la[i]
		if la[i].isBroadcast && !ra[i].isBroadcast {
			pick = ra[i]
		}
		axes[i] = &IterDomain{fusion: f, extent: pick.extent, parallel: ParallelTypeSerial, isBroadcast: pick.isBroadcast}
	}
	out := f.newTensorView(lhs.dtype, axes)
	f.registerExpr(&Expr{
		kind: ExprKindBinary, op: op,
		inputs: []ValID{lhs.val, rhs.val}, outputs: []ValID{out.val},
	})
	return out
}

// BinaryScalar applies a binary operator between a tensor and a scalar.
func (f *Fusion) BinaryScalar(op OpType, lhs *TensorView, rhs ValID) *TensorView {
	if !BinaryOpTypes.Has(op) {
		exceptions.Panicf("BinaryScalar: %s is not a binary operator", op)
	}
	if !f.Val(rhs).IsScalar() {
		exceptions.Panicf("BinaryScalar %s: rhs %s is not a scalar", op, f.Val(rhs))
	}
	out := f.newTensorLike(lhs, lhs.dtype)
	f.registerExpr(&Expr{
		kind: ExprKindBinary, op: op,
		inputs: []ValID{lhs.val, rhs}, outputs: []ValID{out.val},
	})
	return out
}

// Where selects elementwise between a and b on cond.
func (f *Fusion) Where(cond, a, b *TensorView) *TensorView {
	la, ra := NoReductions(a.domain.domain), NoReductions(b.domain.domain)
	lc := NoReductions(cond.domain.domain)
	if len(la) != len(ra) || len(la) != len(lc) {
		exceptions.Panicf("Where: rank mismatch between %s, %s, %s", cond, a, b)
	}
	out := f.newTensorLike(a, a.dtype)
	f.registerExpr(&Expr{
		kind: ExprKindTernary, op: OpTypeWhere,
		inputs: []ValID{cond.val, a.val, b.val}, outputs: []ValID{out.val},
	})
	return out
}

// Clamp limits the tensor elementwise to [lo, hi].
func (f *Fusion) Clamp(in *TensorView, lo, hi ValID) *TensorView {
	out := f.newTensorLike(in, in.dtype)
	f.registerExpr(&Expr{
		kind: ExprKindTernary, op: OpTypeClamp,
		inputs: []ValID{in.val, lo, hi}, outputs: []ValID{out.val},
	})
	return out
}

// reductionInit returns the identity of the combine operator for the dtype.
func (f *Fusion) reductionInit(op OpType, dtype dtypes.DType) ValID {
	isFloat := dtype == dtypes.Float32 || dtype == dtypes.Float16 || dtype == dtypes.Float64 || dtype == dtypes.BFloat16
	switch op {
	case OpTypeAdd:
		if isFloat {
			return f.ConstantOf(dtype, 0)
		}
		return f.Zero()
	case OpTypeMul:
		if isFloat {
			return f.ConstantOf(dtype, 1)
		}
		return f.One()
	case OpTypeMax:
		if isFloat {
			return f.ConstantOf(dtype, math.Inf(-1))
		}
		return f.IntConst(math.MinInt64)
	case OpTypeMin:
		if isFloat {
			return f.ConstantOf(dtype, math.Inf(1))
		}
		return f.IntConst(math.MaxInt64)
	}
	exceptions.Panicf("no reduction identity for operator %s", op)
	return InvalidValID
}

// ReductionOp reduces the given axes of the input with the combine operator.
// The output keeps the reduced axes in its domain, marked as reductions. With
// allreduce the result is re-broadcast to every participating thread.
func (f *Fusion) ReductionOp(op OpType, axes []int, in *TensorView, allreduce bool) *TensorView {
	if !ReductionOpTypes.Has(op) {
		exceptions.Panicf("ReductionOp: %s cannot serve as a combine operator", op)
	}
	out := f.newReductionOutput(in, axes, in.dtype)
	f.registerExpr(&Expr{
		kind: ExprKindReduction, op: op,
		init:   []ValID{f.reductionInit(op, in.dtype)},
		inputs: []ValID{in.val}, outputs: []ValID{out.val},
		isAllreduce: allreduce,
	})
	return out
}

// Sum reduces the given axes with addition.
func (f *Fusion) Sum(in *TensorView, axes ...int) *TensorView {
	return f.ReductionOp(OpTypeAdd, axes, in, false)
}

func (f *Fusion) newReductionOutput(in *TensorView, axes []int, dtype dtypes.DType) *TensorView {
	src := NoReductions(in.domain.domain)
	reduce := make(map[int]bool, len(axes))
	for _, axis := range axes {
		if axis < 0 {
			axis += len(src)
		}
		if axis < 0 || axis >= len(src) {
			exceptions.Panicf("reduction axis out of range for %s", in)
		}
		if src[axis].isBroadcast {
			exceptions.Panicf("cannot reduce broadcast axis %d of %s", axis, in)
		}
		reduce[axis] = true
	}
	if len(reduce) == 0 {
		exceptions.Panicf("reduction over %s needs at least one axis", in)
	}
	outAxes := make([]*IterDomain, len(src))
	for i, a := range src {
		outAxes[i] = &IterDomain{
			fusion: f, extent: a.extent, parallel: ParallelTypeSerial,
			isReduction: reduce[i], isBroadcast: a.isBroadcast,
		}
	}
	return f.newTensorView(dtype, outAxes)
}

// Welford reduces the given axes computing mean, unnormalized variance (M2)
// and count in a single pass. Returns (avg, variance, n).
func (f *Fusion) Welford(in *TensorView, axes ...int) (avg, variance, n *TensorView) {
	avg = f.newReductionOutput(in, axes, in.dtype)
	variance = f.newReductionOutput(in, axes, in.dtype)
	n = f.newReductionOutput(in, axes, dtypes.Int64)
	f.registerExpr(&Expr{
		kind:   ExprKindWelford,
		init:   []ValID{f.ConstantOf(in.dtype, 0), f.ConstantOf(in.dtype, 0), f.Zero()},
		inputs: []ValID{in.val},
		outputs: []ValID{
			avg.val, variance.val, n.val,
		},
	})
	return
}

// Broadcast inserts size-one broadcast axes where isBroadcastDim is true. The
// count of false entries must equal the input rank.
func (f *Fusion) Broadcast(in *TensorView, isBroadcastDim []bool) *TensorView {
	src := NoReductions(in.domain.domain)
	concrete := 0
	for _, b := range isBroadcastDim {
		if !b {
			concrete++
		}
	}
	if concrete != len(src) {
		exceptions.Panicf("Broadcast: %d concrete axes in flags, input %s has %d", concrete, in, len(src))
	}
	axes := make([]*IterDomain, len(isBroadcastDim))
	next := 0
	for i, isB := range isBroadcastDim {
		if isB {
			axes[i] = &IterDomain{fusion: f, extent: f.One(), parallel: ParallelTypeSerial, isBroadcast: true}
		} else {
			a := src[next]
			next++
			axes[i] = &IterDomain{fusion: f, extent: a.extent, parallel: ParallelTypeSerial, isBroadcast: a.isBroadcast}
		}
	}
	out := f.newTensorView(in.dtype, axes)
	flags := make([]bool, len(isBroadcastDim))
	copy(flags, isBroadcastDim)
	f.registerExpr(&Expr{
		kind:   ExprKindBroadcast,
		inputs: []ValID{in.val}, outputs: []ValID{out.val},
		broadcastFlags: flags,
	})
	return out
}

// MmaOp contracts a [M, K] by a [K, N] into a [M, N] with a K reduction axis,
// accumulating into the identity of addition. Options select the tensor-core
// macro and layout.
func (f *Fusion) MmaOp(a, b *TensorView, options MmaOptions) *TensorView {
	la, lb := NoReductions(a.domain.domain), NoReductions(b.domain.domain)
	if len(la) != 2 || len(lb) != 2 {
		exceptions.Panicf("MmaOp requires rank-2 operands, got %s and %s", a, b)
	}
	ka, kb := la[1].ExtentVal(), lb[0].ExtentVal()
	if ka.id != kb.id && !(ka.IsConst() && kb.IsConst() && ka.IntValue() == kb.IntValue()) {
		exceptions.Panicf("MmaOp: contracted extents disagree between %s and %s", a, b)
	}
	axes := []*IterDomain{
		{fusion: f, extent: la[0].extent, parallel: ParallelTypeSerial},
		{fusion: f, extent: lb[1].extent, parallel: ParallelTypeSerial},
		{fusion: f, extent: la[1].extent, parallel: ParallelTypeSerial, isReduction: true},
	}
	out := f.newTensorView(a.dtype, axes)
	f.registerExpr(&Expr{
		kind: ExprKindMma,
		init: []ValID{f.ConstantOf(a.dtype, 0)},
		inputs: []ValID{
			a.val, b.val,
		},
		outputs: []ValID{out.val},
		mma:     options,
	})
	return out
}

// ViewAsScalar reinterprets each element of a vector-typed tensor as
// vectorSize scalar elements, appending an innermost axis of that extent.
func (f *Fusion) ViewAsScalar(in *TensorView, vectorSize int) *TensorView {
	if vectorSize < 2 {
		exceptions.Panicf("ViewAsScalar: vector size %d must be >= 2", vectorSize)
	}
	src := NoReductions(in.domain.domain)
	axes := make([]*IterDomain, len(src)+1)
	for i, a := range src {
		axes[i] = &IterDomain{fusion: f, extent: a.extent, parallel: ParallelTypeSerial, isBroadcast: a.isBroadcast}
	}
	vecID := &IterDomain{fusion: f, extent: f.IntConst(int64(vectorSize)), parallel: ParallelTypeSerial}
	axes[len(src)] = vecID
	out := f.newTensorView(in.dtype, axes)
	f.registerExpr(&Expr{
		kind:   ExprKindViewAsScalar,
		inputs: []ValID{in.val}, outputs: []ValID{out.val},
		vectorID: vecID,
	})
	return out
}
