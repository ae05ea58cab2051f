package ir

import (
	"github.com/zarzen/fuser/types"
)

// OpType is the operator tag carried by an Expr. Scalar extent arithmetic
// (CeilDiv and friends) shares the same enum so the Evaluator can resolve
// symbolic sizes with a single dispatch.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota
	OpTypeSet
	OpTypeCast
	OpTypeNeg
	OpTypeAbs
	OpTypeExp
	OpTypeLog
	OpTypeSqrt
	OpTypeRsqrt
	OpTypeSigmoid
	OpTypeRelu
	OpTypeRandLike

	OpTypeAdd
	OpTypeSub
	OpTypeMul
	OpTypeDiv
	OpTypeCeilDiv
	OpTypeMod
	OpTypeMax
	OpTypeMin
	OpTypePow

	OpTypeWhere
	OpTypeClamp
	OpTypeFma
)

var (
	// UnaryOpTypes take a single input.
	UnaryOpTypes = types.SetWith(
		OpTypeSet,
		OpTypeCast,
		OpTypeNeg,
		OpTypeAbs,
		OpTypeExp,
		OpTypeLog,
		OpTypeSqrt,
		OpTypeRsqrt,
		OpTypeSigmoid,
		OpTypeRelu,
		OpTypeRandLike,
	)

	// BinaryOpTypes take a lhs and a rhs input.
	BinaryOpTypes = types.SetWith(
		OpTypeAdd,
		OpTypeSub,
		OpTypeMul,
		OpTypeDiv,
		OpTypeCeilDiv,
		OpTypeMod,
		OpTypeMax,
		OpTypeMin,
		OpTypePow,
	)

	// TernaryOpTypes take three inputs.
	TernaryOpTypes = types.SetWith(
		OpTypeWhere,
		OpTypeClamp,
		OpTypeFma,
	)

	// ReductionOpTypes are the binary operators that can serve as the
	// combine function of a ReductionOp.
	ReductionOpTypes = types.SetWith(
		OpTypeAdd,
		OpTypeMul,
		OpTypeMax,
		OpTypeMin,
	)

	// StochasticOpTypes produce values that depend on an RNG state. Their
	// presence in a fusion disables unrolling when deterministic testing
	// is requested.
	StochasticOpTypes = types.SetWith(
		OpTypeRandLike,
	)
)
