package ir

import (
	"fmt"
	"strings"
)

// ExprKind is the closed set of expression variants of the fusion graph.
// Dispatch over expressions is always an exhaustive switch on this tag; a
// default branch panics, so a new kind cannot be silently ignored.
type ExprKind int

//go:generate go tool enumer -type=ExprKind -trimprefix=ExprKind -output=gen_exprkind_enumer.go expr.go

const (
	ExprKindInvalid ExprKind = iota
	ExprKindUnary
	ExprKindBinary
	ExprKindTernary
	ExprKindReduction
	ExprKindGroupedReduction
	ExprKindWelford
	ExprKindBroadcast
	ExprKindMma
	ExprKindViewAsScalar
)

// Expr is an operation node of the fusion graph. One struct serves all kinds;
// the kind tag says which payload fields are meaningful:
//
//   - Unary/Binary/Ternary: op, inputs, outputs[0].
//   - Reduction: op (combine fn), init[0], inputs[0], outputs[0], isAllreduce.
//   - GroupedReduction: ops[i]/init[i]/inputs[i]/outputs[i] per group member.
//   - Welford: inputs[0], init (avg, var, N or empty), outputs (avg, var, N).
//   - Broadcast: inputs[0], outputs[0], broadcastFlags per output axis.
//   - Mma: inputs (A, B), init[0], outputs[0], mma options.
//   - ViewAsScalar: inputs[0], outputs[0], vectorID (the appended axis).
type Expr struct {
	id     ExprID
	fusion *Fusion
	kind   ExprKind

	op  OpType
	ops []OpType

	inputs  []ValID
	outputs []ValID
	init    []ValID

	isAllreduce    bool
	broadcastFlags []bool
	mma            MmaOptions
	vectorID       *IterDomain

	predicate      ValID
	writePredicate ValID
}

// ID of the expression within its fusion.
func (e *Expr) ID() ExprID { return e.id }

// Fusion owning this expression.
func (e *Expr) Fusion() *Fusion { return e.fusion }

// Kind tag of the expression.
func (e *Expr) Kind() ExprKind { return e.kind }

// Op returns the operator tag. For GroupedReduction use Ops.
func (e *Expr) Op() OpType { return e.op }

// Ops returns the per-member combine operators of a grouped reduction.
func (e *Expr) Ops() []OpType { return e.ops }

// Inputs returns the input value ids.
func (e *Expr) Inputs() []ValID { return e.inputs }

// Outputs returns the output value ids.
func (e *Expr) Outputs() []ValID { return e.outputs }

// Input returns the i-th input as a *Val.
func (e *Expr) Input(i int) *Val { return e.fusion.Val(e.inputs[i]) }

// Output returns the i-th output as a *Val.
func (e *Expr) Output(i int) *Val { return e.fusion.Val(e.outputs[i]) }

// Init returns the initial (identity) values of a reduction-family expression.
func (e *Expr) Init() []ValID { return e.init }

// IsAllreduce reports whether a (grouped) reduction or welford broadcasts its
// result back to all participating threads.
func (e *Expr) IsAllreduce() bool { return e.isAllreduce }

// BroadcastFlags returns, per output axis, whether the axis is broadcast.
func (e *Expr) BroadcastFlags() []bool { return e.broadcastFlags }

// Mma returns the matrix-multiply options of an ExprKindMma expression.
func (e *Expr) Mma() MmaOptions { return e.mma }

// VectorID returns the vector axis appended by an ExprKindViewAsScalar.
func (e *Expr) VectorID() *IterDomain { return e.vectorID }

// Predicate returns the read predicate, or InvalidValID when unset.
func (e *Expr) Predicate() ValID { return e.predicate }

// WritePredicate returns the write predicate, or InvalidValID when unset.
func (e *Expr) WritePredicate() ValID { return e.writePredicate }

// SetPredicate attaches a read predicate.
func (e *Expr) SetPredicate(id ValID) { e.predicate = id }

// SetWritePredicate attaches a write predicate.
func (e *Expr) SetWritePredicate(id ValID) { e.writePredicate = id }

// IsReductionFamily reports whether the expression accumulates over reduction
// axes (reduction, grouped reduction, welford, or mma).
func (e *Expr) IsReductionFamily() bool {
	switch e.kind {
	case ExprKindReduction, ExprKindGroupedReduction, ExprKindWelford, ExprKindMma:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (e *Expr) String() string {
	outs := make([]string, len(e.outputs))
	for i, id := range e.outputs {
		outs[i] = e.fusion.Val(id).String()
	}
	ins := make([]string, len(e.inputs))
	for i, id := range e.inputs {
		ins[i] = e.fusion.Val(id).String()
	}
	tag := e.kind.String()
	switch e.kind {
	case ExprKindUnary, ExprKindBinary, ExprKindTernary, ExprKindReduction:
		tag = fmt.Sprintf("%s<%s>", tag, e.op)
	case ExprKindGroupedReduction:
		opNames := make([]string, len(e.ops))
		for i, op := range e.ops {
			opNames[i] = op.String()
		}
		tag = fmt.Sprintf("%s<%s>", tag, strings.Join(opNames, ","))
	}
	if e.isAllreduce {
		tag += "/allreduce"
	}
	return fmt.Sprintf("%s = %s(%s)", strings.Join(outs, ", "), tag, strings.Join(ins, ", "))
}
