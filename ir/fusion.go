// Package ir defines the fusion graph consumed by the scheduler and the
// lowering pass: tensor views with their iteration domains, expression nodes
// over them, and the symbolic scalars used for extents.
//
// A Fusion owns every node created for it, arena style: Val and Expr nodes
// live in slices inside the Fusion and refer to each other through typed
// integer ids (ValID, ExprID), never through cross-fusion pointers. The graph
// is append-only; once scheduling assigned parallel types, lowering treats it
// as read-only.
package ir

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// ValID is a unique id of a Val within its Fusion.
type ValID int32

// ExprID is a unique id of an Expr within its Fusion.
type ExprID int32

// InvalidValID marks an absent Val reference (e.g. an unset predicate).
const InvalidValID = ValID(-1)

// InvalidExprID marks an absent Expr reference (e.g. a fusion input's definition).
const InvalidExprID = ExprID(-1)

// Fusion is the dataflow graph of tensor operations compiled together into
// one device kernel. It owns all of its Val and Expr nodes.
type Fusion struct {
	name string

	vals  []*Val
	exprs []*Expr

	inputs  []ValID
	outputs []ValID

	// intConsts dedups integer constant scalars so extents compare by ValID.
	intConsts map[int64]ValID
	// namedScalars dedups symbolic scalars by name (threadIdx.x, blockDim.x, ...).
	namedScalars map[string]ValID
	// binOps dedups scalar arithmetic so identical extent expressions built
	// on different tensors resolve to the same Val.
	binOps map[binOpKey]ValID

	nextTensor int
	nextScalar int
	nextIndex  int
}

// NewFusion returns an empty fusion graph.
func NewFusion(name string) *Fusion {
	return &Fusion{
		name:         name,
		intConsts:    make(map[int64]ValID),
		namedScalars: make(map[string]ValID),
		binOps:       make(map[binOpKey]ValID),
	}
}

// Name of the fusion, set at construction.
func (f *Fusion) Name() string { return f.name }

func (f *Fusion) registerVal(v *Val) ValID {
	v.id = ValID(len(f.vals))
	v.fusion = f
	f.vals = append(f.vals, v)
	return v.id
}

func (f *Fusion) registerExpr(e *Expr) ExprID {
	e.id = ExprID(len(f.exprs))
	e.fusion = f
	e.predicate = InvalidValID
	e.writePredicate = InvalidValID
	f.exprs = append(f.exprs, e)
	for _, in := range e.inputs {
		f.Val(in).uses = append(f.Val(in).uses, e.id)
	}
	for _, out := range e.outputs {
		f.Val(out).definition = e.id
	}
	return e.id
}

// Val returns the value node with the given id. Panics on an invalid id.
func (f *Fusion) Val(id ValID) *Val {
	if id < 0 || int(id) >= len(f.vals) {
		exceptions.Panicf("fusion %q has no Val with id %d (%d vals)", f.name, id, len(f.vals))
	}
	return f.vals[id]
}

// Expr returns the expression node with the given id. Panics on an invalid id.
func (f *Fusion) Expr(id ExprID) *Expr {
	if id < 0 || int(id) >= len(f.exprs) {
		exceptions.Panicf("fusion %q has no Expr with id %d (%d exprs)", f.name, id, len(f.exprs))
	}
	return f.exprs[id]
}

// Inputs returns the fusion input values, in declaration order.
func (f *Fusion) Inputs() []*Val { return f.valsOf(f.inputs) }

// Outputs returns the fusion output values, in declaration order.
func (f *Fusion) Outputs() []*Val { return f.valsOf(f.outputs) }

func (f *Fusion) valsOf(ids []ValID) []*Val {
	out := make([]*Val, len(ids))
	for i, id := range ids {
		out[i] = f.Val(id)
	}
	return out
}

// AddOutput marks a value as a fusion output.
func (f *Fusion) AddOutput(v *Val) {
	if v.fusion != f {
		exceptions.Panicf("AddOutput: val %s belongs to a different fusion", v)
	}
	f.outputs = append(f.outputs, v.id)
}

// ExprsInOrder returns the live expressions in dependency order. Expressions
// are registered as they are created, and every input of an expression must
// exist before it, so registration order is already topological. Expressions
// retired by a rewrite (see GroupReductions) are skipped.
func (f *Fusion) ExprsInOrder() []*Expr {
	out := make([]*Expr, 0, len(f.exprs))
	for _, e := range f.exprs {
		if e.kind != ExprKindInvalid {
			out = append(out, e)
		}
	}
	return out
}

// OutputTensors returns the fusion outputs that are tensor views.
func (f *Fusion) OutputTensors() []*TensorView {
	var tvs []*TensorView
	for _, v := range f.Outputs() {
		if v.IsTensor() {
			tvs = append(tvs, v.Tensor())
		}
	}
	return tvs
}

// InputTensors returns the fusion inputs that are tensor views.
func (f *Fusion) InputTensors() []*TensorView {
	var tvs []*TensorView
	for _, v := range f.Inputs() {
		if v.IsTensor() {
			tvs = append(tvs, v.Tensor())
		}
	}
	return tvs
}

// AllTensors returns every tensor view registered in the fusion, in creation order.
func (f *Fusion) AllTensors() []*TensorView {
	var tvs []*TensorView
	for _, v := range f.vals {
		if v.IsTensor() {
			tvs = append(tvs, v.Tensor())
		}
	}
	return tvs
}

// IsStochastic reports whether any expression in the fusion draws from an RNG.
func (f *Fusion) IsStochastic() bool {
	for _, e := range f.exprs {
		if e.kind == ExprKindUnary && StochasticOpTypes.Has(e.op) {
			return true
		}
	}
	return false
}

// HasReduction reports whether any expression is a (grouped) reduction or welford.
func (f *Fusion) HasReduction() bool {
	for _, e := range f.exprs {
		switch e.kind {
		case ExprKindReduction, ExprKindGroupedReduction, ExprKindWelford:
			return true
		}
	}
	return false
}

// String prints a one-line-per-node description of the graph.
func (f *Fusion) String() string {
	parts := []string{fmt.Sprintf("Fusion %q: %d vals, %d exprs, %d inputs, %d outputs",
		f.name, len(f.vals), len(f.exprs), len(f.inputs), len(f.outputs))}
	for i, e := range f.exprs {
		parts = append(parts, fmt.Sprintf("#%d\t%s", i, e))
	}
	return strings.Join(parts, "\n")
}

// DType aliases so callers don't need to import gopjrt directly for the
// common cases.
var (
	Float32 = dtypes.Float32
	Float16 = dtypes.Float16
	Int64   = dtypes.Int64
	Int32   = dtypes.Int32
)
