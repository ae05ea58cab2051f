package ir

import (
	"github.com/gomlx/exceptions"
)

// MaxGroupedReductions bounds how many reductions one grouped expression can
// carry; the runtime kernel exchanges them through a fixed-width buffer set.
const MaxGroupedReductions = 8

// GroupReductions fuses separately-defined reductions into one grouped
// reduction that performs a single inter-block synchronization for all
// members. The outputs must all be defined by plain reductions over
// identically-shaped inputs, scheduled with the same transform history and
// the same per-axis parallelization, and must agree on allreduce semantics.
//
// All validation happens before any rewiring, so a panic leaves the fusion
// untouched.
func (f *Fusion) GroupReductions(outs []*TensorView) *Expr {
	if len(outs) < 2 {
		exceptions.Panicf("GroupReductions needs at least 2 reductions, got %d", len(outs))
	}
	if len(outs) > MaxGroupedReductions {
		exceptions.Panicf("GroupReductions: %d reductions exceed the maximum of %d",
			len(outs), MaxGroupedReductions)
	}
	defs := make([]*Expr, len(outs))
	for i, out := range outs {
		def := out.Val().Definition()
		if def == nil || def.kind != ExprKindReduction {
			exceptions.Panicf("GroupReductions: %s is not defined by a reduction", out.Name())
		}
		defs[i] = def
	}
	first := outs[0]
	firstFP := first.TransformFingerprint()
	for _, out := range outs[1:] {
		if !SameRootShape(first, out) {
			exceptions.Panicf("GroupReductions: %s and %s have different root shapes",
				first.Name(), out.Name())
		}
		if out.TransformFingerprint() != firstFP {
			exceptions.Panicf("GroupReductions: %s and %s were scheduled differently",
				first.Name(), out.Name())
		}
		for i, a := range out.Domain().Axes() {
			if a.ParallelType() != first.Axis(i).ParallelType() {
				exceptions.Panicf("GroupReductions: axis %d of %s is %s, of %s is %s",
					i, out.Name(), a.ParallelType(), first.Name(), first.Axis(i).ParallelType())
			}
		}
	}
	for _, def := range defs[1:] {
		if def.isAllreduce != defs[0].isAllreduce {
			exceptions.Panicf("GroupReductions: cannot mix allreduce and plain reductions")
		}
	}

	grouped := &Expr{
		kind:        ExprKindGroupedReduction,
		isAllreduce: defs[0].isAllreduce,
	}
	for _, def := range defs {
		grouped.ops = append(grouped.ops, def.op)
		grouped.init = append(grouped.init, def.init...)
		grouped.inputs = append(grouped.inputs, def.inputs...)
		grouped.outputs = append(grouped.outputs, def.outputs...)
	}
	for _, def := range defs {
		f.retireExpr(def)
	}
	f.registerExpr(grouped)
	return grouped
}

// retireExpr detaches an expression replaced by a rewrite: it is dropped from
// its inputs' use lists and skipped by ExprsInOrder.
func (f *Fusion) retireExpr(e *Expr) {
	for _, in := range e.inputs {
		v := f.Val(in)
		for i, use := range v.uses {
			if use == e.id {
				v.uses = append(v.uses[:i], v.uses[i+1:]...)
				break
			}
		}
	}
	e.kind = ExprKindInvalid
}
