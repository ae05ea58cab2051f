package ir

import (
	"github.com/gomlx/exceptions"
)

// RFactor splits a reduction into two stages. The listed axes (which must be
// reduction axes of the current domain) are reduced by a new intermediate
// tensor, which this method returns; the remaining reduction axes stay on the
// receiver, which now reduces the intermediate. Typical use is to rfactor a
// serial split factor so the parallel remainder becomes a tree reduction.
func (tv *TensorView) RFactor(axes []int) *TensorView {
	def := tv.Val().Definition()
	if def == nil || def.kind != ExprKindReduction {
		exceptions.Panicf("RFactor: %s is not defined by a reduction", tv.name)
	}
	n := tv.NDims()
	listed := make(map[int]bool, len(axes))
	for _, axis := range axes {
		if axis < 0 {
			axis += n
		}
		if axis < 0 || axis >= n {
			exceptions.Panicf("RFactor: axis out of range for %s", tv.name)
		}
		if !tv.domain.domain[axis].isReduction {
			exceptions.Panicf("RFactor: axis %d of %s is not a reduction", axis, tv.name)
		}
		listed[axis] = true
	}
	if len(listed) == 0 {
		exceptions.Panicf("RFactor on %s needs at least one axis", tv.name)
	}
	remaining := 0
	for i, a := range tv.domain.domain {
		if a.isReduction && !listed[i] {
			remaining++
		}
	}
	if remaining == 0 {
		exceptions.Panicf("RFactor on %s would leave no reduction axis on the final stage", tv.name)
	}

	f := tv.fusion

	// Partial stage takes over the scheduled axes; unlisted reductions
	// become its rfactor iteration axes.
	wasReduction := make([]bool, n)
	partialAxes := make([]*IterDomain, n)
	for i, a := range tv.domain.domain {
		wasReduction[i] = a.isReduction
		partialAxes[i] = a
		if a.isReduction && !listed[i] {
			a.isReduction = false
			a.isRFactor = true
		}
	}
	partial := f.newTensorView(tv.dtype, partialAxes)
	partial.domain.rfactor = NoReductions(partialAxes)
	partial.domain.history = append([]string(nil), tv.domain.history...)

	// The receiver keeps fresh clones of the surviving axes; unlisted
	// reductions stay reductions on the final stage.
	var finalAxes []*IterDomain
	for i, a := range partialAxes {
		if listed[i] {
			continue
		}
		c := a.clone()
		c.isRFactor = false
		c.isReduction = wasReduction[i]
		finalAxes = append(finalAxes, c)
	}
	tv.domain = NewTensorDomain(finalAxes)

	in := def.inputs[0]
	f.retireExpr(def)
	f.registerExpr(&Expr{
		kind: ExprKindReduction, op: def.op,
		init:   []ValID{def.init[0]},
		inputs: []ValID{in}, outputs: []ValID{partial.val},
	})
	f.registerExpr(&Expr{
		kind: ExprKindReduction, op: def.op,
		init:   []ValID{def.init[0]},
		inputs: []ValID{partial.val}, outputs: []ValID{tv.val},
		isAllreduce: def.isAllreduce,
	})
	return partial
}
