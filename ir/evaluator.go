package ir

import (
	"github.com/pkg/errors"
)

// Evaluator resolves symbolic integer scalars to concrete values once the
// runtime shapes of the fusion inputs are known. Bindings are external; the
// evaluator never mutates the fusion.
type Evaluator struct {
	fusion   *Fusion
	bindings map[ValID]int64
}

// NewEvaluator returns an evaluator with no bindings.
func NewEvaluator(f *Fusion) *Evaluator {
	return &Evaluator{fusion: f, bindings: make(map[ValID]int64)}
}

// Bind assigns a concrete value to a symbolic scalar.
func (ev *Evaluator) Bind(id ValID, value int64) {
	ev.bindings[id] = value
}

// BindShape binds the root extents of a tensor to the given runtime shape.
func (ev *Evaluator) BindShape(tv *TensorView, shape []int64) error {
	root := tv.Domain().RootAxes()
	if len(root) != len(shape) {
		return errors.Errorf("BindShape: %s has %d root axes, shape has %d dims",
			tv.Name(), len(root), len(shape))
	}
	for i, a := range root {
		ev.bindings[a.Extent()] = shape[i]
	}
	return nil
}

// Evaluate resolves a scalar to its concrete value, following arithmetic
// definitions. Unbound symbols make it fail.
func (ev *Evaluator) Evaluate(id ValID) (int64, error) {
	v := ev.fusion.Val(id)
	if !v.IsScalar() {
		return 0, errors.Errorf("Evaluate: %s is not a scalar", v)
	}
	if bound, ok := ev.bindings[id]; ok {
		return bound, nil
	}
	if v.IsConst() {
		if v.isFloat {
			return 0, errors.Errorf("Evaluate: %s is a floating-point constant", v)
		}
		return v.intValue, nil
	}
	if v.op == OpTypeInvalid {
		return 0, errors.Errorf("cannot evaluate %s: symbol is not bound", v)
	}
	lhs, err := ev.Evaluate(v.operands[0])
	if err != nil {
		return 0, err
	}
	rhs, err := ev.Evaluate(v.operands[1])
	if err != nil {
		return 0, err
	}
	switch v.op {
	case OpTypeAdd:
		return lhs + rhs, nil
	case OpTypeSub:
		return lhs - rhs, nil
	case OpTypeMul:
		return lhs * rhs, nil
	case OpTypeDiv:
		if rhs == 0 {
			return 0, errors.Errorf("cannot evaluate %s: division by zero", v)
		}
		return lhs / rhs, nil
	case OpTypeCeilDiv:
		if rhs == 0 {
			return 0, errors.Errorf("cannot evaluate %s: division by zero", v)
		}
		return (lhs + rhs - 1) / rhs, nil
	case OpTypeMod:
		if rhs == 0 {
			return 0, errors.Errorf("cannot evaluate %s: modulo by zero", v)
		}
		return lhs % rhs, nil
	case OpTypeMax:
		if lhs > rhs {
			return lhs, nil
		}
		return rhs, nil
	case OpTypeMin:
		if lhs < rhs {
			return lhs, nil
		}
		return rhs, nil
	}
	return 0, errors.Errorf("cannot evaluate %s: unsupported scalar operator %s", v, v.op)
}
