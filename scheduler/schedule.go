package scheduler

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/zarzen/fuser/ir"
)

// stepKind discriminates the recorded transform steps.
type stepKind int

const (
	stepSplit stepKind = iota
	stepMerge
	stepReorder
	stepParallelize
)

// step is one transform applied to the reference tensor, replayed verbatim on
// every other tensor during propagation.
type step struct {
	kind stepKind
	a, b int
	perm map[int]int
	pt   ir.ParallelType
}

// recorder applies transforms to the reference while keeping the replay log.
type recorder struct {
	tv    *ir.TensorView
	steps []step
}

func (r *recorder) split(axis, factor int) {
	r.tv.Split(axis, factor)
	r.steps = append(r.steps, step{kind: stepSplit, a: axis, b: factor})
}

func (r *recorder) merge(outer, inner int) {
	r.tv.Merge(outer, inner)
	r.steps = append(r.steps, step{kind: stepMerge, a: outer, b: inner})
}

func (r *recorder) reorder(old2new map[int]int) {
	r.tv.Reorder(old2new)
	r.steps = append(r.steps, step{kind: stepReorder, perm: old2new})
}

func (r *recorder) parallelize(axis int, pt ir.ParallelType) {
	r.tv.Axis(axis).Parallelize(pt)
	r.steps = append(r.steps, step{kind: stepParallelize, a: axis, pt: pt})
}

func replay(tv *ir.TensorView, steps []step) {
	for _, s := range steps {
		switch s.kind {
		case stepSplit:
			tv.Split(s.a, s.b)
		case stepMerge:
			tv.Merge(s.a, s.b)
		case stepReorder:
			tv.Reorder(s.perm)
		case stepParallelize:
			tv.Axis(s.a).Parallelize(s.pt)
		}
	}
}

// Schedule applies the pointwise parameters to the fusion: it transforms the
// reference tensor into the chosen loop-nest shape, tags parallel types, then
// propagates the identical transform to every other tensor view. It must be
// called exactly once per fusion; an already-transformed domain is rejected.
func Schedule(f *ir.Fusion, params Params) error {
	if f.HasReduction() {
		return errors.Errorf("pointwise scheduler only handles pointwise fusions")
	}
	ref := ReferenceTensor(f)
	if ref == nil {
		return nil
	}
	for _, tv := range f.AllTensors() {
		if tv.TransformFingerprint() != "" {
			return errors.Errorf("fusion %q is already scheduled (%s has transforms applied)",
				f.Name(), tv.Name())
		}
	}
	refRank := ref.NDims()
	for _, tv := range f.AllTensors() {
		if tv == ref {
			continue
		}
		if tv.NDims() != refRank {
			return errors.Errorf("cannot align %s (rank %d) to reference %s (rank %d)",
				tv.Name(), tv.NDims(), ref.Name(), refRank)
		}
		for i := 0; i < refRank; i++ {
			if ref.Axis(i).IsBroadcast() && !tv.Axis(i).IsBroadcast() {
				return errors.Errorf("cannot align %s to reference %s: axis %d is concrete where the reference broadcasts",
					tv.Name(), ref.Name(), i)
			}
		}
	}

	rec := &recorder{tv: ref}
	bdimx := int(params.Launch.BDimX)
	bdimy := int(params.Launch.BDimY)
	inner := int(params.InnerFactor)

	// Merge the concrete axes right of the break point into one, then move
	// the merged axis innermost.
	rhs := -1
	for i := ref.NDims(); i > params.BreakPoint; i-- {
		axis := i - 1
		if ref.Axis(axis).IsBroadcast() || ref.Axis(axis).IsReduction() {
			continue
		}
		if rhs == -1 {
			rhs = axis
		} else {
			rec.merge(axis, rhs)
			rhs = axis
		}
	}
	if rhs >= 0 {
		rec.reorder(map[int]int{rhs: -1})
	}

	// Merge the concrete axes left of the break point into one.
	lhs := -1
	for i := params.BreakPoint; i > 0; i-- {
		axis := i - 1
		if ref.Axis(axis).IsBroadcast() || ref.Axis(axis).IsReduction() {
			continue
		}
		if lhs == -1 {
			lhs = axis
		} else {
			rec.merge(axis, lhs)
			lhs = axis
		}
	}

	if params.BreakPoint > 0 {
		if rhs < 0 || lhs < 0 {
			return errors.Errorf("break point %d has an empty side on reference %s",
				params.BreakPoint, ref.Name())
		}
		rec.reorder(map[int]int{lhs: 0, -1: 1})
		// [outer, inner, unmerged...]
		if params.Vectorize {
			rec.split(1, inner)
			rec.split(1, bdimx)
			rec.split(0, 1)
			// [outer, Unswitch, i-remainder, TIDx, Vectorize]
			rec.parallelize(1, ir.ParallelTypeUnswitch)
			rec.parallelize(3, ir.ParallelTypeTIDx)
			rec.parallelize(4, ir.ParallelTypeVectorize)
			rec.reorder(map[int]int{1: 2, 2: 1, 3: 4, 4: 3})
			// [outer, i-remainder, Unswitch, Vectorize, TIDx]
		} else {
			rec.split(1, bdimx)
			rec.split(1, inner)
			rec.split(0, 1)
			// [outer, Unswitch, i-remainder, unroll, TIDx]
			rec.reorder(map[int]int{1: 2})
			// [outer, i-remainder, Unswitch, unroll, TIDx]
			rec.parallelize(2, ir.ParallelTypeUnswitch)
			rec.parallelize(3, ir.ParallelTypeUnroll)
			rec.parallelize(4, ir.ParallelTypeTIDx)
		}

		rec.reorder(map[int]int{1: 0})
		// [i-remainder, outer, ...]
		if params.SplitBlock {
			rec.split(1, bdimy)
			rec.parallelize(1, ir.ParallelTypeBIDx)
			rec.parallelize(2, ir.ParallelTypeTIDy)
		} else {
			rec.parallelize(1, ir.ParallelTypeBIDx)
			if params.SplitGridY {
				rec.split(0, int(MaxGridYDim))
				rec.parallelize(1, ir.ParallelTypeBIDy)
			} else {
				rec.parallelize(0, ir.ParallelTypeBIDy)
			}
		}
	} else {
		if rhs < 0 {
			return errors.Errorf("reference %s has no concrete axis to schedule", ref.Name())
		}
		// Move the merged axis from innermost to leftmost.
		rec.reorder(map[int]int{-1: 0})

		if params.Vectorize {
			rec.split(0, inner)
			rec.split(0, 1)
			rec.split(0, bdimx)
			rec.parallelize(0, ir.ParallelTypeBIDx)
			rec.parallelize(1, ir.ParallelTypeTIDx)
			rec.parallelize(2, ir.ParallelTypeUnswitch)
			rec.parallelize(-1, ir.ParallelTypeVectorize)
			// [BIDx, TIDx, Unswitch, Vectorize] -> [BIDx, Unswitch, Vectorize, TIDx]
			rec.reorder(map[int]int{1: 3, 2: 1, 3: 2})
		} else {
			rec.split(0, bdimx)
			rec.split(0, inner)
			rec.split(0, 1)
			// [BIDx, Unswitch, unroll, TIDx]
			rec.parallelize(0, ir.ParallelTypeBIDx)
			rec.parallelize(1, ir.ParallelTypeUnswitch)
			rec.parallelize(2, ir.ParallelTypeUnroll)
			rec.parallelize(3, ir.ParallelTypeTIDx)
		}
	}

	// Propagate the recorded transform to every other tensor.
	for _, tv := range f.AllTensors() {
		if tv == ref {
			continue
		}
		replay(tv, rec.steps)
	}

	// Vectorization was tagged aggressively through the replay; clear it on
	// tensors that cannot be vectorized.
	if params.Vectorize {
		vectorizable := make(map[*ir.TensorView]bool)
		for _, tv := range vectorizableTensors(f, ref) {
			vectorizable[tv] = true
		}
		vectorizable[ref] = true
		for _, tv := range f.AllTensors() {
			if vectorizable[tv] {
				continue
			}
			for _, id := range tv.Domain().Axes() {
				if id.ParallelType() == ir.ParallelTypeVectorize {
					id.Parallelize(ir.ParallelTypeSerial)
				}
			}
		}
	}

	klog.V(2).Infof("scheduled fusion %q on reference %s: %s", f.Name(), ref.Name(), ref)
	return nil
}
