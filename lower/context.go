// Package lower turns a scheduled fusion into kernel IR: every expression is
// rewritten in indexed, device-addressable form, block- and grid-level
// reductions/broadcasts get their synchronization buffers, and the result is
// assembled into a kir.Kernel for a downstream code generator.
package lower

import (
	"github.com/gomlx/exceptions"

	"github.com/zarzen/fuser/ir"
	"github.com/zarzen/fuser/scheduler"
)

// Context carries the shared lowering state for one fusion: the parallel
// dimension map, thread predicates, and cached common scalars. It is built
// once per lowering and passed explicitly; there is no global current-lower
// singleton.
type Context struct {
	fusion *ir.Fusion
	launch scheduler.LaunchParams

	// parallelDims maps each thread parallel type to its extent, read off
	// the scheduled domains (first axis found bound to the type).
	parallelDims map[ir.ParallelType]ir.ValID

	zero ir.ValID
	one  ir.ValID
	tru  ir.ValID
}

// NewContext scans the scheduled fusion and precomputes the lowering state.
func NewContext(f *ir.Fusion, launch scheduler.LaunchParams) *Context {
	ctx := &Context{
		fusion:       f,
		launch:       launch,
		parallelDims: make(map[ir.ParallelType]ir.ValID),
		zero:         f.Zero(),
		one:          f.One(),
		tru:          f.NamedScalar("true"),
	}
	for _, tv := range f.AllTensors() {
		for _, id := range tv.Domain().Axes() {
			pt := id.ParallelType()
			if !pt.IsThread() {
				continue
			}
			// A broadcast axis rides along a hardware dimension without
			// defining its extent.
			if id.IsBroadcast() {
				continue
			}
			if prev, found := ctx.parallelDims[pt]; found {
				ctx.checkConsistentDim(pt, prev, id.Extent(), tv)
				continue
			}
			ctx.parallelDims[pt] = id.Extent()
		}
	}
	return ctx
}

func (ctx *Context) checkConsistentDim(pt ir.ParallelType, prev, cur ir.ValID, tv *ir.TensorView) {
	if prev == cur {
		return
	}
	pv, cv := ctx.fusion.Val(prev), ctx.fusion.Val(cur)
	if pv.IsConst() && cv.IsConst() && pv.IntValue() != cv.IntValue() {
		exceptions.Panicf("inconsistent %s extents: %s binds %s, previously %s",
			pt, tv.Name(), cv, pv)
	}
}

// Fusion the context was built for.
func (ctx *Context) Fusion() *ir.Fusion { return ctx.fusion }

// Launch returns the launch parameters the schedule bound.
func (ctx *Context) Launch() scheduler.LaunchParams { return ctx.launch }

// ParallelDim returns the extent bound to a thread parallel type, or the
// constant one when nothing in the fusion uses it.
func (ctx *Context) ParallelDim(pt ir.ParallelType) ir.ValID {
	if id, found := ctx.parallelDims[pt]; found {
		return id
	}
	return ctx.one
}

// HasParallelDim reports whether any axis is bound to the parallel type with
// a non-trivial extent.
func (ctx *Context) HasParallelDim(pt ir.ParallelType) bool {
	id, found := ctx.parallelDims[pt]
	return found && !ctx.fusion.Val(id).IsOneInt()
}

// ParallelIndex returns the builtin index scalar of a parallel type
// (threadIdx.x, blockIdx.y, ...).
func (ctx *Context) ParallelIndex(pt ir.ParallelType) ir.ValID {
	var name string
	switch pt {
	case ir.ParallelTypeTIDx:
		name = "threadIdx.x"
	case ir.ParallelTypeTIDy:
		name = "threadIdx.y"
	case ir.ParallelTypeTIDz:
		name = "threadIdx.z"
	case ir.ParallelTypeBIDx:
		name = "blockIdx.x"
	case ir.ParallelTypeBIDy:
		name = "blockIdx.y"
	case ir.ParallelTypeBIDz:
		name = "blockIdx.z"
	default:
		exceptions.Panicf("%s has no builtin index", pt)
	}
	return ctx.fusion.NamedScalar(name)
}

// Zero returns the cached integer constant 0.
func (ctx *Context) Zero() ir.ValID { return ctx.zero }

// One returns the cached integer constant 1.
func (ctx *Context) One() ir.ValID { return ctx.one }

// True returns the cached boolean true scalar.
func (ctx *Context) True() ir.ValID { return ctx.tru }

// ThreadPredicate returns the parallel types along which the tensor's value
// is redundant: after a (grouped) reduction or welford, only one thread per
// reduced thread dimension holds the result, so uses and writes must be
// restricted to it. Allreduce results are valid everywhere.
func (ctx *Context) ThreadPredicate(tv *ir.TensorView) ir.ParallelTypeBitmap {
	var bitmap ir.ParallelTypeBitmap
	def := tv.Val().Definition()
	if def == nil {
		return bitmap
	}
	switch def.Kind() {
	case ir.ExprKindReduction, ir.ExprKindGroupedReduction, ir.ExprKindWelford:
		if def.IsAllreduce() {
			return bitmap
		}
		for _, id := range tv.Domain().Axes() {
			if id.IsReduction() && id.IsThread() {
				bitmap = bitmap.With(id.ParallelType())
			}
		}
	}
	return bitmap
}

// BroadcastDims returns the thread parallel types a broadcast expression
// spans: the parallel types of the scheduled broadcast axes of its output.
// Any BID bit present makes it a grid broadcast.
func (ctx *Context) BroadcastDims(e *ir.Expr) ir.ParallelTypeBitmap {
	var bitmap ir.ParallelTypeBitmap
	if e.Kind() != ir.ExprKindBroadcast {
		exceptions.Panicf("BroadcastDims called on %s expression", e.Kind())
	}
	out := e.Output(0).Tensor()
	for _, id := range out.Domain().Axes() {
		if id.IsBroadcast() && id.IsThread() {
			bitmap = bitmap.With(id.ParallelType())
		}
	}
	return bitmap
}
