package lower

import (
	"github.com/gomlx/exceptions"

	"github.com/zarzen/fuser/ir"
	"github.com/zarzen/fuser/kir"
	"github.com/zarzen/fuser/scheduler"
)

// loopKey identifies a loop for nest sharing between consecutive expressions:
// axes with the same extent, parallel type and flags iterate together, so a
// replayed schedule makes the whole fusion run under one nest.
type loopKey struct {
	extent      ir.ValID
	parallel    ir.ParallelType
	isReduction bool
	isBroadcast bool
}

func keyOf(id *ir.IterDomain) loopKey {
	return loopKey{
		extent:      id.Extent(),
		parallel:    id.ParallelType(),
		isReduction: id.IsReduction(),
		isBroadcast: id.IsBroadcast(),
	}
}

// loopNest keeps the open loop stack aligned with the leaf domain of the
// expression being lowered, reusing the shared prefix between consecutive
// expressions.
type loopNest struct {
	il      *indexLowering
	keys    []loopKey
	closers []func()
}

func (ln *loopNest) alignTo(axes []*ir.IterDomain) {
	common := 0
	for common < len(ln.keys) && common < len(axes) && ln.keys[common] == keyOf(axes[common]) {
		common++
	}
	ln.closeTo(common)
	for _, id := range axes[common:] {
		fl := kir.NewForLoop(ln.il.ctx.fusion, id, ln.il.loopIndexFor(id))
		ln.closers = append(ln.closers, ln.il.openLoop(fl))
		ln.keys = append(ln.keys, keyOf(id))
	}
}

func (ln *loopNest) closeTo(depth int) {
	for len(ln.closers) > depth {
		ln.closers[len(ln.closers)-1]()
		ln.closers = ln.closers[:len(ln.closers)-1]
		ln.keys = ln.keys[:len(ln.keys)-1]
	}
}

func (ln *loopNest) closeAll() { ln.closeTo(0) }

// loopIndexFor picks the index scalar of a loop: hardware dimensions iterate
// by their builtin index, vectorized axes are addressed as a unit, everything
// else gets a fresh index variable.
func (il *indexLowering) loopIndexFor(id *ir.IterDomain) ir.ValID {
	pt := id.ParallelType()
	switch {
	case pt.IsThread():
		return il.ctx.ParallelIndex(pt)
	case pt == ir.ParallelTypeVectorize:
		return il.ctx.Zero()
	}
	return il.ctx.fusion.NewIndexVar()
}

// loopAxesFor returns the leaf axes the expression's loop nest iterates: the
// scheduled domain of its (first) output. Multi-output expressions are
// validated to share transforms, so any output works.
func loopAxesFor(e *ir.Expr) []*ir.IterDomain {
	return e.Output(0).Tensor().Domain().Axes()
}

// LowerFusion lowers a scheduled fusion into a kernel: a loop nest per the
// scheduled domains with every expression rewritten in indexed form, plus the
// global buffers grid communication needs. Scheduling mistakes surface as
// errors rather than panics.
func LowerFusion(f *ir.Fusion, launch scheduler.LaunchParams) (kernel *kir.Kernel, err error) {
	err = exceptions.TryCatch[error](func() {
		kernel = lowerFusion(f, launch)
	})
	if err != nil {
		return nil, err
	}
	return kernel, nil
}

func lowerFusion(f *ir.Fusion, launch scheduler.LaunchParams) *kir.Kernel {
	ctx := NewContext(f, launch)
	il := &indexLowering{ctx: ctx}
	nest := &loopNest{il: il}

	for _, e := range f.ExprsInOrder() {
		nest.alignTo(loopAxesFor(e))
		il.handle(e)
	}
	nest.closeAll()

	kernel := &kir.Kernel{
		Name:   f.Name(),
		Body:   il.topLevel,
		Fusion: f,
	}
	kernel.Walk(func(s kir.Stmt) {
		if a, ok := s.(*kir.Allocate); ok && a.MemType == kir.MemoryTypeGlobal {
			kernel.GlobalAllocations = append(kernel.GlobalAllocations, a)
		}
	})
	return kernel
}
