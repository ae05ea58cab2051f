package lower

import (
	"github.com/zarzen/fuser/ir"
	"github.com/zarzen/fuser/kir"
)

// Buffer sizing for grid communication. Work buffers hold one slot per
// participating hardware thread; the sync buffer holds one semaphore per
// block. All products are built with the folding extent arithmetic, so
// constant launch dimensions collapse to a single integer.

// consumedByReduction reports whether the out domain reduces over the given
// intra-block dimension. Threads along a reduced TID dim cooperate on one
// value, so the work buffer needs no slot per thread there.
func consumedByReduction(out *ir.TensorView, pt ir.ParallelType) bool {
	for _, id := range out.Domain().Axes() {
		if id.IsReduction() && id.ParallelType() == pt {
			return true
		}
	}
	return false
}

// consumedByBroadcast is the broadcast analogue: a TID dim the broadcast
// spans replicates one value, so it contributes no slots either.
func consumedByBroadcast(out *ir.TensorView, pt ir.ParallelType) bool {
	for _, id := range out.Domain().Axes() {
		if id.IsBroadcast() && id.ParallelType() == pt {
			return true
		}
	}
	return false
}

// privatizationLoops returns the open loops a non-allreduce grid operation is
// privatized over: real serial loops enclosing the expression. Thread,
// vectorized, unswitched and unit-extent loops carry no repeat entrances, and
// the operation's own reduction loops do not privatize it.
func (il *indexLowering) privatizationLoops() []*kir.ForLoop {
	var loops []*kir.ForLoop
	for _, fl := range il.forLoops {
		if fl.IsTrivial() || fl.IterDomain.IsReduction() {
			continue
		}
		loops = append(loops, fl)
	}
	return loops
}

// gridCommWorkBufferSize returns the element count of a grid reduction work
// buffer: the product of all active hardware dimensions, minus the TID dims
// the output's reduction or broadcast axes consume. BID dims always
// contribute, every block writes its partial result. Without allreduce the
// buffer is additionally privatized per serial entrance; with allreduce
// inside a serial loop it is double-buffered.
func (il *indexLowering) gridCommWorkBufferSize(out *ir.TensorView, isAllreduce bool) ir.ValID {
	f := il.ctx.fusion
	size := il.ctx.One()
	for _, pt := range ir.ParallelTypeThreads {
		if !il.ctx.HasParallelDim(pt) {
			continue
		}
		if pt.IsThreadDim() && (consumedByReduction(out, pt) || consumedByBroadcast(out, pt)) {
			continue
		}
		size = f.MulExtent(size, il.ctx.ParallelDim(pt))
	}
	loops := il.privatizationLoops()
	if isAllreduce {
		if len(loops) > 0 {
			size = f.MulExtent(size, f.IntConst(2))
		}
		return size
	}
	for _, fl := range loops {
		size = f.MulExtent(size, fl.IterDomain.Extent())
	}
	return size
}

// gridSyncBufferSize returns the semaphore count: one per block, the product
// of the active grid dimensions, privatized like the work buffer.
func (il *indexLowering) gridSyncBufferSize(isAllreduce bool) ir.ValID {
	f := il.ctx.fusion
	size := il.ctx.One()
	for _, pt := range ir.ParallelTypeBIDs {
		if !il.ctx.HasParallelDim(pt) {
			continue
		}
		size = f.MulExtent(size, il.ctx.ParallelDim(pt))
	}
	if !isAllreduce {
		for _, fl := range il.privatizationLoops() {
			size = f.MulExtent(size, fl.IterDomain.Extent())
		}
	}
	return size
}

// gridSyncDims returns the grid dimensions a grid synchronization spans: the
// BID dims the launch actually uses.
func (il *indexLowering) gridSyncDims() ir.ParallelTypeBitmap {
	var bitmap ir.ParallelTypeBitmap
	for _, pt := range ir.ParallelTypeBIDs {
		if il.ctx.HasParallelDim(pt) {
			bitmap = bitmap.With(pt)
		}
	}
	return bitmap
}

// gridBroadcastBufferSize returns the element count of a grid broadcast
// buffer: like the reduction work buffer, but TID dims the broadcast spans
// are skipped and the buffer is never privatized.
func (il *indexLowering) gridBroadcastBufferSize(out *ir.TensorView) ir.ValID {
	f := il.ctx.fusion
	size := il.ctx.One()
	for _, pt := range ir.ParallelTypeThreads {
		if !il.ctx.HasParallelDim(pt) {
			continue
		}
		if pt.IsThreadDim() && consumedByBroadcast(out, pt) {
			continue
		}
		size = f.MulExtent(size, il.ctx.ParallelDim(pt))
	}
	return size
}

// entrance linearizes the positions of the enclosing serial loops into a
// buffer slot index and the number of slots. Allreduce buffers are persistent
// and always use slot zero of one.
func (il *indexLowering) entrance(isAllreduce bool) (entranceIndex, nEntrances ir.ValID) {
	if isAllreduce {
		return il.ctx.Zero(), il.ctx.One()
	}
	f := il.ctx.fusion
	entranceIndex = il.ctx.Zero()
	nEntrances = il.ctx.One()
	for _, fl := range il.privatizationLoops() {
		entranceIndex = f.AddExtent(f.MulExtent(entranceIndex, fl.IterDomain.Extent()), fl.Index)
		nEntrances = f.MulExtent(nEntrances, fl.IterDomain.Extent())
	}
	return entranceIndex, nEntrances
}
