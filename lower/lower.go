package lower

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/zarzen/fuser/ir"
	"github.com/zarzen/fuser/kir"
)

// indexLowering is the single-pass rewriter from scheduled fusion expressions
// to kernel statements. It owns the scope stack; statements are appended to
// the innermost open loop, or to the top level when no loop is open.
type indexLowering struct {
	ctx *Context

	topLevel kir.Scope
	forLoops []*kir.ForLoop

	nextBuffer int

	// privatize records the schedule-wide buffer privatization decision,
	// fixed by the first grid operation lowered. Mixing privatized and
	// non-privatized grid communication in one kernel is rejected.
	privatize *bool
}

// Run lowers the given expressions in order into the current (initially
// top-level) scope and returns the emitted statements. Loop-nest
// construction is the caller's business; LowerFusion is the usual entry
// point.
func Run(ctx *Context, exprs []*ir.Expr) []kir.Stmt {
	il := &indexLowering{ctx: ctx}
	for _, e := range exprs {
		il.handle(e)
	}
	return il.topLevel.Stmts()
}

// Stream lowers a mixed input: fusion expressions are rewritten in indexed
// form, while statements pre-lowered by earlier passes (allocations, syncs,
// guards) are re-emitted into the current scope unchanged.
func Stream(ctx *Context, nodes []any) []kir.Stmt {
	il := &indexLowering{ctx: ctx}
	for _, n := range nodes {
		switch t := n.(type) {
		case *ir.Expr:
			il.handle(t)
		case kir.Stmt:
			il.emitPrelowered(t)
		default:
			exceptions.Panicf("cannot lower input of type %T", n)
		}
	}
	return il.topLevel.Stmts()
}

// emitPrelowered re-emits a statement produced by an earlier pass. Only the
// statement kinds earlier passes produce are accepted; anything else is a bug
// in the pass ordering.
func (il *indexLowering) emitPrelowered(s kir.Stmt) {
	switch s.(type) {
	case *kir.Allocate, *kir.BlockSync, *kir.GridSync, *kir.IfThenElse:
		il.pushBack(s)
	default:
		exceptions.Panicf("cannot re-emit pre-lowered statement %T", s)
	}
}

func (il *indexLowering) pushBack(stmt kir.Stmt) {
	if len(il.forLoops) == 0 {
		il.topLevel.Push(stmt)
		return
	}
	il.forLoops[len(il.forLoops)-1].Body.Push(stmt)
}

func (il *indexLowering) insertAtTopLevel(stmt kir.Stmt) {
	il.topLevel.InsertFront(stmt)
}

// openLoop pushes a loop onto the scope stack, appending it to the enclosing
// scope. The returned func pops it; callers defer it so the stack unwinds on
// panic too.
func (il *indexLowering) openLoop(fl *kir.ForLoop) func() {
	il.pushBack(fl)
	il.forLoops = append(il.forLoops, fl)
	return func() {
		if len(il.forLoops) == 0 || il.forLoops[len(il.forLoops)-1] != fl {
			exceptions.Panicf("scope stack corrupted while closing loop over %s", fl.IterDomain)
		}
		il.forLoops = il.forLoops[:len(il.forLoops)-1]
	}
}

// index computes the linear element offset of a tensor under the open loop
// nest: loop indices of the tensor's concrete axes, linearized row-major.
// Broadcast axes contribute nothing; reduction axes hold the accumulator at
// offset zero.
func (il *indexLowering) index(tv *ir.TensorView) ir.ValID {
	f := il.ctx.fusion
	idx := il.ctx.Zero()
	axes := tv.Domain().Axes()
	n := min(len(axes), len(il.forLoops))
	for p := 0; p < n; p++ {
		a := axes[p]
		if a.IsReduction() || a.IsBroadcast() {
			continue
		}
		idx = f.AddExtent(f.MulExtent(idx, a.Extent()), il.forLoops[p].Index)
	}
	return idx
}

func (il *indexLowering) dstIndex(v *ir.Val) *kir.TensorIndex {
	tv := v.Tensor()
	return &kir.TensorIndex{Tensor: tv, Index: il.index(tv)}
}

func (il *indexLowering) srcOperand(v *ir.Val) kir.Operand {
	if v.IsScalar() {
		return kir.ScalarOperand(il.ctx.fusion, v.ID())
	}
	tv := v.Tensor()
	return kir.TensorOperand(&kir.TensorIndex{Tensor: tv, Index: il.index(tv)})
}

func (il *indexLowering) predicateOf(e *ir.Expr) kir.Predicate {
	if e.Predicate() == ir.InvalidValID {
		return kir.Predicate{}
	}
	return kir.ValuePredicate(il.ctx.fusion, e.Predicate())
}

func (il *indexLowering) writePredicateOf(e *ir.Expr) kir.Predicate {
	if e.WritePredicate() == ir.InvalidValID {
		return kir.Predicate{}
	}
	return kir.ValuePredicate(il.ctx.fusion, e.WritePredicate())
}

// handle dispatches one expression. The kind set is closed; anything else is
// a bug in the caller.
func (il *indexLowering) handle(e *ir.Expr) {
	switch e.Kind() {
	case ir.ExprKindUnary:
		il.pushBack(&kir.UnaryOp{
			Op:        e.Op(),
			Out:       il.dstIndex(e.Output(0)),
			In:        il.srcOperand(e.Input(0)),
			Predicate: il.predicateOf(e),
		})
	case ir.ExprKindBinary:
		il.pushBack(&kir.BinaryOp{
			Op:        e.Op(),
			Out:       il.dstIndex(e.Output(0)),
			Lhs:       il.srcOperand(e.Input(0)),
			Rhs:       il.srcOperand(e.Input(1)),
			Predicate: il.predicateOf(e),
		})
	case ir.ExprKindTernary:
		il.pushBack(&kir.TernaryOp{
			Op:        e.Op(),
			Out:       il.dstIndex(e.Output(0)),
			A:         il.srcOperand(e.Input(0)),
			B:         il.srcOperand(e.Input(1)),
			C:         il.srcOperand(e.Input(2)),
			Predicate: il.predicateOf(e),
		})
	case ir.ExprKindReduction:
		il.handleReduction(e)
	case ir.ExprKindGroupedReduction:
		il.handleGroupedReduction(e)
	case ir.ExprKindWelford:
		il.handleWelford(e)
	case ir.ExprKindBroadcast:
		il.handleBroadcast(e)
	case ir.ExprKindMma:
		il.pushBack(&kir.MmaOp{
			Out:       il.dstIndex(e.Output(0)),
			A:         il.srcOperand(e.Input(0)),
			B:         il.srcOperand(e.Input(1)),
			Init:      e.Init()[0],
			Options:   e.Mma(),
			Predicate: il.predicateOf(e),
		})
	case ir.ExprKindViewAsScalar:
		il.handleViewAsScalar(e)
	default:
		exceptions.Panicf("cannot lower expression of kind %s: %s", e.Kind(), e)
	}
}

// reductionThreadDims collects the intra-block thread dimensions crossed by
// the reduction axes of the output domain.
func reductionThreadDims(out *ir.TensorView) ir.ParallelTypeBitmap {
	var bitmap ir.ParallelTypeBitmap
	for _, id := range out.Domain().Axes() {
		if id.IsReduction() && id.ParallelType().IsThreadDim() {
			bitmap = bitmap.With(id.ParallelType())
		}
	}
	return bitmap
}

// checkSerialGridReduction rejects a reduction axis that is serial while the
// reduction also spans the grid: that pattern needs an rfactor first.
func checkSerialGridReduction(out *ir.TensorView) {
	for i, id := range out.Domain().Axes() {
		if !id.IsReduction() || id.IsThread() || id.IsTrivial() {
			continue
		}
		switch id.ParallelType() {
		case ir.ParallelTypeVectorize, ir.ParallelTypeUnswitch, ir.ParallelTypeUnroll, ir.ParallelTypeMma:
			continue
		}
		exceptions.Panicf(
			"%s axis %d: a serial reduction axis cannot be combined with a grid reduction; rfactor the serial part first",
			out.Name(), i)
	}
}

// checkPrivatization enforces one schedule-wide buffer privatization choice.
func (il *indexLowering) checkPrivatization(privatize bool) {
	if il.privatize == nil {
		il.privatize = &privatize
		return
	}
	if *il.privatize != privatize {
		exceptions.Panicf("cannot mix privatized and non-privatized grid communication in one kernel")
	}
}

func (il *indexLowering) handleReduction(e *ir.Expr) {
	out := e.Output(0).Tensor()
	hasBlock := out.HasBlockReduction()
	hasGrid := out.HasGridReduction()

	if !hasGrid {
		r := kir.NewReductionOp(il.ctx.fusion, e.Op(), il.dstIndex(e.Output(0)),
			il.srcOperand(e.Input(0)), e.Init()[0])
		r.Predicate = il.predicateOf(e)
		r.WritePredicate = il.writePredicateOf(e)
		if hasBlock {
			r.ThreadDims = reductionThreadDims(out)
		}
		il.pushBack(r)
		if hasBlock {
			il.pushBack(&kir.BlockSync{})
		}
		return
	}

	checkSerialGridReduction(out)
	il.checkPrivatization(!e.IsAllreduce())

	work := il.allocGridBuffer("work", out.DType(),
		il.gridCommWorkBufferSize(out, e.IsAllreduce()))
	sync := il.allocGridBuffer("sync", ir.Int64, il.gridSyncBufferSize(e.IsAllreduce()))

	entranceIndex, nEntrances := il.entrance(e.IsAllreduce())

	gr := &kir.GridReduction{
		Op:             e.Op(),
		Out:            il.dstIndex(e.Output(0)),
		In:             il.srcOperand(e.Input(0)),
		Init:           e.Init()[0],
		WorkBuffer:     work,
		SyncBuffer:     sync,
		EntranceIndex:  entranceIndex,
		NEntrances:     nEntrances,
		IsAllreduce:    e.IsAllreduce(),
		ThreadPred:     il.ctx.ThreadPredicate(out),
		Predicate:      il.predicateOf(e),
		WritePredicate: il.writePredicateOf(e),
	}
	il.pushBack(gr)
	il.pushBack(&kir.GridSync{SyncDims: il.gridSyncDims(), SyncBuffer: sync})

	if e.IsAllreduce() {
		il.insertAtTopLevel(&kir.AllocateFusedReduction{GridExpr: gr})
	}
}

func (il *indexLowering) handleGroupedReduction(e *ir.Expr) {
	if len(e.Outputs()) > ir.MaxGroupedReductions {
		exceptions.Panicf("grouped reduction has %d members, maximum is %d",
			len(e.Outputs()), ir.MaxGroupedReductions)
	}
	first := e.Output(0).Tensor()
	hasBlock := first.HasBlockReduction()
	hasGrid := first.HasGridReduction()

	if !hasGrid {
		// Without grid communication the members need no shared state;
		// each lowers to its own (block) reduction.
		for i := range e.Outputs() {
			r := kir.NewReductionOp(il.ctx.fusion, e.Ops()[i], il.dstIndex(e.Output(i)),
				il.srcOperand(e.Input(i)), e.Init()[i])
			r.Predicate = il.predicateOf(e)
			r.WritePredicate = il.writePredicateOf(e)
			if hasBlock {
				r.ThreadDims = reductionThreadDims(e.Output(i).Tensor())
			}
			il.pushBack(r)
		}
		if hasBlock {
			il.pushBack(&kir.BlockSync{})
		}
		return
	}

	checkSerialGridReduction(first)
	il.checkPrivatization(!e.IsAllreduce())

	workBuffers := make([]*kir.Allocate, len(e.Outputs()))
	for i := range e.Outputs() {
		workBuffers[i] = il.allocGridBuffer("work", e.Output(i).DType(),
			il.gridCommWorkBufferSize(e.Output(i).Tensor(), e.IsAllreduce()))
	}
	sync := il.allocGridBuffer("sync", ir.Int64, il.gridSyncBufferSize(e.IsAllreduce()))

	entranceIndex, nEntrances := il.entrance(e.IsAllreduce())

	outs := make([]*kir.TensorIndex, len(e.Outputs()))
	ins := make([]kir.Operand, len(e.Inputs()))
	for i := range e.Outputs() {
		outs[i] = il.dstIndex(e.Output(i))
		ins[i] = il.srcOperand(e.Input(i))
	}
	gr := &kir.GroupedGridReduction{
		Ops:            append([]ir.OpType(nil), e.Ops()...),
		Outs:           outs,
		Ins:            ins,
		Inits:          append([]ir.ValID(nil), e.Init()...),
		WorkBuffers:    workBuffers,
		SyncBuffer:     sync,
		EntranceIndex:  entranceIndex,
		NEntrances:     nEntrances,
		IsAllreduce:    e.IsAllreduce(),
		ThreadPred:     il.ctx.ThreadPredicate(first),
		Predicate:      il.predicateOf(e),
		WritePredicate: il.writePredicateOf(e),
	}
	il.pushBack(gr)
	il.pushBack(&kir.GridSync{SyncDims: il.gridSyncDims(), SyncBuffer: sync})

	if e.IsAllreduce() {
		il.insertAtTopLevel(&kir.AllocateFusedReduction{GridExpr: gr})
	}
}

func (il *indexLowering) handleWelford(e *ir.Expr) {
	avg := e.Output(0).Tensor()
	hasBlock := avg.HasBlockReduction()
	hasGrid := avg.HasGridReduction()

	outAvg, outVar, outN := il.dstIndex(e.Output(0)), il.dstIndex(e.Output(1)), il.dstIndex(e.Output(2))
	in := il.srcOperand(e.Input(0))

	base := &kir.WelfordOp{
		OutAvg: outAvg, OutVar: outVar, OutN: outN,
		InAvg: in,
		InVar: kir.ScalarOperand(il.ctx.fusion, e.Init()[1]),
		InN:   kir.ScalarOperand(il.ctx.fusion, e.Init()[2]),
		InitAvg: e.Init()[0], InitVar: e.Init()[1], InitN: e.Init()[2],
		Predicate: il.predicateOf(e),
	}
	if hasBlock {
		base.ThreadDims = reductionThreadDims(avg)
	}
	if !hasGrid {
		il.pushBack(base)
		if hasBlock {
			il.pushBack(&kir.BlockSync{})
		}
		return
	}

	checkSerialGridReduction(avg)
	il.checkPrivatization(!e.IsAllreduce())

	if hasBlock && !e.IsAllreduce() {
		// The intra-block stage runs separately before the grid exchange;
		// every thread must contribute, so it is unconditionally executed.
		base.BlockReduceSeparated = true
		base.Predicate = kir.TruePredicate()
		il.pushBack(base)
	}

	avgBuf := il.allocGridBuffer("work", avg.DType(), il.gridCommWorkBufferSize(avg, e.IsAllreduce()))
	varBuf := il.allocGridBuffer("work", avg.DType(), il.gridCommWorkBufferSize(avg, e.IsAllreduce()))
	nBuf := il.allocGridBuffer("work", ir.Int64, il.gridCommWorkBufferSize(avg, e.IsAllreduce()))
	sync := il.allocGridBuffer("sync", ir.Int64, il.gridSyncBufferSize(e.IsAllreduce()))

	entranceIndex, nEntrances := il.entrance(e.IsAllreduce())

	gridStage := base
	if base.BlockReduceSeparated {
		gridStage = &kir.WelfordOp{
			OutAvg: outAvg, OutVar: outVar, OutN: outN,
			InAvg: kir.TensorOperand(outAvg), InVar: kir.TensorOperand(outVar), InN: kir.TensorOperand(outN),
			InitAvg: e.Init()[0], InitVar: e.Init()[1], InitN: e.Init()[2],
			Predicate: il.predicateOf(e),
		}
	}
	gw := &kir.GridWelford{
		Welford:        gridStage,
		AvgBuffer:      avgBuf,
		VarBuffer:      varBuf,
		NBuffer:        nBuf,
		SyncBuffer:     sync,
		EntranceIndex:  entranceIndex,
		NEntrances:     nEntrances,
		IsAllreduce:    e.IsAllreduce(),
		ThreadPred:     il.ctx.ThreadPredicate(avg),
		Predicate:      il.predicateOf(e),
		WritePredicate: il.writePredicateOf(e),
	}
	il.pushBack(gw)
	il.pushBack(&kir.GridSync{SyncDims: il.gridSyncDims(), SyncBuffer: sync})

	if e.IsAllreduce() {
		il.insertAtTopLevel(&kir.AllocateFusedReduction{GridExpr: gw})
	}
}

func (il *indexLowering) handleBroadcast(e *ir.Expr) {
	dims := il.ctx.BroadcastDims(e)
	out := e.Output(0).Tensor()
	b := &kir.BroadcastOp{
		Out:        il.dstIndex(e.Output(0)),
		In:         il.srcOperand(e.Input(0)),
		ThreadDims: dims,
	}
	if !dims.HasBID() {
		il.pushBack(b)
		if dims.HasTID() {
			il.pushBack(&kir.BlockSync{})
		}
		return
	}

	// The broadcast crosses blocks: route the value through global memory.
	work := il.allocGridBuffer("bcast", out.DType(), il.gridBroadcastBufferSize(out))
	sync := il.allocGridBuffer("sync", ir.Int64, il.gridSyncBufferSize(false))
	il.pushBack(&kir.GridBroadcast{
		Broadcast:       b,
		BroadcastBuffer: work,
		SyncBuffer:      sync,
	})
	il.pushBack(&kir.GridSync{SyncDims: il.gridSyncDims(), SyncBuffer: sync})
}

func (il *indexLowering) handleViewAsScalar(e *ir.Expr) {
	var vectorIndex ir.ValID = ir.InvalidValID
	for _, fl := range il.forLoops {
		if fl.IterDomain == e.VectorID() {
			vectorIndex = fl.Index
			break
		}
	}
	if vectorIndex == ir.InvalidValID {
		exceptions.Panicf("no enclosing loop iterates the vector axis %s of %s",
			e.VectorID(), e.Output(0).Tensor().Name())
	}
	il.pushBack(&kir.ViewAsScalarOp{
		Out:      il.dstIndex(e.Output(0)),
		In:       il.srcOperand(e.Input(0)),
		VectorID: e.VectorID(),
	})
}

// allocGridBuffer emits a zero-initialized global scratch allocation into the
// current scope.
func (il *indexLowering) allocGridBuffer(tag string, dtype dtypes.DType, size ir.ValID) *kir.Allocate {
	name := fmt.Sprintf("fused_%s_%d", tag, il.nextBuffer)
	il.nextBuffer++
	a := kir.NewAllocate(il.ctx.fusion, name, kir.MemoryTypeGlobal, dtype, size)
	a.Zero = true
	il.pushBack(a)
	return a
}
