package kir

import (
	"fmt"
	"strings"

	"github.com/zarzen/fuser/ir"
)

// GridReduction reduces across grid dimensions through a global work buffer
// and a semaphore sync buffer. Without allreduce the work buffer is
// privatized per serial loop entrance using EntranceIndex/NEntrances; with
// allreduce a single persistent fused-reduction object handles the exchange
// and every participating thread receives the result.
type GridReduction struct {
	Op   ir.OpType
	Out  *TensorIndex
	In   Operand
	Init ir.ValID

	WorkBuffer *Allocate
	SyncBuffer *Allocate

	// EntranceIndex linearizes the positions of the surrounding serial
	// loops; NEntrances is the product of their extents. Both are the
	// integer constant 0 resp. 1 when the buffers are not privatized.
	EntranceIndex ir.ValID
	NEntrances    ir.ValID

	IsAllreduce    bool
	ThreadPred     ir.ParallelTypeBitmap
	Predicate      Predicate
	WritePredicate Predicate
}

func (g *GridReduction) isStmt() {}

// Print implements Stmt.
func (g *GridReduction) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	kind := "grid_reduce"
	if g.IsAllreduce {
		kind = "grid_allreduce"
	}
	fu := g.Out.Tensor.Val().Fusion()
	fmt.Fprintf(sb, "%s = %s<%s>(%s, init=%s, work=%s, sync=%s, entrance=%s/%s)\n",
		g.Out, kind, g.Op, g.In, fu.Val(g.Init),
		g.WorkBuffer.Name, g.SyncBuffer.Name,
		fu.Val(g.EntranceIndex), fu.Val(g.NEntrances))
}

// GroupedGridReduction carries several reductions through one grid exchange:
// each member has its own work buffer, all share one sync buffer and one
// synchronization.
type GroupedGridReduction struct {
	Ops   []ir.OpType
	Outs  []*TensorIndex
	Ins   []Operand
	Inits []ir.ValID

	WorkBuffers []*Allocate
	SyncBuffer  *Allocate

	EntranceIndex ir.ValID
	NEntrances    ir.ValID

	IsAllreduce    bool
	ThreadPred     ir.ParallelTypeBitmap
	Predicate      Predicate
	WritePredicate Predicate
}

func (g *GroupedGridReduction) isStmt() {}

// Print implements Stmt.
func (g *GroupedGridReduction) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	outs := make([]string, len(g.Outs))
	for i, o := range g.Outs {
		outs[i] = o.String()
	}
	ins := make([]string, len(g.Ins))
	for i, in := range g.Ins {
		ins[i] = in.String()
	}
	kind := "grouped_grid_reduce"
	if g.IsAllreduce {
		kind = "grouped_grid_allreduce"
	}
	fmt.Fprintf(sb, "(%s) = %s[%d](%s, sync=%s)\n",
		strings.Join(outs, ", "), kind, len(g.Ops), strings.Join(ins, ", "), g.SyncBuffer.Name)
}

// GridWelford reduces a welford triple across grid dimensions with one work
// buffer per component.
type GridWelford struct {
	Welford *WelfordOp

	AvgBuffer  *Allocate
	VarBuffer  *Allocate
	NBuffer    *Allocate
	SyncBuffer *Allocate

	EntranceIndex ir.ValID
	NEntrances    ir.ValID

	IsAllreduce    bool
	ThreadPred     ir.ParallelTypeBitmap
	Predicate      Predicate
	WritePredicate Predicate
}

func (g *GridWelford) isStmt() {}

// Print implements Stmt.
func (g *GridWelford) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	fmt.Fprintf(sb, "(%s, %s, %s) = grid_welford(%s, work=[%s %s %s], sync=%s)\n",
		g.Welford.OutAvg, g.Welford.OutVar, g.Welford.OutN,
		g.Welford.InAvg, g.AvgBuffer.Name, g.VarBuffer.Name, g.NBuffer.Name, g.SyncBuffer.Name)
}

// GridBroadcast broadcasts a value across grid dimensions through a global
// buffer; the buffers are never privatized.
type GridBroadcast struct {
	Broadcast *BroadcastOp

	BroadcastBuffer *Allocate
	SyncBuffer      *Allocate
}

func (g *GridBroadcast) isStmt() {}

// Print implements Stmt.
func (g *GridBroadcast) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	fmt.Fprintf(sb, "%s = grid_broadcast%s(%s, work=%s, sync=%s)\n",
		g.Broadcast.Out, g.Broadcast.ThreadDims, g.Broadcast.In,
		g.BroadcastBuffer.Name, g.SyncBuffer.Name)
}

// AllocateFusedReduction declares the persistent reduction object backing an
// allreduce. It must sit at the top level of the kernel, outside all loops,
// so every thread constructs it exactly once.
type AllocateFusedReduction struct {
	// GridExpr is the grid statement the object serves: a *GridReduction,
	// *GroupedGridReduction or *GridWelford with IsAllreduce set.
	GridExpr Stmt
}

func (a *AllocateFusedReduction) isStmt() {}

// Print implements Stmt.
func (a *AllocateFusedReduction) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	switch e := a.GridExpr.(type) {
	case *GridReduction:
		fmt.Fprintf(sb, "alloc_fused_reduction(-> %s)\n", e.Out)
	case *GroupedGridReduction:
		fmt.Fprintf(sb, "alloc_fused_reduction(-> %s)\n", e.Outs[0])
	case *GridWelford:
		fmt.Fprintf(sb, "alloc_fused_reduction(-> %s)\n", e.Welford.OutAvg)
	default:
		fmt.Fprintf(sb, "alloc_fused_reduction(?)\n")
	}
}
