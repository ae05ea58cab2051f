// Package kir is the kernel-level IR produced by lowering: the loop nests,
// allocations, synchronization points and indexed memory operations of one
// CUDA kernel. Unlike the fusion graph it is statement-oriented; scalar
// values are still ir.Val references resolved against the originating fusion.
package kir

import (
	"fmt"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"

	"github.com/zarzen/fuser/ir"
)

// MemoryType says where an allocation lives.
type MemoryType int

//go:generate go tool enumer -type=MemoryType -trimprefix=MemoryType -output=gen_memorytype_enumer.go kir.go

const (
	MemoryTypeLocal MemoryType = iota
	MemoryTypeShared
	MemoryTypeGlobal
)

// Stmt is one kernel statement. The set of implementations is closed: code
// walking a kernel switches exhaustively over the concrete types and panics
// on anything unknown.
type Stmt interface {
	isStmt()
	// Print appends the statement to sb at the given indentation.
	Print(sb *strings.Builder, indent int)
}

func pad(sb *strings.Builder, indent int) {
	for i := 0; i < indent; i++ {
		sb.WriteString("  ")
	}
}

// TensorIndex is a tensor access at a linear element offset.
type TensorIndex struct {
	Tensor *ir.TensorView
	Index  ir.ValID
}

// String implements fmt.Stringer.
func (ti *TensorIndex) String() string {
	return fmt.Sprintf("%s[%s]", ti.Tensor.Name(), ti.Tensor.Val().Fusion().Val(ti.Index))
}

// Operand is either an indexed tensor access or a scalar.
type Operand struct {
	Tensor *TensorIndex
	Scalar ir.ValID
	fusion *ir.Fusion
}

// TensorOperand wraps a tensor access as an operand.
func TensorOperand(ti *TensorIndex) Operand { return Operand{Tensor: ti, Scalar: ir.InvalidValID} }

// ScalarOperand wraps a scalar as an operand.
func ScalarOperand(f *ir.Fusion, id ir.ValID) Operand {
	return Operand{Scalar: id, fusion: f}
}

// String implements fmt.Stringer.
func (o Operand) String() string {
	if o.Tensor != nil {
		return o.Tensor.String()
	}
	return o.fusion.Val(o.Scalar).String()
}

// Predicate guards a statement. A zero Predicate is unset; IsTrue marks the
// literal true predicate used where a guard is structurally required but the
// participating threads are exactly the active ones.
type Predicate struct {
	Value  ir.ValID
	IsTrue bool
	fusion *ir.Fusion
}

// TruePredicate returns the literal true predicate.
func TruePredicate() Predicate { return Predicate{Value: ir.InvalidValID, IsTrue: true} }

// ValuePredicate returns a predicate on the given boolean scalar.
func ValuePredicate(f *ir.Fusion, id ir.ValID) Predicate {
	return Predicate{Value: id, fusion: f}
}

// IsSet reports whether the predicate carries a condition. The zero value is
// unset: a conditioned predicate always carries the fusion that owns its
// scalar.
func (p Predicate) IsSet() bool {
	return p.IsTrue || (p.fusion != nil && p.Value != ir.InvalidValID)
}

// String implements fmt.Stringer.
func (p Predicate) String() string {
	if p.IsTrue {
		return "true"
	}
	if !p.IsSet() {
		return "<unset>"
	}
	return p.fusion.Val(p.Value).String()
}

// Scope is an ordered statement list: a kernel body, loop body or branch arm.
type Scope struct {
	stmts []Stmt
}

// Push appends a statement.
func (s *Scope) Push(stmt Stmt) { s.stmts = append(s.stmts, stmt) }

// InsertFront prepends a statement.
func (s *Scope) InsertFront(stmt Stmt) {
	s.stmts = append([]Stmt{stmt}, s.stmts...)
}

// Stmts returns the statements in order.
func (s *Scope) Stmts() []Stmt { return s.stmts }

// Len returns the statement count.
func (s *Scope) Len() int { return len(s.stmts) }

// Print appends every statement at the given indentation.
func (s *Scope) Print(sb *strings.Builder, indent int) {
	for _, stmt := range s.stmts {
		stmt.Print(sb, indent)
	}
}

// ForLoop iterates one IterDomain. Thread-mapped, vectorized and size-one
// axes are trivial: they emit no loop header, their index is fixed per
// thread.
type ForLoop struct {
	IterDomain *ir.IterDomain
	Index      ir.ValID
	Body       Scope
	fusion     *ir.Fusion
}

// NewForLoop creates a loop over the given axis with the given index scalar.
func NewForLoop(f *ir.Fusion, id *ir.IterDomain, index ir.ValID) *ForLoop {
	return &ForLoop{IterDomain: id, Index: index, fusion: f}
}

// IsTrivial reports whether the loop iterates at most once per thread and
// needs no loop header.
func (fl *ForLoop) IsTrivial() bool {
	id := fl.IterDomain
	if id.IsThread() || id.IsBroadcast() || id.IsTrivial() {
		return true
	}
	switch id.ParallelType() {
	case ir.ParallelTypeVectorize, ir.ParallelTypeUnswitch, ir.ParallelTypeMma:
		return true
	}
	return false
}

func (fl *ForLoop) isStmt() {}

// Print implements Stmt.
func (fl *ForLoop) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	if fl.IsTrivial() {
		fmt.Fprintf(sb, "for %s in %s:  // trivial\n", fl.fusion.Val(fl.Index), fl.IterDomain)
	} else {
		fmt.Fprintf(sb, "for %s in [0, %s):\n", fl.fusion.Val(fl.Index), fl.IterDomain.ExtentVal())
	}
	fl.Body.Print(sb, indent+1)
}

// IfThenElse guards its then-scope with a predicate.
type IfThenElse struct {
	Predicate Predicate
	Then      Scope
	Else      Scope
}

func (ite *IfThenElse) isStmt() {}

// Print implements Stmt.
func (ite *IfThenElse) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	fmt.Fprintf(sb, "if %s:\n", ite.Predicate)
	ite.Then.Print(sb, indent+1)
	if ite.Else.Len() > 0 {
		pad(sb, indent)
		sb.WriteString("else:\n")
		ite.Else.Print(sb, indent+1)
	}
}

// Allocate reserves storage for a buffer. Global allocations produced for
// inter-block communication carry Zero so the runtime zero-initializes them
// before launch.
type Allocate struct {
	Name    string
	MemType MemoryType
	DType   dtypes.DType
	Size    ir.ValID
	Zero    bool
	fusion  *ir.Fusion
}

// NewAllocate creates an allocation of size elements.
func NewAllocate(f *ir.Fusion, name string, mem MemoryType, dtype dtypes.DType, size ir.ValID) *Allocate {
	return &Allocate{Name: name, MemType: mem, DType: dtype, Size: size, fusion: f}
}

// SizeVal returns the element count as a *ir.Val.
func (a *Allocate) SizeVal() *ir.Val { return a.fusion.Val(a.Size) }

func (a *Allocate) isStmt() {}

// Print implements Stmt.
func (a *Allocate) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	zero := ""
	if a.Zero {
		zero = ", zero-init"
	}
	fmt.Fprintf(sb, "alloc %s: %s %s[%s]%s\n", a.Name, a.MemType, a.DType, a.SizeVal(), zero)
}

// BlockSync is a __syncthreads barrier.
type BlockSync struct {
	WarHazard bool
}

func (bs *BlockSync) isStmt() {}

// Print implements Stmt.
func (bs *BlockSync) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	sb.WriteString("block_sync()\n")
}

// GridSync synchronizes the blocks participating in a grid communication.
type GridSync struct {
	SyncDims   ir.ParallelTypeBitmap
	SyncBuffer *Allocate
}

func (gs *GridSync) isStmt() {}

// Print implements Stmt.
func (gs *GridSync) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	fmt.Fprintf(sb, "grid_sync(%s, %s)\n", gs.SyncDims, gs.SyncBuffer.Name)
}

// UnaryOp is a lowered elementwise unary operation.
type UnaryOp struct {
	Op        ir.OpType
	Out       *TensorIndex
	In        Operand
	Predicate Predicate
}

func (u *UnaryOp) isStmt() {}

// Print implements Stmt.
func (u *UnaryOp) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	fmt.Fprintf(sb, "%s = %s(%s)\n", u.Out, u.Op, u.In)
}

// BinaryOp is a lowered elementwise binary operation.
type BinaryOp struct {
	Op        ir.OpType
	Out       *TensorIndex
	Lhs, Rhs  Operand
	Predicate Predicate
}

func (b *BinaryOp) isStmt() {}

// Print implements Stmt.
func (b *BinaryOp) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	fmt.Fprintf(sb, "%s = %s(%s, %s)\n", b.Out, b.Op, b.Lhs, b.Rhs)
}

// TernaryOp is a lowered elementwise ternary operation.
type TernaryOp struct {
	Op        ir.OpType
	Out       *TensorIndex
	A, B, C   Operand
	Predicate Predicate
}

func (t *TernaryOp) isStmt() {}

// Print implements Stmt.
func (t *TernaryOp) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	fmt.Fprintf(sb, "%s = %s(%s, %s, %s)\n", t.Out, t.Op, t.A, t.B, t.C)
}

// ReductionOp is a serial or intra-block reduction. ThreadDims lists the
// thread dimensions crossed by the accumulation; empty means a plain serial
// accumulate.
type ReductionOp struct {
	Op             ir.OpType
	Out            *TensorIndex
	In             Operand
	Init           ir.ValID
	ThreadDims     ir.ParallelTypeBitmap
	Predicate      Predicate
	WritePredicate Predicate
	fusion         *ir.Fusion
}

// NewReductionOp creates a reduction statement.
func NewReductionOp(f *ir.Fusion, op ir.OpType, out *TensorIndex, in Operand, init ir.ValID) *ReductionOp {
	return &ReductionOp{Op: op, Out: out, In: in, Init: init, fusion: f}
}

// IsBlockReduction reports whether the accumulation crosses thread dimensions.
func (r *ReductionOp) IsBlockReduction() bool { return !r.ThreadDims.IsEmpty() }

func (r *ReductionOp) isStmt() {}

// Print implements Stmt.
func (r *ReductionOp) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	kind := "reduce"
	if r.IsBlockReduction() {
		kind = "block_reduce[" + r.ThreadDims.String() + "]"
	}
	fmt.Fprintf(sb, "%s = %s<%s>(%s, init=%s)\n", r.Out, kind, r.Op, r.In, r.fusion.Val(r.Init))
}

// WelfordOp is a serial or intra-block welford accumulation over the triple
// (avg, M2, N). BlockReduceSeparated marks the standalone block-combine stage
// of an rfactored welford, which runs under a literal true predicate.
type WelfordOp struct {
	OutAvg, OutVar, OutN *TensorIndex
	InAvg, InVar, InN    Operand
	InitAvg, InitVar     ir.ValID
	InitN                ir.ValID
	ThreadDims           ir.ParallelTypeBitmap
	BlockReduceSeparated bool
	Predicate            Predicate
}

// IsBlockWelford reports whether the accumulation crosses thread dimensions.
func (w *WelfordOp) IsBlockWelford() bool { return !w.ThreadDims.IsEmpty() }

func (w *WelfordOp) isStmt() {}

// Print implements Stmt.
func (w *WelfordOp) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	kind := "welford"
	if w.IsBlockWelford() {
		kind = "block_welford[" + w.ThreadDims.String() + "]"
	}
	if w.BlockReduceSeparated {
		kind += "/separated"
	}
	fmt.Fprintf(sb, "(%s, %s, %s) = %s(%s, %s, %s)\n",
		w.OutAvg, w.OutVar, w.OutN, kind, w.InAvg, w.InVar, w.InN)
}

// BroadcastOp re-broadcasts a value across the thread dimensions in
// ThreadDims; with none set it is a plain copy.
type BroadcastOp struct {
	Out        *TensorIndex
	In         Operand
	ThreadDims ir.ParallelTypeBitmap
}

// IsBlockBroadcast reports whether the broadcast crosses thread dimensions.
func (b *BroadcastOp) IsBlockBroadcast() bool { return !b.ThreadDims.IsEmpty() }

func (b *BroadcastOp) isStmt() {}

// Print implements Stmt.
func (b *BroadcastOp) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	kind := "copy"
	if b.IsBlockBroadcast() {
		kind = "block_broadcast[" + b.ThreadDims.String() + "]"
	}
	fmt.Fprintf(sb, "%s = %s(%s)\n", b.Out, kind, b.In)
}

// MmaOp is a lowered tensor-core contraction.
type MmaOp struct {
	Out       *TensorIndex
	A, B      Operand
	Init      ir.ValID
	Options   ir.MmaOptions
	Predicate Predicate
}

func (m *MmaOp) isStmt() {}

// Print implements Stmt.
func (m *MmaOp) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	fmt.Fprintf(sb, "%s = mma<%s,%s>(%s, %s)\n", m.Out, m.Options.Macro, m.Options.Layout, m.A, m.B)
}

// ViewAsScalarOp reinterprets a vector element as scalars along the appended
// vector axis.
type ViewAsScalarOp struct {
	Out      *TensorIndex
	In       Operand
	VectorID *ir.IterDomain
}

func (v *ViewAsScalarOp) isStmt() {}

// Print implements Stmt.
func (v *ViewAsScalarOp) Print(sb *strings.Builder, indent int) {
	pad(sb, indent)
	fmt.Fprintf(sb, "%s = view_as_scalar(%s, %s)\n", v.Out, v.In, v.VectorID)
}
