package kir

import (
	"fmt"
	"strings"

	"github.com/zarzen/fuser/ir"
)

// Kernel is the lowered form of one fusion: a top-level statement list plus
// the global buffers the host must allocate before launch.
type Kernel struct {
	Name string
	Body Scope

	// GlobalAllocations are the inter-block communication buffers, in the
	// order lowering created them.
	GlobalAllocations []*Allocate

	Fusion *ir.Fusion
}

// String prints the kernel in an indented pseudo-code form for debugging and
// golden tests.
func (k *Kernel) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "kernel %s:\n", k.Name)
	for _, a := range k.GlobalAllocations {
		a.Print(&sb, 1)
	}
	k.Body.Print(&sb, 1)
	return sb.String()
}

// Walk visits every statement in the kernel, depth first, loops and branches
// included.
func (k *Kernel) Walk(visit func(Stmt)) {
	walkScope(&k.Body, visit)
}

func walkScope(s *Scope, visit func(Stmt)) {
	for _, stmt := range s.stmts {
		visit(stmt)
		switch t := stmt.(type) {
		case *ForLoop:
			walkScope(&t.Body, visit)
		case *IfThenElse:
			walkScope(&t.Then, visit)
			walkScope(&t.Else, visit)
		}
	}
}

// TopLevel returns the statements directly in the kernel body, outside all
// loops.
func (k *Kernel) TopLevel() []Stmt { return k.Body.Stmts() }

// GridReductions returns every grid-reduction-family statement in the kernel.
func (k *Kernel) GridReductions() []Stmt {
	var out []Stmt
	k.Walk(func(s Stmt) {
		switch s.(type) {
		case *GridReduction, *GroupedGridReduction, *GridWelford:
			out = append(out, s)
		}
	})
	return out
}

// GridSyncs returns every grid synchronization in the kernel.
func (k *Kernel) GridSyncs() []*GridSync {
	var out []*GridSync
	k.Walk(func(s Stmt) {
		if gs, ok := s.(*GridSync); ok {
			out = append(out, gs)
		}
	})
	return out
}
