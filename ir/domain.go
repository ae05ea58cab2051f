package ir

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// IterDomain is one axis of a tensor's iteration space: an extent plus the
// parallel type it is bound to and reduction/broadcast markers. IterDomains
// are owned by the TensorDomain that lists them; only the parallel type may
// change after construction (during scheduling).
type IterDomain struct {
	fusion      *Fusion
	extent      ValID
	parallel    ParallelType
	isReduction bool
	isBroadcast bool
	isRFactor   bool
}

// NewIterDomain creates a serial iteration axis with the given extent.
func NewIterDomain(f *Fusion, extent ValID) *IterDomain {
	return &IterDomain{fusion: f, extent: extent, parallel: ParallelTypeSerial}
}

// Extent of the axis, possibly symbolic.
func (id *IterDomain) Extent() ValID { return id.extent }

// ExtentVal returns the extent as a *Val.
func (id *IterDomain) ExtentVal() *Val { return id.fusion.Val(id.extent) }

// ParallelType the axis is currently bound to.
func (id *IterDomain) ParallelType() ParallelType { return id.parallel }

// IsReduction reports whether the axis is a reduction axis.
func (id *IterDomain) IsReduction() bool { return id.isReduction }

// IsBroadcast reports whether the axis is a broadcast axis.
func (id *IterDomain) IsBroadcast() bool { return id.isBroadcast }

// IsRFactor reports whether the axis is the iteration product of an rfactor.
func (id *IterDomain) IsRFactor() bool { return id.isRFactor }

// IsThread reports whether the axis is bound to a hardware index.
func (id *IterDomain) IsThread() bool { return id.parallel.IsThread() }

// IsTrivial reports whether the axis iterates exactly once.
func (id *IterDomain) IsTrivial() bool { return id.fusion.Val(id.extent).IsOneInt() }

// Parallelize binds the axis to a parallel type. Vectorizing a reduction axis
// is rejected: a vectorized accumulation has no defined ordering.
func (id *IterDomain) Parallelize(pt ParallelType) {
	if pt == ParallelTypeVectorize && id.isReduction {
		exceptions.Panicf("cannot vectorize reduction axis %s", id)
	}
	id.parallel = pt
}

func (id *IterDomain) clone() *IterDomain {
	c := *id
	return &c
}

// String implements fmt.Stringer.
func (id *IterDomain) String() string {
	prefix := "i"
	if id.isReduction {
		prefix = "r"
	} else if id.isBroadcast {
		prefix = "b"
	}
	s := fmt.Sprintf("%s{%s}", prefix, id.ExtentVal())
	if id.parallel != ParallelTypeSerial {
		s += "@" + id.parallel.String()
	}
	return s
}

// TensorDomain is the ordered axis list of a TensorView together with its
// root (pre-transform) axes and, after an rfactor, the rfactor axes.
type TensorDomain struct {
	domain  []*IterDomain
	root    []*IterDomain
	rfactor []*IterDomain

	// history is the fingerprint of the split/merge/reorder transforms
	// applied since construction, used to validate reduction grouping.
	history []string
}

// NewTensorDomain wraps the given axes; they become both the current and the
// root domain.
func NewTensorDomain(axes []*IterDomain) *TensorDomain {
	root := make([]*IterDomain, len(axes))
	copy(root, axes)
	return &TensorDomain{domain: axes, root: root}
}

// Axes returns the current (leaf) axes.
func (td *TensorDomain) Axes() []*IterDomain { return td.domain }

// RootAxes returns the pre-transform axes.
func (td *TensorDomain) RootAxes() []*IterDomain { return td.root }

// MaybeRFactorAxes returns the rfactor axes if set, else the root axes.
func (td *TensorDomain) MaybeRFactorAxes() []*IterDomain {
	if td.rfactor != nil {
		return td.rfactor
	}
	return td.root
}

// NoReductions filters reduction axes out of the given axis list.
func NoReductions(axes []*IterDomain) []*IterDomain {
	var out []*IterDomain
	for _, a := range axes {
		if !a.isReduction {
			out = append(out, a)
		}
	}
	return out
}

// NoBroadcasts filters broadcast axes out of the given axis list.
func NoBroadcasts(axes []*IterDomain) []*IterDomain {
	var out []*IterDomain
	for _, a := range axes {
		if !a.isBroadcast {
			out = append(out, a)
		}
	}
	return out
}

// TensorView is a tensor value together with its iteration-domain
// description. Scheduling mutates the domain through Split/Merge/Reorder and
// Parallelize; lowering reads it back.
type TensorView struct {
	fusion *Fusion
	val    ValID
	name   string
	dtype  dtypes.DType
	domain *TensorDomain
}

func (f *Fusion) newTensorView(dtype dtypes.DType, axes []*IterDomain) *TensorView {
	tv := &TensorView{
		fusion: f,
		name:   fmt.Sprintf("tv%d", f.nextTensor),
		dtype:  dtype,
		domain: NewTensorDomain(axes),
	}
	f.nextTensor++
	tv.val = f.registerVal(&Val{
		kind: ValKindTensor, dtype: dtype, tv: tv,
		definition: InvalidExprID,
	})
	return tv
}

// Name of the tensor view ("tv0", "tv1", ...).
func (tv *TensorView) Name() string { return tv.name }

// Val returns the Val node wrapping this tensor view.
func (tv *TensorView) Val() *Val { return tv.fusion.Val(tv.val) }

// ValID returns the id of the Val node wrapping this tensor view.
func (tv *TensorView) ValID() ValID { return tv.val }

// DType of the tensor elements.
func (tv *TensorView) DType() dtypes.DType { return tv.dtype }

// Domain returns the tensor's iteration domain.
func (tv *TensorView) Domain() *TensorDomain { return tv.domain }

// NDims returns the current number of axes.
func (tv *TensorView) NDims() int { return len(tv.domain.domain) }

// Axis returns the i-th current axis; negative indices count from the end.
func (tv *TensorView) Axis(i int) *IterDomain {
	if i < 0 {
		i += tv.NDims()
	}
	if i < 0 || i >= tv.NDims() {
		exceptions.Panicf("%s: axis %d out of range for %d dims", tv.name, i, tv.NDims())
	}
	return tv.domain.domain[i]
}

// HasReduction reports whether any current axis is a reduction.
func (tv *TensorView) HasReduction() bool {
	for _, a := range tv.domain.domain {
		if a.isReduction {
			return true
		}
	}
	return false
}

// HasBlockReduction reports whether a reduction axis is bound to an
// intra-block thread dimension.
func (tv *TensorView) HasBlockReduction() bool {
	for _, a := range tv.domain.domain {
		if a.isReduction && a.parallel.IsThreadDim() {
			return true
		}
	}
	return false
}

// HasGridReduction reports whether a reduction axis is bound to a grid
// dimension.
func (tv *TensorView) HasGridReduction() bool {
	for _, a := range tv.domain.domain {
		if a.isReduction && a.parallel.IsBlockDim() {
			return true
		}
	}
	return false
}

// Split the i-th axis into outer ceilDiv(extent, factor) and inner factor.
// Both resulting axes inherit the reduction/broadcast markers.
func (tv *TensorView) Split(axis, factor int) {
	if factor < 1 {
		exceptions.Panicf("%s.Split(%d, %d): factor must be >= 1", tv.name, axis, factor)
	}
	a := tv.Axis(axis)
	if axis < 0 {
		axis += tv.NDims()
	}
	f := tv.fusion
	factorVal := f.IntConst(int64(factor))
	outer := &IterDomain{
		fusion: f, extent: f.CeilDivExtent(a.extent, factorVal),
		parallel: ParallelTypeSerial, isReduction: a.isReduction, isBroadcast: a.isBroadcast,
	}
	inner := &IterDomain{
		fusion: f, extent: factorVal,
		parallel: ParallelTypeSerial, isReduction: a.isReduction, isBroadcast: a.isBroadcast,
	}
	dom := tv.domain.domain
	tv.domain.domain = append(dom[:axis], append([]*IterDomain{outer, inner}, dom[axis+1:]...)...)
	tv.domain.history = append(tv.domain.history, fmt.Sprintf("split(%d,%d)", axis, factor))
}

// Merge the axes at positions outer and inner (outer < inner) into a single
// axis placed at outer, with extent equal to the product. Axes of different
// reduction class cannot be merged.
func (tv *TensorView) Merge(outer, inner int) {
	if outer < 0 {
		outer += tv.NDims()
	}
	if inner < 0 {
		inner += tv.NDims()
	}
	if outer >= inner {
		exceptions.Panicf("%s.Merge(%d, %d): outer must precede inner", tv.name, outer, inner)
	}
	o, i := tv.Axis(outer), tv.Axis(inner)
	if o.isReduction != i.isReduction {
		exceptions.Panicf("%s.Merge(%d, %d): cannot merge a reduction axis with an iteration axis",
			tv.name, outer, inner)
	}
	f := tv.fusion
	merged := &IterDomain{
		fusion: f, extent: f.MulExtent(o.extent, i.extent),
		parallel:    ParallelTypeSerial,
		isReduction: o.isReduction,
		isBroadcast: o.isBroadcast && i.isBroadcast,
	}
	dom := tv.domain.domain
	dom[outer] = merged
	tv.domain.domain = append(dom[:inner], dom[inner+1:]...)
	tv.domain.history = append(tv.domain.history, fmt.Sprintf("merge(%d,%d)", outer, inner))
}

// Reorder permutes the axes. old2new maps old positions to new positions
// (negative indices count from the end); unmentioned axes keep their relative
// order, filling the remaining slots.
func (tv *TensorView) Reorder(old2new map[int]int) {
	n := tv.NDims()
	norm := make(map[int]int, len(old2new))
	target := make([]int, n)
	for i := range target {
		target[i] = -1
	}
	for o, nw := range old2new {
		if o < 0 {
			o += n
		}
		if nw < 0 {
			nw += n
		}
		if o < 0 || o >= n || nw < 0 || nw >= n {
			exceptions.Panicf("%s.Reorder: position out of range for %d dims", tv.name, n)
		}
		if target[nw] != -1 {
			exceptions.Panicf("%s.Reorder: new position %d assigned twice", tv.name, nw)
		}
		target[nw] = o
		norm[o] = nw
	}
	// Fill unmentioned axes in relative order.
	pos := 0
	for o := 0; o < n; o++ {
		if _, moved := norm[o]; moved {
			continue
		}
		for target[pos] != -1 {
			pos++
		}
		target[pos] = o
	}
	oldDom := tv.domain.domain
	newDom := make([]*IterDomain, n)
	for nw, o := range target {
		newDom[nw] = oldDom[o]
	}
	tv.domain.domain = newDom

	pairs := make([]string, 0, len(norm))
	for o := 0; o < n; o++ {
		if nw, ok := norm[o]; ok {
			pairs = append(pairs, fmt.Sprintf("%d:%d", o, nw))
		}
	}
	tv.domain.history = append(tv.domain.history, "reorder("+strings.Join(pairs, ",")+")")
}

// TransformFingerprint identifies the split/merge/reorder history applied to
// this tensor since construction. Two tensors scheduled identically have
// equal fingerprints.
func (tv *TensorView) TransformFingerprint() string {
	return strings.Join(tv.domain.history, ";")
}

// SameRootShape reports whether two tensors have pairwise-identical root
// axes: same extents (symbolically) and same reduction/broadcast markers.
func SameRootShape(a, b *TensorView) bool {
	ra, rb := a.domain.root, b.domain.root
	if len(ra) != len(rb) {
		return false
	}
	for i := range ra {
		if ra[i].isReduction != rb[i].isReduction || ra[i].isBroadcast != rb[i].isBroadcast {
			return false
		}
		ea, eb := ra[i].ExtentVal(), rb[i].ExtentVal()
		if ea.id == eb.id {
			continue
		}
		if ea.IsConst() && eb.IsConst() && ea.intValue == eb.intValue && !ea.isFloat && !eb.isFloat {
			continue
		}
		return false
	}
	return true
}

// String implements fmt.Stringer.
func (tv *TensorView) String() string {
	axes := make([]string, tv.NDims())
	for i, a := range tv.domain.domain {
		axes[i] = a.String()
	}
	return fmt.Sprintf("%s_%s[%s]", tv.name, tv.dtype, strings.Join(axes, ", "))
}
