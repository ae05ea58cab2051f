package ir

// ParallelType tags one IterDomain with the hardware dimension (or software
// transform) its iteration is mapped to.
type ParallelType int

//go:generate go tool enumer -type=ParallelType -trimprefix=ParallelType -output=gen_paralleltype_enumer.go paralleltype.go

const (
	ParallelTypeSerial ParallelType = iota
	ParallelTypeBIDx
	ParallelTypeBIDy
	ParallelTypeBIDz
	ParallelTypeTIDx
	ParallelTypeTIDy
	ParallelTypeTIDz
	ParallelTypeVectorize
	ParallelTypeUnroll
	ParallelTypeUnswitch
	ParallelTypeMma
)

// ParallelTypeThreads are the parallel types backed by a hardware index,
// in the order buffer sizing iterates them.
var ParallelTypeThreads = []ParallelType{
	ParallelTypeBIDx,
	ParallelTypeBIDy,
	ParallelTypeBIDz,
	ParallelTypeTIDx,
	ParallelTypeTIDy,
	ParallelTypeTIDz,
}

// ParallelTypeBIDs are the block-identifier (grid) parallel types.
var ParallelTypeBIDs = []ParallelType{
	ParallelTypeBIDx,
	ParallelTypeBIDy,
	ParallelTypeBIDz,
}

// IsThreadDim reports whether pt is an intra-block thread dimension (TIDx/y/z).
func (pt ParallelType) IsThreadDim() bool {
	return pt == ParallelTypeTIDx || pt == ParallelTypeTIDy || pt == ParallelTypeTIDz
}

// IsBlockDim reports whether pt is a grid (block-identifier) dimension (BIDx/y/z).
func (pt ParallelType) IsBlockDim() bool {
	return pt == ParallelTypeBIDx || pt == ParallelTypeBIDy || pt == ParallelTypeBIDz
}

// IsThread reports whether pt is backed by a hardware index, thread or block.
func (pt ParallelType) IsThread() bool {
	return pt.IsThreadDim() || pt.IsBlockDim()
}

// ParallelTypeBitmap is a set of hardware-backed parallel types, used for
// thread predicates of grid reductions and broadcasts.
type ParallelTypeBitmap uint8

// Get returns whether pt is in the bitmap. Non-hardware types are never set.
func (b ParallelTypeBitmap) Get(pt ParallelType) bool {
	if !pt.IsThread() {
		return false
	}
	return b&(1<<uint(pt-ParallelTypeBIDx)) != 0
}

// With returns a copy of the bitmap with pt set.
func (b ParallelTypeBitmap) With(pt ParallelType) ParallelTypeBitmap {
	if !pt.IsThread() {
		return b
	}
	return b | 1<<uint(pt-ParallelTypeBIDx)
}

// IsEmpty returns whether no parallel type is set.
func (b ParallelTypeBitmap) IsEmpty() bool { return b == 0 }

// HasBID returns whether any grid dimension is set.
func (b ParallelTypeBitmap) HasBID() bool {
	return b.Get(ParallelTypeBIDx) || b.Get(ParallelTypeBIDy) || b.Get(ParallelTypeBIDz)
}

// HasTID returns whether any intra-block thread dimension is set.
func (b ParallelTypeBitmap) HasTID() bool {
	return b.Get(ParallelTypeTIDx) || b.Get(ParallelTypeTIDy) || b.Get(ParallelTypeTIDz)
}

// String lists the types set in the bitmap.
func (b ParallelTypeBitmap) String() string {
	s := ""
	for _, pt := range ParallelTypeThreads {
		if b.Get(pt) {
			if s != "" {
				s += ","
			}
			s += pt.String()
		}
	}
	if s == "" {
		return "<none>"
	}
	return s
}
