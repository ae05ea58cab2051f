// Package scheduler picks a parallelization strategy for a fusion and applies
// it to every tensor view. The pointwise heuristic decides between a flat 1-D
// scheme and a 2-D scheme split at a break point isolating broadcasted
// dimensions, then derives block/grid dimensions and the unroll or
// vectorization width.
package scheduler

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/zarzen/fuser/ir"
	"github.com/zarzen/fuser/types"
)

// ThreadX is the thread-block width every pointwise schedule starts from.
const ThreadX = int64(128)

// MaxGridYDim is the hardware limit on the y grid dimension; a larger
// remainder is folded back with a split instead of bound directly.
const MaxGridYDim = int64(65535)

// DeviceProperties is the slice of device information the heuristic needs.
type DeviceProperties struct {
	MultiprocessorCount int64
	MaxThreadsPerBlock  int64
}

// DefaultDevice are A100-like properties used when the caller has no device
// at hand (tests, offline tuning).
func DefaultDevice() DeviceProperties {
	return DeviceProperties{MultiprocessorCount: 108, MaxThreadsPerBlock: 1024}
}

// LaunchParams are the block and grid dimensions a schedule binds. Unbound
// dimensions stay 1.
type LaunchParams struct {
	BDimX, BDimY int64
	GDimX, GDimY int64
}

// String implements fmt.Stringer.
func (lp LaunchParams) String() string {
	return fmt.Sprintf("block(%d, %d) grid(%d, %d)", lp.BDimX, lp.BDimY, lp.GDimX, lp.GDimY)
}

// Params is the outcome of the pointwise heuristic.
type Params struct {
	// BreakPoint is the root-axis index separating the outer (grid) side
	// from the inner (thread/vector) side; 0 selects the 1-D scheme.
	BreakPoint int
	// Vectorize selects vectorized loads over plain unrolling.
	Vectorize bool
	// InnerFactor is the unroll or vectorization width.
	InnerFactor int64
	// SplitBlock binds TIDy on the outer side (2-D scheme only).
	SplitBlock bool
	// SplitGridY folds an oversized y grid dimension with an extra split
	// instead of binding it directly.
	SplitGridY bool

	Launch LaunchParams
}

// String implements fmt.Stringer.
func (p Params) String() string {
	scheme := "1D"
	if p.BreakPoint > 0 {
		scheme = fmt.Sprintf("2D@%d", p.BreakPoint)
	}
	inner := "unroll"
	if p.Vectorize {
		inner = "vectorize"
	}
	return fmt.Sprintf("pointwise %s %s=%d splitBlock=%v splitGridY=%v %s",
		scheme, inner, p.InnerFactor, p.SplitBlock, p.SplitGridY, p.Launch)
}

// Options tune the heuristic.
type Options struct {
	Device DeviceProperties

	// DisableRNGUnroll forces the unroll factor to 1 for stochastic
	// fusions so RNG output is reproducible under testing.
	DisableRNGUnroll bool

	// VectorWidth returns the alignment-limited vector width of a fusion
	// input/output, in elements. Nil assumes full 16-byte alignment.
	VectorWidth func(tv *ir.TensorView) int64
}

// ReferenceTensor selects the output with the greatest count of
// non-reduction, non-broadcast root dimensions; ties resolve to the first
// such output in declaration order. Returns nil when no output has any.
func ReferenceTensor(f *ir.Fusion) *ir.TensorView {
	var ref *ir.TensorView
	best := 0
	for _, tv := range f.OutputTensors() {
		n := nConcreteRootDims(tv)
		if n > best {
			best = n
			ref = tv
		}
	}
	return ref
}

func nConcreteRootDims(tv *ir.TensorView) int {
	n := 0
	for _, id := range tv.Domain().MaybeRFactorAxes() {
		if !id.IsReduction() && !id.IsBroadcast() {
			n++
		}
	}
	return n
}

// ComputeHeuristics derives pointwise schedule parameters for the fusion
// given concrete input shapes bound in the evaluator. A fusion with only
// zero-dimensional outputs gets a trivial unparallelized schedule.
func ComputeHeuristics(f *ir.Fusion, ev *ir.Evaluator, opts Options) (Params, error) {
	if opts.Device.MultiprocessorCount <= 0 {
		opts.Device = DefaultDevice()
	}
	ref := ReferenceTensor(f)
	if ref == nil {
		return Params{InnerFactor: 1, Launch: LaunchParams{BDimX: 1, BDimY: 1, GDimX: 1, GDimY: 1}}, nil
	}

	refRoot := ref.Domain().MaybeRFactorAxes()
	elemCounts := make([]int64, len(refRoot))
	nElems := int64(1)
	for i, id := range refRoot {
		n, err := ev.Evaluate(id.Extent())
		if err != nil {
			return Params{}, errors.Wrapf(err, "inferring size of %s axis %d", ref.Name(), i)
		}
		elemCounts[i] = n
		nElems *= n
	}

	smCount := opts.Device.MultiprocessorCount

	maxInputDTypeSize := int64(2)
	nTensors := int64(len(f.OutputTensors()))
	for _, in := range f.InputTensors() {
		maxInputDTypeSize = max(maxInputDTypeSize, int64(in.DType().Size()))
		nTensors++
	}

	// 16 bytes of work per thread, shrinking once the fusion reads or
	// writes 4+ tensors.
	maxUnrollFactor := types.CeilDiv(16/maxInputDTypeSize,
		max(types.LastPow2(nTensors)>>2, 1))

	// Don't unroll at the cost of a full wave.
	if nElems < smCount*ThreadX && maxUnrollFactor > 1 {
		maxUnrollFactor = min(maxUnrollFactor, types.CeilDiv(nElems, smCount*ThreadX))
	}

	if f.IsStochastic() && opts.DisableRNGUnroll {
		maxUnrollFactor = 1
	}

	params := Params{InnerFactor: 1}

	vectorizeFactor := maxUnrollFactor
	for _, tv := range vectorizableTensors(f, ref) {
		width := int64(16) / int64(tv.DType().Size())
		if opts.VectorWidth != nil {
			width = opts.VectorWidth(tv)
		}
		vectorizeFactor = min(vectorizeFactor, width)
	}
	if vectorizeFactor <= 1 {
		params.Vectorize = false
		params.InnerFactor = maxUnrollFactor
	} else {
		params.Vectorize = true
		params.InnerFactor = vectorizeFactor
	}

	// 2-D scheme search: find the break point that isolates the most
	// broadcasted bytes to one side. Cost is estimated per side as
	// element count times the widest per-dimension tensor mapping.
	mappingCount := mappedInputsOutputs(f, ref)

	breakPoint := 0
	rightElemCount := int64(0)

	bdimx := ThreadX
	bdimy := int64(1)
	gdimx := int64(1)
	gdimy := int64(1)

	transferSize1D := int64(1)
	maxDims := int64(0)
	for _, m := range mappingCount {
		maxDims = max(maxDims, m)
	}
	for i := range refRoot {
		transferSize1D = transferSize1D * elemCounts[i] * maxDims
	}

	minTotalTransfer := int64(1)<<62 - 1
	for bp := 1; bp < len(refRoot); bp++ {
		curRight := types.Prod(elemCounts[bp:])
		if curRight <= 1 {
			continue
		}
		curLeft := nElems / curRight
		if curLeft <= 1 {
			continue
		}

		leftMax := types.MaxOf(mappingCount[:bp])
		rightMax := types.MaxOf(mappingCount[bp:])

		curTransfer := int64(1)
		for i := 0; i < bp; i++ {
			curTransfer = curTransfer * elemCounts[i] * leftMax
		}
		for i := bp; i < len(refRoot); i++ {
			curTransfer = curTransfer * elemCounts[i] * rightMax
		}

		// Require at least a 10% saving over the 1-D scheme.
		if curTransfer >= minTotalTransfer || curTransfer*10 >= transferSize1D*9 {
			continue
		}
		// Don't limit the unroll factor with the break point.
		if curRight < maxUnrollFactor {
			continue
		}

		bdimx = min(types.CeilDiv(curRight, maxUnrollFactor), ThreadX)
		bdimy = 1
		gdimy = 1
		// Expand into bdimy only with at least a wave of grid-level
		// parallelism on the left.
		if curLeft > smCount {
			bdimy = ThreadX / bdimx
		}
		remainderLeft := types.CeilDiv(curLeft, bdimy)
		remainderRight := types.CeilDiv(curRight, bdimy*bdimx*maxUnrollFactor)

		breakPoint = bp
		minTotalTransfer = curTransfer
		rightElemCount = curRight

		gdimx = remainderLeft
		if remainderRight > 1 && bdimy <= 1 {
			gdimy = remainderRight
		}
	}

	if breakPoint == 0 {
		bdimx = ThreadX
		bdimy = 1
		gdimy = 1
		gdimx = types.CeilDiv(nElems, bdimx*params.InnerFactor)
	}

	if breakPoint > 0 && rightElemCount <= 0 {
		exceptions.Panicf("pointwise heuristic chose break point %d with empty right side", breakPoint)
	}
	if bdimy > 1 && gdimy > 1 {
		exceptions.Panicf("pointwise heuristic bound both bdimy=%d and gdimy=%d", bdimy, gdimy)
	}

	params.BreakPoint = breakPoint
	params.SplitBlock = bdimy > 1
	params.Launch.BDimX = bdimx
	params.Launch.BDimY = bdimy
	params.Launch.GDimX = gdimx
	if gdimy > MaxGridYDim {
		params.SplitGridY = true
		params.Launch.GDimY = 1
	} else {
		params.Launch.GDimY = gdimy
	}

	if klog.V(1).Enabled() {
		klog.Infof("pointwise stats: nElems=%s nTensors=%d maxDTypeSize=%d unroll=%d mapping=%v counts=%v",
			humanize.Comma(nElems), nTensors, maxInputDTypeSize, maxUnrollFactor, mappingCount, elemCounts)
		klog.Info(params.String())
	}
	return params, nil
}

// vectorizableTensors returns the fusion inputs and outputs whose innermost
// concrete axis lines up with the reference's, i.e. candidates for
// vectorized access.
func vectorizableTensors(f *ir.Fusion, ref *ir.TensorView) []*ir.TensorView {
	var out []*ir.TensorView
	consider := func(tv *ir.TensorView) {
		axes := ir.NoReductions(tv.Domain().MaybeRFactorAxes())
		if len(axes) == 0 || axes[len(axes)-1].IsBroadcast() {
			return
		}
		if len(axes) != len(ir.NoReductions(ref.Domain().MaybeRFactorAxes())) {
			return
		}
		out = append(out, tv)
	}
	for _, tv := range f.InputTensors() {
		consider(tv)
	}
	for _, tv := range f.OutputTensors() {
		consider(tv)
	}
	return out
}

// mappedInputsOutputs returns, per reference root dimension, how many bytes
// of fusion inputs and outputs have a concrete (non-broadcast) axis mapped
// there. Dimensions that are broadcast in most tensors score low, which is
// what the break-point search exploits.
func mappedInputsOutputs(f *ir.Fusion, ref *ir.TensorView) []int64 {
	refAxes := ir.NoReductions(ref.Domain().MaybeRFactorAxes())
	counts := make([]int64, len(refAxes))
	tally := func(tv *ir.TensorView) {
		axes := ir.NoReductions(tv.Domain().MaybeRFactorAxes())
		if len(axes) != len(refAxes) {
			return
		}
		for i, a := range axes {
			if !a.IsBroadcast() {
				counts[i] += int64(tv.DType().Size())
			}
		}
	}
	for _, tv := range f.InputTensors() {
		tally(tv)
	}
	for _, tv := range f.OutputTensors() {
		tally(tv)
	}
	return counts
}
