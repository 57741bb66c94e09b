package bvh

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/chewxy/math32"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Minimum interval between two progress updates.
const progressInterval = 250 * time.Millisecond

// A BVH is the result of a successful build.
type BVH struct {
	ID     uuid.UUID
	Root   Node
	Params Params

	// Leaf ordered primitive arrays; leaves reference [Lo, Hi) slices.
	PrimType   []PrimitiveType
	PrimIndex  []int32
	PrimObject []int32
	PrimTime   []TimeRange

	Stats Stats
}

// An Option customizes a Builder.
type Option func(*Builder)

// Report progress to p and poll it for cancellation.
func WithProgress(p Progress) Option {
	return func(b *Builder) {
		if p != nil {
			b.progress = p
		}
	}
}

// Use a custom reference arena allocator.
func WithAllocator(factory AllocatorFactory) Option {
	return func(b *Builder) {
		if factory != nil {
			b.allocatorFactory = factory
		}
	}
}

// Use a custom logger.
func WithLogger(logger log.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Builder constructs a BVH over the primitives (or, for top level builds, the
// instances) of a list of objects.
type Builder struct {
	*builder
}

type builderStats struct {
	skippedRefs       int
	capacityFallbacks int64
}

type builder struct {
	logger           log.Logger
	progress         Progress
	allocatorFactory AllocatorFactory

	objects   []*input.Object
	params    Params
	heuristic *UnalignedHeuristic

	// The reference arena and the allocator handing out its regions.
	refs      []Reference
	allocator RegionAllocator
	storage   *storagePool

	// Minimum overlap area for evaluating spatial splits.
	spatialMinOverlap float32

	outMu sync.Mutex
	out   primOutput

	group  *errgroup.Group
	cancel context.CancelCauseFunc

	errMu    sync.Mutex
	firstErr error

	// Live node count; nodes are counted when created and when released.
	liveNodes atomic.Int64

	totalRefs  atomic.Int64
	doneRefs   atomic.Int64
	duplicates atomic.Int64

	progressMu   sync.Mutex
	lastProgress time.Time

	stats builderStats
}

// Create a builder for the given objects. The builder does not retain params
// beyond Run.
func NewBuilder(objects []*input.Object, params Params, opts ...Option) *Builder {
	b := &Builder{
		builder: &builder{
			logger:           log.New("bvh builder"),
			progress:         nopProgress{},
			allocatorFactory: NewBumpAllocator,
			objects:          objects,
			params:           params,
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.heuristic = NewUnalignedHeuristic(objects, params.UnalignedSplitThreshold)
	b.storage = newStoragePool()
	return b
}

// Number of nodes created by the last Run that have not been released. After
// a failed or cancelled build this is 0.
func (b *Builder) LiveNodes() int64 {
	return b.liveNodes.Load()
}

// Build the BVH. A cancelled build returns ErrCancelled and no tree.
func (b *Builder) Run(ctx context.Context) (*BVH, error) {
	if err := b.params.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, ErrCancelled
	}

	start := time.Now()
	buildID := uuid.New()
	p := &b.params
	b.reset()

	numRefs := b.countReferences()
	capacity := numRefs
	if p.UseSpatialSplit {
		capacity = int(math32.Ceil(float32(numRefs) * p.SpatialReserveFactor))
	}
	b.logger.Infof("build %s: %d objects, %d references, arena capacity %d", buildID, len(b.objects), numRefs, capacity)

	b.allocator = b.allocatorFactory(numRefs, capacity)
	if b.allocator.Cap() < numRefs {
		return nil, fmt.Errorf("%w: allocator capacity %d cannot hold %d references", ErrOutOfMemory, b.allocator.Cap(), numRefs)
	}
	b.refs = make([]Reference, b.allocator.Cap())
	used := b.addReferences()
	b.totalRefs.Store(int64(used))

	if p.UseSpatialSplit {
		b.out = newPrimOutput(0, used)
	} else {
		b.out = newPrimOutput(used, used)
	}

	root := rangeOf(b.refs, 0, used)
	b.spatialMinOverlap = root.Bounds.SafeArea() * p.SpatialSplitAlpha

	rootNode, err := b.buildRoot(ctx, root)
	if err != nil {
		return nil, err
	}

	UpdateVisibility(rootNode)
	UpdateTime(rootNode)

	rotations := 0
	if p.RotationIterations > 0 {
		rotations = Rotate(rootNode, p.RotationMaxDepth, p.RotationIterations)
	}

	b.progress.Update(int(b.doneRefs.Load()), int(b.totalRefs.Load()))

	bvh := &BVH{
		ID:         buildID,
		Root:       rootNode,
		Params:     *p,
		PrimType:   b.out.Type,
		PrimIndex:  b.out.Index,
		PrimObject: b.out.Object,
		PrimTime:   b.out.Time,
	}
	bvh.Stats = CollectStats(rootNode, *p)
	bvh.Stats.References = used
	bvh.Stats.Duplicates = int(b.duplicates.Load())
	bvh.Stats.BuildTime = time.Since(start)

	if n := atomic.LoadInt64(&b.stats.capacityFallbacks); n > 0 {
		b.logger.Warningf("build %s: reference arena full; %d spatial splits fell back to object splits", buildID, n)
	}
	if b.stats.skippedRefs > 0 {
		b.logger.Warningf("build %s: skipped %d references with invalid bounds", buildID, b.stats.skippedRefs)
	}
	b.logger.Debugf(
		"build %s: time: %d ms, nodes: %d, leaves: %d, depth: %d, references: %d, duplicates: %d, rotations: %d",
		buildID, bvh.Stats.BuildTime.Nanoseconds()/1e6,
		bvh.Stats.Nodes, bvh.Stats.Leaves, bvh.Stats.Depth,
		used, bvh.Stats.Duplicates, rotations,
	)
	return bvh, nil
}

func (b *builder) reset() {
	b.liveNodes.Store(0)
	b.totalRefs.Store(0)
	b.doneRefs.Store(0)
	b.duplicates.Store(0)
	b.firstErr = nil
	b.lastProgress = time.Time{}
	b.stats = builderStats{}
}

// Build the tree over the root range and wait for every spawned task. On
// failure every partially built subtree is released.
func (b *builder) buildRoot(ctx context.Context, root Range) (Node, error) {
	if root.Size == 0 {
		return b.createLeafNode(root), nil
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	b.cancel = cancel

	group, gctx := errgroup.WithContext(ctx)
	workers := b.params.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	group.SetLimit(workers)
	b.group = group

	storage := b.storage.acquire()
	rootNode, err := b.buildNode(gctx, root, 0, storage)
	b.storage.release(storage)
	if err != nil {
		b.fail(err)
	}

	waitErr := group.Wait()
	if err = b.err(); err == nil {
		err = waitErr
	}
	if err != nil {
		b.release(rootNode)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = ErrCancelled
		}
		return nil, err
	}
	return rootNode, nil
}

// Record the first build error and cancel the remaining tasks. Errors other
// than cancellation take precedence as tasks observing the cancellation they
// trigger report ErrCancelled.
func (b *builder) fail(err error) {
	b.errMu.Lock()
	if b.firstErr == nil || (errors.Is(b.firstErr, ErrCancelled) && !errors.Is(err, ErrCancelled)) {
		b.firstErr = err
	}
	b.errMu.Unlock()
	b.cancel(err)
}

func (b *builder) err() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.firstErr
}

func (b *builder) checkCancelled(ctx context.Context) error {
	if ctx.Err() != nil || b.progress.Cancelled() {
		return ErrCancelled
	}
	return nil
}

// Build the subtree for rng. Ranges of at least ThreadTaskSize references
// build their children as separate tasks; the returned inner node is then
// completed asynchronously and partial subtrees are released by the root.
// Smaller ranges are built inline and release their own partial subtrees on
// failure.
func (b *builder) buildNode(ctx context.Context, rng Range, level int, storage *SpatialStorage) (Node, error) {
	if err := b.checkCancelled(ctx); err != nil {
		return nil, err
	}

	left, right, inner, err := b.splitOrLeaf(rng, level, storage)
	if err != nil || inner == nil {
		return left.leaf, err
	}

	if rng.Size >= b.params.ThreadTaskSize {
		b.spawnChild(ctx, inner, 0, left.rng, level+1)
		b.spawnChild(ctx, inner, 1, right.rng, level+1)
		return inner, nil
	}

	l, err := b.buildNode(ctx, left.rng, level+1, storage)
	if err != nil {
		b.release(inner)
		return nil, err
	}
	r, err := b.buildNode(ctx, right.rng, level+1, storage)
	if err != nil {
		b.release(l)
		b.release(inner)
		return nil, err
	}
	inner.Children = [2]Node{l, r}
	inner.adoptChildren()
	return inner, nil
}

// Build child i of inner on a free worker, or inline when all workers are
// busy.
func (b *builder) spawnChild(ctx context.Context, inner *InnerNode, i int, rng Range, level int) {
	task := func() error {
		storage := b.storage.acquire()
		defer b.storage.release(storage)

		child, err := b.buildNode(ctx, rng, level, storage)
		if err != nil {
			b.fail(err)
			return err
		}
		inner.Children[i] = child
		return nil
	}

	if !b.group.TryGo(task) {
		_ = task()
	}
}

// The outcome of evaluating a range: either a leaf or a child range.
type buildStep struct {
	leaf Node
	rng  Range
}

// Decide between a leaf and a split for rng. For leaves the returned inner
// node is nil and left.leaf holds the leaf subtree. Otherwise the range is
// partitioned and an inner node without children is returned.
func (b *builder) splitOrLeaf(rng Range, level int, storage *SpatialStorage) (left, right buildStep, inner *InnerNode, err error) {
	p := &b.params
	forceInner := p.TopLevel && level == 0 && rng.Size > 0
	within := b.withinMaxLeafSize(rng)

	if !forceInner && p.smallEnoughForLeaf(rng.Size, level) {
		if within {
			left.leaf = b.createLeafNode(rng)
			return left, right, nil, nil
		}
		// Depth limit reached with too many primitives for one leaf.
		left.rng, right.rng = b.medianSplit(rng)
		return left, right, b.newInner(rng.Bounds, nil, nil), nil
	}

	leafSAH := p.PrimitiveCost(rng.Size) * rng.Bounds.SafeHalfArea()
	nodeSAH := p.NodeCost(1) * rng.Bounds.SafeHalfArea()

	split := newObjectBinning(b.refs, rng, p, b.heuristic, nil)
	splitSAH := nodeSAH + split.Cost()

	var spatial *spatialSplit
	if p.UseSpatialSplit && level < p.MaxSpatialDepth {
		overlap := split.leftBounds.Intersect(split.rightBounds)
		if overlap.SafeArea() >= b.spatialMinOverlap {
			spatial = newSpatialSplit(b, storage, rng)
			if s := nodeSAH + spatial.Cost(); s < splitSAH {
				splitSAH = s
			} else {
				spatial = nil
			}
		}
	}

	if !forceInner && within && leafSAH <= splitSAH {
		left.leaf = b.createLeafNode(rng)
		return left, right, nil, nil
	}

	var unaligned *objectBinning
	if p.UseUnalignedNodes && b.heuristic.WorthTrying(splitSAH, leafSAH) {
		if space, ok := b.heuristic.ComputeAlignedSpaceFor(b.refs[rng.Start:rng.End()]); ok {
			unaligned = newObjectBinning(b.refs, rng, p, b.heuristic, &space)
			unalignedSplitSAH := unaligned.splitNodeSAH()
			unalignedLeafSAH := unaligned.leafSAH
			if !forceInner && within && unalignedLeafSAH <= unalignedSplitSAH && unalignedSplitSAH < splitSAH {
				left.leaf = b.createLeafNode(rng)
				return left, right, nil, nil
			}
			if unalignedSplitSAH < splitSAH {
				spatial = nil
			} else {
				unaligned = nil
			}
		}
	}

	var strategy splitEvaluator = split
	inner = b.newInner(rng.Bounds, nil, nil)
	if unaligned != nil {
		strategy = unaligned
		inner.SetAlignedSpace(*unaligned.space, unaligned.bounds)
	} else if spatial != nil {
		strategy = spatial
	}

	left.rng, right.rng, err = strategy.Split()
	if errors.Is(err, ErrCapacityExceeded) {
		atomic.AddInt64(&b.stats.capacityFallbacks, 1)
		left.rng, right.rng, err = split.Split()
	} else if err == nil && (left.rng.Size == 0 || right.rng.Size == 0) {
		// Every straddling reference moved to the same side.
		left.rng, right.rng, err = split.Split()
	}

	if err != nil {
		b.release(inner)
		return left, right, nil, err
	}
	return left, right, inner, nil
}

// Split a range at its middle without reordering it.
func (b *builder) medianSplit(rng Range) (left, right Range) {
	mid := rng.Size / 2
	return rangeOf(b.refs, rng.Start, mid), rangeOf(b.refs, rng.Start+mid, rng.Size-mid)
}

func (b *builder) addDuplicates(n int) {
	b.duplicates.Add(int64(n))
	b.totalRefs.Add(int64(n))
}

// Account for n references placed in leaves and notify the progress
// collaborator if enough time has passed since the last update.
func (b *builder) reportProgress(n int) {
	done := b.doneRefs.Add(int64(n))

	b.progressMu.Lock()
	now := time.Now()
	if now.Sub(b.lastProgress) < progressInterval {
		b.progressMu.Unlock()
		return
	}
	b.lastProgress = now
	b.progressMu.Unlock()

	b.progress.Update(int(done), int(b.totalRefs.Load()))
}

func (b *builder) newLeaf(bounds types.BoundBox, visibility uint32, lo, hi int, primType PrimitiveType) *LeafNode {
	b.liveNodes.Add(1)
	return NewLeafNode(bounds, visibility, lo, hi, primType)
}

func (b *builder) newInner(bounds types.BoundBox, left, right Node) *InnerNode {
	b.liveNodes.Add(1)
	return NewInnerNode(bounds, left, right)
}

// Release a partially built subtree.
func (b *builder) release(n Node) {
	if n == nil {
		return
	}
	b.liveNodes.Add(-int64(DeleteSubtree(n)))
}
