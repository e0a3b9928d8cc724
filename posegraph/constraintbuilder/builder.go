// Package constraintbuilder schedules scan-to-submap match jobs on a
// worker pool and collects the inter-submap constraints they produce.
// The actual matching algorithm is injected as a ScanMatcher; this
// package owns the batching, ordering, and completion protocol the
// pose graph relies on.
package constraintbuilder

import (
	"context"
	"runtime"
	"sync"

	"github.com/edaniels/golog"
	"gonum.org/v1/gonum/mat"

	"github.com/viamrobotics/posegraph/mapping"
	"github.com/viamrobotics/posegraph/sensor"
	"github.com/viamrobotics/posegraph/spatialmath"
	"github.com/viamrobotics/posegraph/utils"
)

// Match is an accepted scan-to-submap alignment. Relative maps the scan
// into the submap frame; SqrtInformation is the matcher's 6x6 square
// root information matrix for the edge.
type Match struct {
	Relative        spatialmath.Rigid3
	Score           float64
	SqrtInformation *mat.SymDense
}

// ScanMatcher aligns a scan against a submap. A nil Match with nil
// error means the matcher rejected the pair.
type ScanMatcher interface {
	// Match searches near the given initial relative pose.
	Match(submap mapping.Submap, scan sensor.RangeData, initialRelativePose spatialmath.Rigid3) (*Match, error)

	// MatchFullSubmap searches the entire submap without a prior.
	MatchFullSubmap(submap mapping.Submap, scan sensor.RangeData) (*Match, error)
}

// Options configure the constraint builder.
type Options struct {
	// LowerCovarianceEigenvalueBound floors covariance eigenvalues
	// before inversion. It is read by the pose graph when authoring
	// intra-submap constraints.
	LowerCovarianceEigenvalueBound float64

	// MinScore rejects local matches scoring below it.
	MinScore float64

	// GlobalLocalizationMinScore rejects full-submap matches scoring
	// below it.
	GlobalLocalizationMinScore float64

	// NumWorkers sizes the match pool. Zero means GOMAXPROCS.
	NumWorkers int
}

// DefaultOptions returns the options used when a field is unset.
func DefaultOptions() Options {
	return Options{
		LowerCovarianceEigenvalueBound: 1e-11,
		MinScore:                       0.55,
		GlobalLocalizationMinScore:     0.6,
	}
}

// Result is the batch of constraints accepted since the last WhenDone
// callback fired.
type Result []mapping.Constraint

// ConstraintBuilder runs match jobs asynchronously. Scans are announced
// job by job, then sealed with NotifyEndOfScan; GetNumFinishedScans
// advances only in flat scan index order once every job for a scan has
// completed. WhenDone fires once the pipeline is idle.
type ConstraintBuilder struct {
	opts    Options
	logger  golog.Logger
	matcher ScanMatcher
	workers *utils.StoppableWorkers

	queueMu   sync.Mutex
	queueCond *sync.Cond
	queue     []func()
	closed    bool

	mu               sync.Mutex
	pendingJobs      map[int]int
	totalPending     int
	notifiedScans    int
	numFinishedScans int
	constraints      Result
	whenDone         func(Result)
}

// New returns a builder running match jobs on its own pool.
func New(opts Options, matcher ScanMatcher, logger golog.Logger) *ConstraintBuilder {
	numWorkers := opts.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	b := &ConstraintBuilder{
		opts:        opts,
		logger:      logger,
		matcher:     matcher,
		pendingJobs: map[int]int{},
	}
	b.queueCond = sync.NewCond(&b.queueMu)
	workerFuncs := make([]func(context.Context), 0, numWorkers)
	for i := 0; i < numWorkers; i++ {
		workerFuncs = append(workerFuncs, b.worker)
	}
	b.workers = utils.NewStoppableWorkers(workerFuncs...)
	return b
}

// MaybeAddConstraint schedules a local match of the scan against the
// submap, anchored at the given relative pose. The call never blocks;
// zero or one constraint is added to the current batch later.
func (b *ConstraintBuilder) MaybeAddConstraint(
	submapID mapping.SubmapID,
	submap mapping.Submap,
	nodeID mapping.NodeID,
	scanIndex int,
	nodes []mapping.TrajectoryNode,
	relativePose spatialmath.Rigid3,
) {
	rangeData := nodes[scanIndex].ConstantData.RangeData
	b.startJob(scanIndex)
	b.schedule(func() {
		defer b.finishJob(scanIndex)
		scan, err := rangeData.Decompress()
		if err != nil {
			b.logger.Errorw("dropping match job", "scan_index", scanIndex, "error", err)
			return
		}
		match, err := b.matcher.Match(submap, scan, relativePose)
		if err != nil {
			b.logger.Debugw("match failed", "scan_index", scanIndex, "submap_id", submapID, "error", err)
			return
		}
		if match == nil || match.Score < b.opts.MinScore {
			return
		}
		b.addConstraint(mapping.Constraint{
			SubmapID:        submapID,
			NodeID:          nodeID,
			Relative:        match.Relative,
			SqrtInformation: match.SqrtInformation,
			Tag:             mapping.InterSubmap,
		})
	})
}

// MaybeAddGlobalConstraint schedules a full-submap match with no pose
// prior. On acceptance the two trajectories are recorded as connected.
func (b *ConstraintBuilder) MaybeAddGlobalConstraint(
	submapID mapping.SubmapID,
	submap mapping.Submap,
	nodeID mapping.NodeID,
	scanIndex int,
	connectivity *mapping.TrajectoryConnectivity,
	nodes []mapping.TrajectoryNode,
) {
	rangeData := nodes[scanIndex].ConstantData.RangeData
	b.startJob(scanIndex)
	b.schedule(func() {
		defer b.finishJob(scanIndex)
		scan, err := rangeData.Decompress()
		if err != nil {
			b.logger.Errorw("dropping global match job", "scan_index", scanIndex, "error", err)
			return
		}
		match, err := b.matcher.MatchFullSubmap(submap, scan)
		if err != nil {
			b.logger.Debugw("global match failed", "scan_index", scanIndex, "submap_id", submapID, "error", err)
			return
		}
		if match == nil || match.Score < b.opts.GlobalLocalizationMinScore {
			return
		}
		connectivity.Connect(nodeID.TrajectoryID, submapID.TrajectoryID)
		b.addConstraint(mapping.Constraint{
			SubmapID:        submapID,
			NodeID:          nodeID,
			Relative:        match.Relative,
			SqrtInformation: match.SqrtInformation,
			Tag:             mapping.InterSubmap,
		})
	})
}

// NotifyEndOfScan seals the scan's batch of match jobs. Scans must be
// sealed in flat index order.
func (b *ConstraintBuilder) NotifyEndOfScan(scanIndex int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if scanIndex != b.notifiedScans {
		panic("constraintbuilder: scans must be sealed in order")
	}
	b.notifiedScans++
	b.advanceFinishedLocked()
	b.maybeDispatchWhenDoneLocked()
}

// WhenDone registers a callback invoked on a pool goroutine once all
// outstanding match jobs have completed, with the batch of constraints
// accepted since the previous callback. Only one callback may be
// pending at a time.
func (b *ConstraintBuilder) WhenDone(callback func(Result)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.whenDone != nil {
		panic("constraintbuilder: WhenDone callback already pending")
	}
	b.whenDone = callback
	b.maybeDispatchWhenDoneLocked()
}

// GetNumFinishedScans returns how many scans, in flat index order, have
// had every match job complete.
func (b *ConstraintBuilder) GetNumFinishedScans() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.numFinishedScans
}

// Close stops the worker pool. The builder must be idle.
func (b *ConstraintBuilder) Close() {
	b.queueMu.Lock()
	b.closed = true
	b.queueCond.Broadcast()
	b.queueMu.Unlock()
	b.workers.Stop()
}

func (b *ConstraintBuilder) startJob(scanIndex int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingJobs[scanIndex]++
	b.totalPending++
}

func (b *ConstraintBuilder) finishJob(scanIndex int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingJobs[scanIndex]--
	b.totalPending--
	b.advanceFinishedLocked()
	b.maybeDispatchWhenDoneLocked()
}

func (b *ConstraintBuilder) addConstraint(constraint mapping.Constraint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.constraints = append(b.constraints, constraint)
}

func (b *ConstraintBuilder) advanceFinishedLocked() {
	for b.numFinishedScans < b.notifiedScans && b.pendingJobs[b.numFinishedScans] == 0 {
		delete(b.pendingJobs, b.numFinishedScans)
		b.numFinishedScans++
	}
}

func (b *ConstraintBuilder) maybeDispatchWhenDoneLocked() {
	if b.whenDone == nil || b.totalPending != 0 {
		return
	}
	callback := b.whenDone
	b.whenDone = nil
	result := b.constraints
	b.constraints = nil
	b.schedule(func() { callback(result) })
}

func (b *ConstraintBuilder) schedule(job func()) {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	if b.closed {
		panic("constraintbuilder: schedule after Close")
	}
	b.queue = append(b.queue, job)
	b.queueCond.Signal()
}

func (b *ConstraintBuilder) worker(ctx context.Context) {
	for {
		b.queueMu.Lock()
		for len(b.queue) == 0 && !b.closed {
			b.queueCond.Wait()
		}
		if len(b.queue) == 0 && b.closed {
			b.queueMu.Unlock()
			return
		}
		job := b.queue[0]
		b.queue = b.queue[1:]
		b.queueMu.Unlock()
		job()
	}
}
