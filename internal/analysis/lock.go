package analysis

import (
	"log/slog"
	"math"
)

// TargetLock is the single piece of cross-frame identity state. Once
// LockedID is set it is never cleared: the contract is "find the same
// person again", never "pick a new person". Downstream segment identity
// validation depends on that invariant.
type TargetLock struct {
	LockedID    int
	LastCenter  *Point
	LostFrames  int
	Established bool
}

// LockConfig tunes target selection and re-acquisition.
type LockConfig struct {
	// LockWaitFrames is how long to hold out for a good ROI match before
	// falling back to auto selection (~3 s of video).
	LockWaitFrames int `yaml:"lock_wait_frames"`
	// LossTimeoutFrames resets the loss counter without dropping the lock,
	// matching the tracker's max-age period.
	LossTimeoutFrames int `yaml:"loss_timeout_frames"`
	// ROIScoreThreshold is the minimum combined score to accept an ROI match.
	ROIScoreThreshold float64 `yaml:"roi_score_threshold"`
	// MinAutoArea and AutoBottomFraction filter auto selection to large
	// subjects low in frame (near the camera, on court).
	MinAutoArea        float64 `yaml:"min_auto_area"`
	AutoBottomFraction float64 `yaml:"auto_bottom_fraction"`
	// Re-acquisition radii in pixels. The relaxed radius applies when the
	// last known position was near a frame edge (fast exits and re-entries).
	DetectionRadius    float64 `yaml:"detection_radius"`
	RelockRadius       float64 `yaml:"relock_radius"`
	RelockRadiusAtEdge float64 `yaml:"relock_radius_at_edge"`
	EdgeMargin         float64 `yaml:"edge_margin"`
	RelockMinConf      float64 `yaml:"relock_min_conf"`
	RelockMinArea      float64 `yaml:"relock_min_area"`
}

// DefaultLockConfig returns the tuned defaults (30 fps assumptions).
func DefaultLockConfig() LockConfig {
	return LockConfig{
		LockWaitFrames:     90,
		LossTimeoutFrames:  300,
		ROIScoreThreshold:  0.3,
		MinAutoArea:        30000,
		AutoBottomFraction: 0.65,
		DetectionRadius:    40,
		RelockRadius:       30,
		RelockRadiusAtEdge: 60,
		EdgeMargin:         50,
		RelockMinConf:      0.5,
		RelockMinArea:      1000,
	}
}

// Hints carries the operator's optional targeting input, both normalized to
// [0,1] frame coordinates. ROI takes priority over Point.
type Hints struct {
	ROI   *Box
	Point *Point
}

// FrameInput is everything the tracker sees for one analyzed frame.
type FrameInput struct {
	FrameIdx   int
	Width      float64
	Height     float64
	Tracks     []TrackCandidate
	Detections []DetectionCandidate
}

// Selection is the tracker's output for a frame: the adopted box, its
// confidence, and whether the target was actually found (vs. carried).
type Selection struct {
	Box        Box
	Confidence float64
	Found      bool
}

// IdentityTracker keeps a persistent identity lock on one subject across an
// unreliable stream of per-frame track proposals. It is stateful in frame
// order and must be stepped sequentially.
type IdentityTracker struct {
	cfg    LockConfig
	hints  Hints
	lock   TargetLock
	logger *slog.Logger

	lastBox  *Box
	lastConf float64
}

// NewIdentityTracker returns an unlocked tracker.
func NewIdentityTracker(cfg LockConfig, hints Hints, logger *slog.Logger) *IdentityTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityTracker{
		cfg:    cfg,
		hints:  hints,
		lock:   TargetLock{LockedID: -1},
		logger: logger,
	}
}

// Lock returns a copy of the current lock state.
func (t *IdentityTracker) Lock() TargetLock { return t.lock }

// Step advances the state machine by one frame and returns the target
// selection. ok is false when no box can be surfaced at all (not yet locked
// and nothing to carry forward).
func (t *IdentityTracker) Step(in FrameInput) (Selection, bool) {
	// Steady state: sticky persistence. While the locked identifier is
	// visible it wins outright, never re-scored against competitors.
	if t.lock.Established {
		if sel, found := t.findLockedID(in.Tracks); found {
			t.adopt(sel)
			return sel, true
		}
		return t.recover(in)
	}

	// Unlocked: run initial selection.
	id := t.selectTarget(in)
	if id < 0 {
		return Selection{}, false
	}

	t.lock.LockedID = id
	t.lock.Established = true
	t.logger.Info("target locked", "track_id", id, "frame", in.FrameIdx)

	if sel, found := t.findLockedID(in.Tracks); found {
		t.adopt(sel)
		return sel, true
	}
	return Selection{}, false
}

func (t *IdentityTracker) findLockedID(tracks []TrackCandidate) (Selection, bool) {
	for _, tr := range tracks {
		if tr.ID == t.lock.LockedID {
			return Selection{Box: tr.Box, Confidence: tr.Confidence, Found: true}, true
		}
	}
	return Selection{}, false
}

func (t *IdentityTracker) adopt(sel Selection) {
	t.lock.LostFrames = 0
	c := sel.Box.Center()
	t.lock.LastCenter = &c
	t.lastBox = &sel.Box
	t.lastConf = sel.Confidence
}

// selectTarget scores candidates for the initial lock, highest-priority
// hint first.
func (t *IdentityTracker) selectTarget(in FrameInput) int {
	if t.hints.ROI != nil {
		if id, ok := t.selectByROI(in); ok {
			return id
		}
		if in.FrameIdx < t.cfg.LockWaitFrames {
			// Hold out for a good match during the lock-wait window.
			return -1
		}
		t.logger.Warn("lock-wait window expired without ROI match, falling back to auto selection",
			"frame", in.FrameIdx)
		return t.selectByArea(in)
	}

	if t.hints.Point != nil {
		if id, ok := t.selectByPoint(in); ok {
			return id
		}
	}

	return t.selectByArea(in)
}

// selectByROI scores every track against the ROI hint: IoU, coverage of the
// candidate inside the ROI, and inverse center distance, with a hard
// penalty for candidates whose center falls outside the region.
func (t *IdentityTracker) selectByROI(in FrameInput) (int, bool) {
	roi := Box{
		X1: t.hints.ROI.X1 * in.Width,
		Y1: t.hints.ROI.Y1 * in.Height,
		X2: t.hints.ROI.X2 * in.Width,
		Y2: t.hints.ROI.Y2 * in.Height,
	}
	roiCenter := roi.Center()

	bestScore := 0.0
	bestID := -1

	for _, tr := range in.Tracks {
		center := tr.Box.Center()

		iou := IoU(roi, tr.Box)
		coverage := coverageInside(tr.Box, roi)

		distX := (center.X - roiCenter.X) / in.Width
		distY := (center.Y - roiCenter.Y) / in.Height
		distScore := 1.0 - math.Sqrt(distX*distX+distY*distY)

		inside := roi.Contains(center) || coverage > 0.3

		score := iou*0.4 + coverage*1.0 + distScore*0.6
		if !inside {
			score *= 0.1
		}

		if score > bestScore {
			bestScore = score
			bestID = tr.ID
		}
	}

	if bestID >= 0 && bestScore > t.cfg.ROIScoreThreshold {
		return bestID, true
	}
	return -1, false
}

// selectByPoint picks the track whose box contains the click point, nearest
// to its center.
func (t *IdentityTracker) selectByPoint(in FrameInput) (int, bool) {
	target := Point{X: t.hints.Point.X * in.Width, Y: t.hints.Point.Y * in.Height}

	minDist := math.Inf(1)
	bestID := -1

	for _, tr := range in.Tracks {
		if !tr.Box.Contains(target) {
			continue
		}
		if d := dist(tr.Box.Center(), target); d < minDist {
			minDist = d
			bestID = tr.ID
		}
	}

	return bestID, bestID >= 0
}

// selectByArea picks the largest candidate that also sits low in frame, a
// proxy for "near the camera, on court".
func (t *IdentityTracker) selectByArea(in FrameInput) int {
	minY := in.Height * t.cfg.AutoBottomFraction

	maxArea := 0.0
	bestID := -1

	for _, tr := range in.Tracks {
		area := tr.Box.Area()
		if area > t.cfg.MinAutoArea && tr.Box.Y2 > minY && area > maxArea {
			maxArea = area
			bestID = tr.ID
		}
	}

	return bestID
}

// recover attempts re-acquisition when the locked identifier is missing
// this frame: first a raw detection inside the ROI near the last center,
// then a relaxed-radius re-lock over tracks. Failing both, the loss counter
// advances and the last known box keeps being surfaced.
func (t *IdentityTracker) recover(in FrameInput) (Selection, bool) {
	if t.lock.LastCenter != nil {
		if sel, ok := t.recoverFromDetections(in); ok {
			t.adopt(sel)
			return sel, true
		}
		if sel, ok := t.relockFromTracks(in); ok {
			t.adopt(sel)
			return sel, true
		}
	}

	t.lock.LostFrames++
	if t.lock.LostFrames > t.cfg.LossTimeoutFrames {
		// Keep the identifier: the target is never dropped, only the
		// counter resets so the relaxed search keeps running.
		t.logger.Warn("target lost past timeout, holding last known position",
			"track_id", t.lock.LockedID, "lost_frames", t.lock.LostFrames)
		t.lock.LostFrames = 0
	}

	if t.lastBox != nil {
		return Selection{Box: *t.lastBox, Confidence: t.lastConf, Found: false}, true
	}
	return Selection{}, false
}

// recoverFromDetections falls back to raw detections near the last known
// center, strictly constrained to the ROI hint when one was supplied.
func (t *IdentityTracker) recoverFromDetections(in FrameInput) (Selection, bool) {
	bestDist := t.cfg.DetectionRadius
	var best *DetectionCandidate

	for i := range in.Detections {
		det := &in.Detections[i]
		center := det.Box.Center()

		if !t.insideROIHint(center, in) {
			continue
		}

		if d := dist(center, *t.lock.LastCenter); d < bestDist {
			bestDist = d
			best = det
		}
	}

	if best == nil {
		return Selection{}, false
	}
	t.logger.Debug("re-lock from raw detection", "distance_px", bestDist)
	return Selection{Box: best.Box, Confidence: best.Confidence, Found: true}, true
}

// relockFromTracks switches the lock to a nearby track when the original
// identifier is gone: same logical target, new underlying identifier. The
// radius loosens near frame edges, where fast exits and re-entries land.
func (t *IdentityTracker) relockFromTracks(in FrameInput) (Selection, bool) {
	radius := t.cfg.RelockRadius
	if t.nearEdge(*t.lock.LastCenter, in) {
		radius = t.cfg.RelockRadiusAtEdge
	}

	minDist := radius
	bestID := -1
	var bestSel Selection

	for _, tr := range in.Tracks {
		center := tr.Box.Center()

		if !t.insideROIHint(center, in) {
			continue
		}
		if tr.Confidence <= t.cfg.RelockMinConf || tr.Box.Area() <= t.cfg.RelockMinArea {
			continue
		}

		if d := dist(center, *t.lock.LastCenter); d < minDist {
			minDist = d
			bestID = tr.ID
			bestSel = Selection{Box: tr.Box, Confidence: tr.Confidence, Found: true}
		}
	}

	if bestID < 0 {
		return Selection{}, false
	}

	t.logger.Info("re-locked to nearby track",
		"old_id", t.lock.LockedID, "new_id", bestID, "distance_px", minDist)
	t.lock.LockedID = bestID
	return bestSel, true
}

func (t *IdentityTracker) insideROIHint(p Point, in FrameInput) bool {
	if t.hints.ROI == nil {
		return true
	}
	roi := Box{
		X1: t.hints.ROI.X1 * in.Width,
		Y1: t.hints.ROI.Y1 * in.Height,
		X2: t.hints.ROI.X2 * in.Width,
		Y2: t.hints.ROI.Y2 * in.Height,
	}
	return roi.Contains(p)
}

func (t *IdentityTracker) nearEdge(p Point, in FrameInput) bool {
	m := t.cfg.EdgeMargin
	return p.X < m || p.X > in.Width-m || p.Y < m || p.Y > in.Height-m
}

// coverageInside returns how much of box lies inside region.
func coverageInside(box, region Box) float64 {
	x1 := math.Max(box.X1, region.X1)
	y1 := math.Max(box.Y1, region.Y1)
	x2 := math.Min(box.X2, region.X2)
	y2 := math.Min(box.Y2, region.Y2)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	area := box.Area()
	if area <= 0 {
		return 0
	}
	return (x2 - x1) * (y2 - y1) / area
}

func dist(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
