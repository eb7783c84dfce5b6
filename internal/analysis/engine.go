package analysis

import (
	"log/slog"
)

// assumedHeightM converts bounding-box pixels to meters: the subject is
// assumed to stand 1.75 m tall.
const assumedHeightM = 1.75

// EngineConfig bundles all tunables of a single analysis run.
type EngineConfig struct {
	FPS          float64
	Step         int
	TargetStroke StrokeType
	Lock         LockConfig
	Angles       AngleThresholds
	Heuristics   HeuristicThresholds
	Segments     SegmentConfig
	Risk         RiskThresholds
}

// DefaultEngineConfig returns a 30 fps configuration with every threshold
// table at its defaults and no target bias.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		FPS:        30,
		Step:       1,
		Lock:       DefaultLockConfig(),
		Angles:     DefaultAngleThresholds(),
		Heuristics: DefaultHeuristicThresholds(),
		Segments:   DefaultSegmentConfig(),
		Risk:       DefaultRiskThresholds(),
	}
}

// Engine drives the whole per-video analysis: identity tracking every
// frame, biomechanics and classification on analysis frames, then segment
// detection and session summaries at the end. Stateful in frame order, one
// instance per video.
type Engine struct {
	cfg      EngineConfig
	tracker  *IdentityTracker
	strokes  *StrokeClassifier
	injury   *InjuryRiskAggregator
	segments *SegmentDetector
	logger   *slog.Logger

	frames     []FrameResult
	stream     []FrameClass
	allMetrics []FrameMetrics

	prevCenter *Point
	distanceM  float64
	lastFrame  int

	finalSegs []Segment
}

// NewEngine returns a ready engine. Hints may be zero for auto selection.
func NewEngine(cfg EngineConfig, hints Hints, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.Step <= 0 {
		cfg.Step = 1
	}
	return &Engine{
		cfg:      cfg,
		tracker:  NewIdentityTracker(cfg.Lock, hints, logger),
		strokes:  NewStrokeClassifier(cfg.Heuristics),
		injury:   NewInjuryRiskAggregator(cfg.Risk),
		segments: NewSegmentDetector(cfg.Segments, logger),
		logger:   logger,
	}
}

// Track advances identity tracking for one frame. Call for EVERY frame,
// including frames skipped by the analysis step: lock stability depends on
// an unbroken view of the track stream.
func (e *Engine) Track(in FrameInput) (Selection, bool) {
	if in.FrameIdx > e.lastFrame {
		e.lastFrame = in.FrameIdx
	}
	sel, ok := e.tracker.Step(in)
	if ok && sel.Found {
		e.accumulateDistance(sel.Box)
	}
	return sel, ok
}

// IsAnalysisFrame reports whether idx falls on the analysis cadence.
func (e *Engine) IsAnalysisFrame(idx int) bool {
	return idx%e.cfg.Step == 0
}

// AnalyzeFrame runs the full biomechanics stack on one analysis frame. A
// nil pose still records the frame with tracking data only, keeping the
// output frame list gap-free. Call in frame order after Track.
func (e *Engine) AnalyzeFrame(frameIdx int, sel Selection, pose Pose) {
	fr := FrameResult{
		FrameIdx:     frameIdx,
		FrameIdxAlt:  frameIdx,
		TimestampSec: round3(float64(frameIdx) / e.cfg.FPS),
		BBox:         [4]float64{sel.Box.X1, sel.Box.Y1, sel.Box.X2, sel.Box.Y2},
		Confidence:   sel.Confidence,
		TrackID:      e.tracker.Lock().LockedID,
	}

	if pose != nil {
		metrics := ComputeMetrics(frameIdx, pose)

		// Record the velocity magnitude before the history advances so the
		// segment peak scan can see it.
		_, velMag := WristVelocity(metrics, e.strokes.history)
		metrics[MetricWristVelocityY] = round3(velMag)

		cls := e.strokes.ClassifyFrame(metrics, nil, e.cfg.TargetStroke)
		bio := e.cfg.Angles.Validate(pose, cls.Type)
		risks := e.injury.AnalyzeFrame(bio, cls.Type)

		fr.Metrics = metrics
		fr.Landmarks = pose
		fr.Stroke = &cls
		fr.Biomechanics = &bio
		fr.Feedback = StrokeFeedback(metrics, cls.Type)
		fr.Risks = risks

		e.stream = append(e.stream, FrameClass{
			FrameIdx: frameIdx,
			TrackID:  fr.TrackID,
			Class:    cls,
		})
		e.allMetrics = append(e.allMetrics, metrics)
	}

	e.frames = append(e.frames, fr)
}

// accumulateDistance converts bottom-center movement to meters using the
// bounding-box height as the pixel scale.
func (e *Engine) accumulateDistance(box Box) {
	bboxH := box.Y2 - box.Y1
	center := Point{X: (box.X1 + box.X2) / 2, Y: box.Y2}

	if e.prevCenter != nil && bboxH > 0 {
		px := dist(center, *e.prevCenter)
		e.distanceM += px * assumedHeightM / bboxH
	}
	e.prevCenter = &center
}

// Finalize runs segment detection over the accumulated classification
// stream and assembles the complete result. totalFrames is the raw frame
// count of the video, before step skipping, used for duration and speed.
func (e *Engine) Finalize(totalFrames int) *Result {
	segs := e.segments.Detect(e.stream, e.allMetrics)
	segs = e.filterTarget(segs)
	e.finalSegs = segs

	strokes := make([]StrokeEvent, 0, len(segs))
	for _, seg := range segs {
		strokes = append(strokes, strokeEvent(seg, e.cfg.FPS))
	}

	dominant := StrokeUnknown
	if len(strokes) > 0 {
		dominant = strokes[0].Type
	}

	durationSec := float64(totalFrames) / e.cfg.FPS
	avgSpeed := 0.0
	if totalFrames > 0 {
		avgSpeed = e.distanceM / durationSec * 3.6
	}

	return &Result{
		Frames:  e.frames,
		Strokes: strokes,
		Summary: SessionSummary{
			TotalDistanceM:     round2(e.distanceM),
			AvgSpeedKmh:        round2(avgSpeed),
			TrackedDurationSec: round1(durationSec),
			DominantStroke:     dominant,
		},
		InjuryRiskSummary: e.injury.Summary(),
	}
}

// Signatures returns one motion signature per accepted stroke, in the same
// order as Result.Strokes. Valid after Finalize.
func (e *Engine) Signatures() [][]float32 {
	sigs := make([][]float32, 0, len(e.finalSegs))
	for _, seg := range e.finalSegs {
		sigs = append(sigs, StrokeSignature(seg, e.allMetrics))
	}
	return sigs
}

// filterTarget keeps only segments matching the operator's stroke hint.
// No hint means everything passes.
func (e *Engine) filterTarget(segs []Segment) []Segment {
	target := e.cfg.TargetStroke
	if target == "" || target == StrokeUnknown {
		return segs
	}

	kept := make([]Segment, 0, len(segs))
	dropped := 0
	for _, seg := range segs {
		if seg.Type == target {
			kept = append(kept, seg)
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		e.logger.Debug("dropped segments not matching target stroke",
			"target", target, "dropped", dropped, "kept", len(kept))
	}
	return kept
}
