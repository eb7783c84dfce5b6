package analysis

import "log/slog"

// FrameClass is one entry of the per-frame classification stream fed to the
// segment detector: the literal frame index (frames may have been skipped),
// the track identifier the frame was attributed to, and the classification.
type FrameClass struct {
	FrameIdx int
	TrackID  int
	Class    Classification
}

// Segment is a maximal run of consecutive frames classified as the same
// stroke type, after gap-merging. Confidence is the max per-frame confidence
// within the run: one strong frame should not be diluted by weak neighbours.
type Segment struct {
	StartFrame   int        `json:"start_frame"`
	EndFrame     int        `json:"end_frame"`
	Type         StrokeType `json:"stroke_type"`
	Confidence   float64    `json:"confidence"`
	PeakVelocity float64    `json:"peak_velocity"`
	PeakFrame    int        `json:"peak_frame_idx"`
	TrackID      int        `json:"track_id"`
}

// Length returns the segment length in frames, endpoints inclusive.
func (s Segment) Length() int { return s.EndFrame - s.StartFrame + 1 }

// SegmentGate is the per-stroke acceptance gate applied in the second pass.
type SegmentGate struct {
	MinConfidence   float64 `yaml:"min_confidence"`
	MinPeakVelocity float64 `yaml:"min_peak_velocity"`
	MinLength       int     `yaml:"min_length"`
}

// SegmentConfig tunes run-length encoding, merging, and gating.
type SegmentConfig struct {
	MinLength      int                        `yaml:"min_length"`
	MaxMergeGap    int                        `yaml:"max_merge_gap"`
	CooldownFrames int                        `yaml:"cooldown_frames"`
	Gates          map[StrokeType]SegmentGate `yaml:"gates"`
}

// DefaultSegmentConfig returns the domain defaults: 3-frame floor, merge
// across gaps of up to 3 frames, 10-frame cooldown between accepted hits.
func DefaultSegmentConfig() SegmentConfig {
	gate := SegmentGate{MinConfidence: 0.5, MinPeakVelocity: 0, MinLength: 3}
	return SegmentConfig{
		MinLength:      3,
		MaxMergeGap:    3,
		CooldownFrames: 10,
		Gates: map[StrokeType]SegmentGate{
			StrokeServe:        gate,
			StrokeGroundstroke: gate,
			StrokeVolley:       gate,
			StrokeDink:         gate,
			StrokeOverhead:     gate,
		},
	}
}

// SegmentDetector converts the whole-sequence classification stream into
// accepted stroke segments. It is a post-hoc pass: it needs the complete
// stream and metrics sequence, not a running window.
type SegmentDetector struct {
	cfg    SegmentConfig
	logger *slog.Logger
}

// NewSegmentDetector returns a detector with the given config. A nil logger
// falls back to slog.Default.
func NewSegmentDetector(cfg SegmentConfig, logger *slog.Logger) *SegmentDetector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = 3
	}
	return &SegmentDetector{cfg: cfg, logger: logger}
}

// Detect runs the full two-stage transform: encode → filter → merge, then
// peak annotation, identity resolution, and acceptance gates with cooldown.
// metrics must cover the same frames as the stream (used for the peak scan).
func (d *SegmentDetector) Detect(stream []FrameClass, metrics []FrameMetrics) []Segment {
	segments := MergeSegments(d.filterShort(EncodeRuns(stream)), d.cfg.MaxMergeGap)

	for i := range segments {
		annotatePeak(&segments[i], metrics)
		d.resolveIdentity(&segments[i], stream)
	}

	return d.applyGates(segments)
}

// EncodeRuns run-length encodes the classification stream into contiguous
// same-type runs keyed by literal frame index, tolerating skipped frames.
// Pure: the input is not modified.
func EncodeRuns(stream []FrameClass) []Segment {
	var runs []Segment
	for _, fc := range stream {
		n := len(runs)
		if n > 0 && runs[n-1].Type == fc.Class.Type {
			runs[n-1].EndFrame = fc.FrameIdx
			if fc.Class.Confidence > runs[n-1].Confidence {
				runs[n-1].Confidence = fc.Class.Confidence
			}
			continue
		}
		runs = append(runs, Segment{
			StartFrame: fc.FrameIdx,
			EndFrame:   fc.FrameIdx,
			Type:       fc.Class.Type,
			Confidence: fc.Class.Confidence,
		})
	}
	return runs
}

// filterShort drops unknown runs and runs below the minimum-length floor.
func (d *SegmentDetector) filterShort(runs []Segment) []Segment {
	out := make([]Segment, 0, len(runs))
	for _, r := range runs {
		if r.Type == StrokeUnknown || r.Type == "" {
			continue
		}
		if r.Length() < d.cfg.MinLength {
			continue
		}
		out = append(out, r)
	}
	return out
}

// MergeSegments merges adjacent same-type segments separated by at most
// maxGap frames, extending the end frame and keeping the max confidence.
// Idempotent: merging an already-merged list is a no-op.
func MergeSegments(segments []Segment, maxGap int) []Segment {
	var merged []Segment
	for _, seg := range segments {
		n := len(merged)
		if n > 0 && merged[n-1].Type == seg.Type {
			gap := seg.StartFrame - merged[n-1].EndFrame - 1
			if gap <= maxGap {
				merged[n-1].EndFrame = seg.EndFrame
				if seg.Confidence > merged[n-1].Confidence {
					merged[n-1].Confidence = seg.Confidence
				}
				continue
			}
		}
		merged = append(merged, seg)
	}
	return merged
}

// annotatePeak finds the maximum recorded wrist-velocity magnitude within
// the segment's frame range, marking the likely contact frame.
func annotatePeak(seg *Segment, metrics []FrameMetrics) {
	maxV := 0.0
	maxFrame := seg.StartFrame
	for _, m := range metrics {
		idx := m.FrameIdx()
		if idx < seg.StartFrame || idx > seg.EndFrame {
			continue
		}
		if v := m.Get(MetricWristVelocityY, 0); v > maxV {
			maxV = v
			maxFrame = idx
		}
	}
	seg.PeakVelocity = maxV
	seg.PeakFrame = maxFrame
}

// resolveIdentity assigns the segment's track identifier by majority vote
// over its frames. A segment spanning more than one identifier is an
// anomaly worth surfacing, never fatal.
func (d *SegmentDetector) resolveIdentity(seg *Segment, stream []FrameClass) {
	votes := make(map[int]int)
	for _, fc := range stream {
		if fc.FrameIdx >= seg.StartFrame && fc.FrameIdx <= seg.EndFrame {
			votes[fc.TrackID]++
		}
	}

	best, bestCount := -1, 0
	for id, count := range votes {
		if count > bestCount {
			best, bestCount = id, count
		}
	}
	seg.TrackID = best

	if len(votes) > 1 {
		d.logger.Warn("segment spans multiple track identities, resolved by majority vote",
			"start_frame", seg.StartFrame,
			"end_frame", seg.EndFrame,
			"stroke_type", seg.Type,
			"identities", len(votes),
			"winner", best,
		)
	}
}

// applyGates runs the per-stroke acceptance gates and the cooldown window
// that suppresses duplicate detections of the same physical hit.
func (d *SegmentDetector) applyGates(segments []Segment) []Segment {
	var accepted []Segment
	lastEnd := make(map[StrokeType]int)

	for _, seg := range segments {
		gate, ok := d.cfg.Gates[seg.Type]
		if !ok {
			gate = SegmentGate{MinConfidence: 0.5, MinLength: d.cfg.MinLength}
		}

		if seg.Confidence < gate.MinConfidence {
			continue
		}
		if seg.PeakVelocity < gate.MinPeakVelocity {
			continue
		}
		minLen := gate.MinLength
		if minLen <= 0 {
			minLen = d.cfg.MinLength
		}
		if seg.Length() < minLen {
			continue
		}

		if end, seen := lastEnd[seg.Type]; seen && seg.StartFrame-end <= d.cfg.CooldownFrames {
			continue
		}

		accepted = append(accepted, seg)
		lastEnd[seg.Type] = seg.EndFrame
	}

	return accepted
}
