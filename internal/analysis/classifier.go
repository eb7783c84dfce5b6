package analysis

import "math"

// StrokeClassifier wraps the frame heuristics with a bounded history so
// callers get velocity-aware classification without managing the window
// themselves. One instance per tracked subject.
type StrokeClassifier struct {
	thresholds HeuristicThresholds
	history    *History
}

// NewStrokeClassifier returns a classifier with an empty history window.
func NewStrokeClassifier(thresholds HeuristicThresholds) *StrokeClassifier {
	return &StrokeClassifier{
		thresholds: thresholds,
		history:    NewHistory(HistorySize),
	}
}

// ClassifyFrame classifies one frame against the accumulated history, then
// records the frame. Call in frame order.
func (c *StrokeClassifier) ClassifyFrame(m FrameMetrics, position *CourtPosition, target StrokeType) Classification {
	cls := c.thresholds.Classify(m, c.history, position, target)
	c.history.Push(m)
	return cls
}

// Reset clears the history window, e.g. when the tracked subject changes.
func (c *StrokeClassifier) Reset() {
	c.history.Reset()
}

// SequenceResult is the dominant stroke over a whole clip.
type SequenceResult struct {
	Type       StrokeType         `json:"type"`
	Confidence float64            `json:"confidence"`
	Votes      map[StrokeType]int `json:"votes,omitempty"`
}

// ClassifySequence classifies every frame of a clip and returns the
// majority-vote stroke type. Confidence is the winning vote share, not the
// per-frame heuristic confidence.
func (c *StrokeClassifier) ClassifySequence(frames []FrameMetrics, target StrokeType) SequenceResult {
	if len(frames) == 0 {
		return SequenceResult{Type: StrokeUnknown, Confidence: 0}
	}

	history := NewHistory(HistorySize)
	votes := make(map[StrokeType]int)

	for _, m := range frames {
		cls := c.thresholds.Classify(m, history, nil, target)
		votes[cls.Type]++
		history.Push(m)
	}

	best := StrokeUnknown
	bestCount := 0
	for t, n := range votes {
		if n > bestCount {
			best, bestCount = t, n
		}
	}

	return SequenceResult{
		Type:       best,
		Confidence: math.Round(float64(bestCount)/float64(len(frames))*100) / 100,
		Votes:      votes,
	}
}
