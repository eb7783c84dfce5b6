package vision

import "sync"

// Track represents a tracked person across frames.
type Track struct {
	ID              int
	BBox            [4]float32
	Confidence      float32
	Hits            int // number of detection matches
	TimeSinceUpdate int // frames since last detection match
	vx, vy          float32
}

// Tracker implements a simple SORT-like person tracker with
// constant-velocity prediction for unmatched tracks. Identifiers persist
// for up to maxAge frames without a matching detection, which is what lets
// the downstream identity lock survive short occlusions.
type Tracker struct {
	mu      sync.Mutex
	tracks  map[int]*Track
	nextID  int
	maxAge  int
	minHits int
	iouMin  float32
}

// NewTracker creates a person tracker.
func NewTracker(maxAge, minHits int, iouMin float32) *Tracker {
	if iouMin <= 0 {
		iouMin = 0.3
	}
	return &Tracker{
		tracks:  make(map[int]*Track),
		maxAge:  maxAge,
		minHits: minHits,
		iouMin:  iouMin,
	}
}

// Update matches detections to existing tracks and returns the current
// track set. Must tolerate an empty detection list: unmatched tracks are
// carried forward on their last known velocity and flagged Predicted.
func (t *Tracker) Update(detections []Detection) []TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, track := range t.tracks {
		track.TimeSinceUpdate++
	}

	matched := make(map[int]bool)
	detMatched := make(map[int]bool)

	// Greedy IoU matching, best pair first per detection.
	for di, det := range detections {
		bestIoU := t.iouMin
		bestID := -1

		for id, tr := range t.tracks {
			if matched[id] {
				continue
			}
			if v := iou(det.BBox, tr.BBox); v > bestIoU {
				bestIoU = v
				bestID = id
			}
		}

		if bestID >= 0 {
			tr := t.tracks[bestID]
			tr.vx = (det.BBox[0]+det.BBox[2])/2 - (tr.BBox[0]+tr.BBox[2])/2
			tr.vy = (det.BBox[1]+det.BBox[3])/2 - (tr.BBox[1]+tr.BBox[3])/2
			tr.BBox = det.BBox
			tr.Confidence = det.Confidence
			tr.Hits++
			tr.TimeSinceUpdate = 0
			matched[bestID] = true
			detMatched[di] = true
		}
	}

	// New tracks for unmatched detections.
	for di, det := range detections {
		if detMatched[di] {
			continue
		}
		t.nextID++
		t.tracks[t.nextID] = &Track{
			ID:         t.nextID,
			BBox:       det.BBox,
			Confidence: det.Confidence,
			Hits:       1,
		}
	}

	// Predict unmatched tracks forward, drop stale ones.
	out := make([]TrackState, 0, len(t.tracks))
	for id, tr := range t.tracks {
		if tr.TimeSinceUpdate > t.maxAge {
			delete(t.tracks, id)
			continue
		}
		if tr.Hits < t.minHits {
			continue
		}

		predicted := tr.TimeSinceUpdate > 0
		if predicted {
			tr.BBox[0] += tr.vx
			tr.BBox[2] += tr.vx
			tr.BBox[1] += tr.vy
			tr.BBox[3] += tr.vy
		}

		out = append(out, TrackState{
			ID:         tr.ID,
			BBox:       tr.BBox,
			Confidence: tr.Confidence,
			Predicted:  predicted,
		})
	}

	return out
}

// TrackCount returns the number of active tracks.
func (t *Tracker) TrackCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracks)
}

// TrackState is the per-frame snapshot of one track.
type TrackState struct {
	ID         int
	BBox       [4]float32
	Confidence float32
	Predicted  bool
}
