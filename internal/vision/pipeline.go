package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/courtvision/internal/analysis"
	"github.com/your-org/courtvision/internal/config"
	"github.com/your-org/courtvision/internal/models"
	"github.com/your-org/courtvision/internal/observability"
	"github.com/your-org/courtvision/internal/queue"
	"github.com/your-org/courtvision/internal/storage"
)

// Pipeline orchestrates the full analysis of one video:
// detect → track → lock → pose → classify → segment → persist.
type Pipeline struct {
	detector  *Detector
	pose      *PoseEstimator
	db        *storage.PostgresStore
	minio     *storage.MinIOStore
	producer  *queue.Producer
	cfg       config.VisionConfig
	trackCfg  config.TrackingConfig
	engineCfg analysis.EngineConfig
}

// NewPipeline initialises all ONNX models and returns a ready pipeline.
func NewPipeline(
	cfg config.VisionConfig,
	trackCfg config.TrackingConfig,
	analysisCfg config.AnalysisConfig,
	db *storage.PostgresStore,
	minio *storage.MinIOStore,
	producer *queue.Producer,
) (*Pipeline, error) {

	detPath := filepath.Join(cfg.ModelsDir, "yolov8n.onnx")
	posePath := filepath.Join(cfg.ModelsDir, "pose_landmark_full.onnx")

	slog.Info("loading detection model", "path", detPath)
	det, err := NewDetector(detPath, float32(cfg.DetectionThreshold), nil)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("loading pose model", "path", posePath)
	pose, err := NewPoseEstimator(posePath, float32(cfg.PoseMinPresence), nil)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load pose estimator: %w", err)
	}

	slog.Info("vision pipeline ready")

	return &Pipeline{
		detector:  det,
		pose:      pose,
		db:        db,
		minio:     minio,
		producer:  producer,
		cfg:       cfg,
		trackCfg:  trackCfg,
		engineCfg: analysisCfg.EngineConfig(),
	}, nil
}

// frameWindow is an inclusive frame range selected for refined analysis.
type frameWindow struct {
	start int
	end   int
}

// ProcessJob runs the complete analysis for one queued task. Long videos
// get a cheap coarse scan first to find active ranges, then a refined pass
// restricted to those ranges; tracking still runs over every frame so the
// identity lock never loses continuity.
func (p *Pipeline) ProcessJob(ctx context.Context, task models.AnalysisTask) error {
	jobStart := time.Now()
	observability.ActiveJobs.Inc()
	defer observability.ActiveJobs.Dec()
	defer func() {
		observability.JobDuration.Observe(time.Since(jobStart).Seconds())
	}()

	if task.Step <= 0 {
		task.Step = p.cfg.DefaultStep
	}
	if task.FPS <= 0 {
		task.FPS = p.cfg.DefaultFPS
	}

	hints, err := parseHints(task)
	if err != nil {
		return p.failJob(ctx, task, fmt.Errorf("parse hints: %w", err))
	}

	if err := p.db.UpdateJobStatus(ctx, task.JobID, models.JobProcessing, ""); err != nil {
		slog.Warn("update job status", "job", task.JobID, "error", err)
	}

	engCfg := p.engineCfg
	engCfg.FPS = task.FPS
	engCfg.Step = task.Step
	engCfg.TargetStroke = task.StrokeType

	var windows []frameWindow
	if task.FrameCount > p.cfg.RefineThresholdFrames {
		coarseCfg := engCfg
		coarseCfg.Step = task.Step * p.cfg.CoarseStepMultiplier
		coarse := analysis.NewEngine(coarseCfg, hints, slog.Default())

		if err := p.runPass(ctx, task, coarse, nil); err != nil {
			return p.failJob(ctx, task, err)
		}
		coarseRes := coarse.Finalize(task.FrameCount)
		windows = refineWindows(coarseRes.Strokes, p.cfg.RefineWindowPadFrames, task.FrameCount)
		slog.Info("coarse scan complete",
			"job", task.JobID,
			"coarse_strokes", len(coarseRes.Strokes),
			"refine_windows", len(windows))
	}

	eng := analysis.NewEngine(engCfg, hints, slog.Default())
	if err := p.runPass(ctx, task, eng, windows); err != nil {
		return p.failJob(ctx, task, err)
	}

	res := eng.Finalize(task.FrameCount)
	sigs := eng.Signatures()

	if err := p.db.SaveResult(ctx, task.JobID, res); err != nil {
		return p.failJob(ctx, task, err)
	}

	// Archive the payload next to the source video too
	if payload, err := json.Marshal(res); err == nil {
		key := storage.ResultKey(task.JobID)
		if err := p.minio.PutObject(ctx, key, payload, "application/json"); err != nil {
			slog.Warn("archive result", "job", task.JobID, "error", err)
		}
	}

	for i, ev := range res.Strokes {
		rec := &models.StrokeRecord{JobID: task.JobID, Event: ev}
		if i < len(sigs) {
			rec.Signature = sigs[i]
		}
		if err := p.db.InsertStroke(ctx, rec); err != nil {
			slog.Warn("insert stroke", "job", task.JobID, "error", err)
			continue
		}
		observability.StrokesDetected.WithLabelValues(string(ev.Type)).Inc()
	}

	if err := p.db.UpdateJobStatus(ctx, task.JobID, models.JobCompleted, ""); err != nil {
		slog.Warn("update job status", "job", task.JobID, "error", err)
	}

	event := models.AnalysisEvent{
		JobID:       task.JobID,
		Status:      models.JobCompleted,
		StrokeCount: len(res.Strokes),
		Summary:     &res.Summary,
		OverallRisk: res.InjuryRiskSummary.OverallRisk,
		FinishedAt:  time.Now().UTC(),
	}
	if err := p.producer.PublishEvent(ctx, event); err != nil {
		slog.Error("publish event", "job", task.JobID, "error", err)
	}

	p.cleanupFrames(ctx, task)

	slog.Info("job complete",
		"job", task.JobID,
		"frames", task.FrameCount,
		"strokes", len(res.Strokes),
		"risk", res.InjuryRiskSummary.OverallRisk,
		"took", time.Since(jobStart))
	return nil
}

// runPass walks the frame sequence once: detection and tracking on every
// frame, pose and biomechanics only on analysis-cadence frames inside the
// given windows. nil windows means the whole video.
func (p *Pipeline) runPass(ctx context.Context, task models.AnalysisTask, eng *analysis.Engine, windows []frameWindow) error {
	tracker := NewTracker(p.trackCfg.MaxAge, p.trackCfg.MinHits, float32(p.trackCfg.IoUThreshold))
	jobLabel := task.JobID.String()

	for idx := 0; idx < task.FrameCount; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		key := storage.FrameKey(task.FramesPrefix, idx)
		frameData, err := p.minio.GetObject(ctx, key)
		if err != nil {
			slog.Warn("load frame", "job", task.JobID, "frame", idx, "error", err)
			continue
		}

		img, err := jpeg.Decode(bytes.NewReader(frameData))
		if err != nil {
			slog.Warn("decode frame", "job", task.JobID, "frame", idx, "error", err)
			continue
		}

		bounds := img.Bounds()
		origW := bounds.Dx()
		origH := bounds.Dy()

		start := time.Now()
		detInput := preprocessForDetection(img, p.detector.inputW, p.detector.inputH)
		detections, err := p.detector.Detect(detInput, origW, origH)
		observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())
		if err != nil {
			slog.Warn("detect", "job", task.JobID, "frame", idx, "error", err)
			continue
		}
		if len(detections) > 0 {
			observability.PersonsDetected.WithLabelValues(jobLabel).Add(float64(len(detections)))
		}

		states := tracker.Update(detections)

		sel, ok := eng.Track(analysis.FrameInput{
			FrameIdx:   idx,
			Width:      float64(origW),
			Height:     float64(origH),
			Tracks:     toTrackCandidates(states),
			Detections: toDetectionCandidates(detections),
		})
		observability.FramesProcessed.WithLabelValues(jobLabel).Inc()
		if ok && !sel.Found {
			observability.TargetLost.WithLabelValues(jobLabel).Inc()
		}

		if !ok || !eng.IsAnalysisFrame(idx) || !inWindows(idx, windows) {
			continue
		}

		crop := cropPerson(img, sel.Box)
		if crop == nil {
			eng.AnalyzeFrame(idx, sel, nil)
			continue
		}

		start = time.Now()
		poseInput := preprocessForPose(crop, p.pose.inputW, p.pose.inputH)
		pose, err := p.pose.Estimate(poseInput)
		observability.InferenceDuration.WithLabelValues("pose").Observe(time.Since(start).Seconds())
		if err != nil {
			slog.Warn("pose", "job", task.JobID, "frame", idx, "error", err)
			pose = nil
		}

		eng.AnalyzeFrame(idx, sel, pose)
	}
	return nil
}

func (p *Pipeline) failJob(ctx context.Context, task models.AnalysisTask, cause error) error {
	if err := p.db.UpdateJobStatus(ctx, task.JobID, models.JobFailed, cause.Error()); err != nil {
		slog.Warn("update job status", "job", task.JobID, "error", err)
	}
	event := models.AnalysisEvent{
		JobID:      task.JobID,
		Status:     models.JobFailed,
		Error:      cause.Error(),
		FinishedAt: time.Now().UTC(),
	}
	if err := p.producer.PublishEvent(ctx, event); err != nil {
		slog.Error("publish event", "job", task.JobID, "error", err)
	}
	return cause
}

// cleanupFrames reclaims the extracted frame objects once the analysis is
// persisted. Best effort; leftovers only cost storage.
func (p *Pipeline) cleanupFrames(ctx context.Context, task models.AnalysisTask) {
	keys, err := p.minio.ListObjects(ctx, task.FramesPrefix)
	if err != nil {
		slog.Warn("list frames for cleanup", "job", task.JobID, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := p.minio.DeleteObjects(ctx, keys); err != nil {
		slog.Warn("delete frames", "job", task.JobID, "error", err)
	}
}

// Close releases all ONNX sessions.
func (p *Pipeline) Close() {
	if p.detector != nil {
		p.detector.Close()
	}
	if p.pose != nil {
		p.pose.Close()
	}
}

// parseHints converts the operator's region and point hints from normalized
// "x1,y1,x2,y2" / "x,y" strings to pixel-space lock hints.
func parseHints(task models.AnalysisTask) (analysis.Hints, error) {
	var h analysis.Hints
	w := float64(task.Width)
	ht := float64(task.Height)

	if task.CropRegion != "" {
		vals, err := parseFloats(task.CropRegion, 4)
		if err != nil {
			return h, fmt.Errorf("crop region %q: %w", task.CropRegion, err)
		}
		h.ROI = &analysis.Box{
			X1: vals[0] * w,
			Y1: vals[1] * ht,
			X2: vals[2] * w,
			Y2: vals[3] * ht,
		}
	}

	if task.TargetPoint != "" {
		vals, err := parseFloats(task.TargetPoint, 2)
		if err != nil {
			return h, fmt.Errorf("target point %q: %w", task.TargetPoint, err)
		}
		h.Point = &analysis.Point{X: vals[0] * w, Y: vals[1] * ht}
	}

	return h, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d values, got %d", n, len(parts))
	}
	vals := make([]float64, n)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// refineWindows pads each coarse stroke range and merges overlaps. An empty
// coarse result returns nil, which makes the refined pass scan everything
// rather than silently analyze nothing.
func refineWindows(strokes []analysis.StrokeEvent, pad, totalFrames int) []frameWindow {
	if len(strokes) == 0 {
		return nil
	}

	windows := make([]frameWindow, 0, len(strokes))
	for _, s := range strokes {
		start := s.StartFrame - pad
		end := s.EndFrame + pad
		if start < 0 {
			start = 0
		}
		if end > totalFrames-1 {
			end = totalFrames - 1
		}

		if n := len(windows); n > 0 && start <= windows[n-1].end+1 {
			if end > windows[n-1].end {
				windows[n-1].end = end
			}
			continue
		}
		windows = append(windows, frameWindow{start: start, end: end})
	}
	return windows
}

func inWindows(idx int, windows []frameWindow) bool {
	if len(windows) == 0 {
		return true
	}
	for _, w := range windows {
		if idx >= w.start && idx <= w.end {
			return true
		}
	}
	return false
}

func toTrackCandidates(states []TrackState) []analysis.TrackCandidate {
	out := make([]analysis.TrackCandidate, 0, len(states))
	for _, st := range states {
		out = append(out, analysis.TrackCandidate{
			ID: st.ID,
			Box: analysis.Box{
				X1: float64(st.BBox[0]), Y1: float64(st.BBox[1]),
				X2: float64(st.BBox[2]), Y2: float64(st.BBox[3]),
			},
			Confidence: float64(st.Confidence),
			Predicted:  st.Predicted,
		})
	}
	return out
}

func toDetectionCandidates(detections []Detection) []analysis.DetectionCandidate {
	out := make([]analysis.DetectionCandidate, 0, len(detections))
	for _, d := range detections {
		out = append(out, analysis.DetectionCandidate{
			Box: analysis.Box{
				X1: float64(d.BBox[0]), Y1: float64(d.BBox[1]),
				X2: float64(d.BBox[2]), Y2: float64(d.BBox[3]),
			},
			Confidence: float64(d.Confidence),
		})
	}
	return out
}

// --- Image preprocessing helpers ---

func preprocessForDetection(img image.Image, targetW, targetH int) []float32 {
	return imageToFloat32CHW(img, targetW, targetH, [3]float32{0, 0, 0}, [3]float32{255, 255, 255})
}

func preprocessForPose(img image.Image, targetW, targetH int) []float32 {
	return imageToFloat32CHW(img, targetW, targetH, [3]float32{0, 0, 0}, [3]float32{255, 255, 255})
}

// imageToFloat32CHW converts an image to CHW float32 format with normalization:
//
//	pixel = (pixel - mean) / std
func imageToFloat32CHW(img image.Image, targetW, targetH int, mean, std [3]float32) []float32 {
	resized := resizeImage(img, targetW, targetH)
	bounds := resized.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	data := make([]float32, 3*h*w)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			// Convert from 16-bit to 8-bit
			rf := float32(r >> 8)
			gf := float32(g >> 8)
			bf := float32(b >> 8)

			// CHW layout: [C][H][W]
			idx := y*w + x
			data[0*h*w+idx] = (rf - mean[0]) / std[0] // R
			data[1*h*w+idx] = (gf - mean[1]) / std[1] // G
			data[2*h*w+idx] = (bf - mean[2]) / std[2] // B
		}
	}

	return data
}

// resizeImage performs nearest-neighbour resize (fast, good enough for ML input).
func resizeImage(img image.Image, targetW, targetH int) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))

	for y := 0; y < targetH; y++ {
		for x := 0; x < targetW; x++ {
			srcX := bounds.Min.X + x*srcW/targetW
			srcY := bounds.Min.Y + y*srcH/targetH
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}

	return dst
}

// cropPerson extracts the subject region for pose estimation. The box grows
// by 15% of its height (at least 10px) so racket arms at full extension stay
// in frame, and is widened to a 50x80 minimum so tiny far-court boxes still
// give the landmark model something to work with.
func cropPerson(img image.Image, box analysis.Box) image.Image {
	bounds := img.Bounds()

	x1 := int(box.X1)
	y1 := int(box.Y1)
	x2 := int(box.X2)
	y2 := int(box.Y2)

	h := y2 - y1
	pad := h * 15 / 100
	if pad < 10 {
		pad = 10
	}
	x1 -= pad
	y1 -= pad
	x2 += pad
	y2 += pad

	if w := x2 - x1; w < 50 {
		grow := (50 - w) / 2
		x1 -= grow
		x2 += 50 - w - grow
	}
	if ht := y2 - y1; ht < 80 {
		grow := (80 - ht) / 2
		y1 -= grow
		y2 += 80 - ht - grow
	}

	if x1 < bounds.Min.X {
		x1 = bounds.Min.X
	}
	if y1 < bounds.Min.Y {
		y1 = bounds.Min.Y
	}
	if x2 > bounds.Max.X {
		x2 = bounds.Max.X
	}
	if y2 > bounds.Max.Y {
		y2 = bounds.Max.Y
	}

	if x2-x1 <= 0 || y2-y1 <= 0 {
		return nil
	}

	crop := image.NewRGBA(image.Rect(0, 0, x2-x1, y2-y1))
	for cy := y1; cy < y2; cy++ {
		for cx := x1; cx < x2; cx++ {
			crop.Set(cx-x1, cy-y1, img.At(cx, cy))
		}
	}

	return crop
}
