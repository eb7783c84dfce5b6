package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/courtvision/internal/models"
	"github.com/your-org/courtvision/internal/queue"
	"github.com/your-org/courtvision/internal/storage"
)

// IngestCommand is the raw NATS notification for a freshly created job.
type IngestCommand struct {
	JobID uuid.UUID `json:"job_id"`
}

type activeIngest struct {
	cancel    context.CancelFunc
	extractor *FFmpegExtractor
}

// Manager turns a submitted video URL into analyzable material: it archives
// the source, decodes it into per-frame JPEGs in object storage and hands
// the finished task to the worker queue.
type Manager struct {
	producer *queue.Producer
	minio    *storage.MinIOStore
	db       *storage.PostgresStore

	mu   sync.RWMutex
	jobs map[uuid.UUID]*activeIngest
}

func NewManager(producer *queue.Producer, minio *storage.MinIOStore, db *storage.PostgresStore) *Manager {
	return &Manager{
		producer: producer,
		minio:    minio,
		db:       db,
		jobs:     make(map[uuid.UUID]*activeIngest),
	}
}

// HandleJob processes one new-job notification. The heavy lifting runs in a
// goroutine; this returns as soon as the job is admitted.
func (m *Manager) HandleJob(ctx context.Context, data []byte) error {
	cmd, err := ParseCommand(data)
	if err != nil {
		return err
	}

	job, err := m.db.GetJob(ctx, cmd.JobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job %s not found", cmd.JobID)
	}

	m.mu.Lock()
	if _, exists := m.jobs[job.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("job %s already ingesting", job.ID)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	extractor := &FFmpegExtractor{}
	m.jobs[job.ID] = &activeIngest{cancel: cancel, extractor: extractor}
	m.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			m.mu.Lock()
			delete(m.jobs, job.ID)
			m.mu.Unlock()
		}()
		m.ingest(jobCtx, job, extractor)
	}()

	return nil
}

func (m *Manager) ingest(ctx context.Context, job *models.Job, extractor *FFmpegExtractor) {
	started := time.Now()
	m.updateStatus(job.ID, models.JobIngesting, "")
	slog.Info("starting ingestion", "job", job.ID, "url", job.VideoURL)

	sourceURL := job.VideoURL
	if isYouTubeURL(sourceURL) {
		resolved, err := ResolveYouTubeURL(ctx, sourceURL)
		if err != nil {
			m.failJob(ctx, job.ID, fmt.Errorf("resolve youtube url: %w", err))
			return
		}
		sourceURL = resolved
		slog.Info("resolved youtube url", "job", job.ID)
	}

	videoKey := m.archiveSource(ctx, job.ID, sourceURL)

	info, err := ProbeVideo(ctx, sourceURL)
	if err != nil {
		m.failJob(ctx, job.ID, err)
		return
	}

	prefix := storage.FramesPrefix(job.ID)
	count, err := extractor.ExtractFrames(ctx, sourceURL, func(frameIdx int, frameData []byte) error {
		return m.minio.PutObject(ctx, storage.FrameKey(prefix, frameIdx), frameData, "image/jpeg")
	})
	if err != nil {
		m.failJob(ctx, job.ID, fmt.Errorf("extract frames: %w", err))
		return
	}
	if count == 0 {
		m.failJob(ctx, job.ID, fmt.Errorf("video %s produced no frames", job.VideoURL))
		return
	}

	if err := m.db.UpdateJobMedia(ctx, job.ID, videoKey, info.FPS, count, info.Width, info.Height); err != nil {
		m.failJob(ctx, job.ID, fmt.Errorf("record media info: %w", err))
		return
	}

	task := models.AnalysisTask{
		JobID:        job.ID,
		FramesPrefix: prefix,
		FrameCount:   count,
		FPS:          info.FPS,
		Width:        info.Width,
		Height:       info.Height,
		StrokeType:   job.StrokeType,
		CropRegion:   job.CropRegion,
		TargetPoint:  job.TargetPoint,
		Step:         job.Step,
	}
	if err := m.producer.PublishTask(ctx, task); err != nil {
		m.failJob(ctx, job.ID, fmt.Errorf("enqueue task: %w", err))
		return
	}

	slog.Info("ingestion complete",
		"job", job.ID,
		"frames", count,
		"fps", info.FPS,
		"took", time.Since(started))
}

// archiveSource stores a copy of the original video next to the job's
// frames. Best effort: a failed archive does not block analysis.
func (m *Manager) archiveSource(ctx context.Context, jobID uuid.UUID, sourceURL string) string {
	if !strings.HasPrefix(sourceURL, "http://") && !strings.HasPrefix(sourceURL, "https://") {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		slog.Warn("archive source", "job", jobID, "error", err)
		return ""
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Warn("archive source", "job", jobID, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("archive source", "job", jobID, "status", resp.StatusCode)
		return ""
	}

	key := storage.VideoKey(jobID)
	if err := m.minio.PutObjectStream(ctx, key, resp.Body, resp.ContentLength, "video/mp4"); err != nil {
		slog.Warn("archive source", "job", jobID, "error", err)
		return ""
	}
	return key
}

// Cancel stops an in-flight ingestion.
func (m *Manager) Cancel(jobID uuid.UUID) {
	m.mu.RLock()
	ai, exists := m.jobs[jobID]
	m.mu.RUnlock()

	if !exists {
		return
	}
	ai.extractor.Stop()
	ai.cancel()
	slog.Info("ingestion cancelled", "job", jobID)
}

// ActiveCount returns the number of jobs currently ingesting.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

// StopAll cancels every in-flight ingestion.
func (m *Manager) StopAll() {
	m.mu.RLock()
	ids := make([]uuid.UUID, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.Cancel(id)
	}
}

func (m *Manager) failJob(ctx context.Context, jobID uuid.UUID, cause error) {
	slog.Error("ingestion failed", "job", jobID, "error", cause)
	m.updateStatus(jobID, models.JobFailed, cause.Error())

	event := models.AnalysisEvent{
		JobID:      jobID,
		Status:     models.JobFailed,
		Error:      cause.Error(),
		FinishedAt: time.Now().UTC(),
	}
	if err := m.producer.PublishEvent(ctx, event); err != nil {
		slog.Error("publish event", "job", jobID, "error", err)
	}
}

func (m *Manager) updateStatus(jobID uuid.UUID, status models.JobStatus, errMsg string) {
	if err := m.db.UpdateJobStatus(context.Background(), jobID, status, errMsg); err != nil {
		slog.Error("update job status", "job", jobID, "error", err)
	}
}

func isYouTubeURL(url string) bool {
	return strings.Contains(url, "youtube.com/") || strings.Contains(url, "youtu.be/")
}

// ParseCommand parses a NATS message into an IngestCommand.
func ParseCommand(data []byte) (IngestCommand, error) {
	var cmd IngestCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("parse command: %w", err)
	}
	return cmd, nil
}
