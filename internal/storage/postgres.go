package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/courtvision/internal/analysis"
	"github.com/your-org/courtvision/internal/config"
	"github.com/your-org/courtvision/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InitSchema creates the tables and the pgvector extension if missing.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id UUID PRIMARY KEY,
			video_url TEXT NOT NULL,
			video_key TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			stroke_type TEXT NOT NULL DEFAULT '',
			crop_region TEXT NOT NULL DEFAULT '',
			target_point TEXT NOT NULL DEFAULT '',
			step INT NOT NULL DEFAULT 1,
			fps DOUBLE PRECISION NOT NULL DEFAULT 0,
			frame_count INT NOT NULL DEFAULT 0,
			width INT NOT NULL DEFAULT 0,
			height INT NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			job_id UUID PRIMARY KEY REFERENCES jobs(id) ON DELETE CASCADE,
			payload JSONB NOT NULL,
			overall_risk TEXT NOT NULL DEFAULT '',
			stroke_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS strokes (
			id UUID PRIMARY KEY,
			job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			stroke_type TEXT NOT NULL,
			start_frame INT NOT NULL,
			end_frame INT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			peak_velocity DOUBLE PRECISION NOT NULL,
			peak_frame INT NOT NULL,
			track_id INT NOT NULL,
			signature vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, analysis.SignatureDim),
		`CREATE INDEX IF NOT EXISTS strokes_job_idx ON strokes(job_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, j *models.Job) error {
	j.ID = uuid.New()
	j.Status = models.JobPending

	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (id, video_url, status, stroke_type, crop_region, target_point, step)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		j.ID, j.VideoURL, j.Status, j.StrokeType, j.CropRegion, j.TargetPoint, j.Step,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j := &models.Job{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, video_url, video_key, status, stroke_type, crop_region, target_point,
		        step, fps, frame_count, width, height, error, created_at, updated_at
		 FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.VideoURL, &j.VideoKey, &j.Status, &j.StrokeType, &j.CropRegion,
		&j.TargetPoint, &j.Step, &j.FPS, &j.FrameCount, &j.Width, &j.Height,
		&j.Error, &j.CreatedAt, &j.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, limit, offset int) ([]models.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, video_url, video_key, status, stroke_type, crop_region, target_point,
		        step, fps, frame_count, width, height, error, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.VideoURL, &j.VideoKey, &j.Status, &j.StrokeType,
			&j.CropRegion, &j.TargetPoint, &j.Step, &j.FPS, &j.FrameCount,
			&j.Width, &j.Height, &j.Error, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $2, error = $3, updated_at = now() WHERE id = $1`,
		id, status, errMsg)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

// UpdateJobMedia records the ingested video properties.
func (s *PostgresStore) UpdateJobMedia(ctx context.Context, id uuid.UUID, videoKey string, fps float64, frameCount, width, height int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET video_key = $2, fps = $3, frame_count = $4, width = $5, height = $6,
		        updated_at = now()
		 WHERE id = $1`,
		id, videoKey, fps, frameCount, width, height)
	if err != nil {
		return fmt.Errorf("update job media: %w", err)
	}
	return nil
}

// --- Results ---

func (s *PostgresStore) SaveResult(ctx context.Context, jobID uuid.UUID, res *analysis.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO results (job_id, payload, overall_risk, stroke_count)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (job_id) DO UPDATE
		 SET payload = EXCLUDED.payload,
		     overall_risk = EXCLUDED.overall_risk,
		     stroke_count = EXCLUDED.stroke_count`,
		jobID, payload, res.InjuryRiskSummary.OverallRisk, len(res.Strokes))
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetResult(ctx context.Context, jobID uuid.UUID) (json.RawMessage, error) {
	var payload json.RawMessage
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM results WHERE job_id = $1`, jobID).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return payload, nil
}

// --- Strokes ---

func (s *PostgresStore) InsertStroke(ctx context.Context, rec *models.StrokeRecord) error {
	rec.ID = uuid.New()

	err := s.pool.QueryRow(ctx,
		`INSERT INTO strokes (id, job_id, stroke_type, start_frame, end_frame,
		        confidence, peak_velocity, peak_frame, track_id, signature)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at`,
		rec.ID, rec.JobID, rec.Event.Type, rec.Event.StartFrame, rec.Event.EndFrame,
		rec.Event.Confidence, rec.Event.PeakVelocity, rec.Event.PeakFrame,
		rec.Event.TrackID, pgvector.NewVector(rec.Signature),
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert stroke: %w", err)
	}
	return nil
}

// GetStroke loads one stroke record including its signature vector.
func (s *PostgresStore) GetStroke(ctx context.Context, id uuid.UUID) (*models.StrokeRecord, error) {
	r := &models.StrokeRecord{}
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx,
		`SELECT id, job_id, stroke_type, start_frame, end_frame, confidence,
		        peak_velocity, peak_frame, track_id, signature, created_at
		 FROM strokes WHERE id = $1`, id,
	).Scan(&r.ID, &r.JobID, &r.Event.Type, &r.Event.StartFrame, &r.Event.EndFrame,
		&r.Event.Confidence, &r.Event.PeakVelocity, &r.Event.PeakFrame,
		&r.Event.TrackID, &vec, &r.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stroke: %w", err)
	}
	r.Signature = vec.Slice()
	return r, nil
}

func (s *PostgresStore) ListStrokes(ctx context.Context, jobID uuid.UUID) ([]models.StrokeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, stroke_type, start_frame, end_frame, confidence,
		        peak_velocity, peak_frame, track_id, created_at
		 FROM strokes WHERE job_id = $1 ORDER BY start_frame`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list strokes: %w", err)
	}
	defer rows.Close()

	var recs []models.StrokeRecord
	for rows.Next() {
		var r models.StrokeRecord
		if err := rows.Scan(&r.ID, &r.JobID, &r.Event.Type, &r.Event.StartFrame,
			&r.Event.EndFrame, &r.Event.Confidence, &r.Event.PeakVelocity,
			&r.Event.PeakFrame, &r.Event.TrackID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stroke: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// StrokeMatch is one similarity hit from SearchSimilarStrokes.
type StrokeMatch struct {
	StrokeID   uuid.UUID           `json:"stroke_id"`
	JobID      uuid.UUID           `json:"job_id"`
	StrokeType analysis.StrokeType `json:"stroke_type"`
	Confidence float64             `json:"confidence"`
	Score      float32             `json:"score"`
}

// SearchSimilarStrokes finds stored strokes whose motion signature is
// closest to the given one, by cosine similarity. strokeType narrows the
// search when non-empty.
func (s *PostgresStore) SearchSimilarStrokes(ctx context.Context, signature []float32, strokeType analysis.StrokeType, threshold float64, limit int) ([]StrokeMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	vec := pgvector.NewVector(signature)

	var query string
	var args []interface{}

	if strokeType != "" {
		query = `
			SELECT id, job_id, stroke_type, confidence, 1 - (signature <=> $1) AS score
			FROM strokes
			WHERE stroke_type = $2
			  AND 1 - (signature <=> $1) >= $3
			ORDER BY signature <=> $1
			LIMIT $4`
		args = []interface{}{vec, strokeType, threshold, limit}
	} else {
		query = `
			SELECT id, job_id, stroke_type, confidence, 1 - (signature <=> $1) AS score
			FROM strokes
			WHERE 1 - (signature <=> $1) >= $2
			ORDER BY signature <=> $1
			LIMIT $3`
		args = []interface{}{vec, threshold, limit}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search strokes: %w", err)
	}
	defer rows.Close()

	var matches []StrokeMatch
	for rows.Next() {
		var m StrokeMatch
		if err := rows.Scan(&m.StrokeID, &m.JobID, &m.StrokeType, &m.Confidence, &m.Score); err != nil {
			return nil, fmt.Errorf("scan stroke match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}
