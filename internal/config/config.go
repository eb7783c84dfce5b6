package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/your-org/courtvision/internal/analysis"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Vision   VisionConfig   `yaml:"vision"`
	Tracking TrackingConfig `yaml:"tracking"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type VisionConfig struct {
	ModelsDir          string  `yaml:"models_dir"`
	DetectionThreshold float64 `yaml:"detection_threshold"`
	PoseMinPresence    float64 `yaml:"pose_min_presence"`
	DefaultFPS         float64 `yaml:"default_fps"`
	DefaultStep        int     `yaml:"default_step"`
	WorkerCount        int     `yaml:"worker_count"`
	// Long videos get a cheap wide scan first; frames beyond this count
	// trigger the coarse pass.
	RefineThresholdFrames int `yaml:"refine_threshold_frames"`
	CoarseStepMultiplier  int `yaml:"coarse_step_multiplier"`
	RefineWindowPadFrames int `yaml:"refine_window_pad_frames"`
}

type TrackingConfig struct {
	MaxAge       int     `yaml:"max_age"`
	MinHits      int     `yaml:"min_hits"`
	IoUThreshold float64 `yaml:"iou_threshold"`
}

// AnalysisConfig carries the biomechanics threshold tables. Zero sections
// fall back to the tuned defaults.
type AnalysisConfig struct {
	Lock       analysis.LockConfig           `yaml:"lock"`
	Heuristics *analysis.HeuristicThresholds `yaml:"heuristics"`
	Segments   *analysis.SegmentConfig       `yaml:"segments"`
	Risk       *analysis.RiskThresholds      `yaml:"risk"`
}

// EngineConfig assembles the per-run engine configuration from this
// section, filling unset tables with defaults.
func (a AnalysisConfig) EngineConfig() analysis.EngineConfig {
	cfg := analysis.DefaultEngineConfig()
	if a.Lock.LockWaitFrames > 0 {
		cfg.Lock = a.Lock
	}
	if a.Heuristics != nil {
		cfg.Heuristics = *a.Heuristics
	}
	if a.Segments != nil {
		cfg.Segments = *a.Segments
	}
	if a.Risk != nil {
		cfg.Risk = *a.Risk
	}
	return cfg
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.2
	}
	if cfg.Vision.PoseMinPresence == 0 {
		cfg.Vision.PoseMinPresence = 0.5
	}
	if cfg.Vision.DefaultFPS == 0 {
		cfg.Vision.DefaultFPS = 30
	}
	if cfg.Vision.DefaultStep == 0 {
		cfg.Vision.DefaultStep = 3
	}
	if cfg.Vision.WorkerCount == 0 {
		cfg.Vision.WorkerCount = 4
	}
	if cfg.Vision.RefineThresholdFrames == 0 {
		cfg.Vision.RefineThresholdFrames = 3000
	}
	if cfg.Vision.CoarseStepMultiplier == 0 {
		cfg.Vision.CoarseStepMultiplier = 4
	}
	if cfg.Vision.RefineWindowPadFrames == 0 {
		cfg.Vision.RefineWindowPadFrames = 30
	}
	if cfg.Tracking.MaxAge == 0 {
		cfg.Tracking.MaxAge = 300
	}
	if cfg.Tracking.MinHits == 0 {
		cfg.Tracking.MinHits = 1
	}
	if cfg.Tracking.IoUThreshold == 0 {
		cfg.Tracking.IoUThreshold = 0.3
	}
	if cfg.Analysis.Lock.LockWaitFrames == 0 {
		cfg.Analysis.Lock = analysis.DefaultLockConfig()
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CV_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CV_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("CV_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("CV_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("CV_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("CV_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("CV_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("CV_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("CV_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("CV_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("CV_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("CV_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("CV_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("CV_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vision.WorkerCount = n
		}
	}
}
