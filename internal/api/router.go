package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/courtvision/internal/api/handlers"
	"github.com/your-org/courtvision/internal/api/ws"
	"github.com/your-org/courtvision/internal/auth"
	"github.com/your-org/courtvision/internal/queue"
	"github.com/your-org/courtvision/internal/storage"
)

type RouterConfig struct {
	APIKey   string
	DB       *storage.PostgresStore
	MinIO    *storage.MinIOStore
	Producer *queue.Producer
	Hub      *ws.Hub
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket: live job status updates
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Jobs
	jobH := handlers.NewJobHandler(cfg.DB, cfg.Producer)
	v1.POST("/jobs", jobH.Create)
	v1.GET("/jobs", jobH.List)
	v1.GET("/jobs/:id", jobH.Get)

	// Results
	resultH := handlers.NewResultHandler(cfg.DB)
	v1.GET("/jobs/:id/result", resultH.Get)
	v1.GET("/jobs/:id/strokes", resultH.Strokes)

	// Stroke similarity
	strokeH := handlers.NewStrokeHandler(cfg.DB)
	v1.GET("/strokes/:id/similar", strokeH.Similar)

	return r
}
