package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/handler"
	"github.com/stemsi/proctor-backend/internal/middleware"
	"github.com/stemsi/proctor-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	Exam          *handler.ExamHandler
	Monitor       *handler.MonitorHandler
	WS            *handler.WSHandler
	System        *handler.SystemHandler
}

// Guards bundles the request guards shared by the route groups.
type Guards struct {
	Tokens         middleware.TokenVerifier
	Roles          middleware.RoleChecker
	ViolationLimit *middleware.UserRateLimiter
}

const (
	brotliQuality   = 5
	brotliMinLength = 1024
)

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, guards Guards, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.AccessLog(log))

	// ─── CORS ──────────────────────────────────────────────────────────
	// Restrict to AllowedOrigins when set, otherwise allow all for dev.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())

	router.GET("/health", handlers.System.Health)

	requireAuth := middleware.RequireAuth(guards.Tokens)
	requireAdmin := middleware.RequireAdmin(guards.Roles, log)
	compress := middleware.Brotli(brotliQuality, brotliMinLength)

	api := router.Group("/api")

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := api.Group("/auth", requireAuth, middleware.NoStore())
	{
		auth.GET("/me", handlers.Auth.Me)
		auth.POST("/profile", handlers.Auth.UpdateProfile)
	}

	// ─── 2. Exams (student + admin share the prefix) ───────────────────
	exams := api.Group("/exams", requireAuth, middleware.NoStore())
	{
		exams.GET("/student", compress, handlers.StudentPortal.ListExams)
		exams.POST("/:examId/start", handlers.StudentPortal.StartExam)
		exams.GET("/:examId/session", handlers.StudentPortal.GetSession)
		exams.POST("/:examId/submit", handlers.StudentPortal.SubmitExam)
		exams.POST("/:examId/violation", guards.ViolationLimit.Middleware(), handlers.StudentPortal.ReportViolation)

		admin := exams.Group("", requireAdmin)
		{
			admin.POST("", handlers.Exam.CreateExam)
			admin.GET("/admin", compress, handlers.Exam.ListExams)
			admin.GET("/:examId/sessions", compress, handlers.Exam.ListSessions)
			admin.POST("/:examId/sessions/:userId/approve", handlers.Exam.ResolveApproval)
			admin.GET("/:examId/sessions/:userId/audit", compress, handlers.Exam.AuditTrail)
			admin.GET("/:examId/monitor", handlers.Monitor.MonitorExamSSE)
		}
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	// Browsers cannot set headers on upgrade requests; RequireAuth reads ?token=.
	ws := router.Group("/ws", requireAuth)
	{
		ws.GET("/exams/:examId/stream", handlers.WS.SessionStream)
	}

	return router
}
