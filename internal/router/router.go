package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-wizard/internal/config"
	"github.com/stemsi/exstem-wizard/internal/handler"
	"github.com/stemsi/exstem-wizard/internal/middleware"
	"github.com/stemsi/exstem-wizard/internal/response"
	"github.com/stemsi/exstem-wizard/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam        *handler.ExamHandler
	SubTest     *handler.SubTestHandler
	Track       *handler.TrackHandler
	Rule        *handler.RuleHandler
	Question    *handler.QuestionHandler
	Maintenance *handler.MaintenanceHandler
	Events      *handler.EventsHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokens *service.TokenService,
	randomLimiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so every log line and response carries it.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── Admin Group (JWT + RBAC) ──────────────────────────────────────
	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.RequireJWT(tokens))

	read := middleware.RequirePermission(middleware.PermExamsRead)
	write := middleware.RequirePermission(middleware.PermExamsWrite)

	exams := admin.Group("/exams")
	{
		exams.GET("", read, handlers.Exam.ListExams)
		exams.POST("", write, handlers.Exam.CreateExam)
		exams.GET("/:id", read, handlers.Exam.GetExam)
		exams.PUT("/:id", write, handlers.Exam.UpdateExam)
		exams.DELETE("/:id", write, handlers.Exam.DeleteExam)
		exams.PUT("/:id/schedule", write, handlers.Exam.UpdateSchedule)
		exams.POST("/:id/state", middleware.RequirePermission(middleware.PermExamsPublish), handlers.Exam.ChangeState)
		exams.POST("/:id/duplicate", write, handlers.Exam.DuplicateExam)
		exams.GET("/:id/wizard-state", read, handlers.Exam.WizardState)
		exams.PUT("/:id/users", write, handlers.Exam.AssignUsers)

		// Step 2
		exams.GET("/:id/subtests", read, handlers.SubTest.ListSubTests)
		exams.POST("/:id/subtests", write, handlers.SubTest.CreateSubTest)
		exams.PUT("/:id/subtests/:subtest_id", write, handlers.SubTest.UpdateSubTest)
		exams.DELETE("/:id/subtests/:subtest_id", write, handlers.SubTest.DeleteSubTest)

		// Step 3
		exams.GET("/:id/tracks", read, handlers.Track.ListTracks)
		exams.POST("/:id/tracks", write, handlers.Track.CreateTrack)
		exams.PUT("/:id/tracks/:track_id", write, handlers.Track.UpdateTrack)
		exams.DELETE("/:id/tracks/:track_id", write, handlers.Track.DeleteTrack)

		// Step 4
		exams.GET("/:id/rules", read, handlers.Rule.ListRules)
		exams.POST("/:id/rules", write, handlers.Rule.CreateRule)
		exams.PUT("/:id/rules/:rule_id", write, handlers.Rule.UpdateRule)
		exams.DELETE("/:id/rules/:rule_id", write, handlers.Rule.DeleteRule)

		// Step 5
		exams.GET("/:id/questions", read, handlers.Question.ListQuestions)
		exams.POST("/:id/questions", write, handlers.Question.ReplaceQuestions)
		exams.POST("/:id/questions/reorder", write, handlers.Question.ReorderQuestion)
		exams.POST("/:id/questions/generate-random", write, randomLimiter.Middleware(), handlers.Question.GenerateRandom)
		exams.DELETE("/:id/questions/:question_id", write, handlers.Question.RemoveQuestion)
	}

	maintenance := admin.Group("/maintenance")
	maintenance.Use(middleware.RequirePermission(middleware.PermMaintenanceRun))
	{
		maintenance.POST("/close-finished-attempts", handlers.Maintenance.CloseFinishedAttempts)
	}

	// ─── WebSocket Group (query token auth) ────────────────────────────
	wsAdmin := router.Group("/ws/v1/admin")
	wsAdmin.Use(middleware.RequireWSAuth(tokens), read)
	{
		wsAdmin.GET("/exams/events", handlers.Events.StreamExamEvents)
	}

	return router
}
