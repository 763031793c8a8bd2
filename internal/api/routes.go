package api

import (
	"alcyxob/plan-tracker/internal/domain"
	"alcyxob/plan-tracker/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services are the application services behind the HTTP surface.
type Services struct {
	Users       service.UserService
	Plans       service.PlanService
	Assignments service.AssignmentService
	Progress    service.ProgressService
}

// RouterConfig carries the transport settings SetupRoutes needs.
type RouterConfig struct {
	JWTSecret      string
	JWTIssuer      string
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

func SetupRoutes(router *gin.Engine, cfg RouterConfig, logger *zap.Logger, svc Services) {
	userHandler := NewUserHandler(svc.Users)
	planHandler := NewPlanHandler(svc.Plans, svc.Progress, cfg.MaxUploadBytes)
	assignmentHandler := NewAssignmentHandler(svc.Assignments, svc.Progress)
	clientHandler := NewClientHandler(svc.Assignments, svc.Progress)

	router.Use(RequestID(), RequestLogger(logger.Named("http")))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	staff := RoleMiddleware(domain.RoleCoach, domain.RoleAdmin)

	protected := router.Group("/api/v1")
	protected.Use(AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer), RequestTimeout(cfg.RequestTimeout))
	{
		protected.GET("/me", userHandler.Me)
		protected.GET("/users", staff, userHandler.ListUsers)

		// --- Plans ---
		plans := protected.Group("/plans")
		{
			plans.POST("", staff, planHandler.CreatePlan)
			plans.GET("", staff, planHandler.ListPlans)
			plans.GET("/:planId", planHandler.GetPlan)
			plans.PATCH("/:planId", staff, planHandler.UpdatePlan)
			plans.POST("/:planId/steps", staff, planHandler.AddStep)
			plans.PATCH("/:planId/steps/:stepId", staff, planHandler.UpdateStep)
			plans.DELETE("/:planId/steps/:stepId", staff, planHandler.DeleteStep)
			plans.POST("/:planId/steps/:stepId/media", staff, planHandler.UploadStepMedia)
			plans.GET("/:planId/progress", staff, planHandler.GetPlanProgress)
			plans.POST("/:planId/assignments", staff, assignmentHandler.CreateAssignment)
		}

		// --- Assignments ---
		assignments := protected.Group("/assignments")
		{
			assignments.GET("", staff, assignmentHandler.ListAssignments)
			assignments.POST("/:assignmentId/status", staff, assignmentHandler.AdvanceStatus)
			assignments.POST("/:assignmentId/withdraw", staff, assignmentHandler.Withdraw)
			assignments.GET("/:assignmentId/progress", assignmentHandler.GetProgress)
		}

		// --- Client ---
		client := protected.Group("/client")
		client.Use(RoleMiddleware(domain.RoleClient))
		{
			client.GET("/assignments", clientHandler.GetMyAssignments)
			client.POST("/assignments/:assignmentId/steps/:stepId/complete", clientHandler.CompleteStep)
		}
	}
}
