package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/training-workflow-service/internal/events"
	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/services"
	"github.com/SAP-F-2025/training-workflow-service/internal/utils"
	"github.com/SAP-F-2025/training-workflow-service/internal/validator"
)

type HandlerManager struct {
	serviceManager   services.ServiceManager
	uidHandler       *UidHandler
	studentHandler   *StudentHandler
	dashboardHandler *DashboardHandler
	eventsHandler    *EventsHandler
	userHandler      *UserHandler
	exportHandler    *ExportHandler
	authMiddleware   AuthProvider
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	authMiddleware AuthProvider,
	subscriber events.Subscriber,
) *HandlerManager {
	return &HandlerManager{
		serviceManager:   serviceManager,
		uidHandler:       NewUidHandler(serviceManager.Uid(), validator, logger),
		studentHandler:   NewStudentHandler(serviceManager.Student(), validator, logger),
		dashboardHandler: NewDashboardHandler(serviceManager.Dashboard(), logger),
		eventsHandler:    NewEventsHandler(subscriber, serviceManager.Visibility(), logger),
		userHandler:      NewUserHandler(serviceManager.User(), logger),
		exportHandler:    NewExportHandler(serviceManager.Export(), logger),
		authMiddleware:   authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.health)

	// Learner form submission is reached through a link and carries no identity
	public := router.Group("/api/v1/public")
	{
		public.POST("/uids/:uid/students", hm.studentHandler.SubmitForm)
	}

	staff := []models.UserRole{models.RoleAssessor, models.RoleModerator}
	requireStaff := hm.authMiddleware.RequireRoleMiddleware(staff...)
	requireAdmin := hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin)
	requireAssessor := hm.authMiddleware.RequireRoleMiddleware(models.RoleAssessor)
	requireModerator := hm.authMiddleware.RequireRoleMiddleware(models.RoleModerator)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		uids := v1.Group("/uids")
		{
			uids.POST("", requireAdmin, hm.uidHandler.CreateUid)
			uids.GET("", requireStaff, hm.uidHandler.ListUids)
			uids.GET("/:uid", requireStaff, hm.uidHandler.GetUid)
			uids.DELETE("/:uid", requireAdmin, hm.uidHandler.DeleteUid)
			uids.PUT("/:uid/status", requireStaff, hm.uidHandler.UpdateUidStatus)
			uids.PUT("/:uid/assignment", requireAdmin, hm.uidHandler.SetAssignment)
			uids.GET("/:uid/history", requireStaff, hm.uidHandler.GetHistory)

			// Workflow actions
			uids.POST("/:uid/attendance", requireAssessor, hm.uidHandler.SaveAttendance)
			uids.GET("/:uid/attendance", requireStaff, hm.uidHandler.GetAttendance)
			uids.POST("/:uid/review-complete", requireAssessor, hm.uidHandler.MarkReviewComplete)
			uids.POST("/:uid/send-to-moderator", requireAssessor, hm.uidHandler.SendToModerator)
			uids.POST("/:uid/moderation", requireModerator, hm.uidHandler.SaveModeration)
			uids.GET("/:uid/moderation", requireStaff, hm.uidHandler.GetModeration)
			uids.POST("/:uid/send-to-admin", requireStaff, hm.uidHandler.SendToAdmin)
			uids.POST("/:uid/approve", requireAdmin, hm.uidHandler.Approve)

			uids.PUT("/:uid/students/:student_id/status", requireStaff, hm.studentHandler.UpdateStudentStatus)
		}

		v1.GET("/students", requireStaff, hm.studentHandler.ListStudents)

		dashboard := v1.Group("/dashboard", requireStaff)
		{
			dashboard.GET("/stats", hm.dashboardHandler.GetDashboardStats)
			dashboard.GET("/events", hm.eventsHandler.ServeWebsocket)
			dashboard.GET("/events/stream", hm.eventsHandler.ServeSSE)
		}

		v1.GET("/users", requireAdmin, hm.userHandler.ListUsers)
		v1.GET("/exports/uids.xlsx", requireAdmin, hm.exportHandler.ExportUids)
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "training-workflow-service",
	})
}
