package router

import (
	"github.com/gin-gonic/gin"

	"github.com/gearstack/cmms-api/internal/handler"
	"github.com/gearstack/cmms-api/internal/middleware"
	"github.com/gearstack/cmms-api/internal/models"
	"github.com/gearstack/cmms-api/internal/service"
	"github.com/gearstack/cmms-api/pkg/config"
	"github.com/gearstack/cmms-api/pkg/logger"
	corsmiddleware "github.com/gearstack/cmms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/gearstack/cmms-api/pkg/middleware/requestid"

	"go.uber.org/zap"
)

// Handlers bundles every HTTP handler mounted by Setup.
type Handlers struct {
	Requests      *handler.RequestHandler
	Analytics     *handler.AnalyticsHandler
	Equipment     *handler.EquipmentHandler
	Teams         *handler.TeamHandler
	Notifications *handler.NotificationHandler
	Audits        *handler.AuditHandler
	Metrics       *handler.MetricsHandler
}

// Setup builds the gin engine with the full route table. Every route under
// the API prefix requires a valid token; write routes add role gates on top.
func Setup(cfg *config.Config, logr *zap.Logger, auth *service.AuthService, metrics *service.MetricsService, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(auth))

	managers := middleware.RequireRoles(models.RoleAdmin, models.RoleManager)
	technicians := middleware.RequireRoles(models.RoleAdmin, models.RoleManager, models.RoleTechnician)
	admins := middleware.RequireRoles(models.RoleAdmin)

	requests := api.Group("/requests")
	{
		requests.GET("", h.Requests.List)
		requests.POST("/corrective", h.Requests.CreateCorrective)
		requests.POST("/preventive", managers, h.Requests.CreatePreventive)
		requests.GET("/kanban", h.Analytics.Kanban)
		requests.GET("/analytics/by-team", h.Analytics.RequestsByTeam)
		requests.GET("/analytics/by-equipment", h.Analytics.BreakdownsByEquipment)
		requests.GET("/equipment/:equipmentId/stats", h.Analytics.EquipmentStats)
		requests.GET("/:id", h.Requests.Get)
		requests.PUT("/:id", h.Requests.Update)
		requests.DELETE("/:id", managers, h.Requests.Delete)
		requests.GET("/:id/history", h.Requests.History)
		requests.PATCH("/:id/status", technicians, h.Requests.Transition)
		requests.PATCH("/:id/kanban-status", technicians, h.Requests.KanbanMove)
		requests.PATCH("/:id/assign", managers, h.Requests.Assign)
	}

	api.GET("/workflows/statistics", h.Analytics.WorkflowStatistics)

	equipment := api.Group("/equipment")
	{
		equipment.GET("", h.Equipment.List)
		equipment.GET("/:id", h.Equipment.Get)
		equipment.POST("", managers, h.Equipment.Create)
		equipment.PUT("/:id", managers, h.Equipment.Update)
		equipment.DELETE("/:id", admins, h.Equipment.Delete)
	}

	teams := api.Group("/teams")
	{
		teams.GET("", h.Teams.List)
		teams.GET("/:id", h.Teams.Get)
		teams.POST("", managers, h.Teams.Create)
		teams.PUT("/:id", managers, h.Teams.Update)
		teams.DELETE("/:id", admins, h.Teams.Delete)
	}

	notifications := api.Group("/notifications")
	{
		notifications.GET("", h.Notifications.List)
		notifications.GET("/unread-count", h.Notifications.UnreadCount)
		notifications.PATCH("/read-all", h.Notifications.MarkAllRead)
		notifications.PATCH("/:id/read", h.Notifications.MarkRead)
		notifications.DELETE("/:id", h.Notifications.Delete)
	}

	api.GET("/audit-logs", admins, h.Audits.ListByResource)

	return r
}
