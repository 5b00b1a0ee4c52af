package server

import (
	"net/http"

	"office-hub/internal/config"
	"office-hub/internal/handlers"
	"office-hub/internal/middleware"
	"office-hub/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

const (
	serviceName = "office-hub"
	sessionName = "office_hub_session"
)

func NewRouter(cfg *config.Config, db *gorm.DB, h *handlers.Handler, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(middleware.InjectUser(db))
	r.Use(middleware.RequestLogger(log))

	if cfg.Storage.Driver == config.StorageLocal {
		r.Static(cfg.Storage.BaseURL, cfg.Storage.Dir)
	}

	// ГЛАВНАЯ
	r.GET("/", h.Index)

	// AUTH
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)

	auth := r.Group("/")
	auth.Use(middleware.RequireAuth())
	admin := middleware.RequireRole(models.RoleAdmin)

	auth.GET("/me", h.Me)

	// СОТРУДНИКИ
	auth.GET("/users", admin, h.ListUsers)
	auth.POST("/users", admin, h.CreateUser)
	auth.GET("/departments", admin, h.ListDepartments)

	// ОБОРУДОВАНИЕ
	auth.GET("/inventory", h.Inventory)
	auth.GET("/assets/:id", h.ShowAsset)

	// мутации оборудования — только админ; workflow сам права не проверяет
	auth.POST("/assets", admin, h.CreateAsset)
	auth.POST("/assets/:id", admin, h.UpdateAsset)
	auth.POST("/assets/:id/status", admin, h.ChangeAssetStatus)
	auth.POST("/assets/:id/assign", admin, h.AssignAsset)
	auth.POST("/assets/:id/return", admin, h.ReturnAsset)
	auth.POST("/assets/:id/notes", admin, h.AddAssetNote)
	auth.POST("/assets/:id/attachments", admin, h.UploadAssetAttachment)
	auth.POST("/maintenance", admin, h.ScheduleMaintenance)
	auth.POST("/maintenance/:id/status", admin, h.UpdateMaintenanceStatus)
	auth.POST("/categories", admin, h.CreateCategory)
	auth.POST("/locations", admin, h.CreateLocation)
	auth.POST("/vendors", admin, h.CreateVendor)

	// ЗАДАЧИ
	auth.GET("/tasks", h.TaskBoard)
	auth.GET("/tasks/:id", h.ShowTask)
	auth.POST("/tasks", h.CreateTask)
	auth.POST("/tasks/:id", h.UpdateTask)
	auth.POST("/tasks/:id/status", h.ChangeTaskStatus)
	auth.POST("/tasks/:id/progress", h.SetTaskProgress)
	auth.POST("/tasks/:id/comments", h.AddComment)
	auth.POST("/tasks/:id/attachments", h.UploadAttachment)
	auth.POST("/tasks/:id/checklist", h.AddChecklistItem)
	auth.POST("/tasks/:id/watchers", h.WatchTask)
	auth.POST("/tasks/:id/dependencies", h.AddDependency)
	auth.POST("/dependencies/:id/delete", h.RemoveDependency)
	auth.POST("/checklist/:id/done", h.CompleteChecklistItem)

	auth.POST("/projects", admin, h.CreateProject)

	// ЖУРНАЛ
	auth.GET("/activity", h.ListActivity)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.String(http.StatusServiceUnavailable, "db unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	return r
}
