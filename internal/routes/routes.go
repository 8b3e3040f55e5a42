package routes

import (
	"time"

	"github.com/Arnav10090/Customer-web-portal/internal/config"
	"github.com/Arnav10090/Customer-web-portal/internal/handlers"
	"github.com/Arnav10090/Customer-web-portal/internal/middleware"
	"github.com/Arnav10090/Customer-web-portal/internal/services"
	"github.com/Arnav10090/Customer-web-portal/internal/utils"
	"github.com/Arnav10090/Customer-web-portal/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Dependencies - все, что нужно обработчикам API
type Dependencies struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *redis.Client
	Tokens      *utils.TokenIssuer
	Blacklist   *services.TokenBlacklist
	Cache       *services.LookupCache
	Issuer      *services.GatePassIssuer
	Linker      *services.DocumentLinker
	Lookup      *services.LookupService
	Submissions *services.SubmissionService
	Audit       *services.AuditService
	Hub         *websocket.Hub
}

func SetupRoutes(api *gin.RouterGroup, d *Dependencies) {
	authLimit := middleware.RateLimit(d.Redis, "auth", d.Config.AuthRateLimit, time.Minute)

	// Публичные маршруты для аутентификации
	auth := api.Group("/auth")
	{
		auth.POST("/register", authLimit, handlers.AuthRegister(d.DB, d.Tokens, d.Config.BcryptCost))
		auth.POST("/login", authLimit, handlers.AuthLogin(d.DB, d.Tokens))
		auth.POST("/refresh", handlers.AuthRefresh(d.Tokens, d.Blacklist))
	}

	// Защищенные маршруты (требуют аутентификации)
	protected := api.Group("")
	protected.Use(middleware.JWTAuth(d.Tokens))
	{
		protected.POST("/auth/logout", handlers.AuthLogout(d.Tokens, d.Blacklist))
		protected.GET("/auth/me", handlers.GetCurrentUser(d.DB))

		// ТС
		protected.GET("/vehicles", handlers.VehicleList(d.Lookup))
		protected.GET("/vehicles/:plate/lookup", handlers.VehicleLookup(d.Lookup))
		protected.POST("/vehicles/create-or-get", handlers.VehicleCreateOrGet(d.DB, d.Cache))
		protected.DELETE("/vehicles/:plate", middleware.AdminOnly(), handlers.VehicleDelete(d.Lookup))

		// Водители и помощники
		protected.POST("/drivers/validate-or-create", handlers.DriverValidateOrCreate(d.DB))
		protected.GET("/drivers", handlers.DriverList(d.Lookup))
		protected.GET("/drivers/by-vehicle", handlers.DriversByVehicle(d.DB, d.Lookup))
		protected.DELETE("/drivers/:id", middleware.AdminOnly(), handlers.DriverDelete(d.Lookup))

		// Заказы
		protected.POST("/po-details/create-or-get", handlers.POCreateOrGet(d.DB))
		protected.GET("/po-details/my-pos", handlers.POListMine(d.Lookup))

		// Документы
		protected.POST("/documents/upload", handlers.DocumentUpload(d.Linker))
		protected.GET("/documents", handlers.DocumentList(d.Linker))
		protected.GET("/documents/:id/info", handlers.DocumentInfo(d.Linker))
		protected.GET("/documents/:id/download", handlers.DocumentDownload(d.Linker))
		protected.DELETE("/documents/:id", handlers.DocumentDelete(d.Linker))

		// Заявки на пропуск
		protected.POST("/submissions/create", handlers.SubmissionCreate(d.Issuer, d.Linker, d.Hub))
		protected.GET("/submissions", handlers.SubmissionList(d.Submissions))
		protected.GET("/submissions/:id", handlers.SubmissionGet(d.Submissions, d.Audit))
		protected.PUT("/submissions/:id/status", middleware.AdminOnly(), handlers.SubmissionUpdateStatus(d.Submissions))

		// WebSocket подключение для получения статусов заявок в реальном времени
		protected.GET("/ws", d.Hub.Handler())
	}
}
