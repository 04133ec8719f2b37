package routes

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mailstash/mailstash/config"
	"github.com/mailstash/mailstash/controllers"
	"github.com/mailstash/mailstash/drive"
	"github.com/mailstash/mailstash/gmail"
	"github.com/mailstash/mailstash/middleware"
	"github.com/mailstash/mailstash/services"
	"github.com/mailstash/mailstash/utils"
	"golang.org/x/oauth2/google"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))

	r.Static("/static", "./static")

	r.GET("/", func(c *gin.Context) {
		c.File("./static/index.html")
	})

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	newMailbox := services.MailboxFactory(func(ctx context.Context, accessToken string) (services.Mailbox, error) {
		return gmail.NewClient(ctx, accessToken)
	})
	newStorage := services.StorageFactory(func(ctx context.Context, accessToken string) (services.Storage, error) {
		return drive.NewClient(ctx, accessToken)
	})

	tokenService := services.NewTokenService(db, cfg.GoogleClientID, cfg.GoogleClientSecret, google.Endpoint)
	logService := services.NewLogService(db)
	syncService := services.NewSyncService(db, tokenService, logService, newMailbox, newStorage)

	authController := controllers.NewAuthController(db)
	preferencesController := controllers.NewPreferencesController(db)
	tokenController := controllers.NewTokenController(db, tokenService)
	foldersController := controllers.NewFoldersController(db, tokenService, newMailbox)
	logsController := controllers.NewLogsController(logService)
	syncController := controllers.NewSyncController(syncService)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.GET("/google/login", authController.GoogleLogin)
	authGroup.GET("/google/callback", authController.GoogleCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.GET("/preferences", preferencesController.Get)
	protected.POST("/preferences", preferencesController.Save)
	protected.POST("/token/refresh", tokenController.Refresh)
	protected.GET("/token/status", tokenController.Status)
	protected.GET("/folders", foldersController.List)
	protected.GET("/logs", logsController.Recent)
	protected.POST("/sync", syncController.Run)

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		if strings.HasPrefix(path, "/static/") {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "static asset not found"})
			return
		}
		// Remaining paths fall back to the SPA entry when a frontend build is deployed
		if _, err := os.Stat("./static/index.html"); err == nil {
			ctx.Status(http.StatusOK)
			ctx.File("./static/index.html")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
