package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "procurement/api/swagger" // swagger docs
	"procurement/internal/client"
	"procurement/internal/config"
	"procurement/internal/database"
	"procurement/internal/handler"
	"procurement/internal/logger"
	"procurement/internal/middleware"
	"procurement/internal/repository"
	"procurement/internal/service"
	"procurement/internal/session"
	"procurement/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const sweepInterval = 10 * time.Minute

// @title           Procurement Gateway API
// @version         1.0
// @description     Session-holding gateway in front of the procurement backend.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "development", "procurement-api")
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.Env, "procurement-api")
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	db, err := database.NewConnection(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("connected to gateway store")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up dependencies (Repository -> Service -> Handler)
	auditRepo := repository.NewAuditRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	txManager := repository.NewTransactionManager(db)

	sessions := session.NewManager(sessionRepo, cfg.SessionTTL, log)
	if n, err := sessions.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to restore sessions")
	} else {
		log.Info().Int("sessions", n).Msg("sessions restored")
	}
	go sweepSessions(ctx, sessions, log)

	api := client.New(cfg.BackendURL, &http.Client{Timeout: cfg.HTTPTimeout})

	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)

	authService := service.NewAuthService(api, sessions, auditRepo, txManager, log)
	requestService := service.NewRequestService(api, auditRepo, wsHub, log)
	dashboardService := service.NewDashboardService(api)
	auditService := service.NewAuditService(auditRepo)
	purchaseOrderService := service.NewPurchaseOrderService(api)

	authHandler := handler.NewAuthHandler(authService, sessions)
	requestHandler := handler.NewRequestHandler(requestService, sessions)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, sessions)
	auditHandler := handler.NewAuditHandler(auditService, sessions)
	purchaseOrderHandler := handler.NewPurchaseOrderHandler(purchaseOrderService, sessions)

	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log), middleware.CookiePolicy(cfg.IsProduction()))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, sessions)
	})

	apiGroup := router.Group("/api")
	authHandler.RegisterRoutes(apiGroup)
	requestHandler.RegisterRoutes(apiGroup)
	dashboardHandler.RegisterRoutes(apiGroup)
	auditHandler.RegisterRoutes(apiGroup)
	purchaseOrderHandler.RegisterRoutes(apiGroup)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", cfg.BackendURL).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func sweepSessions(ctx context.Context, sessions *session.Manager, log zerolog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sessions.Sweep(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("session sweep failed")
				continue
			}
			if removed > 0 {
				log.Debug().Int64("removed", removed).Msg("expired sessions removed")
			}
		}
	}
}
