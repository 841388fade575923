package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"idleduelist/internal/cache"
	"idleduelist/internal/catalog"
	"idleduelist/internal/config"
	"idleduelist/internal/database"
	"idleduelist/internal/handlers"
	"idleduelist/internal/middleware"
	"idleduelist/internal/monitoring"
	"idleduelist/internal/repository"
	"idleduelist/internal/service"
)

// Version du service (à définir lors du build)
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatal("Failed to load config: ", err)
	}
	initLogger(cfg)

	logrus.WithFields(logrus.Fields{
		"service":    "idleduelist",
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("Starting IdleDuelist...")

	// le contenu statique se valide au démarrage, pas en plein combat
	if err := catalog.ValidateCatalog(); err != nil {
		logrus.Fatal("Invalid game catalog: ", err)
	}

	// Connexion à la base de données et migrations
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		logrus.Fatal("Failed to run migrations: ", err)
	}

	// Store éphémère (Redis, ou mémoire locale en dev)
	store, err := cache.New(&cfg.Cache)
	if err != nil {
		logrus.Fatal("Failed to connect to cache: ", err)
	}
	defer store.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	charRepo := repository.NewCharacterRepository(db)
	matchRepo := repository.NewMatchRepository(db)

	// Services
	authService := service.NewAuthService(userRepo, store, cfg)
	characterService := service.NewCharacterService(charRepo)
	combatService := service.NewCombatService(characterService, charRepo, matchRepo, store, cfg)
	matchmakingService := service.NewMatchmakingService(combatService, characterService, charRepo, store, cfg)

	// Routines d'arrière-plan
	matchmakingService.StartQueueSweepRoutine()
	combatService.StartArchiveSweepRoutine()

	metrics := monitoring.NewMetrics()
	metrics.StartSnapshotRoutine(cfg.Monitoring.SnapshotInterval, matchmakingService.QueueDepth)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	characterHandler := handlers.NewCharacterHandler(characterService)
	combatHandler := handlers.NewCombatHandler(combatService, combatService)
	pvpHandler := handlers.NewPvPHandler(matchmakingService, charRepo, matchRepo)
	catalogHandler := handlers.NewCatalogHandler()
	healthHandler := handlers.NewHealthHandler(db, store)
	wsHandler := handlers.NewWSHandler(combatService, cfg.CORS.OriginList())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRoutes(
		cfg, metrics, store, authService,
		authHandler, characterHandler, combatHandler,
		pvpHandler, catalogHandler, healthHandler, wsHandler,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"host": cfg.Server.Host,
			"port": cfg.Server.Port,
			"env":  cfg.Server.Environment,
		}).Info("IdleDuelist started successfully")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	gracefulShutdown(server)
}

// setupRoutes configure toutes les routes du service
func setupRoutes(
	cfg *config.Config,
	metrics *monitoring.Metrics,
	store cache.Store,
	authService service.AuthServiceInterface,
	authHandler *handlers.AuthHandler,
	characterHandler *handlers.CharacterHandler,
	combatHandler *handlers.CombatHandler,
	pvpHandler *handlers.PvPHandler,
	catalogHandler *handlers.CatalogHandler,
	healthHandler *handlers.HealthHandler,
	wsHandler *handlers.WSHandler,
) *gin.Engine {
	router := gin.New()

	// Middleware globaux
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(&cfg.CORS))
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())
	router.Use(metrics.Middleware())
	if cfg.RateLimit.GlobalPerHour > 0 {
		router.Use(middleware.GlobalRateLimit(store, cfg.RateLimit.GlobalPerHour))
	}

	// Santé et monitoring (sans auth)
	router.GET(cfg.Monitoring.HealthPath, healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET(cfg.Monitoring.MetricsPath, gin.WrapH(metrics.Handler()))

	// le timeout standard ne couvre pas le WebSocket (connexion longue
	// durée) ni le lancement de combat, qui a son propre délai
	requestTimeout := middleware.Timeout(cfg.Server.RequestTimeout)

	v1 := router.Group("/api/v1")
	{
		// Authentification (routes publiques, rate limitées par IP)
		auth := v1.Group("/auth")
		auth.Use(requestTimeout)
		{
			auth.POST("/register", middleware.IPRateLimit(store, "register", cfg.RateLimit.RegisterPerMinute), authHandler.Register)
			auth.POST("/login", middleware.IPRateLimit(store, "login", cfg.RateLimit.LoginPerMinute), authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		// Catalogue (routes publiques)
		content := v1.Group("/catalog")
		content.Use(requestTimeout)
		{
			content.GET("/factions", catalogHandler.Factions)
			content.GET("/factions/:faction/abilities", catalogHandler.FactionAbilities)
			content.GET("/abilities", catalogHandler.Abilities)
			content.GET("/enemies", catalogHandler.Enemies)
			content.GET("/enemies/:id", catalogHandler.Enemy)
		}

		// Spectating WebSocket (public, lecture seule)
		v1.GET("/ws/combats/:id", wsHandler.Spectate)

		// Routes protégées
		protected := v1.Group("/")
		protected.Use(middleware.RequireAuth(authService))
		{
			protected.POST("/auth/logout", requestTimeout, authHandler.Logout)

			characters := protected.Group("/characters")
			characters.Use(requestTimeout)
			{
				characters.POST("", characterHandler.Create)
				characters.GET("", characterHandler.List)
				characters.GET("/:id", characterHandler.Get)
				characters.DELETE("/:id", characterHandler.Delete)
				characters.POST("/:id/stats", characterHandler.AllocateStats)
				characters.GET("/:id/stats", characterHandler.Stats)
				characters.POST("/:id/equip", characterHandler.Equip)
				characters.POST("/:id/unequip", characterHandler.Unequip)
				characters.GET("/:id/history", pvpHandler.MatchHistory)
				characters.GET("/:id/daily-stats", pvpHandler.DailyStats)
				characters.POST("/:id/autofight", middleware.UserRateLimit(store, "combat_start", cfg.RateLimit.CombatStartPerMinute),
					combatHandler.StartAutoFight)
				characters.GET("/:id/autofight", combatHandler.AutoFightProgress)
				characters.DELETE("/:id/autofight", combatHandler.CancelAutoFight)
			}

			combats := protected.Group("/combats")
			{
				combats.POST("", middleware.UserRateLimit(store, "combat_start", cfg.RateLimit.CombatStartPerMinute),
					middleware.Timeout(cfg.Server.CombatStartTimeout), combatHandler.Start)
				combats.GET("/:id", requestTimeout, combatHandler.Get)
				combats.POST("/:id/actions", requestTimeout, combatHandler.Action)
				combats.POST("/:id/forfeit", requestTimeout, combatHandler.Forfeit)
			}

			pvp := protected.Group("/pvp")
			pvp.Use(requestTimeout)
			{
				pvp.POST("/queue", pvpHandler.JoinQueue)
				pvp.DELETE("/queue", pvpHandler.LeaveQueue)
				pvp.GET("/queue/status", pvpHandler.QueueStatus)
				pvp.GET("/rankings", pvpHandler.Rankings)
			}
		}
	}

	return router
}

// initLogger initialise le système de logging
func initLogger(cfg *config.Config) {
	if cfg.Logging.Format == "json" || cfg.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
}

// gracefulShutdown attend SIGINT/SIGTERM puis arrête le serveur proprement
func gracefulShutdown(server *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logrus.Info("IdleDuelist is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatal("Server forced to shutdown: ", err)
	}
	logrus.Info("IdleDuelist stopped")
}
