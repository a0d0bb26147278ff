package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hypernova-labs/invoicing-service/internal/api"
	"github.com/hypernova-labs/invoicing-service/internal/config"
	"github.com/hypernova-labs/invoicing-service/internal/database"
	"github.com/hypernova-labs/invoicing-service/internal/database/memory"
	"github.com/hypernova-labs/invoicing-service/internal/email"
	"github.com/hypernova-labs/invoicing-service/internal/services"
	"github.com/hypernova-labs/invoicing-service/internal/workflows"
	"github.com/sirupsen/logrus"
)

func main() {
	// Cargar configuración
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger := setupLogger(cfg)
	logger.Info("Starting Invoicing Service...")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	health := map[string]api.HealthChecker{}

	// Almacén de facturas
	store, err := setupStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Error initializing store: %v", err)
	}
	defer store.Close()
	health["store"] = store

	// Generador de números y folios
	var ids services.IdentifierGenerator = services.NewUUIDIdentifierGenerator()
	if cfg.Invoice.IDStrategy == "redis" {
		redis, err := database.ConnectRedis(cfg)
		if err != nil {
			logger.Warnf("Error connecting to Redis, using random identifiers: %v", err)
		} else {
			defer redis.Close()
			ids = services.NewRedisIdentifierGenerator(redis, ids, logger)
			health["redis"] = redis
			logger.Info("Sequential identifiers enabled via Redis")
		}
	}

	// Almacenamiento de PDFs
	var artifacts services.ArtifactStorage
	if cfg.Storage.Type == "s3" {
		objectStorage, err := database.NewObjectStorage(ctx, cfg.S3, cfg.Storage, logger)
		if err != nil {
			logger.Fatalf("Error initializing object storage: %v", err)
		}
		if err := objectStorage.HealthCheck(ctx); err != nil {
			logger.Warnf("Object storage health check failed: %v", err)
		} else {
			logger.Info("Object storage connection healthy")
		}
		artifacts = objectStorage
		health["storage"] = objectStorage
	} else {
		artifacts = services.NewLocalStorage(cfg.Storage.Path, cfg.Storage.PublicBaseURL, logger)
	}

	// Servicio de email
	var notifier services.Notifier = email.DisabledService{}
	if cfg.Email.ResendAPIKey != "" {
		notifier = email.NewResendService(cfg.Email, logger)
		logger.Info("Resend service initialized successfully")
	} else {
		logger.Warn("Resend API key not provided, email service will not be available")
	}

	// Eventos de Inngest
	var events services.EventPublisher = workflows.NoopPublisher{}
	if cfg.Inngest.Enabled() {
		inngestClient, err := workflows.NewInngestClient(cfg, logger)
		if err != nil {
			logger.Warnf("Error initializing Inngest client: %v", err)
		} else {
			events = inngestClient
		}
	} else {
		logger.Warn("Inngest credentials not provided, lifecycle events will not be published")
	}

	invoiceService := services.NewInvoiceService(store, ids, events, cfg.Invoice.DefaultCurrency, logger)
	documentService := services.NewDocumentService(store, services.NewPDFRenderer(artifacts, logger), notifier, events, logger)

	apiHandler := api.NewAPI(invoiceService, documentService, health, logger)
	router := setupRouter(apiHandler, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infof("Server starting on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// setupStore selecciona el almacén según STORE_DRIVER
func setupStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (database.Store, error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory store, data will not survive restarts")
		return memory.New(), nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("Database schema applied")
	}

	db.LogStats(logger)
	return database.NewPostgresStore(db, logger, cfg.Database.TxTimeout), nil
}

// setupLogger configura el logger según la configuración
func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// setupRouter configura el router principal
func setupRouter(apiHandler *api.API, cfg *config.Config) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS para desarrollo
	if cfg.IsDevelopment() {
		router.Use(func(c *gin.Context) {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, "+api.ActorHeader)

			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(204)
				return
			}

			c.Next()
		})
	}

	router.GET("/health", apiHandler.Health)
	apiHandler.RegisterRoutes(router.Group("/v1"))

	return router
}
