package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"keyvault-backend-go/internal/api"
	"keyvault-backend-go/internal/config"
	"keyvault-backend-go/internal/core"
	"keyvault-backend-go/internal/db"
	"keyvault-backend-go/internal/middleware"
	"keyvault-backend-go/pkg/cache"
	"keyvault-backend-go/pkg/messagequeue"
)

func main() {
	// Local development reads a .env file; in deployed environments the
	// variables are injected and the file is absent.
	_ = godotenv.Load()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()

	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded")

	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	clients, err := db.InitFirebase(initCtx, appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize Firebase Admin SDK", zap.Error(err))
	}
	defer clients.Firestore.Close()
	zapLogger.Info("Firebase Admin SDK (Firestore, Auth) initialized")

	// Repositories.
	folderRepo := db.NewFirestoreFolderRepository(clients.Firestore)
	keyRepo := db.NewFirestoreKeyRepository(clients.Firestore)
	userRepo := db.NewFirestoreUserRepository(clients.Firestore)
	rbacRepo := db.NewFirestoreRBACRepository(clients.Firestore)
	tokenRepo := db.NewFirestoreAPITokenRepository(clients.Firestore)
	auditRepo := db.NewFirestoreAuditRepository(clients.Firestore)
	grantRepo := db.NewFirestoreGrantRepository(clients.Firestore)
	zapLogger.Info("Repositories initialized")

	// Optional infrastructure: the permission cache and the audit event queue
	// are enabled only when configured.
	var permCache cache.Cache
	if appConfig.RedisAddress != "" {
		redisCache, err := cache.NewRedisCache(initCtx, cache.NewRedisCacheConfig{
			Address:  appConfig.RedisAddress,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		})
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		permCache = redisCache
		zapLogger.Info("Redis permission cache enabled", zap.String("address", appConfig.RedisAddress))
	} else {
		zapLogger.Info("Redis permission cache disabled: REDIS_ADDRESS not configured")
	}

	var auditQueue messagequeue.MessageQueue
	if appConfig.AMQPURL != "" {
		mq, err := messagequeue.NewRabbitMQService(messagequeue.NewRabbitMQServiceConfig{URL: appConfig.AMQPURL})
		if err != nil {
			zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mq.Close()
		auditQueue = mq
		zapLogger.Info("Audit event publishing enabled", zap.String("queue", appConfig.AuditQueueName))
	} else {
		zapLogger.Info("Audit event publishing disabled: AMQP_URL not configured")
	}

	// Services.
	auditService := core.NewAuditService(auditRepo, auditQueue, appConfig.AuditQueueName, zapLogger)
	encryptionService := core.NewEncryptionService()
	permissionService := core.NewPermissionService(rbacRepo, rbacRepo, rbacRepo, grantRepo, auditService, permCache, zapLogger)

	resolver, err := core.NewPathResolver(folderRepo, keyRepo, encryptionService, appConfig.EncryptionKey, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize PathResolver", zap.Error(err))
	}
	keyService, err := core.NewKeyService(keyRepo, folderRepo, grantRepo, encryptionService, appConfig.EncryptionKey, auditService, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize KeyService", zap.Error(err))
	}
	folderService := core.NewFolderService(folderRepo, keyRepo, auditService, zapLogger)
	zapLogger.Info("Core services initialized")

	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig))
		zapLogger.Info("CORS middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS middleware skipped: CLIENT_URL is not configured")
	}

	authMW := middleware.NewAuthMiddleware(clients.Auth, userRepo, tokenRepo, appConfig.JWTSecret, zapLogger)
	api.SetupRoutes(router, zapLogger, authMW, resolver, permissionService, auditService, folderService, keyService)

	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	zapLogger.Info("Starting HTTP server", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exiting gracefully")
}
