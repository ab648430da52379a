package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/olegbratus/gigflow-backend/internal/config"
	"github.com/olegbratus/gigflow-backend/internal/db"
	httpHandlers "github.com/olegbratus/gigflow-backend/internal/http/handlers"
	httpRouter "github.com/olegbratus/gigflow-backend/internal/http/router"
	"github.com/olegbratus/gigflow-backend/internal/logger"
	"github.com/olegbratus/gigflow-backend/internal/repository"
	"github.com/olegbratus/gigflow-backend/internal/service"
	"github.com/olegbratus/gigflow-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Presence живёт в Redis; без него статусы просто не отслеживаются.
	var presence service.PresenceService
	if cfg.RedisURL != "" {
		presence, err = service.NewRedisPresence(cfg.RedisURL, cfg.PresenceTTL)
		if err != nil {
			log.Fatalf("main: не удалось подключиться к Redis: %v", err)
		}
	} else {
		presence = service.NewNoopPresence()
		logger.Log.Warn("main: REDIS_URL не задан, онлайн-статусы отключены")
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	orderRepo := repository.NewOrderRepository(dbConn)
	messageRepo := repository.NewMessageRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	orderService := service.NewOrderService(orderRepo, userRepo, hub)
	resolver := service.NewConversationResolver(orderRepo)
	messageService := service.NewMessageService(messageRepo, orderRepo, userRepo, resolver, hub)
	orderService.SetMessenger(messageService)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	orderHandler := httpHandlers.NewOrderHandler(orderService)
	messageHandler := httpHandlers.NewMessageHandler(messageService)
	presenceHandler := httpHandlers.NewPresenceHandler(presence)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager, messageService, presence)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, orderHandler, messageHandler, presenceHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
