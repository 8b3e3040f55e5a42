package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Arnav10090/Customer-web-portal/internal/config"
	"github.com/Arnav10090/Customer-web-portal/internal/db"
	"github.com/Arnav10090/Customer-web-portal/internal/handlers"
	"github.com/Arnav10090/Customer-web-portal/internal/middleware"
	"github.com/Arnav10090/Customer-web-portal/internal/routes"
	"github.com/Arnav10090/Customer-web-portal/internal/services"
	"github.com/Arnav10090/Customer-web-portal/internal/storage"
	"github.com/Arnav10090/Customer-web-portal/internal/utils"
	"github.com/Arnav10090/Customer-web-portal/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	// Устанавливаем режим релиза для продакшена
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.LogFormat == "json" {
		log.SetFlags(0)
	}

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET не задан")
	}

	// Подключение к базе данных
	database, err := db.ConnectWithRetry(cfg)
	if err != nil {
		log.Fatal("Ошибка подключения к базе данных:", err)
	}

	if err := db.AutoMigrate(database); err != nil {
		log.Fatal("Ошибка миграции базы данных:", err)
	}

	// Подключение к Redis
	var redisClient *redis.Client
	if rdb, err := db.NewRedisClient(cfg); err != nil {
		log.Println("Предупреждение: Redis недоступен, продолжаем без кэширования:", err)
	} else {
		log.Println("Успешное подключение к Redis")
		redisClient = rdb
		defer redisClient.Close()
	}

	files, err := storage.NewFileStore(cfg.StorageRoot)
	if err != nil {
		log.Fatal("Ошибка инициализации хранилища файлов:", err)
	}

	// Запускаем WebSocket hub
	hub := websocket.NewHub()
	hub.Start()

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	cache := services.NewLookupCache(redisClient, cfg.LookupCacheTTL, cfg.CacheEnabled)
	audit := services.NewAuditService(database)
	linker := services.NewDocumentLinker(database, files, cache)
	issuer := services.NewGatePassIssuer(
		database,
		files,
		audit,
		services.NewSMTPEmailService(cfg),
		services.NewRabbitSMSQueue(cfg.RabbitMQURL),
		cache,
		cfg.NotifyTimeout,
	)

	deps := &routes.Dependencies{
		Config:      cfg,
		DB:          database,
		Redis:       redisClient,
		Tokens:      tokens,
		Blacklist:   services.NewTokenBlacklist(redisClient),
		Cache:       cache,
		Issuer:      issuer,
		Linker:      linker,
		Lookup:      services.NewLookupService(database, cache, linker),
		Submissions: services.NewSubmissionService(database, audit, hub),
		Audit:       audit,
		Hub:         hub,
	}

	// Создаем Gin роутер
	r := gin.New()

	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// Добавляем middleware для сбора метрик
	r.Use(middleware.PrometheusMiddleware())

	// Настройка доверенных прокси
	r.SetTrustedProxies([]string{"127.0.0.1"})

	// Настройка CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Статическая директория: QR-коды и документы
	r.Static("/uploads", files.Root())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", handlers.Health(database, redisClient))

	api := r.Group("/api")
	routes.SetupRoutes(api, deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Сервер запущен на порту %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Ошибка запуска сервера: %s", err)
		}
	}()

	// Ожидаем сигнал для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Получен сигнал завершения, закрываем соединения...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Ошибка при graceful shutdown: %s", err)
	}

	// Дожидаемся фоновых уведомлений о выданных пропусках
	issuer.Wait()
	hub.Stop()

	log.Println("Сервер корректно завершил работу")
}
