package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"ledgerline/internal/config"
	"ledgerline/internal/document"
	"ledgerline/internal/handlers"
	"ledgerline/internal/jobs"
	"ledgerline/internal/logging"
	"ledgerline/internal/middleware"
	"ledgerline/internal/services"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Ledgerline Advisor...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Model: %s)", cfg.Port, cfg.ProviderModel)

	// Core services
	extractor := services.NewKeywordExtractor()
	store := services.NewSessionStore(cfg.MaxHistoryLength, cfg.SessionTimeout, extractor)
	services.InitMetrics(store)

	prompts := services.NewPromptBuilder()
	if cfg.PersonaFilePath != "" {
		if err := prompts.LoadFromFile(cfg.PersonaFilePath); err != nil {
			log.Printf("⚠️  Failed to load persona templates from %s: %v", cfg.PersonaFilePath, err)
		} else {
			log.Printf("✅ Persona templates loaded from %s", cfg.PersonaFilePath)
			go watchPersonaFile(cfg.PersonaFilePath, prompts)
		}
	}

	client := services.NewCompletionClient(services.CompletionClientConfig{
		BaseURL:     cfg.ProviderBaseURL,
		APIKey:      cfg.ProviderAPIKey,
		Model:       cfg.ProviderModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.ProviderTimeout,
		RequestRate: cfg.ProviderRate,
	})
	fileCache := services.NewFileCache()
	chatService := services.NewChatService(store, prompts, client, fileCache)

	docService, err := document.NewService(cfg.ExportDir, cfg.ExportTTL)
	if err != nil {
		log.Fatalf("❌ Failed to initialize export service: %v", err)
	}

	// Background jobs
	scheduler, err := jobs.NewScheduler()
	if err != nil {
		log.Fatalf("❌ Failed to create scheduler: %v", err)
	}
	if err := scheduler.Register("session-sweep", cfg.SweepInterval, jobs.SessionSweep(store)); err != nil {
		log.Fatalf("❌ Failed to register session sweep: %v", err)
	}
	if err := scheduler.Register("export-cleanup", cfg.ExportCleanupEvery, jobs.ExportCleanup(docService)); err != nil {
		log.Fatalf("❌ Failed to register export cleanup: %v", err)
	}
	scheduler.Start()

	// Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Ledgerline Advisor v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    16 * 1024 * 1024, // uploads are capped well below this per type
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("ledgerline")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Chat=%d/min, Upload=%d/min, Export=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.ChatMax,
		rateLimitConfig.UploadMax,
		rateLimitConfig.ExportMax,
	)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	// Fiber's CORS middleware does not allow AllowCredentials with wildcard origins
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,X-Session-ID",
		AllowCredentials: allowedOrigins != "*",
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", allowedOrigins)

	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	app.Use("/api", middleware.SessionID())

	// Handlers
	healthHandler := handlers.NewHealthHandler(store)
	chatHandler := handlers.NewChatHandler(chatService)
	sessionHandler := handlers.NewSessionHandler(store)
	uploadHandler := handlers.NewUploadHandler(fileCache, store)
	exportHandler := handlers.NewExportHandler(docService, store)
	downloadHandler := handlers.NewDownloadHandler(docService)

	// Routes
	app.Get("/health", healthHandler.Health)

	app.Post("/api/chat", middleware.ChatRateLimiter(rateLimitConfig), chatHandler.Chat)
	app.Get("/api/sessions/:id/history", sessionHandler.History)
	app.Get("/api/sessions/:id/summary", sessionHandler.Summary)
	app.Delete("/api/sessions/:id", sessionHandler.Clear)
	app.Post("/api/sessions/:id/issues/:messageId/resolve", sessionHandler.ResolveIssue)
	app.Post("/api/upload", middleware.UploadRateLimiter(rateLimitConfig), uploadHandler.Upload)
	app.Post("/api/export", middleware.ExportRateLimiter(rateLimitConfig), exportHandler.Export)
	app.Get("/api/download/:id", downloadHandler.Download)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := scheduler.Stop(); err != nil {
			log.Printf("⚠️ Error stopping scheduler: %v", err)
		}
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// watchPersonaFile hot-reloads persona templates when the YAML file changes
func watchPersonaFile(path string, prompts *services.PromptBuilder) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  Failed to create file watcher: %v", err)
		return
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		log.Printf("⚠️  Failed to resolve %s: %v", path, err)
		watcher.Close()
		return
	}

	// Watch the directory, editors often replace the file on save
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)
	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  Failed to watch directory %s: %v", dir, err)
		watcher.Close()
		return
	}

	log.Printf("👁️  Watching %s for changes (hot-reload enabled)", path)

	var debounceTimer *time.Timer
	const debounceDuration = 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := prompts.LoadFromFile(path); err != nil {
						log.Printf("❌ Failed to reload persona templates: %v", err)
					} else {
						log.Printf("✅ Persona templates reloaded from %s", path)
					}
				})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  File watcher error: %v", err)
		}
	}
}
