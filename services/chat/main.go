package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jjq0425/online-chat/internal/channel"
	"github.com/jjq0425/online-chat/internal/config"
	"github.com/jjq0425/online-chat/internal/fileserver"
	"github.com/jjq0425/online-chat/internal/handler"
	"github.com/jjq0425/online-chat/internal/logger"
	"github.com/jjq0425/online-chat/internal/middleware"
	"github.com/jjq0425/online-chat/internal/push"
	"github.com/jjq0425/online-chat/internal/startup"
	"github.com/jjq0425/online-chat/internal/storage"
	"github.com/jjq0425/online-chat/internal/storage/filelog"
	"github.com/jjq0425/online-chat/internal/storage/memory"
	pebblestorage "github.com/jjq0425/online-chat/internal/storage/pebble"
	pgstorage "github.com/jjq0425/online-chat/internal/storage/pg"
	"github.com/jjq0425/online-chat/internal/ws"
	"github.com/jjq0425/online-chat/migrations"
)

func main() {
	logger.SetPrefix("chat")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL (no external DB required)")
	flag.Parse()

	logger.Info("starting chat service")
	cfg := config.Load()

	// -dev поднимает встроенный Postgres и переключает носитель на pg
	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		var err error
		embeddedDB, err = startEmbeddedPostgres(cfg)
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			os.Exit(1)
		}
		cfg.Storage.Backend = "pg"
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	backend, err := openBackend(cfg)
	if err != nil {
		logger.Errorf("storage backend %q: %v", cfg.Storage.Backend, err)
		os.Exit(1)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Errorf("storage close: %v", err)
		}
	}()
	logger.Infof("storage backend: %s", cfg.Storage.Backend)

	store := channel.NewStore(backend)

	var pushSvc *push.Service
	var notifier ws.Notifier
	if cfg.Push.Enabled {
		keys, err := push.EnsureVAPIDKeys(cfg.Push.VAPIDKeysFile)
		if err != nil {
			logger.Errorf("vapid keys: %v", err)
			os.Exit(1)
		}
		pushSvc = push.NewService(keys, cfg.Push.Subscriber)
		notifier = pushSvc
		logger.Info("push notifications enabled")
	}

	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := ws.NewHub(store, cfg.MaxWSConnections, notifier)

	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	fileSvc := fileserver.New(cfg.UploadDir, cfg.MaxUploadSize)

	historyH := handler.NewHistoryHandler(store, hub)
	msgH := handler.NewMessageHandler(hub)
	fileH := handler.NewFileHandler(fileSvc, hub, cfg.MaxUploadSize)
	wsH := handler.NewWSHandler(hub, cfg.CORSAllowedOrigins)
	configH := handler.NewConfigHandler(pushSvc)
	pushH := handler.NewPushHandler(pushSvc)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RecoverJSON)
	// Не сжимать WebSocket — иначе ResponseWriter не реализует http.Hijacker и upgrade даёт 500.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			chimw.Compress(5)(next).ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })
	r.Get("/api/history/{channelId}", historyH.GetHistory)
	r.Get("/api/get-logs/{channelId}", historyH.GetRawLog)
	r.Get("/api/room/{channelId}", historyH.GetRoom)
	r.Post("/api/send-msg", msgH.SendMessage)
	r.Post("/api/upload", fileH.Upload)
	r.Get("/api/files/{filename}", fileH.Serve)
	r.Get("/api/config/push", configH.GetPushConfig)
	r.Post("/api/push/subscribe", pushH.Subscribe)
	r.Delete("/api/push/subscribe", pushH.Unsubscribe)
	r.Get("/ws", wsH.ServeWS)

	webDist := "./web/dist"
	if info, err := os.Stat(webDist); err == nil && info.IsDir() {
		r.Get("/*", spaHandler(webDist))
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	srvWg.Wait()
	logger.Info("server goroutine exited")
}

// openBackend выбирает носитель журналов каналов по конфигурации.
func openBackend(cfg *config.Config) (storage.ChannelLog, error) {
	switch cfg.Storage.Backend {
	case "", "file":
		return filelog.New(cfg.Storage.LogDir)
	case "memory":
		return memory.New(), nil
	case "redis":
		return startup.ConnectRedisWithRetry(cfg.Storage.RedisURL, 60*time.Second, ""), nil
	case "pg":
		poolCfg, err := pgxpool.ParseConfig(cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse db config: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.Storage.DBMaxConnections)
		poolCfg.MinConns = 2
		pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second, "")
		if err := runMigrations(pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database connected, migrations applied")
		return pgstorage.New(pool), nil
	case "pebble":
		return pebblestorage.Open(cfg.Storage.PebbleDir)
	default:
		return nil, fmt.Errorf("unknown backend (want file, memory, redis, pg or pebble)")
	}
}

func runMigrations(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	files := []string{"001_channel_logs.sql"}
	for _, f := range files {
		data, err := migrations.Files.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("run migration %s: %w", f, err)
		}
	}
	return nil
}

func spaHandler(dir string) http.HandlerFunc {
	fs := http.Dir(dir)
	fileServer := http.FileServer(fs)
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(filepath.Clean(r.URL.Path), "/")
		if path == "" {
			path = "index.html"
		}
		if f, err := fs.Open(path); err != nil {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
		} else {
			f.Close()
			fileServer.ServeHTTP(w, r)
		}
	}
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "chat"
		password = "chat_secret"
		database = "chat"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Storage.DatabaseURL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
