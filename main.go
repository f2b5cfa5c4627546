package main

import (
    "parlor/admin"
    "parlor/auth"
    "parlor/bus"
    "parlor/chat"
    "parlor/config"
    "parlor/db"
    "parlor/history"
    "parlor/middleware"
    "parlor/presence"
    "parlor/router"

    "context"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/redis/go-redis/v9"
)

func Run(pool *db.DBPool, rdb *redis.Client, cancelBus context.CancelFunc, router *router.Router, port string, name string) {
    server := &http.Server{
        Addr:              ":" + port,
        Handler:           router,
        ReadHeaderTimeout: 5 * time.Second,
        IdleTimeout:       120 * time.Second,
    }

    signalChan := make(chan os.Signal, 1)
    signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

    go func() {
        sig := <-signalChan
        router.Logger.Printf("Received signal: %s. Shutting down '%s' ...\n", sig, name)

        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()

        if err := server.Shutdown(ctx); err != nil {
            router.Logger.Printf("Server shutdown error: %v", err)
        }

        cancelBus()
        if err := rdb.Close(); err != nil {
            router.Logger.Printf("Redis close error: %v", err)
        }
        pool.Close()

        router.Logger.Println("Graceful shutdown completed")
    }()

    router.Logger.Printf("%s is running on port %s\n", name, port)
    if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        router.Logger.Fatalf("Error starting server: %v\n", err)
    }

    router.Logger.Println("Server stopped.")
}

func main() {
    cfg, err := config.Load()
    if err != nil {
        log.Fatalf("Failed to load config: %v", err)
    }

    tokenExpiry, err := time.ParseDuration(cfg.Auth.TokenExpiry)
    if err != nil {
        log.Fatalf("Invalid auth.token_expiry: %v", err)
    }
    opTimeout, err := time.ParseDuration(cfg.Redis.OpTimeout)
    if err != nil {
        log.Fatalf("Invalid redis.op_timeout: %v", err)
    }

    authManager := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Pepper, tokenExpiry, cfg.Server.Name)

    mainMux := router.NewRouter(cfg.Server.Name)

    pool, err := db.InitDB(cfg.Database.Path, cfg.Database.Migrations)
    if err != nil {
        mainMux.Logger.Fatalf("Could not init database: %s", err)
    }

    rdb := redis.NewClient(&redis.Options{
        Addr:       cfg.Redis.Addr,
        Password:   cfg.Redis.Password,
        DB:         cfg.Redis.DB,
        MaxRetries: 3, // transient failures retry with backoff at this boundary
    })

    tracker := presence.New(rdb)
    cache := history.New(rdb, cfg.Chat.HistoryLimit)
    store := chat.NewSQLStore(pool)
    broadcast := bus.New(rdb, cfg.Chat.BusChannel, mainMux.Logger)

    coordinator := chat.NewCoordinator(tracker, cache, store, broadcast,
        cfg.Chat.HistoryLimit, opTimeout, mainMux.Logger)

    busCtx, cancelBus := context.WithCancel(context.Background())
    if err := broadcast.Subscribe(busCtx, coordinator.HandleEnvelope); err != nil {
        mainMux.Logger.Fatalf("Could not subscribe to broadcast bus: %v", err)
    }

    sessionConfig := middleware.SessionConfig{
        Auth: authManager,
        PublicPaths: map[string]bool{
            "/":            true,
            "/api/signup":  true,
            "/api/login":   true,
            "/api/rooms":   true,
            "/api/healthz": true,
            "/api/ws":      true, // handshake verifies its own credential
        },
    }

    authAdapter := func(next http.Handler) http.Handler {
        return middleware.AuthMiddleware(next, sessionConfig)
    }

    mainMux.Use(middleware.Logger)
    mainMux.Use(authAdapter)
    mainMux.RegisterFileServer("./static", "./static/assets")

    api := router.NewAPI(authManager, cfg.Chat.Rooms)
    monitor := &admin.Monitor{
        Pool:     pool,
        Redis:    rdb,
        Bus:      broadcast,
        Coord:    coordinator,
        Presence: tracker,
    }

    apiMux := router.NewRouter("API")
    apiMux.Pool = pool

    apiMux.Handle("POST /signup", api.SignupHandler)
    apiMux.Handle("POST /login", api.LoginHandler)
    apiMux.Handle("GET /rooms", api.RoomsHandler)
    apiMux.Handle("GET /ws", chat.WebSocketHandler(coordinator, authManager))
    apiMux.Handle("GET /healthz", monitor.HealthzHandler)
    apiMux.Handle("GET /metrics", monitor.MetricsHandler)

    mainMux.Include(apiMux, "/api")

    Run(pool, rdb, cancelBus, mainMux, cfg.Server.Port, cfg.Server.Name)
}
