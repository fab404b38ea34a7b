package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard-api/api"
	"taskboard-api/domain"
	"taskboard-api/room"
	"taskboard-api/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	boardsTable := os.Getenv("BOARDS_TABLE")
	listsTable := os.Getenv("LISTS_TABLE")
	tasksTable := os.Getenv("TASKS_TABLE")
	if connStr == "" || boardsTable == "" || listsTable == "" || tasksTable == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, boardsTable, listsTable, tasksTable)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	rc := redis.NewClient(parseRedisOptions(redisConn))

	cacheTTL := 5 * time.Minute
	if v := os.Getenv("SNAPSHOT_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid SNAPSHOT_CACHE_TTL: %v", err)
		}
		cacheTTL = d
	}
	cached := storage.NewCache(store, rc, cacheTTL)

	eventsChannel := os.Getenv("EVENTS_CHANNEL")
	if eventsChannel == "" {
		eventsChannel = "board-events"
	}

	logger := log.New()

	var fallback *room.Fallback
	if queueName := os.Getenv("EVENTS_FALLBACK_QUEUE"); queueName != "" {
		fallback, err = room.NewFallback(connStr, queueName, logger)
		if err != nil {
			log.Fatalf("fallback queue: %v", err)
		}
	}

	hub := room.NewHub(logger, 64)
	publisher := room.NewPublisher(rc, eventsChannel, fallback, logger)
	svc := domain.NewService(cached, publisher)

	auth := buildAuth()

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(api.GzipRequestMiddleware())

	api.Register(e, svc, hub, auth, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go room.SubscribeUpdates(ctx, logger, rc, eventsChannel, hub)
	if fallback != nil {
		go fallback.Drain(ctx, rc, eventsChannel, 30*time.Second)
	}

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	go func() {
		if err := e.Start(listenAddr); err != nil {
			logger.WithError(err).Info("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}

func buildAuth() *api.Auth {
	if os.Getenv("AUTH_TEST_MODE") == "1" {
		return api.NewAuth(nil, "", "")
	}
	audience := os.Getenv("AUTH_AUDIENCE")
	authDomain := os.Getenv("AUTH_DOMAIN")
	if audience == "" || authDomain == "" {
		log.Fatal("missing auth config")
	}
	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", authDomain)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
	if err != nil {
		log.Fatalf("jwks: %v", err)
	}
	return api.NewAuth(jwks, audience, "https://"+authDomain+"/")
}

// parseRedisOptions accepts either a redis URL or the comma separated
// "host:port,password=...,ssl=true" connection string form.
func parseRedisOptions(redisConn string) *redis.Options {
	opts, err := redis.ParseURL(redisConn)
	if err == nil {
		return opts
	}
	parts := strings.Split(redisConn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
