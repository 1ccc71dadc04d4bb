package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"manaforge/pkg/logging"
	"manaforge/pkg/metadata"
	"manaforge/pkg/server"
	"manaforge/pkg/server/store"
)

// version is set at build time.
var version = "dev"

func main() {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--version":
			fmt.Println("forgesrv", version)
			return
		case "--help":
			usage()
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown argument %q\n", arg)
			usage()
			os.Exit(1)
		}
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "forgesrv: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`forgesrv - authoritative card game server

Configuration is taken from the environment:
  PORT         HTTP listen port (default 8080)
  REDIS_URL    Redis connection url (default redis://localhost:6379)
  DEV_MODE     "1" or "true" enables debug sessions and the sandbox
  CARD_DB_URL  Card metadata service base url (optional)
  LOG_FILE     Rotated log file path (optional)
  DEBUG_LEVEL  Log level, optionally per subsystem (default info)`)
}

func run() error {
	port := envDefault("PORT", "8080")
	redisURL := envDefault("REDIS_URL", "redis://localhost:6379")
	devMode := envBool("DEV_MODE")

	logBackend, err := logging.NewBackend(logging.Config{
		LogFile:    os.Getenv("LOG_FILE"),
		DebugLevel: envDefault("DEBUG_LEVEL", "info"),
	})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer logBackend.Close()
	log := logBackend.Logger("SRV")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.NewRedisStore(ctx, redisURL)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	meta := metadata.NewClient(os.Getenv("CARD_DB_URL"), logBackend.Logger("META"))

	srv := server.New(server.Config{
		Store:      st,
		Metadata:   meta,
		DevMode:    devMode,
		LogBackend: logBackend,
	})

	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	srv.Routes(router)

	httpSrv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on :%s (dev mode: %v)", port, devMode)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes":
		return true
	}
	return false
}
