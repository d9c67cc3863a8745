package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aryak/blogfront/internal/api"
	"github.com/aryak/blogfront/internal/config"
	"github.com/aryak/blogfront/internal/session"
	"github.com/aryak/blogfront/internal/store"
	"github.com/aryak/blogfront/internal/web"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// ── Session slot ─────────────────────────────────────────
	var sessionStore store.Store
	switch cfg.SessionBackend {
	case "redis":
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("redis connect: %v", err)
		}
		defer rdb.Close()
		sessionStore = store.NewRedisStore(rdb)
	case "sqlite":
		st, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite open: %v", err)
		}
		defer st.Close()
		sessionStore = st
	default:
		st, err := store.NewFileStore(cfg.SessionFile)
		if err != nil {
			log.Fatalf("session file: %v", err)
		}
		sessionStore = st
	}

	// ── Backend client ───────────────────────────────────────
	backend := api.NewClient(cfg.APIBaseURL)

	// ── Session manager ──────────────────────────────────────
	sessions := session.NewManager(backend, sessionStore)
	sessions.Initialize(ctx)
	if user := sessions.User(); user != nil {
		log.Printf("Restored session for %s", user.Username)
	} else {
		log.Printf("No session to restore, starting logged out")
	}

	// ── Handlers ─────────────────────────────────────────────
	handler, err := web.NewHandler(backend, sessions)
	if err != nil {
		log.Fatalf("templates: %v", err)
	}

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      web.Router(handler, sessions),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("Blogfront listening on :%s (backend %s)", cfg.Port, cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
