package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/allenday/tacos/internal/api"
	"github.com/allenday/tacos/internal/config"
	"github.com/allenday/tacos/internal/ledger"
	"github.com/allenday/tacos/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	clock := ledger.SystemClock()

	var ledgerStore ledger.Store
	if cfg.DBSource == "" {
		log.Println("DB_SOURCE not set, using in-memory store (history is lost on restart)")
		ledgerStore = store.NewMemoryStore(clock)
	} else {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DBSource, clock)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		defer pgStore.Close()
		if err := pgStore.InitSchema(ctx); err != nil {
			log.Fatalf("Unable to initialize schema: %v", err)
		}
		ledgerStore = pgStore
	}

	// Initialize Layers
	service := ledger.NewService(ledgerStore, clock, ledger.Settings{
		DailyLimit:          cfg.DailyLimit,
		DefaultHistoryLines: cfg.DefaultHistoryLines,
		MaxHistoryLines:     cfg.MaxHistoryLines,
	})
	handler := api.NewHandler(service, cfg)

	// Router
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheckHandler).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/gives", handler.CreateGiveHandler).Methods("POST")
	apiV1.HandleFunc("/leaderboard", handler.LeaderboardHandler).Methods("GET")
	apiV1.HandleFunc("/history", handler.RecentActivityHandler).Methods("GET")
	apiV1.HandleFunc("/users/{id}/given", handler.GivingHistoryHandler).Methods("GET")
	apiV1.HandleFunc("/users/{id}/received", handler.ReceivingHistoryHandler).Methods("GET")
	apiV1.HandleFunc("/users/{id}/remaining", handler.RemainingHandler).Methods("GET")

	root := handlers.RecoveryHandler()(handlers.LoggingHandler(os.Stdout, api.RequestID(r)))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: root,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on :%s (env=%s, daily limit=%d %s)", cfg.Port, cfg.Env, cfg.DailyLimit, cfg.UnitNamePlural)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
