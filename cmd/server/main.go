package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/limitgate/limitgate/pkg/limitgate"
	"github.com/limitgate/limitgate/pkg/limitgate/store"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	configPath := getEnv("LIMITGATE_CONFIG", "config.yaml")
	config, err := limitgate.LoadConfigFromFile(configPath)
	if err != nil {
		log.Fatal("failed to load config", zap.String("path", configPath), zap.Error(err))
	}

	policies, err := config.PolicyTable()
	if err != nil {
		log.Fatal("invalid policy table", zap.Error(err))
	}
	probeInterval, sweepInterval := config.Intervals()

	client := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	defer client.Close()

	limiter, err := limitgate.New(policies,
		store.NewRedisStore(client, config.Redis.KeyPrefix),
		limitgate.WithLogger(log),
		limitgate.WithMetrics(limitgate.NewMetrics(prometheus.DefaultRegisterer)),
		limitgate.WithProbeInterval(probeInterval),
		limitgate.WithSweepInterval(sweepInterval),
	)
	if err != nil {
		log.Fatal("failed to build limiter", zap.Error(err))
	}
	stop := limiter.Start()
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/api/", limiter.Middleware(http.HandlerFunc(protectedHandler)))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
			"store":  limiter.Health().State().String(),
		})
	})

	addr := ":" + getEnv("PORT", "8080")
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Info("listening", zap.String("addr", addr),
			zap.String("default_tier", policies.DefaultTier()),
			zap.Strings("tiers", policies.Tiers()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
}

func protectedHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
