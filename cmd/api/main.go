package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"forecast-backtest/internal/api"
	"forecast-backtest/internal/config"
	"forecast-backtest/internal/data"
	"forecast-backtest/internal/logging"
	"forecast-backtest/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Optional .env; real environment variables win.
	_ = godotenv.Load()

	base := config.Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load %s: %v\n", path, err)
			os.Exit(2)
		}
		base = cfg
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		base.Logging.Level = lvl
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		base.Logging.Filename = file
	}

	log, err := logging.New(base.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var runs *store.RunStore
	if path := getenv("RUNS_DB", base.Output.RunsDB); path != "" {
		runs, err = store.OpenRunStore(path)
		if err != nil {
			log.WithError(err).Fatal("open run store")
		}
		defer runs.Close()
		log.WithField("path", path).Info("run store opened")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := data.NewSeriesCache(cacheTTL())
	go cache.Run(ctx, time.Minute)

	router := api.NewRouter(api.Deps{
		Base:        base,
		Cache:       cache,
		Store:       runs,
		PresetDir:   getenv("PRESET_DIR", "./presets"),
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
		Log:         log,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.WithFields(logrus.Fields{"addr": srv.Addr, "mode": gin.Mode()}).Info("starting API server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server failed")
	}
	log.Info("server stopped")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func cacheTTL() time.Duration {
	if v := os.Getenv("SERIES_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return 30 * time.Minute
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
