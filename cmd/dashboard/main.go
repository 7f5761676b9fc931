package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/cryptodash/cryptodash-go/marketdata"
	"github.com/cryptodash/cryptodash-go/marketdata/stream"
)

func main() {
	cfg := loadConfig()
	log := newLogger(cfg)

	if log.GetLevel().String() != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	var cache marketdata.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, falling back to in-process cache")
		} else {
			cache = marketdata.NewRedisCache(rdb)
			defer rdb.Close()
		}
	}

	symbols := marketdata.NewCachedClient(marketdata.CachedClientOpts{
		Cache: cache,
		TTL:   cfg.CacheTTL,
	})
	indicators := marketdata.NewIndicators(marketdata.IndicatorsOpts{})

	streamOpts := []stream.Option{
		stream.WithLogger(newStreamLogger(log)),
		stream.WithBufferCapacity(cfg.BufferCapacity),
		stream.WithMovingAverageWindow(cfg.AverageWindow),
	}
	if cfg.StreamURL != "" {
		streamOpts = append(streamOpts, stream.WithBaseURL(cfg.StreamURL))
	}
	streamer := stream.NewClient(streamOpts...)
	defer streamer.Stop()

	if cfg.DefaultSymbol != "" {
		if err := streamer.Start(cfg.DefaultSymbol); err != nil {
			log.WithError(err).Fatal("failed to start default price stream")
		}
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: newServer(log, streamer, symbols, indicators).routes(),
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("dashboard listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	streamer.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown did not complete cleanly")
	}
}
