// Command server boots the matching engine's order-entry process: loads
// configuration from the environment, opens the audit log, starts the TCP
// order-entry listener, and serves Prometheus metrics until terminated.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/ratikiyer/hft-exchange/internal/audit"
	"github.com/ratikiyer/hft-exchange/internal/config"
	"github.com/ratikiyer/hft-exchange/internal/engine"
	"github.com/ratikiyer/hft-exchange/internal/metrics"
	exchangeNet "github.com/ratikiyer/hft-exchange/internal/net"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	metrics.Register(prometheus.DefaultRegisterer)

	sink, err := audit.NewFileSink(cfg.AuditLogPath, cfg.AuditFlushInterval, metrics.AuditDroppedWrites)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.AuditLogPath).Msg("unable to open audit log")
	}
	defer sink.Close()

	eng := engine.New(sink)
	srv := exchangeNet.New(cfg.ListenAddress, cfg.ListenPort, eng)

	go func() {
		log.Info().Str("address", cfg.MetricsAddress).Msg("serving metrics")
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
			log.Error().Err(err).Msg("metrics server exited")
		}
	}()

	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Error().Err(err).Msg("order-entry server exited")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")
}
