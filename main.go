package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	capabilityx "github.com/freshroute/agent-orchestrator/agent/capability"
	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
	enginex "github.com/freshroute/agent-orchestrator/agent/engine"
	orchestratorx "github.com/freshroute/agent-orchestrator/agent/orchestrator"
	plannerx "github.com/freshroute/agent-orchestrator/agent/planner"
	resultsx "github.com/freshroute/agent-orchestrator/agent/results"
	configx "github.com/freshroute/agent-orchestrator/pkg/config"
	_ "github.com/freshroute/agent-orchestrator/pkg/logger/autoload"
	metricsx "github.com/freshroute/agent-orchestrator/pkg/metrics"
	serverx "github.com/freshroute/agent-orchestrator/server"
)

type AppConfig struct {
	HTTPAddr       string        `envconfig:"HTTP_ADDR" default:":8080"`
	Enabled        bool          `envconfig:"ENABLED" default:"true"`
	MaxActions     int           `envconfig:"MAX_ACTIONS" default:"10"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`

	PricingURL   string `envconfig:"PRICING_URL" default:"http://localhost:8081"`
	RoutingURL   string `envconfig:"ROUTING_URL" default:"http://localhost:8082"`
	RetrievalURL string `envconfig:"RETRIEVAL_URL" default:"http://localhost:8083"`
	EscrowURL    string `envconfig:"ESCROW_URL" default:"http://localhost:8084"`

	PricingTimeout   time.Duration `envconfig:"PRICING_TIMEOUT" default:"5s"`
	RoutingTimeout   time.Duration `envconfig:"ROUTING_TIMEOUT" default:"15s"`
	RetrievalTimeout time.Duration `envconfig:"RETRIEVAL_TIMEOUT" default:"15s"`
	EscrowTimeout    time.Duration `envconfig:"ESCROW_TIMEOUT" default:"15s"`

	RedisURL  string        `envconfig:"REDIS_URL" default:""`
	ResultTTL time.Duration `envconfig:"RESULT_TTL" default:"1h"`
}

func main() {
	cfg := configx.MustNew[AppConfig]("AGENT")

	m := metricsx.New()

	pricing, err := capabilityx.NewPricing(cfg.PricingURL, cfg.PricingTimeout, capabilityx.WithMetrics(m))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pricing capability")
	}
	routing, err := capabilityx.NewRouting(cfg.RoutingURL, cfg.RoutingTimeout, capabilityx.WithMetrics(m))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build routing capability")
	}
	retrieval, err := capabilityx.NewRetrieval(cfg.RetrievalURL, cfg.RetrievalTimeout, capabilityx.WithMetrics(m))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build retrieval capability")
	}
	escrow, err := capabilityx.NewEscrow(cfg.EscrowURL, cfg.EscrowTimeout, capabilityx.WithMetrics(m))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build escrow capability")
	}

	eng, err := enginex.New([]contractx.Capability{pricing, routing, retrieval, escrow}, cfg.MaxActions, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build engine")
	}

	opts := []orchestratorx.Option{orchestratorx.WithMetrics(m)}
	if cfg.RedisURL != "" {
		store, err := resultsx.NewRedisStore(cfg.RedisURL, resultsx.WithTTL(cfg.ResultTTL))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect result store")
		}
		defer store.Close()
		opts = append(opts, orchestratorx.WithResultStore(store))
	}

	svc, err := orchestratorx.New(orchestratorx.Config{
		Enabled:        cfg.Enabled,
		RequestTimeout: cfg.RequestTimeout,
	}, plannerx.New(cfg.MaxActions), eng, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	srv, err := serverx.New(cfg.HTTPAddr, svc, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
