package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/oversight-gate/internal/audit"
	"github.com/xela07ax/oversight-gate/internal/connectors"
	"github.com/xela07ax/oversight-gate/internal/gate"
	"github.com/xela07ax/oversight-gate/internal/infra"
	"github.com/xela07ax/oversight-gate/internal/infra/auth"
	"github.com/xela07ax/oversight-gate/internal/repository/postgres"
	"github.com/xela07ax/oversight-gate/internal/server"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Стоки аудита. Zap есть всегда; Postgres и Redis — по конфигурации.
	// Порядок в Tee фиксирован: каждый переход уходит во все стоки синхронно.
	sinks := audit.Tee{audit.NewZapSink(logger)}

	if cfg.Audit.PostgresURL != "" {
		repo, err := postgres.NewAuditRepo(cfg.Audit.PostgresURL)
		if err != nil {
			logger.Fatal("failed to init audit storage", zap.Error(err))
		}
		// Проверяем соединение с таймаутом
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := repo.Ping(pingCtx); err != nil {
			logger.Fatal("audit database unreachable", zap.Error(err))
		}
		cancel()
		sinks = append(sinks, audit.NewStorageSink(repo, logger))
	}

	if cfg.Audit.RedisStream {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sinks = append(sinks, audit.NewRedisSink(rdb, logger))
	}

	// 3. Метрики
	reg := prometheus.NewRegistry()
	metrics := gate.NewMetrics(reg)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	// 4. Approval-клиент. Отсутствие endpoint валит процесс здесь,
	// до единого approval-вызова (fail-fast)
	client, err := gate.NewClient(cfg.Gate.ApprovalURL, cfg.Gate.RequestTimeout, logger)
	if err != nil {
		logger.Fatal("approval client misconfigured", zap.Error(err))
	}

	var sender gate.Sender = client
	if cfg.Resilience.Enabled {
		// Внешний слой надежности; сам клиент по контракту не ретраит
		sender = gate.NewResilientSender(client, cfg.Resilience)
	}

	var refusal any
	if cfg.Gate.RefusalMessage != "" {
		refusal = cfg.Gate.RefusalMessage
	}

	// 5. Персональный шлюз на каждую демо-capability
	caps := make(map[string]server.GatedCapability)
	for _, c := range connectors.Demo() {
		g, err := gate.New(
			cfg.Gate.AgentName,
			c.Description,
			cfg.Gate.ApproverEmails,
			refusal,
			sender,
			sinks,
			logger,
			metrics,
		)
		if err != nil {
			logger.Fatal("failed to build gate", zap.String("capability", c.ID), zap.Error(err))
		}
		caps[c.ID] = server.GatedCapability{
			Target: gate.Target{Name: c.ID, ParamNames: c.ParamNames, Fn: c.Fn},
			Gate:   g,
		}
	}

	// 6. Проверка токенов агентов (опциональна для локального стенда)
	var validator auth.TokenValidator
	if len(cfg.Auth.PublicKey) > 0 {
		pubKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
		if err != nil {
			logger.Fatal("failed to parse auth public key", zap.Error(err))
		}
		validator = auth.NewBaseValidator(pubKey)
	} else {
		logger.Warn("auth public key not configured, agent tokens are NOT verified")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.New(logger, caps, validator),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 7. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("oversight gate started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("oversight gate stopping...")

	// Даем завершиться висящим approval-вызовам в пределах таймаута запроса
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Gate.RequestTimeout+5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server shutdown failed", zap.Error(err))
	}
	logger.Info("oversight gate exited properly")
}
