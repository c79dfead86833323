package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	exchangeapp "github.com/wyfcoding/exchangesim/internal/exchange/application"
	exchangeMessaging "github.com/wyfcoding/exchangesim/internal/exchange/infrastructure/messaging"
	exchangeMysql "github.com/wyfcoding/exchangesim/internal/exchange/infrastructure/persistence/mysql"
	exchangeRedis "github.com/wyfcoding/exchangesim/internal/exchange/infrastructure/persistence/redis"
	exchangeHTTP "github.com/wyfcoding/exchangesim/internal/exchange/interfaces/http"
	marketapp "github.com/wyfcoding/exchangesim/internal/market/application"
	marketDomain "github.com/wyfcoding/exchangesim/internal/market/domain"
	marketMysql "github.com/wyfcoding/exchangesim/internal/market/infrastructure/persistence/mysql"
	marketHTTP "github.com/wyfcoding/exchangesim/internal/market/interfaces/http"
	portfolioapp "github.com/wyfcoding/exchangesim/internal/portfolio/application"
	portfolioDomain "github.com/wyfcoding/exchangesim/internal/portfolio/domain"
	portfolioMysql "github.com/wyfcoding/exchangesim/internal/portfolio/infrastructure/persistence/mysql"
	portfolioHTTP "github.com/wyfcoding/exchangesim/internal/portfolio/interfaces/http"
	settlementapp "github.com/wyfcoding/exchangesim/internal/settlement/application"
	settlementDomain "github.com/wyfcoding/exchangesim/internal/settlement/domain"
	settlementMysql "github.com/wyfcoding/exchangesim/internal/settlement/infrastructure/persistence/mysql"
	"github.com/wyfcoding/exchangesim/pkg/cache"
	"github.com/wyfcoding/exchangesim/pkg/config"
	"github.com/wyfcoding/exchangesim/pkg/db"
	"github.com/wyfcoding/exchangesim/pkg/logger"
	"github.com/wyfcoding/exchangesim/pkg/mq"
)

var configPath = flag.String("config", "configs/exchange/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Logger
	if err := logger.Init(cfg.Logger); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	log := logger.Get()
	slog.SetDefault(log)

	// 3. Infrastructure
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if cfg.Environment == "dev" {
		if err := database.AutoMigrate(
			&marketDomain.Market{},
			&portfolioDomain.Portfolio{},
			&portfolioDomain.Holding{},
			&settlementDomain.Record{},
			&exchangeMysql.OrderModel{},
			&exchangeMysql.TradeModel{},
		); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	redisCache, err := cache.New(cache.Config{
		Host:        cfg.Redis.Host,
		Port:        cfg.Redis.Port,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxPoolSize: cfg.Redis.MaxPoolSize,
		ConnTimeout: cfg.Redis.ConnTimeout,
	})
	if err != nil {
		slog.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		GroupID:      cfg.Kafka.GroupID,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	})
	if err != nil {
		slog.Error("failed to create kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	// 4. Repositories
	marketRepo := marketMysql.NewMarketRepository(database.DB)
	portfolioRepo := portfolioMysql.NewPortfolioRepository(database.DB)
	settlementRepo := settlementMysql.NewRecordRepository(database.DB)
	orderRepo := exchangeMysql.NewOrderRepository(database.DB)
	tradeRepo := exchangeMysql.NewTradeRepository(database.DB)
	uow := exchangeMysql.NewUnitOfWork(database.DB)
	tradeCache := exchangeRedis.NewTradeCache(redisCache)
	publisher := exchangeMessaging.NewKafkaEventPublisher(producer)

	// 5. Application
	settlementService := settlementapp.NewSettlementService(settlementRepo, portfolioRepo, log)
	registry := exchangeapp.NewMarketRegistry(marketRepo, orderRepo, cfg.Matching.QueueCapacity, log)
	manager := exchangeapp.NewExchangeManager(registry, uow, orderRepo, tradeRepo, settlementService, publisher, tradeCache, log)
	queryService := exchangeapp.NewExchangeQueryService(registry, tradeRepo, tradeCache, log)
	marketService := marketapp.NewMarketService(marketRepo, registry, log)
	portfolioService := portfolioapp.NewPortfolioService(portfolioRepo, log)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := marketService.SeedDefaults(startupCtx, defaultMarkets()); err != nil {
		slog.Warn("failed to seed default markets", "error", err)
	}
	if cfg.Matching.RecoverOnStart {
		if err := manager.RecoverState(startupCtx); err != nil {
			slog.Error("failed to recover exchange state", "error", err)
			cancelStartup()
			os.Exit(1)
		}
	}
	cancelStartup()

	// 6. Interfaces
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	exchangeHTTP.NewExchangeHandler(manager, queryService).RegisterRoutes(router)
	marketHTTP.NewMarketHandler(marketService).RegisterRoutes(router)
	portfolioHTTP.NewPortfolioHandler(portfolioService).RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 7. Start
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down servers...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown failed", "error", err)
		}
		registry.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
	slog.Info("exchange service stopped")
}

// defaultMarkets 开发环境的默认市场集合
func defaultMarkets() []*marketDomain.Market {
	return []*marketDomain.Market{
		marketDomain.NewMarket("BTC-USD", "Bitcoin / US Dollar",
			decimal.RequireFromString("0.01"), decimal.RequireFromString("0.0001"), decimal.RequireFromString("1000")),
		marketDomain.NewMarket("ETH-USD", "Ethereum / US Dollar",
			decimal.RequireFromString("0.01"), decimal.RequireFromString("0.001"), decimal.RequireFromString("10000")),
	}
}
