// Package application 市场管理的应用服务
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/exchangesim/internal/market/domain"
)

// EngineRefresher 市场参数变更后刷新运行中撮合引擎的回调
type EngineRefresher interface {
	RefreshMarket(ctx context.Context, symbol string) error
}

// MarketService 市场元数据的管理服务
type MarketService struct {
	repo      domain.MarketRepository
	refresher EngineRefresher
	logger    *slog.Logger
}

func NewMarketService(repo domain.MarketRepository, refresher EngineRefresher, logger *slog.Logger) *MarketService {
	return &MarketService{
		repo:      repo,
		refresher: refresher,
		logger:    logger.With("module", "market_service"),
	}
}

// CreateMarket 注册新市场
func (s *MarketService) CreateMarket(ctx context.Context, symbol, name string, priceIncrement, qtyIncrement, maxQuantity decimal.Decimal) (*domain.Market, error) {
	if priceIncrement.Sign() <= 0 || qtyIncrement.Sign() <= 0 {
		return nil, fmt.Errorf("increments must be positive")
	}

	market := domain.NewMarket(symbol, name, priceIncrement, qtyIncrement, maxQuantity)
	if err := s.repo.Save(ctx, market); err != nil {
		return nil, err
	}

	s.logger.Info("market created",
		"symbol", symbol,
		"price_increment", priceIncrement.String(),
		"qty_increment", qtyIncrement.String(),
	)
	return market, nil
}

// SetActive 开市或停市。停市只拒绝新订单，存量挂单保留。
func (s *MarketService) SetActive(ctx context.Context, symbol string, active bool) error {
	market, err := s.repo.GetBySymbol(ctx, symbol)
	if err != nil {
		return err
	}

	if active {
		market.Activate()
	} else {
		market.Deactivate()
	}
	if err := s.repo.Update(ctx, market); err != nil {
		return err
	}

	if s.refresher != nil {
		if err := s.refresher.RefreshMarket(ctx, symbol); err != nil {
			return fmt.Errorf("market updated but engine refresh failed: %w", err)
		}
	}

	s.logger.Info("market state changed", "symbol", symbol, "active", active)
	return nil
}

// GetMarket 查询单个市场
func (s *MarketService) GetMarket(ctx context.Context, symbol string) (*domain.Market, error) {
	return s.repo.GetBySymbol(ctx, symbol)
}

// ListMarkets 列出全部市场
func (s *MarketService) ListMarkets(ctx context.Context) ([]*domain.Market, error) {
	return s.repo.ListAll(ctx)
}

// SeedDefaults 幂等地写入默认市场，已存在时跳过
func (s *MarketService) SeedDefaults(ctx context.Context, markets []*domain.Market) error {
	for _, m := range markets {
		err := s.repo.Save(ctx, m)
		if err == nil {
			s.logger.Info("seeded default market", "symbol", m.Symbol)
			continue
		}
		if errors.Is(err, domain.ErrMarketExists) {
			continue
		}
		return fmt.Errorf("failed to seed market %s: %w", m.Symbol, err)
	}
	return nil
}
