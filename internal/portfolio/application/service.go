// Package application 投资组合的应用服务
package application

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/exchangesim/internal/portfolio/domain"
)

// PortfolioService 投资组合管理服务
type PortfolioService struct {
	repo   domain.PortfolioRepository
	logger *slog.Logger
}

func NewPortfolioService(repo domain.PortfolioRepository, logger *slog.Logger) *PortfolioService {
	return &PortfolioService{
		repo:   repo,
		logger: logger.With("module", "portfolio_service"),
	}
}

// CreatePortfolio 开设新组合并注入初始资金
func (s *PortfolioService) CreatePortfolio(ctx context.Context, corporationID, name string, initialBalance decimal.Decimal) (*domain.Portfolio, error) {
	portfolio := domain.NewPortfolio(corporationID, name, initialBalance)
	if err := s.repo.Create(ctx, portfolio); err != nil {
		return nil, err
	}

	s.logger.Info("portfolio created",
		"portfolio_id", portfolio.PortfolioID,
		"corporation_id", corporationID,
		"initial_balance", initialBalance.String(),
	)
	return portfolio, nil
}

// GetPortfolio 查询组合现金余额
func (s *PortfolioService) GetPortfolio(ctx context.Context, portfolioID string) (*domain.Portfolio, error) {
	return s.repo.Get(ctx, portfolioID)
}

// GetHolding 查询组合在某市场的持仓量，无持仓时返回零值
func (s *PortfolioService) GetHolding(ctx context.Context, portfolioID, symbol string) (*domain.Holding, error) {
	return s.repo.GetHolding(ctx, portfolioID, symbol)
}

// Deposit 向组合注入资金
func (s *PortfolioService) Deposit(ctx context.Context, portfolioID string, amount decimal.Decimal) error {
	return s.repo.AdjustBalance(ctx, portfolioID, amount)
}
