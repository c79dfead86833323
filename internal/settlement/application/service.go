// Package application 结算协调服务
package application

import (
	"context"
	"fmt"
	"log/slog"

	exchange "github.com/wyfcoding/exchangesim/internal/exchange/domain"
	portfolio "github.com/wyfcoding/exchangesim/internal/portfolio/domain"
	"github.com/wyfcoding/exchangesim/internal/settlement/domain"
)

// SettlementService 结算协调器：对每笔成交原子地执行买卖双方的
// 资金划转与持仓划转（券款对付），并以 trade_id 幂等。
// 实现 exchange 域的 SettlementCoordinator 接口。
type SettlementService struct {
	records    domain.RecordRepository
	portfolios portfolio.PortfolioRepository
	logger     *slog.Logger
}

// NewSettlementService 构造函数
func NewSettlementService(
	records domain.RecordRepository,
	portfolios portfolio.PortfolioRepository,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		records:    records,
		portfolios: portfolios,
		logger:     logger.With("module", "settlement_service"),
	}
}

// ApplyTradeEffects 将一笔成交的余额/持仓变动原子生效。
// 买方扣款加仓，卖方收款减仓；四项变动在同一事务内全部应用或全部回滚。
// 已结算过的成交直接返回成功（幂等）。
func (s *SettlementService) ApplyTradeEffects(ctx context.Context, trade *exchange.Trade) error {
	existing, err := s.records.GetByTradeID(ctx, trade.TradeID)
	if err != nil {
		return fmt.Errorf("failed to check settlement record for trade %s: %w", trade.TradeID, err)
	}
	if existing != nil && existing.IsSettled() {
		s.logger.Debug("trade already settled, skipping", "trade_id", trade.TradeID)
		return nil
	}

	buyer := trade.BuyerPortfolioID()
	seller := trade.SellerPortfolioID()
	amount := trade.Amount()

	err = s.records.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.portfolios.AdjustBalance(txCtx, buyer, amount.Neg()); err != nil {
			return fmt.Errorf("debit buyer %s: %w", buyer, err)
		}
		if err := s.portfolios.AdjustBalance(txCtx, seller, amount); err != nil {
			return fmt.Errorf("credit seller %s: %w", seller, err)
		}
		if err := s.portfolios.AdjustHolding(txCtx, buyer, trade.Symbol, trade.Quantity); err != nil {
			return fmt.Errorf("credit buyer holding %s: %w", buyer, err)
		}
		if err := s.portfolios.AdjustHolding(txCtx, seller, trade.Symbol, trade.Quantity.Neg()); err != nil {
			return fmt.Errorf("debit seller holding %s: %w", seller, err)
		}

		record := domain.NewSettledRecord(trade.TradeID, trade.Symbol, buyer, seller, trade.Quantity, trade.Price)
		if err := s.records.Save(txCtx, record); err != nil {
			return fmt.Errorf("save settlement record: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("trade settlement failed",
			"trade_id", trade.TradeID,
			"buyer", buyer,
			"seller", seller,
			"amount", amount.String(),
			"error", err,
		)
		return err
	}

	s.logger.Info("trade settled",
		"trade_id", trade.TradeID,
		"symbol", trade.Symbol,
		"quantity", trade.Quantity.String(),
		"price", trade.Price.String(),
	)
	return nil
}
