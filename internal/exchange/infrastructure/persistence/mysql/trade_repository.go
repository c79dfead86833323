package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/wyfcoding/exchangesim/internal/exchange/domain"
)

type tradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository 创建 MySQL 成交仓储
func NewTradeRepository(db *gorm.DB) domain.TradeRepository {
	return &tradeRepository{db: db}
}

func (r *tradeRepository) dbFor(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value("tx_db").(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *tradeRepository) Save(ctx context.Context, trade *domain.Trade) error {
	return r.dbFor(ctx).Create(toTradeModel(trade)).Error
}

func (r *tradeRepository) GetLatestTrades(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	var models []*TradeModel
	err := r.dbFor(ctx).
		Where("symbol = ?", symbol).
		Order("sequence DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	trades := make([]*domain.Trade, 0, len(models))
	for _, m := range models {
		trades = append(trades, toDomainTrade(m))
	}
	return trades, nil
}
