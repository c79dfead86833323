package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wyfcoding/exchangesim/internal/market/domain"
)

type marketRepository struct {
	db *gorm.DB
}

// NewMarketRepository 创建 MySQL 市场仓储
func NewMarketRepository(db *gorm.DB) domain.MarketRepository {
	return &marketRepository{db: db}
}

func (r *marketRepository) Save(ctx context.Context, market *domain.Market) error {
	err := r.db.WithContext(ctx).Create(market).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrMarketExists
	}
	return err
}

func (r *marketRepository) Update(ctx context.Context, market *domain.Market) error {
	return r.db.WithContext(ctx).Save(market).Error
}

func (r *marketRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.Market, error) {
	var market domain.Market
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&market).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMarketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &market, nil
}

func (r *marketRepository) ListSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := r.db.WithContext(ctx).Model(&domain.Market{}).Order("symbol asc").Pluck("symbol", &symbols).Error
	return symbols, err
}

func (r *marketRepository) ListAll(ctx context.Context) ([]*domain.Market, error) {
	var markets []*domain.Market
	err := r.db.WithContext(ctx).Order("symbol asc").Find(&markets).Error
	return markets, err
}
