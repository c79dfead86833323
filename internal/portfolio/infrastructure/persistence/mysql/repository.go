package mysql

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/exchangesim/internal/portfolio/domain"
)

type portfolioRepository struct {
	db *gorm.DB
}

// NewPortfolioRepository 创建 MySQL 组合仓储
func NewPortfolioRepository(db *gorm.DB) domain.PortfolioRepository {
	return &portfolioRepository{db: db}
}

// dbFor 优先使用 ctx 中注入的事务句柄（key: tx_db）
func (r *portfolioRepository) dbFor(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value("tx_db").(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *portfolioRepository) Create(ctx context.Context, portfolio *domain.Portfolio) error {
	return r.dbFor(ctx).Create(portfolio).Error
}

func (r *portfolioRepository) Get(ctx context.Context, portfolioID string) (*domain.Portfolio, error) {
	var p domain.Portfolio
	err := r.dbFor(ctx).Where("portfolio_id = ?", portfolioID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *portfolioRepository) GetHolding(ctx context.Context, portfolioID, symbol string) (*domain.Holding, error) {
	var h domain.Holding
	err := r.dbFor(ctx).Where("portfolio_id = ? AND symbol = ?", portfolioID, symbol).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.Holding{PortfolioID: portfolioID, Symbol: symbol, Quantity: decimal.Zero}, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *portfolioRepository) AdjustBalance(ctx context.Context, portfolioID string, delta decimal.Decimal) error {
	db := r.dbFor(ctx)

	var p domain.Portfolio
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("portfolio_id = ?", portfolioID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrPortfolioNotFound
	}
	if err != nil {
		return err
	}

	newBalance := p.Balance.Add(delta)
	if newBalance.Sign() < 0 {
		return domain.ErrInsufficientFunds
	}

	return db.Model(&p).Update("balance", newBalance).Error
}

func (r *portfolioRepository) AdjustHolding(ctx context.Context, portfolioID, symbol string, delta decimal.Decimal) error {
	db := r.dbFor(ctx)

	var h domain.Holding
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("portfolio_id = ? AND symbol = ?", portfolioID, symbol).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if delta.Sign() < 0 {
			return domain.ErrInsufficientHoldings
		}
		return db.Create(&domain.Holding{PortfolioID: portfolioID, Symbol: symbol, Quantity: delta}).Error
	}
	if err != nil {
		return err
	}

	newQty := h.Quantity.Add(delta)
	if newQty.Sign() < 0 {
		return domain.ErrInsufficientHoldings
	}

	return db.Model(&h).Update("quantity", newQty).Error
}
