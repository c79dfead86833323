// Package domain 组合（资金账户与持仓）的领域模型
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrPortfolioNotFound    = errors.New("portfolio not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
)

// Portfolio 组合聚合根：一家公司在交易所内的资金账户
type Portfolio struct {
	gorm.Model
	PortfolioID   string          `gorm:"column:portfolio_id;type:varchar(32);uniqueIndex;not null" json:"portfolio_id"`
	CorporationID string          `gorm:"column:corporation_id;type:varchar(32);index;not null" json:"corporation_id"`
	Name          string          `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Balance       decimal.Decimal `gorm:"column:balance;type:decimal(20,4);not null;default:0" json:"balance"`
}

// TableName 表名
func (Portfolio) TableName() string {
	return "portfolios"
}

// Holding 持仓：某组合在某市场标的上的数量
type Holding struct {
	gorm.Model
	PortfolioID string          `gorm:"column:portfolio_id;type:varchar(32);uniqueIndex:idx_portfolio_symbol;not null" json:"portfolio_id"`
	Symbol      string          `gorm:"column:symbol;type:varchar(32);uniqueIndex:idx_portfolio_symbol;not null" json:"symbol"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:decimal(20,4);not null;default:0" json:"quantity"`
}

// TableName 表名
func (Holding) TableName() string {
	return "holdings"
}

// NewPortfolio 创建组合
func NewPortfolio(corporationID, name string, initialBalance decimal.Decimal) *Portfolio {
	return &Portfolio{
		PortfolioID:   fmt.Sprintf("PF%d", time.Now().UnixNano()),
		CorporationID: corporationID,
		Name:          name,
		Balance:       initialBalance,
	}
}

// PortfolioRepository 组合仓储接口。
// 余额与持仓的增减必须在调用方的事务上下文内执行，
// 实现方从 ctx 中提取事务句柄。
type PortfolioRepository interface {
	Create(ctx context.Context, portfolio *Portfolio) error
	Get(ctx context.Context, portfolioID string) (*Portfolio, error)
	GetHolding(ctx context.Context, portfolioID, symbol string) (*Holding, error)
	// AdjustBalance 按 delta 调整余额；余额不足时返回 ErrInsufficientFunds
	AdjustBalance(ctx context.Context, portfolioID string, delta decimal.Decimal) error
	// AdjustHolding 按 delta 调整持仓；持仓不足时返回 ErrInsufficientHoldings
	AdjustHolding(ctx context.Context, portfolioID, symbol string, delta decimal.Decimal) error
}
