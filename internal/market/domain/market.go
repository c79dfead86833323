// Package domain 市场元数据的领域模型
package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrMarketNotFound 市场不存在
	ErrMarketNotFound = errors.New("market not found")
	// ErrMarketExists 市场已存在
	ErrMarketExists = errors.New("market already exists")
)

// Market 市场聚合根。身份（Symbol）不可变，交易参数可由管理操作调整。
type Market struct {
	gorm.Model
	Symbol         string          `gorm:"column:symbol;type:varchar(32);uniqueIndex;not null" json:"symbol"`
	Name           string          `gorm:"column:name;type:varchar(128);not null" json:"name"`
	PriceIncrement decimal.Decimal `gorm:"column:price_increment;type:decimal(18,8);not null" json:"price_increment"`
	QtyIncrement   decimal.Decimal `gorm:"column:qty_increment;type:decimal(18,8);not null" json:"qty_increment"`
	MaxQuantity    decimal.Decimal `gorm:"column:max_quantity;type:decimal(20,4);not null;default:0" json:"max_quantity"`
	Active         bool            `gorm:"column:active;not null;default:true" json:"active"`
}

// TableName 表名
func (Market) TableName() string {
	return "markets"
}

// NewMarket 创建市场
func NewMarket(symbol, name string, priceIncrement, qtyIncrement, maxQuantity decimal.Decimal) *Market {
	return &Market{
		Symbol:         symbol,
		Name:           name,
		PriceIncrement: priceIncrement,
		QtyIncrement:   qtyIncrement,
		MaxQuantity:    maxQuantity,
		Active:         true,
	}
}

// Activate 开市
func (m *Market) Activate() {
	m.Active = true
}

// Deactivate 停市：新订单将被拒绝，存量挂单不受影响
func (m *Market) Deactivate() {
	m.Active = false
}

// MarketRepository 市场仓储接口
type MarketRepository interface {
	Save(ctx context.Context, market *Market) error
	Update(ctx context.Context, market *Market) error
	GetBySymbol(ctx context.Context, symbol string) (*Market, error)
	ListSymbols(ctx context.Context) ([]string, error)
	ListAll(ctx context.Context) ([]*Market, error)
}
