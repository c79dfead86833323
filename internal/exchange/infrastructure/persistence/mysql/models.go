package mysql

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wyfcoding/exchangesim/internal/exchange/domain"
)

// OrderModel 订单持久化模型
type OrderModel struct {
	gorm.Model
	OrderID     string          `gorm:"type:varchar(64);uniqueIndex;not null"`
	Symbol      string          `gorm:"type:varchar(32);index:idx_symbol_status;not null"`
	Side        int8            `gorm:"not null"`
	Price       decimal.Decimal `gorm:"type:decimal(32,16);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(32,16);not null"`
	Remaining   decimal.Decimal `gorm:"type:decimal(32,16);not null"`
	PortfolioID string          `gorm:"type:varchar(64);index;not null"`
	Status      int8            `gorm:"index:idx_symbol_status;not null"`
	Sequence    uint64          `gorm:"not null"`
	PlacedAt    int64           `gorm:"not null"`
}

func (OrderModel) TableName() string {
	return "exchange_orders"
}

// TradeModel 成交记录持久化模型，只追加
type TradeModel struct {
	gorm.Model
	TradeID          string          `gorm:"type:varchar(64);uniqueIndex;not null"`
	Symbol           string          `gorm:"type:varchar(32);index;not null"`
	TakerOrderID     string          `gorm:"type:varchar(64);index;not null"`
	MakerOrderID     string          `gorm:"type:varchar(64);index;not null"`
	TakerPortfolioID string          `gorm:"type:varchar(64);not null"`
	MakerPortfolioID string          `gorm:"type:varchar(64);not null"`
	TakerSide        int8            `gorm:"not null"`
	Quantity         decimal.Decimal `gorm:"type:decimal(32,16);not null"`
	Price            decimal.Decimal `gorm:"type:decimal(32,16);not null"`
	Sequence         uint64          `gorm:"not null"`
	ExecutedAt       int64           `gorm:"index;not null"`
}

func (TradeModel) TableName() string {
	return "exchange_trades"
}

func toOrderModel(o *domain.Order) *OrderModel {
	return &OrderModel{
		OrderID:     o.OrderID,
		Symbol:      o.Symbol,
		Side:        int8(o.Side),
		Price:       o.Price,
		Quantity:    o.Quantity,
		Remaining:   o.Remaining,
		PortfolioID: o.PortfolioID,
		Status:      int8(o.Status),
		Sequence:    o.Sequence,
		PlacedAt:    o.CreatedAt,
	}
}

func toDomainOrder(m *OrderModel) *domain.Order {
	return &domain.Order{
		OrderID:     m.OrderID,
		Symbol:      m.Symbol,
		Side:        domain.Side(m.Side),
		Price:       m.Price,
		Quantity:    m.Quantity,
		Remaining:   m.Remaining,
		PortfolioID: m.PortfolioID,
		Status:      domain.OrderStatus(m.Status),
		Sequence:    m.Sequence,
		CreatedAt:   m.PlacedAt,
	}
}

func toTradeModel(t *domain.Trade) *TradeModel {
	return &TradeModel{
		TradeID:          t.TradeID,
		Symbol:           t.Symbol,
		TakerOrderID:     t.TakerOrderID,
		MakerOrderID:     t.MakerOrderID,
		TakerPortfolioID: t.TakerPortfolioID,
		MakerPortfolioID: t.MakerPortfolioID,
		TakerSide:        int8(t.TakerSide),
		Quantity:         t.Quantity,
		Price:            t.Price,
		Sequence:         t.Sequence,
		ExecutedAt:       t.ExecutedAt,
	}
}

func toDomainTrade(m *TradeModel) *domain.Trade {
	return &domain.Trade{
		TradeID:          m.TradeID,
		Symbol:           m.Symbol,
		TakerOrderID:     m.TakerOrderID,
		MakerOrderID:     m.MakerOrderID,
		TakerPortfolioID: m.TakerPortfolioID,
		MakerPortfolioID: m.MakerPortfolioID,
		TakerSide:        domain.Side(m.TakerSide),
		Quantity:         m.Quantity,
		Price:            m.Price,
		Sequence:         m.Sequence,
		ExecutedAt:       m.ExecutedAt,
	}
}
