// Package domain 结算的领域模型
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecordStatus 结算记录状态
type RecordStatus int8

const (
	RecordStatusSettled RecordStatus = 1 // 已交收
	RecordStatusFailed  RecordStatus = 2 // 失败，待对账
)

func (s RecordStatus) String() string {
	switch s {
	case RecordStatusSettled:
		return "SETTLED"
	case RecordStatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Record 结算记录聚合根。每笔成交至多一条记录（trade_id 唯一），
// 这是结算幂等性的依据。
type Record struct {
	gorm.Model
	TradeID           string          `gorm:"column:trade_id;type:varchar(64);uniqueIndex;not null" json:"trade_id"`
	Symbol            string          `gorm:"column:symbol;type:varchar(32);index;not null" json:"symbol"`
	BuyerPortfolioID  string          `gorm:"column:buyer_portfolio_id;type:varchar(32);index;not null" json:"buyer_portfolio_id"`
	SellerPortfolioID string          `gorm:"column:seller_portfolio_id;type:varchar(32);index;not null" json:"seller_portfolio_id"`
	Quantity          decimal.Decimal `gorm:"column:quantity;type:decimal(20,4);not null" json:"quantity"`
	Price             decimal.Decimal `gorm:"column:price;type:decimal(18,8);not null" json:"price"`
	Amount            decimal.Decimal `gorm:"column:amount;type:decimal(20,4);not null" json:"amount"`
	Status            RecordStatus    `gorm:"column:status;type:tinyint;not null" json:"status"`
	FailReason        string          `gorm:"column:fail_reason;type:varchar(512)" json:"fail_reason"`
	SettledAt         *time.Time      `gorm:"column:settled_at" json:"settled_at"`
}

// TableName 表名
func (Record) TableName() string {
	return "settlement_records"
}

// NewSettledRecord 创建一条已交收的结算记录
func NewSettledRecord(tradeID, symbol, buyerPortfolioID, sellerPortfolioID string, quantity, price decimal.Decimal) *Record {
	now := time.Now()
	return &Record{
		TradeID:           tradeID,
		Symbol:            symbol,
		BuyerPortfolioID:  buyerPortfolioID,
		SellerPortfolioID: sellerPortfolioID,
		Quantity:          quantity,
		Price:             price,
		Amount:            quantity.Mul(price),
		Status:            RecordStatusSettled,
		SettledAt:         &now,
	}
}

// IsSettled 是否已交收
func (r *Record) IsSettled() bool {
	return r.Status == RecordStatusSettled
}

// RecordRepository 结算记录仓储接口
type RecordRepository interface {
	Save(ctx context.Context, record *Record) error
	GetByTradeID(ctx context.Context, tradeID string) (*Record, error)
	// WithTx 在事务中执行 fn，事务句柄通过 ctx 传递给仓储方法
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}
