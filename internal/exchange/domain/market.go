package domain

import (
	"github.com/shopspring/decimal"
)

// MarketInfo 撮合核心消费的市场交易参数，由市场元数据模块提供，撮合侧只读
type MarketInfo struct {
	Symbol string `json:"symbol"`
	// 最小报价增量（tick size）
	PriceIncrement decimal.Decimal `json:"price_increment"`
	// 最小数量增量（lot size）
	QtyIncrement decimal.Decimal `json:"qty_increment"`
	// 单笔最大委托数量，零值表示不限制
	MaxQuantity decimal.Decimal `json:"max_quantity"`
	Active      bool            `json:"active"`
}

// ValidateOrder 校验订单参数是否符合市场交易规则。
// 未对齐增量的价格/数量直接拒绝，不做四舍五入修正。
func (m *MarketInfo) ValidateOrder(o *Order) error {
	if !m.Active {
		return ErrMarketInactive
	}
	if o.Quantity.Sign() <= 0 {
		return ErrInvalidQuantity
	}
	if o.Price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	if m.PriceIncrement.Sign() > 0 && !o.Price.Mod(m.PriceIncrement).IsZero() {
		return ErrPriceNotAligned
	}
	if m.QtyIncrement.Sign() > 0 && !o.Quantity.Mod(m.QtyIncrement).IsZero() {
		return ErrQuantityNotAligned
	}
	if m.MaxQuantity.Sign() > 0 && o.Quantity.GreaterThan(m.MaxQuantity) {
		return ErrQuantityTooLarge
	}
	return nil
}
