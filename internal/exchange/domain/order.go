package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side 订单方向
type Side int8

const (
	SideBid Side = 1
	SideAsk Side = 2
)

func (s Side) String() string {
	switch s {
	case SideBid:
		return "BID"
	case SideAsk:
		return "ASK"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

// ParseSide 解析订单方向字符串
func ParseSide(s string) (Side, bool) {
	switch s {
	case "BID", "bid", "BUY", "buy":
		return SideBid, true
	case "ASK", "ask", "SELL", "sell":
		return SideAsk, true
	default:
		return 0, false
	}
}

// OrderStatus 订单状态
type OrderStatus int8

const (
	StatusOpen            OrderStatus = 1 // 完全未成交，挂单中
	StatusPartiallyFilled OrderStatus = 2 // 部分成交，剩余挂单中
	StatusFilled          OrderStatus = 3 // 完全成交
	StatusCancelled       OrderStatus = 4 // 已撤单
)

func (s OrderStatus) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case StatusFilled:
		return "FILLED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Order represents a limit order inside the matching core.
// 持久化映射在基础设施层完成
type Order struct {
	OrderID     string          `json:"order_id"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Remaining   decimal.Decimal `json:"remaining"`
	PortfolioID string          `json:"portfolio_id"`
	Status      OrderStatus     `json:"status"`

	// Sequence 是进入订单簿时的单调序号，用于同价位的时间优先排序。
	// 部分成交后的剩余量重新挂入时会重新取号。
	Sequence  uint64 `json:"sequence"`
	CreatedAt int64  `json:"created_at"`
}

// NewOrder 创建一笔新订单，Remaining 初始化为委托数量
func NewOrder(orderID, symbol string, side Side, price, quantity decimal.Decimal, portfolioID string) *Order {
	return &Order{
		OrderID:     orderID,
		Symbol:      symbol,
		Side:        side,
		Price:       price,
		Quantity:    quantity,
		Remaining:   quantity,
		PortfolioID: portfolioID,
		Status:      StatusOpen,
		CreatedAt:   time.Now().UnixNano(),
	}
}

// IsFilled 是否已完全成交
func (o *Order) IsFilled() bool {
	return o.Remaining.IsZero()
}

// Fill 扣减剩余数量并推进状态
func (o *Order) Fill(qty decimal.Decimal) {
	o.Remaining = o.Remaining.Sub(qty)
	if o.Remaining.IsZero() {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
}

// Trade represents a single match event. Immutable once created.
// Price is always the maker's resting price.
type Trade struct {
	TradeID          string          `json:"trade_id"`
	Symbol           string          `json:"symbol"`
	TakerOrderID     string          `json:"taker_order_id"`
	MakerOrderID     string          `json:"maker_order_id"`
	TakerPortfolioID string          `json:"taker_portfolio_id"`
	MakerPortfolioID string          `json:"maker_portfolio_id"`
	TakerSide        Side            `json:"taker_side"`
	Quantity         decimal.Decimal `json:"quantity"`
	Price            decimal.Decimal `json:"price"`
	Sequence         uint64          `json:"sequence"`
	ExecutedAt       int64           `json:"executed_at"`
}

// BuyerPortfolioID 返回现金流出方（买入方）的组合 ID
func (t *Trade) BuyerPortfolioID() string {
	if t.TakerSide == SideBid {
		return t.TakerPortfolioID
	}
	return t.MakerPortfolioID
}

// SellerPortfolioID 返回持仓流出方（卖出方）的组合 ID
func (t *Trade) SellerPortfolioID() string {
	if t.TakerSide == SideAsk {
		return t.TakerPortfolioID
	}
	return t.MakerPortfolioID
}

// Amount 返回成交金额 (quantity * price)
func (t *Trade) Amount() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}
