package domain

import (
	"context"
)

// 事件主题
const (
	TopicTradeExecuted = "exchange.trade.executed"
	TopicBookChanged   = "exchange.orderbook.changed"
)

// TradeExecutedEvent 成交事件载荷
type TradeExecutedEvent struct {
	TradeID          string `json:"trade_id"`
	Symbol           string `json:"symbol"`
	TakerOrderID     string `json:"taker_order_id"`
	MakerOrderID     string `json:"maker_order_id"`
	TakerPortfolioID string `json:"taker_portfolio_id"`
	MakerPortfolioID string `json:"maker_portfolio_id"`
	TakerSide        string `json:"taker_side"`
	Quantity         string `json:"quantity"`
	Price            string `json:"price"`
	Sequence         uint64 `json:"sequence"`
	ExecutedAt       int64  `json:"executed_at"`
}

// NewTradeExecutedEvent 由成交记录构建事件载荷
func NewTradeExecutedEvent(t *Trade) *TradeExecutedEvent {
	return &TradeExecutedEvent{
		TradeID:          t.TradeID,
		Symbol:           t.Symbol,
		TakerOrderID:     t.TakerOrderID,
		MakerOrderID:     t.MakerOrderID,
		TakerPortfolioID: t.TakerPortfolioID,
		MakerPortfolioID: t.MakerPortfolioID,
		TakerSide:        t.TakerSide.String(),
		Quantity:         t.Quantity.String(),
		Price:            t.Price.String(),
		Sequence:         t.Sequence,
		ExecutedAt:       t.ExecutedAt,
	}
}

// BookChangedEvent 订单簿变更事件载荷
type BookChangedEvent struct {
	Symbol string `json:"symbol"`
	// Reason: matched / rested / cancelled / cleared
	Reason    string `json:"reason"`
	ChangedAt int64  `json:"changed_at"`
}

// EventPublisher 事件广播接口。尽力而为：事件丢失不得影响撮合正确性，
// 实现方应记录失败而非向上传播。
type EventPublisher interface {
	PublishTradeExecuted(ctx context.Context, event *TradeExecutedEvent) error
	PublishBookChanged(ctx context.Context, event *BookChangedEvent) error
}
