package domain

import (
	"context"
)

// OrderRepository 订单仓储接口
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	Get(ctx context.Context, orderID string) (*Order, error)
	// FindOpenBySymbol 返回指定市场所有未终结的挂单，按 Sequence 升序。
	// 用于重启时重建内存订单簿。
	FindOpenBySymbol(ctx context.Context, symbol string) ([]*Order, error)
}

// TradeRepository 成交记录仓储接口。成交记录只追加，不修改。
type TradeRepository interface {
	Save(ctx context.Context, trade *Trade) error
	GetLatestTrades(ctx context.Context, symbol string, limit int) ([]*Trade, error)
}

// UnitOfWork 将多个仓储写操作纳入同一事务，事务句柄通过 ctx 传递
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// SettlementCoordinator 结算协调器接口。
// 对单笔成交的余额与持仓变动必须原子生效（全部应用或全部不应用），
// 且按 trade_id 幂等：已结算的成交重复提交时直接返回成功。
type SettlementCoordinator interface {
	ApplyTradeEffects(ctx context.Context, trade *Trade) error
}
