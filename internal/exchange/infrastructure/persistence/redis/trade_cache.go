// Package redis 提供基于 Redis List 的最近成交缓存
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wyfcoding/exchangesim/internal/exchange/domain"
	"github.com/wyfcoding/exchangesim/pkg/cache"
)

const (
	tradeListKeyPrefix = "exchange:trades:"
	maxCachedTrades    = 200
)

// TradeCache 最近成交的 Redis 缓存。
// 每个市场一个 List，头部为最新成交，长度截断至 maxCachedTrades。
type TradeCache struct {
	cache *cache.RedisCache
}

func NewTradeCache(c *cache.RedisCache) *TradeCache {
	return &TradeCache{cache: c}
}

func tradeListKey(symbol string) string {
	return tradeListKeyPrefix + symbol
}

// PushTrades 将一次撮合产生的成交按发生顺序推入缓存
func (tc *TradeCache) PushTrades(ctx context.Context, symbol string, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	key := tradeListKey(symbol)
	values := make([]interface{}, 0, len(trades))
	for _, t := range trades {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to marshal trade %s: %w", t.TradeID, err)
		}
		values = append(values, data)
	}

	if err := tc.cache.LPush(ctx, key, values...); err != nil {
		return err
	}
	return tc.cache.LTrim(ctx, key, 0, maxCachedTrades-1)
}

// RecentTrades 返回最近 limit 笔成交，最新在前
func (tc *TradeCache) RecentTrades(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	if limit <= 0 || limit > maxCachedTrades {
		limit = maxCachedTrades
	}

	rows, err := tc.cache.LRange(ctx, tradeListKey(symbol), 0, int64(limit-1))
	if err != nil {
		return nil, err
	}

	trades := make([]*domain.Trade, 0, len(rows))
	for _, row := range rows {
		var t domain.Trade
		if err := json.Unmarshal([]byte(row), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cached trade: %w", err)
		}
		trades = append(trades, &t)
	}
	return trades, nil
}
