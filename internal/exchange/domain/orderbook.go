package domain

import (
	"container/list"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/exchangesim/pkg/algos"
)

// bookEntry 订单在簿内的索引项，支持 O(1) 定位撤单
type bookEntry struct {
	order *Order
	level *PriceLevel
	elem  *list.Element
}

// OrderBook 单个市场的内存订单簿。
// 写入（撮合、挂单、撤单、清空）由该市场唯一的 Worker 串行执行；
// 查询（最优价、价差、深度）并发执行，读写锁保证不读到撕裂状态。
type OrderBook struct {
	symbol string

	mu sync.RWMutex

	// bids 买盘：Key 为 -Price (降序遍历)，Value 为 PriceLevel
	bids *algos.SkipList[float64, *PriceLevel]
	// asks 卖盘：Key 为 Price (升序遍历)，Value 为 PriceLevel
	asks *algos.SkipList[float64, *PriceLevel]

	// orders 订单索引：orderID -> 簿内位置
	orders map[string]*bookEntry
}

// DepthLevel 深度档位视图
type DepthLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Depth 订单簿深度快照
type Depth struct {
	Symbol string        `json:"symbol"`
	Bids   []*DepthLevel `json:"bids"`
	Asks   []*DepthLevel `json:"asks"`
}

// NewOrderBook 创建订单簿
func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   algos.NewSkipList[float64, *PriceLevel](),
		asks:   algos.NewSkipList[float64, *PriceLevel](),
		orders: make(map[string]*bookEntry),
	}
}

// Symbol 返回市场标识
func (b *OrderBook) Symbol() string {
	return b.symbol
}

// levelKey 跳表 Key：买盘取负价实现降序
func levelKey(side Side, price decimal.Decimal) float64 {
	if side == SideBid {
		return -price.InexactFloat64()
	}
	return price.InexactFloat64()
}

func (b *OrderBook) sideOf(side Side) *algos.SkipList[float64, *PriceLevel] {
	if side == SideBid {
		return b.bids
	}
	return b.asks
}

// insert 将订单挂入对应方向的档位（调用方必须持有写锁）
func (b *OrderBook) insert(o *Order) {
	book := b.sideOf(o.Side)
	key := levelKey(o.Side, o.Price)

	level, ok := book.Search(key)
	if !ok {
		level = NewPriceLevel(o.Price)
		book.Insert(key, level)
	}
	elem := level.Orders.PushBack(o)
	b.orders[o.OrderID] = &bookEntry{order: o, level: level, elem: elem}
}

// remove 摘除指定订单，档位清空时删除档位（调用方必须持有写锁）
func (b *OrderBook) remove(orderID string) (*Order, bool) {
	entry, ok := b.orders[orderID]
	if !ok {
		return nil, false
	}

	entry.level.Orders.Remove(entry.elem)
	delete(b.orders, orderID)

	if entry.level.Orders.Len() == 0 {
		b.sideOf(entry.order.Side).Delete(levelKey(entry.order.Side, entry.level.Price))
	}
	return entry.order, true
}

// bestLevel 返回某方向的最优档位（调用方必须持有锁）
func (b *OrderBook) bestLevel(side Side) *PriceLevel {
	if _, level, ok := b.sideOf(side).First(); ok {
		return level
	}
	return nil
}

// Insert 挂入一笔挂单（恢复回放等旁路场景使用）
func (b *OrderBook) Insert(o *Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.insert(o)
}

// Remove 摘除指定订单；订单不在簿内时返回 false
func (b *OrderBook) Remove(orderID string) (*Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remove(orderID)
}

// Clear 清空双边订单簿（管理操作，完全绕过撮合语义）
func (b *OrderBook) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids = algos.NewSkipList[float64, *PriceLevel]()
	b.asks = algos.NewSkipList[float64, *PriceLevel]()
	b.orders = make(map[string]*bookEntry)
}

// Drain 清空双边订单簿并返回被移除的全部挂单
func (b *OrderBook) Drain() []*Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := make([]*Order, 0, len(b.orders))
	for _, entry := range b.orders {
		removed = append(removed, entry.order)
	}
	b.bids = algos.NewSkipList[float64, *PriceLevel]()
	b.asks = algos.NewSkipList[float64, *PriceLevel]()
	b.orders = make(map[string]*bookEntry)
	return removed
}

// BestBid 最高买价队首订单的值快照；买盘为空返回 nil
func (b *OrderBook) BestBid() *Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if level := b.bestLevel(SideBid); level != nil {
		if front := level.Front(); front != nil {
			snapshot := *front
			return &snapshot
		}
	}
	return nil
}

// BestAsk 最低卖价队首订单的值快照；卖盘为空返回 nil
func (b *OrderBook) BestAsk() *Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if level := b.bestLevel(SideAsk); level != nil {
		if front := level.Front(); front != nil {
			snapshot := *front
			return &snapshot
		}
	}
	return nil
}

// Spread 买卖价差；任一侧为空返回 nil。流动性缺失是正常状态而非错误。
func (b *OrderBook) Spread() *decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bid := b.bestLevel(SideBid)
	ask := b.bestLevel(SideAsk)
	if bid == nil || ask == nil {
		return nil
	}
	spread := ask.Price.Sub(bid.Price)
	return &spread
}

// GetDepth 返回双边前 N 档聚合深度。档位不足 N 时返回全部档位。
func (b *OrderBook) GetDepth(levels int) *Depth {
	if levels < 1 {
		levels = 1
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	return &Depth{
		Symbol: b.symbol,
		Bids:   collectLevels(b.bids, levels),
		Asks:   collectLevels(b.asks, levels),
	}
}

func collectLevels(book *algos.SkipList[float64, *PriceLevel], depth int) []*DepthLevel {
	levels := make([]*DepthLevel, 0, depth)
	it := book.Iterator()
	for i := 0; i < depth; i++ {
		_, level, ok := it.Next()
		if !ok {
			break
		}
		levels = append(levels, &DepthLevel{
			Price:    level.Price,
			Quantity: level.TotalQuantity(),
		})
	}
	return levels
}

// Size 簿内订单总数
func (b *OrderBook) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

// Contains 订单是否在簿内
func (b *OrderBook) Contains(orderID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.orders[orderID]
	return ok
}
