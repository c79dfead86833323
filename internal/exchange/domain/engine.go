// Package domain 撮合引擎的领域模型
package domain

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchResult 单笔订单的撮合结果。
// 所有 Order 字段均为撮合完成时刻的值快照：簿内订单会被后续撮合
// 继续修改，结果离开 Worker 后必须与订单簿完全解耦。
type MatchResult struct {
	// Order 本次进场的订单（taker 视角）
	Order *Order `json:"order"`
	// Trades 本次撮合产生的成交列表，按发生顺序排列
	Trades []*Trade `json:"trades"`
	// Makers 本次撮合中被动成交的挂单（吃单后的状态快照），用于持久化更新
	Makers []*Order `json:"-"`
	// Resting 撮合后仍有剩余并挂入订单簿的订单快照；完全成交时为 nil
	Resting *Order `json:"resting,omitempty"`
	// Status FILLED / PARTIALLY_FILLED / RESTING
	Status string `json:"status"`
}

// MatchSink 在市场 Worker 内同步消费撮合副作用：持久化、结算、事件发布。
// OnMatch 返回前，该市场不会撮合下一笔订单（顺序性保证）。
type MatchSink interface {
	// OnMatch 处理一次撮合的成交批次与挂单变更
	OnMatch(ctx context.Context, result *MatchResult) error
	// OnCancel 处理一笔挂单的撤销
	OnCancel(ctx context.Context, order *Order) error
	// OnClear 处理管理性清簿，orders 为被移除的全部挂单
	OnClear(ctx context.Context, symbol string, orders []*Order) error
}

// NopSink 空实现，用于无副作用场景（测试、回放）
type NopSink struct{}

func (NopSink) OnMatch(context.Context, *MatchResult) error     { return nil }
func (NopSink) OnCancel(context.Context, *Order) error          { return nil }
func (NopSink) OnClear(context.Context, string, []*Order) error { return nil }

type taskKind int8

const (
	taskPlace taskKind = iota + 1
	taskCancel
	taskClear
)

type taskResult struct {
	match     *MatchResult
	cancelled bool
	err       error
}

// engineTask 定序队列中的任务单元
type engineTask struct {
	kind    taskKind
	ctx     context.Context
	order   *Order
	orderID string
	result  chan taskResult
}

// MatchingEngine 单市场撮合引擎。
// 写入操作（下单、撤单、清簿）经由容量受限的任务队列交给唯一的
// Worker 串行处理，保证价格-时间优先的确定性；查询直接走订单簿读锁。
type MatchingEngine struct {
	book   *OrderBook
	market atomic.Pointer[MarketInfo]
	sink   MatchSink
	logger *slog.Logger

	// seq 市场内单调序号，订单挂入与成交共用一个取号器
	seq atomic.Uint64

	tasks chan *engineTask
	stop  chan struct{}
	done  chan struct{}

	stopMu  sync.RWMutex
	stopped bool
	halted  atomic.Bool
}

// NewMatchingEngine 创建撮合引擎；capacity 为任务队列容量
func NewMatchingEngine(market *MarketInfo, capacity int, sink MatchSink, logger *slog.Logger) *MatchingEngine {
	if sink == nil {
		sink = NopSink{}
	}
	e := &MatchingEngine{
		book:   NewOrderBook(market.Symbol),
		sink:   sink,
		logger: logger.With("module", "matching_engine", "symbol", market.Symbol),
		tasks:  make(chan *engineTask, capacity),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	e.market.Store(market)
	return e
}

// Start 启动撮合 Worker
func (e *MatchingEngine) Start() {
	go e.run()
}

// Shutdown 停止撮合 Worker，等待其退出并回应队列中剩余的任务。
// 只可在 Start 之后调用一次。
func (e *MatchingEngine) Shutdown() {
	e.stopMu.Lock()
	e.stopped = true
	e.stopMu.Unlock()

	close(e.stop)
	<-e.done
}

// Halt 熔断引擎：内存状态与持久层出现分歧时拒绝一切后续写入
func (e *MatchingEngine) Halt() {
	e.halted.Store(true)
	e.logger.Error("matching engine halted")
}

// Halted 引擎是否已熔断
func (e *MatchingEngine) Halted() bool {
	return e.halted.Load()
}

// Book 返回订单簿（并发查询安全）
func (e *MatchingEngine) Book() *OrderBook {
	return e.book
}

// Market 当前市场交易参数
func (e *MatchingEngine) Market() *MarketInfo {
	return e.market.Load()
}

// UpdateMarket 更新市场交易参数（管理操作）
func (e *MatchingEngine) UpdateMarket(m *MarketInfo) {
	e.market.Store(m)
}

// Replay 恢复回放：将持久层中的挂单直接插回订单簿，不经过撮合。
// 仅允许在 Start 之前调用。
func (e *MatchingEngine) Replay(o *Order) {
	for {
		cur := e.seq.Load()
		if o.Sequence <= cur || e.seq.CompareAndSwap(cur, o.Sequence) {
			break
		}
	}
	e.book.Insert(o)
}

func (e *MatchingEngine) run() {
	defer close(e.done)
	for {
		select {
		case <-e.stop:
			e.drainTasks()
			return
		case task := <-e.tasks:
			task.result <- e.process(task)
		}
	}
}

// drainTasks 停机时回应仍在队列中的任务，提交方不会永久阻塞
func (e *MatchingEngine) drainTasks() {
	for {
		select {
		case task := <-e.tasks:
			task.result <- taskResult{err: ErrEngineStopped}
		default:
			return
		}
	}
}

func (e *MatchingEngine) process(task *engineTask) taskResult {
	switch task.kind {
	case taskPlace:
		res, err := e.applyOrder(task.ctx, task.order)
		return taskResult{match: res, err: err}
	case taskCancel:
		ok, err := e.applyCancel(task.ctx, task.orderID)
		return taskResult{cancelled: ok, err: err}
	case taskClear:
		return taskResult{err: e.applyClear(task.ctx)}
	default:
		return taskResult{}
	}
}

func (e *MatchingEngine) submit(task *engineTask) (taskResult, error) {
	if e.halted.Load() {
		return taskResult{}, ErrEngineHalted
	}

	task.result = make(chan taskResult, 1)
	if err := e.enqueue(task); err != nil {
		return taskResult{}, err
	}
	return <-task.result, nil
}

// enqueue 在停机门内入队：Shutdown 先置位停机标记并等待进行中的
// 入队完成，再关闭 stop，因此已入队任务必然会被 Worker 处理或排空回应
func (e *MatchingEngine) enqueue(task *engineTask) error {
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		return ErrEngineStopped
	}
	select {
	case e.tasks <- task:
		return nil
	default:
		return ErrEngineBusy
	}
}

// SubmitOrder 提交订单，阻塞直至撮合与结算完成。
// 返回的 error 可能是校验拒绝（无副作用），也可能是 *SettlementError
// （撮合已发生且不可回滚，需外部对账）。
func (e *MatchingEngine) SubmitOrder(ctx context.Context, o *Order) (*MatchResult, error) {
	res, err := e.submit(&engineTask{kind: taskPlace, ctx: ctx, order: o})
	if err != nil {
		return nil, err
	}
	return res.match, res.err
}

// CancelOrder 撤销挂单。未知或已成交的订单返回 false，幂等无副作用。
func (e *MatchingEngine) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	res, err := e.submit(&engineTask{kind: taskCancel, ctx: ctx, orderID: orderID})
	if err != nil {
		return false, err
	}
	return res.cancelled, res.err
}

// Clear 管理性清空双边订单簿，绕过撮合语义
func (e *MatchingEngine) Clear(ctx context.Context) error {
	res, err := e.submit(&engineTask{kind: taskClear, ctx: ctx})
	if err != nil {
		return err
	}
	return res.err
}

// applyOrder 核心撮合逻辑：校验、逐档吃单、剩余量挂簿，随后同步交给 Sink。
// 整个撮合过程持有订单簿写锁，保证查询不会观察到中间状态。
func (e *MatchingEngine) applyOrder(ctx context.Context, o *Order) (*MatchResult, error) {
	if err := e.Market().ValidateOrder(o); err != nil {
		return nil, err
	}

	e.book.mu.Lock()
	result := e.matchLocked(o)
	e.book.mu.Unlock()

	e.logger.Info("order processed",
		"order_id", o.OrderID,
		"status", result.Status,
		"trades_count", len(result.Trades),
		"remaining_qty", o.Remaining.String(),
	)

	if err := e.sink.OnMatch(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

// matchLocked 在持锁状态下执行价格-时间优先撮合
func (e *MatchingEngine) matchLocked(o *Order) *MatchResult {
	result := &MatchResult{}
	opposite := o.Side.Opposite()

	for o.Remaining.Sign() > 0 {
		level := e.book.bestLevel(opposite)
		if level == nil || !crosses(o, level.Price) {
			break
		}

		// 同价位严格按到达顺序成交，部分成交的挂单保留队首位置
		for o.Remaining.Sign() > 0 {
			maker := level.Front()
			if maker == nil {
				break
			}

			qty := decimal.Min(o.Remaining, maker.Remaining)
			result.Trades = append(result.Trades, e.newTrade(o, maker, qty))

			o.Fill(qty)
			maker.Fill(qty)

			// 结果只携带值快照：部分成交的挂单仍留在簿内，
			// 会被后续撮合继续修改，活指针不能离开 Worker
			snapshot := *maker
			result.Makers = append(result.Makers, &snapshot)

			if maker.IsFilled() {
				e.book.remove(maker.OrderID)
			}
		}
	}

	if o.Remaining.Sign() > 0 {
		// 剩余量作为新挂单重新取号，到达序号以挂入时刻为准
		o.Sequence = e.seq.Add(1)
		e.book.insert(o)
	}

	taker := *o
	result.Order = &taker
	if o.Remaining.Sign() > 0 {
		result.Resting = &taker
	}

	switch {
	case o.IsFilled():
		result.Status = "FILLED"
	case len(result.Trades) > 0:
		result.Status = "PARTIALLY_FILLED"
	default:
		result.Status = "RESTING"
	}
	return result
}

// crosses 判断进场订单与对手档位是否可成交
func crosses(o *Order, oppositePrice decimal.Decimal) bool {
	if o.Side == SideBid {
		return o.Price.GreaterThanOrEqual(oppositePrice)
	}
	return o.Price.LessThanOrEqual(oppositePrice)
}

// newTrade 以 maker 的挂单价生成成交记录：被动方永远不会劣于其报价成交
func (e *MatchingEngine) newTrade(taker, maker *Order, qty decimal.Decimal) *Trade {
	return &Trade{
		TradeID:          uuid.NewString(),
		Symbol:           e.book.symbol,
		TakerOrderID:     taker.OrderID,
		MakerOrderID:     maker.OrderID,
		TakerPortfolioID: taker.PortfolioID,
		MakerPortfolioID: maker.PortfolioID,
		TakerSide:        taker.Side,
		Quantity:         qty,
		Price:            maker.Price,
		Sequence:         e.seq.Add(1),
		ExecutedAt:       time.Now().UnixNano(),
	}
}

func (e *MatchingEngine) applyCancel(ctx context.Context, orderID string) (bool, error) {
	order, ok := e.book.Remove(orderID)
	if !ok {
		return false, nil
	}
	order.Status = StatusCancelled

	if err := e.sink.OnCancel(ctx, order); err != nil {
		return true, err
	}
	return true, nil
}

func (e *MatchingEngine) applyClear(ctx context.Context) error {
	removed := e.book.Drain()
	for _, o := range removed {
		o.Status = StatusCancelled
	}

	e.logger.Warn("order book cleared", "removed_orders", len(removed))
	return e.sink.OnClear(ctx, e.book.symbol, removed)
}
