package application

import (
	"github.com/wyfcoding/exchangesim/internal/exchange/domain"
)

// PlaceOrderRequest 下单请求
type PlaceOrderRequest struct {
	Symbol      string `json:"symbol" binding:"required"`
	Side        string `json:"side" binding:"required"`
	Price       string `json:"price" binding:"required"`
	Quantity    string `json:"quantity" binding:"required"`
	PortfolioID string `json:"portfolio_id" binding:"required"`
}

// PlaceOrderResponse 下单响应
type PlaceOrderResponse struct {
	OrderID string       `json:"order_id"`
	Status  string       `json:"status"`
	Trades  []*TradeView `json:"trades"`
	Resting *RestingView `json:"resting,omitempty"`
}

// TradeView 成交视图
type TradeView struct {
	TradeID  string `json:"trade_id"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	Maker    string `json:"maker_order_id"`
	Taker    string `json:"taker_order_id"`
}

// RestingView 挂单视图
type RestingView struct {
	OrderID   string `json:"order_id"`
	Price     string `json:"price"`
	Remaining string `json:"remaining"`
}

// TickerView 最优报价视图
type TickerView struct {
	Symbol  string `json:"symbol"`
	BestBid string `json:"best_bid,omitempty"`
	BestAsk string `json:"best_ask,omitempty"`
	Spread  string `json:"spread,omitempty"`
}

func newPlaceOrderResponse(result *domain.MatchResult) *PlaceOrderResponse {
	resp := &PlaceOrderResponse{
		OrderID: result.Order.OrderID,
		Status:  result.Status,
		Trades:  make([]*TradeView, 0, len(result.Trades)),
	}
	for _, t := range result.Trades {
		resp.Trades = append(resp.Trades, &TradeView{
			TradeID:  t.TradeID,
			Price:    t.Price.String(),
			Quantity: t.Quantity.String(),
			Maker:    t.MakerOrderID,
			Taker:    t.TakerOrderID,
		})
	}
	resp.Resting = newRestingView(result.Resting)
	return resp
}

func newRestingView(o *domain.Order) *RestingView {
	if o == nil {
		return nil
	}
	return &RestingView{
		OrderID:   o.OrderID,
		Price:     o.Price.String(),
		Remaining: o.Remaining.String(),
	}
}

func newTickerView(symbol string, book *domain.OrderBook) *TickerView {
	view := &TickerView{Symbol: symbol}
	if bid := book.BestBid(); bid != nil {
		view.BestBid = bid.Price.String()
	}
	if ask := book.BestAsk(); ask != nil {
		view.BestAsk = ask.Price.String()
	}
	if spread := book.Spread(); spread != nil {
		view.Spread = spread.String()
	}
	return view
}
