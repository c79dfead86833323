// Package http 提供交易所模块的 HTTP 接口层
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/exchangesim/internal/exchange/application"
	"github.com/wyfcoding/exchangesim/internal/exchange/domain"
	"github.com/wyfcoding/exchangesim/pkg/response"
)

// ExchangeHandler 交易所 HTTP 处理器
type ExchangeHandler struct {
	manager *application.ExchangeManager
	query   *application.ExchangeQueryService
}

// NewExchangeHandler 创建 HTTP 处理器实例
func NewExchangeHandler(manager *application.ExchangeManager, query *application.ExchangeQueryService) *ExchangeHandler {
	return &ExchangeHandler{manager: manager, query: query}
}

// RegisterRoutes 将处理器方法绑定到 Gin 路由引擎
func (h *ExchangeHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/exchange")
	{
		api.POST("/orders", h.PlaceOrder)
		api.DELETE("/orders/:symbol/:order_id", h.CancelOrder)
		api.GET("/orderbook/:symbol", h.GetOrderBook)
		api.GET("/ticker/:symbol", h.GetTicker)
		api.GET("/trades/:symbol", h.GetRecentTrades)
		api.GET("/markets", h.ListMarkets)

		admin := api.Group("/admin")
		{
			admin.POST("/orderbook/:symbol/clear", h.ClearOrderBook)
		}
	}
}

// PlaceOrder 提交限价单
func (h *ExchangeHandler) PlaceOrder(c *gin.Context) {
	var req application.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.manager.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		var settleErr *domain.SettlementError
		if errors.As(err, &settleErr) {
			// 撮合已发生但结算部分失败：返回 207 并同时携带结果与错误明细
			c.JSON(http.StatusMultiStatus, gin.H{
				"result":             result,
				"error":              "settlement partially failed",
				"committed_trades":   settleErr.Committed,
				"failed_trade":       settleErr.Failed,
				"unprocessed_trades": settleErr.Unprocessed,
			})
			return
		}
		h.renderError(c, err)
		return
	}
	response.Success(c, result)
}

// CancelOrder 撤销挂单
func (h *ExchangeHandler) CancelOrder(c *gin.Context) {
	symbol := c.Param("symbol")
	orderID := c.Param("order_id")

	cancelled, err := h.manager.CancelOrder(c.Request.Context(), symbol, orderID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, gin.H{"order_id": orderID, "cancelled": cancelled})
}

// GetOrderBook 查询聚合深度快照
func (h *ExchangeHandler) GetOrderBook(c *gin.Context) {
	symbol := c.Param("symbol")
	levels, _ := strconv.Atoi(c.DefaultQuery("levels", "10"))

	depth, err := h.query.GetDepth(c.Request.Context(), symbol, levels)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, depth)
}

// GetTicker 查询盘口行情
func (h *ExchangeHandler) GetTicker(c *gin.Context) {
	ticker, err := h.query.GetTicker(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, ticker)
}

// GetRecentTrades 查询最近成交
func (h *ExchangeHandler) GetRecentTrades(c *gin.Context) {
	symbol := c.Param("symbol")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	trades, err := h.query.GetRecentTrades(c.Request.Context(), symbol, limit)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, trades)
}

// ListMarkets 列出全部市场
func (h *ExchangeHandler) ListMarkets(c *gin.Context) {
	symbols, err := h.query.GetMarketIDs(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, gin.H{"markets": symbols})
}

// ClearOrderBook 管理接口：清空指定市场的订单簿
func (h *ExchangeHandler) ClearOrderBook(c *gin.Context) {
	symbol := c.Param("symbol")
	if err := h.manager.ClearOrderBook(c.Request.Context(), symbol); err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, gin.H{"symbol": symbol, "cleared": true})
}

// renderError 将领域错误映射为 HTTP 状态码
func (h *ExchangeHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrMarketNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "market not found", err.Error())
	case errors.Is(err, domain.ErrMarketInactive),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrPriceNotAligned),
		errors.Is(err, domain.ErrQuantityNotAligned),
		errors.Is(err, domain.ErrQuantityTooLarge):
		response.ErrorWithStatus(c, http.StatusBadRequest, "order rejected", err.Error())
	case errors.Is(err, domain.ErrEngineBusy),
		errors.Is(err, domain.ErrEngineHalted),
		errors.Is(err, domain.ErrEngineStopped):
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, "market unavailable", err.Error())
	default:
		response.Error(c, err)
	}
}
