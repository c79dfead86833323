// Package http 市场管理的 HTTP 接口层
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/exchangesim/internal/market/application"
	"github.com/wyfcoding/exchangesim/internal/market/domain"
	"github.com/wyfcoding/exchangesim/pkg/response"
)

// MarketHandler 市场管理 HTTP 处理器
type MarketHandler struct {
	app *application.MarketService
}

func NewMarketHandler(app *application.MarketService) *MarketHandler {
	return &MarketHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *MarketHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/markets")
	{
		api.POST("", h.CreateMarket)
		api.GET("", h.ListMarkets)
		api.GET("/:symbol", h.GetMarket)
		api.PUT("/:symbol/active", h.SetActive)
	}
}

// CreateMarketRequest 创建市场请求
type CreateMarketRequest struct {
	Symbol         string `json:"symbol" binding:"required"`
	Name           string `json:"name" binding:"required"`
	PriceIncrement string `json:"price_increment" binding:"required"`
	QtyIncrement   string `json:"qty_increment" binding:"required"`
	MaxQuantity    string `json:"max_quantity"`
}

// CreateMarket 创建市场
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	var req CreateMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	priceInc, err := decimal.NewFromString(req.PriceIncrement)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid price_increment", err.Error())
		return
	}
	qtyInc, err := decimal.NewFromString(req.QtyIncrement)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid qty_increment", err.Error())
		return
	}
	maxQty := decimal.Zero
	if req.MaxQuantity != "" {
		if maxQty, err = decimal.NewFromString(req.MaxQuantity); err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid max_quantity", err.Error())
			return
		}
	}

	market, err := h.app.CreateMarket(c.Request.Context(), req.Symbol, req.Name, priceInc, qtyInc, maxQty)
	if err != nil {
		if errors.Is(err, domain.ErrMarketExists) {
			response.ErrorWithStatus(c, http.StatusConflict, "market already exists", err.Error())
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, market)
}

// GetMarket 查询单个市场
func (h *MarketHandler) GetMarket(c *gin.Context) {
	market, err := h.app.GetMarket(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		if errors.Is(err, domain.ErrMarketNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, "market not found", err.Error())
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, market)
}

// ListMarkets 列出全部市场
func (h *MarketHandler) ListMarkets(c *gin.Context) {
	markets, err := h.app.ListMarkets(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, markets)
}

// SetActiveRequest 开市/停市请求
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetActive 开市或停市
func (h *MarketHandler) SetActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.app.SetActive(c.Request.Context(), c.Param("symbol"), *req.Active); err != nil {
		if errors.Is(err, domain.ErrMarketNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, "market not found", err.Error())
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"symbol": c.Param("symbol"), "active": *req.Active})
}
