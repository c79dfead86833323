// Package http 投资组合的 HTTP 接口层
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/exchangesim/internal/portfolio/application"
	"github.com/wyfcoding/exchangesim/internal/portfolio/domain"
	"github.com/wyfcoding/exchangesim/pkg/response"
)

// PortfolioHandler 投资组合 HTTP 处理器
type PortfolioHandler struct {
	app *application.PortfolioService
}

func NewPortfolioHandler(app *application.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *PortfolioHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/portfolios")
	{
		api.POST("", h.CreatePortfolio)
		api.GET("/:portfolio_id", h.GetPortfolio)
		api.GET("/:portfolio_id/holdings/:symbol", h.GetHolding)
		api.POST("/:portfolio_id/deposit", h.Deposit)
	}
}

// CreatePortfolioRequest 开户请求
type CreatePortfolioRequest struct {
	CorporationID  string `json:"corporation_id" binding:"required"`
	Name           string `json:"name" binding:"required"`
	InitialBalance string `json:"initial_balance" binding:"required"`
}

// CreatePortfolio 开设新组合
func (h *PortfolioHandler) CreatePortfolio(c *gin.Context) {
	var req CreatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	balance, err := decimal.NewFromString(req.InitialBalance)
	if err != nil || balance.Sign() < 0 {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid initial_balance", req.InitialBalance)
		return
	}

	portfolio, err := h.app.CreatePortfolio(c.Request.Context(), req.CorporationID, req.Name, balance)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, portfolio)
}

// GetPortfolio 查询组合
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	portfolio, err := h.app.GetPortfolio(c.Request.Context(), c.Param("portfolio_id"))
	if err != nil {
		if errors.Is(err, domain.ErrPortfolioNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, "portfolio not found", err.Error())
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, portfolio)
}

// GetHolding 查询持仓
func (h *PortfolioHandler) GetHolding(c *gin.Context) {
	holding, err := h.app.GetHolding(c.Request.Context(), c.Param("portfolio_id"), c.Param("symbol"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, holding)
}

// DepositRequest 入金请求
type DepositRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// Deposit 入金
func (h *PortfolioHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid amount", req.Amount)
		return
	}

	portfolioID := c.Param("portfolio_id")
	if err := h.app.Deposit(c.Request.Context(), portfolioID, amount); err != nil {
		if errors.Is(err, domain.ErrPortfolioNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, "portfolio not found", err.Error())
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"portfolio_id": portfolioID, "deposited": amount.String()})
}
