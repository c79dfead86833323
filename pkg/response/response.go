// Package response 提供统一的 HTTP 响应封装
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body 统一响应结构
type Body struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Detail  string      `json:"detail,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

// Error 返回服务器内部错误响应
func Error(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, Body{
		Code:    http.StatusInternalServerError,
		Message: "internal server error",
		Detail:  err.Error(),
	})
}

// ErrorWithStatus 返回指定状态码的错误响应
func ErrorWithStatus(c *gin.Context, status int, message string, detail string) {
	c.JSON(status, Body{
		Code:    status,
		Message: message,
		Detail:  detail,
	})
}
