package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ipxlabs/rts/internal/apperr"
)

// Response 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Pagination 分页信息结构
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// RespondError 按业务错误类型映射HTTP状态码
func RespondError(c *gin.Context, err error) {
	ErrorResponse(c, statusOf(err), err.Error())
}

func statusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindInvalidAmount, apperr.KindInvalidWindow:
		return http.StatusBadRequest
	case apperr.KindCampaignNotActive, apperr.KindInvalidState,
		apperr.KindBelowThreshold, apperr.KindInsufficientApprovals,
		apperr.KindInsufficientPoolBalance, apperr.KindStreamNotActive,
		apperr.KindNothingToClaim:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Caller 从上下文取认证后的调用者身份
func Caller(c *gin.Context) string {
	return c.GetString("caller")
}
