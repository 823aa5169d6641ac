// Package middleware file: internal/transport/http/middleware/error_handler.go
package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"Jobly/internal/core/port"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// KindRateLimited 不是存储层错误，只出现在限流响应中。
const KindRateLimited = "rate_limited"

// ErrorBody 是所有错误响应的统一结构
type ErrorBody struct {
	Kind    string        `json:"kind"`
	Message string        `json:"message"`
	Status  int           `json:"status"`
	Details []FieldDetail `json:"details,omitempty"`
}

// FieldDetail 描述单个字段的校验失败
type FieldDetail struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

// WriteError 立即写出错误响应并中止后续处理
func WriteError(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": ErrorBody{Kind: kind, Message: message, Status: status}})
}

// BindError 把绑定阶段的错误归类：校验错误原样保留，其余（JSON 语法、类型不匹配）视为 BadRequest。
func BindError(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return err
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var numErr *strconv.NumError
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return port.BadRequest("无效的JSON请求体: %v", err)
	case errors.As(err, &numErr):
		return port.BadRequest("无效的参数值 '%s'", numErr.Num)
	default:
		return port.BadRequest("无效的请求: %v", err)
	}
}

// statusFor 把错误类别映射为 HTTP 状态码
func statusFor(kind port.Kind) int {
	switch kind {
	case port.KindBadRequest, port.KindData:
		return http.StatusBadRequest
	case port.KindUnauthorized:
		return http.StatusUnauthorized
	case port.KindForbidden:
		return http.StatusForbidden
	case port.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// responseStatus 返回请求最终的状态码。处理器附加了错误但响应尚未写出时，
// 按 ErrorHandlingMiddleware 将使用的映射计算。
func responseStatus(c *gin.Context) int {
	if c.Writer.Written() || len(c.Errors) == 0 {
		return c.Writer.Status()
	}
	err := c.Errors.Last().Err
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	return statusFor(port.KindOf(err))
}

// ErrorHandlingMiddleware 是一个Gin中间件，用于集中处理错误。
// 处理器通过 c.Error(err) 附加错误后直接返回，由这里统一决定状态码与响应体。
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		// 只处理最后一个错误，它通常是根本原因
		err := c.Errors.Last().Err

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			details := make([]FieldDetail, len(ve))
			for i, fe := range ve {
				details[i] = FieldDetail{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrorBody{
				Kind:    port.KindBadRequest.String(),
				Message: "请求参数验证失败",
				Status:  http.StatusBadRequest,
				Details: details,
			}})
			return
		}

		kind := port.KindOf(err)
		status := statusFor(kind)
		message := err.Error()
		if status == http.StatusInternalServerError {
			// 驱动与 SQL 细节只进日志
			slog.Error("请求处理失败", "method", c.Request.Method, "path", c.FullPath(),
				"request_id", c.GetString(RequestIDKey), "error", err)
			message = "服务器内部错误"
		} else {
			var pe *port.Error
			if errors.As(err, &pe) && pe.Message != "" {
				message = pe.Message
			}
		}

		c.JSON(status, gin.H{"error": ErrorBody{Kind: kind.String(), Message: message, Status: status}})
	}
}
