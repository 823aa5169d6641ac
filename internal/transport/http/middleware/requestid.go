// Package middleware file: internal/transport/http/middleware/requestid.go
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader 是请求 ID 的请求/响应头
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey 是请求 ID 在 gin.Context 中的键
	RequestIDKey = "request_id"
)

// RequestID 复用客户端传入的请求 ID，缺失时生成一个 UUID。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
