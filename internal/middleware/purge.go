package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/paragishere/Cyvance-chat/internal/service"
)

// Purger 执行一次过期房间清理
type Purger interface {
	Purge(ctx context.Context) (service.PurgeResult, error)
}

// PurgeOnAccess 返回一个 Gin 中间件，在处理每个请求前清理所有空闲房间。
// 清理失败只记录日志，请求继续处理。
func PurgeOnAccess(purger Purger) gin.HandlerFunc {
	if purger == nil {
		panic("Purger cannot be nil for PurgeOnAccess middleware")
	}
	return func(c *gin.Context) {
		if _, err := purger.Purge(c.Request.Context()); err != nil {
			logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("PurgeOnAccess: purge failed, continuing request")
		}
		c.Next()
	}
}
