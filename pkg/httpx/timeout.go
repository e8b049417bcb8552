package httpx

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// ContextTimeout — middleware, ограничивающее обработку запроса
// дедлайном контекста; 0 отключает ограничение.
func ContextTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
