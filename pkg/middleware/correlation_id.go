package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swiftride/dispatch/pkg/logger"
)

const correlationIDHeader = "X-Correlation-ID"

// CorrelationID propagates (or generates) a request correlation ID and
// stores it on the request context for log enrichment.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(correlationIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		ctx := logger.ContextWithCorrelationID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(correlationIDHeader, id)
		c.Next()
	}
}
