package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blocapp/billing/internal/types"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderAccountID = "X-Account-ID"
	HeaderActorID   = "X-Actor-ID"
)

// RequestIDMiddleware binds a request id and the caller identity headers
// onto the request context
func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUID()
	}
	ctx = types.SetRequestID(ctx, requestID)

	if accountID := c.GetHeader(HeaderAccountID); accountID != "" {
		ctx = types.SetAccountID(ctx, accountID)
	}
	if actorID := c.GetHeader(HeaderActorID); actorID != "" {
		ctx = types.SetActorID(ctx, actorID)
	}

	c.Request = c.Request.WithContext(ctx)
	c.Header(HeaderRequestID, requestID)
	c.Next()
}

// CORSMiddleware handles CORS headers
func CORSMiddleware(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "*")
	c.Writer.Header().Set("Access-Control-Max-Age", "86400")

	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(http.StatusOK)
		return
	}
	c.Next()
}
