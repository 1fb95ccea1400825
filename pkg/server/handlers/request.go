package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/soundprediction/multirag/pkg/types"
)

// RequestIDHeader carries a caller supplied request id.
const RequestIDHeader = "X-Request-ID"

// RequestID returns the id assigned to the request by the server middleware,
// generating one if the middleware did not run.
func RequestID(c *gin.Context) string {
	if id := types.RequestIDFromContext(c.Request.Context()); id != "" {
		return id
	}
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Request = c.Request.WithContext(types.WithRequestID(c.Request.Context(), id))
	return id
}
