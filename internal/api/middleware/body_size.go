package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"label-checker/internal/pkg/common"
)

// BodySizeLimit rejects declared lengths over maxSize and caps bodies of
// unknown length while they are read.
func BodySizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			common.LogWarn("request body too large",
				zap.Int64("content_length", c.Request.ContentLength),
				zap.Int64("max_size", maxSize),
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			abort(c, common.ErrPayloadTooLarge)
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// abort stops the chain with the standard error body.
func abort(c *gin.Context, err *common.CustomError) {
	c.AbortWithStatusJSON(err.Status, common.ErrorResponse{
		Success: false,
		Code:    err.Code,
		Error:   err.Message,
	})
}
