// Package handlers holds the response helpers shared by the route handlers.
package handlers

import (
	"context"
	"errors"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"label-checker/internal/pkg/common"
)

// RespondError writes err as the standard error body. Errors that are not
// a CustomError become 500s; cause details are included in debug mode only.
func RespondError(c *gin.Context, err error) {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, common.ErrGatewayTimeout) {
		err = common.ErrGatewayTimeout.WithErr(err)
	}
	ce := common.AsCustomError(err)

	fields := []zap.Field{
		zap.String("code", ce.Code),
		zap.Int("status", ce.Status),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Get(c)),
		zap.Error(err),
	}
	if ce.Status >= 500 {
		common.LogError("request failed", fields...)
	} else {
		common.LogWarn("request rejected", fields...)
	}

	resp := common.ErrorResponse{
		Success: false,
		Code:    ce.Code,
		Error:   ce.Message,
	}
	if gin.Mode() == gin.DebugMode && ce.Err != nil {
		resp.Details = ce.Err.Error()
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(ce.Status, resp)
}

// BadRequest reports a malformed request body or parameter.
func BadRequest(c *gin.Context, err error) {
	RespondError(c, common.ErrInvalidRequest.WithErr(err))
}
