package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/andesedu/cursos-api/pkg/errors"
	"github.com/andesedu/cursos-api/pkg/response"
)

// Recovery turns a handler panic into the common error envelope instead of
// an empty 500. Panics carrying an error keep their internal classification;
// anything else surfaces as an unknown failure.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		operation := c.FullPath()
		if operation == "" {
			operation = c.Request.URL.Path
		}
		logger.Error("panic recovered",
			zap.String("method", c.Request.Method),
			zap.String("path", operation),
			zap.Any("panic", recovered))
		response.Error(c, appErrors.FromRecovered(recovered, operation))
		c.Abort()
	})
}
