package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/confcenter/pkg/errors"
	"github.com/kart-io/confcenter/pkg/response"
)

// Recovery converts panics into a JSON 500 response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("panic recovered",
					"panic", r,
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)
				response.Abort(c, errors.ErrInternal)
			}
		}()
		c.Next()
	}
}
