package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/wyfcoding/beats/response"
	"github.com/wyfcoding/beats/xerrors"

	"github.com/gin-gonic/gin"
)

// Recovery 结构化异常恢复中间件。
// panic 值若为 *xerrors.Error（例如区间越界），按其类型映射状态码，其余一律返回 500。
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			if err, ok := rec.(error); ok {
				if xe, ok := xerrors.FromError(err); ok {
					logger.WarnContext(c.Request.Context(), "request aborted by contract violation",
						"error", xe.Error(),
						"method", c.Request.Method,
						"path", c.Request.URL.Path,
					)
					response.Error(c, xe)
					c.Abort()
					return
				}
			}

			logger.ErrorContext(c.Request.Context(), "Panic recovered",
				"error", rec,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"query", c.Request.URL.RawQuery,
				"stack", string(debug.Stack()),
			)
			response.ErrorWithStatus(c, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
			c.Abort()
		}()
		c.Next()
	}
}
