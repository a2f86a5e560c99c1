package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/faultdesk/incident-service-api/internal/handler/dto"
	"github.com/faultdesk/incident-service-api/internal/ierr"
	"github.com/faultdesk/incident-service-api/internal/resolve"
)

// Dispatch runs the handler, then feeds any reported failure through
// the resolver chain. Handlers report failures with c.Error and
// return; they never write error bodies themselves. A failure no
// resolver claims is rendered by the fallback, so every failing
// request still produces a well-formed JSON response. Panics are
// recovered and dispatched as internal server errors.
func Dispatch(chain *resolve.Chain, fallback *resolve.FallbackRenderer, metrics *resolve.Metrics, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("Dispatch")
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error("Panic recovered in handler",
					zap.Any("panic", recovered),
					zap.String("handler", c.HandlerName()),
					zap.Stack("stack"),
				)
				metrics.PanicRecovered()
				_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrInternalServer, recovered))
				dispatch(c, chain, fallback, metrics, log)
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		dispatch(c, chain, fallback, metrics, log)
	}
}

func dispatch(c *gin.Context, chain *resolve.Chain, fallback *resolve.FallbackRenderer, metrics *resolve.Metrics, log *zap.Logger) {
	if c.Writer.Written() {
		return
	}

	err := c.Errors.Last().Err
	log.Error("Request failed", zap.Error(err), zap.String("path", c.Request.URL.Path))

	req := resolve.Request{
		Method:  c.Request.Method,
		Path:    c.Request.URL.Path,
		Handler: c.HandlerName(),
	}

	if res, resolvedBy, ok := chain.Resolve(req, err); ok {
		metrics.Resolved(resolvedBy, res.Status)
		c.AbortWithStatusJSON(res.Status, dto.APIErrorResponse{
			Code:    res.Code,
			Message: res.Message,
			Details: res.Details,
		})
		return
	}

	metrics.Unresolved()
	body := fallback.Render(req, err, http.StatusInternalServerError)
	c.AbortWithStatusJSON(body.Status, body)
}
