package tracing

import (
	"context"

	"github.com/gin-gonic/gin"
)

// HTTPMiddleware traces every request and propagates X-Trace-ID so the
// host UI can correlate its own logs with the service's.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if incoming := c.GetHeader("X-Trace-ID"); incoming != "" {
			ctx = context.WithValue(ctx, traceIDKey, TraceID(incoming))
		}
		if parent := c.GetHeader("X-Span-ID"); parent != "" {
			ctx = context.WithValue(ctx, spanIDKey, SpanID(parent))
		}

		span, ctx := tracer.StartSpan(ctx, c.FullPath())
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.url", c.Request.URL.String())

		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Trace-ID", string(span.TraceID))
		c.Header("X-Span-ID", string(span.SpanID))

		c.Next()

		span.SetStatus(c.Writer.Status())
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}
		span.Finish()
		tracer.Submit(span)
	}
}
