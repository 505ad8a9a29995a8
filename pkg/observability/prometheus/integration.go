package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/daylistio/daylist/pkg/web"
)

// MetricsMiddleware creates middleware that records HTTP metrics
func MetricsMiddleware() web.Middleware {
	m := GetMetrics()
	return func(next web.RequestHandler) web.RequestHandler {
		return func(ctx *web.RequestContext) error {
			start := time.Now()
			method := string(ctx.Method())
			path := string(ctx.Path())

			err := next(ctx)

			duration := time.Since(start)
			status := statusCodeString(ctx.RequestCtx.Response.StatusCode())

			m.RecordHTTPRequest(method, normalizePath(path), status, duration)

			return err
		}
	}
}

// RegisterMetricsEndpoint exposes the default registry on the given path
func RegisterMetricsEndpoint(router *web.Router, path string) {
	handler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{}),
	)
	router.GET(path, func(ctx *web.RequestContext) error {
		handler(ctx.RequestCtx)
		return nil
	})
}

// statusCodeString converts status code to a class label
func statusCodeString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// normalizePath replaces numeric path segments with a placeholder so
// per-list and per-task URLs aggregate into one series.
func normalizePath(path string) string {
	out := make([]byte, 0, len(path))
	i := 0
	for i < len(path) {
		if path[i] == '/' && i+1 < len(path) && isDigit(path[i+1]) {
			out = append(out, '/', ':', 'i', 'd')
			for i++; i < len(path) && path[i] != '/'; i++ {
			}
			continue
		}
		out = append(out, path[i])
		i++
	}
	return string(out)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
