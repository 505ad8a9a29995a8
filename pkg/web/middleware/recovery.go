package middleware

import (
	"github.com/daylistio/daylist/pkg/core"
	"github.com/daylistio/daylist/pkg/web"
)

// RecoveryConfig configures panic recovery middleware
type RecoveryConfig struct {
	// Logger is the logger to use for panic logging (default: core.NewDefaultLogger())
	Logger core.Logger
}

// DefaultRecoveryConfig returns a default recovery configuration
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		Logger: core.NewDefaultLogger(),
	}
}

// Recovery middleware recovers from panics and returns 500 error.
// A panicking handler must never take the process down or leak state
// into another request.
func Recovery(config RecoveryConfig) web.Middleware {
	logger := config.Logger
	if logger == nil {
		logger = core.NewDefaultLogger()
	}

	return func(next web.RequestHandler) web.RequestHandler {
		return func(ctx *web.RequestContext) error {
			defer func() {
				if r := recover(); r != nil {
					logger.WithFields(map[string]interface{}{
						"request_id": ctx.RequestID(),
						"method":     string(ctx.Method()),
						"path":       string(ctx.Path()),
					}).Errorf("panic recovered: %v", r)

					ctx.Error("Internal Server Error", 500)
				}
			}()

			return next(ctx)
		}
	}
}
