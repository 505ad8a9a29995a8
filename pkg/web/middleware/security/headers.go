package security

import (
	"fmt"

	"github.com/daylistio/daylist/pkg/web"
)

// HeadersConfig configures security headers
type HeadersConfig struct {
	// HSTS (HTTP Strict Transport Security)
	HSTS           bool
	HSTSMaxAge     int // in seconds, default 31536000 (1 year)
	HSTSIncludeSub bool

	// CSP (Content Security Policy)
	CSP string

	// X-Frame-Options: DENY, SAMEORIGIN, or ALLOW-FROM uri
	XFrameOptions string

	// X-Content-Type-Options: nosniff
	XContentTypeOptions bool

	// Referrer-Policy
	ReferrerPolicy string
}

// DefaultHeadersConfig returns headers suited to a server-rendered HTML app.
// The pages carry their stylesheet in an inline <style> block, so style-src
// must permit 'unsafe-inline'.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		HSTS:                true,
		HSTSMaxAge:          31536000, // 1 year
		HSTSIncludeSub:      true,
		XContentTypeOptions: true,
		CSP:                 "default-src 'self'; style-src 'self' 'unsafe-inline'; frame-ancestors 'none'; base-uri 'self'",
		ReferrerPolicy:      "same-origin",
		XFrameOptions:       "DENY",
	}
}

// Headers middleware adds security headers to responses
func Headers(config HeadersConfig) web.Middleware {
	return func(next web.RequestHandler) web.RequestHandler {
		return func(ctx *web.RequestContext) error {
			if config.HSTS {
				hstsValue := "max-age="
				if config.HSTSMaxAge > 0 {
					hstsValue += fmt.Sprintf("%d", config.HSTSMaxAge)
				} else {
					hstsValue += "31536000"
				}
				if config.HSTSIncludeSub {
					hstsValue += "; includeSubDomains"
				}
				ctx.RequestCtx.Response.Header.Set("Strict-Transport-Security", hstsValue)
			}

			if config.CSP != "" {
				ctx.RequestCtx.Response.Header.Set("Content-Security-Policy", config.CSP)
			}

			if config.XFrameOptions != "" {
				ctx.RequestCtx.Response.Header.Set("X-Frame-Options", config.XFrameOptions)
			}

			if config.XContentTypeOptions {
				ctx.RequestCtx.Response.Header.Set("X-Content-Type-Options", "nosniff")
			}

			if config.ReferrerPolicy != "" {
				ctx.RequestCtx.Response.Header.Set("Referrer-Policy", config.ReferrerPolicy)
			}

			return next(ctx)
		}
	}
}
