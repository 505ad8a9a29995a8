package web

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/daylistio/daylist/pkg/core"
)

// FlashCookie is the one-shot cookie carrying a transient user message.
// It is set on redirect and cleared when the next page consumes it.
const FlashCookie = "daylist_flash"

// ThemeCookie stores the per-session display mode ("dark" or "light").
// Display state is session-scoped, never process-wide.
const ThemeCookie = "daylist_theme"

// RequestContext wraps fasthttp's RequestCtx with request-scoped state:
// path parameters, the request ID, and arbitrary data set by middleware.
type RequestContext struct {
	RequestCtx *fasthttp.RequestCtx
	Params     map[string]string

	requestID string
	data      map[string]interface{}
}

// NewRequestContext creates a context for a single request
func NewRequestContext(ctx *fasthttp.RequestCtx, requestID string) *RequestContext {
	return &RequestContext{
		RequestCtx: ctx,
		Params:     make(map[string]string),
		requestID:  requestID,
	}
}

// Set stores request-scoped data (e.g. the resolved principal)
func (c *RequestContext) Set(key string, value interface{}) {
	if c.data == nil {
		c.data = make(map[string]interface{})
	}
	c.data[key] = value
}

// Get retrieves request-scoped data, nil when absent
func (c *RequestContext) Get(key string) interface{} {
	if c.data == nil {
		return nil
	}
	return c.data[key]
}

// Method returns HTTP method
func (c *RequestContext) Method() []byte {
	return c.RequestCtx.Method()
}

// Path returns request path
func (c *RequestContext) Path() []byte {
	return c.RequestCtx.Path()
}

// FullPath returns path plus raw query string, the shape templates embed
// in theme-toggle links so the user lands back where they were.
func (c *RequestContext) FullPath() string {
	qs := c.RequestCtx.QueryArgs().String()
	if qs == "" {
		return string(c.RequestCtx.Path())
	}
	return string(c.RequestCtx.Path()) + "?" + qs
}

// Query returns query parameter value
func (c *RequestContext) Query(key string) string {
	return string(c.RequestCtx.QueryArgs().Peek(key))
}

// FormValue returns a POST form value, falling back to the query string.
// The original UI submits the same fields via GET and POST interchangeably.
func (c *RequestContext) FormValue(key string) string {
	if v := c.RequestCtx.PostArgs().Peek(key); len(v) > 0 {
		return string(v)
	}
	return c.Query(key)
}

// Param returns path parameter value
func (c *RequestContext) Param(key string) string {
	return c.Params[key]
}

// HTML writes an HTML response - fail-fast on bad status codes
func (c *RequestContext) HTML(statusCode int, body []byte) error {
	if statusCode < 100 || statusCode > 599 {
		return fmt.Errorf("invalid status code: %d", statusCode)
	}
	c.RequestCtx.SetStatusCode(statusCode)
	c.RequestCtx.SetContentType("text/html; charset=utf-8")
	c.RequestCtx.Write(body)
	return nil
}

// Text writes a plain text response
func (c *RequestContext) Text(statusCode int, text string) error {
	c.RequestCtx.SetStatusCode(statusCode)
	c.RequestCtx.SetContentType("text/plain")
	c.RequestCtx.WriteString(text)
	return nil
}

// Redirect issues a 302 redirect to location
func (c *RequestContext) Redirect(location string) error {
	c.RequestCtx.Redirect(location, fasthttp.StatusFound)
	return nil
}

// Error writes error response
func (c *RequestContext) Error(msg string, statusCode int) {
	c.RequestCtx.Error(msg, statusCode)
}

// Cookie returns the named request cookie value, "" when absent
func (c *RequestContext) Cookie(name string) string {
	return string(c.RequestCtx.Request.Header.Cookie(name))
}

// SetCookie sets an HttpOnly session-path cookie
func (c *RequestContext) SetCookie(name, value string, maxAge time.Duration) {
	ck := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(ck)
	ck.SetKey(name)
	ck.SetValue(value)
	ck.SetPath("/")
	ck.SetHTTPOnly(true)
	ck.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	if maxAge > 0 {
		ck.SetExpire(time.Now().Add(maxAge))
	}
	c.RequestCtx.Response.Header.SetCookie(ck)
}

// ClearCookie expires the named cookie
func (c *RequestContext) ClearCookie(name string) {
	ck := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(ck)
	ck.SetKey(name)
	ck.SetValue("")
	ck.SetPath("/")
	ck.SetHTTPOnly(true)
	ck.SetExpire(fasthttp.CookieExpireDelete)
	c.RequestCtx.Response.Header.SetCookie(ck)
}

// Flash sets the one-shot message shown on the next rendered page.
// The message is URL-encoded since cookie values cannot carry spaces.
func (c *RequestContext) Flash(message string) {
	c.SetCookie(FlashCookie, url.QueryEscape(message), 5*time.Minute)
}

// ConsumeFlash returns the pending flash message and clears it
func (c *RequestContext) ConsumeFlash() string {
	raw := c.Cookie(FlashCookie)
	if raw == "" {
		return ""
	}
	c.ClearCookie(FlashCookie)
	msg, err := url.QueryUnescape(raw)
	if err != nil {
		return ""
	}
	return msg
}

// DarkMode reports the session's display mode
func (c *RequestContext) DarkMode() bool {
	return c.Cookie(ThemeCookie) == "dark"
}

// ToggleDarkMode flips the session's display mode
func (c *RequestContext) ToggleDarkMode() {
	if c.DarkMode() {
		c.SetCookie(ThemeCookie, "light", 365*24*time.Hour)
	} else {
		c.SetCookie(ThemeCookie, "dark", 365*24*time.Hour)
	}
}

// RequestID returns the request ID for this request
func (c *RequestContext) RequestID() string {
	return c.requestID
}

// Context returns a context carrying the request ID
func (c *RequestContext) Context() context.Context {
	ctx := context.Background()
	if c.requestID != "" {
		ctx = core.WithRequestID(ctx, c.requestID)
	}
	return ctx
}
