package web

import (
	"strings"
	"sync"

	"github.com/valyala/fasthttp"
)

// RequestHandler handles a routed request
type RequestHandler func(ctx *RequestContext) error

// Middleware wraps a RequestHandler
type Middleware func(handler RequestHandler) RequestHandler

// Router matches method+path patterns and dispatches to handlers.
// Patterns use :name segments for path parameters (e.g. "/update/:task_id").
// Routes are matched in registration order, so static paths must be
// registered before parameterized ones that would shadow them.
type Router struct {
	routes     []*route
	middleware []Middleware
	mu         sync.RWMutex
}

type route struct {
	method  string
	path    string
	handler RequestHandler
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{
		routes:     make([]*route, 0),
		middleware: make([]Middleware, 0),
	}
}

// Use appends middleware applied to every route registered afterwards
func (r *Router) Use(m Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, m)
}

func (r *Router) GET(path string, handler RequestHandler)  { r.Route("GET", path, handler) }
func (r *Router) POST(path string, handler RequestHandler) { r.Route("POST", path, handler) }

// Route registers a handler for the given method and pattern
func (r *Router) Route(method, path string, handler RequestHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}

	r.routes = append(r.routes, &route{
		method:  method,
		path:    path,
		handler: handler,
	})
}

// Serve dispatches the request to the first matching route
func (r *Router) Serve(ctx *RequestContext) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	method := string(ctx.Method())
	path := string(ctx.Path())

	for _, rt := range r.routes {
		if rt.method == method && matchPath(rt.path, path) {
			extractParams(rt.path, path, ctx.Params)

			if err := rt.handler(ctx); err != nil {
				ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
			}
			return
		}
	}

	ctx.Error("Not Found", fasthttp.StatusNotFound)
}

func matchPath(pattern, path string) bool {
	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")

	if len(patternParts) != len(pathParts) {
		return false
	}

	for i, part := range patternParts {
		if strings.HasPrefix(part, ":") {
			continue // Parameter
		}
		if part != pathParts[i] {
			return false
		}
	}

	return true
}

func extractParams(pattern, path string, params map[string]string) {
	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")

	for i, part := range patternParts {
		if strings.HasPrefix(part, ":") {
			paramName := strings.TrimPrefix(part, ":")
			if i < len(pathParts) {
				params[paramName] = pathParts[i]
			}
		}
	}
}
