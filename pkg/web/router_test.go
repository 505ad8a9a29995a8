package web

import (
	"testing"

	"github.com/valyala/fasthttp"
)

func newTestContext(method, uri string) *RequestContext {
	rctx := &fasthttp.RequestCtx{}
	rctx.Request.Header.SetMethod(method)
	rctx.Request.SetRequestURI(uri)
	return NewRequestContext(rctx, "test-request-id")
}

func TestRouter_MatchPath(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{name: "exact match", pattern: "/login", path: "/login", want: true},
		{name: "exact mismatch", pattern: "/login", path: "/logout", want: false},
		{name: "parameter segment", pattern: "/update/:task_id", path: "/update/42", want: true},
		{name: "parameter at root", pattern: "/:list_id", path: "/7", want: true},
		{name: "trailing slash is significant", pattern: "/forgot_password/", path: "/forgot_password", want: false},
		{name: "segment count mismatch", pattern: "/update/:task_id", path: "/update/42/extra", want: false},
		{name: "empty parameter segment", pattern: "/dark/:page", path: "/dark/", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchPath(tt.pattern, tt.path); got != tt.want {
				t.Errorf("matchPath(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

func TestRouter_ExtractParams(t *testing.T) {
	params := make(map[string]string)
	extractParams("/reset_password/:token", "/reset_password/abc123", params)
	if params["token"] != "abc123" {
		t.Errorf("extractParams() token = %v, want abc123", params["token"])
	}
}

func TestRouter_RegistrationOrderWins(t *testing.T) {
	router := NewRouter()

	var matched string
	router.GET("/new", func(ctx *RequestContext) error {
		matched = "static"
		return nil
	})
	router.GET("/:list_id", func(ctx *RequestContext) error {
		matched = "param:" + ctx.Param("list_id")
		return nil
	})

	ctx := newTestContext("GET", "/new")
	router.Serve(ctx)
	if matched != "static" {
		t.Errorf("Serve(/new) matched %q, want the static route", matched)
	}

	ctx = newTestContext("GET", "/42")
	router.Serve(ctx)
	if matched != "param:42" {
		t.Errorf("Serve(/42) matched %q, want param:42", matched)
	}
}

func TestRouter_SlashAliasesBypassCatchAll(t *testing.T) {
	router := NewRouter()

	var matched string
	for _, pattern := range []string{"/google", "/google/", "/forgot_password", "/forgot_password/"} {
		p := pattern
		router.GET(p, func(ctx *RequestContext) error {
			matched = p
			return nil
		})
	}
	router.GET("/:list_id", func(ctx *RequestContext) error {
		matched = "catch-all"
		return nil
	})

	for _, path := range []string{"/google", "/google/", "/forgot_password", "/forgot_password/"} {
		matched = ""
		router.Serve(newTestContext("GET", path))
		if matched != path {
			t.Errorf("Serve(%s) matched %q, want the alias route", path, matched)
		}
	}
}

func TestRouter_NotFound(t *testing.T) {
	router := NewRouter()
	router.GET("/known", func(ctx *RequestContext) error { return nil })

	ctx := newTestContext("GET", "/unknown/deeper")
	router.Serve(ctx)
	if got := ctx.RequestCtx.Response.StatusCode(); got != fasthttp.StatusNotFound {
		t.Errorf("Serve() status = %d, want %d", got, fasthttp.StatusNotFound)
	}
}

func TestRouter_MethodMatters(t *testing.T) {
	router := NewRouter()
	router.POST("/login", func(ctx *RequestContext) error { return nil })

	ctx := newTestContext("GET", "/login")
	router.Serve(ctx)
	if got := ctx.RequestCtx.Response.StatusCode(); got != fasthttp.StatusNotFound {
		t.Errorf("Serve() GET on POST-only route status = %d, want %d", got, fasthttp.StatusNotFound)
	}
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	router := NewRouter()

	var order []string
	router.Use(func(next RequestHandler) RequestHandler {
		return func(ctx *RequestContext) error {
			order = append(order, "first")
			return next(ctx)
		}
	})
	router.Use(func(next RequestHandler) RequestHandler {
		return func(ctx *RequestContext) error {
			order = append(order, "second")
			return next(ctx)
		}
	})
	router.GET("/", func(ctx *RequestContext) error {
		order = append(order, "handler")
		return nil
	})

	router.Serve(newTestContext("GET", "/"))

	want := []string{"first", "second", "handler"}
	if len(order) != len(want) {
		t.Fatalf("middleware chain ran %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("middleware chain ran %v, want %v", order, want)
		}
	}
}
