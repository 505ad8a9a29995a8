package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/valyala/fasthttp"

	"github.com/daylistio/daylist/pkg/core"
	dbpkg "github.com/daylistio/daylist/pkg/db"
	"github.com/daylistio/daylist/pkg/web"
	"github.com/daylistio/daylist/pkg/web/middleware/auth"
	"github.com/daylistio/daylist/services"
	"github.com/daylistio/daylist/views"
)

type testEnv struct {
	db       *sql.DB
	users    *services.UserService
	lists    *services.ListService
	tasks    *services.TaskService
	tokens   *services.Tokens
	sessions *auth.Sessions
	renderer *views.Renderer

	listHandler *ListHandler
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := dbpkg.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	renderer, err := views.New()
	if err != nil {
		t.Fatalf("Failed to parse templates: %v", err)
	}

	logger := core.NewDefaultLogger()
	env := &testEnv{
		db:       db,
		users:    services.NewUserService(db),
		lists:    services.NewListService(db),
		tasks:    services.NewTaskService(db),
		tokens:   services.NewTokens("test-secret"),
		sessions: auth.NewSessions(auth.DefaultSessionConfig("test-secret")),
		renderer: renderer,
	}
	env.listHandler = NewListHandler(env.lists, env.tasks, services.NewGoogleService(services.GoogleConfig{}), renderer, logger)
	return env
}

func newTestContext(method, uri string) *web.RequestContext {
	rctx := &fasthttp.RequestCtx{}
	rctx.Request.Header.SetMethod(method)
	rctx.Request.SetRequestURI(uri)
	return web.NewRequestContext(rctx, "test-request-id")
}

func newFormContext(uri string, form string) *web.RequestContext {
	ctx := newTestContext("POST", uri)
	ctx.RequestCtx.Request.Header.SetContentType("application/x-www-form-urlencoded")
	ctx.RequestCtx.Request.SetBodyString(form)
	return ctx
}

func asUser(ctx *web.RequestContext, userID int64, email string) *web.RequestContext {
	ctx.Set(auth.PrincipalKey, &auth.Principal{UserID: userID, Email: email})
	return ctx
}

func responseStatus(ctx *web.RequestContext) int {
	return ctx.RequestCtx.Response.StatusCode()
}

func responseLocation(ctx *web.RequestContext) string {
	return string(ctx.RequestCtx.Response.Header.Peek("Location"))
}

func TestListHandler_ViewListNotFound(t *testing.T) {
	env := setupEnv(t)

	ctx := newTestContext("GET", "/9999")
	ctx.Params["list_id"] = "9999"
	if err := env.listHandler.ViewList(ctx); err != nil {
		t.Fatalf("ViewList() error = %v", err)
	}
	if responseStatus(ctx) != fasthttp.StatusNotFound {
		t.Errorf("ViewList() status = %d, want %d", responseStatus(ctx), fasthttp.StatusNotFound)
	}
}

func TestListHandler_ViewListRendersTasks(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	list, err := env.lists.Create(ctx, "Groceries", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := env.tasks.Create(ctx, list.ID, "buy milk"); err != nil {
		t.Fatalf("Create() task error = %v", err)
	}

	rctx := newTestContext("GET", fmt.Sprintf("/%d", list.ID))
	rctx.Params["list_id"] = fmt.Sprintf("%d", list.ID)
	if err := env.listHandler.ViewList(rctx); err != nil {
		t.Fatalf("ViewList() error = %v", err)
	}
	if responseStatus(rctx) != fasthttp.StatusOK {
		t.Fatalf("ViewList() status = %d, want %d", responseStatus(rctx), fasthttp.StatusOK)
	}

	body := string(rctx.RequestCtx.Response.Body())
	for _, want := range []string{"Groceries", "buy milk", "/save_list/"} {
		if !strings.Contains(body, want) {
			t.Errorf("ViewList() body missing %q", want)
		}
	}
}

func TestListHandler_AddTaskEmptyBodyIsNoOp(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	list, err := env.lists.Create(ctx, "Groceries", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rctx := newFormContext("/add", fmt.Sprintf("list_id=%d&body=", list.ID))
	if err := env.listHandler.AddTask(rctx); err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if got, want := responseLocation(rctx), fmt.Sprintf("/%d", list.ID); got != want {
		t.Errorf("AddTask() Location = %q, want %q", got, want)
	}

	tasks, err := env.tasks.ListByList(ctx, list.ID)
	if err != nil {
		t.Fatalf("ListByList() error = %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("AddTask() empty body created %d tasks, want 0", len(tasks))
	}
}

func TestListHandler_AddTaskForbiddenForNonOwner(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	owner, err := env.users.Register(ctx, "owner@example.com", "Owner", "hunter22")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	list, err := env.lists.Create(ctx, "Private", &owner.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Anonymous visitor
	rctx := newFormContext("/add", fmt.Sprintf("list_id=%d&body=intruding", list.ID))
	if err := env.listHandler.AddTask(rctx); err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if responseStatus(rctx) != fasthttp.StatusForbidden {
		t.Errorf("AddTask() anonymous on owned list status = %d, want %d", responseStatus(rctx), fasthttp.StatusForbidden)
	}

	// A different authenticated user
	other, err := env.users.Register(ctx, "other@example.com", "Other", "hunter22")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	rctx = asUser(newFormContext("/add", fmt.Sprintf("list_id=%d&body=intruding", list.ID)), other.ID, other.Email)
	if err := env.listHandler.AddTask(rctx); err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if responseStatus(rctx) != fasthttp.StatusForbidden {
		t.Errorf("AddTask() non-owner status = %d, want %d", responseStatus(rctx), fasthttp.StatusForbidden)
	}

	tasks, err := env.tasks.ListByList(ctx, list.ID)
	if err != nil {
		t.Fatalf("ListByList() error = %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("AddTask() forbidden requests created %d tasks, want 0", len(tasks))
	}
}

func TestListHandler_RenameForbiddenLeavesRowUnchanged(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	owner, err := env.users.Register(ctx, "owner@example.com", "Owner", "hunter22")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	list, err := env.lists.Create(ctx, "Original", &owner.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rctx := newFormContext("/change_list_name/", fmt.Sprintf("list_id=%d&name=Hijacked", list.ID))
	if err := env.listHandler.Rename(rctx); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if responseStatus(rctx) != fasthttp.StatusForbidden {
		t.Errorf("Rename() status = %d, want %d", responseStatus(rctx), fasthttp.StatusForbidden)
	}

	got, err := env.lists.GetByID(ctx, list.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Original" {
		t.Errorf("Rename() forbidden request changed name to %q", got.Name)
	}
}

func TestListHandler_FirstSaveSeedsListWithTask(t *testing.T) {
	env := setupEnv(t)

	rctx := newFormContext("/first_save", "body=buy+milk")
	if err := env.listHandler.FirstSave(rctx); err != nil {
		t.Fatalf("FirstSave() error = %v", err)
	}
	if responseStatus(rctx) != fasthttp.StatusFound {
		t.Fatalf("FirstSave() status = %d, want %d", responseStatus(rctx), fasthttp.StatusFound)
	}

	lists, err := env.lists.ListByOwner(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(lists) != 0 {
		t.Error("FirstSave() anonymous list must not have an owner")
	}

	list, err := env.lists.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	tasks, err := env.tasks.ListByList(context.Background(), list.ID)
	if err != nil {
		t.Fatalf("ListByList() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].Body != "buy milk" {
		t.Errorf("FirstSave() tasks = %+v, want one 'buy milk' task", tasks)
	}
}

func TestListHandler_ToggleDarkSetsCookieAndRedirects(t *testing.T) {
	env := setupEnv(t)

	rctx := newTestContext("GET", "/dark/?return=/new")
	rctx.Params["page"] = ""
	if err := env.listHandler.ToggleDark(rctx); err != nil {
		t.Fatalf("ToggleDark() error = %v", err)
	}
	if got := responseLocation(rctx); got != "/new" {
		t.Errorf("ToggleDark() Location = %q, want /new", got)
	}

	cookie := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(cookie)
	cookie.SetKey(web.ThemeCookie)
	if !rctx.RequestCtx.Response.Header.Cookie(cookie) {
		t.Fatal("ToggleDark() did not set the theme cookie")
	}
	if string(cookie.Value()) != "dark" {
		t.Errorf("ToggleDark() theme = %q, want dark", cookie.Value())
	}
}

func TestListHandler_ToggleDarkRejectsExternalRedirect(t *testing.T) {
	env := setupEnv(t)

	rctx := newTestContext("GET", "/dark/?return=//evil.example.com")
	rctx.Params["page"] = ""
	if err := env.listHandler.ToggleDark(rctx); err != nil {
		t.Fatalf("ToggleDark() error = %v", err)
	}
	if got := responseLocation(rctx); got != "/" {
		t.Errorf("ToggleDark() Location = %q, want /", got)
	}
}

func TestListHandler_HomeRedirects(t *testing.T) {
	env := setupEnv(t)

	anon := newTestContext("GET", "/")
	if err := env.listHandler.Home(anon); err != nil {
		t.Fatalf("Home() error = %v", err)
	}
	if got := responseLocation(anon); got != "/new" {
		t.Errorf("Home() anonymous Location = %q, want /new", got)
	}

	authed := asUser(newTestContext("GET", "/"), 1, "alice@example.com")
	if err := env.listHandler.Home(authed); err != nil {
		t.Fatalf("Home() error = %v", err)
	}
	if got := responseLocation(authed); got != "/saved_lists" {
		t.Errorf("Home() authenticated Location = %q, want /saved_lists", got)
	}
}
