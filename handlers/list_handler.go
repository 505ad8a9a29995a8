package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/daylistio/daylist/models"
	"github.com/daylistio/daylist/pkg/core"
	"github.com/daylistio/daylist/pkg/web"
	"github.com/daylistio/daylist/pkg/web/middleware/auth"
	"github.com/daylistio/daylist/services"
	"github.com/daylistio/daylist/views"
)

// ListHandler serves the list and task pages.
type ListHandler struct {
	lists    *services.ListService
	tasks    *services.TaskService
	renderer *views.Renderer
	google   *services.GoogleService
	logger   core.Logger
}

// NewListHandler creates a ListHandler
func NewListHandler(lists *services.ListService, tasks *services.TaskService, google *services.GoogleService, renderer *views.Renderer, logger core.Logger) *ListHandler {
	return &ListHandler{
		lists:    lists,
		tasks:    tasks,
		renderer: renderer,
		google:   google,
		logger:   logger,
	}
}

// Home routes the root path: authenticated visitors land on their saved
// lists, everyone else on a fresh anonymous page.
func (h *ListHandler) Home(ctx *web.RequestContext) error {
	if auth.Current(ctx) != nil {
		return ctx.Redirect("/saved_lists")
	}
	return ctx.Redirect("/new")
}

// NewPage renders the anonymous landing page
func (h *ListHandler) NewPage(ctx *web.RequestContext) error {
	data := views.NewPageData{DefaultName: services.DefaultListName(time.Now())}
	body, err := h.renderer.Render(views.PageNew, pageFor(ctx, "New list", data))
	if err != nil {
		return err
	}
	return ctx.HTML(fasthttp.StatusOK, body)
}

// ViewList renders a single list with its tasks in insertion order
func (h *ListHandler) ViewList(ctx *web.RequestContext) error {
	listID, err := parseID(ctx.Param("list_id"))
	if err != nil {
		ctx.Error("list not found", fasthttp.StatusNotFound)
		return nil
	}

	list, err := h.lists.GetByID(ctx.Context(), listID)
	if errors.Is(err, models.ErrNotFound) {
		ctx.Error("list not found", fasthttp.StatusNotFound)
		return nil
	}
	if err != nil {
		return err
	}

	tasks, err := h.tasks.ListByList(ctx.Context(), listID)
	if err != nil {
		return err
	}

	data := views.ListPageData{
		List:          *list,
		Tasks:         tasks,
		CanSave:       list.Anonymous() && auth.Current(ctx) == nil,
		GoogleEnabled: h.google.Enabled(),
	}
	body, err := h.renderer.Render(views.PageList, pageFor(ctx, list.Name, data))
	if err != nil {
		return err
	}
	return ctx.HTML(fasthttp.StatusOK, body)
}

// AddTask appends a task to a list. An empty body is a no-op redirect
// back to the list.
func (h *ListHandler) AddTask(ctx *web.RequestContext) error {
	listID, err := parseID(ctx.FormValue("list_id"))
	if err != nil {
		ctx.Error("list not found", fasthttp.StatusNotFound)
		return nil
	}

	list, err := h.lists.GetByID(ctx.Context(), listID)
	if errors.Is(err, models.ErrNotFound) {
		ctx.Error("list not found", fasthttp.StatusNotFound)
		return nil
	}
	if err != nil {
		return err
	}
	if !canMutate(ctx, list) {
		return forbidden(ctx)
	}

	body := strings.TrimSpace(ctx.FormValue("body"))
	if body != "" {
		if _, err := h.tasks.Create(ctx.Context(), listID, body); err != nil {
			return err
		}
	}
	return ctx.Redirect(fmt.Sprintf("/%d", listID))
}

// FirstSave creates a list named for today's date, owned by the principal
// when one is present, and seeds it with the submitted task.
func (h *ListHandler) FirstSave(ctx *web.RequestContext) error {
	var ownerID *int64
	if principal := auth.Current(ctx); principal != nil {
		ownerID = &principal.UserID
	}

	list, err := h.lists.Create(ctx.Context(), services.DefaultListName(time.Now()), ownerID)
	if err != nil {
		return err
	}

	body := strings.TrimSpace(ctx.FormValue("body"))
	if body != "" {
		if _, err := h.tasks.Create(ctx.Context(), list.ID, body); err != nil {
			return err
		}
	}
	return ctx.Redirect(fmt.Sprintf("/%d", list.ID))
}

// ToggleComplete flips a task's completed state and returns to its list
func (h *ListHandler) ToggleComplete(ctx *web.RequestContext) error {
	return h.toggleTask(ctx, h.tasks.ToggleComplete)
}

// ToggleStar flips a task's starred state and returns to its list
func (h *ListHandler) ToggleStar(ctx *web.RequestContext) error {
	return h.toggleTask(ctx, h.tasks.ToggleStarred)
}

func (h *ListHandler) toggleTask(ctx *web.RequestContext, toggle func(c context.Context, taskID int64) (*models.Task, error)) error {
	taskID, err := parseID(ctx.Param("task_id"))
	if err != nil {
		ctx.Error("task not found", fasthttp.StatusNotFound)
		return nil
	}

	task, err := h.tasks.GetByID(ctx.Context(), taskID)
	if errors.Is(err, models.ErrNotFound) {
		ctx.Error("task not found", fasthttp.StatusNotFound)
		return nil
	}
	if err != nil {
		return err
	}

	list, err := h.lists.GetByID(ctx.Context(), task.ListID)
	if err != nil {
		return err
	}
	if !canMutate(ctx, list) {
		return forbidden(ctx)
	}

	if _, err := toggle(ctx.Context(), taskID); err != nil {
		return err
	}
	return ctx.Redirect(fmt.Sprintf("/%d", task.ListID))
}

// DeleteTask removes a task and returns to its list
func (h *ListHandler) DeleteTask(ctx *web.RequestContext) error {
	taskID, err := parseID(ctx.Param("task_id"))
	if err != nil {
		ctx.Error("task not found", fasthttp.StatusNotFound)
		return nil
	}

	task, err := h.tasks.GetByID(ctx.Context(), taskID)
	if errors.Is(err, models.ErrNotFound) {
		ctx.Error("task not found", fasthttp.StatusNotFound)
		return nil
	}
	if err != nil {
		return err
	}

	list, err := h.lists.GetByID(ctx.Context(), task.ListID)
	if err != nil {
		return err
	}
	if !canMutate(ctx, list) {
		return forbidden(ctx)
	}

	if _, err := h.tasks.Delete(ctx.Context(), taskID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	return ctx.Redirect(fmt.Sprintf("/%d", task.ListID))
}

// Rename changes a list's name. An empty name is a no-op.
func (h *ListHandler) Rename(ctx *web.RequestContext) error {
	listID, err := parseID(ctx.FormValue("list_id"))
	if err != nil {
		ctx.Error("list not found", fasthttp.StatusNotFound)
		return nil
	}

	list, err := h.lists.GetByID(ctx.Context(), listID)
	if errors.Is(err, models.ErrNotFound) {
		ctx.Error("list not found", fasthttp.StatusNotFound)
		return nil
	}
	if err != nil {
		return err
	}
	if !canMutate(ctx, list) {
		return forbidden(ctx)
	}

	name := strings.TrimSpace(ctx.FormValue("name"))
	if name != "" {
		if err := h.lists.Rename(ctx.Context(), listID, name); err != nil {
			return err
		}
	}
	return ctx.Redirect(fmt.Sprintf("/%d", listID))
}

// ResetList discards an anonymous list and starts over
func (h *ListHandler) ResetList(ctx *web.RequestContext) error {
	listID, err := parseID(ctx.Param("list_id"))
	if err != nil {
		return ctx.Redirect("/new")
	}

	list, err := h.lists.GetByID(ctx.Context(), listID)
	if errors.Is(err, models.ErrNotFound) {
		return ctx.Redirect("/new")
	}
	if err != nil {
		return err
	}
	if !canMutate(ctx, list) {
		return forbidden(ctx)
	}

	if err := h.lists.Delete(ctx.Context(), listID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	return ctx.Redirect("/new")
}

// DeleteList removes a saved list. Registered behind RequireAuth.
func (h *ListHandler) DeleteList(ctx *web.RequestContext) error {
	listID, err := parseID(ctx.Param("list_id"))
	if err != nil {
		ctx.Error("list not found", fasthttp.StatusNotFound)
		return nil
	}

	list, err := h.lists.GetByID(ctx.Context(), listID)
	if errors.Is(err, models.ErrNotFound) {
		ctx.Error("list not found", fasthttp.StatusNotFound)
		return nil
	}
	if err != nil {
		return err
	}
	if !canMutate(ctx, list) {
		return forbidden(ctx)
	}

	if err := h.lists.Delete(ctx.Context(), listID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	return ctx.Redirect("/saved_lists")
}

// SavedLists shows every list owned by the principal. Registered behind
// RequireAuth.
func (h *ListHandler) SavedLists(ctx *web.RequestContext) error {
	principal := auth.Current(ctx)
	if principal == nil {
		return ctx.Redirect("/login")
	}

	lists, err := h.lists.ListByOwner(ctx.Context(), principal.UserID)
	if err != nil {
		return err
	}

	body, err := h.renderer.Render(views.PageSaved, pageFor(ctx, "Saved lists", views.SavedPageData{Lists: lists}))
	if err != nil {
		return err
	}
	return ctx.HTML(fasthttp.StatusOK, body)
}

// SaveList sends an anonymous visitor into the login flow carrying the
// list id to claim afterwards.
func (h *ListHandler) SaveList(ctx *web.RequestContext) error {
	return ctx.Redirect("/login?list_id=" + url.QueryEscape(ctx.Param("list_id")))
}

// SaveListForNewUser is SaveList via the register flow
func (h *ListHandler) SaveListForNewUser(ctx *web.RequestContext) error {
	return ctx.Redirect("/register?list_id=" + url.QueryEscape(ctx.Param("list_id")))
}

// SaveListForGoogle is SaveList via the Google OIDC flow
func (h *ListHandler) SaveListForGoogle(ctx *web.RequestContext) error {
	return ctx.Redirect("/google/?list_id=" + url.QueryEscape(ctx.Param("list_id")))
}

// ToggleDark flips the session's theme cookie and returns to the page the
// visitor came from. Only same-site paths are accepted as return targets.
func (h *ListHandler) ToggleDark(ctx *web.RequestContext) error {
	ctx.ToggleDarkMode()

	target := ctx.Query("return")
	if target == "" {
		target = "/" + ctx.Param("page")
	}
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		target = "/"
	}
	return ctx.Redirect(target)
}
