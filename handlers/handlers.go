// Package handlers wires HTTP requests to the service layer and renders
// the HTML pages.
package handlers

import (
	"strconv"

	"github.com/valyala/fasthttp"

	"github.com/daylistio/daylist/models"
	"github.com/daylistio/daylist/pkg/web"
	"github.com/daylistio/daylist/pkg/web/middleware/auth"
	"github.com/daylistio/daylist/views"
)

// pageFor assembles the shared template state for the current request.
// ConsumeFlash clears the flash cookie, so call this at most once per render.
func pageFor(ctx *web.RequestContext, title string, data interface{}) views.Page {
	page := views.Page{
		Title: title,
		Dark:  ctx.DarkMode(),
		Flash: ctx.ConsumeFlash(),
		Path:  ctx.FullPath(),
		Data:  data,
	}
	if principal := auth.Current(ctx); principal != nil {
		page.LoggedIn = true
		page.UserEmail = principal.Email
	}
	return page
}

// parseID parses a decimal path parameter into an id. Non-numeric input is
// treated the same as a missing row.
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, models.ErrNotFound
	}
	return id, nil
}

// canMutate is the authorization predicate for list and task mutations:
// an anonymous list is open to everyone, an owned list only to its owner.
func canMutate(ctx *web.RequestContext, list *models.TodoList) bool {
	if list.Anonymous() {
		return true
	}
	principal := auth.Current(ctx)
	return principal != nil && list.OwnedBy(principal.UserID)
}

// forbidden rejects a mutation that failed the ownership predicate
func forbidden(ctx *web.RequestContext) error {
	ctx.Error(models.ErrForbidden.Error(), fasthttp.StatusForbidden)
	return nil
}

// claimTarget reads the pending-claim list id threaded through the query
// string or the posted form, if any.
func claimTarget(ctx *web.RequestContext) string {
	if id := ctx.Query("list_id"); id != "" {
		return id
	}
	return ctx.FormValue("list_id")
}
