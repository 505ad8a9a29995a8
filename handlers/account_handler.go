package handlers

import (
	"errors"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/daylistio/daylist/models"
	"github.com/daylistio/daylist/pkg/web"
	"github.com/daylistio/daylist/pkg/web/middleware/auth"
	"github.com/daylistio/daylist/services"
	"github.com/daylistio/daylist/views"
)

const flashEmailTaken = "That email is already in use by another account."

// AccountHandler serves the profile and password pages. All routes are
// registered behind RequireAuth; federated accounts are managed by their
// identity provider and get redirected home.
type AccountHandler struct {
	users    *services.UserService
	sessions *auth.Sessions
	renderer *views.Renderer
}

// NewAccountHandler creates an AccountHandler
func NewAccountHandler(users *services.UserService, sessions *auth.Sessions, renderer *views.Renderer) *AccountHandler {
	return &AccountHandler{users: users, sessions: sessions, renderer: renderer}
}

// currentUser loads the account row for the session principal. Returns
// nil after writing a redirect when the account is federated or gone.
func (h *AccountHandler) currentUser(ctx *web.RequestContext) (*models.User, error) {
	principal := auth.Current(ctx)
	if principal == nil {
		return nil, ctx.Redirect("/login")
	}

	user, err := h.users.GetByID(ctx.Context(), principal.UserID)
	if errors.Is(err, models.ErrNotFound) {
		h.sessions.Logout(ctx)
		return nil, ctx.Redirect("/login")
	}
	if err != nil {
		return nil, err
	}
	if user.Federated {
		return nil, ctx.Redirect("/")
	}
	return user, nil
}

// AccountPage renders the profile form
func (h *AccountHandler) AccountPage(ctx *web.RequestContext) error {
	user, err := h.currentUser(ctx)
	if user == nil {
		return err
	}

	page := pageFor(ctx, "Account", nil)
	page.UserName = user.Name
	page.UserEmail = user.Email

	body, err := h.renderer.Render(views.PageAccount, page)
	if err != nil {
		return err
	}
	return ctx.HTML(fasthttp.StatusOK, body)
}

// UpdateAccount applies the posted name/email changes, skipping empty
// fields. A changed email needs a fresh session cookie since the email
// is baked into the session claims.
func (h *AccountHandler) UpdateAccount(ctx *web.RequestContext) error {
	user, err := h.currentUser(ctx)
	if user == nil {
		return err
	}

	name := strings.TrimSpace(ctx.FormValue("name"))
	email := strings.TrimSpace(strings.ToLower(ctx.FormValue("email")))
	if email == user.Email {
		email = ""
	}

	if err := h.users.UpdateProfile(ctx.Context(), user.ID, name, email); err != nil {
		if errors.Is(err, models.ErrConflict) {
			ctx.Flash(flashEmailTaken)
			return ctx.Redirect("/account")
		}
		return err
	}

	if email != "" {
		if err := h.sessions.Login(ctx, user.ID, email); err != nil {
			return err
		}
	}
	ctx.Flash("Your account has been updated.")
	return ctx.Redirect("/account")
}

// PasswordPage renders the change-password form
func (h *AccountHandler) PasswordPage(ctx *web.RequestContext) error {
	user, err := h.currentUser(ctx)
	if user == nil {
		return err
	}

	body, err := h.renderer.Render(views.PagePassword, pageFor(ctx, "Change password", nil))
	if err != nil {
		return err
	}
	return ctx.HTML(fasthttp.StatusOK, body)
}

// ChangePassword re-hashes and stores the posted password. An empty
// password is a no-op back to the form.
func (h *AccountHandler) ChangePassword(ctx *web.RequestContext) error {
	user, err := h.currentUser(ctx)
	if user == nil {
		return err
	}

	password := ctx.FormValue("password")
	if password == "" {
		return ctx.Redirect("/change_password")
	}

	if err := h.users.UpdatePassword(ctx.Context(), user.Email, password); err != nil {
		return err
	}
	ctx.Flash("Your password has been updated.")
	return ctx.Redirect("/account")
}
