package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/daylistio/daylist/models"
	"github.com/daylistio/daylist/pkg/core"
	"github.com/daylistio/daylist/pkg/web"
	"github.com/daylistio/daylist/pkg/web/middleware/auth"
	"github.com/daylistio/daylist/services"
	"github.com/daylistio/daylist/views"
)

// Flash wording shown on the credential pages.
const (
	flashEmailUnknown      = "That email does not exist, please try again."
	flashPasswordIncorrect = "Password incorrect, please try again."
	flashAlreadyRegistered = "You've already signed up with that email, log in instead!"
	flashResetSent         = "An email has been sent with instructions to reset your password."
	flashPasswordUpdated   = "Your password has been updated! You are now able to log in."
	flashBadToken          = "That link is invalid or has expired."
)

// AuthHandler serves registration, login and the email token flows.
type AuthHandler struct {
	users    *services.UserService
	lists    *services.ListService
	tokens   *services.Tokens
	mailer   services.Mailer
	sessions *auth.Sessions
	google   *services.GoogleService
	renderer *views.Renderer
	baseURL  string
	logger   core.Logger
}

// NewAuthHandler creates an AuthHandler. baseURL is the externally
// reachable origin used to build the links inside outbound emails.
func NewAuthHandler(users *services.UserService, lists *services.ListService, tokens *services.Tokens, mailer services.Mailer, sessions *auth.Sessions, google *services.GoogleService, renderer *views.Renderer, baseURL string, logger core.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		lists:    lists,
		tokens:   tokens,
		mailer:   mailer,
		sessions: sessions,
		google:   google,
		renderer: renderer,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

// claimPending claims the list threaded through the request for the given
// user, if any. Returns the claimed list id, 0 when nothing was claimed.
func (h *AuthHandler) claimPending(ctx *web.RequestContext, userID int64) int64 {
	raw := claimTarget(ctx)
	if raw == "" {
		return 0
	}
	listID, err := parseID(raw)
	if err != nil {
		return 0
	}
	if err := h.lists.Claim(ctx.Context(), listID, userID); err != nil {
		if !errors.Is(err, models.ErrNotFound) && !errors.Is(err, models.ErrForbidden) {
			h.logger.WithFields(map[string]interface{}{
				"request_id": ctx.RequestID(),
				"list_id":    listID,
			}).Errorf("failed to claim list: %v", err)
		}
		return 0
	}
	return listID
}

// afterLogin redirects to the just-claimed list, or to the saved lists
func afterLoginTarget(claimedListID int64) string {
	if claimedListID > 0 {
		return fmt.Sprintf("/%d", claimedListID)
	}
	return "/saved_lists"
}

// LoginPage renders the login form
func (h *AuthHandler) LoginPage(ctx *web.RequestContext) error {
	if auth.Current(ctx) != nil {
		return ctx.Redirect("/saved_lists")
	}
	data := views.AuthPageData{ListID: claimTarget(ctx), GoogleEnabled: h.google.Enabled()}
	body, err := h.renderer.Render(views.PageLogin, pageFor(ctx, "Log in", data))
	if err != nil {
		return err
	}
	return ctx.HTML(fasthttp.StatusOK, body)
}

// Login authenticates the posted credentials and establishes a session.
// Failures flash a message and re-render the form without a session.
func (h *AuthHandler) Login(ctx *web.RequestContext) error {
	email := strings.TrimSpace(strings.ToLower(ctx.FormValue("email")))
	password := ctx.FormValue("password")

	user, err := h.users.Authenticate(ctx.Context(), email, password)
	switch {
	case errors.Is(err, models.ErrNotFound):
		ctx.Flash(flashEmailUnknown)
		return ctx.Redirect(loginPath(claimTarget(ctx)))
	case errors.Is(err, models.ErrUnauthorized):
		ctx.Flash(flashPasswordIncorrect)
		return ctx.Redirect(loginPath(claimTarget(ctx)))
	case err != nil:
		return err
	}

	if err := h.sessions.Login(ctx, user.ID, user.Email); err != nil {
		return err
	}
	return ctx.Redirect(afterLoginTarget(h.claimPending(ctx, user.ID)))
}

// RegisterPage renders the registration form
func (h *AuthHandler) RegisterPage(ctx *web.RequestContext) error {
	if auth.Current(ctx) != nil {
		return ctx.Redirect("/saved_lists")
	}
	data := views.AuthPageData{ListID: claimTarget(ctx), GoogleEnabled: h.google.Enabled()}
	body, err := h.renderer.Render(views.PageRegister, pageFor(ctx, "Register", data))
	if err != nil {
		return err
	}
	return ctx.HTML(fasthttp.StatusOK, body)
}

// Register creates a local account, establishes a session, sends the
// verification email and claims any pending list. A duplicate email
// flashes and redirects to the login form instead.
func (h *AuthHandler) Register(ctx *web.RequestContext) error {
	email := strings.TrimSpace(strings.ToLower(ctx.FormValue("email")))
	name := strings.TrimSpace(ctx.FormValue("name"))
	password := ctx.FormValue("password")

	if email == "" || password == "" {
		ctx.Flash("Email and password are required.")
		return ctx.Redirect(registerPath(claimTarget(ctx)))
	}

	user, err := h.users.Register(ctx.Context(), email, name, password)
	if errors.Is(err, models.ErrConflict) {
		ctx.Flash(flashAlreadyRegistered)
		return ctx.Redirect(loginPath(claimTarget(ctx)))
	}
	if err != nil {
		return err
	}

	if err := h.sessions.Login(ctx, user.ID, user.Email); err != nil {
		return err
	}
	h.sendVerification(ctx, user)
	return ctx.Redirect(afterLoginTarget(h.claimPending(ctx, user.ID)))
}

// sendVerification emails a signed verification link. A mail failure is
// logged, not surfaced: the account already exists and can be re-verified.
func (h *AuthHandler) sendVerification(ctx *web.RequestContext, user *models.User) {
	token, err := h.tokens.IssueVerification(user.Email)
	if err != nil {
		h.logger.WithFields(map[string]interface{}{"request_id": ctx.RequestID()}).
			Errorf("failed to issue verification token: %v", err)
		return
	}
	body, err := h.renderer.RenderEmail(views.EmailVerification, views.VerificationEmailData{
		Name: user.Name,
		Link: h.baseURL + "/verified/" + token,
	})
	if err != nil {
		h.logger.WithFields(map[string]interface{}{"request_id": ctx.RequestID()}).
			Errorf("failed to render verification email: %v", err)
		return
	}
	if err := h.mailer.Send(ctx.Context(), user.Email, "Verify your daylist email", body); err != nil {
		h.logger.WithFields(map[string]interface{}{"request_id": ctx.RequestID()}).
			Errorf("failed to send verification email: %v", err)
	}
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(ctx *web.RequestContext) error {
	h.sessions.Logout(ctx)
	return ctx.Redirect("/")
}

// ForgotPasswordPage renders the reset-request form
func (h *AuthHandler) ForgotPasswordPage(ctx *web.RequestContext) error {
	body, err := h.renderer.Render(views.PageForgotPassword, pageFor(ctx, "Forgot password", nil))
	if err != nil {
		return err
	}
	return ctx.HTML(fasthttp.StatusOK, body)
}

// ForgotPassword emails a signed reset link when the address has an account
func (h *AuthHandler) ForgotPassword(ctx *web.RequestContext) error {
	email := strings.TrimSpace(strings.ToLower(ctx.FormValue("email")))

	user, err := h.users.GetByEmail(ctx.Context(), email)
	if errors.Is(err, models.ErrNotFound) {
		ctx.Flash(flashEmailUnknown)
		return ctx.Redirect("/forgot_password/")
	}
	if err != nil {
		return err
	}

	token, err := h.tokens.IssueReset(user.Email)
	if err != nil {
		return err
	}
	body, err := h.renderer.RenderEmail(views.EmailReset, views.ResetEmailData{
		Name: user.Name,
		Link: h.baseURL + "/reset_password/" + token,
	})
	if err != nil {
		return err
	}
	if err := h.mailer.Send(ctx.Context(), user.Email, "Reset your daylist password", body); err != nil {
		h.logger.WithFields(map[string]interface{}{"request_id": ctx.RequestID()}).
			Errorf("failed to send reset email: %v", err)
	}

	ctx.Flash(flashResetSent)
	return ctx.Redirect("/login")
}

// ResetPasswordPage validates the token before rendering the form, so an
// expired link fails before the visitor types a new password.
func (h *AuthHandler) ResetPasswordPage(ctx *web.RequestContext) error {
	token := ctx.Param("token")
	if _, err := h.tokens.ParseEmail(token, services.PurposeReset); err != nil {
		ctx.Flash(flashBadToken)
		return ctx.Redirect("/forgot_password/")
	}

	body, err := h.renderer.Render(views.PageResetPassword, pageFor(ctx, "Reset password", views.ResetPageData{Token: token}))
	if err != nil {
		return err
	}
	return ctx.HTML(fasthttp.StatusOK, body)
}

// ResetPassword stores the new password for the account named by a valid
// reset token. An empty password re-renders the form.
func (h *AuthHandler) ResetPassword(ctx *web.RequestContext) error {
	token := ctx.Param("token")
	email, err := h.tokens.ParseEmail(token, services.PurposeReset)
	if err != nil {
		ctx.Flash(flashBadToken)
		return ctx.Redirect("/forgot_password/")
	}

	password := ctx.FormValue("password")
	if password == "" {
		return ctx.Redirect("/reset_password/" + token)
	}

	if err := h.users.UpdatePassword(ctx.Context(), email, password); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			ctx.Flash(flashBadToken)
			return ctx.Redirect("/forgot_password/")
		}
		return err
	}

	ctx.Flash(flashPasswordUpdated)
	return ctx.Redirect("/login")
}

// Verified marks the account named by a valid verification token
func (h *AuthHandler) Verified(ctx *web.RequestContext) error {
	email, err := h.tokens.ParseEmail(ctx.Param("token"), services.PurposeVerify)
	if err != nil {
		ctx.Flash(flashBadToken)
		return ctx.Redirect("/login")
	}

	if err := h.users.MarkVerified(ctx.Context(), email); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			ctx.Flash(flashBadToken)
			return ctx.Redirect("/login")
		}
		return err
	}

	body, err := h.renderer.Render(views.PageVerified, pageFor(ctx, "Email verified", nil))
	if err != nil {
		return err
	}
	return ctx.HTML(fasthttp.StatusOK, body)
}

func loginPath(listID string) string {
	if listID != "" {
		return "/login?list_id=" + url.QueryEscape(listID)
	}
	return "/login"
}

func registerPath(listID string) string {
	if listID != "" {
		return "/register?list_id=" + url.QueryEscape(listID)
	}
	return "/register"
}
