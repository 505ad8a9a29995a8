package handlers

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/daylistio/daylist/models"
	"github.com/daylistio/daylist/pkg/core"
	"github.com/daylistio/daylist/pkg/web"
	"github.com/daylistio/daylist/pkg/web/middleware/auth"
	"github.com/daylistio/daylist/services"
)

// NonceCookie binds the OIDC round trip to the browser that started it
const NonceCookie = "daylist_oauth_nonce"

const flashGoogleFailed = "Google sign-in failed, please try again."

// GoogleHandler runs the Google OIDC login flow.
type GoogleHandler struct {
	google   *services.GoogleService
	users    *services.UserService
	lists    *services.ListService
	tokens   *services.Tokens
	sessions *auth.Sessions
	logger   core.Logger
}

// NewGoogleHandler creates a GoogleHandler
func NewGoogleHandler(google *services.GoogleService, users *services.UserService, lists *services.ListService, tokens *services.Tokens, sessions *auth.Sessions, logger core.Logger) *GoogleHandler {
	return &GoogleHandler{
		google:   google,
		users:    users,
		lists:    lists,
		tokens:   tokens,
		sessions: sessions,
		logger:   logger,
	}
}

// Start redirects to Google's authorization endpoint. The state parameter
// is a short-lived signed token carrying an anti-replay nonce and the
// pending-claim list id, if one was threaded through.
func (h *GoogleHandler) Start(ctx *web.RequestContext) error {
	if !h.google.Enabled() {
		return ctx.Redirect("/login")
	}

	nonce := uuid.NewString()
	state, err := h.tokens.IssueState(nonce, claimTarget(ctx))
	if err != nil {
		return err
	}

	authURL, err := h.google.AuthURL(ctx.Context(), state, nonce)
	if err != nil {
		h.logger.WithFields(map[string]interface{}{"request_id": ctx.RequestID()}).
			Errorf("failed to build google auth url: %v", err)
		ctx.Flash(flashGoogleFailed)
		return ctx.Redirect("/login")
	}

	ctx.SetCookie(NonceCookie, nonce, 10*time.Minute)
	return ctx.Redirect(authURL)
}

// Callback verifies the state, exchanges the code, fetches the profile
// and logs the matching local account in, creating it on first sight.
func (h *GoogleHandler) Callback(ctx *web.RequestContext) error {
	nonce, claimListID, err := h.tokens.ParseState(ctx.Query("state"))
	if err != nil || nonce == "" || nonce != ctx.Cookie(NonceCookie) {
		ctx.ClearCookie(NonceCookie)
		ctx.Flash(flashGoogleFailed)
		return ctx.Redirect("/login")
	}
	ctx.ClearCookie(NonceCookie)

	code := ctx.Query("code")
	if code == "" {
		ctx.Flash(flashGoogleFailed)
		return ctx.Redirect("/login")
	}

	accessToken, err := h.google.Exchange(ctx.Context(), code)
	if err != nil {
		h.logger.WithFields(map[string]interface{}{"request_id": ctx.RequestID()}).
			Errorf("google code exchange failed: %v", err)
		ctx.Flash(flashGoogleFailed)
		return ctx.Redirect("/login")
	}

	profile, err := h.google.Userinfo(ctx.Context(), accessToken)
	if err != nil {
		h.logger.WithFields(map[string]interface{}{"request_id": ctx.RequestID()}).
			Errorf("google userinfo fetch failed: %v", err)
		ctx.Flash(flashGoogleFailed)
		return ctx.Redirect("/login")
	}

	user, err := h.users.GetByEmail(ctx.Context(), profile.Email)
	if errors.Is(err, models.ErrNotFound) {
		user, err = h.users.RegisterFederated(ctx.Context(), profile.Email, profile.Name)
	}
	if err != nil {
		return err
	}

	if err := h.sessions.Login(ctx, user.ID, user.Email); err != nil {
		return err
	}

	if claimListID != "" {
		if listID, err := parseID(claimListID); err == nil {
			if err := h.lists.Claim(ctx.Context(), listID, user.ID); err != nil && !errors.Is(err, models.ErrNotFound) && !errors.Is(err, models.ErrForbidden) {
				h.logger.WithFields(map[string]interface{}{
					"request_id": ctx.RequestID(),
					"list_id":    listID,
				}).Errorf("failed to claim list: %v", err)
			} else if err == nil {
				return ctx.Redirect(afterLoginTarget(listID))
			}
		}
	}
	return ctx.Redirect("/saved_lists")
}
