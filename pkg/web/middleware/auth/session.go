package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/daylistio/daylist/models"
	"github.com/daylistio/daylist/pkg/web"
)

// PrincipalKey is the request-context key holding the resolved principal
const PrincipalKey = "principal"

// Principal is the authenticated user associated with the current session
type Principal struct {
	UserID int64
	Email  string
}

// SessionConfig configures cookie-session authentication
type SessionConfig struct {
	// SecretKey signs and verifies session tokens
	SecretKey string

	// CookieName is the session cookie name (default: "daylist_session")
	CookieName string

	// TTL is the session lifetime (default: 7 days)
	TTL time.Duration

	// LoginPath is where unauthenticated requests are redirected (default: "/login")
	LoginPath string
}

// DefaultSessionConfig returns a default session configuration
func DefaultSessionConfig(secretKey string) SessionConfig {
	return SessionConfig{
		SecretKey:  secretKey,
		CookieName: "daylist_session",
		TTL:        7 * 24 * time.Hour,
		LoginPath:  "/login",
	}
}

// Sessions resolves the current principal from a signed session cookie on
// every request and establishes or clears that cookie on login/logout.
// The session token is a JWT (HS256) with purpose "session"; tokens minted
// for email verification or password reset are rejected here even though
// they share the signing key.
type Sessions struct {
	config SessionConfig
}

// NewSessions creates a session manager
func NewSessions(config SessionConfig) *Sessions {
	if config.SecretKey == "" {
		panic("sessions: SecretKey must be provided")
	}
	if config.CookieName == "" {
		config.CookieName = "daylist_session"
	}
	if config.TTL <= 0 {
		config.TTL = 7 * 24 * time.Hour
	}
	if config.LoginPath == "" {
		config.LoginPath = "/login"
	}
	return &Sessions{config: config}
}

// Login establishes session state for the user by setting the session cookie
func (s *Sessions) Login(ctx *web.RequestContext, userID int64, email string) error {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     strconv.FormatInt(userID, 10),
		"email":   email,
		"purpose": "session",
		"iat":     now.Unix(),
		"exp":     now.Add(s.config.TTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.SecretKey))
	if err != nil {
		return fmt.Errorf("failed to sign session token: %w", err)
	}

	ctx.SetCookie(s.config.CookieName, signed, s.config.TTL)
	return nil
}

// Logout clears session state
func (s *Sessions) Logout(ctx *web.RequestContext) {
	ctx.ClearCookie(s.config.CookieName)
}

// Resolve parses the session cookie and returns the principal, or an error
// when the cookie is absent, expired, tampered with, or not a session token.
func (s *Sessions) Resolve(ctx *web.RequestContext) (*Principal, error) {
	tokenString := ctx.Cookie(s.config.CookieName)
	if tokenString == "" {
		return nil, fmt.Errorf("session cookie missing: %w", models.ErrUnauthorized)
	}

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(s.config.SecretKey), nil
	}

	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, keyFunc,
		jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %v: %w", err, models.ErrUnauthorized)
	}
	if !token.Valid {
		return nil, fmt.Errorf("session token is not valid: %w", models.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid session claims: %w", models.ErrUnauthorized)
	}
	if purpose, _ := claims["purpose"].(string); purpose != "session" {
		return nil, fmt.Errorf("token purpose %q is not a session: %w", purpose, models.ErrUnauthorized)
	}

	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid subject in session token: %v: %w", err, models.ErrUnauthorized)
	}
	email, _ := claims["email"].(string)

	return &Principal{UserID: userID, Email: email}, nil
}

// WithPrincipal resolves the session on every request and stores the
// principal in the request context when present. It never fails the
// request: anonymous visitors are a normal state.
func (s *Sessions) WithPrincipal() web.Middleware {
	return func(next web.RequestHandler) web.RequestHandler {
		return func(ctx *web.RequestContext) error {
			if p, err := s.Resolve(ctx); err == nil {
				ctx.Set(PrincipalKey, p)
			}
			return next(ctx)
		}
	}
}

// RequireAuth gates a route: without a resolved principal the request is
// redirected to the login page.
func (s *Sessions) RequireAuth() web.Middleware {
	return func(next web.RequestHandler) web.RequestHandler {
		return func(ctx *web.RequestContext) error {
			if Current(ctx) == nil {
				return ctx.Redirect(s.config.LoginPath)
			}
			return next(ctx)
		}
	}
}

// Current returns the principal resolved for this request, nil when anonymous
func Current(ctx *web.RequestContext) *Principal {
	if p, ok := ctx.Get(PrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}
