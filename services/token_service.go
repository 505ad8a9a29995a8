package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/daylistio/daylist/models"
)

// Token purposes. Each minted token carries exactly one; parsing demands a
// match, so a verification token can never be replayed against the
// password-reset endpoint.
const (
	PurposeVerify     = "verify"
	PurposeReset      = "reset"
	PurposeOAuthState = "oauth_state"
)

// Tokens mints and validates the signed, time-bounded tokens used for
// email verification, password reset, and the OIDC state round-trip.
// Validation fails closed: any parse error maps to ErrInvalidToken and
// callers mutate nothing.
type Tokens struct {
	secret []byte
}

// NewTokens creates a token issuer signing with the given secret
func NewTokens(secret string) *Tokens {
	if secret == "" {
		panic("tokens: secret must be provided")
	}
	return &Tokens{secret: []byte(secret)}
}

// IssueVerification mints a 24h email-verification token
func (t *Tokens) IssueVerification(email string) (string, error) {
	return t.issue(jwt.MapClaims{"email": email, "purpose": PurposeVerify}, 24*time.Hour)
}

// IssueReset mints a 1h password-reset token
func (t *Tokens) IssueReset(email string) (string, error) {
	return t.issue(jwt.MapClaims{"email": email, "purpose": PurposeReset}, time.Hour)
}

// IssueState mints the short-lived OIDC state token carrying the
// anti-replay nonce and the optional pending-claim list id. The pending
// list id rides inside the signed state, scoped to this one flow, never
// in process-wide state.
func (t *Tokens) IssueState(nonce string, claimListID string) (string, error) {
	claims := jwt.MapClaims{"nonce": nonce, "purpose": PurposeOAuthState}
	if claimListID != "" {
		claims["list_id"] = claimListID
	}
	return t.issue(claims, 10*time.Minute)
}

func (t *Tokens) issue(claims jwt.MapClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseEmail validates an email-bearing token and returns the email. The
// token's purpose must match the expected one.
func (t *Tokens) ParseEmail(tokenString, purpose string) (string, error) {
	claims, err := t.parse(tokenString, purpose)
	if err != nil {
		return "", err
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return "", fmt.Errorf("token has no email: %w", models.ErrInvalidToken)
	}
	return email, nil
}

// ParseState validates an OIDC state token and returns the nonce and the
// pending-claim list id ("" when none was threaded through).
func (t *Tokens) ParseState(tokenString string) (nonce, claimListID string, err error) {
	claims, err := t.parse(tokenString, PurposeOAuthState)
	if err != nil {
		return "", "", err
	}
	nonce, _ = claims["nonce"].(string)
	if nonce == "" {
		return "", "", fmt.Errorf("state has no nonce: %w", models.ErrInvalidToken)
	}
	claimListID, _ = claims["list_id"].(string)
	return nonce, claimListID, nil
}

func (t *Tokens) parse(tokenString, purpose string) (jwt.MapClaims, error) {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return t.secret, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, keyFunc,
		jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, models.ErrInvalidToken)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token not valid: %w", models.ErrInvalidToken)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type: %w", models.ErrInvalidToken)
	}
	if got, _ := claims["purpose"].(string); got != purpose {
		return nil, fmt.Errorf("token purpose %q, want %q: %w", got, purpose, models.ErrInvalidToken)
	}
	return claims, nil
}
