package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// GoogleConfig configures the OpenID-Connect bridge to Google
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`

	// DiscoveryURL defaults to Google's well-known configuration document.
	// Tests point it at a local stub.
	DiscoveryURL string `yaml:"discovery_url"`
}

const googleDiscoveryURL = "https://accounts.google.com/.well-known/openid-configuration"

// GoogleProfile is the subset of the userinfo response the app consumes
type GoogleProfile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GoogleService delegates authentication to Google's OIDC provider:
// authorization redirect, code-for-token exchange, and userinfo fetch.
type GoogleService struct {
	config     GoogleConfig
	httpClient *http.Client

	mu        sync.Mutex
	discovery *discoveryDocument
}

type discoveryDocument struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
}

// NewGoogleService creates the OIDC bridge
func NewGoogleService(config GoogleConfig) *GoogleService {
	if config.DiscoveryURL == "" {
		config.DiscoveryURL = googleDiscoveryURL
	}
	return &GoogleService{
		config: config,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Enabled reports whether federated login is configured
func (g *GoogleService) Enabled() bool {
	return g.config.ClientID != "" && g.config.ClientSecret != ""
}

// AuthURL builds the provider consent-screen redirect carrying the signed
// state and the anti-replay nonce.
func (g *GoogleService) AuthURL(ctx context.Context, state, nonce string) (string, error) {
	doc, err := g.discover(ctx)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("client_id", g.config.ClientID)
	params.Set("redirect_uri", g.config.RedirectURL)
	params.Set("response_type", "code")
	params.Set("scope", "openid email profile")
	params.Set("state", state)
	params.Set("nonce", nonce)

	return doc.AuthorizationEndpoint + "?" + params.Encode(), nil
}

// Exchange trades the authorization code for an access token
func (g *GoogleService) Exchange(ctx context.Context, code string) (string, error) {
	doc, err := g.discover(ctx)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", g.config.ClientID)
	form.Set("client_secret", g.config.ClientSecret)
	form.Set("redirect_uri", g.config.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, doc.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access token")
	}
	return tokenResp.AccessToken, nil
}

// Userinfo fetches the verified profile for the access token
func (g *GoogleService) Userinfo(ctx context.Context, accessToken string) (*GoogleProfile, error) {
	doc, err := g.discover(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doc.UserinfoEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("userinfo fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("userinfo response carried no email")
	}
	return &profile, nil
}

// discover fetches and caches the provider's configuration document
func (g *GoogleService) discover(ctx context.Context) (*discoveryDocument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.discovery != nil {
		return g.discovery, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.config.DiscoveryURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discovery fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery fetch failed with status %d", resp.StatusCode)
	}

	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}

	g.discovery = &doc
	return g.discovery, nil
}
