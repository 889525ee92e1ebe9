package meli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/md-rashed-zaman/melinotify/internal/fault"
	"github.com/md-rashed-zaman/melinotify/internal/token"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// AppCredentials is the marketplace application credential bundle as stored
// in the secret provider.
type AppCredentials struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	UserID       string `json:"userId"`
}

func ParseAppCredentials(raw []byte) (AppCredentials, error) {
	var creds AppCredentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return AppCredentials{}, fmt.Errorf("invalid marketplace credentials: %w", err)
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return AppCredentials{}, fmt.Errorf("marketplace credentials: clientId and clientSecret are required")
	}
	return creds, nil
}

// AuthClient performs the OAuth refresh-token exchange.
type AuthClient struct {
	http     *http.Client
	tokenURL string
	creds    AppCredentials
	now      func() time.Time
}

func NewAuthClient(tokenURL string, creds AppCredentials) *AuthClient {
	return &AuthClient{
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tokenURL: tokenURL,
		creds:    creds,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (token.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.creds.ClientID)
	form.Set("client_secret", c.creds.ClientSecret)
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return token.Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return token.Token{}, fault.WrapTransient(err, "marketplace token refresh")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return token.Token{}, fault.WrapTransient(err, "marketplace token refresh")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return token.Token{}, fault.Transient("marketplace token refresh", resp.StatusCode, string(body))
	}

	parsed, err := parseTokenResponse(body)
	if err != nil {
		return token.Token{}, err
	}

	return token.Token{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(parsed.ExpiresIn) * time.Second),
	}, nil
}

var _ token.Refresher = (*AuthClient)(nil)
