package nvoip

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/oauth2"

	"github.com/ajayykmr/nvoip-dispatcher/internal/config"
)

// ErrNoCredentials is returned when neither an access token nor a refresh
// token grant is configured.
var ErrNoCredentials = errors.New("nvoip: no credentials configured")

// NewTokenSource returns the bearer token source for cfg. A static access
// token wins over the refresh token grant.
func NewTokenSource(ctx context.Context, cfg config.NvoipConfig) (oauth2.TokenSource, error) {
	if token := strings.TrimSpace(cfg.AccessToken); token != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}), nil
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, ErrNoCredentials
	}

	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		tokenURL = config.DefaultNvoipTokenURL
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		Scopes: cfg.Scopes,
	}
	return oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}), nil
}
