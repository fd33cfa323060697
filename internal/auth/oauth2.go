package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuth2Config fetches an access token from a token endpoint.
// GrantType is "client_credentials" or "password"; when empty it is inferred
// from whether a username is present.
type OAuth2Config struct {
	GrantType    string   `mapstructure:"grant_type"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	TokenURL     string   `mapstructure:"token_url"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	Scopes       []string `mapstructure:"scopes"`
}

func (c OAuth2Config) grant() string {
	gt := strings.ToLower(strings.TrimSpace(c.GrantType))
	if gt == "" {
		if strings.TrimSpace(c.Username) != "" {
			return "password"
		}
		return "client_credentials"
	}
	return strings.ReplaceAll(gt, "-", "_")
}

// Acquire runs the grant and returns "<token_type> <access_token>".
func (c OAuth2Config) Acquire(ctx context.Context) (string, error) {
	tokenURL := strings.TrimSpace(c.TokenURL)
	if tokenURL == "" {
		return "", errors.New("oauth2: token_url is required")
	}
	clientID := strings.TrimSpace(c.ClientID)
	if clientID == "" {
		return "", errors.New("oauth2: client_id is required")
	}

	var (
		tok *oauth2.Token
		err error
	)
	switch gt := c.grant(); gt {
	case "client_credentials":
		if strings.TrimSpace(c.ClientSecret) == "" {
			return "", errors.New("oauth2: client_secret is required for client_credentials grant")
		}
		cc := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: strings.TrimSpace(c.ClientSecret),
			TokenURL:     tokenURL,
			Scopes:       c.Scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		tok, err = cc.Token(ctx)
	case "password":
		if strings.TrimSpace(c.Username) == "" || c.Password == "" {
			return "", errors.New("oauth2: username and password are required for password grant")
		}
		oc := &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: strings.TrimSpace(c.ClientSecret),
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
			Scopes:       c.Scopes,
		}
		tok, err = oc.PasswordCredentialsToken(ctx, strings.TrimSpace(c.Username), c.Password)
	default:
		return "", errors.New("oauth2: unsupported grant_type: " + gt)
	}
	if err != nil {
		return "", err
	}
	if tok == nil || !tok.Valid() || strings.TrimSpace(tok.AccessToken) == "" {
		return "", errors.New("oauth2: received invalid token")
	}
	typ := strings.TrimSpace(tok.TokenType)
	if typ == "" || strings.EqualFold(typ, "bearer") {
		typ = "Bearer"
	}
	return typ + " " + tok.AccessToken, nil
}
