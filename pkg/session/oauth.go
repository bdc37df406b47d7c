package session

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// DefaultLoginURL is the production login host.
const DefaultLoginURL = "https://login.salesforce.com"

// JWTBearerGrantType is the grant type for the JWT bearer flow.
const JWTBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// assertionLifetime bounds how long a signed JWT assertion is accepted.
const assertionLifetime = 3 * time.Minute

// OAuthConfig describes a connected app registered with the login host.
type OAuthConfig struct {
	LoginURL     string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	HTTPClient   *http.Client
}

// Token is a successful token endpoint response.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	InstanceURL  string    `json:"instance_url"`
	ID           string    `json:"id,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	Signature    string    `json:"signature,omitempty"`
	IssuedAt     time.Time `json:"-"`
}

// Session converts the token into a Session for the given API version.
func (t *Token) Session(apiVersion string) Session {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return Session{
		AccessToken:  t.AccessToken,
		InstanceURL:  t.InstanceURL,
		APIVersion:   apiVersion,
		RefreshToken: t.RefreshToken,
	}
}

// OAuthError is an error response from the token endpoint.
type OAuthError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("oauth %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("oauth %s (status %d)", e.Code, e.StatusCode)
}

// HTTPStatus returns the HTTP status code of the token endpoint response.
func (e *OAuthError) HTTPStatus() int {
	return e.StatusCode
}

// AuthCodeURL returns the authorization URL the user's browser is sent to.
func (c *OAuthConfig) AuthCodeURL(state string) string {
	return c.config().AuthCodeURL(state)
}

// Exchange trades an authorization code for a token.
func (c *OAuthConfig) Exchange(ctx context.Context, code string) (*Token, error) {
	t, err := c.config().Exchange(c.clientContext(ctx), code)
	if err != nil {
		return nil, tokenError(err)
	}
	return fromOAuth2(t, "")
}

// Refresh obtains a new access token from a refresh token. The refresh token
// is carried over when the response does not include a new one.
func (c *OAuthConfig) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	t, err := c.config().TokenSource(c.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, tokenError(err)
	}
	tok, err := fromOAuth2(t, "")
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

// JWTBearer signs an RS256 assertion for username and exchanges it for a token.
func (c *OAuthConfig) JWTBearer(ctx context.Context, username string, key *rsa.PrivateKey) (*Token, error) {
	if key == nil {
		return nil, errors.New("jwt bearer: private key is required")
	}
	assertion, err := c.signAssertion(username, key, time.Now())
	if err != nil {
		return nil, err
	}

	// The bearer grant rides on the code exchange with its grant_type and
	// assertion overriding the authorization code parameters.
	t, err := c.config().Exchange(c.clientContext(ctx), "",
		oauth2.SetAuthURLParam("grant_type", JWTBearerGrantType),
		oauth2.SetAuthURLParam("assertion", assertion),
	)
	if err != nil {
		return nil, tokenError(err)
	}
	return fromOAuth2(t, "")
}

func (c *OAuthConfig) signAssertion(username string, key *rsa.PrivateKey, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    c.ClientID,
		Subject:   username,
		Audience:  jwt.ClaimStrings{c.loginURL()},
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}

func (c *OAuthConfig) config() *oauth2.Config {
	login := c.loginURL()
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   login + "/services/oauth2/authorize",
			TokenURL:  login + "/services/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (c *OAuthConfig) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient())
}

func (c *OAuthConfig) loginURL() string {
	if c.LoginURL == "" {
		return DefaultLoginURL
	}
	return strings.TrimRight(c.LoginURL, "/")
}

func (c *OAuthConfig) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// tokenError maps a token endpoint failure onto OAuthError.
func tokenError(err error) error {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) {
		return fmt.Errorf("token request failed: %w", err)
	}
	oerr := &OAuthError{Code: "unknown_error", Description: rerr.ErrorDescription}
	if rerr.Response != nil {
		oerr.StatusCode = rerr.Response.StatusCode
	}
	if rerr.ErrorCode != "" {
		oerr.Code = rerr.ErrorCode
	}
	return oerr
}

// fromOAuth2 reads the backend's extra response fields off t. instanceURL is
// used when the response carries none.
func fromOAuth2(t *oauth2.Token, instanceURL string) (*Token, error) {
	tok := &Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		InstanceURL:  extraString(t, "instance_url"),
		ID:           extraString(t, "id"),
		Scope:        extraString(t, "scope"),
		Signature:    extraString(t, "signature"),
	}
	if ms, err := strconv.ParseInt(extraString(t, "issued_at"), 10, 64); err == nil {
		tok.IssuedAt = time.UnixMilli(ms)
	}
	if tok.InstanceURL == "" {
		tok.InstanceURL = instanceURL
	}
	if tok.AccessToken == "" || tok.InstanceURL == "" {
		return nil, errors.New("token response is missing access_token or instance_url")
	}
	return tok, nil
}

// toOAuth2 converts tok back for use with an oauth2 token source. The token
// expires maxAge after it was issued; zero means it never expires.
func toOAuth2(tok *Token, maxAge time.Duration) *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	issued := tok.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	if maxAge > 0 {
		t.Expiry = issued.Add(maxAge)
	}
	return t.WithExtra(map[string]any{
		"instance_url": tok.InstanceURL,
		"id":           tok.ID,
		"scope":        tok.Scope,
		"signature":    tok.Signature,
		"issued_at":    strconv.FormatInt(issued.UnixMilli(), 10),
	})
}

func extraString(t *oauth2.Token, key string) string {
	s, _ := t.Extra(key).(string)
	return s
}
