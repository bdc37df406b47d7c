package forcemock

import (
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/getmockd/sfrecord/pkg/httputil"
)

// OAuth grant types accepted by the token endpoint.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeJWTBearer         = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

const (
	tokenLifetime = 2 * time.Hour
	codeLifetime  = 10 * time.Minute
	// defaultUsername is used when a client has no configured user.
	defaultUsername = "mock.user@example.com"
)

// oauthError is a token endpoint failure.
type oauthError struct {
	code        string
	description string
}

func (e *oauthError) Error() string {
	return e.code + ": " + e.description
}

// accessClaims are carried by issued access tokens.
type accessClaims struct {
	ClientID string `json:"client_id,omitempty"`
	jwt.RegisteredClaims
}

// authCode is a pending authorization code.
type authCode struct {
	clientID    string
	redirectURI string
	username    string
	expiresAt   time.Time
}

// grants stores authorization codes and refresh tokens.
type grants struct {
	mu      sync.Mutex
	codes   map[string]authCode
	refresh map[string]authCode
}

func newGrants() *grants {
	return &grants{codes: make(map[string]authCode), refresh: make(map[string]authCode)}
}

func (g *grants) issueCode(code authCode) string {
	key := uuid.NewString()
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	for k, c := range g.codes {
		if now.After(c.expiresAt) {
			delete(g.codes, k)
		}
	}
	g.codes[key] = code
	return key
}

// redeemCode consumes a code. Codes are single use.
func (g *grants) redeemCode(key string) (authCode, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	code, ok := g.codes[key]
	delete(g.codes, key)
	if !ok || time.Now().After(code.expiresAt) {
		return authCode{}, false
	}
	return code, true
}

func (g *grants) issueRefresh(code authCode) string {
	key := uuid.NewString()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refresh[key] = code
	return key
}

func (g *grants) lookupRefresh(key string) (authCode, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	code, ok := g.refresh[key]
	return code, ok
}

// tokenResponse is the body of a successful token request.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	InstanceURL  string `json:"instance_url"`
	ID           string `json:"id"`
	TokenType    string `json:"token_type"`
	IssuedAt     string `json:"issued_at"`
	Signature    string `json:"signature"`
	Scope        string `json:"scope,omitempty"`
}

// IssueToken returns a signed access token for username, as the token
// endpoint would.
func (s *Server) IssueToken(username string) (string, error) {
	return s.issueAccessToken(username, "", time.Now())
}

func (s *Server) issueAccessToken(username, clientID string, now time.Time) (string, error) {
	claims := accessClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// verifyAccessToken checks a bearer token and returns its subject.
func (s *Server) verifyAccessToken(token string) (string, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID := q.Get("client_id")
	redirectURI := q.Get("redirect_uri")

	if q.Get("response_type") != "code" {
		httputil.WriteOAuthError(w, http.StatusBadRequest, "unsupported_response_type", "response type not supported")
		return
	}
	client, ok := s.client(clientID)
	if !ok {
		httputil.WriteOAuthError(w, http.StatusBadRequest, "invalid_client_id", "client identifier invalid")
		return
	}
	if redirectURI == "" || !client.allowsRedirect(redirectURI) {
		httputil.WriteOAuthError(w, http.StatusBadRequest, "redirect_uri_mismatch", "redirect_uri must match configuration")
		return
	}

	// Mock consent: approve immediately for the client's user.
	code := s.grants.issueCode(authCode{
		clientID:    clientID,
		redirectURI: redirectURI,
		username:    client.username(),
		expiresAt:   time.Now().Add(codeLifetime),
	})

	target, err := url.Parse(redirectURI)
	if err != nil {
		httputil.WriteOAuthError(w, http.StatusBadRequest, "redirect_uri_mismatch", "redirect_uri is not a valid URL")
		return
	}
	params := target.Query()
	params.Set("code", code)
	if state := q.Get("state"); state != "" {
		params.Set("state", state)
	}
	target.RawQuery = params.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "failed to parse form")
		return
	}

	var (
		grant authCode
		err   error
		issue bool
	)
	switch r.PostForm.Get("grant_type") {
	case GrantTypeAuthorizationCode:
		grant, err = s.redeemAuthorizationCode(r)
		issue = true
	case GrantTypeRefreshToken:
		grant, err = s.redeemRefreshToken(r)
	case GrantTypeJWTBearer:
		grant, err = s.verifyAssertion(r.PostForm.Get("assertion"))
	default:
		httputil.WriteOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "grant type not supported")
		return
	}
	if err != nil {
		s.logger.Warn("token request rejected", "grantType", r.PostForm.Get("grant_type"), "error", err)
		var oerr *oauthError
		if errors.As(err, &oerr) {
			httputil.WriteOAuthError(w, http.StatusBadRequest, oerr.code, oerr.description)
			return
		}
		httputil.WriteOAuthError(w, http.StatusBadRequest, "invalid_grant", err.Error())
		return
	}

	now := time.Now()
	access, err := s.issueAccessToken(grant.username, grant.clientID, now)
	if err != nil {
		httputil.WriteOAuthError(w, http.StatusInternalServerError, "server_error", "failed to issue token")
		return
	}

	instance := s.instanceURL(r)
	issuedAt := strconv.FormatInt(now.UnixMilli(), 10)
	identity := instance + "/id/00D000000000001AAA/" + userID(grant.username)

	resp := tokenResponse{
		AccessToken: access,
		InstanceURL: instance,
		ID:          identity,
		TokenType:   "Bearer",
		IssuedAt:    issuedAt,
		Signature:   s.sign(identity + issuedAt),
		Scope:       "api refresh_token",
	}
	if issue {
		resp.RefreshToken = s.grants.issueRefresh(grant)
	}
	httputil.WriteOK(w, resp)
}

func (s *Server) redeemAuthorizationCode(r *http.Request) (authCode, error) {
	form := r.PostForm
	if _, err := s.authenticateClient(form.Get("client_id"), form.Get("client_secret")); err != nil {
		return authCode{}, err
	}
	grant, ok := s.grants.redeemCode(form.Get("code"))
	if !ok || grant.clientID != form.Get("client_id") {
		return authCode{}, &oauthError{code: "invalid_grant", description: "invalid authorization code"}
	}
	if uri := form.Get("redirect_uri"); uri != "" && uri != grant.redirectURI {
		return authCode{}, &oauthError{code: "invalid_grant", description: "redirect_uri mismatch"}
	}
	return grant, nil
}

func (s *Server) redeemRefreshToken(r *http.Request) (authCode, error) {
	form := r.PostForm
	grant, ok := s.grants.lookupRefresh(form.Get("refresh_token"))
	if !ok || grant.clientID != form.Get("client_id") {
		return authCode{}, &oauthError{code: "invalid_grant", description: "expired access/refresh token"}
	}
	return grant, nil
}

// verifyAssertion checks an RS256 JWT bearer assertion against the issuing
// client's public key.
func (s *Server) verifyAssertion(assertion string) (authCode, error) {
	if assertion == "" {
		return authCode{}, &oauthError{code: "invalid_request", description: "assertion is required"}
	}

	var claims jwt.RegisteredClaims
	var client ClientConfig
	_, err := jwt.ParseWithClaims(assertion, &claims, func(t *jwt.Token) (any, error) {
		c, ok := s.client(claims.Issuer)
		if !ok || c.PublicKey == "" {
			return nil, fmt.Errorf("client %q has no public key", claims.Issuer)
		}
		client = c
		return parsePublicKey(c.PublicKey)
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return authCode{}, &oauthError{code: "invalid_grant", description: "invalid assertion: " + err.Error()}
	}

	if claims.Subject == "" {
		return authCode{}, &oauthError{code: "invalid_grant", description: "assertion has no subject"}
	}
	if client.Username != "" && client.Username != claims.Subject {
		return authCode{}, &oauthError{code: "invalid_grant", description: "user hasn't approved this consumer"}
	}
	return authCode{clientID: client.ClientID, username: claims.Subject}, nil
}

// authenticateClient checks a client's credentials. When no clients are
// configured every client is accepted.
func (s *Server) authenticateClient(clientID, secret string) (ClientConfig, error) {
	client, ok := s.client(clientID)
	if !ok {
		return ClientConfig{}, &oauthError{code: "invalid_client_id", description: "client identifier invalid"}
	}
	if client.ClientSecret != "" && !hmac.Equal([]byte(client.ClientSecret), []byte(secret)) {
		return ClientConfig{}, &oauthError{code: "invalid_client", description: "invalid client credentials"}
	}
	return client, nil
}

func (s *Server) client(clientID string) (ClientConfig, bool) {
	if clientID == "" {
		return ClientConfig{}, false
	}
	if len(s.config.Clients) == 0 {
		return ClientConfig{ClientID: clientID}, true
	}
	for _, c := range s.config.Clients {
		if c.ClientID == clientID {
			return c, true
		}
	}
	return ClientConfig{}, false
}

func (c ClientConfig) allowsRedirect(uri string) bool {
	return len(c.RedirectURIs) == 0 || slices.Contains(c.RedirectURIs, uri)
}

func (c ClientConfig) username() string {
	if c.Username == "" {
		return defaultUsername
	}
	return c.Username
}

// sign computes the token response signature over the identity URL and
// issue time.
func (s *Server) sign(data string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (s *Server) instanceURL(r *http.Request) string {
	if s.config.InstanceURL != "" {
		return s.config.InstanceURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// userID derives a stable user identity from a username.
func userID(username string) string {
	sum := sha256.Sum256([]byte(username))
	return "005" + hex.EncodeToString(sum[:])[:15]
}

func parsePublicKey(pemData string) (*rsa.PublicKey, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemData))
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	return key, nil
}
