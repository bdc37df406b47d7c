package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// refreshingSource is a Source backed by an oauth2 token source that renews
// the access token through the refresh token grant.
type refreshingSource struct {
	ts         oauth2.TokenSource
	apiVersion string

	mu          sync.Mutex
	instanceURL string
}

// NewRefreshingSource returns a Source that serves tok until it is maxAge old
// and then exchanges its refresh token for a new one. The token endpoint sends
// no expiry, so maxAge of zero never refreshes. Refresh requests run under ctx.
func NewRefreshingSource(ctx context.Context, config *OAuthConfig, tok *Token, apiVersion string, maxAge time.Duration) Source {
	r := &refresher{
		ctx:          ctx,
		config:       config,
		refreshToken: tok.RefreshToken,
		maxAge:       maxAge,
	}
	return &refreshingSource{
		ts:          oauth2.ReuseTokenSource(toOAuth2(tok, maxAge), r),
		apiVersion:  apiVersion,
		instanceURL: tok.InstanceURL,
	}
}

// Session implements Source.
func (s *refreshingSource) Session(context.Context) (Session, error) {
	t, err := s.ts.Token()
	if err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tok, err := fromOAuth2(t, s.instanceURL)
	if err != nil {
		return Session{}, err
	}
	s.instanceURL = tok.InstanceURL
	return tok.Session(s.apiVersion), nil
}

// refresher is the oauth2.TokenSource consulted once the cached token expires.
// ReuseTokenSource serializes calls to Token.
type refresher struct {
	ctx          context.Context
	config       *OAuthConfig
	refreshToken string
	maxAge       time.Duration
}

func (r *refresher) Token() (*oauth2.Token, error) {
	if r.refreshToken == "" {
		return nil, ErrNoSession
	}
	tok, err := r.config.Refresh(r.ctx, r.refreshToken)
	if err != nil {
		return nil, err
	}
	r.refreshToken = tok.RefreshToken
	return toOAuth2(tok, r.maxAge), nil
}
