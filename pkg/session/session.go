package session

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
)

// DefaultAPIVersion is the REST API version used when none is configured.
const DefaultAPIVersion = "59.0"

// ErrNoSession is returned when no usable session is available.
var ErrNoSession = errors.New("no session: access token and instance URL are required")

// Session is the ambient state every request needs: who we are and where the
// API lives.
type Session struct {
	AccessToken  string `json:"accessToken" yaml:"-"`
	InstanceURL  string `json:"instanceUrl" yaml:"instanceUrl"`
	APIVersion   string `json:"apiVersion" yaml:"apiVersion"`
	RefreshToken string `json:"refreshToken,omitempty" yaml:"-"`
}

// Validate reports whether the session can authorize requests.
func (s Session) Validate() error {
	if s.AccessToken == "" || s.InstanceURL == "" {
		return ErrNoSession
	}
	return nil
}

// BaseURL returns <instanceUrl>/services/data/v<apiVersion>.
func (s Session) BaseURL() string {
	version := strings.TrimPrefix(s.APIVersion, "v")
	if version == "" {
		version = DefaultAPIVersion
	}
	return strings.TrimRight(s.InstanceURL, "/") + "/services/data/v" + version
}

// Source supplies the current session. Implementations are consulted on every
// request, so a refreshed token is picked up without rebuilding clients.
type Source interface {
	Session(ctx context.Context) (Session, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(ctx context.Context) (Session, error)

// Session implements Source.
func (f SourceFunc) Session(ctx context.Context) (Session, error) {
	return f(ctx)
}

// Static returns a Source that always yields s.
func Static(s Session) Source {
	return SourceFunc(func(context.Context) (Session, error) {
		if err := s.Validate(); err != nil {
			return Session{}, err
		}
		return s, nil
	})
}

// Store is a mutable Source. It is safe for concurrent use; Set swaps the
// session seen by all subsequent requests.
type Store struct {
	mu      sync.RWMutex
	session Session
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the current session.
func (s *Store) Set(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
}

// Clear removes the current session.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{}
}

// Session implements Source.
func (s *Store) Session(context.Context) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.session.Validate(); err != nil {
		return Session{}, err
	}
	return s.session, nil
}

// EnvPrefix is the default environment variable prefix used by Env.
const EnvPrefix = "SFRECORD"

// Env returns a Source that reads <prefix>_ACCESS_TOKEN, <prefix>_INSTANCE_URL
// and <prefix>_API_VERSION from the environment on every call.
func Env(prefix string) Source {
	if prefix == "" {
		prefix = EnvPrefix
	}
	return SourceFunc(func(context.Context) (Session, error) {
		s := Session{
			AccessToken: os.Getenv(prefix + "_ACCESS_TOKEN"),
			InstanceURL: os.Getenv(prefix + "_INSTANCE_URL"),
			APIVersion:  os.Getenv(prefix + "_API_VERSION"),
		}
		if s.APIVersion == "" {
			s.APIVersion = DefaultAPIVersion
		}
		if err := s.Validate(); err != nil {
			return Session{}, err
		}
		return s, nil
	})
}
