package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/getmockd/sfrecord/pkg/logging"
	"github.com/google/uuid"
)

// ErrStateMismatch is returned when a callback carries an unknown state value.
var ErrStateMismatch = errors.New("oauth state mismatch")

// stateTTL is how long a login attempt may take before its state expires.
const stateTTL = 10 * time.Minute

// CallbackHandler runs the web server flow. GET /login redirects the browser
// to the authorization page; GET /callback exchanges the returned code and
// stores the session.
type CallbackHandler struct {
	config     *OAuthConfig
	store      *Store
	apiVersion string
	logger     *slog.Logger

	// OnSession, when set, is called after a session has been stored.
	OnSession func(Session)

	mu     sync.Mutex
	states map[string]time.Time
	mux    *http.ServeMux
}

// NewCallbackHandler creates a handler that stores sessions in store.
func NewCallbackHandler(config *OAuthConfig, store *Store, apiVersion string, logger *slog.Logger) *CallbackHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	h := &CallbackHandler{
		config:     config,
		store:      store,
		apiVersion: apiVersion,
		logger:     logger,
		states:     make(map[string]time.Time),
		mux:        http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /login", h.handleLogin)
	h.mux.HandleFunc("GET /callback", h.handleCallback)
	return h
}

// ServeHTTP implements http.Handler.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// NewState registers and returns a fresh state value.
func (h *CallbackHandler) NewState() string {
	state := uuid.NewString()
	now := time.Now()

	h.mu.Lock()
	defer h.mu.Unlock()
	for s, issued := range h.states {
		if now.Sub(issued) > stateTTL {
			delete(h.states, s)
		}
	}
	h.states[state] = now
	return state
}

func (h *CallbackHandler) consumeState(state string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	issued, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)
	return time.Since(issued) <= stateTTL
}

func (h *CallbackHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.config.AuthCodeURL(h.NewState()), http.StatusFound)
}

func (h *CallbackHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errCode := q.Get("error"); errCode != "" {
		h.logger.Warn("authorization denied", "error", errCode, "description", q.Get("error_description"))
		http.Error(w, fmt.Sprintf("authorization failed: %s %s", errCode, q.Get("error_description")), http.StatusBadRequest)
		return
	}

	if !h.consumeState(q.Get("state")) {
		h.logger.Warn("rejected callback", "error", ErrStateMismatch)
		http.Error(w, ErrStateMismatch.Error(), http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "authorization code is missing", http.StatusBadRequest)
		return
	}

	tok, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", "error", err)
		http.Error(w, "token exchange failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	sess := tok.Session(h.apiVersion)
	h.store.Set(sess)
	h.logger.Info("session established", "instanceUrl", sess.InstanceURL, "apiVersion", sess.APIVersion)

	if h.OnSession != nil {
		h.OnSession(sess)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, "Logged in. You can close this window.")
}
