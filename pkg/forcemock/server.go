package forcemock

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/getmockd/sfrecord/internal/id"
	"github.com/getmockd/sfrecord/pkg/logging"
)

// RequestIDHeader carries the request identifier on every response.
const RequestIDHeader = "X-Request-Id"

// versionPattern matches the version path segment, e.g. v59.0.
var versionPattern = regexp.MustCompile(`^v\d+\.\d+$`)

// Server is an in-memory REST backend.
type Server struct {
	config  Config
	store   *Store
	grants  *grants
	cursors *cursors
	secret  []byte
	logger  *slog.Logger
	mux     *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSigningKey sets the HMAC key access tokens are signed with. By default a
// random key is generated, so tokens do not survive a restart.
func WithSigningKey(key []byte) Option {
	return func(s *Server) {
		if len(key) > 0 {
			s.secret = key
		}
	}
}

// NewServer creates a server from cfg. When cfg has no objects the default
// object set is used. Seed records are inserted in order; "@ref" values are
// replaced with the identity of the seed record with that ref.
func NewServer(cfg Config, opts ...Option) (*Server, error) {
	if len(cfg.Objects) == 0 {
		cfg.Objects = DefaultObjects()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{
		config:  cfg,
		store:   newStore(cfg.Objects, id.NewGenerator(id.DefaultInstance)),
		grants:  newGrants(),
		cursors: newCursors(),
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.secret == nil {
		s.secret = make([]byte, 32)
		if _, err := rand.Read(s.secret); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
	}

	if err := s.seed(cfg.Records); err != nil {
		return nil, err
	}

	s.mux = http.NewServeMux()
	s.routes()
	return s, nil
}

// Store returns the server's record store.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the HTTP handler serving the REST and OAuth endpoints.
func (s *Server) Handler() http.Handler {
	return s.withRequestLog(s.mux)
}

func (s *Server) routes() {
	const data = "/services/data/{version}"

	s.mux.HandleFunc("GET "+data+"/query/{$}", s.authorized(s.handleQuery))
	s.mux.HandleFunc("GET "+data+"/query", s.authorized(s.handleQuery))
	s.mux.HandleFunc("GET "+data+"/query/{locator}", s.authorized(s.handleQueryMore))

	s.mux.HandleFunc("POST "+data+"/sobjects/{type}", s.authorized(s.handleCreate))
	s.mux.HandleFunc("GET "+data+"/sobjects/{type}/{id}", s.authorized(s.handleRetrieve))
	s.mux.HandleFunc("PATCH "+data+"/sobjects/{type}/{id}", s.authorized(s.handleUpdate))
	s.mux.HandleFunc("POST "+data+"/sobjects/{type}/{id}", s.authorized(s.handleOverride))
	s.mux.HandleFunc("DELETE "+data+"/sobjects/{type}/{id}", s.authorized(s.handleDelete))

	s.mux.HandleFunc("GET /services/oauth2/authorize", s.handleAuthorize)
	s.mux.HandleFunc("POST /services/oauth2/token", s.handleToken)
}

// authorized checks the API version and the access token before calling next.
func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !versionPattern.MatchString(r.PathValue("version")) {
			writeError(w, notFound())
			return
		}

		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, &APIError{Status: http.StatusUnauthorized, Code: CodeInvalidSession, Message: "Session expired or invalid"})
			return
		}
		if _, err := s.verifyAccessToken(token); err != nil {
			s.logger.Debug("rejected access token", "error", err)
			writeError(w, &APIError{Status: http.StatusUnauthorized, Code: CodeInvalidSession, Message: "Session expired or invalid"})
			return
		}
		next(w, r)
	}
}

// bearerToken extracts the token from an "OAuth <token>" or
// "Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || token == "" {
		return "", false
	}
	if !strings.EqualFold(scheme, "OAuth") && !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return token, true
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLog tags each request with an identifier and logs it.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			"requestId", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// seed inserts the configured records, resolving "@ref" references.
func (s *Server) seed(records []SeedRecord) error {
	refs := make(map[string]string)
	for i, rec := range records {
		fields := make(map[string]any, len(rec.Fields))
		for k, v := range rec.Fields {
			if str, ok := v.(string); ok && strings.HasPrefix(str, "@") {
				target, ok := refs[str[1:]]
				if !ok {
					return fmt.Errorf("records[%d]: unknown reference %q", i, str)
				}
				v = target
			}
			fields[k] = v
		}

		rid, err := s.store.Insert(rec.Type, fields)
		if err != nil {
			return fmt.Errorf("records[%d] %s: %w", i, rec.Type, err)
		}
		if rec.Ref != "" {
			if _, dup := refs[rec.Ref]; dup {
				return fmt.Errorf("records[%d]: duplicate ref %q", i, rec.Ref)
			}
			refs[rec.Ref] = rid
		}
	}
	if len(records) > 0 {
		s.logger.Debug("seeded records", "count", len(records))
	}
	return nil
}
