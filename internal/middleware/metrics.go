package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
)

// MetricsAuth guards the Prometheus scrape endpoint with HTTP basic auth.
// Credentials are held as SHA-256 digests so comparisons take the same time
// whatever the length of the submitted values.
type MetricsAuth struct {
	user    [sha256.Size]byte
	pass    [sha256.Size]byte
	enabled bool
	logger  *slog.Logger
}

// NewMetricsAuth creates the scrape guard. With no username and no password
// the endpoint is left open.
func NewMetricsAuth(username, password string, logger *slog.Logger) *MetricsAuth {
	return &MetricsAuth{
		user:    sha256.Sum256([]byte(username)),
		pass:    sha256.Sum256([]byte(password)),
		enabled: username != "" || password != "",
		logger:  logger,
	}
}

// Enabled reports whether credentials are required.
func (m *MetricsAuth) Enabled() bool { return m.enabled }

// Handler wraps the scrape handler.
func (m *MetricsAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok {
			m.reject(w, r, "missing_credentials")
			return
		}
		userHash, passHash := sha256.Sum256([]byte(user)), sha256.Sum256([]byte(pass))
		// Both comparisons always run.
		match := subtle.ConstantTimeCompare(userHash[:], m.user[:]) &
			subtle.ConstantTimeCompare(passHash[:], m.pass[:])
		if match != 1 {
			m.reject(w, r, "bad_credentials")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *MetricsAuth) reject(w http.ResponseWriter, r *http.Request, reason string) {
	m.logger.Warn("metrics scrape rejected",
		"reason", reason,
		"ip", getClientIP(r),
		"request_id", GetRequestID(r.Context()),
	)

	w.Header().Set("WWW-Authenticate", `Basic realm="cleancity-metrics", charset="UTF-8"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
