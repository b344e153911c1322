package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericSegment matches event IDs in raw paths.
var numericSegment = regexp.MustCompile(`/[0-9]+(/|$)`)

// unmatchedRoute labels requests no mux pattern claimed.
const unmatchedRoute = "unmatched"

// Route returns the metric label for r. After the mux has dispatched it is
// the matched pattern without its method ("/api/events/{id}"). Before that,
// or outside a mux, numeric path segments collapse to {id}.
func Route(r *http.Request) string {
	switch r.Pattern {
	case "":
		return numericSegment.ReplaceAllString(r.URL.Path, "/{id}$1")
	case "/":
		return unmatchedRoute
	}
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}

// recorder captures what the handler sent.
type recorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (rec *recorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *recorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.size += n
	return n, err
}

func (rec *recorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// Middleware records request count, latency and response size per route.
// It must wrap the ServeMux so the matched pattern is visible once the
// handler returns. Scrapes of /metrics are not counted.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		rec := &recorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		route := Route(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		HTTPResponseSize.WithLabelValues(route).Observe(float64(rec.size))
	})
}
