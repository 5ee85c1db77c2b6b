package apiclient

import (
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records outbound request counts and latency per endpoint.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the client collectors on reg. A nil reg yields
// collectors that are recorded but never exported.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "library_api_requests_total",
			Help: "Requests sent to the library API, by endpoint and status code.",
		}, []string{"endpoint", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "library_api_request_duration_seconds",
			Help:    "Latency of library API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	if reg == nil {
		return m, nil
	}

	if err := reg.Register(m.requests); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.requests = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(m.duration); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.duration = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	return m, nil
}

// observe records one request. code 0 means the request never got a response.
func (m *Metrics) observe(endpoint string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.requests.WithLabelValues(endpoint, label).Inc()
	m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// identified lists the resources whose next path segment is an identifier,
// with the static sub-paths that share the prefix.
var identified = []struct {
	prefix      string
	placeholder string
	static      []string
}{
	{"/api/book/", "{qr}", []string{"borrow", "return"}},
	{"/api/books/", "{id}", []string{"qr_catalog"}},
	{"/api/members/", "{id}", nil},
	{"/api/reminders/last/", "{id}", nil},
}

// endpointLabel collapses identifiers in a request path so the label set stays
// bounded: "/api/book/Q123" becomes "/api/book/{qr}".
func endpointLabel(method, path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	for _, r := range identified {
		rest, ok := strings.CutPrefix(path, r.prefix)
		if !ok || rest == "" {
			continue
		}
		seg, tail, _ := strings.Cut(rest, "/")
		if slices.Contains(r.static, seg) {
			break
		}
		path = r.prefix + r.placeholder
		if tail != "" {
			path += "/" + tail
		}
		break
	}
	return method + " " + path
}
