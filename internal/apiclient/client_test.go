package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokens struct {
	token   string
	expired int
}

func (s *stubTokens) Token() string { return s.token }

func (s *stubTokens) Expire(context.Context) {
	s.expired++
	s.token = ""
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *stubTokens) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL + "/", Language: "he"})
	tokens := &stubTokens{token: "tok-1"}
	c.SetTokenSource(tokens)
	return c, tokens
}

func TestGetJSONSendsHeaders(t *testing.T) {
	var got http.Header
	var gotQuery url.Values
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotQuery = r.URL.Query()
		assert.Equal(t, "/api/books", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id": 1}]`))
	})

	var out []map[string]int
	err := c.GetJSON(context.Background(), "/api/books", url.Values{"order_by": {"desc"}}, &out)
	require.NoError(t, err)

	assert.Equal(t, []map[string]int{{"id": 1}}, out)
	assert.Equal(t, "tok-1", got.Get("Authorization"))
	assert.Equal(t, "he", got.Get("Accept-Language"))
	assert.Len(t, got.Get("X-Request-ID"), 36)
	assert.Equal(t, "desc", gotQuery.Get("order_by"))
}

func TestNoAuthorizationWithoutToken(t *testing.T) {
	var auth []string
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Values("Authorization")
	})
	tokens.token = ""

	require.NoError(t, c.GetJSON(context.Background(), "/api/health", nil, nil))
	assert.Empty(t, auth)
}

func TestPostJSONEncodesBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Q123", body["qr_code"])
		_, _ = w.Write([]byte(`{"success": true}`))
	})

	var out struct {
		Success bool `json:"success"`
	}
	require.NoError(t, c.PostJSON(context.Background(), "/api/book/return", map[string]string{"qr_code": "Q123"}, &out))
	assert.True(t, out.Success)
}

func TestForbiddenExpiresSession(t *testing.T) {
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	hooked := 0
	c.OnExpired(func() { hooked++ })

	err := c.GetJSON(context.Background(), "/api/members", nil, nil)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 1, tokens.expired)
	assert.Equal(t, 1, hooked)
	assert.Empty(t, tokens.Token())
}

func TestAnonymousForbiddenKeepsSession(t *testing.T) {
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusForbidden)
	})

	err := c.PostJSONAnonymous(context.Background(), "/api/login", map[string]string{}, nil)
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
	assert.Equal(t, 0, tokens.expired)
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field", http.StatusBadRequest, `{"error": "Member has borrowed books"}`, "Member has borrowed books"},
		{"message field", http.StatusConflict, `{"message": "Book already borrowed"}`, "Book already borrowed"},
		{"plain text", http.StatusInternalServerError, "boom\n", "boom"},
		{"html", http.StatusBadGateway, "<html>bad gateway</html>", "Bad Gateway"},
		{"empty", http.StatusNotFound, "", "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			err := c.GetJSON(context.Background(), "/api/x", nil, nil)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestDownload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})

	data, ct, err := c.Download(context.Background(), http.MethodGet, "/api/generate_qr_pdf", url.Values{"start_id": {"1"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
	assert.Equal(t, "application/pdf", ct)
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	// Registering twice reuses the existing collectors.
	again, err := NewMetrics(reg)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/book/Q404" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	c := New(Options{BaseURL: srv.URL, Metrics: m})

	require.NoError(t, c.GetJSON(context.Background(), "/api/book/Q123", nil, nil))
	err = c.GetJSON(context.Background(), "/api/book/Q404", nil, nil)
	assert.True(t, IsNotFound(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(again.requests.WithLabelValues("GET /api/book/{id}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET /api/book/{id}", "404")))
}

func TestEndpointLabel(t *testing.T) {
	assert.Equal(t, "GET /api/members/{id}/loans", endpointLabel("GET", "/api/members/12/loans"))
	assert.Equal(t, "GET /api/books/qr_catalog", endpointLabel("GET", "/api/books/qr_catalog"))
	assert.Equal(t, "POST /api/book/borrow", endpointLabel("POST", "/api/book/borrow?x=1"))
	assert.Equal(t, "GET /api/reminders/last/{id}", endpointLabel("GET", "/api/reminders/last/7"))
	assert.Equal(t, "GET /api/book/{qr}", endpointLabel("GET", "/api/book/ABC"))
	assert.Equal(t, "GET /api/book/{qr}", endpointLabel("GET", "/api/book/LIB-00001"))
	assert.Equal(t, "POST /api/book/return", endpointLabel("POST", "/api/book/return"))
	assert.Equal(t, "PUT /api/books/{id}", endpointLabel("PUT", "/api/books/draft"))
	assert.Equal(t, "DELETE /api/members/{id}", endpointLabel("DELETE", "/api/members/abc"))
	assert.Equal(t, "GET /api/members", endpointLabel("GET", "/api/members"))
	assert.Equal(t, "GET /api/loans/history", endpointLabel("GET", "/api/loans/history?qr_code=Q1"))
}
