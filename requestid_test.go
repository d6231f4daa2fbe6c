package graceful_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/graceful"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg       []graceful.RequestIDConfig
		reqHeader map[string]string
		check     func(t *testing.T, rec *httptest.ResponseRecorder, seen string)
	}{
		"generates a UUID when none provided": {
			check: func(t *testing.T, rec *httptest.ResponseRecorder, seen string) {
				t.Helper()
				id := rec.Header().Get("X-Request-ID")
				_, err := uuid.Parse(id)
				require.NoError(t, err)
				assert.Equal(t, id, seen)
			},
		},
		"keeps the incoming id": {
			reqHeader: map[string]string{"X-Request-ID": "abc"},
			check: func(t *testing.T, rec *httptest.ResponseRecorder, seen string) {
				t.Helper()
				assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
				assert.Equal(t, "abc", seen)
			},
		},
		"replaces an oversized id": {
			reqHeader: map[string]string{"X-Request-ID": strings.Repeat("x", 129)},
			check: func(t *testing.T, rec *httptest.ResponseRecorder, seen string) {
				t.Helper()
				_, err := uuid.Parse(seen)
				require.NoError(t, err)
				assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
			},
		},
		"replaces an id with control characters": {
			reqHeader: map[string]string{"X-Request-ID": "a\tb"},
			check: func(t *testing.T, _ *httptest.ResponseRecorder, seen string) {
				t.Helper()
				assert.NotEqual(t, "a\tb", seen)
			},
		},
		"custom header and generator": {
			cfg: []graceful.RequestIDConfig{{
				Header:    "X-Trace",
				Generator: func() string { return "fixed" },
			}},
			check: func(t *testing.T, rec *httptest.ResponseRecorder, seen string) {
				t.Helper()
				assert.Equal(t, "fixed", rec.Header().Get("X-Trace"))
				assert.Empty(t, rec.Header().Get("X-Request-ID"))
				assert.Equal(t, "fixed", seen)
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var seen string
			h := graceful.RequestID(tc.cfg...)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = graceful.GetRequestID(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.reqHeader {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			tc.check(t, rec, seen)
		})
	}
}

func TestGetRequestID_missing(t *testing.T) {
	t.Parallel()

	assert.Empty(t, graceful.GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil)))
}
