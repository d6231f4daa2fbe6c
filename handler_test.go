package graceful_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/graceful"
)

func TestResource_Handler(t *testing.T) {
	t.Parallel()

	h := newUserResource().Handler(graceful.Handlers{
		http.MethodGet: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	})

	tests := map[string]struct {
		method     string
		wantStatus int
		wantAllow  string
	}{
		"dispatches to handler": {
			method:     http.MethodGet,
			wantStatus: http.StatusTeapot,
		},
		"options describes": {
			method:     http.MethodOptions,
			wantStatus: http.StatusOK,
			wantAllow:  "GET, POST, OPTIONS",
		},
		"unhandled method": {
			method:     http.MethodDelete,
			wantStatus: http.StatusMethodNotAllowed,
			wantAllow:  "GET, POST, OPTIONS",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, "/v1/users", nil))

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantAllow, rec.Header().Get("Allow"))
		})
	}
}

func serveJSON(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestResource_CreateHandler(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		created    graceful.Object
		location   string
		body       string
		wantStatus int
		wantBody   bool
	}{
		"location and body": {
			created:    graceful.Map{"id": 7, "name": "Ann", "age": 30},
			location:   "/v1/users/7",
			body:       `{"name":"Ann","age":30}`,
			wantStatus: http.StatusCreated,
			wantBody:   true,
		},
		"no location no body": {
			body:       `{"name":"Ann","age":30}`,
			wantStatus: http.StatusCreated,
		},
		"partial body is rejected": {
			body:       `{"name":"Ann"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var got graceful.Object
			h := newUserResource().CreateHandler(
				func(_ *http.Request, _ map[string]any, obj graceful.Object) (graceful.Object, string, error) {
					got = obj
					return tc.created, tc.location, nil
				},
			)

			rec := serveJSON(h, http.MethodPost, "/v1/users", tc.body)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.location, rec.Header().Get("Location"))
			if tc.wantStatus != http.StatusCreated {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, graceful.Map{"name": "Ann", "age": 30}, got)
			if !tc.wantBody {
				assert.Zero(t, rec.Body.Len())
				return
			}
			env := decodeEnvelope(t, rec)
			assert.Equal(t, map[string]any{"id": float64(7), "name": "Ann", "age": float64(30)}, env["content"])
		})
	}
}

func TestResource_UpdateHandler(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		partial    bool
		body       string
		result     graceful.Object
		wantStatus int
		wantObj    graceful.Object
	}{
		"full update answers no content": {
			body:       `{"name":"Ann","age":31}`,
			wantStatus: http.StatusNoContent,
			wantObj:    graceful.Map{"name": "Ann", "age": 31},
		},
		"full update requires every field": {
			body:       `{"age":31}`,
			wantStatus: http.StatusBadRequest,
		},
		"partial update accepts a subset": {
			partial:    true,
			body:       `{"age":31}`,
			wantStatus: http.StatusNoContent,
			wantObj:    graceful.Map{"age": 31},
		},
		"partial update still validates": {
			partial:    true,
			body:       `{"age":-1}`,
			wantStatus: http.StatusBadRequest,
		},
		"updated instance is rendered": {
			partial:    true,
			body:       `{"age":31}`,
			result:     graceful.Map{"id": 1, "name": "Ann", "age": 31},
			wantStatus: http.StatusOK,
			wantObj:    graceful.Map{"age": 31},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var got graceful.Object
			h := newUserResource().UpdateHandler(tc.partial,
				func(_ *http.Request, _ map[string]any, obj graceful.Object) (graceful.Object, error) {
					got = obj
					return tc.result, nil
				},
			)

			rec := serveJSON(h, http.MethodPut, "/v1/users/1", tc.body)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantObj, got)
			if tc.wantStatus == http.StatusOK {
				env := decodeEnvelope(t, rec)
				assert.Equal(t, "Ann", env["content"].(map[string]any)["name"])
			}
		})
	}
}

func TestResource_DeleteHandler(t *testing.T) {
	t.Parallel()

	gone := errors.New("gone")
	h := newUserResource().DeleteHandler(func(req *http.Request, _ map[string]any) error {
		if req.URL.Path == "/v1/users/2" {
			return &graceful.ProblemDetail{Status: http.StatusNotFound, Title: "Not Found"}
		}
		if req.URL.Path == "/v1/users/3" {
			return gone
		}
		return nil
	})

	assert.Equal(t, http.StatusNoContent, serveJSON(h, http.MethodDelete, "/v1/users/1", "").Code)
	assert.Equal(t, http.StatusNotFound, serveJSON(h, http.MethodDelete, "/v1/users/2", "").Code)
	assert.Equal(t, http.StatusInternalServerError, serveJSON(h, http.MethodDelete, "/v1/users/3", "").Code)
	assert.Equal(t, http.StatusBadRequest, serveJSON(h, http.MethodDelete, "/v1/users/1?indent=x", "").Code)
}

func TestResource_RetrieveHandler(t *testing.T) {
	t.Parallel()

	h := newUserResource().RetrieveHandler(func(_ *http.Request, _, meta map[string]any) (graceful.Object, error) {
		meta["cached"] = true
		meta["params"] = "overwritten"
		return graceful.Map{"id": 1, "name": "Ann", "age": 30}, nil
	})

	rec := serveJSON(h, http.MethodGet, "/v1/users/1?q=x", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	env := decodeEnvelope(t, rec)
	assert.Equal(t, map[string]any{
		"cached": true,
		"params": map[string]any{"indent": float64(0), "q": "x"},
	}, env["meta"])
	assert.Equal(t, map[string]any{"id": float64(1), "name": "Ann", "age": float64(30)}, env["content"])
}

func TestResource_PaginatedListHandler(t *testing.T) {
	t.Parallel()

	users := []graceful.Object{
		graceful.Map{"id": 1, "name": "Ann", "age": 30},
		graceful.Map{"id": 2, "name": "Bob", "age": 40},
		graceful.Map{"id": 3, "name": "Cy", "age": 50},
	}

	r := newUserResource(graceful.WithPagination())
	paged := r.PaginatedListHandler(func(_ *http.Request, params, meta map[string]any) ([]graceful.Object, error) {
		size, page := params["page_size"].(int), params["page"].(int)
		start := min(page*size, len(users))
		end := min(start+size, len(users))
		meta["has_more"] = end < len(users)
		return users[start:end], nil
	})

	tests := map[string]struct {
		query     string
		wantCount int
		wantPrev  any
		wantNext  any
	}{
		"first page": {
			query:     "?page_size=2",
			wantCount: 2,
			wantPrev:  nil,
			wantNext:  "page=1&page_size=2",
		},
		"last page": {
			query:     "?page_size=2&page=1",
			wantCount: 1,
			wantPrev:  "page=0&page_size=2",
			wantNext:  nil,
		},
		"blank page uses default": {
			query:     "?page_size=5&page=",
			wantCount: 3,
			wantPrev:  nil,
			wantNext:  nil,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := serveJSON(paged, http.MethodGet, "/v1/users"+tc.query, "")
			require.Equal(t, http.StatusOK, rec.Code)

			env := decodeEnvelope(t, rec)
			meta := env["meta"].(map[string]any)
			assert.Len(t, env["content"], tc.wantCount)
			assert.Equal(t, tc.wantPrev, meta["prev"])
			assert.Equal(t, tc.wantNext, meta["next"])
			assert.Contains(t, meta, "params")
		})
	}

	unpaged := r.ListHandler(func(*http.Request, map[string]any, map[string]any) ([]graceful.Object, error) {
		return users, nil
	})
	env := decodeEnvelope(t, serveJSON(unpaged, http.MethodGet, "/v1/users", ""))
	assert.NotContains(t, env["meta"], "next")
	assert.Len(t, env["content"], 3)
}
