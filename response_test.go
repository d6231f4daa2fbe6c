package graceful_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/graceful"
)

func TestWriteProblem(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err        error
		wantStatus int
		wantErrors []graceful.Violation
	}{
		"deserialization": {
			err:        &graceful.DeserializationError{Missing: []string{"name"}},
			wantStatus: http.StatusBadRequest,
			wantErrors: []graceful.Violation{
				{Field: "name", Kind: graceful.KindMissing, Message: "field is required"},
			},
		},
		"missing params": {
			err:        &graceful.MissingParamsError{Names: []string{"a", "b"}},
			wantStatus: http.StatusBadRequest,
			wantErrors: []graceful.Violation{
				{Field: "a", Kind: graceful.KindMissing, Message: "parameter is required"},
				{Field: "b", Kind: graceful.KindMissing, Message: "parameter is required"},
			},
		},
		"plain error": {
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			graceful.WriteProblem(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			var pd graceful.ProblemDetail
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&pd))
			assert.Equal(t, tc.wantStatus, pd.Status)
			assert.Equal(t, tc.wantErrors, pd.Errors)
		})
	}
}

func TestWriteRequestProblem_instance(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		id   string
		err  error
		want string
	}{
		"uuid request id": {
			id:   "9b2f4c1e-3a6d-4e8b-9c7a-1f2e3d4c5b6a",
			err:  &graceful.MissingParamsError{Names: []string{"q"}},
			want: "urn:uuid:9b2f4c1e-3a6d-4e8b-9c7a-1f2e3d4c5b6a",
		},
		"other request id": {
			id:  "req-1",
			err: &graceful.MissingParamsError{Names: []string{"q"}},
		},
		"explicit instance wins": {
			id:   "9b2f4c1e-3a6d-4e8b-9c7a-1f2e3d4c5b6a",
			err:  &graceful.ProblemDetail{Status: http.StatusConflict, Instance: "/users/1"},
			want: "/users/1",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := graceful.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				graceful.WriteRequestProblem(w, r, tc.err)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", tc.id)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			var pd graceful.ProblemDetail
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&pd))
			assert.Equal(t, tc.want, pd.Instance)
		})
	}
}
