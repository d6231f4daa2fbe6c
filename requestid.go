package graceful

import (
	"context"
	"net/http"
	"sync"
	"unicode"

	"github.com/google/uuid"
)

// maxRequestIDLen bounds request ids accepted from clients.
const maxRequestIDLen = 128

type requestStateKey struct{}

// requestState collects what middleware and resource handlers learn about a
// request while it is served: its id, the resource that answered it, and
// the problem returned to the client, if any.
type requestState struct {
	mu       sync.Mutex
	id       string
	resource string
	problem  *ProblemDetail
}

// withRequestState returns r carrying a request state, reusing the one an
// outer middleware already attached.
func withRequestState(r *http.Request) (*http.Request, *requestState) {
	if st := requestStateOf(r); st != nil {
		return r, st
	}
	st := &requestState{}
	return r.WithContext(context.WithValue(r.Context(), requestStateKey{}, st)), st
}

func requestStateOf(r *http.Request) *requestState {
	st, _ := r.Context().Value(requestStateKey{}).(*requestState)
	return st
}

func noteResource(r *http.Request, name string) {
	if st := requestStateOf(r); st != nil {
		st.mu.Lock()
		st.resource = name
		st.mu.Unlock()
	}
}

func noteProblem(r *http.Request, pd *ProblemDetail) {
	if st := requestStateOf(r); st != nil {
		st.mu.Lock()
		st.problem = pd
		st.mu.Unlock()
	}
}

func (st *requestState) snapshot() (id, resource string, problem *ProblemDetail) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.id, st.resource, st.problem
}

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	Header    string        // default: "X-Request-ID"
	Generator func() string // default: random UUID
}

// RequestID returns middleware that assigns an id to each request. A client
// supplied id is kept when it is printable and at most 128 bytes long;
// otherwise a new one is generated. The id is echoed in the response header,
// logged by Logger, and becomes the instance of UUID-identified problems.
func RequestID(cfg ...RequestIDConfig) Middleware {
	c := RequestIDConfig{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}
	if len(cfg) > 0 {
		if cfg[0].Header != "" {
			c.Header = cfg[0].Header
		}
		if cfg[0].Generator != nil {
			c.Generator = cfg[0].Generator
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(c.Header)
			if !acceptableRequestID(id) {
				id = c.Generator()
			}

			r, st := withRequestState(r)
			st.mu.Lock()
			st.id = id
			st.mu.Unlock()

			w.Header().Set(c.Header, id)
			next.ServeHTTP(w, r)
		})
	}
}

// GetRequestID returns the id RequestID assigned to r, or "".
func GetRequestID(r *http.Request) string {
	st := requestStateOf(r)
	if st == nil {
		return ""
	}
	id, _, _ := st.snapshot()
	return id
}

func acceptableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		if !unicode.IsPrint(c) {
			return false
		}
	}
	return true
}
