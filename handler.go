package graceful

import (
	"maps"
	"net/http"
	"strings"
)

// Handlers maps HTTP methods to the handlers serving them.
type Handlers map[string]http.Handler

// Handler dispatches requests to hs by method. OPTIONS is served by
// OptionsHandler unless hs has its own. A method without a handler gets a
// 405 problem and an Allow header listing the declared methods. A limit set
// with WithRateLimit applies to every method.
func (r *Resource) Handler(hs Handlers) http.Handler {
	options := r.OptionsHandler()
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if h, ok := hs[req.Method]; ok {
			h.ServeHTTP(w, req)
			return
		}
		if req.Method == http.MethodOptions {
			options.ServeHTTP(w, req)
			return
		}

		w.Header().Set("Allow", strings.Join(r.Methods(), ", "))
		WriteRequestProblem(w, req, &ProblemDetail{
			Type:   "about:blank",
			Title:  http.StatusText(http.StatusMethodNotAllowed),
			Status: http.StatusMethodNotAllowed,
			Detail: req.Method + " is not supported by " + r.name,
		})
	})
	if r.limiter != nil {
		h = r.limiter(h)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		noteResource(req, r.name)
		h.ServeHTTP(w, req)
	})
}

// RetrieveFunc loads the instance a request addresses. Entries it adds to
// meta are returned next to the decoded params.
type RetrieveFunc func(req *http.Request, params, meta map[string]any) (Object, error)

// ListFunc loads the instances a request addresses. Setting
// meta["has_more"] to false tells PaginatedListHandler there is no next page.
type ListFunc func(req *http.Request, params, meta map[string]any) ([]Object, error)

// CreateFunc stores a validated instance. It returns the location of the new
// instance, or "", and the stored instance to render, or nil for no body.
type CreateFunc func(req *http.Request, params map[string]any, obj Object) (created Object, location string, err error)

// UpdateFunc applies a validated instance. It returns the updated instance
// to render, or nil to answer 204 No Content.
type UpdateFunc func(req *http.Request, params map[string]any, obj Object) (Object, error)

// DeleteFunc removes the instance a request addresses.
type DeleteFunc func(req *http.Request, params map[string]any) error

// RetrieveHandler answers 200 with the envelope of the instance fn loads.
func (r *Resource) RetrieveHandler(fn RetrieveFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		params, ok := r.decodeParams(w, req)
		if !ok {
			return
		}
		meta := map[string]any{}
		obj, err := fn(req, params, meta)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		env, err := r.Retrieve(params, obj)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		r.respond(w, req, http.StatusOK, params, withMeta(env, meta))
	})
}

// ListHandler answers 200 with the envelope of the instances fn loads.
func (r *Resource) ListHandler(fn ListFunc) http.Handler {
	return r.list(fn, false)
}

// PaginatedListHandler is ListHandler with page, page_size, prev and next
// added to the meta. The resource must declare the pagination parameters,
// see WithPagination.
func (r *Resource) PaginatedListHandler(fn ListFunc) http.Handler {
	return r.list(fn, true)
}

func (r *Resource) list(fn ListFunc, paginate bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		params, ok := r.decodeParams(w, req)
		if !ok {
			return
		}
		meta := map[string]any{}
		objs, err := fn(req, params, meta)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		env, err := r.List(params, objs)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		env = withMeta(env, meta)
		if paginate {
			AddPaginationMeta(params, env.Meta)
		}
		r.respond(w, req, http.StatusOK, params, env)
	})
}

// CreateHandler validates a complete representation and passes it to fn.
// It answers 201 with a Location header when fn returns one, and with the
// envelope of the created instance when fn returns it.
func (r *Resource) CreateHandler(fn CreateFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		params, obj, ok := r.decodeBody(w, req, false)
		if !ok {
			return
		}
		created, location, err := fn(req, params, obj)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		if location != "" {
			w.Header().Set("Location", location)
		}
		r.respondObject(w, req, http.StatusCreated, params, created)
	})
}

// UpdateHandler validates a representation and passes it to fn. A partial
// handler, as for PATCH, accepts any subset of the writable fields; a full
// one, as for PUT, requires all of them. It answers 204, or 200 with the
// envelope of the instance fn returns.
func (r *Resource) UpdateHandler(partial bool, fn UpdateFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		params, obj, ok := r.decodeBody(w, req, partial)
		if !ok {
			return
		}
		updated, err := fn(req, params, obj)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		r.respondObject(w, req, http.StatusOK, params, updated)
	})
}

// DeleteHandler calls fn and answers 204.
func (r *Resource) DeleteHandler(fn DeleteFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		params, ok := r.decodeParams(w, req)
		if !ok {
			return
		}
		if err := fn(req, params); err != nil {
			r.fail(w, req, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func (r *Resource) decodeParams(w http.ResponseWriter, req *http.Request) (map[string]any, bool) {
	params, err := r.RequireParams(req.URL.Query())
	if err != nil {
		WriteRequestProblem(w, req, err)
		return nil, false
	}
	return params, true
}

func (r *Resource) decodeBody(w http.ResponseWriter, req *http.Request, partial bool) (map[string]any, Object, bool) {
	params, ok := r.decodeParams(w, req)
	if !ok {
		return nil, nil, false
	}
	obj, err := r.ValidatedObject(req.Header.Get("Content-Type"), req.Body, partial)
	if err != nil {
		WriteRequestProblem(w, req, err)
		return nil, nil, false
	}
	return params, obj, true
}

func (r *Resource) fail(w http.ResponseWriter, req *http.Request, err error) {
	if Problem(err).Status >= http.StatusInternalServerError {
		r.logger.ErrorContext(req.Context(), "request failed", "resource", r.name, "err", err)
	}
	WriteRequestProblem(w, req, err)
}

// respondObject renders obj with status, or answers 204 for a nil obj.
func (r *Resource) respondObject(w http.ResponseWriter, req *http.Request, status int, params map[string]any, obj Object) {
	if obj == nil {
		if status == http.StatusOK {
			status = http.StatusNoContent
		}
		w.WriteHeader(status)
		return
	}
	env, err := r.Retrieve(params, obj)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	r.respond(w, req, status, params, env)
}

func (r *Resource) respond(w http.ResponseWriter, req *http.Request, status int, params map[string]any, env *Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := Render(w, params, env); err != nil {
		r.logger.ErrorContext(req.Context(), "render failed", "resource", r.name, "err", err)
	}
}

// withMeta merges the handler's meta into the envelope. params always wins.
func withMeta(env *Envelope, meta map[string]any) *Envelope {
	maps.Copy(meta, env.Meta)
	env.Meta = meta
	return env
}
