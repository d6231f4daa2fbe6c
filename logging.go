package graceful

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder captures the status code and body size a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.size += n
	return n, err
}

// Unwrap supports http.ResponseController.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Logger returns middleware that writes one line per request. Besides the
// HTTP facts it records the request id, the resource that answered, and for
// problem responses the problem title and every offending field as
// "field:kind". Client errors are logged at warn level, server errors at
// error level.
func Logger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r, st := withRequestState(r)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("latency", time.Since(start)),
				slog.Int("size", rec.size),
			}

			id, resource, problem := st.snapshot()
			if id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			if resource != "" {
				attrs = append(attrs, slog.String("resource", resource))
			}
			if problem != nil {
				attrs = append(attrs, problemAttrs(problem)...)
			}

			logger.LogAttrs(r.Context(), levelFor(rec.status), "request", attrs...)
		})
	}
}

func problemAttrs(pd *ProblemDetail) []slog.Attr {
	attrs := []slog.Attr{slog.String("problem", pd.Title)}
	if len(pd.Errors) == 0 {
		return attrs
	}
	fields := make([]string, len(pd.Errors))
	for i, v := range pd.Errors {
		fields[i] = v.Field + ":" + v.Kind
	}
	return append(attrs, slog.Any("violations", fields))
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
