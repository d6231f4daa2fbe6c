package graceful

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// BodyLimit caps request bodies at maxBytes. A declared Content-Length above
// the cap is refused with a 413 problem before the handler runs. A body that
// only turns out too long while ValidatedObject reads it fails there with
// ErrBodyTooLarge.
func BodyLimit(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				WriteRequestProblem(w, r, fmt.Errorf("%w: %d bytes declared, limit is %d",
					ErrBodyTooLarge, r.ContentLength, maxBytes))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// readRecorder keeps the first read error of a body. Some decoders flatten
// read errors into their own messages, which hides an exceeded body limit.
type readRecorder struct {
	r   io.Reader
	err error
}

func (rr *readRecorder) Read(p []byte) (int, error) {
	n, err := rr.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && rr.err == nil {
		rr.err = err
	}
	return n, err
}

// tooLarge reports whether the body hit a BodyLimit.
func (rr *readRecorder) tooLarge() (*http.MaxBytesError, bool) {
	var mbe *http.MaxBytesError
	ok := errors.As(rr.err, &mbe)
	return mbe, ok
}
