package graceful

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// WriteProblem writes err as an RFC 9457 problem details response. Errors
// from this package keep their per-field violations.
func WriteProblem(w http.ResponseWriter, err error) {
	problem := Problem(err)

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	//nolint:errcheck,errchkjson,gosec // best-effort after WriteHeader
	json.NewEncoder(w).Encode(problem)
}

// WriteRequestProblem is WriteProblem for a problem answering r. The
// problem is recorded for the Logger middleware, and a UUID request id
// becomes its instance ("urn:uuid:<id>") unless one is set already.
func WriteRequestProblem(w http.ResponseWriter, r *http.Request, err error) {
	pd := *Problem(err)
	if pd.Instance == "" {
		if id, perr := uuid.Parse(GetRequestID(r)); perr == nil {
			pd.Instance = id.URN()
		}
	}
	noteProblem(r, &pd)
	WriteProblem(w, &pd)
}
