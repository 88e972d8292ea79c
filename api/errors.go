package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jmcleod/sharedrop/authz"
	"github.com/jmcleod/sharedrop/challenge"
	"github.com/jmcleod/sharedrop/filestore"
	"github.com/jmcleod/sharedrop/identity"
	"github.com/jmcleod/sharedrop/token"
)

const maxJSONBodySize = 1 << 20 // request bodies other than uploads

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeErrorDetails(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// mapError translates sentinel errors from the core packages into HTTP
// status codes. Provider and storage faults keep a generic message with the
// underlying diagnostic in the details field.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, token.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, authz.ErrForbidden):
		writeError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, filestore.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, filestore.ErrNotFound):
		writeError(w, http.StatusNotFound, "file not found")
	case errors.Is(err, filestore.ErrExists):
		writeError(w, http.StatusConflict, "a file with that name already exists")
	case errors.Is(err, challenge.ErrDelivery):
		writeErrorDetails(w, http.StatusInternalServerError, "failed to send code", err.Error())
	case errors.Is(err, challenge.ErrVerification):
		writeErrorDetails(w, http.StatusInternalServerError, "validation failed", err.Error())
	default:
		writeErrorDetails(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

// decodeJSON decodes a size-capped JSON request body into T. On failure it
// writes a 400 and returns ok=false.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, maxSize int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is required")
		} else {
			writeError(w, http.StatusBadRequest, "malformed JSON body")
		}
		return v, false
	}
	return v, true
}
