package api

import (
	"encoding/json"
	"net/http"

	"github.com/jmcleod/mjuauth/autherr"
	"github.com/jmcleod/mjuauth/result"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps an outcome onto the HTTP status of the response.
func statusFor[T any](r result.Result[T]) int {
	switch r.Outcome {
	case result.Rejected:
		return http.StatusUnauthorized
	case result.Failed:
		switch r.Kind {
		case autherr.KindServiceNotFound:
			return http.StatusNotFound
		case autherr.KindInvalidServiceUsage:
			return http.StatusBadRequest
		default:
			return http.StatusBadGateway
		}
	default:
		return http.StatusOK
	}
}
