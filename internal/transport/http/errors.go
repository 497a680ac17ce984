package http

import (
	"encoding/json"
	"net/http"

	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
)

// statusFor maps a domain error kind to an HTTP status code.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidInput, domain.KindInvalidStatus:
		return http.StatusBadRequest
	case domain.KindNotFound, domain.KindUnitNotFound:
		return http.StatusNotFound
	case domain.KindDuplicateProduct:
		return http.StatusConflict
	case domain.KindRejected:
		return http.StatusUnprocessableEntity
	case domain.KindConnection:
		return http.StatusServiceUnavailable
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError converts a domain error into an ErrorResponse.
func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	resp := ErrorResponse{
		Error:     err.Error(),
		Kind:      string(kind),
		Message:   domain.LedgerMessage(err),
		Retryable: domain.IsRetryable(err),
	}
	if kind == domain.KindInternal {
		resp.Error = "internal server error"
	}
	writeJSON(w, statusFor(kind), resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
