package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeValidationFailed   = "validation_failed"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorKind(w, status, code, msg, "")
}

func writeErrorKind(w http.ResponseWriter, status int, code, msg string, kind domain.Kind) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
		Kind:  string(kind),
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

var kindStatus = map[domain.Kind]int{
	domain.KindInvalidArgument:    http.StatusBadRequest,
	domain.KindUnauthenticated:    http.StatusUnauthorized,
	domain.KindPermissionDenied:   http.StatusForbidden,
	domain.KindNotFound:           http.StatusNotFound,
	domain.KindConflict:           http.StatusConflict,
	domain.KindExpired:            http.StatusGone,
	domain.KindFailedPrecondition: http.StatusUnprocessableEntity,
	domain.KindUnavailable:        http.StatusServiceUnavailable,
}

// writeDomainError maps a service error onto the response. Anything that
// is not a domain error is logged and hidden behind a 500.
func writeDomainError(w http.ResponseWriter, logger *log.Logger, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		if status, ok := kindStatus[de.Kind]; ok {
			writeErrorKind(w, status, de.Code, de.Message, de.Kind)
			return
		}
	}
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("internal error: %v", err)
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}
