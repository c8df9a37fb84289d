package http

import (
	"encoding/json"
	"net/http"

	"github.com/IvanSaavedra7/parking/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidEventType   = "invalid_event_type"
	codeInvalidTimestamp   = "invalid_timestamp"
	codeInvalidDate        = "invalid_date"
	codeValidationError    = "validation_error"
	codeConflict           = "conflict"
	codeConfigurationError = "configuration_error"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch domain.Kind(err) {
	case domain.KindValidation:
		writeError(w, http.StatusBadRequest, codeValidationError, err.Error())
	case domain.KindNotFound:
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case domain.KindConflict:
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	case domain.KindConfiguration:
		writeError(w, http.StatusInternalServerError, codeConfigurationError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
