package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/adapter/http/middleware"
	"github.com/api-sage/core-banking-engine/src/internal/commons"
	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/logger"
)

type validator interface {
	Validate() error
}

func handle(mux *http.ServeMux, pattern string, fn http.HandlerFunc, authMiddleware func(http.Handler) http.Handler) {
	var handler http.Handler = fn
	if authMiddleware != nil {
		handler = authMiddleware(handler)
	}
	mux.Handle(pattern, handler)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respond[T any](w http.ResponseWriter, r *http.Request, status int, message string, data T, start time.Time) {
	response := commons.SuccessResponse(message, data)
	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

// respondError maps a domain error code to its HTTP status. Infrastructure
// detail is logged but not returned.
func respondError[T any](w http.ResponseWriter, r *http.Request, err error, start time.Time) {
	status := statusFor(err)
	code := domain.CodeOf(err)
	if code == "" {
		code = domain.CodePersistenceFailure
	}

	var response commons.Response[T]
	if status >= http.StatusInternalServerError {
		logError(r, err, logger.Fields{"code": string(code)})
		response = commons.CodedErrorResponse[T](string(code), http.StatusText(status))
	} else {
		response = commons.CodedErrorResponse[T](string(code), messageFor(code), describe(err))
	}
	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

func statusFor(err error) int {
	switch domain.CodeOf(err) {
	case domain.CodeInvalidInput, domain.CodeNonPositiveAmount:
		return http.StatusBadRequest
	case domain.CodeInsufficientPrivilege:
		return http.StatusForbidden
	case domain.CodeUnknownAccount, domain.CodeUnknownTransaction:
		return http.StatusNotFound
	case domain.CodeIllegalStateOperation, domain.CodeInvalidTransition:
		return http.StatusConflict
	case domain.CodeLimitExceeded:
		return http.StatusUnprocessableEntity
	case domain.CodePersistenceFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(code domain.ErrorCode) string {
	switch code {
	case domain.CodeInvalidInput:
		return "validation failed"
	case domain.CodeNonPositiveAmount:
		return "amount must be greater than zero"
	case domain.CodeInsufficientPrivilege:
		return "insufficient privilege"
	case domain.CodeUnknownAccount:
		return "Account not found"
	case domain.CodeUnknownTransaction:
		return "Transaction not found"
	case domain.CodeIllegalStateOperation:
		return "operation not allowed in current account state"
	case domain.CodeInvalidTransition:
		return "invalid transition"
	case domain.CodeLimitExceeded:
		return "limit exceeded"
	default:
		return "request failed"
	}
}

func describe(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

// decode reads the JSON body into dst and validates it.
func decode[T any](w http.ResponseWriter, r *http.Request, dst validator, start time.Time) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logError(r, err, nil)
		response := commons.CodedErrorResponse[T](string(domain.CodeInvalidInput), "invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return false
	}
	logRequest(r, dst)

	if err := dst.Validate(); err != nil {
		logError(r, err, nil)
		response := commons.CodedErrorResponse[T](string(domain.CodeInvalidInput), "validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return false
	}
	return true
}

func requireActor[T any](w http.ResponseWriter, r *http.Request, start time.Time) (domain.Actor, bool) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		response := commons.ErrorResponse[T]("unauthorized")
		writeJSON(w, http.StatusUnauthorized, response)
		logResponse(r, http.StatusUnauthorized, response, start)
		return domain.Actor{}, false
	}
	return actor, true
}
