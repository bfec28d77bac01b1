package controller

import (
	"net/http"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/adapter/http/middleware"
	"github.com/api-sage/core-banking-engine/src/internal/logger"
)

// requestFields identifies the call and, once auth has run, the caller.
func requestFields(r *http.Request) logger.Fields {
	fields := logger.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}
	if r.URL.RawQuery != "" {
		fields["query"] = r.URL.RawQuery
	}
	if actor, ok := middleware.ActorFrom(r.Context()); ok {
		fields["actorId"] = actor.ID
		fields["actorRole"] = string(actor.Role)
	}
	return fields
}

func logRequest(r *http.Request, payload any) {
	fields := requestFields(r)
	if payload != nil {
		fields["payload"] = logger.SanitizePayload(payload)
	}
	logger.Info("http request", fields)
}

// logResponse logs client errors at warn so that rejected operations stand
// out from successful traffic.
func logResponse(r *http.Request, status int, payload any, start time.Time) {
	fields := requestFields(r)
	fields["status"] = status
	fields["durationMs"] = time.Since(start).Milliseconds()
	fields["response"] = logger.SanitizePayload(payload)

	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		logger.Warn("http response", fields)
		return
	}
	logger.Info("http response", fields)
}

func logError(r *http.Request, err error, extra logger.Fields) {
	fields := requestFields(r)
	for k, v := range extra {
		fields[k] = v
	}
	logger.Error("http handler error", err, fields)
}
