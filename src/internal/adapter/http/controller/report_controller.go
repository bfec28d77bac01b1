package controller

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/observers"
)

const defaultAuditLimit = 100

type DailyReporter interface {
	Daily(day time.Time) observers.DailyReport
}

type AuditReader interface {
	List(ctx context.Context, limit int) ([]domain.AuditRecord, error)
}

type NotificationReader interface {
	For(recipientID string) []observers.Notification
}

// ReportController serves the read side fed by the event observers.
type ReportController struct {
	reports       DailyReporter
	audit         AuditReader
	notifications NotificationReader
	location      *time.Location
	now           func() time.Time
}

func NewReportController(reports DailyReporter, audit AuditReader, notifications NotificationReader, location *time.Location) *ReportController {
	if location == nil {
		location = time.UTC
	}
	return &ReportController{
		reports:       reports,
		audit:         audit,
		notifications: notifications,
		location:      location,
		now:           time.Now,
	}
}

func (c *ReportController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	handle(mux, "GET /reports/daily", c.daily, authMiddleware)
	handle(mux, "GET /audit", c.auditLog, authMiddleware)
	handle(mux, "GET /notifications", c.inbox, authMiddleware)
}

func (c *ReportController) daily(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	actor, ok := requireActor[observers.DailyReport](w, r, start)
	if !ok {
		return
	}
	if !actor.Role.AtLeast(domain.RoleEmployee) {
		respondError[observers.DailyReport](w, r, domain.NewError(domain.CodeInsufficientPrivilege, "reports require role EMPLOYEE or above"), start)
		return
	}

	day := c.now().In(c.location)
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, c.location)
		if err != nil {
			respondError[observers.DailyReport](w, r, domain.NewError(domain.CodeInvalidInput, "date must be in YYYY-MM-DD format"), start)
			return
		}
		day = parsed
	}

	respond(w, r, http.StatusOK, "Daily report retrieved", c.reports.Daily(day), start)
}

func (c *ReportController) auditLog(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	actor, ok := requireActor[[]domain.AuditRecord](w, r, start)
	if !ok {
		return
	}
	if !actor.Role.AtLeast(domain.RoleAdmin) {
		respondError[[]domain.AuditRecord](w, r, domain.NewError(domain.CodeInsufficientPrivilege, "audit log requires role ADMIN"), start)
		return
	}

	limit := defaultAuditLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError[[]domain.AuditRecord](w, r, domain.NewError(domain.CodeInvalidInput, "limit must be a positive integer"), start)
			return
		}
		limit = parsed
	}

	records, err := c.audit.List(r.Context(), limit)
	if err != nil {
		respondError[[]domain.AuditRecord](w, r, domain.PersistenceFailure("list audit records", err), start)
		return
	}
	respond(w, r, http.StatusOK, "Audit records retrieved", records, start)
}

// inbox returns the caller's notifications. Staff may read another
// recipient's inbox with ?recipientId=.
func (c *ReportController) inbox(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	actor, ok := requireActor[[]observers.Notification](w, r, start)
	if !ok {
		return
	}

	recipient := actor.ID
	if requested := strings.TrimSpace(r.URL.Query().Get("recipientId")); requested != "" && requested != actor.ID {
		if !actor.Role.AtLeast(domain.RoleEmployee) {
			respondError[[]observers.Notification](w, r, domain.NewError(domain.CodeInsufficientPrivilege, "customers can only read their own notifications"), start)
			return
		}
		recipient = requested
	}

	respond(w, r, http.StatusOK, "Notifications retrieved", c.notifications.For(recipient), start)
}
