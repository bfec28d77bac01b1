package observers

import (
	"context"
	"sync"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/shopspring/decimal"
)

const dayLayout = "2006-01-02"

type TypeTotal struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// DailyReport aggregates one calendar day of events.
type DailyReport struct {
	Day          string                               `json:"day"`
	EventCounts  map[domain.EventKind]int             `json:"eventCounts"`
	Completed    map[domain.TransactionType]TypeTotal `json:"completed"`
	Created      int                                  `json:"created"`
	Pending      int                                  `json:"pendingApproval"`
	Rejected     int                                  `json:"rejected"`
	Failed       int                                  `json:"failed"`
	StateChanges int                                  `json:"stateChanges"`
}

func newDailyReport(day string) *DailyReport {
	return &DailyReport{
		Day:         day,
		EventCounts: make(map[domain.EventKind]int),
		Completed:   make(map[domain.TransactionType]TypeTotal),
	}
}

func (r *DailyReport) clone() DailyReport {
	cp := *r
	cp.EventCounts = make(map[domain.EventKind]int, len(r.EventCounts))
	for k, v := range r.EventCounts {
		cp.EventCounts[k] = v
	}
	cp.Completed = make(map[domain.TransactionType]TypeTotal, len(r.Completed))
	for k, v := range r.Completed {
		cp.Completed[k] = v
	}
	return cp
}

// ReportingObserver accumulates per-day aggregates for dashboards.
type ReportingObserver struct {
	mu       sync.RWMutex
	location *time.Location
	days     map[string]*DailyReport
}

func NewReportingObserver(location *time.Location) *ReportingObserver {
	if location == nil {
		location = time.UTC
	}
	return &ReportingObserver{location: location, days: make(map[string]*DailyReport)}
}

func (o *ReportingObserver) Name() string { return "reporting" }

func (o *ReportingObserver) Notify(_ context.Context, event domain.Event) error {
	day := event.OccurredAt.In(o.location).Format(dayLayout)

	o.mu.Lock()
	defer o.mu.Unlock()

	report, ok := o.days[day]
	if !ok {
		report = newDailyReport(day)
		o.days[day] = report
	}
	report.EventCounts[event.Kind]++

	switch event.Kind {
	case domain.EventTransactionCreated:
		report.Created++
		if event.Transaction != nil && event.Transaction.Status.AwaitingApproval() {
			report.Pending++
		}
	case domain.EventTransactionCompleted:
		if tx := event.Transaction; tx != nil {
			total := report.Completed[tx.Type]
			total.Count++
			total.Amount = total.Amount.Add(tx.Amount)
			report.Completed[tx.Type] = total
		}
	case domain.EventTransactionRejected:
		report.Rejected++
	case domain.EventTransactionFailed:
		report.Failed++
	case domain.EventAccountStateChanged:
		report.StateChanges++
	}
	return nil
}

// Daily returns the aggregates for the calendar day containing day. Days
// without events yield an empty report.
func (o *ReportingObserver) Daily(day time.Time) DailyReport {
	key := day.In(o.location).Format(dayLayout)

	o.mu.RLock()
	defer o.mu.RUnlock()

	report, ok := o.days[key]
	if !ok {
		return newDailyReport(key).clone()
	}
	return report.clone()
}
