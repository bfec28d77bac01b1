package observers

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

type Notification struct {
	ID            string           `json:"id"`
	RecipientID   string           `json:"recipientId"`
	Kind          domain.EventKind `json:"kind"`
	TransactionID string           `json:"transactionId,omitempty"`
	AccountID     string           `json:"accountId"`
	Message       string           `json:"message"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// Notifier delivers a user-facing alert.
type Notifier interface {
	Deliver(ctx context.Context, n Notification) error
}

// Inbox is an in-process Notifier that keeps notifications per recipient.
type Inbox struct {
	mu    sync.RWMutex
	items map[string][]Notification
}

func NewInbox() *Inbox {
	return &Inbox{items: make(map[string][]Notification)}
}

func (i *Inbox) Deliver(_ context.Context, n Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items[n.RecipientID] = append(i.items[n.RecipientID], n)
	return nil
}

// For returns recipientID's notifications, newest first.
func (i *Inbox) For(recipientID string) []Notification {
	i.mu.RLock()
	defer i.mu.RUnlock()

	src := i.items[recipientID]
	out := make([]Notification, 0, len(src))
	for j := len(src) - 1; j >= 0; j-- {
		out = append(out, src[j])
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

// NotificationObserver tells account owners about outcomes touching their
// accounts.
type NotificationObserver struct {
	notifier Notifier
	printer  *message.Printer
	now      func() time.Time
}

func NewNotificationObserver(notifier Notifier, tag language.Tag) *NotificationObserver {
	return &NotificationObserver{
		notifier: notifier,
		printer:  message.NewPrinter(tag),
		now:      time.Now,
	}
}

func (o *NotificationObserver) Name() string { return "notification" }

func (o *NotificationObserver) Notify(ctx context.Context, event domain.Event) error {
	notified := make(map[string]struct{}, len(event.Accounts))
	for _, snap := range event.Accounts {
		if _, done := notified[snap.OwnerID]; done || snap.OwnerID == "" {
			continue
		}
		text, ok := o.render(event, snap)
		if !ok {
			continue
		}
		notified[snap.OwnerID] = struct{}{}

		n := Notification{
			ID:          uuid.NewString(),
			RecipientID: snap.OwnerID,
			Kind:        event.Kind,
			AccountID:   snap.ID,
			Message:     text,
			CreatedAt:   o.now().UTC(),
		}
		if event.Transaction != nil {
			n.TransactionID = event.Transaction.ID
		}
		if err := o.notifier.Deliver(ctx, n); err != nil {
			return fmt.Errorf("deliver notification to %s: %w", snap.OwnerID, err)
		}
	}
	return nil
}

func (o *NotificationObserver) render(event domain.Event, snap domain.AccountSnapshot) (string, bool) {
	if event.Kind == domain.EventAccountStateChanged {
		return o.printer.Sprintf("Your account %s is now %s.", snap.ID, string(snap.State)), true
	}

	tx := event.Transaction
	if tx == nil {
		return "", false
	}
	amount := o.money(tx.Amount)
	balance := o.money(snap.Balance)
	kind := strings.ToLower(string(tx.Type))

	switch event.Kind {
	case domain.EventTransactionCreated:
		if !tx.Status.AwaitingApproval() {
			return "", false
		}
		return o.printer.Sprintf("Your %s of %s is awaiting approval.", kind, amount), true
	case domain.EventTransactionCompleted:
		return o.printer.Sprintf("Your %s of %s has completed. Account %s balance: %s.", kind, amount, snap.ID, balance), true
	case domain.EventTransactionRejected:
		return o.printer.Sprintf("Your %s of %s was rejected.", kind, amount), true
	case domain.EventTransactionFailed:
		reason := ""
		if tx.FailureReason != nil {
			reason = *tx.FailureReason
		}
		return o.printer.Sprintf("Your %s of %s failed: %s", kind, amount, reason), true
	default:
		return "", false
	}
}

// money renders value to two places with locale grouping on the whole part.
// Rounding stays in decimal; only the integer digits reach the printer.
func (o *NotificationObserver) money(value decimal.Decimal) string {
	fixed := value.Abs().StringFixed(2)
	whole, cents, _ := strings.Cut(fixed, ".")

	sign := ""
	if value.IsNegative() && fixed != "0.00" {
		sign = "-"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + fixed
	}
	return sign + o.printer.Sprint(number.Decimal(units)) + "." + cents
}
