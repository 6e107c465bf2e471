package inventory

import (
	"context"
	"log/slog"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

// Event describes one committed ledger entry. Observers receive events only
// after the transaction that produced them has committed.
type Event struct {
	Type          model.TransactionType
	TransactionID int64
	Item          model.Item
	ActorID       int64
	FromUserID    *int64
	ToUserID      *int64
	Notes         string
	Time          time.Time
}

// Observer reacts to committed inventory changes.
type Observer interface {
	HandleInventoryEvent(ctx context.Context, evt Event) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, evt Event) error

// HandleInventoryEvent calls f.
func (f ObserverFunc) HandleInventoryEvent(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

func newEvent(item model.Item, t *model.Transaction) Event {
	return Event{
		Type:          t.Type,
		TransactionID: t.ID,
		Item:          item,
		ActorID:       t.ProcessedBy,
		FromUserID:    t.FromUserID,
		ToUserID:      t.ToUserID,
		Notes:         t.Notes,
		Time:          t.Timestamp,
	}
}

// publish hands events to every observer. The change is already committed,
// so observer failures are logged and otherwise ignored.
func (m *Manager) publish(ctx context.Context, events []Event) {
	for _, evt := range events {
		for _, o := range m.observers {
			if err := o.HandleInventoryEvent(ctx, evt); err != nil {
				slog.Warn("inventory observer failed",
					"type", evt.Type, "item", evt.Item.ID, "transaction", evt.TransactionID, "error", err)
			}
		}
	}
}
