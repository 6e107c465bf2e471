package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/erazemk/izposoja/internal/inventory"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Notifier tells borrowers when equipment is checked out to them and when
// its return is recorded. It is registered as an inventory observer.
type Notifier struct {
	db     *sql.DB
	sender Sender
}

// NewNotifier returns a Notifier delivering through sender.
func NewNotifier(database *sql.DB, sender Sender) *Notifier {
	return &Notifier{db: database, sender: sender}
}

// HandleInventoryEvent sends a notice for checkouts and for checkins from a
// borrower. Other events and borrowers without an email address are skipped.
func (n *Notifier) HandleInventoryEvent(ctx context.Context, evt inventory.Event) error {
	var userID *int64
	switch evt.Type {
	case model.TransactionCheckout:
		userID = evt.ToUserID
	case model.TransactionCheckin:
		userID = evt.FromUserID
	}
	if userID == nil {
		return nil
	}

	u, err := store.GetUser(ctx, n.db, *userID)
	if err != nil {
		return err
	}
	if u == nil || u.Email == "" {
		return nil
	}

	product := "equipment"
	if evt.Item.ProductID != nil {
		p, err := store.GetProduct(ctx, n.db, *evt.Item.ProductID)
		if err != nil {
			return err
		}
		if p != nil {
			product = p.Name
		}
	}

	subject, body := Message(evt, u.Username, product)
	if err := n.sender.Send(ctx, u.Email, subject, body); err != nil {
		return err
	}
	slog.Info("borrower notified", "user", u.Username, "item", evt.Item.UUID, "type", evt.Type)
	return nil
}

// Message formats the notice for a checkout or checkin event.
func Message(evt inventory.Event, username, product string) (subject, body string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", username)

	if evt.Type == model.TransactionCheckout {
		subject = "Equipment checked out: " + product
		fmt.Fprintf(&b, "%s (label %s) was checked out to you on %s.\n",
			product, evt.Item.UUID, evt.Time.Format("2006-01-02 15:04"))
		b.WriteString("Please take good care of it and return it when you are done.\n")
	} else {
		subject = "Equipment returned: " + product
		fmt.Fprintf(&b, "The return of %s (label %s) was recorded on %s.\n",
			product, evt.Item.UUID, evt.Time.Format("2006-01-02 15:04"))
	}
	if evt.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", evt.Notes)
	}
	return subject, b.String()
}
