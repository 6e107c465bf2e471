package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/config"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/inventory"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

type sent struct {
	to, subject, body string
}

type fakeSender struct {
	messages []sent
	err      error
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, sent{to, subject, body})
	return nil
}

func TestMailerBuildsEmail(t *testing.T) {
	m := NewMailer(&config.Config{
		SMTPHost: "mail.example.org",
		SMTPPort: 2525,
		SMTPUser: "bot",
		SMTPFrom: "izposoja@example.org",
	})

	var got *email.Email
	var gotAddr string
	var gotAuth smtp.Auth
	m.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		got, gotAddr, gotAuth = e, addr, auth
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "ana@example.org", "Hi", "Body"))
	require.Equal(t, "mail.example.org:2525", gotAddr)
	require.NotNil(t, gotAuth)
	require.Equal(t, "izposoja@example.org", got.From)
	require.Equal(t, []string{"ana@example.org"}, got.To)
	require.Equal(t, "Body", string(got.Text))

	m.send = func(*email.Email, string, smtp.Auth) error { return errors.New("connection refused") }
	require.ErrorContains(t, m.Send(context.Background(), "ana@example.org", "Hi", "Body"), "connection refused")
}

func TestNotifierCheckoutAndCheckin(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	u, err := store.CreateUser(ctx, database, "ana", "x", model.RoleUser)
	require.NoError(t, err)
	require.NoError(t, store.SetUserEmail(ctx, database, u.ID, "ana@example.org"))
	p, err := store.CreateProduct(ctx, database, model.Product{Name: "Arduino Kit", Active: true}, time.Now())
	require.NoError(t, err)

	sender := &fakeSender{}
	n := NewNotifier(database, sender)
	item := model.Item{ID: 1, UUID: "3f2504e0-4f89-11d3-9a0c-0305e82c3301", ProductID: &p.ID}

	require.NoError(t, n.HandleInventoryEvent(ctx, inventory.Event{Type: model.TransactionCheckout, Item: item, ToUserID: &u.ID, Time: time.Now()}))
	require.NoError(t, n.HandleInventoryEvent(ctx, inventory.Event{Type: model.TransactionCheckin, Item: item, FromUserID: &u.ID, Time: time.Now()}))
	require.NoError(t, n.HandleInventoryEvent(ctx, inventory.Event{Type: model.TransactionRemoval, Item: item, Time: time.Now()}))

	require.Len(t, sender.messages, 2)
	require.Equal(t, "ana@example.org", sender.messages[0].to)
	require.Equal(t, "Equipment checked out: Arduino Kit", sender.messages[0].subject)
	require.Contains(t, sender.messages[0].body, item.UUID)
	require.Equal(t, "Equipment returned: Arduino Kit", sender.messages[1].subject)
}

func TestNotifierSkipsUsersWithoutEmail(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	u, err := store.CreateUser(ctx, database, "bor", "x", model.RoleUser)
	require.NoError(t, err)

	sender := &fakeSender{err: errors.New("must not be called")}
	n := NewNotifier(database, sender)
	err = n.HandleInventoryEvent(ctx, inventory.Event{Type: model.TransactionCheckout, ToUserID: &u.ID})
	require.NoError(t, err)
}

func TestMessageIncludesNotes(t *testing.T) {
	evt := inventory.Event{
		Type:  model.TransactionCheckout,
		Item:  model.Item{UUID: "3f2504e0-4f89-11d3-9a0c-0305e82c3301"},
		Notes: "for the robotics club",
		Time:  time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	}
	subject, body := Message(evt, "ana", "Servo")
	require.Equal(t, "Equipment checked out: Servo", subject)
	require.Contains(t, body, "Hello ana")
	require.Contains(t, body, "2026-03-01 10:30")
	require.Contains(t, body, "for the robotics club")
}
