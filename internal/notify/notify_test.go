package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeEmail(t *testing.T) {
	body, err := EncodeEmail("user@example.com", "Welcome", "hello there")
	if err != nil {
		t.Fatalf("EncodeEmail: %v", err)
	}
	msg, err := DecodeMessage(body)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.Type != MessageTypeEmail {
		t.Fatalf("type = %q, want %q", msg.Type, MessageTypeEmail)
	}
	if msg.To != "user@example.com" || msg.Subject != "Welcome" || msg.Text != "hello there" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	if _, err := DecodeMessage([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

type fakeSender struct {
	to, subject, text string
	err               error
	calls             int
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	f.calls++
	f.to, f.subject, f.text = to, subject, body
	return f.err
}

func TestConsumerHandleDeliversEmail(t *testing.T) {
	sender := &fakeSender{}
	c := NewConsumer(nil, sender)

	body, _ := EncodeEmail("user@example.com", "Reset", "use this link")
	if err := c.handle(context.Background(), body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("sender calls = %d, want 1", sender.calls)
	}
	if sender.to != "user@example.com" || sender.subject != "Reset" {
		t.Fatalf("sender got %q %q", sender.to, sender.subject)
	}
}

func TestConsumerHandleRejectsUnknownType(t *testing.T) {
	c := NewConsumer(nil, &fakeSender{})
	err := c.handle(context.Background(), []byte(`{"type":"sms","to":"x"}`))
	if err == nil || !strings.Contains(err.Error(), "unknown message type") {
		t.Fatalf("err = %v, want unknown message type", err)
	}
}

func TestConsumerHandleRejectsMissingRecipient(t *testing.T) {
	c := NewConsumer(nil, &fakeSender{})
	err := c.handle(context.Background(), []byte(`{"type":"email","subject":"s"}`))
	if err == nil || !strings.Contains(err.Error(), "no recipient") {
		t.Fatalf("err = %v, want missing recipient", err)
	}
}

func TestConsumerHandlePropagatesSenderError(t *testing.T) {
	boom := errors.New("smtp down")
	c := NewConsumer(nil, &fakeSender{err: boom})
	body, _ := EncodeEmail("user@example.com", "s", "t")
	if err := c.handle(context.Background(), body); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestMailerRequiresConfiguration(t *testing.T) {
	m := &Mailer{}
	if err := m.Send(context.Background(), "user@example.com", "s", "t"); err == nil {
		t.Fatal("expected configuration error")
	}
}
