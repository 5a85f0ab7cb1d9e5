package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

type sentText struct{ to, body string }

// fakeWhatsApp records sends and captures the registered event handler.
type fakeWhatsApp struct {
	sent    []sentText
	err     error
	handler func(evt any)
}

func (f *fakeWhatsApp) SendMessage(_ context.Context, to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentText{to, body})
	return nil
}

func (f *fakeWhatsApp) AddEventHandler(h func(evt any)) uint32 {
	f.handler = h
	return 1
}

func TestWhatsAppServiceSendEmitsReceipt(t *testing.T) {
	client := &fakeWhatsApp{}
	svc := NewWhatsAppService(client)

	if err := svc.SendMessage(context.Background(), "+91 98765 43210", "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(client.sent) != 1 || client.sent[0].to != "919876543210" {
		t.Fatalf("sent = %+v", client.sent)
	}
	select {
	case r := <-svc.Receipts():
		if r.To != "919876543210" || r.Status != models.MessageStatusSent {
			t.Errorf("receipt = %+v", r)
		}
	default:
		t.Fatal("expected a sent receipt")
	}
}

func TestWhatsAppServiceMediaFallsBackToText(t *testing.T) {
	client := &fakeWhatsApp{}
	svc := NewWhatsAppService(client)
	if err := svc.SendMedia(context.Background(), "919876543210", "https://media.example.com/creta.jpg", "🚗 Hyundai Creta"); err != nil {
		t.Fatalf("SendMedia: %v", err)
	}
	if got := client.sent[0].body; got != "🚗 Hyundai Creta\nhttps://media.example.com/creta.jpg" {
		t.Errorf("body = %q", got)
	}
}

func TestWhatsAppServiceSendError(t *testing.T) {
	svc := NewWhatsAppService(&fakeWhatsApp{err: errors.New("offline")})
	if err := svc.SendMessage(context.Background(), "919876543210", "hi"); err == nil {
		t.Fatal("expected send error")
	}
	select {
	case r := <-svc.Receipts():
		t.Errorf("unexpected receipt %+v", r)
	default:
	}
}

func TestWhatsAppServiceInboundEvents(t *testing.T) {
	client := &fakeWhatsApp{}
	svc := NewWhatsAppService(client)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if client.handler == nil {
		t.Fatal("event handler not registered")
	}

	sender := types.NewJID("919876543210", types.DefaultUserServer)
	now := time.Unix(1_700_000_000, 0)
	client.handler(&events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: sender, Sender: sender},
			ID:            "MSG1",
			Timestamp:     now,
		},
		Message: &waE2E.Message{Conversation: proto.String("hi")},
	})
	// Messages from ourselves are ignored.
	client.handler(&events.Message{
		Info:    types.MessageInfo{MessageSource: types.MessageSource{Chat: sender, Sender: sender, IsFromMe: true}, ID: "MSG2"},
		Message: &waE2E.Message{Conversation: proto.String("echo")},
	})
	client.handler(&events.Receipt{
		MessageSource: types.MessageSource{Chat: sender, Sender: sender},
		Type:          events.ReceiptTypeRead,
		Timestamp:     now,
	})

	select {
	case m := <-svc.Responses():
		if m.ID != "MSG1" || m.From != "919876543210" || m.Body != "hi" || m.Time != now.Unix() {
			t.Errorf("inbound = %+v", m)
		}
	default:
		t.Fatal("expected an inbound message")
	}
	select {
	case m := <-svc.Responses():
		t.Errorf("own message forwarded: %+v", m)
	default:
	}
	select {
	case r := <-svc.Receipts():
		if r.Status != models.MessageStatusRead || r.To != "919876543210" {
			t.Errorf("receipt = %+v", r)
		}
	default:
		t.Fatal("expected a read receipt")
	}
}

func TestWhatsAppServiceStop(t *testing.T) {
	svc := NewWhatsAppService(&fakeWhatsApp{})
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if _, ok := <-svc.Receipts(); ok {
		t.Error("receipts channel still open")
	}
	if _, ok := <-svc.Responses(); ok {
		t.Error("responses channel still open")
	}
	if err := svc.SendMessage(context.Background(), "919876543210", "hi"); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("err = %v, want ErrServiceStopped", err)
	}
}
