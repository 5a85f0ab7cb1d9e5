package twiliowhatsapp

import (
	"errors"
	"testing"
)

func TestAddress(t *testing.T) {
	tests := map[string]string{
		"919876543210":           "whatsapp:+919876543210",
		"+919876543210":          "whatsapp:+919876543210",
		"whatsapp:+14155238886":  "whatsapp:+14155238886",
		" whatsapp:14155238886 ": "whatsapp:+14155238886",
	}
	for in, want := range tests {
		if got := Address(in); got != want {
			t.Errorf("Address(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(WithFromNumber("+14155238886")); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("err = %v, want ErrMissingCredentials", err)
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("secret")); err == nil {
		t.Error("expected an error without a from number")
	}

	c, err := NewClient(WithAccountSID("AC123"), WithAuthToken("secret"), WithFromNumber("14155238886"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.from != "whatsapp:+14155238886" {
		t.Errorf("from = %q", c.from)
	}
}

func TestValidateWebhookRejectsBadSignature(t *testing.T) {
	c, err := NewClient(WithAccountSID("AC123"), WithAuthToken("secret"), WithFromNumber("+14155238886"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	params := map[string]string{"From": "whatsapp:+919876543210", "Body": "hi"}
	if c.ValidateWebhook("https://example.com/webhook/twilio", params, "not-a-signature") {
		t.Error("forged signature accepted")
	}
}
