package messaging

import (
	"testing"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

func TestRenderNumbersOptionsThenCards(t *testing.T) {
	reply := &models.Reply{
		Message: "Showing cars 1-2 of 2:",
		Messages: []models.OutboundMessage{
			{Kind: models.MessageImage, URL: "https://media.example.com/creta.jpg", Caption: "🚗 Hyundai Creta SX"},
			{Kind: models.MessageButton, Body: "SELECT", ID: "book_Hyundai_Creta_SX", Label: "SELECT"},
			{Kind: models.MessageText, Body: "🚗 Kia Seltos HTX"},
			{Kind: models.MessageButton, Body: "SELECT", ID: "book_Kia_Seltos_HTX", Label: "SELECT"},
		},
		Options: []string{models.OptionChangeCriteria},
	}

	parts, choices := Render(reply)
	want := []Part{
		{Body: "Showing cars 1-2 of 2:\n\n1. Change criteria"},
		{Body: "🚗 Hyundai Creta SX\n\nReply 2 to select", MediaURL: "https://media.example.com/creta.jpg"},
		{Body: "🚗 Kia Seltos HTX\n\nReply 3 to select"},
	}
	if len(parts) != len(want) {
		t.Fatalf("parts = %+v", parts)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("part %d = %+v, want %+v", i, parts[i], want[i])
		}
	}
	wantChoices := []string{models.OptionChangeCriteria, "book_Hyundai_Creta_SX", "book_Kia_Seltos_HTX"}
	if len(choices) != len(wantChoices) {
		t.Fatalf("choices = %v", choices)
	}
	for i := range wantChoices {
		if choices[i] != wantChoices[i] {
			t.Errorf("choice %d = %q, want %q", i, choices[i], wantChoices[i])
		}
	}
}

func TestRenderPlainAndNil(t *testing.T) {
	if parts, choices := Render(nil); parts != nil || choices != nil {
		t.Errorf("Render(nil) = %v, %v", parts, choices)
	}
	parts, _ := Render(models.NewReply(models.StepMainMenu, "Thanks!"))
	if len(parts) != 1 || parts[0].Body != "Thanks!" {
		t.Errorf("parts = %+v", parts)
	}
}
