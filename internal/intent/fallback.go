package intent

import (
	"github.com/BTreeMap/DealerPipe/internal/models"
)

// Fallback reply texts.
const (
	BrowseFallbackMessage  = "Great! We'll help you find cars. First, what's your budget range?"
	UnknownFallbackMessage = "I'm here to help! What would you like to do today?"
)

// WelcomeMessage is the main-menu greeting for a dealership.
func WelcomeMessage(dealerName string) string {
	return "Hello! 👋 Welcome to " + dealerName + ". How can I assist you today?"
}

// Fallback is the keyword decision used when the classifier is unavailable
// or fails. It always names a next step.
func Fallback(text, dealerName string) models.Decision {
	d := models.Decision{Source: models.SourceRules, Degraded: true}
	switch {
	case IsGreeting(text):
		d.NextStep = models.StepMainMenu
		d.Message = WelcomeMessage(dealerName)
		d.Options = models.MainMenuOptions
		d.Extracted.Intent = "greeting"
		d.ResetSession = true
	case IsBrowseRequest(text):
		d.NextStep = models.StepBrowseBudget
		d.Message = BrowseFallbackMessage
		d.Options = models.BudgetOptions
		d.Extracted.Intent = "browse"
	default:
		d.NextStep = models.StepMainMenu
		d.Message = UnknownFallbackMessage
		d.Options = models.MainMenuOptions
		d.Extracted.Intent = "unknown"
	}
	return d
}
