// Package flow runs the conversation: the Router picks a sub-flow for each
// inbound message, the Orchestrator combines the intent classifier with the
// deterministic step Machine for browsing and test-drive booking, and the
// valuation and contact/about menus handle the remaining journeys.
package flow

import (
	"context"
	"time"

	"github.com/BTreeMap/DealerPipe/internal/dealer"
	"github.com/BTreeMap/DealerPipe/internal/intent"
	"github.com/BTreeMap/DealerPipe/internal/models"
)

// User-facing generic messages.
const (
	TemporaryIssueMessage = "I ran into a temporary issue processing your request. Please try again."
	RetryLaterMessage     = "I ran into a temporary issue while processing your request. Please try again in a moment."
	ConversationEndedText = "✅ Conversation ended. Say 'start' or 'hi' to begin again."
)

// Classifier decides what a free-text message means. intent.Adapter
// implements it.
type Classifier interface {
	Classify(ctx context.Context, in intent.Input) models.Decision
}

// Observer receives turn-level events for metrics.
type Observer interface {
	Decision(source models.DecisionSource, step models.Step, degraded bool)
	FastPath(kind string)
	Booking(err error)
	Valuation(status string)
	Recovered(where string)
}

type nopObserver struct{}

func (nopObserver) Decision(models.DecisionSource, models.Step, bool) {}
func (nopObserver) FastPath(string)                                   {}
func (nopObserver) Booking(error)                                     {}
func (nopObserver) Valuation(string)                                  {}
func (nopObserver) Recovered(string)                                  {}

// Opts holds configuration shared by the flow components.
type Opts struct {
	Profile      dealer.Profile
	Now          func() time.Time
	MediaBaseURL string
	Observer     Observer
}

// Option configures a flow component.
type Option func(*Opts)

// WithProfile sets the dealership profile used in replies.
func WithProfile(p dealer.Profile) Option {
	return func(o *Opts) { o.Profile = p }
}

// WithClock sets the time source used for test-drive dates and records.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		if now != nil {
			o.Now = now
		}
	}
}

// WithMediaBaseURL sets the base URL that relative car image paths are
// joined to.
func WithMediaBaseURL(base string) Option {
	return func(o *Opts) { o.MediaBaseURL = base }
}

// WithObserver sets the metrics observer.
func WithObserver(obs Observer) Option {
	return func(o *Opts) {
		if obs != nil {
			o.Observer = obs
		}
	}
}

func newOpts(opts []Option) Opts {
	cfg := Opts{
		Profile:  dealer.Default(),
		Now:      time.Now,
		Observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// MainMenu returns the main-menu greeting.
func MainMenu(p dealer.Profile) *models.Reply {
	return models.NewReply(models.StepMainMenu, intent.WelcomeMessage(p.Name), models.MainMenuOptions...)
}

// budgetPrompt asks for a budget after the criteria were reset.
func budgetPrompt(message string) *models.Reply {
	return models.NewReply(models.StepBrowseBudget, message, models.BudgetOptions...)
}
