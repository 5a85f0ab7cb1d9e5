// Package intent classifies a customer's message into a flow decision. It
// tries, in order, the shortcut rule table, comparison detection, suggestion
// detection and the LLM classifier, and falls back to keyword rules when the
// classifier is unavailable or fails.
package intent

import (
	"context"
	"log/slog"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

// Completer is the LLM capability the classifier depends on.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ComparisonResolver resolves a comparison request.
type ComparisonResolver interface {
	Resolve(ctx context.Context, text string) (*models.ComparisonResult, error)
}

// SuggestionResolver resolves a suggestion request.
type SuggestionResolver interface {
	Resolve(ctx context.Context, text string, sess *models.Session) (*models.SuggestionResult, error)
}

// Input is one turn handed to the classifier.
type Input struct {
	Text      string
	Session   *models.Session
	Available models.AvailableData
}

// DefaultDealerName is used in prompts and greetings when none is configured.
const DefaultDealerName = "Sherpa Hyundai"

// Reply suffixes appended to resolver messages.
const (
	CompareHintSuffix   = "\n\nPlease specify the exact car models you'd like to compare (e.g., 'Honda City vs Maruti Swift')."
	NoSuggestionsSuffix = "\n\nLet me help you find the perfect car. What's your budget range?"
)

// Options offered with suggestion results.
const (
	OptionShowMoreOptions = "Show More Options"
	OptionChangeCriteria  = "Change Criteria"
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithImageAnalysis enables the image URL shortcut.
func WithImageAnalysis(enabled bool) Option {
	return func(a *Adapter) { a.imageAnalysis = enabled }
}

// WithDealerName sets the dealership name used in prompts and greetings.
func WithDealerName(name string) Option {
	return func(a *Adapter) {
		if name != "" {
			a.dealerName = name
		}
	}
}

// WithRules replaces the shortcut rule table.
func WithRules(rules []Rule) Option {
	return func(a *Adapter) { a.rules = rules }
}

// Adapter is the intent classifier. Any of its collaborators may be nil, in
// which case the corresponding stage is skipped.
type Adapter struct {
	llm           Completer
	comparisons   ComparisonResolver
	suggestions   SuggestionResolver
	rules         []Rule
	imageAnalysis bool
	dealerName    string
}

// NewAdapter creates a classifier.
func NewAdapter(llm Completer, comparisons ComparisonResolver, suggestions SuggestionResolver, opts ...Option) *Adapter {
	a := &Adapter{
		llm:         llm,
		comparisons: comparisons,
		suggestions: suggestions,
		rules:       ShortcutRules,
		dealerName:  DefaultDealerName,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// DealerName returns the configured dealership name.
func (a *Adapter) DealerName() string { return a.dealerName }

// HasLLM reports whether an LLM classifier is configured.
func (a *Adapter) HasLLM() bool { return a.llm != nil }

// Classify returns the decision for one turn. It always names a next step.
func (a *Adapter) Classify(ctx context.Context, in Input) models.Decision {
	if d, rule, ok := MatchShortcut(a.rules, in.Text, a.imageAnalysis); ok {
		slog.Debug("Adapter.Classify: shortcut matched", "rule", rule)
		return d
	}

	if a.comparisons != nil && IsComparisonRequest(in.Text) {
		res, err := a.comparisons.Resolve(ctx, in.Text)
		if err != nil {
			slog.Warn("Adapter.Classify: comparison resolver failed", "error", err, "session", in.Session)
		} else if res != nil {
			return comparisonDecision(res)
		}
	}

	if a.suggestions != nil && IsSuggestionRequest(in.Text) {
		res, err := a.suggestions.Resolve(ctx, in.Text, in.Session)
		if err != nil {
			slog.Warn("Adapter.Classify: suggestion resolver failed", "error", err, "session", in.Session)
		} else if res != nil {
			return suggestionDecision(res)
		}
	}

	if a.llm == nil {
		slog.Debug("Adapter.Classify: using keyword fallback", "reason", ErrNoCompleter)
		return Fallback(in.Text, a.dealerName)
	}

	completion, err := a.llm.Complete(ctx, BuildPrompt(a.dealerName, in))
	if err != nil {
		slog.Error("Adapter.Classify: LLM call failed", "error", err, "session", in.Session)
		return Fallback(in.Text, a.dealerName)
	}
	d, err := ParseResponse(completion)
	if err != nil {
		slog.Error("Adapter.Classify: unparseable LLM response", "error", err, "session", in.Session, "response_length", len(completion))
		return Fallback(in.Text, a.dealerName)
	}
	slog.Debug("Adapter.Classify: LLM decision", "next_step", d.NextStep, "intent", d.Extracted.Intent, "query", d.Query)
	return d
}

func comparisonDecision(res *models.ComparisonResult) models.Decision {
	d := models.Decision{
		Source:     models.SourceComparison,
		Comparison: res,
		Extracted:  models.ExtractedData{Intent: "comparison"},
	}
	if len(res.Cars) > 0 {
		d.NextStep = models.StepShowComparison
		d.Message = res.Message
		d.Options = []string{models.OptionBookTestDrive, models.OptionCompareMoreCars, models.OptionGetDetails, models.OptionStartOver}
		d.SessionUpdates = map[string]any{
			"comparisonCars":     res.RawCars(),
			"comparisonCriteria": res.Criteria,
		}
		return d
	}
	d.NextStep = models.StepBrowseStart
	d.Message = res.Message + CompareHintSuffix
	d.Options = []string{models.OptionBrowseCars, models.OptionGetSuggestions, models.OptionMainMenu}
	return d
}

func suggestionDecision(res *models.SuggestionResult) models.Decision {
	d := models.Decision{
		Source:     models.SourceSuggestion,
		Suggestion: res,
		Extracted:  models.ExtractedData{Intent: "suggestion"},
	}
	if len(res.Cars) > 0 {
		d.NextStep = models.StepShowCars
		d.Message = res.Message
		d.Options = []string{models.OptionBookTestDrive, OptionShowMoreOptions, OptionChangeCriteria}
		d.SessionUpdates = map[string]any{
			"filteredCars": res.Cars,
			"carIndex":     0,
		}
		return d
	}
	d.NextStep = models.StepBrowseBudget
	d.Message = res.Message + NoSuggestionsSuffix
	d.Options = models.BudgetOptions
	return d
}
