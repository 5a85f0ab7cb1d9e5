package models

// DecisionSource identifies which classification stage produced a Decision.
type DecisionSource string

const (
	SourceLLM        DecisionSource = "llm"
	SourceShortcut   DecisionSource = "shortcut"
	SourceComparison DecisionSource = "comparison"
	SourceSuggestion DecisionSource = "suggestion"
	SourceRules      DecisionSource = "rules"
)

// QueryType is an inventory query a decision asks the orchestrator to run.
type QueryType string

const (
	QueryNone            QueryType = ""
	QueryCarsByFilter    QueryType = "getCarsByFilter"
	QueryAvailableTypes  QueryType = "getAvailableTypes"
	QueryAvailableBrands QueryType = "getAvailableBrands"
)

// ParseQueryType normalises a classifier query type. Unknown values and
// "none" mean no query.
func ParseQueryType(s string) QueryType {
	switch QueryType(s) {
	case QueryCarsByFilter, QueryAvailableTypes, QueryAvailableBrands:
		return QueryType(s)
	default:
		return QueryNone
	}
}

// Effect is the side effect the orchestrator runs for a decision.
type Effect int

const (
	EffectMessage Effect = iota
	EffectShowCars
	EffectConfirmation
	EffectBookingComplete
)

// ExtractedData carries what the classifier pulled out of the user text.
type ExtractedData struct {
	Budget            string `json:"budget,omitempty"`
	Type              string `json:"type,omitempty"`
	Brand             string `json:"brand,omitempty"`
	Intent            string `json:"intent,omitempty"`
	Phase             string `json:"phase,omitempty"`
	Tone              string `json:"tone,omitempty"`
	IndexReferences   []int  `json:"indexReferences,omitempty"`
	UploadedImageType string `json:"uploadedImageType,omitempty"`
}

// Decision is the classifier's verdict for one turn. Source tags which stage
// produced it; Comparison and Suggestion are set only for their sources.
type Decision struct {
	Source         DecisionSource
	NextStep       Step
	Message        string
	Options        []string
	Extracted      ExtractedData
	SessionUpdates map[string]any
	Query          QueryType
	Comparison     *ComparisonResult
	Suggestion     *SuggestionResult

	// ResetSession asks for every slot to be cleared before the decision is
	// applied.
	ResetSession bool
	// Degraded is set when the classifier was unavailable or failed and the
	// keyword rules produced this decision.
	Degraded bool
}

// Effect derives the side effect from the next step.
func (d Decision) Effect() Effect {
	switch d.NextStep {
	case StepShowCars, StepShowMoreCars:
		return EffectShowCars
	case StepTestDriveConfirmation:
		return EffectConfirmation
	case StepBookingComplete:
		return EffectBookingComplete
	default:
		return EffectMessage
	}
}

// AvailableData is the inventory context handed to the classifier.
type AvailableData struct {
	BudgetOptions []string
	Types         []string
	Brands        []string
	Cars          []Car
}

// Tier is a coarse low/medium/high rating.
type Tier string

const (
	TierLow    Tier = "Low"
	TierMedium Tier = "Medium"
	TierHigh   Tier = "High"
)

// EnrichedCar is a car with the derived attributes used in comparisons.
type EnrichedCar struct {
	Car
	Name            string   `json:"displayName"`
	PriceFormatted  string   `json:"priceFormatted"`
	FuelEfficiency  int      `json:"fuelEfficiency"` // kmpl
	SafetyRating    float64  `json:"safetyRating"`
	Features        []string `json:"features"`
	MaintenanceCost Tier     `json:"maintenanceCost"`
	ResaleValue     Tier     `json:"resaleValue"`
}

// ComparisonResult is the outcome of comparing cars named in a message.
type ComparisonResult struct {
	Identifiers []string      `json:"identifiers"`
	Criteria    []string      `json:"criteria"`
	Cars        []EnrichedCar `json:"cars"`
	Message     string        `json:"message"`
	Confidence  int           `json:"confidence"`
}

// RawCars returns the plain cars of the comparison.
func (r *ComparisonResult) RawCars() []Car {
	cars := make([]Car, 0, len(r.Cars))
	for _, c := range r.Cars {
		cars = append(cars, c.Car)
	}
	return cars
}

// UsageProfile is a usage archetype such as "family" or "city".
type UsageProfile struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Features []string `json:"features"`
}

// AgeBand constrains the model year.
type AgeBand struct {
	Name    string `json:"name"`
	MinYear int    `json:"minYear,omitempty"`
	MaxYear int    `json:"maxYear,omitempty"`
}

// SuggestionParams holds the preferences extracted from a message.
type SuggestionParams struct {
	Budget       *PriceRange   `json:"budget,omitempty"`
	CustomBudget *PriceRange   `json:"customBudget,omitempty"`
	Type         string        `json:"type,omitempty"`
	Brand        string        `json:"brand,omitempty"`
	Brands       []string      `json:"brands,omitempty"`
	Features     []string      `json:"features,omitempty"`
	Usage        *UsageProfile `json:"usage,omitempty"`
	Age          *AgeBand      `json:"age,omitempty"`
}

// Count returns how many preference categories were extracted.
func (p SuggestionParams) Count() int {
	n := 0
	if p.Budget != nil {
		n++
	}
	if p.CustomBudget != nil {
		n++
	}
	if p.Type != "" {
		n++
	}
	if p.Brand != "" || len(p.Brands) > 0 {
		n++
	}
	if len(p.Features) > 0 {
		n++
	}
	if p.Usage != nil {
		n++
	}
	if p.Age != nil {
		n++
	}
	return n
}

// SuggestionResult is the outcome of resolving a suggestion request.
type SuggestionResult struct {
	Params     SuggestionParams `json:"params"`
	Query      CarQuery         `json:"query"`
	Cars       []Car            `json:"cars"`
	Message    string           `json:"message"`
	Confidence int              `json:"confidence"`
}
