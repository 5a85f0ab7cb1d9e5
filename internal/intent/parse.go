package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/tone"
)

var (
	// ErrMalformedResponse is returned when no JSON object can be decoded or
	// a required field is missing.
	ErrMalformedResponse = errors.New("malformed classifier response")
	// ErrUnknownStep is returned when nextStep is outside the step set.
	ErrUnknownStep = errors.New("unknown step in classifier response")
	// ErrNoCompleter is reported when the adapter has no LLM configured.
	ErrNoCompleter = errors.New("no LLM completer configured")
)

type rawResponse struct {
	NextStep              string          `json:"nextStep"`
	Message               string          `json:"message"`
	Options               []any           `json:"options"`
	ExtractedData         json.RawMessage `json:"extractedData"`
	SessionUpdates        map[string]any  `json:"sessionUpdates"`
	RequiresDatabaseQuery bool            `json:"requiresDatabaseQuery"`
	QueryType             string          `json:"queryType"`
}

type rawExtracted struct {
	Budget          any   `json:"budget"`
	Type            any   `json:"type"`
	Brand           any   `json:"brand"`
	Intent          any   `json:"intent"`
	Phase           any   `json:"phase"`
	Tone            any   `json:"tone"`
	IndexReferences []any `json:"indexReferences"`
}

// str treats nulls, non-strings and the literal "null" as unset.
func str(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") {
		return ""
	}
	return s
}

// nullUpdates turns literal "null" strings into nil, which ApplyUpdates
// reads as "leave unchanged".
func nullUpdates(updates map[string]any) map[string]any {
	for key, value := range updates {
		if s, ok := value.(string); ok && strings.EqualFold(strings.TrimSpace(s), "null") {
			updates[key] = nil
		}
	}
	return updates
}

// ParseResponse decodes a classifier completion into a Decision. The JSON
// object is taken from the first '{' to the last '}' of text.
func ParseResponse(text string) (models.Decision, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return models.Decision{}, fmt.Errorf("%w: no JSON object", ErrMalformedResponse)
	}

	var raw rawResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return models.Decision{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if strings.TrimSpace(raw.NextStep) == "" || strings.TrimSpace(raw.Message) == "" {
		return models.Decision{}, fmt.Errorf("%w: nextStep and message are required", ErrMalformedResponse)
	}
	step, ok := models.ParseStep(raw.NextStep)
	if !ok {
		return models.Decision{}, fmt.Errorf("%w: %q", ErrUnknownStep, raw.NextStep)
	}

	d := models.Decision{
		Source:         models.SourceLLM,
		NextStep:       step,
		Message:        raw.Message,
		SessionUpdates: nullUpdates(raw.SessionUpdates),
	}
	for _, o := range raw.Options {
		if s := str(o); s != "" {
			d.Options = append(d.Options, s)
		}
	}
	if raw.RequiresDatabaseQuery {
		d.Query = models.ParseQueryType(raw.QueryType)
	}

	// extractedData is advisory; a malformed object is dropped, not fatal.
	if len(raw.ExtractedData) > 0 {
		var ex rawExtracted
		if err := json.Unmarshal(raw.ExtractedData, &ex); err == nil {
			d.Extracted = models.ExtractedData{
				Budget: str(ex.Budget),
				Type:   str(ex.Type),
				Brand:  str(ex.Brand),
				Intent: str(ex.Intent),
				Phase:  string(tone.NormalizePhase(str(ex.Phase))),
			}
			if t := str(ex.Tone); t != "" {
				d.Extracted.Tone = string(tone.NormalizeTone(t))
			}
			for _, r := range ex.IndexReferences {
				if f, ok := r.(float64); ok && f == float64(int(f)) {
					d.Extracted.IndexReferences = append(d.Extracted.IndexReferences, int(f))
				}
			}
		}
	}
	return d, nil
}
