package intent

import (
	"regexp"
	"strings"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

// Rule is one pre-classification shortcut. Rules are tried in order and the
// first whose Pattern matches builds the decision.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	// NeedsImageAnalysis limits the rule to adapters with image analysis on.
	NeedsImageAnalysis bool
	Build              func(text string, match []string) models.Decision
}

// Shortcut reply texts.
const (
	CarImageMessage      = "Detected a car image."
	NonCarImageMessage   = "This doesn’t seem to be a car image."
	AnalyzePhotoMessage  = "Let me analyze the photo to identify the car…"
	FinancingMessage     = "I can help with EMI estimates. What tenure (in months) suits you? 12, 24, 36, or 48?"
	ServiceMessage       = "Sure, I can help with service. Please share your car model and preferred date."
	TestDriveMessage     = "Great! When would you like to schedule your test drive?"
	CarDetailsMessage    = "Here are the details I can provide: variants, fuel types, and price ranges. Which model variant are you interested in?"
	TailorOptionsMessage = "Got it. I'll tailor options for you. What's your budget range?"
)

func shortcut(step models.Step, intent, message string, options ...string) models.Decision {
	return models.Decision{
		Source:    models.SourceShortcut,
		NextStep:  step,
		Message:   message,
		Options:   options,
		Extracted: models.ExtractedData{Intent: intent},
	}
}

// ShortcutRules is the ordered shortcut table.
var ShortcutRules = []Rule{
	{
		Name:    "image_tag",
		Pattern: regexp.MustCompile(`(?i)\[image`),
		Build: func(text string, _ []string) models.Decision {
			if strings.Contains(strings.ToLower(text), "car") {
				d := shortcut(models.StepBrowseStart, "image_check", CarImageMessage)
				d.Extracted.UploadedImageType = "car"
				return d
			}
			d := shortcut(models.StepBrowseStart, "image_check", NonCarImageMessage)
			d.Extracted.UploadedImageType = "non-car"
			return d
		},
	},
	{
		Name:               "image_url",
		Pattern:            regexp.MustCompile(`(?i)https?://[\w./%-]+\.(png|jpg|jpeg|webp)`),
		NeedsImageAnalysis: true,
		Build: func(_ string, m []string) models.Decision {
			d := shortcut(models.StepBrowseStart, "image_check", AnalyzePhotoMessage)
			d.SessionUpdates = map[string]any{"pendingImageUrl": m[0]}
			return d
		},
	},
	{
		Name:    "financing",
		Pattern: regexp.MustCompile(`(?i)(emi|installment|finance|financing)`),
		Build: func(string, []string) models.Decision {
			return shortcut(models.StepBrowseStart, "financing_info", FinancingMessage,
				"12 months", "24 months", "36 months", "48 months")
		},
	},
	{
		Name:    "service",
		Pattern: regexp.MustCompile(`(?i)(service|servicing|repair|maintenance)\b`),
		Build: func(string, []string) models.Decision {
			return shortcut(models.StepBrowseStart, "service_request", ServiceMessage)
		},
	},
	{
		Name:    "test_drive",
		Pattern: regexp.MustCompile(`(?i)test\s*drive`),
		Build: func(string, []string) models.Decision {
			return shortcut(models.StepTestDriveDate, "test_drive", TestDriveMessage, models.TestDriveDateOptions...)
		},
	},
	{
		Name:    "car_details",
		Pattern: regexp.MustCompile(`(?i)^(tell me about|details of|specs of)\b`),
		Build: func(string, []string) models.Decision {
			return shortcut(models.StepBrowseStart, "car_details", CarDetailsMessage)
		},
	},
	{
		Name:    "preference_cues",
		Pattern: regexp.MustCompile(`(?i)(under|lakhs|lakh|diesel|petrol|automatic|manual|suv|sedan|hatchback)`),
		Build: func(string, []string) models.Decision {
			return shortcut(models.StepBrowseBudget, "suggestion", TailorOptionsMessage, models.BudgetOptions...)
		},
	},
}

// MatchShortcut returns the decision of the first matching rule.
func MatchShortcut(rules []Rule, text string, imageAnalysis bool) (models.Decision, string, bool) {
	for _, r := range rules {
		if r.NeedsImageAnalysis && !imageAnalysis {
			continue
		}
		if m := r.Pattern.FindStringSubmatch(text); m != nil {
			return r.Build(text, m), r.Name, true
		}
	}
	return models.Decision{}, "", false
}
