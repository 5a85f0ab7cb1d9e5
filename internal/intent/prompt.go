package intent

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/tone"
)

var (
	defaultTypes  = []string{"SUV", "Sedan", "Hatchback", "Coupe", "Convertible", "Wagon", "Pickup", "MUV"}
	defaultBrands = []string{"Maruti", "Hyundai", "Honda", "Toyota", "Tata", "Kia", "Mahindra", "Skoda", "Renault", "Ford", "Volkswagen", "BMW", "Audi", "Mercedes"}
)

var stepDescriptions = map[models.Step]string{
	models.StepMainMenu:              "Return to main menu",
	models.StepBrowseStart:           "Start browsing",
	models.StepBrowseBudget:          "Ask for the budget",
	models.StepBrowseType:            "Ask for the car type",
	models.StepBrowseBrand:           "Ask for the brand",
	models.StepShowCars:              "Show matching cars",
	models.StepShowMoreCars:          "Show the next cars",
	models.StepCarSelectedOptions:    "Options for the selected car",
	models.StepShowComparison:        "Show a comparison",
	models.StepTestDriveDate:         "Pick a test drive date",
	models.StepTestDriveDay:          "Pick a specific day",
	models.StepTestDriveTime:         "Pick a time slot",
	models.StepTDName:                "Collect the customer name",
	models.StepTDPhone:               "Collect the phone number",
	models.StepTDLicense:             "Check for a driving license",
	models.StepTDLocationMode:        "Showroom visit or home pickup",
	models.StepTDHomeAddress:         "Collect the home address",
	models.StepTDDropLocation:        "Collect the drop location",
	models.StepTestDriveConfirmation: "Confirm the booking details",
	models.StepBookingComplete:       "Booking completed",
	models.StepChangeCriteriaConfirm: "Confirm changing the search criteria",
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func listOrDefault(vals, def []string) string {
	if len(vals) == 0 {
		vals = def
	}
	return strings.Join(vals, ", ")
}

// BuildPrompt renders the classifier prompt for one turn.
func BuildPrompt(dealerName string, in Input) string {
	sess := in.Session
	if sess == nil {
		sess = &models.Session{}
	}
	step := sess.Step
	if step == "" {
		step = models.StepBrowseStart
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI assistant for %s, a car dealership. You decide how the conversation proceeds. "+
		"Understand what the customer wants and guide them naturally through buying a car.\n\n", dealerName)

	b.WriteString(tone.BuildGuide(sess.LastPhase, sess.LastTone))
	b.WriteString("\n")

	b.WriteString("CURRENT SESSION STATE:\n")
	fmt.Fprintf(&b, "- Step: %s\n", step)
	fmt.Fprintf(&b, "- Budget: %s\n", orDefault(sess.Budget, "Not selected"))
	fmt.Fprintf(&b, "- Car Type: %s\n", orDefault(sess.Type, "Not selected"))
	fmt.Fprintf(&b, "- Brand: %s\n", orDefault(sess.Brand, "Not selected"))
	fmt.Fprintf(&b, "- Selected Car: %s\n", orDefault(sess.SelectedCar, "Not selected"))
	fmt.Fprintf(&b, "- Test Drive Date: %s\n", orDefault(sess.TestDriveDate, "Not selected"))
	fmt.Fprintf(&b, "- Test Drive Time: %s\n", orDefault(sess.TestDriveTime, "Not selected"))
	fmt.Fprintf(&b, "- Customer Name: %s\n", orDefault(sess.TDName, "Not provided"))
	fmt.Fprintf(&b, "- Customer Phone: %s\n", orDefault(sess.TDPhone, "Not provided"))
	fmt.Fprintf(&b, "- Has License: %s\n", orDefault(sess.TDLicense, "Not specified"))
	fmt.Fprintf(&b, "- Location Mode: %s\n", orDefault(sess.TDLocationMode, "Not selected"))
	fmt.Fprintf(&b, "- Home Address: %s\n", orDefault(sess.TDHomeAddress, "Not provided"))
	if len(sess.FilteredCars) > 0 {
		b.WriteString("- Last shown cars:\n")
		for i, c := range sess.FilteredCars {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, c.DisplayName())
		}
	}
	b.WriteString("\n")

	b.WriteString("DATABASE-DRIVEN OPTIONS (ALWAYS USE THESE):\n")
	fmt.Fprintf(&b, "- Budget Options: %s\n", listOrDefault(in.Available.BudgetOptions, models.BudgetOptions))
	fmt.Fprintf(&b, "- Available Types: %s\n", listOrDefault(in.Available.Types, defaultTypes))
	fmt.Fprintf(&b, "- Available Brands: %s\n", listOrDefault(in.Available.Brands, defaultBrands))
	fmt.Fprintf(&b, "- Available Cars: %d cars found\n\n", len(in.Available.Cars))

	fmt.Fprintf(&b, "USER MESSAGE: %q\n\n", in.Text)

	b.WriteString(`YOUR RESPONSIBILITIES:
1. Decide the next step from context rather than a fixed sequence.
2. Reply naturally and in context.
3. Extract budget, type, brand and other preferences from the message.
4. Only use types and brands from the database options above.
5. When the user refers to earlier cars by position ("first one", "compare second and third"), put the 1-based positions in extractedData.indexReferences.

CONVERSATION FLOW RULES:
- Budget, type and brand all known: show cars.
- Partial information: ask for what is missing.
- Criteria change requested: reset and start again.
- Car selected: offer a test drive or other options.
- Test drive requested: collect the booking details efficiently.

RESPONSE FORMAT (JSON only):
{
  "nextStep": "step_name",
  "message": "conversational reply",
  "options": ["Option 1", "Option 2"],
  "extractedData": {
    "budget": "value or null",
    "type": "value or null",
    "brand": "value or null",
    "intent": "browse|valuation|contact|about|test_drive|other|comparison|suggestion",
    "phase": "exploration|decision|purchase",
    "tone": "explanatory|concise|helpful",
    "indexReferences": [1, 2]
  },
  "sessionUpdates": {
    "budget": "value or null",
    "type": "value or null",
    "brand": "value or null",
    "selectedCar": "value or null",
    "testDriveDate": "value or null",
    "testDriveTime": "value or null",
    "td_name": "value or null",
    "td_phone": "value or null",
    "td_license": "value or null",
    "td_location_mode": "value or null",
    "td_home_address": "value or null"
  },
  "requiresDatabaseQuery": false,
  "queryType": "getCarsByFilter|getAvailableTypes|getAvailableBrands|none"
}

POSSIBLE STEPS:
`)
	for _, s := range models.ClassifierSteps {
		fmt.Fprintf(&b, "- %s: %s\n", s, stepDescriptions[s])
	}
	return b.String()
}
