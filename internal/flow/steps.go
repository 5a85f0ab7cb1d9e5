package flow

import (
	"strings"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

// InputKind is how a step validates the customer's answer.
type InputKind int

const (
	InputFree InputKind = iota
	InputOptions
	InputPattern
	InputBudget
	InputType
	InputBrand
	// InputDynamic steps accept options computed from the session.
	InputDynamic
)

// Test-drive answer options.
const (
	LicenseYes     = "Yes"
	LicenseNo      = "No"
	ShowroomPickup = "Showroom pickup"
	HomePickup     = "Home pickup"
)

// StepConfig describes one step of the browse and test-drive flow.
type StepConfig struct {
	Name    string
	Prompt  string
	Options []string
	Input   InputKind
	// Validate checks and normalises free-form answers of InputPattern steps.
	Validate func(string) (string, bool)
	// Literal marks pattern steps whose validator is strict enough that a
	// valid answer skips classification.
	Literal bool
	Hint    string
	Next    []models.Step
}

// Match returns the canonical option equal to text, ignoring case.
func (c StepConfig) Match(text string) (string, bool) {
	if c.Input != InputOptions {
		return "", false
	}
	return equalFoldAny(text, c.Options)
}

// Allows reports whether next is a declared transition from this step.
func (c StepConfig) Allows(next models.Step) bool {
	for _, s := range c.Next {
		if s == next {
			return true
		}
	}
	return false
}

// StepTable configures every step the Machine handles.
var StepTable = map[models.Step]StepConfig{
	models.StepMainMenu: {
		Name:    "Main Menu",
		Prompt:  "How can I assist you today?",
		Options: models.MainMenuOptions,
		Input:   InputFree,
		Next:    []models.Step{models.StepBrowseStart, models.StepValuationBrand, models.StepContactMenu, models.StepAboutMenu},
	},
	models.StepBrowseStart: {
		Name:  "Browse Start",
		Input: InputFree,
		Next:  []models.Step{models.StepBrowseBudget, models.StepBrowseType, models.StepBrowseBrand, models.StepShowMoreCars},
	},
	models.StepBrowseBudget: {
		Name:    "Budget Selection",
		Prompt:  "What's your budget range?",
		Options: models.BudgetOptions,
		Input:   InputBudget,
		Hint:    "Please select a valid budget range:",
		Next:    []models.Step{models.StepBrowseType},
	},
	models.StepBrowseType: {
		Name:   "Car Type Selection",
		Prompt: "What type of car do you prefer?",
		Input:  InputType,
		Hint:   "Please select a valid car type:",
		Next:   []models.Step{models.StepBrowseBrand},
	},
	models.StepBrowseBrand: {
		Name:   "Brand Selection",
		Prompt: "Which brand do you prefer?",
		Input:  InputBrand,
		Hint:   "Please select a valid brand:",
		Next:   []models.Step{models.StepShowMoreCars, models.StepShowCars},
	},
	models.StepShowCars: {
		Name:  "Show Cars",
		Input: InputDynamic,
		Next:  []models.Step{models.StepShowMoreCars, models.StepCarSelectedOptions, models.StepBrowseBudget},
	},
	models.StepShowMoreCars: {
		Name:  "Show More Cars",
		Input: InputDynamic,
		Next:  []models.Step{models.StepShowMoreCars, models.StepCarSelectedOptions, models.StepBrowseBudget},
	},
	models.StepCarSelectedOptions: {
		Name:    "Car Selected Options",
		Prompt:  "Great choice! What would you like to do next?",
		Options: []string{models.OptionBookTestDrive, models.OptionChangeMyCriteria},
		Input:   InputOptions,
		Hint:    "Please select an option:",
		Next:    []models.Step{models.StepTestDriveDate, models.StepBrowseBudget},
	},
	models.StepShowComparison: {
		Name:  "Show Comparison",
		Input: InputDynamic,
		Hint:  "Please select an option:",
		Next:  []models.Step{models.StepCarSelectedOptions, models.StepBrowseStart, models.StepMainMenu},
	},
	models.StepTestDriveDate: {
		Name:    "Test Drive Date",
		Prompt:  "When would you like to schedule your test drive?",
		Options: models.TestDriveDateOptions,
		Input:   InputOptions,
		Hint:    "Please choose when you'd like the test drive:",
		Next:    []models.Step{models.StepTestDriveDay, models.StepTestDriveTime},
	},
	models.StepTestDriveDay: {
		Name:   "Test Drive Day",
		Prompt: "Which day works best for you?",
		Input:  InputDynamic,
		Hint:   "Please pick one of the available days:",
		Next:   []models.Step{models.StepTestDriveTime},
	},
	models.StepTestDriveTime: {
		Name:    "Test Drive Time",
		Prompt:  "Perfect! Which time works better for you?",
		Options: TimeSlots,
		Input:   InputOptions,
		Hint:    "Please pick a time slot:",
		Next:    []models.Step{models.StepTDName},
	},
	models.StepTDName: {
		Name:     "Customer Name",
		Prompt:   "Great! I need some details to confirm your booking:\n\n1. Your Name:",
		Input:    InputPattern,
		Validate: ValidName,
		Literal:  true,
		Hint:     "Please enter a valid name (2-50 characters, letters only).\n\n1. Your Name:",
		Next:     []models.Step{models.StepTDPhone},
	},
	models.StepTDPhone: {
		Name:     "Customer Phone",
		Prompt:   "2. Your Phone Number:",
		Input:    InputPattern,
		Validate: ValidPhone,
		Literal:  true,
		Hint:     "Please enter a valid 10-digit Indian phone number.\n\n2. Your Phone Number:",
		Next:     []models.Step{models.StepTDLicense},
	},
	models.StepTDLicense: {
		Name:    "Driving License",
		Prompt:  "3. Do you have a valid driving license?",
		Options: []string{LicenseYes, LicenseNo},
		Input:   InputOptions,
		Hint:    "Please answer Yes or No.\n\n3. Do you have a valid driving license?",
		Next:    []models.Step{models.StepTDLocationMode},
	},
	models.StepTDLocationMode: {
		Name:    "Location Mode",
		Prompt:  "Thank you! Where would you like to take the test drive?",
		Options: []string{ShowroomPickup, HomePickup},
		Input:   InputOptions,
		Hint:    "Please choose where you'd like to take the test drive:",
		Next:    []models.Step{models.StepTDHomeAddress, models.StepTestDriveConfirmation},
	},
	models.StepTDHomeAddress: {
		Name:     "Home Address",
		Prompt:   "Please share your current address for the test drive:",
		Input:    InputPattern,
		Validate: ValidAddress,
		Hint:     "Please share a complete address (10-200 characters):",
		Next:     []models.Step{models.StepTestDriveConfirmation},
	},
	models.StepTDDropLocation: {
		Name:     "Drop Location",
		Prompt:   "Please share the location where we should bring the car:",
		Input:    InputPattern,
		Validate: ValidAddress,
		Hint:     "Please share a complete address (10-200 characters):",
		Next:     []models.Step{models.StepTestDriveConfirmation},
	},
	models.StepTestDriveConfirmation: {
		Name:    "Test Drive Confirmation",
		Prompt:  "Please confirm your booking:",
		Options: []string{models.OptionConfirm, models.OptionReject},
		Input:   InputOptions,
		Next:    []models.Step{models.StepBookingComplete, models.StepBrowseBudget},
	},
	models.StepBookingComplete: {
		Name:    "Booking Complete",
		Prompt:  "Thank you! Your test drive has been confirmed.",
		Options: []string{models.OptionExploreMore, models.OptionEndConversation},
		Input:   InputOptions,
		Hint:    "Please select an option:",
		Next:    []models.Step{models.StepBrowseBudget},
	},
	models.StepChangeCriteriaConfirm: {
		Name:    "Change Criteria",
		Prompt:  "Would you like to change your search criteria?",
		Options: []string{LicenseYes, LicenseNo},
		Input:   InputOptions,
		Hint:    "Please answer Yes or No.",
		Next:    []models.Step{models.StepBrowseBudget, models.StepShowMoreCars},
	},
}

// IsChangeCriteria reports whether text asks to reset the search criteria.
func IsChangeCriteria(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "change criteria", "change my criteria", "reject":
		return true
	}
	return false
}
