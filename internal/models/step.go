package models

import "strings"

// Step is the current state of a conversation. The set of steps is closed:
// values outside it are rejected by ParseStep.
type Step string

// Browse and test-drive steps.
const (
	StepMainMenu              Step = "main_menu"
	StepBrowseStart           Step = "browse_start"
	StepBrowseBudget          Step = "browse_budget"
	StepBrowseType            Step = "browse_type"
	StepBrowseBrand           Step = "browse_brand"
	StepShowCars              Step = "show_cars"
	StepShowMoreCars          Step = "show_more_cars"
	StepCarSelectedOptions    Step = "car_selected_options"
	StepShowComparison        Step = "show_comparison"
	StepTestDriveDate         Step = "test_drive_date"
	StepTestDriveDay          Step = "test_drive_day"
	StepTestDriveTime         Step = "test_drive_time"
	StepTDName                Step = "td_name"
	StepTDPhone               Step = "td_phone"
	StepTDLicense             Step = "td_license"
	StepTDLocationMode        Step = "td_location_mode"
	StepTDHomeAddress         Step = "td_home_address"
	StepTDDropLocation        Step = "td_drop_location"
	StepTestDriveConfirmation Step = "test_drive_confirmation"
	StepBookingComplete       Step = "booking_complete"
	StepChangeCriteriaConfirm Step = "change_criteria_confirm"
)

// Valuation steps.
const (
	StepValuationBrand        Step = "valuation_brand"
	StepValuationOtherBrand   Step = "valuation_other_brand"
	StepValuationModel        Step = "valuation_model"
	StepValuationOtherModel   Step = "valuation_other_model"
	StepValuationYear         Step = "valuation_year"
	StepValuationFuel         Step = "valuation_fuel"
	StepValuationKms          Step = "valuation_kms"
	StepValuationOwner        Step = "valuation_owner"
	StepValuationCondition    Step = "valuation_condition"
	StepValuationName         Step = "valuation_name"
	StepValuationPhone        Step = "valuation_phone"
	StepValuationLocation     Step = "valuation_location"
	StepValuationConfirmation Step = "valuation_confirmation"
	StepValuationDone         Step = "valuation_done"
)

// Contact and about steps.
const (
	StepContactMenu Step = "contact_menu"
	StepAboutMenu   Step = "about_menu"
)

// ClassifierSteps lists the steps the intent classifier may route to.
var ClassifierSteps = []Step{
	StepMainMenu, StepBrowseStart, StepBrowseBudget, StepBrowseType, StepBrowseBrand,
	StepShowCars, StepShowMoreCars, StepCarSelectedOptions, StepShowComparison,
	StepTestDriveDate, StepTestDriveDay, StepTestDriveTime,
	StepTDName, StepTDPhone, StepTDLicense, StepTDLocationMode, StepTDHomeAddress, StepTDDropLocation,
	StepTestDriveConfirmation, StepBookingComplete, StepChangeCriteriaConfirm,
}

var knownSteps = func() map[Step]struct{} {
	all := append([]Step{}, ClassifierSteps...)
	all = append(all,
		StepValuationBrand, StepValuationOtherBrand, StepValuationModel, StepValuationOtherModel,
		StepValuationYear, StepValuationFuel, StepValuationKms, StepValuationOwner,
		StepValuationCondition, StepValuationName, StepValuationPhone, StepValuationLocation,
		StepValuationConfirmation, StepValuationDone,
		StepContactMenu, StepAboutMenu,
	)
	m := make(map[Step]struct{}, len(all))
	for _, s := range all {
		m[s] = struct{}{}
	}
	return m
}()

// ParseStep converts s into a Step. The empty string is a valid "unset" step.
func ParseStep(s string) (Step, bool) {
	st := Step(strings.TrimSpace(s))
	if st == "" {
		return st, true
	}
	_, ok := knownSteps[st]
	return st, ok
}

// IsValid reports whether the step belongs to the closed set (or is unset).
func (s Step) IsValid() bool {
	_, ok := ParseStep(string(s))
	return ok
}

func (s Step) String() string { return string(s) }

// IsValuation reports whether the step belongs to the car valuation flow.
func (s Step) IsValuation() bool {
	return strings.HasPrefix(string(s), "valuation_")
}

// IsContact reports whether the step belongs to the contact menu.
func (s Step) IsContact() bool {
	return strings.HasPrefix(string(s), "contact_")
}

// IsAbout reports whether the step belongs to the about menu.
func (s Step) IsAbout() bool {
	return strings.HasPrefix(string(s), "about_")
}

// IsBrowse reports whether the step belongs to the browse, comparison or
// test-drive booking flow.
func (s Step) IsBrowse() bool {
	if s == "" || s == StepMainMenu {
		return false
	}
	for _, c := range ClassifierSteps {
		if c == s {
			return true
		}
	}
	return false
}
