package models

// Main menu buttons.
const (
	OptionBrowseUsedCars = "🚗 Browse Used Cars"
	OptionGetValuation   = "💰 Get Car Valuation"
	OptionContactTeam    = "📞 Contact Our Team"
	OptionAboutUs        = "ℹ️ About Us"
)

// MainMenuOptions are offered on the main menu, in display order.
var MainMenuOptions = []string{OptionBrowseUsedCars, OptionGetValuation, OptionContactTeam, OptionAboutUs}

// Labels shared by the classifier and the step table.
const (
	OptionBookTestDrive    = "Book Test Drive"
	OptionChangeMyCriteria = "Change My Criteria"
	OptionChangeCriteria   = "Change criteria"
	OptionBrowseMoreCars   = "Browse More Cars"
	OptionCompareMoreCars  = "Compare More Cars"
	OptionGetDetails       = "Get Details"
	OptionStartOver        = "Start Over"
	OptionMainMenu         = "Main Menu"
	OptionBrowseCars       = "Browse Cars"
	OptionGetSuggestions   = "Get Suggestions"
	OptionConfirm          = "Confirm"
	OptionReject           = "Reject"
	OptionExploreMore      = "Explore More"
	OptionEndConversation  = "End Conversation"
)

// Test-drive date choices.
const (
	DateToday     = "Today"
	DateTomorrow  = "Tomorrow"
	DateLaterWeek = "Later this Week"
	DateNextWeek  = "Next Week"
)

// TestDriveDateOptions are offered when scheduling a test drive.
var TestDriveDateOptions = []string{DateToday, DateTomorrow, DateLaterWeek, DateNextWeek}
