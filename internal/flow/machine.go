package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/DealerPipe/internal/comparison"
	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/store"
)

// Machine messages.
const (
	NoCarsFoundMessage     = "Sorry, no cars found matching your criteria. Let's try different options."
	DifferentCarMessage    = "No problem! Let's find you a different car. What's your budget range?"
	ExploreMoreMessage     = "Welcome! Let's find your perfect car. What's your budget range?"
	SelectOptionMessage    = "Please select an option:"
	PickComparedCarMessage = "Which car would you like to test drive?"
	typePromptFormat       = "Perfect! %s gives you excellent options. What type of car do you prefer?"
	brandPrompt            = "Excellent choice! Which brand do you prefer?"
)

// Machine is the deterministic step machine for browsing, comparing and
// booking test drives. It answers purely from session.step and is used both
// for literal button presses and whenever the classifier is unavailable.
type Machine struct {
	inventory store.Inventory
	bookings  store.BookingRepo
	opts      Opts
}

// NewMachine creates a Machine over the inventory and booking repository.
func NewMachine(inventory store.Inventory, bookings store.BookingRepo, opts ...Option) *Machine {
	return &Machine{inventory: inventory, bookings: bookings, opts: newOpts(opts)}
}

// FilterQuery builds the inventory query for the session's budget, type and
// brand slots.
func FilterQuery(sess *models.Session) models.CarQuery {
	var q models.CarQuery
	if sess.Budget != "" && sess.Budget != models.BudgetAny {
		r := models.BudgetRange(sess.Budget)
		q.Price = &r
	}
	if sess.Type != "" && sess.Type != models.FilterAll {
		q.Type = sess.Type
	}
	if sess.Brand != "" && sess.Brand != models.FilterAll {
		q.Brands = []string{sess.Brand}
	}
	return q
}

func (m *Machine) distinct(ctx context.Context, sess *models.Session, column models.CarColumn, q models.CarQuery) []string {
	vals, err := m.inventory.DistinctValues(ctx, column, q)
	if err != nil {
		slog.Error("Machine.distinct: inventory query failed", "column", column, "error", err, "session", sess)
		return nil
	}
	return vals
}

// AvailableTypes lists the car types within the session's budget.
func (m *Machine) AvailableTypes(ctx context.Context, sess *models.Session) []string {
	q := FilterQuery(&models.Session{Budget: sess.Budget})
	return m.distinct(ctx, sess, models.ColumnType, q)
}

// AvailableBrands lists the brands within the session's budget and type.
func (m *Machine) AvailableBrands(ctx context.Context, sess *models.Session) []string {
	q := FilterQuery(&models.Session{Budget: sess.Budget, Type: sess.Type})
	return m.distinct(ctx, sess, models.ColumnBrand, q)
}

// FetchCars loads the cars matching the session filters into filteredCars
// and rewinds the cursor. Failures leave an empty list.
func (m *Machine) FetchCars(ctx context.Context, sess *models.Session) {
	cars, err := m.inventory.SearchCars(ctx, FilterQuery(sess))
	if err != nil {
		slog.Error("Machine.FetchCars: inventory query failed", "error", err, "session", sess)
		cars = nil
	}
	sess.FilteredCars = cars
	sess.CarIndex = 0
}

// Accepts reports whether text is a literal answer the current step can
// take without classification.
func (m *Machine) Accepts(sess *models.Session, text string) bool {
	text = strings.TrimSpace(text)
	cfg, ok := StepTable[sess.Step]
	if !ok {
		return false
	}
	if _, ok := cfg.Match(text); ok {
		return true
	}
	if cfg.Literal && cfg.Validate != nil {
		if _, ok := cfg.Validate(text); ok {
			return true
		}
	}
	// Buttons offered last turn for type and brand are literal answers too.
	if cfg.Input == InputType || cfg.Input == InputBrand {
		_, ok := equalFoldAny(text, sess.LastOptions)
		return ok
	}
	switch sess.Step {
	case models.StepShowCars, models.StepShowMoreCars:
		if isMoreCars(text) || IsChangeCriteria(text) {
			return true
		}
		_, ok := FindBySelectionID(sess.FilteredCars, text)
		return ok
	case models.StepTestDriveDay:
		_, ok := MatchDay(text, DayChoices(sess.TestDriveDate, m.opts.Now()))
		return ok
	case models.StepShowComparison:
		if _, ok := equalFoldAny(text, comparisonChoices); ok {
			return true
		}
		_, ok := comparedCar(sess, text)
		return ok
	}
	return false
}

func isMoreCars(text string) bool {
	_, ok := equalFoldAny(text, []string{models.OptionBrowseMoreCars, "Show More Options", "Show More Cars"})
	return ok
}

// Handle answers text at the current step. It returns false when the step
// has no deterministic handler. A nil reply with true means the conversation
// ended and nothing is sent.
func (m *Machine) Handle(ctx context.Context, sess *models.Session, text string) (*models.Reply, bool) {
	text = strings.TrimSpace(text)
	switch sess.Step {
	case models.StepBrowseStart:
		return m.BrowseStart(ctx, sess), true
	case models.StepBrowseBudget:
		return m.budget(ctx, sess, text), true
	case models.StepBrowseType:
		return m.carType(ctx, sess, text), true
	case models.StepBrowseBrand:
		return m.brand(ctx, sess, text), true
	case models.StepShowCars, models.StepShowMoreCars:
		return m.showCars(sess, text), true
	case models.StepCarSelectedOptions:
		return m.carSelected(sess, text), true
	case models.StepShowComparison:
		return m.showComparison(sess, text), true
	case models.StepTestDriveDate:
		return m.date(sess, text), true
	case models.StepTestDriveDay:
		return m.day(sess, text), true
	case models.StepTestDriveTime:
		return m.timeSlot(sess, text), true
	case models.StepTDName:
		return m.pattern(sess, text, &sess.TDName, models.StepTDPhone), true
	case models.StepTDPhone:
		return m.pattern(sess, text, &sess.TDPhone, models.StepTDLicense), true
	case models.StepTDLicense:
		return m.license(sess, text), true
	case models.StepTDLocationMode:
		return m.locationMode(sess, text), true
	case models.StepTDHomeAddress:
		return m.address(sess, text, &sess.TDHomeAddress), true
	case models.StepTDDropLocation:
		return m.address(sess, text, &sess.TDDropLocation), true
	case models.StepTestDriveConfirmation:
		return m.confirmation(ctx, sess, text), true
	case models.StepBookingComplete:
		return m.bookingComplete(sess, text), true
	case models.StepChangeCriteriaConfirm:
		return m.changeCriteria(sess, text), true
	default:
		return nil, false
	}
}

// prompt asks the question of step with its configured options.
func prompt(step models.Step, options ...string) *models.Reply {
	cfg := StepTable[step]
	if options == nil {
		options = cfg.Options
	}
	return models.NewReply(step, cfg.Prompt, options...)
}

// reprompt repeats the current step with its hint. Nothing in the session
// changes.
func reprompt(sess *models.Session, options ...string) *models.Reply {
	cfg := StepTable[sess.Step]
	if options == nil {
		options = cfg.Options
	}
	hint := cfg.Hint
	if hint == "" {
		hint = SelectOptionMessage
	}
	return models.NewReply(sess.Step, hint, options...)
}

// BrowseStart asks for the first missing filter, or shows the cars when
// budget, type and brand are all known.
func (m *Machine) BrowseStart(ctx context.Context, sess *models.Session) *models.Reply {
	switch {
	case sess.Budget == "":
		sess.Step = models.StepBrowseBudget
		return budgetPrompt(ExploreMoreMessage)
	case sess.Type == "":
		return m.AcceptBudget(ctx, sess, sess.Budget)
	case sess.Brand == "":
		return m.AcceptType(ctx, sess, sess.Type)
	default:
		return m.AcceptBrand(ctx, sess, sess.Brand)
	}
}

func (m *Machine) budget(ctx context.Context, sess *models.Session, text string) *models.Reply {
	b, ok := MatchBudget(text)
	if !ok {
		return reprompt(sess, models.BudgetOptions...)
	}
	return m.AcceptBudget(ctx, sess, b)
}

// AcceptBudget stores the budget and asks for a car type.
func (m *Machine) AcceptBudget(ctx context.Context, sess *models.Session, budget string) *models.Reply {
	sess.Budget = budget
	sess.Step = models.StepBrowseType
	types := m.AvailableTypes(ctx, sess)
	return models.NewReply(sess.Step, fmt.Sprintf(typePromptFormat, budget), append([]string{AllTypeOption}, types...)...)
}

func (m *Machine) carType(ctx context.Context, sess *models.Session, text string) *models.Reply {
	types := m.AvailableTypes(ctx, sess)
	t, ok := MatchType(text, types)
	if !ok {
		return reprompt(sess, append([]string{AllTypeOption}, types...)...)
	}
	return m.AcceptType(ctx, sess, t)
}

// AcceptType stores the type and asks for a brand.
func (m *Machine) AcceptType(ctx context.Context, sess *models.Session, carType string) *models.Reply {
	sess.Type = carType
	sess.Step = models.StepBrowseBrand
	brands := m.AvailableBrands(ctx, sess)
	return models.NewReply(sess.Step, brandPrompt, append([]string{AllBrandOption}, brands...)...)
}

func (m *Machine) brand(ctx context.Context, sess *models.Session, text string) *models.Reply {
	brands := m.AvailableBrands(ctx, sess)
	b, ok := MatchBrand(text, brands)
	if !ok {
		return reprompt(sess, append([]string{AllBrandOption}, brands...)...)
	}
	return m.AcceptBrand(ctx, sess, b)
}

// AcceptBrand stores the brand, loads the matching cars and shows the first
// page.
func (m *Machine) AcceptBrand(ctx context.Context, sess *models.Session, brand string) *models.Reply {
	sess.Brand = brand
	m.FetchCars(ctx, sess)
	if len(sess.FilteredCars) == 0 {
		sess.Step = models.StepShowCars
		return models.NewReply(sess.Step, NoCarsFoundMessage, models.OptionChangeCriteria)
	}
	return RenderPage(sess, m.opts.MediaBaseURL)
}

// ChangeCriteria resets the search and asks for a budget again.
func (m *Machine) ChangeCriteria(sess *models.Session, message string) *models.Reply {
	sess.ResetCriteria()
	sess.Step = models.StepBrowseBudget
	return budgetPrompt(message)
}

func (m *Machine) showCars(sess *models.Session, text string) *models.Reply {
	switch {
	case isMoreCars(text):
		next := sess.CarIndex + PageSize
		if next >= len(sess.FilteredCars) {
			sess.Step = models.StepShowMoreCars
			return models.NewReply(sess.Step, CarsExhaustedText, models.OptionChangeCriteria)
		}
		sess.CarIndex = next
		return RenderPage(sess, m.opts.MediaBaseURL)
	case IsChangeCriteria(text):
		return m.ChangeCriteria(sess, DifferentCarMessage)
	case strings.HasPrefix(text, "book_"):
		if car, ok := FindBySelectionID(sess.FilteredCars, text); ok {
			return m.Select(sess, car.DisplayName(), fmt.Sprintf("Great choice! You've selected %s. What would you like to do next?", car.DisplayName()))
		}
	}
	return RenderPage(sess, m.opts.MediaBaseURL)
}

// Select records the chosen car and offers the next actions.
func (m *Machine) Select(sess *models.Session, car, message string) *models.Reply {
	sess.SelectedCar = car
	sess.Step = models.StepCarSelectedOptions
	return models.NewReply(sess.Step, message, models.OptionBookTestDrive, models.OptionChangeMyCriteria)
}

func (m *Machine) carSelected(sess *models.Session, text string) *models.Reply {
	opt, ok := StepTable[sess.Step].Match(text)
	switch {
	case ok && opt == models.OptionBookTestDrive:
		sess.Step = models.StepTestDriveDate
		return models.NewReply(sess.Step,
			fmt.Sprintf("Excellent! Let's schedule your %s test drive. When would you prefer?", sess.SelectedCar),
			models.TestDriveDateOptions...)
	case ok, IsChangeCriteria(text):
		return m.ChangeCriteria(sess, DifferentCarMessage)
	}
	return reprompt(sess)
}

// comparisonChoices are accepted at show_comparison.
var comparisonChoices = []string{models.OptionBookTestDrive, models.OptionCompareMoreCars, models.OptionGetDetails, models.OptionStartOver, models.OptionMainMenu}

func comparedCar(sess *models.Session, text string) (models.Car, bool) {
	for _, c := range sess.ComparisonCars {
		if strings.EqualFold(strings.TrimSpace(text), c.DisplayName()) {
			return c, true
		}
	}
	return models.Car{}, false
}

func comparedNames(sess *models.Session) []string {
	names := make([]string, 0, len(sess.ComparisonCars))
	for _, c := range sess.ComparisonCars {
		names = append(names, c.DisplayName())
	}
	return names
}

func (m *Machine) showComparison(sess *models.Session, text string) *models.Reply {
	if car, ok := comparedCar(sess, text); ok {
		return m.Select(sess, car.DisplayName(), fmt.Sprintf("Great choice! You've selected %s. What would you like to do next?", car.DisplayName()))
	}
	opt, _ := equalFoldAny(text, comparisonChoices)
	switch opt {
	case models.OptionBookTestDrive:
		names := comparedNames(sess)
		if len(names) == 0 {
			return m.ChangeCriteria(sess, DifferentCarMessage)
		}
		return models.NewReply(sess.Step, PickComparedCarMessage, names...)
	case models.OptionCompareMoreCars:
		sess.ComparisonCars = nil
		sess.ComparisonCriteria = nil
		sess.Step = models.StepBrowseStart
		return models.NewReply(sess.Step,
			"Sure! Tell me which cars you'd like to compare, for example \"Compare Creta and Seltos\".",
			models.OptionBrowseCars, models.OptionGetSuggestions, models.OptionMainMenu)
	case models.OptionGetDetails:
		return models.NewReply(sess.Step, comparisonDetails(sess.ComparisonCars), ComparisonOptions[:2]...)
	case models.OptionStartOver, models.OptionMainMenu:
		sess.ResetAll()
		return MainMenu(m.opts.Profile)
	}
	return reprompt(sess, ComparisonOptions...)
}

func comparisonDetails(cars []models.Car) string {
	if len(cars) == 0 {
		return NoCarsToDisplay
	}
	var b strings.Builder
	b.WriteString("Here are the details:\n")
	for _, c := range cars {
		e := comparison.Enrich(c)
		fmt.Fprintf(&b, "\n🚗 %s\n📅 Year: %d\n⛽ Fuel: %s (%d kmpl)\n💰 Price: %s\n⭐ Safety: %.1f/5\n🔧 Maintenance: %s\n📈 Resale: %s\n",
			e.Name, e.Year, e.FuelType, e.FuelEfficiency, e.PriceFormatted, e.SafetyRating, e.MaintenanceCost, e.ResaleValue)
		if len(e.Features) > 0 {
			fmt.Fprintf(&b, "✨ Features: %s\n", strings.Join(e.Features, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Machine) date(sess *models.Session, text string) *models.Reply {
	opt, ok := StepTable[sess.Step].Match(text)
	if !ok {
		return reprompt(sess)
	}
	sess.TestDriveDate = opt
	sess.TestDriveDay = ""
	now := m.opts.Now()
	if d, ok := ResolveDate(opt, now); ok {
		sess.TestDriveActualDate = &d
		sess.TestDriveDateFormatted = FormatDate(d)
		sess.Step = models.StepTestDriveTime
		return prompt(sess.Step)
	}
	sess.TestDriveActualDate = nil
	sess.TestDriveDateFormatted = ""
	sess.Step = models.StepTestDriveDay
	return prompt(sess.Step, DayLabels(DayChoices(opt, now))...)
}

func (m *Machine) day(sess *models.Session, text string) *models.Reply {
	choices := DayChoices(sess.TestDriveDate, m.opts.Now())
	c, ok := MatchDay(text, choices)
	if !ok {
		return reprompt(sess, DayLabels(choices)...)
	}
	d := c.Date
	sess.TestDriveDay = c.Label
	sess.TestDriveActualDate = &d
	sess.TestDriveDateFormatted = FormatDate(d)
	sess.Step = models.StepTestDriveTime
	return prompt(sess.Step)
}

func (m *Machine) timeSlot(sess *models.Session, text string) *models.Reply {
	opt, ok := StepTable[sess.Step].Match(text)
	if !ok {
		return reprompt(sess)
	}
	sess.TestDriveTime = opt
	sess.Step = models.StepTDName
	return prompt(sess.Step)
}

// pattern validates a free-form answer with the step's validator.
func (m *Machine) pattern(sess *models.Session, text string, slot *string, next models.Step) *models.Reply {
	v, ok := StepTable[sess.Step].Validate(text)
	if !ok {
		return reprompt(sess)
	}
	*slot = v
	sess.Step = next
	return prompt(next)
}

func (m *Machine) license(sess *models.Session, text string) *models.Reply {
	opt, ok := StepTable[sess.Step].Match(text)
	if !ok {
		return reprompt(sess)
	}
	sess.TDLicense = opt
	sess.Step = models.StepTDLocationMode
	return prompt(sess.Step)
}

func (m *Machine) locationMode(sess *models.Session, text string) *models.Reply {
	opt, ok := StepTable[sess.Step].Match(text)
	if !ok {
		return reprompt(sess)
	}
	sess.TDLocationMode = opt
	if opt == HomePickup && sess.TDHomeAddress == "" {
		sess.Step = models.StepTDHomeAddress
		return prompt(sess.Step)
	}
	return m.Summary(sess)
}

func (m *Machine) address(sess *models.Session, text string, slot *string) *models.Reply {
	v, ok := StepTable[sess.Step].Validate(text)
	if !ok {
		return reprompt(sess)
	}
	*slot = v
	return m.Summary(sess)
}

func (m *Machine) confirmation(ctx context.Context, sess *models.Session, text string) *models.Reply {
	opt, ok := StepTable[sess.Step].Match(text)
	switch {
	case ok && opt == models.OptionConfirm:
		return m.CompleteBooking(ctx, sess)
	case ok && opt == models.OptionReject:
		return m.ChangeCriteria(sess, DifferentCarMessage)
	}
	return m.Summary(sess)
}

func (m *Machine) bookingComplete(sess *models.Session, text string) *models.Reply {
	opt, ok := StepTable[sess.Step].Match(text)
	switch {
	case ok && opt == models.OptionExploreMore:
		return m.ChangeCriteria(sess, ExploreMoreMessage)
	case ok && opt == models.OptionEndConversation:
		sess.End()
		return nil
	}
	return reprompt(sess)
}

func (m *Machine) changeCriteria(sess *models.Session, text string) *models.Reply {
	opt, ok := StepTable[sess.Step].Match(text)
	switch {
	case ok && opt == LicenseYes:
		return m.ChangeCriteria(sess, DifferentCarMessage)
	case ok && opt == LicenseNo:
		return RenderPage(sess, m.opts.MediaBaseURL)
	}
	return reprompt(sess)
}
