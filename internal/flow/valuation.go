package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/BTreeMap/DealerPipe/internal/dealer"
	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/store"
)

// Valuation answer options.
var (
	YearOptions      = []string{"2024", "2023", "2022", "2021", "2020", "Older than 2020"}
	FuelOptions      = []string{"Petrol", "Diesel", "CNG", "Electric"}
	KmsOptions       = []string{"Under 10,000 KM", "10,000 - 25,000 KM", "25,000 - 50,000 KM", "50,000 - 75,000 KM", "75,000 - 1,00,000 KM", "Over 1,00,000 KM"}
	OwnerOptions     = []string{"1st Owner (Me)", "2nd Owner", "3rd Owner", "More than 3 owners"}
	ConditionOptions = []string{"Excellent (Like new)", "Good (Minor wear)", "Average (Normal)", "Fair (Needs work)"}
)

const (
	// OtherBrandsOption lets the customer type a brand that is not listed.
	OtherBrandsOption = "Other brands"

	ValuationRejectedMessage = "ℹ️ You have rejected the confirmation. If you change your mind, say 'start' to begin again."
	minValuationYear         = 1980
)

// ValuationFlow collects the details of a car the customer wants to sell
// and records the valuation request.
type ValuationFlow struct {
	inventory store.Inventory
	repo      store.ValuationRepo
	opts      Opts
}

// NewValuationFlow creates a ValuationFlow.
func NewValuationFlow(inventory store.Inventory, repo store.ValuationRepo, opts ...Option) *ValuationFlow {
	return &ValuationFlow{
		inventory: inventory,
		repo:      repo,
		opts:      newOpts(opts),
	}
}

// Start begins a valuation, dropping any earlier valuation answers.
func (v *ValuationFlow) Start(ctx context.Context, sess *models.Session) *models.Reply {
	sess.Valuation = models.ValuationSlots{}
	return v.advance(ctx, sess)
}

// titleCase capitalises free-text brand and model names. A Caser is not
// safe for concurrent use, so one is made per call.
func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

func otherModelsOption(brand string) string {
	return fmt.Sprintf("Other %s models", brand)
}

func (v *ValuationFlow) brands(ctx context.Context) []string {
	brands, err := v.inventory.DistinctValues(ctx, models.ColumnBrand, models.CarQuery{})
	if err != nil {
		slog.Error("ValuationFlow.brands: inventory query failed", "error", err)
	}
	return brands
}

func (v *ValuationFlow) modelNames(ctx context.Context, brand string) []string {
	names, err := v.inventory.DistinctValues(ctx, models.ColumnModel, models.CarQuery{Brands: []string{brand}})
	if err != nil {
		slog.Error("ValuationFlow.models: inventory query failed", "error", err, "brand", brand)
	}
	return names
}

// advance asks for the first slot that is still empty. Once every slot is
// filled the request is stored and the seller confirmation is shown.
func (v *ValuationFlow) advance(ctx context.Context, sess *models.Session) *models.Reply {
	val := &sess.Valuation
	switch {
	case val.Brand == "":
		sess.Step = models.StepValuationBrand
		return models.NewReply(sess.Step,
			"Great! I'll help you get a valuation for your car. Let's start with some basic details.\n\nFirst, which brand is your car?",
			append(v.brands(ctx), OtherBrandsOption)...)
	case val.Model == "":
		sess.Step = models.StepValuationModel
		return models.NewReply(sess.Step, fmt.Sprintf("Perfect! Which %s model do you have?", val.Brand),
			append(v.modelNames(ctx, val.Brand), otherModelsOption(val.Brand))...)
	case val.Year == "":
		sess.Step = models.StepValuationYear
		return models.NewReply(sess.Step, fmt.Sprintf("Excellent! What year is your %s?", val.Model), YearOptions...)
	case val.Fuel == "":
		sess.Step = models.StepValuationFuel
		return models.NewReply(sess.Step, fmt.Sprintf("Great! What's the fuel type of your %s %s?", val.Year, val.Model), FuelOptions...)
	case val.Kms == "":
		sess.Step = models.StepValuationKms
		return models.NewReply(sess.Step, "Perfect! How many kilometers has your car been driven?", KmsOptions...)
	case val.Owner == "":
		sess.Step = models.StepValuationOwner
		return models.NewReply(sess.Step, "Almost done! How many owners has this car had?", OwnerOptions...)
	case val.Condition == "":
		sess.Step = models.StepValuationCondition
		return models.NewReply(sess.Step, "Last question! How would you rate your car's overall condition?", ConditionOptions...)
	case val.Name == "":
		sess.Step = models.StepValuationName
		return models.NewReply(sess.Step, "Great! We'd love to purchase your car. Let me collect your details:\n\n1. Your Name:")
	case val.Phone == "":
		sess.Step = models.StepValuationPhone
		return models.NewReply(sess.Step, "2. Your Phone Number:")
	case val.Location == "":
		sess.Step = models.StepValuationLocation
		return models.NewReply(sess.Step, "3. Your Current Location/City:")
	default:
		v.record(ctx, sess)
		return v.confirmation(sess)
	}
}

// Handle answers text at the current valuation step.
func (v *ValuationFlow) Handle(ctx context.Context, sess *models.Session, text string) *models.Reply {
	text = strings.TrimSpace(text)
	val := &sess.Valuation
	switch sess.Step {
	case models.StepValuationBrand:
		if strings.EqualFold(text, OtherBrandsOption) {
			sess.Step = models.StepValuationOtherBrand
			return models.NewReply(sess.Step, "Please type the brand name of your car.")
		}
		brands := v.brands(ctx)
		b, ok := equalFoldAny(text, brands)
		if !ok {
			b, ok = fuzzyPick(text, brands)
		}
		if !ok {
			return models.NewReply(sess.Step, "Please select your car's brand from the options below:", append(brands, OtherBrandsOption)...)
		}
		val.Brand = b
	case models.StepValuationOtherBrand:
		if utf8.RuneCountInString(text) < 2 {
			return models.NewReply(sess.Step, "Please type the brand name of your car.")
		}
		val.Brand = titleCase(text)
	case models.StepValuationModel:
		if strings.EqualFold(text, otherModelsOption(val.Brand)) || strings.HasPrefix(strings.ToLower(text), "other") {
			sess.Step = models.StepValuationOtherModel
			return models.NewReply(sess.Step, "Perfect! Please write down which model car you have.")
		}
		names := v.modelNames(ctx, val.Brand)
		if m, ok := equalFoldAny(text, names); ok {
			val.Model = m
		} else if utf8.RuneCountInString(text) >= 2 {
			val.Model = titleCase(text)
		} else {
			return models.NewReply(sess.Step, fmt.Sprintf("Perfect! Which %s model do you have?", val.Brand),
				append(names, otherModelsOption(val.Brand))...)
		}
	case models.StepValuationOtherModel:
		if utf8.RuneCountInString(text) < 2 {
			return models.NewReply(sess.Step, "Perfect! Please write down which model car you have.")
		}
		val.Model = titleCase(text)
	case models.StepValuationYear:
		y, ok := v.matchYear(text)
		if !ok {
			return invalidChoice(sess.Step, "year", YearOptions)
		}
		val.Year = y
	case models.StepValuationFuel:
		if !pickOption(text, FuelOptions, &val.Fuel) {
			return invalidChoice(sess.Step, "fuel type", FuelOptions)
		}
	case models.StepValuationKms:
		if !pickOption(text, KmsOptions, &val.Kms) {
			return invalidChoice(sess.Step, "mileage", KmsOptions)
		}
	case models.StepValuationOwner:
		if !pickOption(text, OwnerOptions, &val.Owner) {
			return invalidChoice(sess.Step, "owner count", OwnerOptions)
		}
	case models.StepValuationCondition:
		if !pickOption(text, ConditionOptions, &val.Condition) {
			return invalidChoice(sess.Step, "car condition", ConditionOptions)
		}
	case models.StepValuationName:
		name, ok := ValidName(text)
		if !ok {
			return models.NewReply(sess.Step, "Please enter a valid name (2-50 characters, letters only).\n\n1. Your Name:")
		}
		val.Name = name
	case models.StepValuationPhone:
		phone, ok := ValidPhone(text)
		if !ok {
			return models.NewReply(sess.Step, "Please enter a valid 10-digit Indian phone number.\n\n2. Your Phone Number:")
		}
		val.Phone = phone
	case models.StepValuationLocation:
		if utf8.RuneCountInString(text) < 2 {
			return models.NewReply(sess.Step, "3. Your Current Location/City:")
		}
		val.Location = text
	case models.StepValuationConfirmation:
		return v.confirm(ctx, sess, text)
	case models.StepValuationDone:
		return v.done(sess, text)
	default:
		return v.Start(ctx, sess)
	}
	return v.advance(ctx, sess)
}

func pickOption(text string, options []string, slot *string) bool {
	opt, ok := equalFoldAny(text, options)
	if !ok {
		opt, ok = fuzzyPick(text, options)
	}
	if ok {
		*slot = opt
	}
	return ok
}

// matchYear accepts a listed option or a plausible four-digit year.
func (v *ValuationFlow) matchYear(text string) (string, bool) {
	if opt, ok := equalFoldAny(text, YearOptions); ok {
		return opt, true
	}
	y, err := strconv.Atoi(text)
	if err != nil || y < minValuationYear || y > v.opts.Now().Year() {
		return "", false
	}
	return text, true
}

func invalidChoice(step models.Step, what string, options []string) *models.Reply {
	return models.NewReply(step, fmt.Sprintf("Please select a valid %s from the options below:", what), options...)
}

// record stores the request as pending. A failed write is logged and the
// conversation carries on without an id.
func (v *ValuationFlow) record(ctx context.Context, sess *models.Session) {
	if sess.Valuation.ID != 0 {
		return
	}
	val := sess.Valuation
	id, err := v.repo.CreateValuation(ctx, models.ValuationRequest{
		ConversationID: sess.ConversationID,
		Name:           val.Name,
		Phone:          val.Phone,
		Location:       val.Location,
		Brand:          val.Brand,
		Model:          val.Model,
		Year:           val.Year,
		Fuel:           val.Fuel,
		Kms:            val.Kms,
		Owner:          val.Owner,
		Condition:      val.Condition,
		Status:         models.ValuationPending,
		CreatedAt:      v.opts.Now(),
	})
	if err != nil {
		slog.Error("ValuationFlow.record: failed to store valuation request", "error", err, "session", sess)
		return
	}
	sess.Valuation.ID = id
	sess.Valuation.Status = models.ValuationPending
	v.opts.Observer.Valuation(models.ValuationPending)
	slog.Info("ValuationFlow.record: valuation request stored", "id", id, "conversationID", sess.ConversationID)
}

func (v *ValuationFlow) confirmation(sess *models.Session) *models.Reply {
	val := sess.Valuation
	sess.Step = models.StepValuationConfirmation
	msg := fmt.Sprintf("Perfect %s! Here's what we have:\n\n📋 SELLER CONFIRMATION:\n👤 Name: %s\n📱 Phone: %s\n🚗 Car: %s %s %s %s\n📍 Location: %s\n\nIf the details above are correct, please Confirm to proceed or Reject to cancel.",
		val.Name, val.Name, val.Phone, val.Year, val.Brand, val.Model, val.Fuel, val.Location)
	return models.NewReply(sess.Step, msg, models.OptionConfirm, models.OptionReject)
}

// setStatus updates the stored request. Failures are logged.
func (v *ValuationFlow) setStatus(ctx context.Context, sess *models.Session, status string) {
	if sess.Valuation.ID == 0 {
		return
	}
	if err := v.repo.UpdateValuationStatus(ctx, sess.Valuation.ID, status); err != nil {
		slog.Error("ValuationFlow.setStatus: failed to update valuation", "id", sess.Valuation.ID, "status", status, "error", err)
		return
	}
	sess.Valuation.Status = status
	v.opts.Observer.Valuation(status)
}

// MarkEnded closes a valuation that is still pending when the customer ends
// the conversation.
func (v *ValuationFlow) MarkEnded(ctx context.Context, sess *models.Session) {
	if sess.Valuation.ID == 0 || sess.Valuation.Status != models.ValuationPending {
		return
	}
	v.setStatus(ctx, sess, models.ValuationEnded)
}

func (v *ValuationFlow) confirm(ctx context.Context, sess *models.Session, text string) *models.Reply {
	opt, ok := equalFoldAny(text, []string{models.OptionConfirm, models.OptionReject})
	switch {
	case ok && opt == models.OptionConfirm:
		v.setStatus(ctx, sess, models.ValuationConfirmed)
		sess.Step = models.StepValuationDone
		p := v.opts.Profile
		msg := fmt.Sprintf("Thank you for confirming! Here's what happens next:\n\n📋 Next Steps:\n1. Our executive will call you within 2 hours\n2. We'll schedule a physical inspection\n3. Final price quote after inspection\n4. Instant payment if you accept our offer\n\n📞 Questions? Call: %s\nThank you for choosing %s! 😊", p.Phone, p.Name)
		return models.NewReply(sess.Step, msg, models.OptionExploreMore, models.OptionEndConversation)
	case ok && opt == models.OptionReject:
		v.setStatus(ctx, sess, models.ValuationRejected)
		sess.End()
		return models.NewReply(sess.Step, ValuationRejectedMessage)
	}
	return models.NewReply(sess.Step, "Please select Confirm to proceed or Reject to cancel.", models.OptionConfirm, models.OptionReject)
}

// Farewell is sent when the customer ends the conversation after a
// completed journey.
func Farewell(p dealer.Profile) string {
	return fmt.Sprintf("Thank you for choosing %s! 🙏\n\nWe appreciate your time and look forward to serving you.\n\n📞 For any queries: %s\n📍 Visit us: %s\n🌐 Website: %s\n\nHave a great day! 😊",
		p.Name, p.Phone, p.ShowroomAddress, p.Website)
}

func (v *ValuationFlow) done(sess *models.Session, text string) *models.Reply {
	opt, ok := equalFoldAny(text, []string{models.OptionExploreMore, models.OptionEndConversation})
	switch {
	case ok && opt == models.OptionExploreMore:
		sess.ResetAll()
		return models.NewReply(sess.Step, "What would you like to explore?", models.MainMenuOptions...)
	case ok && opt == models.OptionEndConversation:
		sess.End()
		return models.NewReply(sess.Step, Farewell(v.opts.Profile))
	}
	return models.NewReply(sess.Step, SelectOptionMessage, models.OptionExploreMore, models.OptionEndConversation)
}
