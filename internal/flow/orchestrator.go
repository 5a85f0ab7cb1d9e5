package flow

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/BTreeMap/DealerPipe/internal/comparison"
	"github.com/BTreeMap/DealerPipe/internal/intent"
	"github.com/BTreeMap/DealerPipe/internal/models"
)

// Fast path kinds reported to the Observer.
const (
	FastPathBudget  = "budget"
	FastPathLiteral = "literal"
)

// ComparisonOptions follow a comparison of selected cars.
var ComparisonOptions = []string{models.OptionBookTestDrive, models.OptionCompareMoreCars, models.OptionGetDetails, models.OptionStartOver}

// Orchestrator runs one browse or test-drive turn: fast paths first, then the
// classifier, then the decision's effects. The deterministic Machine answers
// whenever the classifier is unavailable or something goes wrong.
type Orchestrator struct {
	machine    *Machine
	classifier Classifier
}

// NewOrchestrator creates an Orchestrator. classifier may be nil, in which
// case every turn is answered by the Machine or the keyword rules.
func NewOrchestrator(machine *Machine, classifier Classifier) *Orchestrator {
	return &Orchestrator{machine: machine, classifier: classifier}
}

// Machine returns the deterministic step machine.
func (o *Orchestrator) Machine() *Machine { return o.machine }

func (o *Orchestrator) observer() Observer { return o.machine.opts.Observer }

// Process answers text for the session and mutates the session in place. It
// never returns an error; a nil reply means nothing should be sent.
func (o *Orchestrator) Process(ctx context.Context, sess *models.Session, text string) (reply *models.Reply) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Orchestrator.Process: recovered from panic", "panic", r, "session", sess, "stack", string(debug.Stack()))
			o.observer().Recovered("orchestrator")
			reply = o.rescue(ctx, sess, text)
		}
	}()

	text = strings.TrimSpace(text)

	if (sess.Step == models.StepBrowseBudget || sess.Step == "") && models.IsBudgetOption(text) {
		o.observer().FastPath(FastPathBudget)
		slog.Debug("Orchestrator.Process: budget fast path", "budget", text)
		sess.LastIntent = "browse"
		return o.machine.AcceptBudget(ctx, sess, text)
	}

	if o.machine.Accepts(sess, text) {
		o.observer().FastPath(FastPathLiteral)
		slog.Debug("Orchestrator.Process: literal option fast path", "step", sess.Step)
		reply, _ := o.machine.Handle(ctx, sess, text)
		return reply
	}

	in := intent.Input{Text: text, Session: sess, Available: o.available(ctx, sess)}
	var d models.Decision
	if o.classifier != nil {
		d = o.classifier.Classify(ctx, in)
	} else {
		d = intent.Fallback(text, o.machine.opts.Profile.Name)
	}
	o.observer().Decision(d.Source, d.NextStep, d.Degraded)
	slog.Debug("Orchestrator.Process: decision", "source", d.Source, "nextStep", d.NextStep, "degraded", d.Degraded)

	if d.Degraded && !d.ResetSession {
		if reply, ok := o.machine.Handle(ctx, sess, text); ok {
			return reply
		}
	}
	return o.apply(ctx, sess, d)
}

// rescue answers a turn that failed unexpectedly. The Machine gets one try;
// if it cannot answer either, the generic retry message is sent.
func (o *Orchestrator) rescue(ctx context.Context, sess *models.Session, text string) (reply *models.Reply) {
	fallback := models.NewReply(sess.Step, TemporaryIssueMessage, models.OptionMainMenu)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Orchestrator.rescue: machine failed", "panic", r, "session", sess)
			reply = fallback
		}
	}()
	if r, ok := o.machine.Handle(ctx, sess, text); ok {
		return r
	}
	return fallback
}

// available assembles the inventory context for the classifier. Query
// failures are logged and leave the lists empty.
func (o *Orchestrator) available(ctx context.Context, sess *models.Session) models.AvailableData {
	data := models.AvailableData{
		BudgetOptions: models.BudgetOptions,
		Types:         o.machine.distinct(ctx, sess, models.ColumnType, models.CarQuery{}),
		Brands:        o.machine.distinct(ctx, sess, models.ColumnBrand, models.CarQuery{}),
	}
	if sess.HasFilters() {
		cars, err := o.machine.inventory.SearchCars(ctx, FilterQuery(sess))
		if err != nil {
			slog.Error("Orchestrator.available: car query failed", "error", err, "session", sess)
		}
		data.Cars = cars
	}
	return data
}

// apply runs a decision against the session and builds the reply.
func (o *Orchestrator) apply(ctx context.Context, sess *models.Session, d models.Decision) *models.Reply {
	if d.ResetSession {
		sess.ResetAll()
	}
	if len(d.SessionUpdates) > 0 {
		applied, err := sess.ApplyUpdates(d.SessionUpdates)
		if err != nil {
			slog.Warn("Orchestrator.apply: some session updates were rejected", "error", err, "applied", applied)
		}
	}
	if d.NextStep != "" {
		sess.Step = d.NextStep
	}
	if d.Extracted.Intent != "" {
		sess.LastIntent = d.Extracted.Intent
	}
	if d.Extracted.Phase != "" {
		sess.LastPhase = d.Extracted.Phase
	}
	if d.Extracted.Tone != "" {
		sess.LastTone = d.Extracted.Tone
	}
	if d.Extracted.UploadedImageType != "" {
		sess.UploadedImageType = d.Extracted.UploadedImageType
	}

	reply := models.NewReply(sess.Step, d.Message, d.Options...)
	o.runQuery(ctx, sess, d.Query, reply)

	if r := o.resolveIndexes(sess, d.Extracted.IndexReferences); r != nil {
		return r
	}

	switch d.Effect() {
	case models.EffectShowCars:
		if d.Source == models.SourceLLM && sess.HasFilters() {
			o.machine.FetchCars(ctx, sess)
		}
		page := RenderPage(sess, o.machine.opts.MediaBaseURL)
		if d.Source == models.SourceSuggestion && d.Message != "" {
			page.Message = d.Message
		}
		return page
	case models.EffectConfirmation:
		return o.machine.Summary(sess)
	case models.EffectBookingComplete:
		if sess.TDName != "" && sess.TDPhone != "" {
			o.machine.saveBooking(ctx, sess)
		}
	}
	reply.NextStep = sess.Step
	return reply
}

// runQuery honours the inventory queries a decision may request. Each needs
// its prerequisite slots; otherwise it is skipped.
func (o *Orchestrator) runQuery(ctx context.Context, sess *models.Session, q models.QueryType, reply *models.Reply) {
	switch q {
	case models.QueryCarsByFilter:
		if sess.HasFilters() {
			o.machine.FetchCars(ctx, sess)
		}
	case models.QueryAvailableTypes:
		if sess.Budget == "" {
			return
		}
		types := o.machine.AvailableTypes(ctx, sess)
		if len(reply.Options) == 0 {
			reply.Options = append([]string{AllTypeOption}, types...)
		}
	case models.QueryAvailableBrands:
		if sess.Budget == "" || sess.Type == "" {
			return
		}
		brands := o.machine.AvailableBrands(ctx, sess)
		if len(reply.Options) == 0 {
			reply.Options = append([]string{AllBrandOption}, brands...)
		}
	}
}

// resolveIndexes maps 1-based references onto filteredCars. One car selects
// it; two or more start a comparison. Out-of-range references are ignored.
func (o *Orchestrator) resolveIndexes(sess *models.Session, refs []int) *models.Reply {
	if len(refs) == 0 || len(sess.FilteredCars) == 0 {
		return nil
	}
	var selected []models.Car
	for _, i := range refs {
		if i >= 1 && i <= len(sess.FilteredCars) {
			selected = append(selected, sess.FilteredCars[i-1])
		}
	}
	switch len(selected) {
	case 0:
		return nil
	case 1:
		name := selected[0].DisplayName()
		return o.machine.Select(sess, name, fmt.Sprintf("Great! You selected %s. What would you like to do next?", name))
	default:
		res := comparison.Compare(selected, comparison.DefaultCriteria)
		sess.ComparisonCars = selected
		sess.ComparisonCriteria = res.Criteria
		sess.Step = models.StepShowComparison
		return models.NewReply(sess.Step, res.Message, ComparisonOptions...)
	}
}
