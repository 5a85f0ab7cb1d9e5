package flow

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/BTreeMap/DealerPipe/internal/intent"
	"github.com/BTreeMap/DealerPipe/internal/models"
)

var restartWords = map[string]bool{
	"start": true, "begin": true, "new": true, "restart": true, "hi": true, "hello": true,
}

// Router is the entry point for every inbound message. It picks the
// journey (browse, valuation, contact or about) and records the choices
// offered by the reply so numbered answers can be resolved next turn.
type Router struct {
	orchestrator *Orchestrator
	valuation    *ValuationFlow
	menus        *Menus
	opts         Opts
}

// NewRouter creates a Router.
func NewRouter(orchestrator *Orchestrator, valuation *ValuationFlow, opts ...Option) *Router {
	return &Router{
		orchestrator: orchestrator,
		valuation:    valuation,
		menus:        NewMenus(opts...),
		opts:         newOpts(opts),
	}
}

// Route answers one message and mutates the session in place. A nil reply
// means nothing should be sent.
func (r *Router) Route(ctx context.Context, sess *models.Session, text string) (reply *models.Reply) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Router.Route: recovered from panic", "panic", rec, "session", sess, "stack", string(debug.Stack()))
			r.opts.Observer.Recovered("router")
			reply = models.NewReply(sess.Step, RetryLaterMessage, models.OptionMainMenu)
		}
		sess.LastOptions = reply.Choices()
	}()

	text = ResolveNumbered(norm.NFC.String(strings.TrimSpace(text)), sess.LastOptions)
	lower := strings.ToLower(text)

	if strings.Contains(lower, "end conversation") {
		r.valuation.MarkEnded(ctx, sess)
		sess.End()
		slog.Debug("Router.Route: conversation ended", "conversationID", sess.ConversationID)
		return models.NewReply(sess.Step, ConversationEndedText)
	}

	if sess.ConversationEnded {
		if hasRestartWord(lower) {
			sess.ResetAll()
			return MainMenu(r.opts.Profile)
		}
		return nil
	}

	if intent.IsGreeting(text) || lower == "main menu" {
		sess.ResetAll()
		return MainMenu(r.opts.Profile)
	}

	switch {
	case sess.Step.IsValuation():
		return r.valuation.Handle(ctx, sess, text)
	case sess.Step.IsContact():
		return r.menus.Contact(sess, text)
	case sess.Step.IsAbout():
		return r.menus.About(sess, text)
	case sess.Step.IsBrowse():
		return r.orchestrator.Process(ctx, sess, text)
	}

	switch {
	case text == models.OptionGetValuation || strings.Contains(lower, "valuation"):
		return r.valuation.Start(ctx, sess)
	case text == models.OptionContactTeam || strings.Contains(lower, "contact"):
		return r.menus.StartContact(sess)
	case text == models.OptionAboutUs || lower == "about" || lower == "about us":
		return r.menus.StartAbout(sess)
	case text == models.OptionBrowseUsedCars:
		return r.orchestrator.Machine().BrowseStart(ctx, sess)
	case intent.IsBrowseRequest(text):
		sess.Step = models.StepBrowseStart
		PrefillBrowse(sess, text)
		return r.orchestrator.Process(ctx, sess, text)
	}
	return r.orchestrator.Process(ctx, sess, text)
}

func hasRestartWord(lower string) bool {
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		if restartWords[w] {
			return true
		}
	}
	return false
}

// ResolveNumbered maps a numeric reply onto the choices offered last turn.
// Anything else is returned unchanged.
func ResolveNumbered(text string, choices []string) string {
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > len(choices) {
		return text
	}
	return choices[n-1]
}
