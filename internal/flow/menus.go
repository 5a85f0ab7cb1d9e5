package flow

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

// Contact and about options.
const (
	OptionCallUs        = "Call Us"
	OptionVisitShowroom = "Visit Showroom"
	OptionOurStory      = "Our Story"
	OptionWhyChooseUs   = "Why Choose Us"
)

var (
	contactOptions = []string{OptionCallUs, OptionVisitShowroom, models.OptionMainMenu}
	aboutOptions   = []string{OptionOurStory, OptionWhyChooseUs, OptionVisitShowroom}
)

// Menus answers the contact and about menus from the dealer profile.
type Menus struct {
	opts Opts
}

// NewMenus creates the contact and about menus.
func NewMenus(opts ...Option) *Menus {
	return &Menus{opts: newOpts(opts)}
}

// StartContact shows the contact menu.
func (m *Menus) StartContact(sess *models.Session) *models.Reply {
	sess.Step = models.StepContactMenu
	return models.NewReply(sess.Step, "We'd love to hear from you! How would you like to reach us?", contactOptions...)
}

// StartAbout shows the about menu.
func (m *Menus) StartAbout(sess *models.Session) *models.Reply {
	sess.Step = models.StepAboutMenu
	return models.NewReply(sess.Step, fmt.Sprintf("What would you like to know about %s?", m.opts.Profile.Name), aboutOptions...)
}

func (m *Menus) showroom() string {
	p := m.opts.Profile
	return fmt.Sprintf("📍 Visit our showroom:\n%s\n\n🕒 Hours: %s\n🌐 Website: %s", p.ShowroomAddress, p.Hours, p.Website)
}

// Contact answers a choice from the contact menu.
func (m *Menus) Contact(sess *models.Session, text string) *models.Reply {
	p := m.opts.Profile
	opt, _ := equalFoldAny(text, contactOptions)
	switch opt {
	case OptionCallUs:
		return models.NewReply(sess.Step, fmt.Sprintf("📞 Call us at %s\n🕒 Hours: %s\n\nOur team will be happy to help you!", p.Phone, p.Hours),
			OptionVisitShowroom, models.OptionMainMenu)
	case OptionVisitShowroom:
		return models.NewReply(sess.Step, m.showroom(), OptionCallUs, models.OptionMainMenu)
	case models.OptionMainMenu:
		sess.ResetAll()
		return MainMenu(p)
	}
	return models.NewReply(sess.Step, SelectOptionMessage, contactOptions...)
}

// About answers a choice from the about menu.
func (m *Menus) About(sess *models.Session, text string) *models.Reply {
	p := m.opts.Profile
	if _, ok := equalFoldAny(text, []string{models.OptionMainMenu}); ok {
		sess.ResetAll()
		return MainMenu(p)
	}
	opt, _ := equalFoldAny(text, aboutOptions)
	switch opt {
	case OptionOurStory:
		return models.NewReply(sess.Step, "📖 "+p.Story, OptionWhyChooseUs, OptionVisitShowroom, models.OptionMainMenu)
	case OptionWhyChooseUs:
		var b strings.Builder
		fmt.Fprintf(&b, "🌟 Why choose %s?\n", p.Name)
		for _, h := range p.Highlights {
			b.WriteString("\n✅ " + h)
		}
		return models.NewReply(sess.Step, b.String(), OptionOurStory, OptionVisitShowroom, models.OptionMainMenu)
	case OptionVisitShowroom:
		return models.NewReply(sess.Step, m.showroom(), OptionOurStory, OptionWhyChooseUs, models.OptionMainMenu)
	}
	return models.NewReply(sess.Step, SelectOptionMessage, aboutOptions...)
}
