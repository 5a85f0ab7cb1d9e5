package messaging

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

// Part is one outbound transport message. MediaURL is set for images.
type Part struct {
	Body     string
	MediaURL string
}

// Render turns a reply into transport messages. Options are listed as a
// numbered menu under the main message. Card buttons continue the numbering
// and are shown as "Reply N to select" on the card they belong to. The
// returned choices are what each number resolves to.
func Render(reply *models.Reply) ([]Part, []string) {
	if reply == nil {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString(reply.Message)
	if len(reply.Options) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		for i, opt := range reply.Options {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%d. %s", i+1, opt)
		}
	}

	var parts []Part
	if b.Len() > 0 {
		parts = append(parts, Part{Body: b.String()})
	}

	n := len(reply.Options)
	card := -1
	for _, m := range reply.Messages {
		switch m.Kind {
		case models.MessageImage:
			parts = append(parts, Part{Body: m.Caption, MediaURL: m.URL})
			card = len(parts) - 1
		case models.MessageButton:
			if m.ID == "" {
				continue
			}
			n++
			line := fmt.Sprintf("Reply %d to select", n)
			if card >= 0 {
				parts[card].Body = strings.TrimPrefix(parts[card].Body+"\n\n"+line, "\n\n")
				card = -1
			} else {
				parts = append(parts, Part{Body: line})
			}
		default:
			if m.Body != "" {
				parts = append(parts, Part{Body: m.Body})
				card = len(parts) - 1
			}
		}
	}
	return parts, reply.Choices()
}
