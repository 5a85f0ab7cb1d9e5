package models

// MessageKind identifies how an outbound message is rendered.
type MessageKind string

const (
	MessageText   MessageKind = "text"
	MessageButton MessageKind = "button"
	MessageImage  MessageKind = "image"
)

// OutboundMessage is one extra message attached to a reply, such as a car
// card or its SELECT button.
type OutboundMessage struct {
	Kind    MessageKind `json:"type"`
	Body    string      `json:"body,omitempty"`
	ID      string      `json:"id,omitempty"`
	Label   string      `json:"label,omitempty"`
	URL     string      `json:"url,omitempty"`
	Caption string      `json:"caption,omitempty"`
}

// Reply is what a turn returns to the transport. A nil *Reply means nothing
// is sent.
type Reply struct {
	Message  string            `json:"message"`
	Messages []OutboundMessage `json:"messages,omitempty"`
	Options  []string          `json:"options,omitempty"`
	NextStep Step              `json:"nextStep,omitempty"`
}

// NewReply builds a reply with a message and options.
func NewReply(step Step, message string, options ...string) *Reply {
	return &Reply{Message: message, Options: options, NextStep: step}
}

// Choices lists what a numbered reply can pick: the options first, then the
// id of every button in message order.
func (r *Reply) Choices() []string {
	if r == nil {
		return nil
	}
	choices := append([]string(nil), r.Options...)
	for _, m := range r.Messages {
		if m.Kind == MessageButton && m.ID != "" {
			choices = append(choices, m.ID)
		}
	}
	return choices
}
