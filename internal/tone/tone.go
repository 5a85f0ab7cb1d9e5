// Package tone holds the closed sets of conversation phases and reply tones
// the classifier may report, normalises what it returns, and builds the
// prompt section that steers them.
package tone

import (
	"strings"
)

// Phase is where the customer is in the buying journey.
type Phase string

const (
	PhaseExploration Phase = "exploration"
	PhaseDecision    Phase = "decision"
	PhasePurchase    Phase = "purchase"
)

// Tone is the register the reply should use.
type Tone string

const (
	ToneExplanatory Tone = "explanatory"
	ToneConcise     Tone = "concise"
	ToneHelpful     Tone = "helpful"
)

// AllPhases and AllTones are the whitelists, in prompt order.
var (
	AllPhases = []Phase{PhaseExploration, PhaseDecision, PhasePurchase}
	AllTones  = []Tone{ToneExplanatory, ToneConcise, ToneHelpful}
)

// DefaultTone applies when the classifier reports nothing usable.
const DefaultTone = ToneHelpful

// NormalizePhase returns the phase named by s, or "" when s is not one.
func NormalizePhase(s string) Phase {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, p := range AllPhases {
		if string(p) == s {
			return p
		}
	}
	return ""
}

// NormalizeTone returns the tone named by s, or DefaultTone.
func NormalizeTone(s string) Tone {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, t := range AllTones {
		if string(t) == s {
			return t
		}
	}
	return DefaultTone
}

func join[T ~string](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, " | ")
}

// BuildGuide produces the tone and phase instructions for the classifier
// prompt. The previous turn's phase and tone, when known, are included so the
// model keeps a consistent register.
func BuildGuide(lastPhase, lastTone string) string {
	var b strings.Builder
	b.WriteString("TONE AND PHASE CONTROL:\n")
	b.WriteString("- Determine the user's phase: " + join(AllPhases) + "\n")
	b.WriteString("- Adapt tone: explanatory (when confused/unsure), concise (when decisive), helpful (default)\n")
	if p := NormalizePhase(lastPhase); p != "" {
		b.WriteString("- Previous phase: " + string(p) + "\n")
	}
	if strings.TrimSpace(lastTone) != "" {
		b.WriteString("- Previous tone: " + string(NormalizeTone(lastTone)) + "\n")
	}
	b.WriteString("- NEVER mirror hostility, sarcasm, insults, or unsafe language.\n")
	return b.String()
}
