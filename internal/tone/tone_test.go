package tone

import (
	"strings"
	"testing"
)

func TestNormalizePhase(t *testing.T) {
	if NormalizePhase("  Decision ") != PhaseDecision {
		t.Error("phase should be trimmed and lower-cased")
	}
	if NormalizePhase("checkout") != "" {
		t.Error("unknown phase should normalise to empty")
	}
}

func TestNormalizeTone(t *testing.T) {
	if NormalizeTone("CONCISE") != ToneConcise {
		t.Error("tone should be case-insensitive")
	}
	if NormalizeTone("sarcastic") != DefaultTone {
		t.Error("unknown tone should fall back to the default")
	}
}

func TestBuildGuide(t *testing.T) {
	g := BuildGuide("", "")
	if !strings.Contains(g, "exploration | decision | purchase") {
		t.Errorf("guide missing phase list:\n%s", g)
	}
	if strings.Contains(g, "Previous") {
		t.Error("no previous state should be mentioned for a fresh conversation")
	}

	g = BuildGuide("purchase", "rude")
	if !strings.Contains(g, "- Previous phase: purchase\n") || !strings.Contains(g, "- Previous tone: helpful\n") {
		t.Errorf("guide should carry normalised previous state:\n%s", g)
	}
}
