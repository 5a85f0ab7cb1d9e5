package flow

import (
	"context"
	"testing"

	"github.com/BTreeMap/DealerPipe/internal/comparison"
	"github.com/BTreeMap/DealerPipe/internal/intent"
	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/store"
	"github.com/BTreeMap/DealerPipe/internal/suggestion"
	"github.com/BTreeMap/DealerPipe/internal/testutil"
)

type harness struct {
	store  *store.InMemoryStore
	llm    *testutil.ScriptedLLM
	orch   *Orchestrator
	router *Router
}

// newHarness wires the flow over the sample inventory. A nil llm leaves the
// classifier without a completion backend.
func newHarness(t *testing.T, llm *testutil.ScriptedLLM) *harness {
	t.Helper()
	return newHarnessWithStore(t, testutil.NewInventoryStore(t), llm)
}

func newHarnessWithStore(t *testing.T, st *store.InMemoryStore, llm *testutil.ScriptedLLM) *harness {
	t.Helper()
	opts := []Option{WithClock(testutil.Clock()), WithMediaBaseURL("https://media.example.com")}
	var completer intent.Completer
	if llm != nil {
		completer = llm
	}
	adapter := intent.NewAdapter(completer, comparison.NewResolver(st), suggestion.NewResolver(st))
	orch := NewOrchestrator(NewMachine(st, st, opts...), adapter)
	return &harness{
		store:  st,
		llm:    llm,
		orch:   orch,
		router: NewRouter(orch, NewValuationFlow(st, st, opts...), opts...),
	}
}

func (h *harness) send(t *testing.T, sess *models.Session, text string) *models.Reply {
	t.Helper()
	return h.router.Route(context.Background(), sess, text)
}

func sixHyundaiSUVs() []models.Car {
	cars := make([]models.Car, 6)
	for i := range cars {
		cars[i] = models.Car{
			ID:       int64(i + 1),
			Brand:    "Hyundai",
			Model:    "Creta",
			Variant:  string(rune('A' + i)),
			Year:     2020 + i%3,
			FuelType: "Petrol",
			Price:    int64(1000000 + i*50000),
			Type:     "SUV",
		}
	}
	return cars
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
