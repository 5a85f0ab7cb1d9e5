// Package suggestion turns free-text car requests ("a diesel SUV under 15
// lakhs") into an inventory query and a ranked reply.
package suggestion

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/store"
	"github.com/BTreeMap/DealerPipe/internal/util"
)

const (
	// ResultLimit caps the suggestion query.
	ResultLimit = 10
	// listedInMessage is how many results the reply spells out.
	listedInMessage = 5
	lakh            = 100000
)

// NoResultsMessage is the reply when nothing matched.
const NoResultsMessage = "I couldn't find any cars matching your criteria. Let me help you explore other options!"

// Resolver extracts preferences and queries the inventory.
type Resolver struct {
	inventory store.Inventory
}

// NewResolver creates a Resolver over inventory.
func NewResolver(inventory store.Inventory) *Resolver {
	return &Resolver{inventory: inventory}
}

// Extract pulls every preference category out of text. Categories are
// independent; within one the first pattern wins, except features which
// collects all matches.
func Extract(text string) models.SuggestionParams {
	lower := strings.ToLower(text)
	var p models.SuggestionParams

	if label, ok := firstMatch(budgetPatterns, lower); ok {
		r := models.BudgetRange(label)
		p.Budget = &r
	}
	if m := customBudgetRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			amount := int64(n * lakh)
			low := amount - lakh
			if low < 0 {
				low = 0
			}
			p.CustomBudget = &models.PriceRange{Min: low, Max: amount + lakh, Label: "Around ₹" + m[1] + " Lakhs"}
		}
	}
	if t, ok := firstMatch(typePatterns, lower); ok {
		p.Type = t
	}
	if brands, ok := firstMatch(brandPatterns, lower); ok {
		if len(brands) == 1 {
			p.Brand = brands[0]
		} else {
			p.Brands = brands
		}
	}
	for _, f := range featurePatterns {
		if f.re.MatchString(lower) {
			p.Features = append(p.Features, f.value)
		}
	}
	if u, ok := firstMatch(usagePatterns, lower); ok {
		p.Usage = &u
	}
	if a, ok := firstMatch(agePatterns, lower); ok {
		p.Age = &a
	}
	return p
}

// BuildQuery merges extracted preferences with the session. Extracted values
// win. The bool is false when nothing constrains the search.
func BuildQuery(p models.SuggestionParams, sess *models.Session) (models.CarQuery, bool) {
	q := models.CarQuery{Limit: ResultLimit}

	switch {
	case p.Budget != nil:
		q.Price = p.Budget
	case p.CustomBudget != nil:
		q.Price = p.CustomBudget
	case sess != nil && sess.Budget != "":
		r := models.BudgetRange(sess.Budget)
		q.Price = &r
	}

	switch {
	case p.Type != "":
		q.Type = p.Type
	case p.Usage != nil && p.Usage.Type != "":
		q.Type = p.Usage.Type
	case sess != nil && sess.Type != "" && sess.Type != models.FilterAll:
		q.Type = sess.Type
	}

	switch {
	case p.Brand != "":
		q.Brands = []string{p.Brand}
	case len(p.Brands) > 0:
		q.Brands = p.Brands
	case sess != nil && sess.Brand != "" && sess.Brand != models.FilterAll:
		q.Brands = []string{sess.Brand}
	}

	if p.Age != nil {
		q.MinYear = p.Age.MinYear
		q.MaxYear = p.Age.MaxYear
	}
	for _, f := range p.Features {
		if fuelTypes[f] {
			q.FuelTypes = append(q.FuelTypes, f)
		}
	}

	// Non-fuel features still count as a request for suggestions even though
	// the inventory cannot filter on them.
	return q, !q.IsEmpty() || len(p.Features) > 0
}

// Confidence scores an extraction: 20 per category, 30 when there are
// results, 10 each for budget, type and brand, capped at 100.
func Confidence(p models.SuggestionParams, results int) int {
	c := p.Count() * 20
	if results > 0 {
		c += 30
	}
	if p.Budget != nil {
		c += 10
	}
	if p.Type != "" {
		c += 10
	}
	if p.Brand != "" {
		c += 10
	}
	return min(c, 100)
}

// Message renders the reply listing up to five cars.
func Message(cars []models.Car) string {
	if len(cars) == 0 {
		return NoResultsMessage
	}
	var b strings.Builder
	plural := ""
	if len(cars) > 1 {
		plural = "s"
	}
	fmt.Fprintf(&b, "I found %d great car%s for you:\n\n", len(cars), plural)
	for i, c := range cars {
		if i == listedInMessage {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n   📅 %d | ⛽ %s | 💰 %s\n\n", i+1, c.DisplayName(), c.Year, c.FuelType, util.FormatINR(c.Price))
	}
	if len(cars) > listedInMessage {
		fmt.Fprintf(&b, "... and %d more options available!\n\n", len(cars)-listedInMessage)
	}
	b.WriteString("Would you like to see more details about any of these cars or book a test drive?")
	return b.String()
}

// Resolve extracts preferences from text, merges them with sess and queries
// the inventory.
func (r *Resolver) Resolve(ctx context.Context, text string, sess *models.Session) (*models.SuggestionResult, error) {
	params := Extract(text)
	q, ok := BuildQuery(params, sess)
	res := &models.SuggestionResult{Params: params, Query: q}
	if !ok {
		res.Message = Message(nil)
		return res, nil
	}

	cars, err := r.inventory.SearchCars(ctx, q)
	if err != nil {
		slog.Error("suggestion.Resolve: inventory query failed", "error", err, "session", sess)
		return nil, fmt.Errorf("suggestion query failed: %w", err)
	}
	res.Cars = cars
	res.Confidence = Confidence(params, len(cars))
	res.Message = Message(cars)
	slog.Debug("suggestion.Resolve: resolved", "categories", params.Count(), "results", len(cars), "confidence", res.Confidence)
	return res, nil
}
