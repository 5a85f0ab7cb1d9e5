// Package comparison finds the cars named in a message and renders a
// side-by-side comparison.
package comparison

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/store"
	"github.com/BTreeMap/DealerPipe/internal/util"
)

// brandMatchLimit caps cars fetched for a bare brand identifier.
const brandMatchLimit = 3

// Reply texts.
const (
	NotFoundMessage  = "I couldn't find the cars you mentioned for comparison. Could you please specify the exact car models you'd like to compare?"
	followUpQuestion = "Would you like me to elaborate on any specific aspect or compare additional features?"
)

// Resolver compares cars from the inventory.
type Resolver struct {
	inventory store.Inventory
}

// NewResolver creates a Resolver over inventory.
func NewResolver(inventory store.Inventory) *Resolver {
	return &Resolver{inventory: inventory}
}

// ExtractIdentifiers returns the car models named in text, or the brands when
// no model is named.
func ExtractIdentifiers(text string) []string {
	lower := strings.ToLower(text)
	var ids []string
	for _, p := range modelPatterns {
		if strings.Contains(lower, p.phrase) {
			ids = append(ids, p.name)
		}
	}
	if len(ids) > 0 {
		return ids
	}
	for _, p := range brandPatterns {
		if strings.Contains(lower, p.phrase) {
			ids = append(ids, p.name)
		}
	}
	return ids
}

// ExtractCriteria returns the requested criteria, or DefaultCriteria.
func ExtractCriteria(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, c := range criteriaKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				out = append(out, c.criterion)
				break
			}
		}
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultCriteria...)
	}
	return out
}

// Confidence scores identifiers and criteria, with a bonus for specific
// models.
func Confidence(identifiers, criteria []string) int {
	c := min(len(identifiers)*20, 60) + min(len(criteria)*10, 30)
	for _, id := range identifiers {
		if strings.Contains(id, " ") {
			c += 20
			break
		}
	}
	return min(c, 100)
}

// Resolve extracts identifiers and criteria from text and compares the
// matching inventory cars.
func (r *Resolver) Resolve(ctx context.Context, text string) (*models.ComparisonResult, error) {
	ids := ExtractIdentifiers(text)
	criteria := ExtractCriteria(text)
	res := &models.ComparisonResult{Identifiers: ids, Criteria: criteria}
	if len(ids) == 0 {
		res.Message = NotFoundMessage
		return res, nil
	}

	cars, err := r.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}
	cmp := Compare(cars, criteria)
	cmp.Identifiers = ids
	cmp.Confidence = Confidence(ids, criteria)
	slog.Debug("comparison.Resolve: resolved", "identifiers", ids, "cars", len(cmp.Cars), "confidence", cmp.Confidence)
	return cmp, nil
}

// fetch accumulates cars for every identifier, skipping repeats.
func (r *Resolver) fetch(ctx context.Context, ids []string) ([]models.Car, error) {
	var cars []models.Car
	seen := make(map[int64]bool)
	for _, id := range ids {
		var found []models.Car
		var err error
		if strings.Contains(id, " ") {
			found, err = r.inventory.FindCarsByName(ctx, id)
		} else {
			found, err = r.inventory.FindCarsByBrand(ctx, id, brandMatchLimit)
		}
		if err != nil {
			slog.Error("comparison.fetch: inventory query failed", "error", err, "identifier", id)
			return nil, fmt.Errorf("comparison query for %q failed: %w", id, err)
		}
		for _, c := range found {
			if !seen[c.ID] {
				seen[c.ID] = true
				cars = append(cars, c)
			}
		}
	}
	return cars, nil
}

// Enrich derives the comparison attributes of a car.
func Enrich(c models.Car) models.EnrichedCar {
	e := models.EnrichedCar{
		Car:             c,
		Name:            c.DisplayName(),
		PriceFormatted:  util.FormatINR(c.Price),
		FuelEfficiency:  defaultEfficiency,
		SafetyRating:    defaultSafety,
		MaintenanceCost: models.TierMedium,
		ResaleValue:     models.TierMedium,
	}
	if kmpl, ok := efficiency[c.FuelType][c.Type]; ok {
		e.FuelEfficiency = kmpl
	}
	if s, ok := safetyByBrand[c.Brand]; ok {
		e.SafetyRating = s
	}
	if c.Year >= 2020 {
		e.SafetyRating += 0.2
	}
	e.SafetyRating = math.Min(math.Round(e.SafetyRating*10)/10, 5)
	if t, ok := maintenanceByBrand[c.Brand]; ok {
		e.MaintenanceCost = t
	}
	if t, ok := resaleByBrand[c.Brand]; ok {
		e.ResaleValue = t
	}
	if c.Year >= 2020 {
		e.Features = append(e.Features, "Modern Tech")
	}
	if c.FuelType == "Diesel" {
		e.Features = append(e.Features, "High Torque")
	}
	switch c.Type {
	case "SUV":
		e.Features = append(e.Features, "High Ground Clearance")
	case "Sedan":
		e.Features = append(e.Features, "Comfortable Seating")
	}
	return e
}

// Compare enriches cars and renders the comparison message for criteria.
func Compare(cars []models.Car, criteria []string) *models.ComparisonResult {
	if len(criteria) == 0 {
		criteria = append([]string(nil), DefaultCriteria...)
	}
	res := &models.ComparisonResult{Criteria: criteria}
	for _, c := range cars {
		res.Cars = append(res.Cars, Enrich(c))
	}

	switch len(res.Cars) {
	case 0:
		res.Message = NotFoundMessage
	case 1:
		res.Message = fmt.Sprintf("I found information about %s. To compare it with another car, please mention the second car model.", res.Cars[0].Name)
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "Here's a comparison of %d cars:\n\n", len(res.Cars))
		b.WriteString(table(res.Cars, criteria))
		b.WriteString("\n💡 **Key Differences:**\n")
		b.WriteString(keyDifferences(res.Cars, criteria))
		b.WriteString("\n\n" + followUpQuestion)
		res.Message = b.String()
	}
	return res
}

func has(criteria []string, c string) bool {
	for _, x := range criteria {
		if x == c {
			return true
		}
	}
	return false
}

func table(cars []models.EnrichedCar, criteria []string) string {
	var b strings.Builder
	row := func(label string, cell func(models.EnrichedCar) string) {
		cells := make([]string, len(cars))
		for i, c := range cars {
			cells[i] = cell(c)
		}
		fmt.Fprintf(&b, "| %s | %s |\n", label, strings.Join(cells, " | "))
	}

	row("Feature", func(c models.EnrichedCar) string { return c.Name })
	b.WriteString("|" + strings.Repeat("---|", len(cars)+1) + "\n")
	if has(criteria, CriterionPrice) {
		row("**Price**", func(c models.EnrichedCar) string { return c.PriceFormatted })
	}
	row("**Year**", func(c models.EnrichedCar) string { return fmt.Sprint(c.Year) })
	row("**Fuel Type**", func(c models.EnrichedCar) string { return c.FuelType })
	if has(criteria, CriterionFuelEfficiency) {
		row("**Mileage**", func(c models.EnrichedCar) string { return fmt.Sprintf("%d kmpl", c.FuelEfficiency) })
	}
	if has(criteria, CriterionSafety) {
		row("**Safety Rating**", func(c models.EnrichedCar) string { return fmt.Sprintf("%.1f/5", c.SafetyRating) })
	}
	if has(criteria, CriterionFeatures) {
		row("**Features**", func(c models.EnrichedCar) string { return strings.Join(c.Features, ", ") })
	}
	if has(criteria, CriterionMaintenance) {
		row("**Maintenance Cost**", func(c models.EnrichedCar) string { return string(c.MaintenanceCost) })
	}
	if has(criteria, CriterionResaleValue) {
		row("**Resale Value**", func(c models.EnrichedCar) string { return string(c.ResaleValue) })
	}
	return b.String()
}

func keyDifferences(cars []models.EnrichedCar, criteria []string) string {
	var lines []string

	if has(criteria, CriterionPrice) {
		hi, lo := cars[0], cars[0]
		for _, c := range cars[1:] {
			if c.Price > hi.Price {
				hi = c
			}
			if c.Price < lo.Price {
				lo = c
			}
		}
		if hi.Price > lo.Price {
			lines = append(lines, fmt.Sprintf("💰 **Price**: %s is %s more expensive than %s", hi.Name, util.FormatINR(hi.Price-lo.Price), lo.Name))
		}
	}

	if has(criteria, CriterionFuelEfficiency) {
		best, worst := cars[0], cars[0]
		for _, c := range cars[1:] {
			if c.FuelEfficiency > best.FuelEfficiency {
				best = c
			}
			if c.FuelEfficiency < worst.FuelEfficiency {
				worst = c
			}
		}
		if best.FuelEfficiency > worst.FuelEfficiency {
			lines = append(lines, fmt.Sprintf("⛽ **Fuel Efficiency**: %s offers the best mileage at %d kmpl", best.Name, best.FuelEfficiency))
		}
	}

	newest, oldest := cars[0], cars[0]
	for _, c := range cars[1:] {
		if c.Year > newest.Year {
			newest = c
		}
		if c.Year < oldest.Year {
			oldest = c
		}
	}
	if newest.Year > oldest.Year {
		lines = append(lines, fmt.Sprintf("📅 **Age**: %s is %d years newer than %s", newest.Name, newest.Year-oldest.Year, oldest.Name))
	}
	return strings.Join(lines, "\n")
}
