package comparison

import (
	"context"
	"strings"
	"testing"

	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/testutil"
)

func TestExtractIdentifiersPrefersModels(t *testing.T) {
	ids := ExtractIdentifiers("Compare Honda City vs Hyundai Verna")
	if strings.Join(ids, ",") != "Honda City,Hyundai Verna" {
		t.Errorf("ExtractIdentifiers = %v", ids)
	}
	ids = ExtractIdentifiers("is hyundai better than kia?")
	if strings.Join(ids, ",") != "Hyundai,Kia" {
		t.Errorf("brand fallback = %v", ids)
	}
	if ids := ExtractIdentifiers("Ford EcoSport or not"); len(ids) != 1 || ids[0] != "Ford EcoSport" {
		t.Errorf("mixed-case model should match, got %v", ids)
	}
}

func TestExtractCriteria(t *testing.T) {
	got := ExtractCriteria("which has better mileage and resale value, and what about safety")
	want := []string{CriterionFuelEfficiency, CriterionSafety, CriterionResaleValue}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ExtractCriteria = %v, want %v", got, want)
	}
	if got := ExtractCriteria("city vs verna"); strings.Join(got, ",") != "price,fuel_efficiency,features" {
		t.Errorf("default criteria = %v", got)
	}
}

func TestConfidence(t *testing.T) {
	if got := Confidence([]string{"Honda City", "Hyundai Verna"}, DefaultCriteria); got != 90 {
		t.Errorf("Confidence = %d, want 90", got)
	}
	if got := Confidence([]string{"Honda", "Kia", "Tata", "BMW"}, []string{"a", "b", "c", "d"}); got != 90 {
		t.Errorf("Confidence caps = %d, want 90", got)
	}
}

func TestEnrich(t *testing.T) {
	e := Enrich(models.Car{Brand: "Hyundai", Model: "Creta", Variant: "SX", Year: 2022, FuelType: "Diesel", Type: "SUV", Price: 1450000})
	if e.FuelEfficiency != 18 || e.SafetyRating != 4.5 {
		t.Errorf("efficiency/safety = %d/%.1f", e.FuelEfficiency, e.SafetyRating)
	}
	if strings.Join(e.Features, ", ") != "Modern Tech, High Torque, High Ground Clearance" {
		t.Errorf("features = %v", e.Features)
	}
	if e.MaintenanceCost != models.TierMedium || e.ResaleValue != models.TierMedium {
		t.Errorf("tiers = %s/%s", e.MaintenanceCost, e.ResaleValue)
	}
	if e.PriceFormatted != "₹14,50,000" {
		t.Errorf("price = %s", e.PriceFormatted)
	}

	bmw := Enrich(models.Car{Brand: "BMW", Year: 2021, FuelType: "Electric", Type: "Sedan"})
	if bmw.SafetyRating != 5 || bmw.FuelEfficiency != defaultEfficiency {
		t.Errorf("BMW safety should cap at 5 and unknown fuel default, got %.1f/%d", bmw.SafetyRating, bmw.FuelEfficiency)
	}
	if bmw.MaintenanceCost != models.TierHigh || bmw.ResaleValue != models.TierHigh {
		t.Errorf("BMW tiers = %s/%s", bmw.MaintenanceCost, bmw.ResaleValue)
	}
}

func TestResolveTwoCars(t *testing.T) {
	r := NewResolver(testutil.NewInventoryStore(t))
	res, err := r.Resolve(context.Background(), "compare honda city vs hyundai verna on price and safety")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Cars) != 2 {
		t.Fatalf("expected 2 cars, got %d", len(res.Cars))
	}
	for _, want := range []string{
		"Here's a comparison of 2 cars:",
		"| Feature | Honda City VX | Hyundai Verna SX |",
		"|---|---|---|",
		"| **Price** | ₹8,50,000 | ₹11,00,000 |",
		"| **Safety Rating** | 4.5/5 | 4.5/5 |",
		"💰 **Price**: Hyundai Verna SX is ₹2,50,000 more expensive than Honda City VX",
		"📅 **Age**: Hyundai Verna SX is 2 years newer than Honda City VX",
	} {
		if !strings.Contains(res.Message, want) {
			t.Errorf("message missing %q:\n%s", want, res.Message)
		}
	}
	if strings.Contains(res.Message, "**Mileage**") {
		t.Error("mileage row should only appear when requested")
	}
	if strings.Contains(res.Message, "₹₹") {
		t.Error("price delta must not double the currency sign")
	}
	if res.Confidence != 80 {
		t.Errorf("Confidence = %d, want 80", res.Confidence)
	}
}

func TestResolveSingleCar(t *testing.T) {
	r := NewResolver(testutil.NewInventoryStore(t))
	res, err := r.Resolve(context.Background(), "compare kia seltos with something")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := "I found information about Kia Seltos HTX. To compare it with another car, please mention the second car model."
	if res.Message != want {
		t.Errorf("Message = %q", res.Message)
	}
}

func TestResolveBrandsLimitsPerBrand(t *testing.T) {
	r := NewResolver(testutil.NewInventoryStore(t))
	res, err := r.Resolve(context.Background(), "hyundai versus tata mileage")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Cars) != 5 {
		t.Fatalf("expected 3 Hyundai + 2 Tata, got %d", len(res.Cars))
	}
	if !strings.Contains(res.Message, "⛽ **Fuel Efficiency**: Tata Tiago XZ offers the best mileage at 25 kmpl") {
		t.Errorf("expected a mileage difference line:\n%s", res.Message)
	}
}

func TestResolveNothingNamed(t *testing.T) {
	r := NewResolver(testutil.NewInventoryStore(t))
	res, err := r.Resolve(context.Background(), "which is better?")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Cars) != 0 || res.Message != NotFoundMessage || res.Confidence != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestCompareIncludesFeaturesRow(t *testing.T) {
	cars := testutil.SampleCars()
	res := Compare([]models.Car{cars[2], cars[3]}, nil)
	if !strings.Contains(res.Message, "| **Features** | Comfortable Seating | Modern Tech, High Torque, Comfortable Seating |") {
		t.Errorf("features row missing:\n%s", res.Message)
	}
	if !strings.Contains(res.Message, "| **Mileage** | 16 kmpl | 20 kmpl |") {
		t.Errorf("mileage row missing:\n%s", res.Message)
	}
}
