package comparison

import "github.com/BTreeMap/DealerPipe/internal/models"

// modelPatterns maps "brand model" phrases to canonical identifiers, checked
// in order.
var modelPatterns = []struct{ phrase, name string }{
	{"honda city", "Honda City"},
	{"honda civic", "Honda Civic"},
	{"honda cr-v", "Honda CR-V"},
	{"honda wr-v", "Honda WR-V"},
	{"maruti swift", "Maruti Swift"},
	{"maruti baleno", "Maruti Baleno"},
	{"maruti vitara brezza", "Maruti Vitara Brezza"},
	{"maruti dzire", "Maruti Dzire"},
	{"hyundai creta", "Hyundai Creta"},
	{"hyundai i20", "Hyundai i20"},
	{"hyundai verna", "Hyundai Verna"},
	{"hyundai venue", "Hyundai Venue"},
	{"toyota innova", "Toyota Innova"},
	{"toyota fortuner", "Toyota Fortuner"},
	{"toyota camry", "Toyota Camry"},
	{"tata nexon", "Tata Nexon"},
	{"tata harrier", "Tata Harrier"},
	{"tata altroz", "Tata Altroz"},
	{"kia seltos", "Kia Seltos"},
	{"kia sonet", "Kia Sonet"},
	{"kia carnival", "Kia Carnival"},
	{"mahindra xuv300", "Mahindra XUV300"},
	{"mahindra scorpio", "Mahindra Scorpio"},
	{"skoda rapid", "Skoda Rapid"},
	{"skoda octavia", "Skoda Octavia"},
	{"renault kwid", "Renault Kwid"},
	{"renault triber", "Renault Triber"},
	{"ford ecosport", "Ford EcoSport"},
	{"ford endeavour", "Ford Endeavour"},
	{"volkswagen polo", "Volkswagen Polo"},
	{"volkswagen vento", "Volkswagen Vento"},
	{"bmw 3 series", "BMW 3 Series"},
	{"bmw x1", "BMW X1"},
	{"audi a4", "Audi A4"},
	{"audi q3", "Audi Q3"},
	{"mercedes c-class", "Mercedes C-Class"},
	{"mercedes gla", "Mercedes GLA"},
}

// brandPatterns are only consulted when no model matched.
var brandPatterns = []struct{ phrase, name string }{
	{"honda", "Honda"},
	{"maruti", "Maruti"},
	{"hyundai", "Hyundai"},
	{"toyota", "Toyota"},
	{"tata", "Tata"},
	{"kia", "Kia"},
	{"mahindra", "Mahindra"},
	{"skoda", "Skoda"},
	{"renault", "Renault"},
	{"ford", "Ford"},
	{"volkswagen", "Volkswagen"},
	{"bmw", "BMW"},
	{"audi", "Audi"},
	{"mercedes", "Mercedes"},
}

// Comparison criteria.
const (
	CriterionPrice          = "price"
	CriterionFuelEfficiency = "fuel_efficiency"
	CriterionFeatures       = "features"
	CriterionSafety         = "safety"
	CriterionPerformance    = "performance"
	CriterionMaintenance    = "maintenance"
	CriterionResaleValue    = "resale_value"
	CriterionSpace          = "space"
	CriterionComfort        = "comfort"
)

var criteriaKeywords = []struct {
	criterion string
	keywords  []string
}{
	{CriterionPrice, []string{"price", "cost", "expensive", "cheap"}},
	{CriterionFuelEfficiency, []string{"fuel", "mileage", "efficiency", "kmpl"}},
	{CriterionFeatures, []string{"features", "specifications", "specs"}},
	{CriterionSafety, []string{"safety", "airbag", "abs", "crash"}},
	{CriterionPerformance, []string{"performance", "power", "speed", "engine"}},
	{CriterionMaintenance, []string{"maintenance", "service", "repair"}},
	{CriterionResaleValue, []string{"resale", "depreciation", "value"}},
	{CriterionSpace, []string{"space", "room", "seating", "boot"}},
	{CriterionComfort, []string{"comfort", "ride", "smooth"}},
}

// DefaultCriteria apply when the message names none.
var DefaultCriteria = []string{CriterionPrice, CriterionFuelEfficiency, CriterionFeatures}

const defaultEfficiency = 15

// efficiency is kmpl by fuel then body type.
var efficiency = map[string]map[string]int{
	"Petrol": {"Hatchback": 18, "Sedan": 16, "SUV": 14, "Coupe": 15},
	"Diesel": {"Hatchback": 22, "Sedan": 20, "SUV": 18, "Coupe": 19},
	"CNG":    {"Hatchback": 25, "Sedan": 23, "SUV": 20, "Coupe": 22},
}

const defaultSafety = 4.0

var safetyByBrand = map[string]float64{
	"Honda": 4.5, "Toyota": 4.6, "Maruti": 4.2, "Hyundai": 4.3,
	"Tata": 4.4, "Kia": 4.3, "Mahindra": 4.1, "Skoda": 4.7,
	"Renault": 4.2, "Ford": 4.4, "Volkswagen": 4.6, "BMW": 4.8,
	"Audi": 4.7, "Mercedes": 4.8,
}

var maintenanceByBrand = map[string]models.Tier{
	"Toyota": models.TierLow, "Maruti": models.TierLow,
	"Skoda": models.TierHigh, "Volkswagen": models.TierHigh, "BMW": models.TierHigh,
	"Audi": models.TierHigh, "Mercedes": models.TierHigh,
}

var resaleByBrand = map[string]models.Tier{
	"Honda": models.TierHigh, "Toyota": models.TierHigh, "Maruti": models.TierHigh,
	"BMW": models.TierHigh, "Audi": models.TierHigh, "Mercedes": models.TierHigh,
	"Skoda": models.TierLow, "Renault": models.TierLow,
}
