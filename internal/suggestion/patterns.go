package suggestion

import (
	"regexp"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

// pattern pairs a compiled phrase with the value it selects. Within a table
// the first match wins unless the category collects every match.
type pattern[T any] struct {
	re    *regexp.Regexp
	value T
}

func phrase[T any](expr string, value T) pattern[T] {
	return pattern[T]{re: regexp.MustCompile(`\b(?:` + expr + `)\b`), value: value}
}

func firstMatch[T any](table []pattern[T], text string) (T, bool) {
	for _, p := range table {
		if p.re.MatchString(text) {
			return p.value, true
		}
	}
	var zero T
	return zero, false
}

var budgetPatterns = []pattern[string]{
	phrase(`under 5 lakhs?`, models.BudgetUnder5),
	phrase(`5 to 10 lakhs|5-10 lakhs`, models.Budget5To10),
	phrase(`10 to 15 lakhs|10-15 lakhs`, models.Budget10To15),
	phrase(`15 to 20 lakhs|15-20 lakhs`, models.Budget15To20),
	phrase(`above 20 lakhs?`, models.BudgetAbove20),
	phrase(`budget`, models.BudgetAny),
}

var customBudgetRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*lakh`)

var typePatterns = []pattern[string]{
	phrase(`suvs?`, "SUV"),
	phrase(`sedans?`, "Sedan"),
	phrase(`hatchbacks?`, "Hatchback"),
	phrase(`coupes?`, "Coupe"),
	phrase(`convertibles?`, "Convertible"),
	phrase(`wagons?`, "Wagon"),
	phrase(`pickups?`, "Pickup"),
	phrase(`muvs?`, "MUV"),
	phrase(`family cars?`, "SUV"),
	phrase(`sports cars?`, "Coupe"),
	phrase(`luxury cars?`, "Sedan"),
}

// brandPatterns yields a single brand or, for regional groups, several.
var brandPatterns = []pattern[[]string]{
	phrase(`honda`, []string{"Honda"}),
	phrase(`maruti`, []string{"Maruti"}),
	phrase(`hyundai`, []string{"Hyundai"}),
	phrase(`toyota`, []string{"Toyota"}),
	phrase(`tata`, []string{"Tata"}),
	phrase(`kia`, []string{"Kia"}),
	phrase(`mahindra`, []string{"Mahindra"}),
	phrase(`skoda`, []string{"Skoda"}),
	phrase(`renault`, []string{"Renault"}),
	phrase(`ford`, []string{"Ford"}),
	phrase(`volkswagen|vw`, []string{"Volkswagen"}),
	phrase(`bmw`, []string{"BMW"}),
	phrase(`audi`, []string{"Audi"}),
	phrase(`mercedes(?:-benz)?`, []string{"Mercedes"}),
	phrase(`japanese`, []string{"Honda", "Toyota", "Maruti", "Nissan", "Mitsubishi"}),
	phrase(`german`, []string{"BMW", "Audi", "Mercedes", "Volkswagen"}),
	phrase(`korean`, []string{"Hyundai", "Kia"}),
	phrase(`indian`, []string{"Tata", "Mahindra"}),
	phrase(`european`, []string{"BMW", "Audi", "Mercedes", "Volkswagen", "Skoda", "Renault"}),
}

// featurePatterns are all collected. Fuel types keep their inventory
// spelling so they can filter fuel_type directly.
var featurePatterns = []pattern[string]{
	phrase(`automatic`, "automatic_transmission"),
	phrase(`manual`, "manual_transmission"),
	phrase(`diesel`, "Diesel"),
	phrase(`petrol`, "Petrol"),
	phrase(`cng`, "CNG"),
	phrase(`electric`, "Electric"),
	phrase(`hybrid`, "Hybrid"),
	phrase(`sunroof`, "sunroof"),
	phrase(`leather`, "leather_seats"),
	phrase(`navigation`, "navigation"),
	phrase(`bluetooth`, "bluetooth"),
	phrase(`camera`, "camera"),
	phrase(`safety`, "safety_features"),
	phrase(`airbags?`, "airbags"),
	phrase(`abs`, "abs"),
	phrase(`cruise control`, "cruise_control"),
	phrase(`parking sensors?`, "parking_sensor"),
	phrase(`rear camera`, "rear_camera"),
}

var fuelTypes = map[string]bool{"Diesel": true, "Petrol": true, "CNG": true, "Electric": true, "Hybrid": true}

var usagePatterns = []pattern[models.UsageProfile]{
	phrase(`family`, models.UsageProfile{Name: "family", Type: "SUV", Features: []string{"safety", "space", "comfort"}}),
	phrase(`city`, models.UsageProfile{Name: "city", Type: "Hatchback", Features: []string{"fuel_efficient", "compact"}}),
	phrase(`highway`, models.UsageProfile{Name: "highway", Type: "Sedan", Features: []string{"comfort", "stability"}}),
	phrase(`off[- ]?road`, models.UsageProfile{Name: "off road", Type: "SUV", Features: []string{"4wd", "ground_clearance"}}),
	phrase(`business`, models.UsageProfile{Name: "business", Type: "Sedan", Features: []string{"luxury", "comfort"}}),
	phrase(`first car`, models.UsageProfile{Name: "first car", Type: "Hatchback", Features: []string{"affordable", "easy_driving"}}),
	phrase(`luxury`, models.UsageProfile{Name: "luxury", Type: "Sedan", Features: []string{"luxury", "premium"}}),
	phrase(`sporty`, models.UsageProfile{Name: "sporty", Type: "Coupe", Features: []string{"performance", "style"}}),
	phrase(`economical`, models.UsageProfile{Name: "economical", Type: "Hatchback", Features: []string{"fuel_efficient", "affordable"}}),
}

var agePatterns = []pattern[models.AgeBand]{
	phrase(`new`, models.AgeBand{Name: "New (2020+)", MinYear: 2020}),
	phrase(`recent`, models.AgeBand{Name: "Recent (2018+)", MinYear: 2018}),
	phrase(`old`, models.AgeBand{Name: "Older (2015 and below)", MaxYear: 2015}),
	phrase(`vintage`, models.AgeBand{Name: "Vintage (2010 and below)", MaxYear: 2010}),
}
