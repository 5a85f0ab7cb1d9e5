package models

// Canonical budget bucket labels offered to customers.
const (
	BudgetUnder5  = "Under ₹5 Lakhs"
	Budget5To10   = "₹5-10 Lakhs"
	Budget10To15  = "₹10-15 Lakhs"
	Budget15To20  = "₹15-20 Lakhs"
	BudgetAbove20 = "Above ₹20 Lakhs"
	BudgetAny     = "Any Budget"
)

// MaxInventoryPrice is the upper bound used for open-ended price ranges.
const MaxInventoryPrice int64 = 999999999

// PriceRange is an inclusive price interval in rupees.
type PriceRange struct {
	Min   int64  `json:"min"`
	Max   int64  `json:"max"`
	Label string `json:"label,omitempty"`
}

// BudgetOptions lists the five canonical buckets in display order.
var BudgetOptions = []string{BudgetUnder5, Budget5To10, Budget10To15, Budget15To20, BudgetAbove20}

var budgetRanges = map[string]PriceRange{
	BudgetUnder5:  {Min: 0, Max: 500000, Label: BudgetUnder5},
	Budget5To10:   {Min: 500000, Max: 1000000, Label: Budget5To10},
	Budget10To15:  {Min: 1000000, Max: 1500000, Label: Budget10To15},
	Budget15To20:  {Min: 1500000, Max: 2000000, Label: Budget15To20},
	BudgetAbove20: {Min: 2000000, Max: MaxInventoryPrice, Label: BudgetAbove20},
}

// BudgetRange maps a bucket label to its price range. Unknown labels map to
// the full range.
func BudgetRange(label string) PriceRange {
	if r, ok := budgetRanges[label]; ok {
		return r
	}
	return PriceRange{Min: 0, Max: MaxInventoryPrice, Label: label}
}

// IsBudgetOption reports whether s is exactly one of the canonical labels.
func IsBudgetOption(s string) bool {
	_, ok := budgetRanges[s]
	return ok
}

// BudgetForAmount returns the canonical bucket containing a rupee amount.
func BudgetForAmount(amount int64) string {
	switch {
	case amount < 500000:
		return BudgetUnder5
	case amount < 1000000:
		return Budget5To10
	case amount < 1500000:
		return Budget10To15
	case amount < 2000000:
		return Budget15To20
	default:
		return BudgetAbove20
	}
}
