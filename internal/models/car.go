package models

import (
	"regexp"
	"strings"
)

// Car is a read-only projection of an inventory row.
type Car struct {
	ID                 int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Brand              string `json:"brand" yaml:"brand"`
	Model              string `json:"model" yaml:"model"`
	Variant            string `json:"variant" yaml:"variant"`
	Year               int    `json:"year" yaml:"year"`
	FuelType           string `json:"fuel_type" yaml:"fuel_type"`
	Price              int64  `json:"price" yaml:"price"` // whole rupees
	RegistrationNumber string `json:"registration_number,omitempty" yaml:"registration_number,omitempty"`
	Type               string `json:"type" yaml:"type"`
	Transmission       string `json:"transmission,omitempty" yaml:"transmission,omitempty"`
	ImageURL           string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// DisplayName returns "brand model variant".
func (c Car) DisplayName() string {
	return strings.TrimSpace(strings.Join([]string{c.Brand, c.Model, c.Variant}, " "))
}

// SelectionID returns the id carried by the SELECT button of a car card.
func (c Car) SelectionID() string {
	return "book_" + whitespaceRun.ReplaceAllString(c.DisplayName(), "_")
}

// CarColumn names an inventory column that may be listed with DistinctValues.
type CarColumn string

const (
	ColumnType  CarColumn = "type"
	ColumnBrand CarColumn = "brand"
	ColumnModel CarColumn = "model"
)

// CarQuery is the set of constraints an inventory search applies. Zero
// values mean "no constraint".
type CarQuery struct {
	Price     *PriceRange `json:"price,omitempty"`
	Type      string      `json:"type,omitempty"`
	Brands    []string    `json:"brands,omitempty"` // one entry is an exact match, more is an IN list
	MinYear   int         `json:"minYear,omitempty"`
	MaxYear   int         `json:"maxYear,omitempty"`
	FuelTypes []string    `json:"fuelTypes,omitempty"`
	Limit     int         `json:"limit,omitempty"`
}

// IsEmpty reports whether the query carries no constraint at all.
func (q CarQuery) IsEmpty() bool {
	return q.Price == nil && q.Type == "" && len(q.Brands) == 0 &&
		q.MinYear == 0 && q.MaxYear == 0 && len(q.FuelTypes) == 0
}

// Matches reports whether a car satisfies every constraint of q. In-memory
// stores use it; SQL stores translate q into a WHERE clause instead.
func (q CarQuery) Matches(c Car) bool {
	if q.Price != nil && (c.Price < q.Price.Min || c.Price > q.Price.Max) {
		return false
	}
	if q.Type != "" && c.Type != q.Type {
		return false
	}
	if len(q.Brands) > 0 && !containsString(q.Brands, c.Brand) {
		return false
	}
	if q.MinYear != 0 && c.Year < q.MinYear {
		return false
	}
	if q.MaxYear != 0 && c.Year > q.MaxYear {
		return false
	}
	if len(q.FuelTypes) > 0 && !containsString(q.FuelTypes, c.FuelType) {
		return false
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
