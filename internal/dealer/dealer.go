// Package dealer holds the dealership profile used in customer-facing text.
package dealer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes the dealership.
type Profile struct {
	Name            string   `yaml:"name"`
	ShowroomAddress string   `yaml:"showroom_address"`
	Phone           string   `yaml:"phone"`
	Website         string   `yaml:"website"`
	Hours           string   `yaml:"hours"`
	Story           string   `yaml:"story"`
	Highlights      []string `yaml:"highlights"`
}

// Default returns the built-in Sherpa Hyundai profile.
func Default() Profile {
	return Profile{
		Name:            "Sherpa Hyundai",
		ShowroomAddress: "Sherpa Hyundai Showroom, 123 MG Road, Bangalore",
		Phone:           "+91-9876543210",
		Website:         "www.sherpahyundai.com",
		Hours:           "Mon-Sat 9:00 AM - 8:00 PM, Sun 10:00 AM - 6:00 PM",
		Story: "Sherpa Hyundai has helped Bangalore families find reliable cars for over 15 years. " +
			"Every used car we sell is inspected, certified and backed by our service team.",
		Highlights: []string{
			"200+ point inspection on every car",
			"Transparent pricing with no hidden charges",
			"Easy financing and insurance support",
			"Free RC transfer assistance",
		},
	}
}

// Load reads a profile from a YAML file. Fields missing from the file keep
// their default values.
func Load(path string) (Profile, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read dealer profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse dealer profile %s: %w", path, err)
	}
	return p, nil
}
