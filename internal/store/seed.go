package store

import (
	"fmt"
	"os"

	"github.com/BTreeMap/DealerPipe/internal/models"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout of an inventory seed.
type seedFile struct {
	Cars []models.Car `yaml:"cars"`
}

// LoadSeed reads an inventory seed file.
func LoadSeed(path string) ([]models.Car, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory seed: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes an inventory seed document of the form
//
//	cars:
//	  - brand: Hyundai
//	    model: Creta
//	    ...
func ParseSeed(data []byte) ([]models.Car, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse inventory seed: %w", err)
	}
	for i, c := range f.Cars {
		if c.Brand == "" || c.Model == "" || c.Price <= 0 {
			return nil, fmt.Errorf("inventory seed entry %d: brand, model and a positive price are required", i)
		}
	}
	return f.Cars, nil
}
