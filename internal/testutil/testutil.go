// Package testutil provides common test fixtures and helpers for DealerPipe tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/store"
)

// FixedNow is the clock used by tests: Wednesday 14 October 2026, 09:00 IST.
var FixedNow = time.Date(2026, time.October, 14, 9, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))

// Clock returns a func that always reports FixedNow.
func Clock() func() time.Time {
	return func() time.Time { return FixedNow }
}

// SampleCars returns a small inventory spanning every budget bucket.
func SampleCars() []models.Car {
	return []models.Car{
		{ID: 1, Brand: "Maruti", Model: "Swift", Variant: "VXI", Year: 2019, FuelType: "Petrol", Price: 450000, Type: "Hatchback", Transmission: "Manual", ImageURL: "/images/swift.jpg"},
		{ID: 2, Brand: "Hyundai", Model: "i20", Variant: "Asta", Year: 2020, FuelType: "Petrol", Price: 650000, Type: "Hatchback", Transmission: "Manual"},
		{ID: 3, Brand: "Honda", Model: "City", Variant: "VX", Year: 2019, FuelType: "Petrol", Price: 850000, Type: "Sedan", Transmission: "Manual", ImageURL: "https://cdn.example.com/city.jpg"},
		{ID: 4, Brand: "Hyundai", Model: "Verna", Variant: "SX", Year: 2021, FuelType: "Diesel", Price: 1100000, Type: "Sedan", Transmission: "Automatic"},
		{ID: 5, Brand: "Tata", Model: "Nexon", Variant: "XZ Plus", Year: 2021, FuelType: "Diesel", Price: 900000, Type: "SUV", Transmission: "Manual"},
		{ID: 6, Brand: "Kia", Model: "Seltos", Variant: "HTX", Year: 2021, FuelType: "Petrol", Price: 1350000, Type: "SUV", Transmission: "Automatic"},
		{ID: 7, Brand: "Hyundai", Model: "Creta", Variant: "SX", Year: 2022, FuelType: "Diesel", Price: 1450000, Type: "SUV", Transmission: "Automatic"},
		{ID: 8, Brand: "Mahindra", Model: "XUV700", Variant: "AX7", Year: 2022, FuelType: "Diesel", Price: 2100000, Type: "SUV", Transmission: "Automatic"},
		{ID: 9, Brand: "Toyota", Model: "Innova Crysta", Variant: "GX", Year: 2018, FuelType: "Diesel", Price: 1650000, Type: "MUV", Transmission: "Manual"},
		{ID: 10, Brand: "Skoda", Model: "Octavia", Variant: "Style", Year: 2017, FuelType: "Petrol", Price: 1550000, Type: "Sedan", Transmission: "Automatic"},
		{ID: 11, Brand: "BMW", Model: "3 Series", Variant: "320d", Year: 2016, FuelType: "Diesel", Price: 2500000, Type: "Sedan", Transmission: "Automatic"},
		{ID: 12, Brand: "Maruti", Model: "Baleno", Variant: "Zeta", Year: 2020, FuelType: "Petrol", Price: 600000, Type: "Hatchback", Transmission: "Manual"},
		{ID: 13, Brand: "Hyundai", Model: "Venue", Variant: "S", Year: 2020, FuelType: "Petrol", Price: 780000, Type: "SUV", Transmission: "Manual"},
		{ID: 14, Brand: "Tata", Model: "Tiago", Variant: "XZ", Year: 2018, FuelType: "CNG", Price: 400000, Type: "Hatchback", Transmission: "Manual"},
	}
}

// NewInventoryStore returns an in-memory store seeded with SampleCars.
func NewInventoryStore(t *testing.T) *store.InMemoryStore {
	t.Helper()
	st := store.NewInMemoryStore()
	if err := st.UpsertCars(context.Background(), SampleCars()); err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return st
}

// ScriptedLLM is a canned completion backend. Responses are returned in
// order; the last one repeats. Err, when set, is returned instead.
type ScriptedLLM struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Prompts   []string
}

// Complete records the prompt and returns the next scripted response.
func (s *ScriptedLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Responses) == 0 {
		return "", nil
	}
	i := len(s.Prompts) - 1
	if i >= len(s.Responses) {
		i = len(s.Responses) - 1
	}
	return s.Responses[i], nil
}

// Calls returns how many prompts were completed.
func (s *ScriptedLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	if status, ok := response["status"].(string); !ok || status != expectedStatus {
		t.Errorf("expected status %q, got %v", expectedStatus, response["status"])
	}
	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}
