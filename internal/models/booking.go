package models

import "time"

// TestDriveBooking is a confirmed test-drive request.
type TestDriveBooking struct {
	Reference      string    `json:"reference"`
	ConversationID string    `json:"conversation_id"`
	Car            string    `json:"car"`
	Datetime       time.Time `json:"datetime"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	HasLicense     bool      `json:"has_license"`
	PickupOption   string    `json:"pickup_option"`
	Address        string    `json:"address,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Valuation request statuses.
const (
	ValuationPending   = "pending"
	ValuationConfirmed = "confirmed"
	ValuationRejected  = "rejected"
	ValuationEnded     = "ended"
)

// ValuationRequest is a customer's request to have their car valued.
type ValuationRequest struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Location       string    `json:"location"`
	Brand          string    `json:"brand"`
	Model          string    `json:"model"`
	Year           string    `json:"year"`
	Fuel           string    `json:"fuel"`
	Kms            string    `json:"kms"`
	Owner          string    `json:"owner"`
	Condition      string    `json:"condition"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
