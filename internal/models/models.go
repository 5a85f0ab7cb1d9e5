// Package models defines the core data structures for DealerPipe.
//
// It includes the conversation session, inventory cars, classifier decisions,
// replies and the delivery receipts shared across modules.
package models

import (
	"errors"
	"time"
)

// Validation constants for inbound input
const (
	// MaxInboundBodyLength caps how much of an inbound message is processed
	MaxInboundBodyLength = 4096
)

// Error variables for better error handling and testability
var (
	ErrEmptyRecipient = errors.New("recipient cannot be empty")
	ErrEmptyBody      = errors.New("message body cannot be empty")
	ErrBodyTooLong    = errors.New("message body exceeds maximum length")
)

// MessageStatus represents the delivery status of a message.
type MessageStatus string

const (
	// MessageStatusSent indicates the message was sent.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered indicates the message was delivered.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusRead indicates the message was read.
	MessageStatusRead MessageStatus = "read"
	// MessageStatusFailed indicates the message failed to send.
	MessageStatusFailed MessageStatus = "failed"
)

// Receipt records a delivery event for an outbound message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// InboundMessage is a customer message received from a transport.
type InboundMessage struct {
	ID   string `json:"id,omitempty"` // transport message id, used for dedup
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
}

// Validate checks that the inbound message can be processed.
func (m InboundMessage) Validate() error {
	if m.From == "" {
		return ErrEmptyRecipient
	}
	if m.Body == "" {
		return ErrEmptyBody
	}
	if len(m.Body) > MaxInboundBodyLength {
		return ErrBodyTooLong
	}
	return nil
}

// ReceivedAt returns the inbound timestamp as a time.Time.
func (m InboundMessage) ReceivedAt() time.Time {
	return time.Unix(m.Time, 0)
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
