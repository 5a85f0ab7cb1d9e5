package models

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// FilterAll is the slot value meaning "no constraint" for type and brand.
const FilterAll = "all"

// ValuationSlots holds the answers collected by the car valuation flow.
type ValuationSlots struct {
	Brand     string `json:"brand,omitempty"`
	Model     string `json:"model,omitempty"`
	Year      string `json:"year,omitempty"`
	Fuel      string `json:"fuel,omitempty"`
	Kms       string `json:"kms,omitempty"`
	Owner     string `json:"owner,omitempty"`
	Condition string `json:"condition,omitempty"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Location  string `json:"location,omitempty"`
	ID        int64  `json:"valuationId,omitempty"`
	Status    string `json:"status,omitempty"`
}

// Session is the per-conversation slot-filling state. Empty strings mean
// the slot is unset.
type Session struct {
	ConversationID string `json:"conversationId"`
	Step           Step   `json:"step,omitempty"`

	Budget string `json:"budget,omitempty"`
	Type   string `json:"type,omitempty"`
	Brand  string `json:"brand,omitempty"`

	FilteredCars []Car  `json:"filteredCars,omitempty"`
	CarIndex     int    `json:"carIndex"`
	SelectedCar  string `json:"selectedCar,omitempty"`

	ComparisonCars     []Car    `json:"comparisonCars,omitempty"`
	ComparisonCriteria []string `json:"comparisonCriteria,omitempty"`

	TestDriveDate          string     `json:"testDriveDate,omitempty"`
	TestDriveDay           string     `json:"testDriveDay,omitempty"`
	TestDriveTime          string     `json:"testDriveTime,omitempty"`
	TestDriveActualDate    *time.Time `json:"testDriveActualDate,omitempty"`
	TestDriveDateFormatted string     `json:"testDriveDateFormatted,omitempty"`

	TDName         string `json:"td_name,omitempty"`
	TDPhone        string `json:"td_phone,omitempty"`
	TDLicense      string `json:"td_license,omitempty"`
	TDLocationMode string `json:"td_location_mode,omitempty"`
	TDHomeAddress  string `json:"td_home_address,omitempty"`
	TDDropLocation string `json:"td_drop_location,omitempty"`

	// BookingReference is set once the test drive has been persisted.
	BookingReference string `json:"bookingReference,omitempty"`

	PendingImageURL   string   `json:"pendingImageUrl,omitempty"`
	UploadedImageType string   `json:"uploadedImageType,omitempty"`
	LastIntent        string   `json:"lastIntent,omitempty"`
	LastPhase         string   `json:"lastPhase,omitempty"`
	LastTone          string   `json:"lastTone,omitempty"`
	LastOptions       []string `json:"lastOptions,omitempty"`

	ConversationEnded bool           `json:"conversationEnded,omitempty"`
	Valuation         ValuationSlots `json:"valuation"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// NewSession returns an empty session for a conversation.
func NewSession(conversationID string) *Session {
	return &Session{ConversationID: conversationID}
}

// ResetCriteria clears the browse filters, the displayed cars, the selection,
// the comparison and every test-drive slot.
func (s *Session) ResetCriteria() {
	s.Budget, s.Type, s.Brand = "", "", ""
	s.FilteredCars = nil
	s.CarIndex = 0
	s.SelectedCar = ""
	s.ComparisonCars = nil
	s.ComparisonCriteria = nil
	s.resetTestDrive()
}

func (s *Session) resetTestDrive() {
	s.TestDriveDate, s.TestDriveDay, s.TestDriveTime = "", "", ""
	s.TestDriveActualDate = nil
	s.TestDriveDateFormatted = ""
	s.TDName, s.TDPhone, s.TDLicense = "", "", ""
	s.TDLocationMode, s.TDHomeAddress, s.TDDropLocation = "", "", ""
	s.BookingReference = ""
}

// ResetAll clears everything but the conversation id and returns the session
// to the main menu.
func (s *Session) ResetAll() {
	*s = Session{ConversationID: s.ConversationID, Step: StepMainMenu, UpdatedAt: s.UpdatedAt}
}

// End clears the session and marks the conversation as ended. The valuation
// id survives so a pending valuation can still be updated.
func (s *Session) End() {
	valuationID := s.Valuation.ID
	*s = Session{ConversationID: s.ConversationID, UpdatedAt: s.UpdatedAt}
	s.Valuation.ID = valuationID
	s.ConversationEnded = true
}

// HasFilters reports whether budget, type and brand are all set.
func (s *Session) HasFilters() bool {
	return s.Budget != "" && s.Type != "" && s.Brand != ""
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.FilteredCars = append([]Car(nil), s.FilteredCars...)
	c.ComparisonCars = append([]Car(nil), s.ComparisonCars...)
	c.ComparisonCriteria = append([]string(nil), s.ComparisonCriteria...)
	c.LastOptions = append([]string(nil), s.LastOptions...)
	if s.TestDriveActualDate != nil {
		t := *s.TestDriveActualDate
		c.TestDriveActualDate = &t
	}
	return &c
}

// LogValue exposes only the non-personal slots, so sessions can be logged
// as context without leaking names, phones or addresses.
func (s *Session) LogValue() slog.Value {
	if s == nil {
		return slog.StringValue("<nil>")
	}
	return slog.GroupValue(
		slog.String("step", string(s.Step)),
		slog.String("budget", s.Budget),
		slog.String("type", s.Type),
		slog.String("brand", s.Brand),
	)
}

// protectedKeys are never written by ApplyUpdates.
var protectedKeys = map[string]struct{}{
	"conversationId": {},
	"step":           {},
	"updatedAt":      {},
}

// ApplyUpdates decodes classifier session updates onto the session by json
// field name. Nil values and the string "null" mean "leave unchanged" and are
// skipped. Each key is decoded on its own so one ill-typed value does not
// block the others. It returns the keys that were applied.
func (s *Session) ApplyUpdates(updates map[string]any) ([]string, error) {
	var applied []string
	var errs []error
	for key, value := range updates {
		if value == nil {
			continue
		}
		if str, ok := value.(string); ok && strings.EqualFold(strings.TrimSpace(str), "null") {
			continue
		}
		if _, ok := protectedKeys[key]; ok {
			continue
		}
		md := &mapstructure.Metadata{}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "json",
			Result:           s,
			Metadata:         md,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		})
		if err != nil {
			return applied, fmt.Errorf("session update decoder: %w", err)
		}
		if err := dec.Decode(map[string]any{key: value}); err != nil {
			errs = append(errs, fmt.Errorf("session update %q: %w", key, err))
			continue
		}
		if len(md.Unused) > 0 {
			continue
		}
		applied = append(applied, key)
	}
	return applied, errors.Join(errs...)
}
