package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

const (
	// BookingConfirmedMessage is shown once a test drive has been confirmed.
	BookingConfirmedMessage = "Thank you! Your test drive has been confirmed. We'll contact you shortly to finalize the details."
	toBeConfirmed           = "To be confirmed"
)

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func (m *Machine) locationText(sess *models.Session) string {
	mode := strings.ToLower(sess.TDLocationMode)
	switch {
	case mode == strings.ToLower(HomePickup):
		return "📍 Test Drive Location: " + orDefault(sess.TDHomeAddress, toBeConfirmed)
	case mode == strings.ToLower(ShowroomPickup):
		return "📍 Showroom Address: " + m.opts.Profile.ShowroomAddress + "\n🅿️ Free parking available"
	case sess.TDDropLocation != "":
		return "📍 Test Drive Location: " + sess.TDDropLocation
	default:
		return "📍 Test Drive Location: " + toBeConfirmed
	}
}

func dateDisplay(sess *models.Session) string {
	switch {
	case sess.TestDriveDateFormatted != "":
		return sess.TestDriveDateFormatted
	case sess.TestDriveDate == models.DateToday, sess.TestDriveDate == models.DateTomorrow:
		return sess.TestDriveDate
	case sess.TestDriveDay != "":
		return sess.TestDriveDay
	default:
		return toBeConfirmed
	}
}

// Summary renders the booking summary the customer confirms or rejects.
func (m *Machine) Summary(sess *models.Session) *models.Reply {
	var b strings.Builder
	b.WriteString("Perfect! Here's your test drive confirmation:\n\n")
	b.WriteString("📋 TEST DRIVE CONFIRMED:\n")
	fmt.Fprintf(&b, "👤 Name: %s\n", orDefault(sess.TDName, "Not provided"))
	fmt.Fprintf(&b, "📱 Phone: %s\n", orDefault(sess.TDPhone, "Not provided"))
	fmt.Fprintf(&b, "🚗 Car: %s\n", orDefault(sess.SelectedCar, "Not selected"))
	fmt.Fprintf(&b, "📅 Date: %s\n", dateDisplay(sess))
	fmt.Fprintf(&b, "⏰ Time: %s\n", orDefault(sess.TestDriveTime, "Not selected"))
	fmt.Fprintf(&b, "\n%s\n\n", m.locationText(sess))
	b.WriteString("What to bring:\n✅ Valid driving license\n✅ Photo ID\n")
	fmt.Fprintf(&b, "📞 Need help? Call us: %s\n\n", m.opts.Profile.Phone)
	b.WriteString("Quick reminder: We'll also have financing options ready if you like the car during your test drive!\n\n")
	b.WriteString("Please confirm your booking:")

	sess.Step = models.StepTestDriveConfirmation
	return models.NewReply(sess.Step, b.String(), models.OptionConfirm, models.OptionReject)
}

// saveBooking persists the confirmed test drive once per booking. Failures
// are logged and do not block the confirmation.
func (m *Machine) saveBooking(ctx context.Context, sess *models.Session) {
	if sess.BookingReference != "" {
		return
	}
	if sess.TDName == "" || sess.TDPhone == "" {
		slog.Warn("Machine.saveBooking: missing customer details, not persisting", "session", sess)
		return
	}
	now := m.opts.Now()
	b := models.TestDriveBooking{
		Reference:      uuid.NewString(),
		ConversationID: sess.ConversationID,
		Car:            sess.SelectedCar,
		Datetime:       BookingTime(sess.TestDriveActualDate, sess.TestDriveTime, now),
		Name:           sess.TDName,
		Phone:          sess.TDPhone,
		HasLicense:     sess.TDLicense == LicenseYes,
		PickupOption:   sess.TDLocationMode,
		Address:        sess.TDHomeAddress,
		CreatedAt:      now,
	}
	if b.Address == "" {
		b.Address = sess.TDDropLocation
	}
	err := m.bookings.SaveTestDrive(ctx, b)
	m.opts.Observer.Booking(err)
	if err != nil {
		slog.Error("Machine.saveBooking: failed to persist test drive", "error", err, "session", sess)
		return
	}
	sess.BookingReference = b.Reference
	slog.Info("Machine.saveBooking: test drive booked", "reference", b.Reference, "conversationID", sess.ConversationID)
}

// CompleteBooking persists the booking and shows the completion message.
func (m *Machine) CompleteBooking(ctx context.Context, sess *models.Session) *models.Reply {
	m.saveBooking(ctx, sess)
	sess.Step = models.StepBookingComplete
	return models.NewReply(sess.Step, BookingConfirmedMessage, models.OptionExploreMore, models.OptionEndConversation)
}
