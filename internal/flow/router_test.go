package flow

import (
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/testutil"
)

func TestHiWithNoStepShowsMainMenu(t *testing.T) {
	h := newHarness(t, nil)
	sess := models.NewSession("c1")

	reply := h.send(t, sess, "Hi")

	if len(reply.Options) != 4 {
		t.Fatalf("options = %v, want four", reply.Options)
	}
	if reply.Message != "Hello! 👋 Welcome to Sherpa Hyundai. How can I assist you today?" {
		t.Errorf("message = %q", reply.Message)
	}
	if sess.ConversationEnded {
		t.Error("conversation should not be ended")
	}
	if !equalStrings(sess.LastOptions, models.MainMenuOptions) {
		t.Errorf("last options = %v", sess.LastOptions)
	}
}

func TestGreetingResetsSession(t *testing.T) {
	h := newHarness(t, nil)
	sess := models.NewSession("c1")
	sess.Step = models.StepTDPhone
	sess.Budget = models.Budget5To10
	sess.SelectedCar = "Honda City VX"

	h.send(t, sess, "menu")

	if sess.Step != models.StepMainMenu || sess.Budget != "" || sess.SelectedCar != "" {
		t.Errorf("session not reset: %+v", sess)
	}
}

func TestTwoCarComparison(t *testing.T) {
	h := newHarness(t, nil)
	sess := models.NewSession("c1")

	reply := h.send(t, sess, "Compare Kia Seltos and Hyundai Creta")

	if sess.Step != models.StepShowComparison {
		t.Fatalf("step = %q", sess.Step)
	}
	if len(sess.ComparisonCars) != 2 {
		t.Fatalf("comparison cars = %d, want 2", len(sess.ComparisonCars))
	}
	for _, row := range []string{"**Price**", "**Year**", "**Fuel Type**", "**Mileage**", "**Features**"} {
		if !strings.Contains(reply.Message, row) {
			t.Errorf("comparison table missing %s row", row)
		}
	}

	reply = h.send(t, sess, models.OptionBookTestDrive)
	if len(reply.Options) != 2 {
		t.Fatalf("expected the two compared cars, got %v", reply.Options)
	}
	reply = h.send(t, sess, "1")
	if sess.Step != models.StepCarSelectedOptions {
		t.Fatalf("step = %q after picking a compared car", sess.Step)
	}
	if !strings.HasPrefix(reply.Message, "Great choice! You've selected "+sess.SelectedCar) {
		t.Errorf("selected %q, message %q", sess.SelectedCar, reply.Message)
	}
}

func TestNumberedReplyResolves(t *testing.T) {
	if got := ResolveNumbered("2", []string{"a", "b"}); got != "b" {
		t.Errorf("got %q", got)
	}
	for _, in := range []string{"0", "3", "two", "9876543210"} {
		if got := ResolveNumbered(in, []string{"a", "b"}); got != in {
			t.Errorf("ResolveNumbered(%q) = %q", in, got)
		}
	}
}

func TestFullTestDriveJourney(t *testing.T) {
	h := newHarness(t, nil)
	sess := models.NewSession("919000000001")

	steps := []struct {
		text string
		want models.Step
	}{
		{"hi", models.StepMainMenu},
		{"1", models.StepBrowseBudget},
		{models.Budget10To15, models.StepBrowseType},
		{"SUV", models.StepBrowseBrand},
		{"Hyundai", models.StepShowMoreCars},
		{"2", models.StepCarSelectedOptions},
		{"Book Test Drive", models.StepTestDriveDate},
		{"Tomorrow", models.StepTestDriveTime},
		{"1", models.StepTDName},
		{"Ravi Kumar", models.StepTDPhone},
		{"+91 98765 43210", models.StepTDLicense},
		{"yes", models.StepTDLocationMode},
		{"Showroom pickup", models.StepTestDriveConfirmation},
	}
	var reply *models.Reply
	for _, s := range steps {
		reply = h.send(t, sess, s.text)
		if sess.Step != s.want {
			t.Fatalf("after %q: step = %q, want %q (reply %+v)", s.text, sess.Step, s.want, reply)
		}
	}

	for _, want := range []string{
		"📋 TEST DRIVE CONFIRMED:",
		"👤 Name: Ravi Kumar",
		"📱 Phone: 9876543210",
		"🚗 Car: Hyundai Creta SX",
		"📅 Date: Thursday, 15 October 2026",
		"⏰ Time: Morning (10:00 AM)",
		"Sherpa Hyundai Showroom, 123 MG Road, Bangalore",
		"🅿️ Free parking available",
		"Please confirm your booking:",
	} {
		if !strings.Contains(reply.Message, want) {
			t.Errorf("summary missing %q:\n%s", want, reply.Message)
		}
	}

	reply = h.send(t, sess, "Confirm")
	if sess.Step != models.StepBookingComplete {
		t.Fatalf("step = %q", sess.Step)
	}
	if !equalStrings(reply.Options, []string{models.OptionExploreMore, models.OptionEndConversation}) {
		t.Errorf("options = %v", reply.Options)
	}
	bookings := h.store.TestDrives()
	if len(bookings) != 1 {
		t.Fatalf("bookings = %d, want 1", len(bookings))
	}
	b := bookings[0]
	wantTime := time.Date(2026, time.October, 15, 10, 0, 0, 0, testutil.FixedNow.Location())
	if !b.Datetime.Equal(wantTime) {
		t.Errorf("datetime = %v, want %v", b.Datetime, wantTime)
	}
	if !b.HasLicense || b.Phone != "9876543210" || b.Car != "Hyundai Creta SX" || b.Reference == "" {
		t.Errorf("unexpected booking %+v", b)
	}
	if sess.BookingReference != b.Reference {
		t.Errorf("session reference %q, booking %q", sess.BookingReference, b.Reference)
	}

	h.send(t, sess, "Confirm")
	if n := len(h.store.TestDrives()); n != 1 {
		t.Errorf("booking persisted %d times", n)
	}

	reply = h.send(t, sess, "End Conversation")
	if reply.Message != ConversationEndedText || !sess.ConversationEnded {
		t.Errorf("end conversation: %+v ended=%v", reply, sess.ConversationEnded)
	}
	if reply := h.send(t, sess, "thanks"); reply != nil {
		t.Errorf("ended conversation should be silent, got %+v", reply)
	}
	reply = h.send(t, sess, "hello again")
	if sess.ConversationEnded || sess.Step != models.StepMainMenu || len(reply.Options) != 4 {
		t.Errorf("restart failed: step %q ended %v", sess.Step, sess.ConversationEnded)
	}
}

func TestBookingConfirmationPersistsOnce(t *testing.T) {
	h := newHarness(t, nil)
	sess := models.NewSession("c1")
	sess.Step = models.StepTestDriveConfirmation
	sess.SelectedCar = "Kia Seltos HTX"
	sess.TDName, sess.TDPhone, sess.TDLicense = "Asha", "9123456789", LicenseNo
	sess.TDLocationMode, sess.TDHomeAddress = HomePickup, "12 Residency Road, Bangalore"

	reply := h.send(t, sess, "Confirm")

	if sess.Step != models.StepBookingComplete {
		t.Fatalf("step = %q", sess.Step)
	}
	if reply.Message != BookingConfirmedMessage {
		t.Errorf("message = %q", reply.Message)
	}
	got := h.store.TestDrives()
	if len(got) != 1 {
		t.Fatalf("bookings = %d", len(got))
	}
	if got[0].HasLicense {
		t.Error("has_license should follow td_license")
	}
	if !got[0].Datetime.Equal(testutil.FixedNow) {
		t.Errorf("booking without a date should use now, got %v", got[0].Datetime)
	}
}

func TestRejectReturnsToBudget(t *testing.T) {
	h := newHarness(t, nil)
	sess := models.NewSession("c1")
	sess.Step = models.StepTestDriveConfirmation
	sess.Budget, sess.SelectedCar, sess.TDName = models.Budget5To10, "Honda City VX", "Asha"

	reply := h.send(t, sess, "Reject")

	if sess.Step != models.StepBrowseBudget || sess.Budget != "" || sess.SelectedCar != "" || sess.TDName != "" {
		t.Errorf("criteria not reset: %+v", sess)
	}
	if reply.Message != DifferentCarMessage || !equalStrings(reply.Options, models.BudgetOptions) {
		t.Errorf("reply = %+v", reply)
	}
	if len(h.store.TestDrives()) != 0 {
		t.Error("rejected booking was persisted")
	}
}

func TestBrowseTextPrefillsSlots(t *testing.T) {
	h := newHarness(t, nil)
	sess := models.NewSession("c1")

	h.send(t, sess, "show me suvs from kia under 15 lakh")

	if sess.Type != "SUV" || sess.Brand != "Kia" || sess.Budget != models.Budget10To15 {
		t.Errorf("prefill = budget %q type %q brand %q", sess.Budget, sess.Type, sess.Brand)
	}
}

func TestContactAndAboutMenus(t *testing.T) {
	h := newHarness(t, nil)
	sess := models.NewSession("c1")

	h.send(t, sess, "hi")
	reply := h.send(t, sess, "3")
	if sess.Step != models.StepContactMenu {
		t.Fatalf("step = %q", sess.Step)
	}
	reply = h.send(t, sess, "1")
	if !strings.Contains(reply.Message, "+91-9876543210") {
		t.Errorf("call us reply = %q", reply.Message)
	}
	h.send(t, sess, "Main Menu")
	if sess.Step != models.StepMainMenu {
		t.Errorf("step = %q after Main Menu", sess.Step)
	}

	h.send(t, sess, models.OptionAboutUs)
	if sess.Step != models.StepAboutMenu {
		t.Fatalf("step = %q", sess.Step)
	}
	reply = h.send(t, sess, "Why Choose Us")
	if !strings.Contains(reply.Message, "200+ point inspection") {
		t.Errorf("why choose us = %q", reply.Message)
	}
}
