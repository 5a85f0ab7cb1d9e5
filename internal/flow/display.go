package flow

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/util"
)

// PageSize is how many cars are shown per page.
const PageSize = 3

// Labels used while paging through cars.
const (
	SelectLabel       = "SELECT"
	NoMoreCarsSuffix  = "\n\nNo more cars available."
	NoCarsToDisplay   = "No more cars to display."
	CarsExhaustedText = "No more cars available. Would you like to change your criteria?"
)

// Caption is the text shown with a car card.
func Caption(c models.Car) string {
	return fmt.Sprintf("🚗 %s\n📅 Year: %d\n⛽ Fuel: %s\n💰 Price: %s", c.DisplayName(), c.Year, c.FuelType, util.FormatINR(c.Price))
}

// ImageURL resolves a car image path against the media base URL. Relative
// paths without a base cannot be sent and yield "".
func ImageURL(path, base string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if base == "" {
		return ""
	}
	joined, err := url.JoinPath(base, strings.TrimPrefix(path, "/"))
	if err != nil {
		return ""
	}
	return joined
}

// RenderPage shows the page of filteredCars starting at carIndex and moves
// the session to show_more_cars.
func RenderPage(sess *models.Session, mediaBase string) *models.Reply {
	cars := sess.FilteredCars
	if len(cars) == 0 {
		return models.NewReply(sess.Step, NoCarsToDisplay, models.OptionChangeCriteria)
	}
	start := sess.CarIndex
	if start < 0 || start >= len(cars) {
		start = 0
		sess.CarIndex = 0
	}
	end := min(start+PageSize, len(cars))

	reply := &models.Reply{Message: fmt.Sprintf("Showing cars %d-%d of %d:", start+1, end, len(cars))}
	for _, c := range cars[start:end] {
		caption := Caption(c)
		if u := ImageURL(c.ImageURL, mediaBase); u != "" {
			reply.Messages = append(reply.Messages, models.OutboundMessage{Kind: models.MessageImage, URL: u, Caption: caption})
		} else {
			reply.Messages = append(reply.Messages, models.OutboundMessage{Kind: models.MessageText, Body: caption})
		}
		reply.Messages = append(reply.Messages, models.OutboundMessage{
			Kind:  models.MessageButton,
			Body:  SelectLabel,
			ID:    c.SelectionID(),
			Label: SelectLabel,
		})
	}

	if end < len(cars) {
		reply.Options = []string{models.OptionBrowseMoreCars}
	} else {
		reply.Message += NoMoreCarsSuffix
		reply.Options = []string{models.OptionChangeCriteria}
	}
	sess.Step = models.StepShowMoreCars
	reply.NextStep = sess.Step
	return reply
}

// FindBySelectionID returns the car whose SELECT button carries id.
func FindBySelectionID(cars []models.Car, id string) (models.Car, bool) {
	for _, c := range cars {
		if c.SelectionID() == id {
			return c, true
		}
	}
	return models.Car{}, false
}
