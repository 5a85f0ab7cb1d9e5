package intent

import "strings"

var comparisonKeywords = []string{
	"compare", "comparison", "vs", "versus", "difference", "better",
	"which is better", "which one", "pros and cons", "confused", "between",
	"these two", "both", "compare them",
	"fuel efficiency", "mileage", "price", "features", "safety",
	"performance", "maintenance", "resale value",
}

var suggestionKeywords = []string{
	"suggest", "recommend", "recommendation", "advice", "help me choose",
	"what should i buy", "which car", "best car", "good car", "nice car",
	"show me", "find me", "look for", "search for", "i need",
	"family car", "first car", "budget car", "luxury car", "sporty car",
	"economical", "fuel efficient", "automatic", "manual", "diesel", "petrol",
}

var greetingWords = map[string]bool{
	"hi": true, "hello": true, "hey": true, "hy": true, "start": true,
	"begin": true, "restart": true, "menu": true, "main": true,
}

var browseKeywords = []string{"browse", "buy", "look", "see", "show", "find", "car"}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsComparisonRequest reports whether text asks to compare cars.
func IsComparisonRequest(text string) bool { return containsAny(text, comparisonKeywords) }

// IsSuggestionRequest reports whether text asks for recommendations.
func IsSuggestionRequest(text string) bool { return containsAny(text, suggestionKeywords) }

// IsGreeting reports whether text is exactly a greeting word.
func IsGreeting(text string) bool {
	return greetingWords[strings.ToLower(strings.TrimSpace(text))]
}

// IsBrowseRequest reports whether text mentions browsing for cars.
func IsBrowseRequest(text string) bool { return containsAny(text, browseKeywords) }
