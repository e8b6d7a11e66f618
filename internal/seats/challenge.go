package seats

import "strings"

// challengeMarkers are visible-text fragments of the anti-automation
// interstitials observed in front of the partner's seat maps. The
// proof-of-work screen keeps these on screen until the browser passes.
var challengeMarkers = []string{
	"making sure you're not a bot",
	"checking you're not a bot",
	"checking your browser",
	"verifying your browser",
	"proof-of-work",
	"proof of work",
	"anubis",
	"ddos protection",
	"именно вы, а не робот",
	"проверяем ваш браузер",
}

// HasChallengeMarkers reports whether the visible page text still shows an
// anti-automation challenge.
func HasChallengeMarkers(visibleText string) bool {
	if visibleText == "" {
		return false
	}
	lower := strings.ToLower(visibleText)
	for _, m := range challengeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
