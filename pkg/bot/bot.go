// Package bot classifies user-agent strings as automated or human traffic.
package bot

import (
	"regexp"
	"strings"
)

// Names assigned when an agent matches a search-engine keyword but carries
// no extractable "<word>bot" token.
const (
	NameGoogle  = "Googlebot"
	NameBing    = "Bingbot"
	NameYahoo   = "Yahoo Slurp"
	NameUnknown = "Unknown Bot"
)

// Keywords are the lowercase substrings that mark an agent as automated.
var Keywords = []string{
	// crawlers and fetchers
	"bot", "crawler", "spider", "scraper", "feed", "crawl",
	// search engines
	"google", "bing", "yahoo", "baidu", "yandex", "duckduck",
	"slurp", "teoma", "ask jeeves",
	// http clients and scanners
	"curl", "wget", "python-requests", "java", "httpclient", "apache-httpclient",
	"php", "ruby", "go-http", "node-fetch", "okhttp", "libwww",
	"zgrab", "panscient", "nmap",
}

var namePattern = regexp.MustCompile(`(?i)(\w+bot/\d+\.\d+|\w+bot)`)

// Verdict is the result of classifying one user agent.
type Verdict struct {
	IsBot bool   `json:"is_bot"`
	Name  string `json:"name,omitempty"` // empty when no name could be derived
}

// Classify reports whether ua belongs to an automated client and, if so,
// tries to name it. Empty and "-" agents are never bots.
func Classify(ua string) Verdict {
	if ua == "" || ua == "-" {
		return Verdict{}
	}

	lower := strings.ToLower(ua)
	if !containsAny(lower, Keywords) {
		return Verdict{}
	}

	return Verdict{IsBot: true, Name: name(ua, lower)}
}

// IsBot is shorthand for Classify(ua).IsBot.
func IsBot(ua string) bool {
	return Classify(ua).IsBot
}

// name applies the naming branches in priority order; only the first
// matching branch is used.
func name(ua, lower string) string {
	switch {
	case strings.Contains(lower, "bot"):
		if m := namePattern.FindStringSubmatch(ua); m != nil {
			return m[1]
		}
		return ""
	case strings.Contains(lower, "google"):
		return NameGoogle
	case strings.Contains(lower, "bing"):
		return NameBing
	case strings.Contains(lower, "yahoo"):
		return NameYahoo
	default:
		return NameUnknown
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
