package core

import (
	"net/url"
	"strings"

	"pkt.systems/ayen/schema"
)

var urlMarkers = []string{"http://", "https://", ".com", ".in", ".org", ".net"}

var searchTemplates = map[schema.SearchEngine]string{
	schema.SearchEngineAyen:       "https://ayen.in/?q=",
	schema.SearchEngineGoogle:     "https://www.google.com/search?q=",
	schema.SearchEngineDuckDuckGo: "https://duckduckgo.com/?q=",
}

// Resolution is the navigation target derived from address bar input.
type Resolution struct {
	URL      string
	IsSearch bool
}

// ResolveInput turns address bar input into a URL. Input containing a scheme
// or one of the known domain suffixes is treated as an address; anything
// else becomes a query for the given search engine.
func ResolveInput(input string, engine schema.SearchEngine) Resolution {
	trimmed := strings.TrimSpace(input)
	if looksLikeURL(trimmed) {
		if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
			return Resolution{URL: trimmed}
		}
		return Resolution{URL: "https://" + trimmed}
	}
	template, ok := searchTemplates[engine]
	if !ok {
		template = searchTemplates[schema.SearchEngineAyen]
	}
	return Resolution{URL: template + encodeQueryComponent(trimmed), IsSearch: true}
}

func looksLikeURL(input string) bool {
	for _, marker := range urlMarkers {
		if strings.Contains(input, marker) {
			return true
		}
	}
	return false
}

// encodeQueryComponent escapes s the way browsers' encodeURIComponent does:
// unreserved marks stay literal and spaces become %20.
func encodeQueryComponent(s string) string {
	escaped := url.QueryEscape(s)
	var b strings.Builder
	b.Grow(len(escaped))
	for i := 0; i < len(escaped); i++ {
		c := escaped[i]
		if c == '+' {
			b.WriteString("%20")
			continue
		}
		if c == '%' && i+2 < len(escaped) {
			if mark, ok := literalMarks[escaped[i+1:i+3]]; ok {
				b.WriteByte(mark)
				i += 2
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

var literalMarks = map[string]byte{
	"21": '!',
	"27": '\'',
	"28": '(',
	"29": ')',
	"2A": '*',
}
