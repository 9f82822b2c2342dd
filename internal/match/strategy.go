package match

import (
	"fmt"
	"strings"
)

const (
	// NameSubstring selects containment matching of the whole marker value.
	NameSubstring = "substring"
	// NameToken selects exact matching against whitespace separated tokens.
	NameToken = "token"
	// NameWildcard selects '*' pattern matching per marker token.
	NameWildcard = "wildcard"
)

// Strategy decides whether a marker attribute value opts an element into an event.
// Params: marker is the raw attribute value; event is the target event name.
// Returns: true when the element should report the event.
type Strategy func(marker, event string) bool

// Substring reports whether marker contains event anywhere in its text.
// A marker "resubmit" therefore matches "submit"; this mirrors the historical behavior.
// Params: marker attribute value and event name.
// Returns: containment result.
func Substring(marker, event string) bool {
	return strings.Contains(marker, event)
}

// Token reports whether one whitespace separated marker token equals event.
// Params: marker attribute value and event name.
// Returns: exact token match result.
func Token(marker, event string) bool {
	for _, token := range strings.Fields(marker) {
		if token == event {
			return true
		}
	}
	return false
}

// Wildcard reports whether one marker token, read as a '*' pattern, matches event.
// Params: marker attribute value and event name.
// Returns: pattern match result.
func Wildcard(marker, event string) bool {
	for _, token := range strings.Fields(marker) {
		pattern, ok := CompileWildcard(token)
		if ok && pattern.Match(event) {
			return true
		}
	}
	return false
}

// Parse resolves a configured strategy name.
// Params: name is one of substring, token, wildcard; empty selects substring.
// Returns: strategy function or error for unknown names.
func Parse(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameSubstring:
		return Substring, nil
	case NameToken:
		return Token, nil
	case NameWildcard:
		return Wildcard, nil
	default:
		return nil, fmt.Errorf("unsupported match strategy %q", name)
	}
}
