package match

import "strings"

// WildcardPattern is a compiled '*' pattern for event names.
// Params: literal segments between stars and anchor flags.
// Returns: reusable matcher.
type WildcardPattern struct {
	segments []string
	prefix   bool
	suffix   bool
	any      bool
}

// CompileWildcard compiles one marker token into a pattern.
// Params: token may contain '*' wildcards, e.g. "form_*".
// Returns: compiled pattern and false for an empty token.
func CompileWildcard(token string) (WildcardPattern, bool) {
	t := strings.TrimSpace(token)
	switch {
	case t == "":
		return WildcardPattern{}, false
	case strings.Trim(t, "*") == "":
		return WildcardPattern{any: true}, true
	}

	return WildcardPattern{
		segments: strings.Split(t, "*"),
		prefix:   !strings.HasPrefix(t, "*"),
		suffix:   !strings.HasSuffix(t, "*"),
	}, true
}

// Match evaluates the pattern against an event name.
// Params: name is the event name.
// Returns: true on match.
func (p WildcardPattern) Match(name string) bool {
	if p.any {
		return true
	}
	if len(p.segments) == 0 {
		return false
	}
	if len(p.segments) == 1 {
		return name == p.segments[0]
	}

	first, last := p.segments[0], p.segments[len(p.segments)-1]
	if p.prefix && !strings.HasPrefix(name, first) {
		return false
	}
	if p.suffix && !strings.HasSuffix(name, last) {
		return false
	}

	rest := name[len(first):]
	end := len(rest)
	if p.suffix {
		end -= len(last)
		if end < 0 {
			return false
		}
	}
	rest = rest[:end]

	for _, segment := range p.segments[1 : len(p.segments)-1] {
		if segment == "" {
			continue
		}
		offset := strings.Index(rest, segment)
		if offset < 0 {
			return false
		}
		rest = rest[offset+len(segment):]
	}
	return true
}
