package tracker

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultMarkerAttribute = "data-report"
	DefaultNameAttribute   = "data-report-name"
	DefaultFieldPrefix     = "data-report-"
)

// AttributeSpec is the declarative attribute contract before validation.
// Aliases map raw attribute names to output field names and win over the
// dataset naming convention.
type AttributeSpec struct {
	Marker      string
	Name        string
	FieldPrefix string
	Aliases     map[string]string
}

// AttributeScheme is a validated AttributeSpec.
type AttributeScheme struct {
	marker  string
	name    string
	prefix  string
	aliases map[string]string
}

// DefaultAttributeScheme returns the data-report attribute contract.
func DefaultAttributeScheme() *AttributeScheme {
	scheme, err := NewAttributeScheme(AttributeSpec{})
	if err != nil {
		panic(err)
	}
	return scheme
}

// NewAttributeScheme validates the attribute contract once; empty fields take the data-report defaults.
// Params: spec attribute names and aliases.
// Returns: compiled scheme or ErrConfiguration describing the invalid entry.
func NewAttributeScheme(spec AttributeSpec) (*AttributeScheme, error) {
	scheme := &AttributeScheme{
		marker:  attrOrDefault(spec.Marker, DefaultMarkerAttribute),
		name:    attrOrDefault(spec.Name, DefaultNameAttribute),
		prefix:  attrOrDefault(spec.FieldPrefix, DefaultFieldPrefix),
		aliases: make(map[string]string, len(spec.Aliases)),
	}

	if scheme.marker == scheme.name {
		return nil, fmt.Errorf("%w: marker and name attributes must differ", ErrConfiguration)
	}
	if strings.HasPrefix(scheme.marker, scheme.prefix) {
		return nil, fmt.Errorf("%w: marker %q must not carry the field prefix %q", ErrConfiguration, scheme.marker, scheme.prefix)
	}

	seen := make(map[string]string, len(spec.Aliases))
	for raw, field := range spec.Aliases {
		attr := strings.ToLower(strings.TrimSpace(raw))
		field = strings.TrimSpace(field)
		switch {
		case !strings.HasPrefix(attr, scheme.prefix) || attr == scheme.prefix:
			return nil, fmt.Errorf("%w: alias %q must start with %q", ErrConfiguration, raw, scheme.prefix)
		case field == "":
			return nil, fmt.Errorf("%w: alias %q has an empty field name", ErrConfiguration, raw)
		}
		if other, dup := seen[field]; dup && other != attr {
			return nil, fmt.Errorf("%w: field %q is aliased by both %q and %q", ErrConfiguration, field, other, attr)
		}
		seen[field] = attr
		scheme.aliases[attr] = field
	}
	return scheme, nil
}

// Marker returns the opt-in attribute name.
func (s *AttributeScheme) Marker() string { return s.marker }

// Name returns the hit type override attribute name.
func (s *AttributeScheme) Name() string { return s.name }

// FieldName maps a raw attribute name to its custom field name.
// Unaliased attributes follow the dataset convention: the prefix is dropped and
// each "-x" becomes "X", so data-report-label-text yields labelText.
// Params: attr raw attribute name.
// Returns: field name and false for the marker or non-field attributes.
func (s *AttributeScheme) FieldName(attr string) (string, bool) {
	attr = strings.ToLower(attr)
	if attr == s.marker || !strings.HasPrefix(attr, s.prefix) {
		return "", false
	}
	if field, ok := s.aliases[attr]; ok {
		return field, true
	}

	rest := attr[len(s.prefix):]
	if rest == "" || !isLowerASCII(rest[0]) {
		return "", false
	}

	title := cases.Title(language.Und)
	segments := strings.Split(rest, "-")
	var builder strings.Builder
	builder.WriteString(segments[0])
	for _, segment := range segments[1:] {
		if segment != "" && isLowerASCII(segment[0]) {
			builder.WriteString(title.String(segment[:1]))
			builder.WriteString(segment[1:])
			continue
		}
		builder.WriteByte('-')
		builder.WriteString(segment)
	}
	return builder.String(), true
}

func attrOrDefault(value, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return fallback
	}
	return normalized
}

func isLowerASCII(b byte) bool {
	return b >= 'a' && b <= 'z'
}
