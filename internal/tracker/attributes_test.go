package tracker

import (
	"errors"
	"testing"
)

func TestAttributeSchemeFieldName(t *testing.T) {
	scheme := DefaultAttributeScheme()

	cases := []struct {
		attr string
		want string
		ok   bool
	}{
		{attr: "data-report-label", want: "label", ok: true},
		{attr: "data-report-label-text", want: "labelText", ok: true},
		{attr: "data-report-Label", want: "label", ok: true},
		{attr: "data-report-name", want: "name", ok: true},
		{attr: "data-report-item-2x", want: "item-2x", ok: true},
		{attr: "data-report", ok: false},
		{attr: "data-report-", ok: false},
		{attr: "data-report-9lives", ok: false},
		{attr: "data-other", ok: false},
		{attr: "class", ok: false},
	}

	for _, tc := range cases {
		got, ok := scheme.FieldName(tc.attr)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("FieldName(%q): got=(%q,%v) want=(%q,%v)", tc.attr, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAttributeSchemeAliases(t *testing.T) {
	scheme, err := NewAttributeScheme(AttributeSpec{
		Aliases: map[string]string{"data-report-cta": "callToAction"},
	})
	if err != nil {
		t.Fatalf("NewAttributeScheme() error: %v", err)
	}

	if got, ok := scheme.FieldName("data-report-cta"); !ok || got != "callToAction" {
		t.Fatalf("alias lookup: got=(%q,%v)", got, ok)
	}
	if got, ok := scheme.FieldName("data-report-label"); !ok || got != "label" {
		t.Fatalf("convention fallback: got=(%q,%v)", got, ok)
	}
}

func TestAttributeSchemeCustomNames(t *testing.T) {
	scheme, err := NewAttributeScheme(AttributeSpec{
		Marker:      "data-track",
		Name:        "data-track-as",
		FieldPrefix: "data-track-",
	})
	if err != nil {
		t.Fatalf("NewAttributeScheme() error: %v", err)
	}
	if scheme.Marker() != "data-track" || scheme.Name() != "data-track-as" {
		t.Fatalf("unexpected scheme names: marker=%q name=%q", scheme.Marker(), scheme.Name())
	}
	if _, ok := scheme.FieldName("data-report-label"); ok {
		t.Fatalf("foreign prefix must not match")
	}
	if got, ok := scheme.FieldName("data-track-slot"); !ok || got != "slot" {
		t.Fatalf("custom prefix: got=(%q,%v)", got, ok)
	}
}

func TestNewAttributeSchemeValidation(t *testing.T) {
	cases := []struct {
		name string
		spec AttributeSpec
	}{
		{name: "marker equals name", spec: AttributeSpec{Marker: "data-x", Name: "data-x"}},
		{name: "marker carries prefix", spec: AttributeSpec{Marker: "data-report-on", FieldPrefix: "data-report-"}},
		{name: "alias without prefix", spec: AttributeSpec{Aliases: map[string]string{"title": "title"}}},
		{name: "alias is bare prefix", spec: AttributeSpec{Aliases: map[string]string{"data-report-": "x"}}},
		{name: "alias empty field", spec: AttributeSpec{Aliases: map[string]string{"data-report-x": " "}}},
		{name: "duplicate field", spec: AttributeSpec{Aliases: map[string]string{"data-report-a": "slot", "data-report-b": "slot"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewAttributeScheme(tc.spec); !errors.Is(err, ErrConfiguration) {
				t.Fatalf("got=%v want ErrConfiguration", err)
			}
		})
	}
}
