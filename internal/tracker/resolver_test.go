package tracker

import (
	"testing"

	"hitbeacon/internal/match"
)

func TestResolverFindsOutermostAnnotatedAncestor(t *testing.T) {
	root := &fakeNode{docElem: true}
	body := el(root)
	outer := el(body, "data-report", "click")
	middle := el(outer)
	inner := el(middle)
	sibling := el(body)

	resolver := NewResolver(nil, nil)

	if got := resolver.Resolve(inner, "click"); got != Node(outer) {
		t.Fatalf("click on innermost node: got=%v want outer", got)
	}
	if got := resolver.Resolve(outer, "click"); got != Node(outer) {
		t.Fatalf("click on annotated node: got=%v want outer", got)
	}
	if got := resolver.Resolve(sibling, "click"); got != nil {
		t.Fatalf("click outside subtree: got=%v want nil", got)
	}
	if got := resolver.Resolve(inner, "submit"); got != nil {
		t.Fatalf("other event name: got=%v want nil", got)
	}
}

func TestResolverNeverReturnsDocumentElement(t *testing.T) {
	root := &fakeNode{docElem: true, attrs: []Attribute{{Name: "data-report", Value: "click"}}}
	child := el(root)

	resolver := NewResolver(nil, nil)
	if got := resolver.Resolve(child, "click"); got != nil {
		t.Fatalf("expected no match at document element, got=%v", got)
	}
	if got := resolver.Resolve(root, "click"); got != nil {
		t.Fatalf("expected no match starting at document element, got=%v", got)
	}
	if got := resolver.Resolve(nil, "click"); got != nil {
		t.Fatalf("expected no match for nil start, got=%v", got)
	}
}

func TestResolverDetachedChainEnds(t *testing.T) {
	detached := el(nil)
	child := el(detached)

	if got := NewResolver(nil, nil).Resolve(child, "click"); got != nil {
		t.Fatalf("expected nil for detached chain, got=%v", got)
	}
}

func TestResolverMatchStrategy(t *testing.T) {
	root := &fakeNode{docElem: true}
	form := el(root, "data-report", "resubmit")

	if NewResolver(nil, match.Substring).Resolve(form, "submit") == nil {
		t.Fatalf("substring strategy should match inside a word")
	}
	if NewResolver(nil, match.Token).Resolve(form, "submit") != nil {
		t.Fatalf("token strategy should not match inside a word")
	}
}

func TestResolverCustomMarker(t *testing.T) {
	scheme, err := NewAttributeScheme(AttributeSpec{Marker: "data-track", Name: "data-track-name", FieldPrefix: "data-track-"})
	if err != nil {
		t.Fatalf("NewAttributeScheme() error: %v", err)
	}
	root := &fakeNode{docElem: true}
	legacy := el(root, "data-report", "click")
	tracked := el(root, "data-track", "click")

	resolver := NewResolver(scheme, nil)
	if resolver.Resolve(legacy, "click") != nil {
		t.Fatalf("default marker must be ignored with a custom scheme")
	}
	if resolver.Resolve(tracked, "click") == nil {
		t.Fatalf("custom marker must match")
	}
}
