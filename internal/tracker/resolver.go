package tracker

import "hitbeacon/internal/match"

// DefaultMaxDepth bounds the ancestor walk on malformed trees.
const DefaultMaxDepth = 4096

// Resolver finds the nearest ancestor opted into reporting for an event name.
type Resolver struct {
	scheme   *AttributeScheme
	match    match.Strategy
	maxDepth int
}

// NewResolver creates a resolver.
// Params: scheme names the marker attribute; strategy compares marker values (nil selects substring).
// Returns: resolver.
func NewResolver(scheme *AttributeScheme, strategy match.Strategy) *Resolver {
	if scheme == nil {
		scheme = DefaultAttributeScheme()
	}
	if strategy == nil {
		strategy = match.Substring
	}
	return &Resolver{scheme: scheme, match: strategy, maxDepth: DefaultMaxDepth}
}

// Resolve walks from start through its parents and returns the first node whose
// marker matches event. The document element is never returned, even when it
// carries a marker.
// Params: start original event target; event name to match.
// Returns: matching node or nil.
func (r *Resolver) Resolve(start Node, event string) Node {
	node := start
	for depth := 0; node != nil && depth < r.maxDepth; depth++ {
		if node.IsDocumentElement() {
			return nil
		}
		if r.Matches(node, event) {
			return node
		}
		node = node.Parent()
	}
	return nil
}

// Matches reports whether node itself carries a marker matching event.
// Params: node to test; event name.
// Returns: match result.
func (r *Resolver) Matches(node Node, event string) bool {
	marker, ok := node.Attribute(r.scheme.Marker())
	return ok && r.match(marker, event)
}
