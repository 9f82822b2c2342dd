package dom

import (
	"strings"

	"golang.org/x/net/html"

	"hitbeacon/internal/tracker"
)

// Element is an element node of a Page.
type Element struct {
	page *Page
	node *html.Node
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string { return e.node.Data }

// ID returns the id attribute.
func (e *Element) ID() string {
	value, _ := getAttr(e.node, "id")
	return value
}

// Attribute returns the value of attribute name.
func (e *Element) Attribute(name string) (string, bool) {
	return getAttr(e.node, strings.ToLower(name))
}

// Attributes returns the element attributes in document order.
func (e *Element) Attributes() []tracker.Attribute {
	attrs := make([]tracker.Attribute, 0, len(e.node.Attr))
	for _, attr := range e.node.Attr {
		if attr.Namespace != "" {
			continue
		}
		attrs = append(attrs, tracker.Attribute{Name: attr.Key, Value: attr.Val})
	}
	return attrs
}

// Parent returns the parent element, or nil above the document element.
func (e *Element) Parent() tracker.Node {
	parent := e.node.Parent
	if parent == nil || parent.Type != html.ElementNode {
		return nil
	}
	return e.page.wrap(parent)
}

// IsDocumentElement reports whether the element is the root <html> element.
func (e *Element) IsDocumentElement() bool {
	return e.node.Parent != nil && e.node.Parent.Type == html.DocumentNode
}

// Form is an HTML <form> element.
type Form struct {
	*Element
}

// Action returns the absolute submission URL; a missing or empty action is the document URL.
func (f *Form) Action() string {
	action, ok := getAttr(f.node, "action")
	if !ok || strings.TrimSpace(action) == "" {
		return f.page.URL()
	}
	return f.page.resolve(action)
}

// Method returns get, post or dialog; other values read as get.
func (f *Form) Method() string {
	method, _ := getAttr(f.node, "method")
	switch normalized := strings.ToLower(strings.TrimSpace(method)); normalized {
	case "post", "dialog":
		return normalized
	default:
		return "get"
	}
}

// Anchor is an HTML <a> element.
type Anchor struct {
	*Element
}

// Href returns the absolute link target, or "" without an href attribute.
func (a *Anchor) Href() string {
	href, ok := getAttr(a.node, "href")
	if !ok {
		return ""
	}
	return a.page.resolve(href)
}
