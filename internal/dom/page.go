package dom

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"hitbeacon/internal/tracker"
)

type listener struct {
	options tracker.ListenerOptions
	handler func(tracker.Event)
}

// Page is a parsed HTML document acting as a headless browser host.
// It satisfies tracker.Document and hands out tracker.Node values for its elements.
// Page is not safe for concurrent use, like the single UI thread it stands in for.
type Page struct {
	doc       *html.Node
	location  *url.URL
	base      *url.URL
	title     string
	userAgent string
	listeners map[tracker.EventKind][]listener
	wrapped   map[*html.Node]tracker.Node
}

// Parse reads an HTML document served from pageURL.
// Params: content HTML source; pageURL absolute document URL; userAgent reported in hits.
// Returns: page or parse error.
func Parse(content io.Reader, pageURL, userAgent string) (*Page, error) {
	location, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url %q: %w", pageURL, err)
	}
	if !location.IsAbs() {
		return nil, fmt.Errorf("page url %q must be absolute", pageURL)
	}

	doc, err := html.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	p := &Page{
		doc:       doc,
		location:  location,
		base:      location,
		userAgent: userAgent,
		listeners: make(map[tracker.EventKind][]listener),
		wrapped:   make(map[*html.Node]tracker.Node),
	}
	p.scanHead()
	return p, nil
}

// scanHead picks up the document title and the first <base href>.
func (p *Page) scanHead() {
	var titleFound, baseFound bool
	walkElements(p.doc, func(n *html.Node) bool {
		if n.Namespace != "" {
			return true
		}
		switch n.DataAtom {
		case atom.Title:
			if !titleFound {
				p.title = strings.Join(strings.Fields(textContent(n)), " ")
				titleFound = true
			}
		case atom.Base:
			if href, ok := getAttr(n, "href"); ok && !baseFound {
				if resolved, err := p.location.Parse(href); err == nil {
					p.base = resolved
				}
				baseFound = true
			}
		}
		return !(titleFound && baseFound)
	})
}

// URL returns the document URL.
func (p *Page) URL() string { return p.location.String() }

// Title returns the whitespace-collapsed <title> text.
func (p *Page) Title() string { return p.title }

// UserAgent returns the configured user agent.
func (p *Page) UserAgent() string { return p.userAgent }

// AddEventListener registers a document-level listener.
func (p *Page) AddEventListener(kind tracker.EventKind, options tracker.ListenerOptions, handler func(tracker.Event)) {
	p.listeners[kind] = append(p.listeners[kind], listener{options: options, handler: handler})
}

// Dispatch delivers an event for target to document listeners; capture listeners run first.
// Passive listeners cannot cancel anything here since events carry no default action.
// Params: kind event category; target element the event originates from.
// Returns: number of listeners invoked.
func (p *Page) Dispatch(kind tracker.EventKind, target tracker.Node) int {
	event := tracker.Event{Kind: kind, Target: target}
	invoked := 0
	for _, capture := range []bool{true, false} {
		for _, l := range p.listeners[kind] {
			if l.options.Capture != capture {
				continue
			}
			l.handler(event)
			invoked++
		}
	}
	return invoked
}

// Click dispatches a click on target.
func (p *Page) Click(target tracker.Node) int {
	return p.Dispatch(tracker.EventClick, target)
}

// Submit dispatches a submit on target.
func (p *Page) Submit(target tracker.Node) int {
	return p.Dispatch(tracker.EventSubmit, target)
}

// DocumentElement returns the root <html> element.
func (p *Page) DocumentElement() tracker.Node {
	for c := p.doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return p.wrap(c)
		}
	}
	return nil
}

// Find returns the first element matching selector: "#id", "tag" or "tag#id".
// Params: selector in one of the supported forms.
// Returns: element and true, or false when nothing matches.
func (p *Page) Find(selector string) (tracker.Node, bool) {
	tag, id, _ := strings.Cut(strings.TrimSpace(selector), "#")
	tag = strings.ToLower(tag)
	if tag == "" && id == "" {
		return nil, false
	}

	var found *html.Node
	walkElements(p.doc, func(n *html.Node) bool {
		if tag != "" && n.Data != tag {
			return true
		}
		if id != "" {
			if value, _ := getAttr(n, "id"); value != id {
				return true
			}
		}
		found = n
		return false
	})
	if found == nil {
		return nil, false
	}
	return p.wrap(found), true
}

// wrap returns the stable tracker.Node for an element, typed by its HTML interface.
func (p *Page) wrap(n *html.Node) tracker.Node {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	if node, ok := p.wrapped[n]; ok {
		return node
	}

	elem := &Element{page: p, node: n}
	var node tracker.Node = elem
	if n.Namespace == "" {
		switch n.DataAtom {
		case atom.Form:
			node = &Form{Element: elem}
		case atom.A:
			node = &Anchor{Element: elem}
		}
	}
	p.wrapped[n] = node
	return node
}

// resolve resolves ref against the document base URL.
// Params: ref raw URL attribute value.
// Returns: absolute URL, or ref unchanged when it cannot be parsed.
func (p *Page) resolve(ref string) string {
	resolved, err := p.base.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return resolved.String()
}

// walkElements visits element nodes depth-first until visit returns false.
func walkElements(root *html.Node, visit func(*html.Node) bool) {
	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type == html.ElementNode && !visit(n) {
			return
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
}

func textContent(n *html.Node) string {
	var builder strings.Builder
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.TextNode {
			builder.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return builder.String()
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
