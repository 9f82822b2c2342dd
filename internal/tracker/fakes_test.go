package tracker

import (
	"errors"
	"net/url"
	"sync"
)

type fakeNode struct {
	attrs   []Attribute
	parent  *fakeNode
	docElem bool
}

func (n *fakeNode) Attribute(name string) (string, bool) {
	for _, attr := range n.attrs {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

func (n *fakeNode) Attributes() []Attribute { return n.attrs }

func (n *fakeNode) Parent() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *fakeNode) IsDocumentElement() bool { return n.docElem }

type fakeForm struct {
	fakeNode
	action string
	id     string
	method string
}

func (f *fakeForm) Action() string { return f.action }
func (f *fakeForm) ID() string     { return f.id }
func (f *fakeForm) Method() string { return f.method }

type fakeAnchor struct {
	fakeNode
	href string
	id   string
}

func (a *fakeAnchor) Href() string { return a.href }
func (a *fakeAnchor) ID() string   { return a.id }

func el(parent *fakeNode, attrs ...string) *fakeNode {
	node := &fakeNode{parent: parent}
	for i := 0; i+1 < len(attrs); i += 2 {
		node.attrs = append(node.attrs, Attribute{Name: attrs[i], Value: attrs[i+1]})
	}
	return node
}

type registration struct {
	kind    EventKind
	options ListenerOptions
	handler func(Event)
}

type fakeDocument struct {
	url       string
	title     string
	userAgent string
	listeners []registration
}

func newFakeDocument() *fakeDocument {
	return &fakeDocument{
		url:       "https://shop.example/landing?x=1",
		title:     "Landing Page",
		userAgent: "TestAgent/1.0",
	}
}

func (d *fakeDocument) URL() string       { return d.url }
func (d *fakeDocument) Title() string     { return d.title }
func (d *fakeDocument) UserAgent() string { return d.userAgent }

func (d *fakeDocument) AddEventListener(kind EventKind, options ListenerOptions, handler func(Event)) {
	d.listeners = append(d.listeners, registration{kind: kind, options: options, handler: handler})
}

func (d *fakeDocument) dispatch(kind EventKind, target Node) {
	for _, listener := range d.listeners {
		if listener.kind == kind {
			listener.handler(Event{Kind: kind, Target: target})
		}
	}
}

type memoryStorage struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
	sets   int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{values: make(map[string]string)}
}

func (s *memoryStorage) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *memoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.sets++
	s.values[key] = value
	return nil
}

type brokenStorage struct{}

func (brokenStorage) Get(string) (string, bool, error) { return "", false, errors.New("storage unavailable") }
func (brokenStorage) Set(string, string) error         { return errors.New("storage unavailable") }

type recordingBeacon struct {
	urls []string
}

func (b *recordingBeacon) Send(target string) {
	b.urls = append(b.urls, target)
}

// query parses the i-th sent URL query.
func (b *recordingBeacon) query(i int) url.Values {
	parsed, err := url.Parse(b.urls[i])
	if err != nil {
		return nil
	}
	return parsed.Query()
}
