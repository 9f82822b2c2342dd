package tracker

// Attribute is one name/value pair read off a tree node.
type Attribute struct {
	Name  string
	Value string
}

// Node is the read-only tree capability the resolver and extractor need.
// Implementations return a nil Node from Parent when the chain ends.
type Node interface {
	Attribute(name string) (string, bool)
	Attributes() []Attribute
	Parent() Node
	IsDocumentElement() bool
}

// FormElement is a node backed by a form; values follow the DOM property semantics
// (absolute action URL, lower-case method).
type FormElement interface {
	Node
	Action() string
	ID() string
	Method() string
}

// AnchorElement is a node backed by an anchor; Href is absolute.
type AnchorElement interface {
	Node
	Href() string
	ID() string
}

// EventKind names a document event category.
type EventKind string

const (
	EventClick  EventKind = "click"
	EventSubmit EventKind = "submit"
)

// Event is one dispatched document event.
type Event struct {
	Kind   EventKind
	Target Node
}

// ListenerOptions mirrors addEventListener options.
type ListenerOptions struct {
	Capture bool
	Passive bool
}

// Document exposes the page state read when composing hits and the listener hook.
type Document interface {
	URL() string
	Title() string
	UserAgent() string
	AddEventListener(kind EventKind, options ListenerOptions, handler func(Event))
}

// Storage is a tab-scoped key/value store. Get returns ok=false for a missing key.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Beacon is a best-effort, non-blocking delivery primitive.
// Send never reports an outcome to the caller.
type Beacon interface {
	Send(url string)
}

// Host bundles the environment a tracker is installed into.
type Host struct {
	Document Document
	Storage  Storage
	Beacon   Beacon
}
