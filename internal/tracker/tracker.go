package tracker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hitbeacon/internal/match"
)

// Option customizes a Tracker.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	scheme     *AttributeScheme
	strategy   match.Strategy
	now        func() time.Time
	newID      IDGenerator
	registerer prometheus.Registerer
}

// WithLogger sets the logger for diagnostics and debug hit output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithAttributeScheme sets the attribute contract.
func WithAttributeScheme(scheme *AttributeScheme) Option {
	return func(o *options) { o.scheme = scheme }
}

// WithMatchStrategy sets how marker values are compared to event names.
func WithMatchStrategy(strategy match.Strategy) Option {
	return func(o *options) { o.strategy = strategy }
}

// WithClock sets the clock used for hit timestamps and timestamp session ids.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSessionIDs sets the session id generator.
func WithSessionIDs(newID IDGenerator) Option {
	return func(o *options) { o.newID = newID }
}

// WithRegisterer enables the hitbeacon_hits_total counter on registerer.
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(o *options) { o.registerer = registerer }
}

// Tracker installs document listeners and turns annotated clicks and submits into hits.
// Once constructed it stays active for the lifetime of the document.
type Tracker struct {
	config    *ConfigStore
	session   *SessionStore
	resolver  *Resolver
	extractor *Extractor
	builder   *Builder
	transport *Transport
	scheme    *AttributeScheme
	logger    *slog.Logger
	hits      *prometheus.CounterVec
}

// New installs settings, registers capturing passive click/submit listeners on
// the document and bootstraps the session: page_view when a session id already
// exists, otherwise a new id and first_visit.
// Params: host environment; settings initial configuration; opts optional behavior.
// Returns: active tracker or ErrConfiguration.
func New(host Host, settings Settings, opts ...Option) (*Tracker, error) {
	if host.Document == nil || host.Storage == nil || host.Beacon == nil {
		return nil, fmt.Errorf("%w: host requires document, storage and beacon", ErrConfiguration)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.scheme == nil {
		o.scheme = DefaultAttributeScheme()
	}
	if o.newID == nil {
		o.newID = TimestampIDs(o.now)
	}

	hits, err := registerHitsCounter(o.registerer)
	if err != nil {
		return nil, err
	}

	t := &Tracker{
		config:    &ConfigStore{},
		session:   NewSessionStore(host.Storage, o.newID, o.logger),
		resolver:  NewResolver(o.scheme, o.strategy),
		extractor: NewExtractor(o.scheme),
		builder:   NewBuilder(host.Document, o.now, o.logger),
		transport: NewTransport(host.Beacon, o.logger),
		scheme:    o.scheme,
		logger:    o.logger,
		hits:      hits,
	}
	if err := t.config.Install(settings); err != nil {
		return nil, err
	}

	listener := ListenerOptions{Capture: true, Passive: true}
	host.Document.AddEventListener(EventClick, listener, t.handleClick)
	host.Document.AddEventListener(EventSubmit, listener, t.handleSubmit)

	if err := t.bootstrap(); err != nil {
		return nil, err
	}
	return t, nil
}

// bootstrap sends the visit hit for this session.
// Params: none.
// Returns: send error.
func (t *Tracker) bootstrap() error {
	if t.session.Get() != "" {
		return t.Send(ReportEvent{HitType: HitPageView})
	}
	if _, err := t.session.Ensure(); err != nil {
		t.logger.Warn("session id not persisted", slog.String("error", err.Error()))
	}
	return t.Send(ReportEvent{HitType: HitFirstVisit})
}

// Send builds one hit from event and fires it. Delivery is never confirmed.
// Params: event hit data.
// Returns: ErrUninitialized when the tracker holds no settings.
func (t *Tracker) Send(event ReportEvent) error {
	if t == nil || t.config == nil {
		return fmt.Errorf("send: %w", ErrUninitialized)
	}
	settings, err := t.config.Read()
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	search := t.builder.Build(event, settings, t.session.Get())
	t.transport.Dispatch(settings.Server, search)
	if t.hits != nil {
		t.hits.WithLabelValues(event.HitType).Inc()
	}
	return nil
}

// Update merges partial over the active settings.
// Params: partial fields to overwrite.
// Returns: ErrUninitialized or ErrConfiguration.
func (t *Tracker) Update(partial Partial) error {
	if t == nil || t.config == nil {
		return fmt.Errorf("update: %w", ErrUninitialized)
	}
	return t.config.Update(partial)
}

// Config returns a copy of the active settings.
// Params: none.
// Returns: settings or ErrUninitialized.
func (t *Tracker) Config() (Settings, error) {
	if t == nil || t.config == nil {
		return Settings{}, fmt.Errorf("config: %w", ErrUninitialized)
	}
	return t.config.Read()
}

// SessionID returns the current session id.
func (t *Tracker) SessionID() string {
	if t == nil || t.session == nil {
		return ""
	}
	return t.session.Get()
}

func (t *Tracker) handleClick(event Event) {
	elem := t.resolver.Resolve(event.Target, string(EventClick))
	if elem == nil {
		return
	}
	t.report(elem, HitClick)
}

func (t *Tracker) handleSubmit(event Event) {
	form, ok := event.Target.(FormElement)
	if !ok || !t.resolver.Matches(form, string(EventSubmit)) {
		return
	}
	t.report(form, HitSubmit)
}

// report sends a hit for a resolved element; the name attribute overrides fallback.
// Params: elem resolved element; fallback hit type.
// Returns: none.
func (t *Tracker) report(elem Node, fallback string) {
	hitType := fallback
	if name, ok := elem.Attribute(t.scheme.Name()); ok && name != "" {
		hitType = name
	}

	err := t.Send(ReportEvent{
		HitType:      hitType,
		CustomFields: t.extractor.Extract(elem),
	})
	if err != nil {
		t.logger.Warn("hit not sent", slog.String("hit_type", hitType), slog.String("error", err.Error()))
	}
}

// registerHitsCounter creates the hit counter on registerer, reusing an existing one.
// Params: registerer may be nil to disable counting.
// Returns: counter or registration error.
func registerHitsCounter(registerer prometheus.Registerer) (*prometheus.CounterVec, error) {
	if registerer == nil {
		return nil, nil
	}
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hitbeacon",
		Name:      "hits_total",
		Help:      "Hits handed to the transport, by hit type",
	}, []string{"hit_type"})

	if err := registerer.Register(hits); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register hits counter: %w", err)
	}
	return hits, nil
}
