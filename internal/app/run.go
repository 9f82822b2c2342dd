package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"hitbeacon/internal/beacon"
	"hitbeacon/internal/config"
	"hitbeacon/internal/dom"
	"hitbeacon/internal/logging"
	"hitbeacon/internal/match"
	"hitbeacon/internal/replay"
	"hitbeacon/internal/storage"
	"hitbeacon/internal/tracker"
)

const (
	drainGrace = time.Second
	blankPage  = "<!doctype html><html><head><title></title></head><body></body></html>"
)

// Runtime defines runtime inputs required to start the tracker.
// Params: ConfigPath TOML file or directory; PagePath optional HTML document; ScriptPath optional
// replay script; Hold keeps the process alive after the script; Reload triggers config re-read.
// Returns: Runtime value used by Run.
type Runtime struct {
	ConfigPath string
	PagePath   string
	ScriptPath string
	Version    string
	Hold       bool
	Reload     <-chan struct{}
}

type beaconSender interface {
	tracker.Beacon
	Close(context.Context) error
}

type runDeps struct {
	loadConfig   func(string) (*config.Config, error)
	newLogger    func(config.LogConfig) (*slog.Logger, func(), error)
	startMetrics func(context.Context, config.MetricsConfig, *prometheus.Registry, *slog.Logger) (func(), error)
	openStorage  func(config.SessionConfig) (tracker.Storage, func() error, error)
	newBeacon    func(config.TransportConfig, *slog.Logger, prometheus.Registerer) (beaconSender, error)
	userAgent    func(context.Context, string) string
}

type activeSession struct {
	cfg          *config.Config
	logger       *slog.Logger
	closeLogger  func()
	stopMetrics  func()
	closeStorage func() error
	beacon       beaconSender
	page         *dom.Page
	tracker      *tracker.Tracker
}

// Run starts one tracked page session, plays the optional script, and either exits or holds with hot reload.
// Params: ctx controls lifecycle; rt provides runtime inputs and optional reload trigger channel.
// Returns: error on startup/script failure, nil on graceful stop.
func Run(ctx context.Context, rt Runtime) error {
	return runWithDeps(ctx, rt, defaultRunDeps())
}

// runWithDeps executes runtime lifecycle using injectable dependencies.
// Params: ctx controls lifecycle; rt runtime inputs; deps start/reload dependencies.
// Returns: runtime error or nil on graceful stop.
func runWithDeps(ctx context.Context, rt Runtime, deps runDeps) error {
	if strings.TrimSpace(rt.ConfigPath) == "" {
		return fmt.Errorf("config path is required")
	}

	session, err := buildSession(ctx, rt, deps)
	if err != nil {
		return err
	}
	defer session.close()

	if strings.TrimSpace(rt.ScriptPath) != "" {
		script, err := replay.Load(rt.ScriptPath)
		if err != nil {
			session.logger.Error("replay script rejected", slog.String("error", err.Error()))
			return fmt.Errorf("load script: %w", err)
		}
		if err := replay.Play(ctx, session.page, session.tracker, script, session.logger); err != nil {
			if ctx.Err() != nil {
				session.logger.Info("hitbeacon stopped", slog.String("reason", ctx.Err().Error()))
				return nil
			}
			session.logger.Error("replay script failed", slog.String("error", err.Error()))
			return fmt.Errorf("play script: %w", err)
		}
		session.logger.Info("replay script finished", slog.Int("events", len(script.Steps)))
	}

	if !rt.Hold {
		return nil
	}

	reloadCh := rt.Reload
	for {
		select {
		case <-ctx.Done():
			session.logger.Info("hitbeacon stopped", slog.String("reason", ctx.Err().Error()))
			return nil
		case _, ok := <-reloadCh:
			if !ok {
				reloadCh = nil
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			_ = session.reload(rt.ConfigPath, deps.loadConfig)
		}
	}
}

// defaultRunDeps provides production runtime dependencies.
// Params: none.
// Returns: dependency set used by Run.
func defaultRunDeps() runDeps {
	return runDeps{
		loadConfig:   config.Load,
		newLogger:    logging.New,
		startMetrics: startMetricsServer,
		openStorage:  openSessionStorage,
		newBeacon: func(cfg config.TransportConfig, logger *slog.Logger, registerer prometheus.Registerer) (beaconSender, error) {
			sender, err := beacon.New(beacon.Options{
				Method:     cfg.Method,
				Timeout:    cfg.Timeout.Duration,
				Logger:     logger,
				Registerer: registerer,
			})
			if err != nil {
				return nil, err
			}
			return sender, nil
		},
		userAgent: dom.DefaultUserAgent,
	}
}

// openSessionStorage opens the configured session key space.
// Params: cfg session store settings.
// Returns: storage, close function and open error.
func openSessionStorage(cfg config.SessionConfig) (tracker.Storage, func() error, error) {
	switch cfg.Store {
	case config.SessionStoreSQLite:
		store, err := storage.OpenSQLite(cfg.Path, cfg.Scope)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return storage.NewMemory(), func() error { return nil }, nil
	}
}

// buildSession loads config and wires page, storage, beacon and tracker; the tracker sends its bootstrap hit here.
// Params: ctx root lifecycle context; rt runtime inputs; deps runtime dependency set.
// Returns: active session or startup error with every started component released.
func buildSession(ctx context.Context, rt Runtime, deps runDeps) (*activeSession, error) {
	cfg, err := deps.loadConfig(rt.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, closeLogger, err := deps.newLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	session := &activeSession{cfg: cfg, logger: logger, closeLogger: closeLogger}
	if err := session.start(ctx, rt, deps); err != nil {
		session.close()
		return nil, err
	}

	logStartup(logger, cfg, session)
	return session, nil
}

// start brings up metrics, storage, page, beacon and tracker in order.
// Params: ctx root lifecycle context; rt runtime inputs; deps runtime dependency set.
// Returns: first startup error; started components stay recorded on s for close.
func (s *activeSession) start(ctx context.Context, rt Runtime, deps runDeps) error {
	cfg, logger := s.cfg, s.logger

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var err error
	s.stopMetrics, err = deps.startMetrics(ctx, cfg.Metrics, registry, logger)
	if err != nil {
		return fmt.Errorf("start metrics: %w", err)
	}

	store, closeStorage, err := deps.openStorage(cfg.Session)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	s.closeStorage = closeStorage

	userAgent := strings.TrimSpace(cfg.Page.UserAgent)
	if userAgent == "" {
		userAgent = deps.userAgent(ctx, rt.Version)
	}
	s.page, err = loadPage(rt.PagePath, cfg.Page.URL, userAgent)
	if err != nil {
		return err
	}

	s.beacon, err = deps.newBeacon(cfg.Transport, logger, registry)
	if err != nil {
		return fmt.Errorf("init beacon: %w", err)
	}

	opts, err := trackerOptions(cfg, logger, registry)
	if err != nil {
		return err
	}
	s.tracker, err = tracker.New(
		tracker.Host{Document: s.page, Storage: store, Beacon: s.beacon},
		settingsFromConfig(cfg.App),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("start tracker: %w", err)
	}

	return nil
}

// loadPage parses the document the tracker observes.
// Params: path optional HTML file (empty selects a blank page); pageURL document location; userAgent reported UA.
// Returns: parsed page or read/parse error.
func loadPage(path, pageURL, userAgent string) (*dom.Page, error) {
	var content io.Reader = strings.NewReader(blankPage)
	if strings.TrimSpace(path) != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open page: %w", err)
		}
		defer file.Close()
		content = file
	}

	page, err := dom.Parse(content, pageURL, userAgent)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return page, nil
}

// trackerOptions maps the attribute and session sections to tracker options.
// Params: cfg validated config; logger tracker logger; registerer hit counter registry.
// Returns: options or scheme validation error.
func trackerOptions(cfg *config.Config, logger *slog.Logger, registerer prometheus.Registerer) ([]tracker.Option, error) {
	scheme, err := tracker.NewAttributeScheme(tracker.AttributeSpec{
		Marker:      cfg.Attributes.Marker,
		Name:        cfg.Attributes.Name,
		FieldPrefix: cfg.Attributes.FieldPrefix,
		Aliases:     cfg.Attributes.Aliases,
	})
	if err != nil {
		return nil, fmt.Errorf("attributes: %w", err)
	}

	strategy, err := match.Parse(cfg.Attributes.Match)
	if err != nil {
		return nil, fmt.Errorf("attributes.match: %w", err)
	}

	newID := tracker.TimestampIDs(time.Now)
	if cfg.Session.ID == config.SessionIDUUID {
		newID = tracker.UUIDIDs
	}

	return []tracker.Option{
		tracker.WithLogger(logger),
		tracker.WithAttributeScheme(scheme),
		tracker.WithMatchStrategy(strategy),
		tracker.WithSessionIDs(newID),
		tracker.WithRegisterer(registerer),
	}, nil
}

// settingsFromConfig converts the [app] section into tracker settings.
func settingsFromConfig(app config.AppConfig) tracker.Settings {
	return tracker.Settings{
		AppID:          app.AppID,
		Server:         app.Server,
		UserIdentifier: app.UserIdentifier,
		Debug:          app.Debug,
	}
}

// reload re-reads config and applies the [app] section as a partial settings update.
// Other sections only take effect on restart.
// Params: path config file path; load config loader.
// Returns: load/apply error; the previous settings stay active on error.
func (s *activeSession) reload(path string, load func(string) (*config.Config, error)) error {
	s.logger.Info("config reload requested")

	next, err := load(path)
	if err != nil {
		s.logger.Error("config reload validation failed", slog.String("error", err.Error()))
		return fmt.Errorf("reload config: %w", err)
	}

	err = s.tracker.Update(tracker.Partial{
		AppID:          tracker.StringPtr(next.App.AppID),
		Server:         tracker.StringPtr(next.App.Server),
		UserIdentifier: tracker.StringPtr(next.App.UserIdentifier),
		Debug:          tracker.BoolPtr(next.App.Debug),
	})
	if err != nil {
		s.logger.Error("config reload apply failed, previous settings kept", slog.String("error", err.Error()))
		return fmt.Errorf("apply reload: %w", err)
	}

	s.cfg = next
	s.logger.Info("config reload applied", slog.String("app_id", next.App.AppID), slog.String("server", next.App.Server))
	return nil
}

// close drains in-flight beacons and releases components in reverse start order.
// Params: none.
// Returns: none.
func (s *activeSession) close() {
	if s == nil {
		return
	}
	if s.beacon != nil {
		timeout := s.cfg.Transport.Timeout.Duration + drainGrace
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := s.beacon.Close(ctx); err != nil {
			s.logger.Warn("beacon drain incomplete", slog.String("error", err.Error()))
		}
		cancel()
		s.beacon = nil
	}
	if s.closeStorage != nil {
		if err := s.closeStorage(); err != nil {
			s.logger.Warn("session store close failed", slog.String("error", err.Error()))
		}
		s.closeStorage = nil
	}
	if s.stopMetrics != nil {
		s.stopMetrics()
		s.stopMetrics = nil
	}
	if s.closeLogger != nil {
		s.closeLogger()
		s.closeLogger = nil
	}
}

// logStartup emits initial startup metadata.
// Params: logger is initialized slog logger; cfg is validated runtime config; session started components.
// Returns: none.
func logStartup(logger *slog.Logger, cfg *config.Config, session *activeSession) {
	logger.Info(
		"hitbeacon started",
		slog.String("app_id", cfg.App.AppID),
		slog.String("server", cfg.App.Server),
		slog.String("page", session.page.URL()),
		slog.String("session_store", cfg.Session.Store),
		slog.String("sid", session.tracker.SessionID()),
	)
}
