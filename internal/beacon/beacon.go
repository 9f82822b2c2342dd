package beacon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout = 5 * time.Second

	resultSent    = "sent"
	resultFailed  = "failed"
	resultDropped = "dropped"
)

// Options configures an HTTP beacon.
// Params: Method is POST (sendBeacon semantics) or GET; Timeout bounds one attempt.
// Returns: beacon settings.
type Options struct {
	Method     string
	Timeout    time.Duration
	Client     *http.Client
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// HTTP delivers each hit with one asynchronous request and never reads the response.
// There is no retry and no queue: a failed attempt is logged and counted only.
type HTTP struct {
	method string
	client *http.Client
	logger *slog.Logger
	sent   *prometheus.CounterVec

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	inflight errgroup.Group
}

// New creates an HTTP beacon.
// Params: opts delivery settings; zero values select POST, 5s timeout and a tuned client.
// Returns: beacon or error for unsupported method / metric registration failure.
func New(opts Options) (*HTTP, error) {
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodPost
	}
	if method != http.MethodPost && method != http.MethodGet {
		return nil, fmt.Errorf("unsupported beacon method %q", opts.Method)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.Client
	if client == nil {
		client = newHTTPClient(timeout)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sent, err := registerCounter(opts.Registerer)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &HTTP{
		method: method,
		client: client,
		logger: logger,
		sent:   sent,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Send starts one delivery attempt for target and returns immediately.
// Params: target absolute URL including the hit query.
// Returns: none.
func (b *HTTP) Send(target string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.count(resultDropped)
		b.logger.Debug("beacon closed, hit dropped", slog.String("url", target))
		return
	}

	b.inflight.Go(func() error {
		if err := b.deliver(target); err != nil {
			b.count(resultFailed)
			b.logger.Debug("beacon delivery failed", slog.String("error", err.Error()))
			return nil
		}
		b.count(resultSent)
		return nil
	})
}

// deliver performs one request and discards the response.
// Params: target absolute URL.
// Returns: transport error or nil for any HTTP response.
func (b *HTTP) deliver(target string) error {
	var body io.Reader
	if b.method == http.MethodPost {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(b.ctx, b.method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if b.method == http.MethodPost {
		req.Header.Set("Content-Type", "text/plain;charset=UTF-8")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", b.method, req.URL.Redacted(), err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.Body.Close()
}

// Close stops accepting hits and waits for in-flight attempts, so hits issued
// right before shutdown still go out. When ctx ends first the rest are aborted.
// Params: ctx bounds the drain.
// Returns: ctx error when the drain was cut short.
func (b *HTTP) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.cancel()
		return nil
	case <-ctx.Done():
		b.cancel()
		<-done
		return fmt.Errorf("drain beacon: %w", ctx.Err())
	}
}

func (b *HTTP) count(result string) {
	if b.sent != nil {
		b.sent.WithLabelValues(result).Inc()
	}
}

// newHTTPClient builds a client with bounded dial/TLS timeouts.
// Params: timeout per request.
// Returns: http client.
func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// registerCounter creates hitbeacon_beacons_total on registerer, reusing an existing one.
// Params: registerer may be nil to disable counting.
// Returns: counter or registration error.
func registerCounter(registerer prometheus.Registerer) (*prometheus.CounterVec, error) {
	if registerer == nil {
		return nil, nil
	}
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hitbeacon",
		Name:      "beacons_total",
		Help:      "Beacon delivery attempts by result",
	}, []string{"result"})

	if err := registerer.Register(sent); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register beacon counter: %w", err)
	}
	return sent, nil
}
