package tracker

import (
	"log/slog"
	"net/url"
	"strings"
)

// Transport joins the server URL with a query string and hands it to the beacon.
type Transport struct {
	beacon Beacon
	logger *slog.Logger
}

// NewTransport creates a transport over beacon.
func NewTransport(beacon Beacon, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{beacon: beacon, logger: logger}
}

// Dispatch replaces the server query with search and fires the beacon.
// An unusable server URL drops the hit; nothing is reported to the caller.
// Params: server collection endpoint; search query string with or without '?'.
// Returns: none.
func (t *Transport) Dispatch(server, search string) {
	target, err := url.Parse(strings.TrimSpace(server))
	if err != nil || target.Scheme == "" || target.Host == "" {
		reason := "server url is not absolute"
		if err != nil {
			reason = err.Error()
		}
		t.logger.Warn("hit dropped", slog.String("server", server), slog.String("error", reason))
		return
	}

	target.RawQuery = strings.TrimPrefix(search, "?")
	t.beacon.Send(target.String())
}
