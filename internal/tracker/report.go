package tracker

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Well-known hit types. HitType stays free-form.
const (
	HitPageView     = "page_view"
	HitClick        = "click"
	HitScroll       = "scroll"
	HitSessionStart = "session_start"
	HitFirstVisit   = "first_visit"
	HitFormStart    = "form_start"
	HitSubmit       = "submit"
)

// ReportEvent is one hit to report; empty Page/Title default to the document state.
type ReportEvent struct {
	HitType        string
	Page           string
	Title          string
	UserIdentifier string
	CustomFields   map[string]string
}

type param struct {
	key   string
	value string
}

// Builder composes hit query strings.
type Builder struct {
	doc    Document
	now    func() time.Time
	logger *slog.Logger
}

// NewBuilder creates a query builder.
// Params: doc supplies page defaults and user agent; now clock (nil uses time.Now); logger for debug output.
// Returns: builder.
func NewBuilder(doc Document, now func() time.Time, logger *slog.Logger) *Builder {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{doc: doc, now: now, logger: logger}
}

// Build returns "?appID=..&hitType=..&page=..&title=..&sid=..&t=..&ua=..[&userIdentifier=..][&customFields=..]".
// With settings.Debug the inputs and result are logged; the result does not depend on it.
// Params: event hit data; settings active snapshot; sid current session id.
// Returns: encoded query string with leading '?'.
func (b *Builder) Build(event ReportEvent, settings Settings, sid string) string {
	page := event.Page
	if page == "" {
		page = b.doc.URL()
	}
	title := event.Title
	if title == "" {
		title = b.doc.Title()
	}

	params := []param{
		{"appID", settings.AppID},
		{"hitType", event.HitType},
		{"page", page},
		{"title", title},
		{"sid", sid},
		{"t", strconv.FormatInt(b.now().UnixMilli(), 10)},
		{"ua", b.doc.UserAgent()},
	}

	userIdentifier := event.UserIdentifier
	if userIdentifier == "" {
		userIdentifier = settings.UserIdentifier
	}
	if userIdentifier != "" {
		params = append(params, param{"userIdentifier", userIdentifier})
	}
	if len(event.CustomFields) > 0 {
		if encoded, err := encodeCustomFields(event.CustomFields); err == nil {
			params = append(params, param{"customFields", encoded})
		} else {
			b.logger.Warn("custom fields dropped", slog.String("error", err.Error()))
		}
	}

	search := encodeSearch(params)
	if settings.Debug {
		b.logDebug(settings.Server, params, event.CustomFields, search)
	}
	return search
}

func (b *Builder) logDebug(server string, params []param, customFields map[string]string, search string) {
	raw := make(map[string]string, len(params))
	for _, p := range params {
		raw[p.key] = p.value
	}
	b.logger.Info(
		"hit report",
		slog.Group(
			"hitbeacon",
			slog.String("server", server),
			slog.Any("params", raw),
			slog.Any("customFields", customFields),
			slog.String("search", search),
		),
	)
}

// encodeSearch form-encodes params in their given order.
// Params: ordered key/value pairs.
// Returns: query string with leading '?'.
func encodeSearch(params []param) string {
	var builder strings.Builder
	builder.WriteByte('?')
	for idx, p := range params {
		if idx > 0 {
			builder.WriteByte('&')
		}
		builder.WriteString(url.QueryEscape(p.key))
		builder.WriteByte('=')
		builder.WriteString(url.QueryEscape(p.value))
	}
	return builder.String()
}

// encodeCustomFields renders fields as compact JSON without HTML escaping.
// Params: custom field mapping.
// Returns: JSON text or encode error.
func encodeCustomFields(fields map[string]string) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(fields); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
