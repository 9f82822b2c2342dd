package tracker

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SessionKey is the storage key holding the session correlation id.
// Other scripts writing the same key in the same tab share the id.
const SessionKey = "_ta_sid"

// IDGenerator produces a new session id.
type IDGenerator func() string

// TimestampIDs returns a generator of decimal epoch-millisecond ids.
// Params: now supplies the clock; nil uses time.Now.
// Returns: id generator.
func TimestampIDs(now func() time.Time) IDGenerator {
	if now == nil {
		now = time.Now
	}
	return func() string {
		return strconv.FormatInt(now().UnixMilli(), 10)
	}
}

// UUIDIDs generates random version 4 UUID session ids.
func UUIDIDs() string {
	return uuid.NewString()
}

// SessionStore reads and lazily creates the per-session id.
type SessionStore struct {
	storage Storage
	newID   IDGenerator
	logger  *slog.Logger
}

// NewSessionStore wraps storage with session id bookkeeping.
// Params: storage tab-scoped store; newID generator (nil selects timestamps); logger for read failures.
// Returns: session store.
func NewSessionStore(storage Storage, newID IDGenerator, logger *slog.Logger) *SessionStore {
	if newID == nil {
		newID = TimestampIDs(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{storage: storage, newID: newID, logger: logger}
}

// Get returns the current session id or "" when none exists.
// Params: none.
// Returns: session id; storage read errors yield "".
func (s *SessionStore) Get() string {
	value, ok, err := s.storage.Get(SessionKey)
	if err != nil {
		s.logger.Warn("session id read failed", slog.String("error", err.Error()))
		return ""
	}
	if !ok {
		return ""
	}
	return value
}

// Ensure creates and persists a session id when none exists.
// A second call with an id present is a no-op.
// Params: none.
// Returns: the session id in effect and storage error when persisting fails.
func (s *SessionStore) Ensure() (string, error) {
	existing, ok, err := s.storage.Get(SessionKey)
	if err != nil {
		return "", fmt.Errorf("read session id: %w", err)
	}
	if ok && existing != "" {
		return existing, nil
	}

	id := s.newID()
	if err := s.storage.Set(SessionKey, id); err != nil {
		return "", fmt.Errorf("store session id: %w", err)
	}
	return id, nil
}
