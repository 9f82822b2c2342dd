package tracker

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Settings is the endpoint/app configuration attached to every hit.
// Params: application id, collection endpoint, default user identifier, debug flag.
// Returns: one immutable configuration snapshot once installed.
type Settings struct {
	AppID          string
	Server         string
	UserIdentifier string
	Debug          bool
}

// Partial carries a settings update; nil fields keep their previous value.
type Partial struct {
	AppID          *string
	Server         *string
	UserIdentifier *string
	Debug          *bool
}

// mergeOver applies non-nil partial fields over base.
// Params: base is the active snapshot.
// Returns: merged settings value.
func (p Partial) mergeOver(base Settings) Settings {
	merged := base
	if p.AppID != nil {
		merged.AppID = *p.AppID
	}
	if p.Server != nil {
		merged.Server = *p.Server
	}
	if p.UserIdentifier != nil {
		merged.UserIdentifier = *p.UserIdentifier
	}
	if p.Debug != nil {
		merged.Debug = *p.Debug
	}
	return merged
}

// ConfigStore holds the active settings snapshot with copy-on-write replacement.
// The zero value is usable and reports ErrUninitialized until Install succeeds.
type ConfigStore struct {
	active atomic.Pointer[Settings]
}

// Install validates settings and replaces the active snapshot in one store.
// Params: settings to install; Server must be non-empty.
// Returns: ErrConfiguration when Server is missing.
func (s *ConfigStore) Install(settings Settings) error {
	if strings.TrimSpace(settings.Server) == "" {
		return fmt.Errorf("%w: server is required", ErrConfiguration)
	}

	snapshot := settings
	s.active.Store(&snapshot)
	return nil
}

// Update merges partial over the active snapshot and installs the result.
// Params: partial fields to overwrite.
// Returns: ErrUninitialized before Install, ErrConfiguration when the merge clears Server.
func (s *ConfigStore) Update(partial Partial) error {
	current, err := s.Read()
	if err != nil {
		return err
	}
	return s.Install(partial.mergeOver(current))
}

// Read returns a copy of the active snapshot.
// Params: none.
// Returns: settings copy or ErrUninitialized.
func (s *ConfigStore) Read() (Settings, error) {
	snapshot := s.active.Load()
	if snapshot == nil {
		return Settings{}, fmt.Errorf("read config: %w", ErrUninitialized)
	}
	return *snapshot, nil
}

// Server returns the active collection endpoint.
// Params: none.
// Returns: server URL or ErrUninitialized.
func (s *ConfigStore) Server() (string, error) {
	snapshot := s.active.Load()
	if snapshot == nil {
		return "", fmt.Errorf("read server: %w", ErrUninitialized)
	}
	return snapshot.Server, nil
}

// StringPtr returns a pointer to a copy of value, for building Partial literals.
func StringPtr(value string) *string {
	return &value
}

// BoolPtr returns a pointer to a copy of value, for building Partial literals.
func BoolPtr(value bool) *bool {
	return &value
}
