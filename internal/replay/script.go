package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"hitbeacon/internal/config"
	"hitbeacon/internal/tracker"
)

const (
	// StepClick dispatches a click on the target element.
	StepClick = "click"
	// StepSubmit dispatches a submit on the target form.
	StepSubmit = "submit"
	// StepHit sends a manual report through the tracker.
	StepHit = "hit"
)

// ErrTargetNotFound is returned when a step selector matches no element.
var ErrTargetNotFound = errors.New("replay target not found")

// Script is an ordered list of interaction steps.
// Params: TOML [[event]] tables.
// Returns: validated script.
type Script struct {
	Steps []Step `toml:"event"`
}

// Step describes one interaction.
// Params: step type, selector for DOM steps, report fields for hit steps and a pre-step delay.
// Returns: one script entry.
type Step struct {
	Type         string            `toml:"type"`
	Target       string            `toml:"target"`
	HitType      string            `toml:"hit_type"`
	Page         string            `toml:"page"`
	Title        string            `toml:"title"`
	User         string            `toml:"user_identifier"`
	CustomFields map[string]string `toml:"custom_fields"`
	Delay        config.Duration   `toml:"delay"`
}

// Page is the document surface a script drives.
type Page interface {
	Find(selector string) (tracker.Node, bool)
	Click(target tracker.Node) int
	Submit(target tracker.Node) int
}

// Sender accepts manual reports.
type Sender interface {
	Send(event tracker.ReportEvent) error
}

// Load reads and validates a TOML script file.
// Params: path script path.
// Returns: parsed script or error.
func Load(path string) (*Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates script TOML.
// Params: raw TOML bytes.
// Returns: parsed script or error.
func Parse(raw []byte) (*Script, error) {
	var script Script
	if err := toml.Unmarshal(raw, &script); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}

	for i := range script.Steps {
		step := &script.Steps[i]
		step.Type = strings.ToLower(strings.TrimSpace(step.Type))
		step.Target = strings.TrimSpace(step.Target)

		switch step.Type {
		case StepClick, StepSubmit:
			if step.Target == "" {
				return nil, fmt.Errorf("event[%d]: target is required for %s", i, step.Type)
			}
		case StepHit:
			if strings.TrimSpace(step.HitType) == "" {
				return nil, fmt.Errorf("event[%d]: hit_type is required for hit", i)
			}
		default:
			return nil, fmt.Errorf("event[%d]: unsupported type %q", i, step.Type)
		}
		if step.Delay.Duration < 0 {
			return nil, fmt.Errorf("event[%d]: delay must be >= 0", i)
		}
	}

	return &script, nil
}

// Play runs every step in order, waiting for each step delay.
// Params: ctx cancels between steps; page DOM surface; sender manual report sink; logger step log.
// Returns: first step error or context error.
func Play(ctx context.Context, page Page, sender Sender, script *Script, logger *slog.Logger) error {
	if script == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	for i, step := range script.Steps {
		if err := wait(ctx, step.Delay.Duration); err != nil {
			return err
		}

		switch step.Type {
		case StepClick, StepSubmit:
			target, ok := page.Find(step.Target)
			if !ok {
				return fmt.Errorf("event[%d] %q: %w", i, step.Target, ErrTargetNotFound)
			}
			var listeners int
			if step.Type == StepClick {
				listeners = page.Click(target)
			} else {
				listeners = page.Submit(target)
			}
			logger.Debug("replay step", "index", i, "type", step.Type, "target", step.Target, "listeners", listeners)
		case StepHit:
			err := sender.Send(tracker.ReportEvent{
				HitType:        step.HitType,
				Page:           step.Page,
				Title:          step.Title,
				UserIdentifier: step.User,
				CustomFields:   step.CustomFields,
			})
			if err != nil {
				return fmt.Errorf("event[%d]: %w", i, err)
			}
			logger.Debug("replay step", "index", i, "type", step.Type, "hit_type", step.HitType)
		}
	}

	return nil
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
