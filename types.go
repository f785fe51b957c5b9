package lazysentry

import (
	"time"
)

type (
	// EventID identifies a captured event. The empty value is the placeholder
	// returned by capture operations before the real library has loaded, and
	// must be treated as "no identifier available yet".
	EventID string

	// Level is the severity of an event or breadcrumb.
	Level string

	// Breadcrumb is a trail entry recorded ahead of an event.
	Breadcrumb struct {
		Timestamp time.Time      `json:"timestamp,omitzero"`
		Data      map[string]any `json:"data,omitempty"`
		Type      string         `json:"type,omitempty"`
		Category  string         `json:"category,omitempty"`
		Message   string         `json:"message,omitempty"`
		Level     Level          `json:"level,omitempty"`
	}

	// BreadcrumbHint carries arbitrary data to breadcrumb processors.
	BreadcrumbHint map[string]any

	// Event is a custom event, for [Operations.CaptureEvent].
	// If Err is set, the event carries the exception chain of Err.
	Event struct {
		Err      error                     `json:"-"`
		Tags     map[string]string         `json:"tags,omitempty"`
		Extra    map[string]any            `json:"extra,omitempty"`
		Contexts map[string]map[string]any `json:"contexts,omitempty"`
		Message  string                    `json:"message,omitempty"`
		Level    Level                     `json:"level,omitempty"`
	}

	// EventHint carries arbitrary data to event processors.
	EventHint struct {
		Data              any
		OriginalException error
	}

	// CaptureContext is contextual data applied to a single capture, without
	// modifying the shared scope.
	CaptureContext struct {
		Tags     map[string]string         `json:"tags,omitempty"`
		Extra    map[string]any            `json:"extra,omitempty"`
		Contexts map[string]map[string]any `json:"contexts,omitempty"`
		Level    Level                     `json:"level,omitempty"`
	}

	// User identifies the user affected by an event.
	User struct {
		ID        string `json:"id,omitempty"`
		Email     string `json:"email,omitempty"`
		Username  string `json:"username,omitempty"`
		IPAddress string `json:"ip_address,omitempty"`
	}

	// ReportDialogOptions configures a user feedback dialog.
	ReportDialogOptions struct {
		User     User
		EventID  EventID
		Title    string
		Subtitle string
	}

	// Scope is the mutable context attached to subsequently captured events.
	// Implementations are provided by the real library.
	Scope interface {
		SetTag(key, value string)
		SetExtra(key string, value any)
		SetContext(key string, value map[string]any)
		SetLevel(level Level)
		SetUser(user User)
		Clear()
	}

	// ErrorInfo describes where a crash boundary caught an error.
	ErrorInfo struct {
		// ComponentStack is the stack of the render that failed, innermost
		// first.
		ComponentStack string
	}

	// Options are initialization options, forwarded verbatim to the real
	// library's init entry point.
	Options struct {
		Tags map[string]string `yaml:"tags,omitempty" json:"tags,omitempty"`
		// Integrations are library specific integration values, appended to
		// the library's own integrations. Values of unrecognized types are
		// ignored by the library.
		Integrations     []any   `yaml:"-" json:"-"`
		Dsn              string  `yaml:"dsn" json:"dsn"`
		Environment      string  `yaml:"environment,omitempty" json:"environment,omitempty"`
		Release          string  `yaml:"release,omitempty" json:"release,omitempty"`
		SampleRate       float64 `yaml:"sample_rate,omitempty" json:"sample_rate,omitempty"`
		TracesSampleRate float64 `yaml:"traces_sample_rate,omitempty" json:"traces_sample_rate,omitempty"`
		MaxBreadcrumbs   int     `yaml:"max_breadcrumbs,omitempty" json:"max_breadcrumbs,omitempty"`
		Debug            bool    `yaml:"debug,omitempty" json:"debug,omitempty"`
	}
)

const (
	LevelDebug   Level = `debug`
	LevelInfo    Level = `info`
	LevelWarning Level = `warning`
	LevelError   Level = `error`
	LevelFatal   Level = `fatal`
)
