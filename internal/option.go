package internal

import (
	"io"

	"github.com/starford/folio/internal/notion"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	source    notion.Source
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput sends logs to w instead of stdout.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithSource replaces the configured document source.
func WithSource(src notion.Source) Option {
	return func(a *application) {
		a.source = src
	}
}
