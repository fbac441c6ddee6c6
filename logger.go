// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/backend/native"
	"github.com/gogpu/framegraph/backend/software"
	"github.com/gogpu/framegraph/compose"
	"github.com/gogpu/framegraph/config"
	"github.com/gogpu/framegraph/renderers/surfelgi"
	"github.com/gogpu/framegraph/rg"
	"github.com/gogpu/framegraph/temporal"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// subLoggers are the SetLogger functions of every sub-package that logs.
var subLoggers = []func(*slog.Logger){
	rg.SetLogger,
	compose.SetLogger,
	temporal.SetLogger,
	surfelgi.SetLogger,
	backend.SetLogger,
	software.SetLogger,
	native.SetLogger,
}

// SetLogger configures the logger for framegraph and all its sub-packages.
// By default, framegraph produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by framegraph:
//   - [slog.LevelDebug]: passes, pipelines, transient resources
//   - [slog.LevelInfo]: lifecycle events (device selected, renderer created)
//   - [slog.LevelWarn]: non-fatal issues (failed frames, leaked resources)
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	framegraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	for _, set := range subLoggers {
		set(l)
	}
}

// Logger returns the current logger used by framegraph.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// NewLogger returns a text logger writing to w at the configured level.
func NewLogger(w io.Writer, cfg config.Renderer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
}
