// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rg

import (
	"errors"
	"fmt"
)

// Contract violations. These indicate a renderer logic bug and are raised with
// panic; the panic value is an error wrapping one of these sentinels.
var (
	// ErrInvalidHandle is raised when a zero or out-of-range handle is used.
	ErrInvalidHandle = errors.New("rg: invalid handle")

	// ErrForeignHandle is raised when a handle from another graph is used.
	ErrForeignHandle = errors.New("rg: handle belongs to a different graph")

	// ErrStaleHandle is raised when a handle version was superseded by a later write.
	ErrStaleHandle = errors.New("rg: stale handle version")

	// ErrAccessMismatch is raised when a read is declared with a write access or vice versa.
	ErrAccessMismatch = errors.New("rg: access type does not match declaration")

	// ErrKindMismatch is raised when a resource is used as the wrong kind.
	ErrKindMismatch = errors.New("rg: resource kind mismatch")

	// ErrPassFinalized is raised when declaring into a pass that already recorded its commands.
	ErrPassFinalized = errors.New("rg: pass already recorded")

	// ErrGraphExecuted is raised when declaring into a graph that was already executed.
	ErrGraphExecuted = errors.New("rg: graph already executed")

	// ErrResourceExported is raised when a resource is accessed after it was exported.
	ErrResourceExported = errors.New("rg: resource already exported")

	// ErrUnregisteredBinding is raised when a command binds a resource the pass never declared.
	ErrUnregisteredBinding = errors.New("rg: binding was not declared by the pass")

	// ErrTemporalAlreadyImported is raised by a second import of a temporal
	// resource before its bracket was closed.
	ErrTemporalAlreadyImported = errors.New("rg: temporal resource already imported")

	// ErrTemporalNotImported is raised by an export without a matching import.
	ErrTemporalNotImported = errors.New("rg: temporal resource not imported")

	// ErrTemporalNotExported is raised when retiring a resource that was imported but never exported.
	ErrTemporalNotExported = errors.New("rg: temporal resource imported but not exported")

	// ErrTemporalHandleMismatch is raised when exporting a handle that does
	// not belong to the temporal resource.
	ErrTemporalHandleMismatch = errors.New("rg: handle does not belong to temporal resource")
)

// Setup errors. These are returned, not raised.
var (
	// ErrInvalidPipeline is returned for an unsupported or incomplete pipeline description.
	ErrInvalidPipeline = errors.New("rg: invalid pipeline description")

	// ErrUnknownPipeline is returned when a command references a pipeline the cache never registered.
	ErrUnknownPipeline = errors.New("rg: unknown pipeline")

	// ErrNilDevice is returned when executing without a device.
	ErrNilDevice = errors.New("rg: device is nil")

	// ErrResourceNotFound is returned when a binding cannot be resolved during submission.
	ErrResourceNotFound = errors.New("rg: resource not found")
)

// violation panics with err wrapped in a formatted message.
func violation(err error, format string, args ...any) {
	panic(fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...)))
}
