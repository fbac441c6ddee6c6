// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/framegraph/backend/software"
	"github.com/gogpu/framegraph/rg"
)

func TestSoftwareRegisteredOnImport(t *testing.T) {
	if !IsRegistered(BackendSoftware) {
		t.Fatal("software backend not registered")
	}
	if !slices.Contains(Available(), BackendSoftware) {
		t.Errorf("Available() = %v, missing %q", Available(), BackendSoftware)
	}
	dev, err := Open(BackendSoftware, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if dev.Name() != "software" {
		t.Errorf("Name() = %q", dev.Name())
	}
}

func TestOpenUnknown(t *testing.T) {
	if _, err := Open("nonexistent", Options{}); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(nonexistent) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestDefaultPriority(t *testing.T) {
	errNoAdapter := errors.New("no adapter")
	tests := []struct {
		name   string
		native Factory
		want   string
	}{
		{"native unregistered", nil, "software"},
		{"native fails", func(Options) (rg.Device, error) { return nil, errNoAdapter }, "software"},
		{"native opens", func(Options) (rg.Device, error) { return namedDevice{software.New(), "native"}, nil }, "native"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Unregister(BackendNative)
			defer Unregister(BackendNative)
			if tt.native != nil {
				Register(BackendNative, tt.native)
			}
			dev, err := Default(Options{})
			if err != nil {
				t.Fatalf("Default() error = %v", err)
			}
			if dev.Name() != tt.want {
				t.Errorf("Default() = %q, want %q", dev.Name(), tt.want)
			}
		})
	}
}

func TestDefaultNothingOpens(t *testing.T) {
	saved := backends
	defer func() { backends = saved }()
	errBroken := errors.New("broken")
	backends = map[string]Factory{
		"broken": func(Options) (rg.Device, error) { return nil, errBroken },
	}

	_, err := Default(Options{})
	if !errors.Is(err, ErrBackendNotAvailable) || !errors.Is(err, errBroken) {
		t.Errorf("Default() error = %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("MustDefault() did not panic")
		}
	}()
	MustDefault(Options{})
}

func TestCandidatesOrder(t *testing.T) {
	saved := backends
	defer func() { backends = saved }()
	noop := func(Options) (rg.Device, error) { return nil, nil }
	backends = map[string]Factory{"zeta": noop, "alpha": noop, BackendSoftware: noop, BackendNative: noop}

	want := []string{BackendNative, BackendSoftware, "alpha", "zeta"}
	if got := candidates(); !slices.Equal(got, want) {
		t.Errorf("candidates() = %v, want %v", got, want)
	}
}

type namedDevice struct {
	*software.Device
	name string
}

func (d namedDevice) Name() string { return d.name }
