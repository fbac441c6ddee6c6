// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"testing"

	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/config"
)

func TestOpenDevice(t *testing.T) {
	tests := []struct {
		name     string
		backend  string
		wantName string
		wantErr  error
	}{
		{"software", backend.BackendSoftware, "software", nil},
		{"unknown", "metal", "", backend.ErrBackendNotAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultRenderer()
			cfg.Backend = tt.backend
			dev, err := OpenDevice(cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("OpenDevice() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && dev.Name() != tt.wantName {
				t.Errorf("OpenDevice() device = %q, want %q", dev.Name(), tt.wantName)
			}
		})
	}
}

func TestOpenDeviceDefault(t *testing.T) {
	dev, err := OpenDevice(config.DefaultRenderer())
	if err != nil {
		t.Fatalf("OpenDevice() error = %v", err)
	}
	if name := dev.Name(); name != backend.BackendNative && name != backend.BackendSoftware {
		t.Errorf("OpenDevice() picked %q", name)
	}
	if closer, ok := dev.(interface{ Close() error }); ok && dev.Name() == backend.BackendNative {
		_ = closer.Close()
	}
}
